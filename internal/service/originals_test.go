package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"relistapi/internal/model"
	repoMocks "relistapi/internal/repository/mocks"
	"relistapi/internal/storage"
	storeMocks "relistapi/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testEvent() model.ListingEvent {
	return model.ListingEvent{
		AccountID:   "acct-1",
		Title:       "40mm artificial grass rolls",
		Description: "Fast delivery available",
		Images:      [][]byte{[]byte("image-bytes-1")},
	}
}

func TestOriginalService_Store(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		event       model.ListingEvent
		setupMocks  func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockOriginalRepository)
		wantCreated bool
		wantErr     error
		wantErrMsg  string
	}{
		{
			name:  "new content is uploaded and created",
			event: testEvent(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockOriginalRepository) {
				mRepo.On("FindByContentHash", ctx, "acct-1", mock.Anything).
					Return(nil, sql.ErrNoRows)
				mStore.On("Exists", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "originals/acct-1/")
				})).Return(false, nil)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(o *model.Original) bool {
					return o.AccountID == "acct-1" &&
						o.ContentHash != "" &&
						o.Status == model.OriginalActive &&
						len(o.Images) == 1 &&
						o.Images[0].Position == 0
				})).Return(&model.Original{ID: "gen-id", AccountID: "acct-1"}, nil)
			},
			wantCreated: true,
		},
		{
			name:  "duplicate content returns the existing record",
			event: testEvent(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockOriginalRepository) {
				mRepo.On("FindByContentHash", ctx, "acct-1", mock.Anything).
					Return(&model.Original{ID: "existing-id"}, nil)
			},
			wantCreated: false,
		},
		{
			name:  "already stored blob is not re-uploaded",
			event: testEvent(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockOriginalRepository) {
				mRepo.On("FindByContentHash", ctx, "acct-1", mock.Anything).
					Return(nil, sql.ErrNoRows)
				mStore.On("Exists", ctx, mock.Anything).Return(true, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(&model.Original{ID: "gen-id"}, nil)
			},
			wantCreated: true,
		},
		{
			name:       "missing account id",
			event:      model.ListingEvent{Title: "x"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockOriginalRepository) {},
			wantErr:    ErrAccountRequired,
		},
		{
			name:       "blank title",
			event:      model.ListingEvent{AccountID: "acct-1", Title: "   "},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockOriginalRepository) {},
			wantErr:    ErrTitleRequired,
		},
		{
			name:  "db save failure rolls back fresh uploads",
			event: testEvent(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockOriginalRepository) {
				mRepo.On("FindByContentHash", ctx, "acct-1", mock.Anything).
					Return(nil, sql.ErrNoRows)
				mStore.On("Exists", ctx, mock.Anything).Return(false, nil)
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockOriginalRepository)
			tt.setupMocks(mStore, mRepo)

			svc := NewOriginalService(mStore, mRepo)
			_, created, err := svc.Store(ctx, tt.event)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.ErrorContains(t, err, tt.wantErrMsg)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantCreated, created)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestOriginalService_Store_Idempotent(t *testing.T) {
	// The same event twice must hash identically, so the second store hits
	// the existing record without touching storage.
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockOriginalRepository)

	var savedHash string
	mRepo.On("FindByContentHash", ctx, "acct-1", mock.Anything).
		Return(nil, sql.ErrNoRows).Once()
	mStore.On("Exists", ctx, mock.Anything).Return(false, nil).Once()
	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, nil).Once()
	mRepo.On("Create", ctx, mock.MatchedBy(func(o *model.Original) bool {
		savedHash = o.ContentHash
		return true
	})).Return(&model.Original{ID: "first"}, nil).Once()

	svc := NewOriginalService(mStore, mRepo)
	_, created, err := svc.Store(ctx, testEvent())
	assert.NoError(t, err)
	assert.True(t, created)

	mRepo.On("FindByContentHash", ctx, "acct-1", mock.MatchedBy(func(h string) bool {
		return h == savedHash
	})).Return(&model.Original{ID: "first"}, nil).Once()

	got, created, err := svc.Store(ctx, testEvent())
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "first", got.ID)
}

func TestOriginalService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("FindByID", ctx, "id-1").Return(&model.Original{ID: "id-1"}, nil)

		svc := NewOriginalService(new(storeMocks.MockStorage), mRepo)
		got, err := svc.Get(ctx, "id-1")

		assert.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
	})

	t.Run("not found maps to sentinel", func(t *testing.T) {
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		svc := NewOriginalService(new(storeMocks.MockStorage), mRepo)
		_, err := svc.Get(ctx, "missing")

		assert.ErrorIs(t, err, ErrOriginalNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		svc := NewOriginalService(new(storeMocks.MockStorage), new(repoMocks.MockOriginalRepository))
		_, err := svc.Get(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestOriginalService_LoadImage(t *testing.T) {
	ctx := context.Background()
	body := []byte("image-bytes-1")
	img := model.OriginalImage{
		SHA256:      storage.HashBytes(body),
		StoragePath: "originals/acct-1/some.jpg",
	}

	t.Run("checksum verified", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Get", ctx, img.StoragePath).
			Return(io.NopCloser(strings.NewReader(string(body))), storage.ObjectInfo{}, nil)

		svc := NewOriginalService(mStore, new(repoMocks.MockOriginalRepository))
		got, err := svc.LoadImage(ctx, img)

		assert.NoError(t, err)
		assert.Equal(t, body, got)
	})

	t.Run("corrupted blob is rejected", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Get", ctx, img.StoragePath).
			Return(io.NopCloser(strings.NewReader("tampered")), storage.ObjectInfo{}, nil)

		svc := NewOriginalService(mStore, new(repoMocks.MockOriginalRepository))
		_, err := svc.LoadImage(ctx, img)

		assert.ErrorContains(t, err, "failed checksum")
	})
}

func TestOriginalService_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()

	olds := []model.Original{
		{ID: "old-1", Images: []model.OriginalImage{{StoragePath: "originals/a/1.jpg"}}},
		{ID: "old-2", Images: []model.OriginalImage{{StoragePath: "originals/a/2.jpg"}}},
	}

	t.Run("removes blobs then rows", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("ListOlderThan", ctx, mock.Anything).Return(olds, nil)
		mRepo.On("CountImageRefs", ctx, mock.Anything, mock.Anything).Return(0, nil)
		mStore.On("Delete", ctx, "originals/a/1.jpg").Return(nil)
		mStore.On("Delete", ctx, "originals/a/2.jpg").Return(nil)
		mRepo.On("Delete", ctx, "old-1").Return(nil)
		mRepo.On("Delete", ctx, "old-2").Return(nil)

		svc := NewOriginalService(mStore, mRepo)
		n, err := svc.PurgeOlderThan(ctx, 30*24*time.Hour)

		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		mRepo.AssertExpectations(t)
	})

	t.Run("failed blob delete keeps the row", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("ListOlderThan", ctx, mock.Anything).Return(olds, nil)
		mRepo.On("CountImageRefs", ctx, mock.Anything, mock.Anything).Return(0, nil)
		mStore.On("Delete", ctx, "originals/a/1.jpg").Return(errors.New("storage down"))
		mStore.On("Delete", ctx, "originals/a/2.jpg").Return(nil)
		mRepo.On("Delete", ctx, "old-2").Return(nil)

		svc := NewOriginalService(mStore, mRepo)
		n, err := svc.PurgeOlderThan(ctx, 30*24*time.Hour)

		assert.NoError(t, err)
		assert.Equal(t, 1, n)
		mRepo.AssertNotCalled(t, "Delete", ctx, "old-1")
	})

	t.Run("blob shared with a surviving original is kept", func(t *testing.T) {
		// Two accounts can store the same image bytes; the blob is deduped to
		// one content-addressed key. Purging the older record must not pull
		// the blob out from under the newer one.
		expired := []model.Original{
			{ID: "old-1", Images: []model.OriginalImage{{StoragePath: "originals/a/shared.jpg"}}},
		}
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("ListOlderThan", ctx, mock.Anything).Return(expired, nil)
		mRepo.On("CountImageRefs", ctx, "originals/a/shared.jpg", "old-1").Return(1, nil)
		mRepo.On("Delete", ctx, "old-1").Return(nil)

		svc := NewOriginalService(mStore, mRepo)
		n, err := svc.PurgeOlderThan(ctx, 30*24*time.Hour)

		assert.NoError(t, err)
		assert.Equal(t, 1, n)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("reference check failure keeps both blob and row", func(t *testing.T) {
		expired := []model.Original{
			{ID: "old-1", Images: []model.OriginalImage{{StoragePath: "originals/a/1.jpg"}}},
		}
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("ListOlderThan", ctx, mock.Anything).Return(expired, nil)
		mRepo.On("CountImageRefs", ctx, "originals/a/1.jpg", "old-1").
			Return(0, errors.New("db down"))

		svc := NewOriginalService(mStore, mRepo)
		n, err := svc.PurgeOlderThan(ctx, 30*24*time.Hour)

		assert.NoError(t, err)
		assert.Equal(t, 0, n)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "Delete", ctx, "old-1")
	})
}

func TestOriginalService_Archive(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the record archived", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("FindByID", ctx, "orig-1").
			Return(&model.Original{ID: "orig-1", Status: model.OriginalActive}, nil)
		mRepo.On("UpdateStatus", ctx, "orig-1", model.OriginalArchived).Return(nil)

		svc := NewOriginalService(mStore, mRepo)
		err := svc.Archive(ctx, "orig-1")

		assert.NoError(t, err)
		mRepo.AssertExpectations(t)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		svc := NewOriginalService(mStore, mRepo)
		err := svc.Archive(ctx, "missing")

		assert.ErrorIs(t, err, ErrOriginalNotFound)
		mRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOriginalService_ImageURL(t *testing.T) {
	ctx := context.Background()
	original := &model.Original{
		ID:        "orig-1",
		AccountID: "acct-1",
		Images: []model.OriginalImage{
			{SHA256: "sha-a", StoragePath: "originals/acct-1/sha-a.jpg"},
			{SHA256: "sha-b", StoragePath: "originals/acct-1/sha-b.jpg"},
		},
	}

	t.Run("presigns the matching blob", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("FindByID", ctx, "orig-1").Return(original, nil)
		mStore.On("PresignGet", ctx, "originals/acct-1/sha-b.jpg", 15*time.Minute).
			Return("https://minio.local/presigned", nil)

		svc := NewOriginalService(mStore, mRepo)
		url, err := svc.ImageURL(ctx, "orig-1", "sha-b", 15*time.Minute)

		assert.NoError(t, err)
		assert.Equal(t, "https://minio.local/presigned", url)
		mStore.AssertExpectations(t)
	})

	t.Run("unknown sha is not found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockOriginalRepository)
		mRepo.On("FindByID", ctx, "orig-1").Return(original, nil)

		svc := NewOriginalService(mStore, mRepo)
		_, err := svc.ImageURL(ctx, "orig-1", "sha-z", time.Minute)

		assert.ErrorIs(t, err, ErrOriginalNotFound)
		mStore.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
	})
}
