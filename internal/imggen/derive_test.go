package imggen

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"

	"relistapi/internal/config"
	"relistapi/internal/model"
)

func testPipelineConfig() config.VariationConfig {
	return config.VariationConfig{
		ImageRetries: 5,
		RandSeed:     42,
	}
}

// testJPEG renders a gradient so the content-aware crop has real variance to
// rank and the JPEG encoder has non-trivial content to compress.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) * 255 / (w + h)),
				A: 255,
			})
		}
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func neverSeen(width, height, quality int) (bool, error) { return false, nil }

func TestPipeline_Derive(t *testing.T) {
	ctx := context.Background()

	t.Run("dimensions shift within one percent and never match the source", func(t *testing.T) {
		src := testJPEG(t, 1920, 1080)

		// Many independent seeds, so a single lucky draw can't hide an
		// out-of-bounds dimension.
		for seed := int64(1); seed <= 20; seed++ {
			p := NewPipeline(config.VariationConfig{ImageRetries: 8, RandSeed: seed})

			d, err := p.Derive(ctx, src, neverSeen)

			assert.NoError(t, err, "seed %d", seed)
			assert.NotEqual(t, 1920, d.Width, "seed %d", seed)
			assert.NotEqual(t, 1080, d.Height, "seed %d", seed)
			assert.InDelta(t, 1920, d.Width, 1920*0.01, "seed %d", seed)
			assert.InDelta(t, 1080, d.Height, 1080*0.01, "seed %d", seed)
		}
	})

	t.Run("output bytes differ from the source", func(t *testing.T) {
		src := testJPEG(t, 640, 480)
		p := NewPipeline(testPipelineConfig())

		d, err := p.Derive(ctx, src, neverSeen)

		assert.NoError(t, err)
		assert.NotEqual(t, src, d.Bytes)
		assert.NotEmpty(t, d.Bytes)
	})

	t.Run("transform parameters stay inside their ranges", func(t *testing.T) {
		src := testJPEG(t, 640, 480)
		p := NewPipeline(testPipelineConfig())

		for i := 0; i < 5; i++ {
			d, err := p.Derive(ctx, src, neverSeen)
			assert.NoError(t, err)

			tr := d.Transform
			assert.GreaterOrEqual(t, tr.Brightness, factorMin)
			assert.LessOrEqual(t, tr.Brightness, factorMax)
			assert.GreaterOrEqual(t, tr.Contrast, factorMin)
			assert.LessOrEqual(t, tr.Contrast, factorMax)
			assert.GreaterOrEqual(t, tr.Scale, scaleMin)
			assert.LessOrEqual(t, tr.Scale, scaleMax)
			assert.GreaterOrEqual(t, tr.Quality, qualityMin)
			assert.LessOrEqual(t, tr.Quality, qualityMax)
		}
	})

	t.Run("undecodable bytes are reported as a decode failure", func(t *testing.T) {
		p := NewPipeline(testPipelineConfig())

		_, err := p.Derive(ctx, []byte("not an image at all"), neverSeen)

		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("exhausted tuple space surfaces after the retry budget", func(t *testing.T) {
		src := testJPEG(t, 640, 480)
		p := NewPipeline(testPipelineConfig())

		calls := 0
		alwaysSeen := func(w, h, q int) (bool, error) {
			calls++
			return true, nil
		}

		_, err := p.Derive(ctx, src, alwaysSeen)

		assert.ErrorIs(t, err, ErrExhausted)
		assert.GreaterOrEqual(t, calls, 1)
		assert.LessOrEqual(t, calls, 5)
	})

	t.Run("tuple check error aborts the derivation", func(t *testing.T) {
		src := testJPEG(t, 640, 480)
		p := NewPipeline(testPipelineConfig())

		_, err := p.Derive(ctx, src, func(w, h, q int) (bool, error) {
			return false, assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("fixed seed reproduces the same parameter draw", func(t *testing.T) {
		src := testJPEG(t, 640, 480)

		a, err := NewPipeline(testPipelineConfig()).Derive(ctx, src, neverSeen)
		assert.NoError(t, err)
		b, err := NewPipeline(testPipelineConfig()).Derive(ctx, src, neverSeen)
		assert.NoError(t, err)

		assert.Equal(t, a.Transform.CropKind, b.Transform.CropKind)
		assert.Equal(t, a.Transform.Scale, b.Transform.Scale)
		assert.Equal(t, a.Transform.Quality, b.Transform.Quality)
		assert.Equal(t, a.Width, b.Width)
		assert.Equal(t, a.Height, b.Height)
	})
}

func TestFabricateMetadata(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		meta := fabricateMetadata(r, now)

		assert.NotEmpty(t, meta.DeviceMake)
		assert.NotEmpty(t, meta.DeviceModel)

		// Capture time sits within the 30-day lookback.
		assert.False(t, meta.CapturedAt.After(now))
		assert.False(t, meta.CapturedAt.Before(now.Add(-30*24*time.Hour)))

		// Coordinates stay within jitter range of a known anchor.
		found := false
		for _, reg := range regions {
			if reg.Name == meta.Region {
				assert.LessOrEqual(t, math.Abs(meta.Latitude-reg.Lat), 0.1+1e-9)
				assert.LessOrEqual(t, math.Abs(meta.Longitude-reg.Lon), 0.1+1e-9)
				found = true
			}
		}
		assert.True(t, found, "region %q not in the anchor table", meta.Region)
	}
}

func TestCropRect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))

	tests := []struct {
		kind     model.CropKind
		wantLeft int
		wantTop  int
	}{
		{model.CropCenter, 5, 2},
		{model.CropTopLeft, 0, 0},
		{model.CropTopRight, 10, 0},
		{model.CropBottomLeft, 0, 4},
		{model.CropBottomRight, 10, 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			r := cropRect(tt.kind, img, 10, 4)
			assert.Equal(t, tt.wantLeft, r.Left)
			assert.Equal(t, tt.wantTop, r.Top)
			assert.Equal(t, 90, r.Width)
			assert.Equal(t, 76, r.Height)
		})
	}

	t.Run(string(model.CropContentAware), func(t *testing.T) {
		r := cropRect(model.CropContentAware, img, 10, 4)
		assert.Equal(t, 90, r.Width)
		assert.Equal(t, 76, r.Height)
		assert.GreaterOrEqual(t, r.Left, 0)
		assert.LessOrEqual(t, r.Left, 10)
	})
}

func TestGpsCoordinate(t *testing.T) {
	ref, parts := gpsCoordinate(51.5074, "N", "S")
	assert.Equal(t, "N", ref)
	assert.Equal(t, uint32(51), parts[0].Numerator)
	assert.Equal(t, uint32(30), parts[1].Numerator)

	ref, _ = gpsCoordinate(-0.1278, "E", "W")
	assert.Equal(t, "W", ref)
}
