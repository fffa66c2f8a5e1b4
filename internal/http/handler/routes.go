package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"relistapi/internal/model"
	"relistapi/internal/service"
	"relistapi/internal/textgen"
)

// processRequest is the JSON body for POST /listings/process. Images arrive
// base64-encoded; encoding/json maps them onto raw bytes.
type processRequest struct {
	AccountID   string   `json:"account_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      [][]byte `json:"images"`
}

// relistRequest addresses an original either directly by id or by lookup:
// account plus title, or account alone for its most recent active original.
type relistRequest struct {
	OriginalID string `json:"original_id"`
	AccountID  string `json:"account_id"`
	Title      string `json:"title"`
}

// bundleResponse re-shapes a variant bundle for the wire: derivative bytes
// travel base64-encoded next to their transform record.
type bundleResponse struct {
	OriginalID  string            `json:"original_id"`
	Title       model.TextVariant `json:"title"`
	Description model.TextVariant `json:"description"`
	Images      []bundleImage     `json:"images"`
	Skipped     int               `json:"skipped_images"`
}

type bundleImage struct {
	model.ImageDerivative
	Data []byte `json:"data"`
}

func toBundleResponse(b *model.VariantBundle) bundleResponse {
	images := make([]bundleImage, 0, len(b.Images))
	for _, d := range b.Images {
		images = append(images, bundleImage{ImageDerivative: d, Data: d.Bytes})
	}
	return bundleResponse{
		OriginalID:  b.OriginalID,
		Title:       b.Title,
		Description: b.Description,
		Images:      images,
		Skipped:     b.Skipped,
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: decode, delegate, translate errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, originals service.OriginalService, orch service.Orchestrator) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/listings/process", ProcessListing(orch))
	app.Post("/listings/relist", RelistListing(originals, orch))

	app.Get("/originals/:id", GetOriginal(originals))
	app.Post("/originals/:id/archive", ArchiveOriginal(originals))
	app.Get("/originals/:id/images/:sha/url", GetImageURL(originals))
	app.Get("/accounts/:accountId/originals", ListAccountOriginals(originals))
	app.Delete("/originals/purge", PurgeOriginals(originals))
}

// HealthCheck reports readiness: the DB must answer a ping.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is the bare liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ProcessListing stores the event's content (idempotently) and returns the
// first variant bundle for it.
func ProcessListing(orch service.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req processRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}

		bundle, err := orch.Process(c.UserContext(), model.ListingEvent{
			AccountID:   req.AccountID,
			Title:       req.Title,
			Description: req.Description,
			Images:      req.Images,
		})
		if err != nil {
			return writeBundleError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(toBundleResponse(bundle))
	}
}

// RelistListing produces a fresh variant bundle for an already-stored
// original, addressed by id or resolved by account title lookup.
func RelistListing(originals service.OriginalService, orch service.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req relistRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}

		originalID := req.OriginalID
		if originalID == "" {
			o, err := resolveOriginal(c.UserContext(), originals, req)
			if err != nil {
				return writeBundleError(c, err)
			}
			originalID = o.ID
		} else if _, err := uuid.Parse(originalID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid original id")
		}

		bundle, err := orch.Relist(c.UserContext(), originalID)
		if err != nil {
			return writeBundleError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(toBundleResponse(bundle))
	}
}

// resolveOriginal looks up an original by account title, or falls back to the
// account's most recent active original when no title was given.
func resolveOriginal(ctx context.Context, originals service.OriginalService, req relistRequest) (*model.Original, error) {
	if req.Title != "" {
		return originals.FindByTitle(ctx, req.AccountID, req.Title)
	}
	return originals.LatestActive(ctx, req.AccountID)
}

// GetOriginal returns a stored original by ID.
func GetOriginal(originals service.OriginalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		o, err := originals.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrOriginalNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "original not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(o)
	}
}

// ArchiveOriginal marks an original archived; it stays retrievable by ID but
// drops out of latest-active relist lookups.
func ArchiveOriginal(originals service.OriginalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := originals.Archive(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrOriginalNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "original not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"id": id, "status": model.OriginalArchived})
	}
}

// GetImageURL returns a time-limited download URL for one canonical image.
func GetImageURL(originals service.OriginalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		mins, err := strconv.Atoi(c.Query("expiry_min", "15"))
		if err != nil || mins < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "expiry_min must be a positive integer")
		}

		url, err := originals.ImageURL(c.UserContext(), id, c.Params("sha"), time.Duration(mins)*time.Minute)
		if err != nil {
			if errors.Is(err, service.ErrOriginalNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "original or image not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"url": url, "expires_in_min": mins})
	}
}

// ListAccountOriginals returns an account's originals, newest first.
func ListAccountOriginals(originals service.OriginalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := c.Params("accountId")
		items, err := originals.ListByAccount(c.UserContext(), accountID)
		if err != nil {
			if errors.Is(err, service.ErrAccountRequired) {
				return writeError(c, fiber.StatusBadRequest, "ACCOUNT_REQUIRED", "account id is required")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items, "total": len(items)})
	}
}

// PurgeOriginals removes originals older than age_days together with their
// blobs. Variation history is untouched.
func PurgeOriginals(originals service.OriginalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days, err := strconv.Atoi(c.Query("age_days", "30"))
		if err != nil || days < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_AGE", "age_days must be a positive integer")
		}

		purged, err := originals.PurgeOlderThan(c.UserContext(), time.Duration(days)*24*time.Hour)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"purged": purged})
	}
}

// writeBundleError translates orchestration failures into the error envelope.
func writeBundleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrOriginalNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "original not found")
	case errors.Is(err, service.ErrAccountRequired):
		return writeError(c, fiber.StatusBadRequest, "ACCOUNT_REQUIRED", "account id is required")
	case errors.Is(err, service.ErrTitleRequired):
		return writeError(c, fiber.StatusBadRequest, "TITLE_REQUIRED", "title is required")
	case errors.Is(err, textgen.ErrExhausted):
		return writeError(c, fiber.StatusConflict, "VARIANTS_EXHAUSTED", "no unused variant could be produced")
	case errors.Is(err, service.ErrNoUsableImages):
		return writeError(c, fiber.StatusUnprocessableEntity, "NO_USABLE_IMAGES", "no image could be derived")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
