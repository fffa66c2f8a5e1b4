// Package imggen derives unique JPEG variants from stored listing photos.
// A derivation runs four stages: decode and strip all original metadata,
// geometric perturbation (crop, scale, dimension jitter), photometric
// perturbation (brightness, contrast), and re-encode at a varied quality with
// fabricated capture metadata. The output is visually indistinguishable from
// the source at a glance but never byte- or dimension-identical to it or to
// any prior derivative for the same account.
package imggen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"relistapi/internal/config"
	"relistapi/internal/model"
	"relistapi/internal/storage"
)

var (
	// ErrDecode means the source bytes are not a decodable image; callers skip
	// the image and continue the batch.
	ErrDecode = errors.New("image decode failed")
	// ErrExhausted means every parameter redraw produced an already-used
	// (width, height, quality) tuple.
	ErrExhausted = errors.New("image derivation attempts exhausted")
)

// Perturbation ranges. Brightness and contrast are multiplicative factors,
// scale is applied to the source dimensions, jitter is per-axis pixels.
const (
	factorMin = 0.97
	factorMax = 1.05
	scaleMin  = 0.997
	scaleMax  = 1.007
	jitterPx  = 3

	qualityMin = 88
	qualityMax = 92

	// marginMin/Max bound the crop shave as a fraction of each dimension.
	// The shave changes framing only; the resize brings the output back to
	// the target size, so the margins do not move the output dimensions.
	marginMin = 0.005
	marginMax = 0.02

	// maxDimShift caps how far each output dimension may land from the
	// source dimension, as a fraction of it.
	maxDimShift = 0.01

	minDimension = 16
)

// SeenFunc reports whether the (width, height, quality) tuple was already
// issued for this account and source image. The pipeline redraws on true.
type SeenFunc func(width, height, quality int) (bool, error)

// Pipeline derives image variants. Safe for concurrent use; the shared RNG is
// mutex-guarded and the heavy pixel work runs outside the lock.
type Pipeline struct {
	cfg config.VariationConfig
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPipeline builds a Pipeline. A zero RandSeed seeds from the clock; tests
// inject a fixed seed so the drawn parameters are reproducible.
func NewPipeline(cfg config.VariationConfig) *Pipeline {
	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Pipeline{
		cfg: cfg,
		now: time.Now,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// params is one full parameter draw; everything needed to reproduce the
// derivative except the source pixels.
type params struct {
	cropKind   model.CropKind
	marginX    int
	marginY    int
	scale      float64
	jitterW    int
	jitterH    int
	brightness float64
	contrast   float64
	quality    int
	meta       model.FabricatedMetadata
}

// Derive produces one unique variant of src. The (width, height, quality)
// tuple is checked against seen before any pixel work; colliding draws are
// redrawn up to the configured retry budget.
func (p *Pipeline) Derive(ctx context.Context, src []byte, seen SeenFunc) (*model.ImageDerivative, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	if srcW < minDimension || srcH < minDimension {
		return nil, fmt.Errorf("%w: %dx%d below minimum", ErrDecode, srcW, srcH)
	}

	for attempt := 0; attempt < p.cfg.ImageRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		draw := p.draw(srcW, srcH)
		w, h := targetDims(srcW, srcH, draw)
		if w < minDimension || h < minDimension {
			continue
		}
		// A derivative must never reproduce either source dimension exactly.
		if w == srcW || h == srcH {
			continue
		}

		used, err := seen(w, h, draw.quality)
		if err != nil {
			return nil, fmt.Errorf("tuple check: %w", err)
		}
		if used {
			continue
		}

		d, err := p.render(img, src, draw, w, h)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	return nil, ErrExhausted
}

// draw picks every random parameter under one lock.
func (p *Pipeline) draw(srcW, srcH int) params {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.rng
	between := func(lo, hi float64) float64 { return lo + r.Float64()*(hi-lo) }

	return params{
		cropKind:   pickCropKind(r),
		marginX:    int(between(marginMin, marginMax) * float64(srcW)),
		marginY:    int(between(marginMin, marginMax) * float64(srcH)),
		scale:      between(scaleMin, scaleMax),
		jitterW:    r.Intn(2*jitterPx+1) - jitterPx,
		jitterH:    r.Intn(2*jitterPx+1) - jitterPx,
		brightness: between(factorMin, factorMax),
		contrast:   between(factorMin, factorMax),
		quality:    qualityMin + r.Intn(qualityMax-qualityMin+1),
		meta:       fabricateMetadata(r, p.now()),
	}
}

// targetDims derives the output size from the source size, not the cropped
// size, so the resize compensates whatever the crop shaved off and each
// dimension stays within maxDimShift of the source.
func targetDims(srcW, srcH int, d params) (int, int) {
	w := clampDim(int(float64(srcW)*d.scale+0.5)+d.jitterW, srcW)
	h := clampDim(int(float64(srcH)*d.scale+0.5)+d.jitterH, srcH)
	return w, h
}

func clampDim(dim, src int) int {
	shift := int(float64(src) * maxDimShift)
	if shift < 1 {
		shift = 1
	}
	if dim < src-shift {
		return src - shift
	}
	if dim > src+shift {
		return src + shift
	}
	return dim
}

// render applies a committed parameter draw: crop, resize, photometric
// adjustment, JPEG encode, metadata injection.
func (p *Pipeline) render(img image.Image, src []byte, d params, w, h int) (*model.ImageDerivative, error) {
	crop := cropRect(d.cropKind, img, d.marginX, d.marginY)

	out := imaging.Crop(img, image.Rect(crop.Left, crop.Top, crop.Left+crop.Width, crop.Top+crop.Height))
	out = imaging.Resize(out, w, h, imaging.Lanczos)
	out = imaging.AdjustBrightness(out, (d.brightness-1)*100)
	out = imaging.AdjustContrast(out, (d.contrast-1)*100)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, out, imaging.JPEG, imaging.JPEGQuality(d.quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	final, err := injectExif(buf.Bytes(), d.meta)
	if err != nil {
		// The derivative is already unique without metadata; a failed
		// injection degrades to a clean JPEG rather than failing the image.
		final = buf.Bytes()
	}

	return &model.ImageDerivative{
		SourceSHA256: storage.HashBytes(src),
		Width:        w,
		Height:       h,
		Transform: model.AppliedTransform{
			Crop:       crop,
			CropKind:   d.cropKind,
			Scale:      d.scale,
			Brightness: d.brightness,
			Contrast:   d.contrast,
			Quality:    d.quality,
			Metadata:   d.meta,
		},
		Bytes:     final,
		CreatedAt: p.now(),
	}, nil
}
