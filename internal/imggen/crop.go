package imggen

import (
	"image"
	"image/color"
	"math/rand"

	"relistapi/internal/model"
)

var cropKinds = []model.CropKind{
	model.CropCenter,
	model.CropTopLeft,
	model.CropTopRight,
	model.CropBottomLeft,
	model.CropBottomRight,
	model.CropContentAware,
}

// cropRect computes the crop window for the given placement. marginX/marginY
// are the total pixels shaved off each axis; the placement decides how the
// margin is split between the two sides.
func cropRect(kind model.CropKind, img image.Image, marginX, marginY int) model.CropRect {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	cw, ch := w-marginX, h-marginY

	var left, top int
	switch kind {
	case model.CropTopLeft:
		left, top = 0, 0
	case model.CropTopRight:
		left, top = marginX, 0
	case model.CropBottomLeft:
		left, top = 0, marginY
	case model.CropBottomRight:
		left, top = marginX, marginY
	case model.CropContentAware:
		left, top = contentAwareOrigin(img, marginX, marginY)
	default: // center
		left, top = marginX/2, marginY/2
	}

	return model.CropRect{Left: left, Top: top, Width: cw, Height: ch}
}

// contentAwareOrigin anchors the crop on the quadrant with the most luminance
// variance, so the busy part of the photo survives the shave.
func contentAwareOrigin(img image.Image, marginX, marginY int) (int, int) {
	b := img.Bounds()
	midX := b.Min.X + b.Dx()/2
	midY := b.Min.Y + b.Dy()/2

	quads := []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, midX, midY), // top-left
		image.Rect(midX, b.Min.Y, b.Max.X, midY), // top-right
		image.Rect(b.Min.X, midY, midX, b.Max.Y), // bottom-left
		image.Rect(midX, midY, b.Max.X, b.Max.Y), // bottom-right
	}

	best, bestVar := 0, -1.0
	for i, q := range quads {
		if v := lumaVariance(img, q); v > bestVar {
			best, bestVar = i, v
		}
	}

	// Keep the busy quadrant: shave from the opposite corner.
	switch best {
	case 0:
		return 0, 0
	case 1:
		return marginX, 0
	case 2:
		return 0, marginY
	default:
		return marginX, marginY
	}
}

// lumaVariance samples the region on a coarse grid; exact statistics are not
// needed, only a ranking between quadrants.
func lumaVariance(img image.Image, r image.Rectangle) float64 {
	const stride = 16

	var sum, sumSq float64
	var n int
	for y := r.Min.Y; y < r.Max.Y; y += stride {
		for x := r.Min.X; x < r.Max.X; x += stride {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			v := float64(g.Y)
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

func pickCropKind(r *rand.Rand) model.CropKind {
	return cropKinds[r.Intn(len(cropKinds))]
}
