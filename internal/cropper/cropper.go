// Package cropper computes crop rectangles for print aspect ratios.
package cropper

import (
	"errors"
	"fmt"
	"math"
)

// Bounds for decoded source bitmaps. Sources larger than
// MaxSourceDimension on either axis are downscaled before cropping to keep
// decode memory in check; MaxSafeDimension is the absolute ceiling for
// pathological inputs.
const (
	MaxSourceDimension = 6000
	MaxSafeDimension   = 8000
)

// ErrInvalidGeometry is returned for degenerate crop geometry, such as a
// zero-area source.
var ErrInvalidGeometry = errors.New("invalid crop geometry")

// Rect is a crop rectangle in source pixel coordinates.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Right returns the exclusive right edge of the rectangle.
func (r Rect) Right() int { return r.Left + r.Width }

// Bottom returns the exclusive bottom edge of the rectangle.
func (r Rect) Bottom() int { return r.Top + r.Height }

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.Width, r.Height, r.Left, r.Top)
}

// ComputeCrop returns the largest rectangle with the aspect ratio
// targetWidth:targetHeight that fits inside a sourceWidth x sourceHeight
// image, placed centered and then shifted by the given offsets.
//
// Offsets are percentages in [-100, 100] of the crop rectangle's own width
// and height. An offset that would push the rectangle past an edge
// saturates at that edge instead of failing, so a slider dragged to the
// extreme simply pins the crop against the border.
func ComputeCrop(sourceWidth, sourceHeight, targetWidth, targetHeight int, xOffsetPct, yOffsetPct float64) (Rect, error) {
	if sourceWidth <= 0 || sourceHeight <= 0 {
		return Rect{}, fmt.Errorf("%w: source %dx%d", ErrInvalidGeometry, sourceWidth, sourceHeight)
	}
	if targetWidth <= 0 || targetHeight <= 0 {
		return Rect{}, fmt.Errorf("%w: target %dx%d", ErrInvalidGeometry, targetWidth, targetHeight)
	}

	targetRatio := float64(targetWidth) / float64(targetHeight)
	sourceRatio := float64(sourceWidth) / float64(sourceHeight)

	var cropWidth, cropHeight int
	if sourceRatio > targetRatio {
		// Source is relatively wider: keep full height, trim the sides.
		cropHeight = sourceHeight
		cropWidth = int(math.Round(float64(cropHeight) * targetRatio))
	} else {
		// Source is relatively taller: keep full width, trim top and bottom.
		cropWidth = sourceWidth
		cropHeight = int(math.Round(float64(cropWidth) / targetRatio))
	}

	xPixels := int(math.Round(xOffsetPct / 100 * float64(cropWidth)))
	yPixels := int(math.Round(yOffsetPct / 100 * float64(cropHeight)))

	left := (sourceWidth-cropWidth)/2 + xPixels
	top := (sourceHeight-cropHeight)/2 + yPixels

	left = clamp(left, 0, sourceWidth-cropWidth)
	top = clamp(top, 0, sourceHeight-cropHeight)

	r := Rect{Left: left, Top: top, Width: cropWidth, Height: cropHeight}
	if r.Width <= 0 || r.Height <= 0 ||
		r.Left < 0 || r.Top < 0 ||
		r.Right() > sourceWidth || r.Bottom() > sourceHeight {
		return Rect{}, fmt.Errorf("%w: rect %v outside source %dx%d", ErrInvalidGeometry, r, sourceWidth, sourceHeight)
	}
	return r, nil
}

// BoundedSize applies the downscale guard to source dimensions: anything
// beyond MaxSafeDimension scales down to fit it, anything beyond only
// MaxSourceDimension scales down to fit that. Dimensions already inside
// the bounds are returned unchanged.
func BoundedSize(width, height int) (int, int) {
	switch {
	case width > MaxSafeDimension || height > MaxSafeDimension:
		return FitWithin(width, height, MaxSafeDimension)
	case width > MaxSourceDimension || height > MaxSourceDimension:
		return FitWithin(width, height, MaxSourceDimension)
	}
	return width, height
}

// FitWithin scales width x height down proportionally so that the longer
// side equals bound. Dimensions already within the bound are returned
// unchanged; this never scales up. The short side is floored, but never
// below one pixel.
func FitWithin(width, height, bound int) (int, int) {
	if width <= bound && height <= bound {
		return width, height
	}
	if width > height {
		return bound, max(1, height*bound/width)
	}
	return max(1, width*bound/height), bound
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
