package imaging

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ROI is a region of interest in source pixel coordinates. (X1, Y1) is
// inclusive and (X2, Y2) exclusive.
type ROI struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r ROI) Rect() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

// IsZero reports whether r is unset, meaning the whole image.
func (r ROI) IsZero() bool { return r == ROI{} }

// Resolve checks r against bounds. A zero ROI resolves to bounds.
func (r ROI) Resolve(bounds image.Rectangle) (image.Rectangle, error) {
	if r.IsZero() {
		return bounds, nil
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return image.Rectangle{}, errors.Errorf("invalid region: x1 must be < x2, y1 must be < y2, got (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2)
	}
	if !r.Rect().In(bounds) {
		return image.Rectangle{}, errors.Errorf("region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return r.Rect(), nil
}

// NamedRegion returns the rectangle of a named part of bounds: a quadrant
// ("top-left", ...), a half ("top-half", ...), "center" for the middle 50%,
// or "full".
func NamedRegion(bounds image.Rectangle, name string) (ROI, error) {
	w, h := bounds.Dx(), bounds.Dy()
	midX, midY := w/2, h/2

	var x1, y1, x2, y2 int
	switch name {
	case "", "full":
		x1, y1, x2, y2 = 0, 0, w, h
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, h
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, h
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, h
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, h
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, h
	case "center":
		qW, qH := w/4, h/4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	default:
		return ROI{}, errors.Errorf("unknown region: %s", name)
	}

	o := bounds.Min
	return ROI{X1: o.X + x1, Y1: o.Y + y1, X2: o.X + x2, Y2: o.Y + y2}, nil
}

// Crop extracts a region of interest from img.
//
// Parameters:
//   - img: The source image; its bounds need not start at (0, 0).
//   - roi: Pixel rectangle in img coordinates, (X1, Y1) inclusive and
//     (X2, Y2) exclusive. A zero ROI selects the whole image.
//
// Returns:
//   - image.Image: The cropped pixels, with bounds starting at (0, 0).
//   - image.Point: The offset of the crop in img. Detections on the crop are
//     moved back to img coordinates by adding it.
//   - error: Non-nil if roi is inverted or reaches outside img.
func Crop(img image.Image, roi ROI) (image.Image, image.Point, error) {
	r, err := roi.Resolve(img.Bounds())
	if err != nil {
		return nil, image.Point{}, err
	}
	return imaging.Crop(img, r), r.Min.Sub(img.Bounds().Min), nil
}
