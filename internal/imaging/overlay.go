package imaging

import (
	"image"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/ironsheep/lsd-mcp/internal/detection"
)

// OverlayOptions controls Overlay.
type OverlayOptions struct {
	// Color is a "#RRGGBB" or "#RGB" hex string.
	Color string `json:"color"`

	// Opacity of the strokes, in [0, 1].
	Opacity float64 `json:"opacity"`

	// LineWidth in pixels. Zero draws each segment at its detected width.
	LineWidth float64 `json:"line_width"`

	// Labels numbers the segments in detection order.
	Labels bool `json:"labels"`

	// GridSpacing draws a coordinate grid every GridSpacing pixels when
	// positive.
	GridSpacing int `json:"grid_spacing"`
}

// DefaultOverlayOptions draws red segments at their detected width.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{Color: "#ff0000", Opacity: 0.9}
}

// Overlay draws segments on top of a copy of img; img is not modified.
//
// Parameters:
//   - img: The image the segments were detected in.
//   - segments: Segments in the pixel coordinates of img, as a pipeline
//     Report holds them. Each is stroked opts.LineWidth wide, or with its
//     detected width (at least one pixel) when opts.LineWidth is zero.
//   - opts: Color, opacity, optional index labels and coordinate grid.
//
// Returns:
//   - image.Image: The annotated copy.
//   - error: Non-nil if the color cannot be parsed or the opacity is
//     outside [0, 1].
func Overlay(img image.Image, segments []detection.Segment, opts OverlayOptions) (image.Image, error) {
	stroke, err := colorful.Hex(opts.Color)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid overlay color %q", opts.Color)
	}
	if opts.Opacity < 0 || opts.Opacity > 1 {
		return nil, errors.Errorf("opacity must be in [0, 1], got %g", opts.Opacity)
	}

	b := img.Bounds()
	dc := gg.NewContextForImage(img)

	if opts.GridSpacing > 0 {
		dc.SetRGBA(1, 1, 1, 0.35)
		dc.SetLineWidth(1)
		for x := opts.GridSpacing; x < b.Dx(); x += opts.GridSpacing {
			dc.DrawLine(float64(x)+0.5, 0, float64(x)+0.5, float64(b.Dy()))
		}
		for y := opts.GridSpacing; y < b.Dy(); y += opts.GridSpacing {
			dc.DrawLine(0, float64(y)+0.5, float64(b.Dx()), float64(y)+0.5)
		}
		dc.Stroke()
	}

	dc.SetRGBA(stroke.R, stroke.G, stroke.B, opts.Opacity)
	dc.SetLineCapRound()
	for i, s := range segments {
		width := opts.LineWidth
		if width <= 0 {
			width = max(1, s.Width)
		}
		dc.SetLineWidth(width)
		// Pixel i is centred at i+0.5 in drawing coordinates.
		dc.DrawLine(s.Start[0]+0.5, s.Start[1]+0.5, s.End[0]+0.5, s.End[1]+0.5)
		dc.Stroke()

		if opts.Labels {
			mx := (s.Start[0]+s.End[0])/2 + 0.5
			my := (s.Start[1]+s.End[1])/2 + 0.5
			dc.DrawStringAnchored(strconv.Itoa(i), mx+3, my-3, 0, 0)
		}
	}
	return dc.Image(), nil
}
