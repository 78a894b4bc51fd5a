// Package raster provides the dense scalar rasters exchanged between the
// gradient builder and the line segment detector.
//
// Coordinates follow the image convention used across this module: (0, 0) is
// the top-left pixel, X grows rightward (columns) and Y grows downward (rows).
// Accessors do not clamp; reading outside the raster is a programming error
// and panics.
package raster

import (
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"
)

// Scalar is the read-only view of a 2D scalar raster.
type Scalar interface {
	Width() int
	Height() int
	At(x, y int) float64
}

// Grid is a dense row-major float64 raster.
type Grid struct {
	width  int
	height int
	data   []float64
}

// NewGrid allocates a zero-filled grid.
func NewGrid(width, height int) *Grid {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("raster: negative grid size %dx%d", width, height))
	}
	return &Grid{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
}

// NewGridFromSlice wraps data (row-major, len == width*height) without copying.
func NewGridFromSlice(width, height int, data []float64) (*Grid, error) {
	if width < 0 || height < 0 || len(data) != width*height {
		return nil, errors.Errorf("raster: %d values do not fill a %dx%d grid", len(data), width, height)
	}
	return &Grid{width: width, height: height, data: data}, nil
}

// Fill returns a grid of the given size with every pixel set to v.
func Fill(width, height int, v float64) *Grid {
	g := NewGrid(width, height)
	for i := range g.data {
		g.data[i] = v
	}
	return g
}

func (g *Grid) kxy(x, y int) int {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		panic(fmt.Sprintf("raster: (%d,%d) outside %dx%d grid", x, y, g.width, g.height))
	}
	return y*g.width + x
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Bounds returns the grid extent as an image rectangle anchored at (0, 0).
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.width, g.height)
}

func (g *Grid) At(x, y int) float64 {
	return g.data[g.kxy(x, y)]
}

func (g *Grid) Set(x, y int, v float64) {
	g.data[g.kxy(x, y)] = v
}

// In reports whether (x, y) lies inside the grid.
func (g *Grid) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// Data exposes the backing slice in row-major order.
func (g *Grid) Data() []float64 {
	return g.data
}

// Max returns the largest finite value, or 0 for an empty grid.
func (g *Grid) Max() float64 {
	return Max(g)
}

// Crop copies the pixels of r (clipped to the grid) into a new grid whose
// origin is r.Min.
func (g *Grid) Crop(r image.Rectangle) *Grid {
	r = r.Intersect(g.Bounds())
	out := NewGrid(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		copy(out.data[y*out.width:(y+1)*out.width], g.data[(r.Min.Y+y)*g.width+r.Min.X:])
	}
	return out
}

// Paste writes src into g with src's origin placed at offset.
func (g *Grid) Paste(src Scalar, offset image.Point) {
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			g.Set(offset.X+x, offset.Y+y, src.At(x, y))
		}
	}
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.width, g.height)
	copy(out.data, g.data)
	return out
}

// Max returns the largest finite value of s, or 0 when s is empty or holds no
// finite value.
func Max(s Scalar) float64 {
	maxVal := 0.0
	seen := false
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			v := s.At(x, y)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if !seen || v > maxVal {
				maxVal = v
				seen = true
			}
		}
	}
	return maxVal
}

// Crop copies the r region of any scalar raster into a new grid.
func Crop(s Scalar, r image.Rectangle) *Grid {
	if g, ok := s.(*Grid); ok {
		return g.Crop(r)
	}
	r = r.Intersect(image.Rect(0, 0, s.Width(), s.Height()))
	out := NewGrid(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			out.Set(x, y, s.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return out
}
