package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// PixelStatus labels a pixel of the status map.
type PixelStatus uint8

const (
	NotUsed        PixelStatus = 0
	NotInitialized PixelStatus = 127
	Used           PixelStatus = 255
)

func (s PixelStatus) String() string {
	switch s {
	case NotUsed:
		return "not_used"
	case NotInitialized:
		return "not_initialized"
	case Used:
		return "used"
	default:
		return "unknown"
	}
}

// Point is an integer pixel coordinate, X is the column and Y the row.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// StatusMap records region growing progress. Pixels are claimed once; the
// only way back to NotUsed is a release during refinement, either immediate
// (the region is regrown) or queued until the current candidate completes.
type StatusMap struct {
	width    int
	height   int
	labels   []PixelStatus
	pending  []Point
	claims   int
	releases int
}

// NewStatusMap returns a map of the given size with every pixel NotUsed.
func NewStatusMap(width, height int) *StatusMap {
	return &StatusMap{
		width:  width,
		height: height,
		labels: make([]PixelStatus, width*height),
	}
}

// newStatusMapFor labels every pixel whose orientation is not finite as
// NotInitialized.
func newStatusMapFor(orient raster.Scalar) *StatusMap {
	m := NewStatusMap(orient.Width(), orient.Height())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			o := orient.At(x, y)
			if math.IsNaN(o) || math.IsInf(o, 0) {
				m.labels[y*m.width+x] = NotInitialized
			}
		}
	}
	return m
}

// Width and Height are the size of the gradient rasters the map labels.
func (m *StatusMap) Width() int  { return m.width }
func (m *StatusMap) Height() int { return m.height }

// In reports whether (x, y) is inside the map. Every other method panics
// outside it.
func (m *StatusMap) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

func (m *StatusMap) index(p Point) int {
	if !m.In(p.X, p.Y) {
		panic(fmt.Sprintf("detection: pixel (%d,%d) outside %dx%d status map", p.X, p.Y, m.width, m.height))
	}
	return p.Y*m.width + p.X
}

// At returns the label of pixel (x, y).
func (m *StatusMap) At(x, y int) PixelStatus {
	return m.labels[m.index(Point{x, y})]
}

// Claim marks a NotUsed pixel as Used.
func (m *StatusMap) Claim(p Point) {
	i := m.index(p)
	assertf(m.labels[i] == NotUsed, "status: claim of %v pixel (%d,%d)", m.labels[i], p.X, p.Y)
	m.labels[i] = Used
	m.claims++
}

// Release returns a Used pixel to NotUsed immediately.
func (m *StatusMap) Release(p Point) {
	i := m.index(p)
	assertf(m.labels[i] == Used, "status: release of %v pixel (%d,%d)", m.labels[i], p.X, p.Y)
	m.labels[i] = NotUsed
	m.releases++
}

// QueueRelease schedules a Used pixel to return to NotUsed at the next
// CommitReleases. Until then the pixel stays Used.
func (m *StatusMap) QueueRelease(p Point) {
	assertf(m.labels[m.index(p)] == Used, "status: queued release of unused pixel (%d,%d)", p.X, p.Y)
	m.pending = append(m.pending, p)
}

// CommitReleases applies the queued releases and returns how many there were.
func (m *StatusMap) CommitReleases() int {
	n := len(m.pending)
	for _, p := range m.pending {
		m.Release(p)
	}
	m.pending = m.pending[:0]
	return n
}

// Pending is the number of queued releases.
func (m *StatusMap) Pending() int {
	return len(m.pending)
}

// Claims is the number of NotUsed to Used transitions so far.
func (m *StatusMap) Claims() int { return m.claims }

// Releases is the number of Used to NotUsed transitions so far.
func (m *StatusMap) Releases() int { return m.releases }

// Count returns the number of pixels carrying label s.
func (m *StatusMap) Count(s PixelStatus) int {
	n := 0
	for _, l := range m.labels {
		if l == s {
			n++
		}
	}
	return n
}

// Gray renders the map as an 8-bit image using the label values as grey
// levels.
func (m *StatusMap) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(m.labels[y*m.width+x])})
		}
	}
	return img
}

// Paste copies the labels and counters of src into m at offset. Used to
// stitch tile results.
func (m *StatusMap) Paste(src *StatusMap, offset image.Point) {
	for y := 0; y < src.height; y++ {
		row := src.labels[y*src.width : (y+1)*src.width]
		copy(m.labels[(offset.Y+y)*m.width+offset.X:], row)
	}
	m.claims += src.claims
	m.releases += src.releases
}
