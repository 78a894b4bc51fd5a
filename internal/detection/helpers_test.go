package detection

import (
	"math"
	"math/rand"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// bandField returns a gradient field with a single straight band of pixels
// within halfWidth of the segment (x0,y0)-(x1,y1). Band pixels have magnitude
// mag and the segment direction as orientation; everything else has zero
// magnitude.
func bandField(width, height int, x0, y0, x1, y1, halfWidth, mag float64) (*raster.Grid, *raster.Grid) {
	magnitude := raster.NewGrid(width, height)
	orientation := raster.NewGrid(width, height)

	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	ux, uy := dx/length, dy/length
	angle := math.Atan2(dy, dx)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			ex, ey := float64(x)-x0, float64(y)-y0
			l := ex*ux + ey*uy
			w := -ex*uy + ey*ux
			if l < -1e-9 || l > length+1e-9 || math.Abs(w) > halfWidth+1e-9 {
				continue
			}
			magnitude.Set(x, y, mag)
			orientation.Set(x, y, angle)
		}
	}
	return magnitude, orientation
}

// noiseField returns a field of constant magnitude and independent uniform
// orientations.
func noiseField(width, height int, mag float64, seed int64) (*raster.Grid, *raster.Grid) {
	rng := rand.New(rand.NewSource(seed))
	magnitude := raster.Fill(width, height, mag)
	orientation := raster.NewGrid(width, height)
	for i := range orientation.Data() {
		orientation.Data()[i] = rng.Float64()*2*math.Pi - math.Pi
	}
	return magnitude, orientation
}

// stubValidator returns the same verdict for every rectangle.
type stubValidator struct {
	logNFA float64
}

func (v stubValidator) Validate(r Rectangle, orient, mag raster.Scalar) Verdict {
	n, k := countAligned(r, orient, mag)
	return Verdict{N: n, K: k, LogNFA: v.logNFA, Accepted: v.logNFA <= 0}
}

func testWorkspace(mag, orient raster.Scalar, validator Validator) *Workspace {
	return &Workspace{
		Magnitude:     mag,
		Orientation:   orient,
		Status:        newStatusMapFor(orient),
		Validator:     validator,
		MinRegionSize: 2,
	}
}

func claimAll(m *StatusMap, pixels []Point) {
	for _, p := range pixels {
		m.Claim(p)
	}
}
