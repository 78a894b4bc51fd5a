package detection

import (
	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// Region is a connected set of pixels with coherent orientation. The seed is
// always the first pixel.
type Region struct {
	Pixels    []Point
	Angle     float64
	Tolerance float64
}

// Seed is the pixel the region was grown from.
func (r Region) Seed() Point { return r.Pixels[0] }

func (r Region) Len() int { return len(r.Pixels) }

// GrowRegion claims seed and every 8-connected pixel reachable from it whose
// orientation stays within tolerance of the running circular mean of the
// region. The seed must be NotUsed.
func GrowRegion(seed Point, mag, orient raster.Scalar, status *StatusMap, tolerance float64) Region {
	status.Claim(seed)

	var mean circularMean
	mean.add(orient.At(seed.X, seed.Y))
	angle := orient.At(seed.X, seed.Y)

	pixels := []Point{seed}
	for i := 0; i < len(pixels); i++ {
		p := pixels[i]
		for y := p.Y - 1; y <= p.Y+1; y++ {
			for x := p.X - 1; x <= p.X+1; x++ {
				if !status.In(x, y) || status.At(x, y) != NotUsed {
					continue
				}
				if !isAligned(mag, orient, x, y, angle, tolerance) {
					continue
				}
				q := Point{X: x, Y: y}
				status.Claim(q)
				pixels = append(pixels, q)
				mean.add(orient.At(x, y))
				angle = mean.angle()
			}
		}
	}

	return Region{Pixels: pixels, Angle: angle, Tolerance: tolerance}
}
