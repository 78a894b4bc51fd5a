package detection

import (
	"math"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// angleDiffSigned returns a-b wrapped to [-pi, pi].
func angleDiffSigned(a, b float64) float64 {
	return math.Remainder(a-b, 2*math.Pi)
}

// angleDiff is the circular distance between two angles, in [0, pi].
func angleDiff(a, b float64) float64 {
	return math.Abs(angleDiffSigned(a, b))
}

// normalizeAngle wraps a into (-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Remainder(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// orientationDefined reports whether the pixel carries a usable orientation:
// finite angle and a non-zero gradient.
func orientationDefined(mag, orient raster.Scalar, x, y int) bool {
	o := orient.At(x, y)
	if math.IsNaN(o) || math.IsInf(o, 0) {
		return false
	}
	return mag.At(x, y) > 0
}

// isAligned reports whether the pixel orientation is within prec of theta.
// Pixels without a defined orientation are never aligned.
func isAligned(mag, orient raster.Scalar, x, y int, theta, prec float64) bool {
	if !orientationDefined(mag, orient, x, y) {
		return false
	}
	return angleDiff(orient.At(x, y), theta) <= prec
}

// circularMean accumulates unit vectors to average angles across the
// wraparound at +-pi.
type circularMean struct {
	sumCos float64
	sumSin float64
}

func (m *circularMean) add(a float64) {
	m.sumCos += math.Cos(a)
	m.sumSin += math.Sin(a)
}

func (m circularMean) angle() float64 {
	return math.Atan2(m.sumSin, m.sumCos)
}
