package detection

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerate is returned for regions without spatial extent.
var ErrDegenerate = errors.New("degenerate region")

// isotropyTolerance is the relative eigenvalue gap below which the region has
// no dominant axis and the mean orientation is used instead.
const isotropyTolerance = 1e-9

// Rectangle is a line segment with a width. (X1, Y1) and (X2, Y2) are the
// ends of the center line, (Dx, Dy) the unit vector from the first to the
// second. Prec is the alignment tolerance and P = Prec/pi.
type Rectangle struct {
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Theta   float64 `json:"theta"`
	Dx      float64 `json:"dx"`
	Dy      float64 `json:"dy"`
	Length  float64 `json:"length"`
	Width   float64 `json:"width"`
	Prec    float64 `json:"prec"`
	P       float64 `json:"p"`
}

func (r Rectangle) HalfWidth() float64 { return r.Width / 2 }

// project returns the coordinates of (x, y) along the axis and across it,
// relative to the rectangle center.
func (r Rectangle) project(x, y float64) (l, w float64) {
	ex, ey := x-r.CenterX, y-r.CenterY
	return ex*r.Dx + ey*r.Dy, -ex*r.Dy + ey*r.Dx
}

// shifted moves the center line across the axis by d and narrows the
// rectangle to width.
func (r Rectangle) shifted(d, width float64) Rectangle {
	nx, ny := -r.Dy*d, r.Dx*d
	r.X1 += nx
	r.Y1 += ny
	r.X2 += nx
	r.Y2 += ny
	r.CenterX += nx
	r.CenterY += ny
	r.Width = width
	return r
}

// withPrec returns r validated against a different tolerance.
func (r Rectangle) withPrec(prec float64) Rectangle {
	r.Prec = prec
	r.P = alignmentProbability(prec)
	return r
}

// Fitter converts regions into rectangles.
type Fitter struct {
	// WidthPercentile, when in (0, 1], replaces the full perpendicular
	// extent with twice that quantile of the absolute deviations.
	WidthPercentile float64
}

// Fit computes the rectangle of a region from the second moments of its
// pixel coordinates.
func (f Fitter) Fit(region Region) (Rectangle, error) {
	n := len(region.Pixels)
	if n < 2 {
		return Rectangle{}, errors.Wrapf(ErrDegenerate, "region of %d pixel(s)", n)
	}

	var cx, cy float64
	for _, p := range region.Pixels {
		cx += float64(p.X)
		cy += float64(p.Y)
	}
	cx /= float64(n)
	cy /= float64(n)

	var ixx, iyy, ixy float64
	for _, p := range region.Pixels {
		ex, ey := float64(p.X)-cx, float64(p.Y)-cy
		ixx += ex * ex
		iyy += ey * ey
		ixy += ex * ey
	}
	ixx /= float64(n)
	iyy /= float64(n)
	ixy /= float64(n)
	if ixx+iyy == 0 {
		return Rectangle{}, errors.Wrap(ErrDegenerate, "null covariance")
	}

	theta, err := principalAxis(ixx, iyy, ixy, region.Angle)
	if err != nil {
		return Rectangle{}, err
	}
	// Second moments only give the axis modulo pi.
	if angleDiff(theta, region.Angle) > math.Pi/2 {
		theta = normalizeAngle(theta + math.Pi)
	}

	r := Rectangle{
		CenterX: cx,
		CenterY: cy,
		Theta:   theta,
		Dx:      math.Cos(theta),
		Dy:      math.Sin(theta),
	}

	lmin, lmax := math.Inf(1), math.Inf(-1)
	wmin, wmax := math.Inf(1), math.Inf(-1)
	dev := make([]float64, 0, n)
	for _, p := range region.Pixels {
		l, w := r.project(float64(p.X), float64(p.Y))
		lmin, lmax = math.Min(lmin, l), math.Max(lmax, l)
		wmin, wmax = math.Min(wmin, w), math.Max(wmax, w)
		dev = append(dev, math.Abs(w))
	}
	if lmax-lmin <= 0 {
		return Rectangle{}, errors.Wrap(ErrDegenerate, "zero length")
	}

	var width, shift float64
	if f.WidthPercentile > 0 {
		sort.Float64s(dev)
		width = 2 * stat.Quantile(f.WidthPercentile, stat.Empirical, dev, nil)
	} else {
		width = wmax - wmin
		shift = (wmax + wmin) / 2
	}
	// A sharp axis-aligned step still spans one pixel.
	if width < 1 {
		width = 1
	}

	r.CenterX += -r.Dy * shift
	r.CenterY += r.Dx * shift
	r.X1 = r.CenterX + lmin*r.Dx
	r.Y1 = r.CenterY + lmin*r.Dy
	r.X2 = r.CenterX + lmax*r.Dx
	r.Y2 = r.CenterY + lmax*r.Dy
	r.CenterX += (lmin + lmax) / 2 * r.Dx
	r.CenterY += (lmin + lmax) / 2 * r.Dy
	r.Length = lmax - lmin
	r.Width = width

	return r.withPrec(region.Tolerance), nil
}

// principalAxis returns the direction of the eigenvector of the largest
// eigenvalue of the covariance matrix. An isotropic matrix has no axis and
// fallback is returned.
func principalAxis(ixx, iyy, ixy, fallback float64) (float64, error) {
	cov := mat.NewSymDense(2, []float64{ixx, ixy, ixy, iyy})

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return 0, errors.Wrap(ErrDegenerate, "eigen decomposition failed")
	}
	values := eig.Values(nil)
	if values[1]-values[0] <= isotropyTolerance*math.Abs(values[1]) {
		return fallback, nil
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	return math.Atan2(vectors.At(1, 1), vectors.At(0, 1)), nil
}
