package detection

import (
	"math"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// precisionSteps is the number of tolerance values a rectangle can be
// tested with: the initial one and ten successive halvings.
const precisionSteps = 11

// tailTolerance is the relative error accepted on log10(NFA) when the
// binomial tail is truncated.
const tailTolerance = 0.1

// Verdict is the outcome of validating a rectangle.
type Verdict struct {
	// N is the number of pixels inside the rectangle, K how many of them
	// are aligned.
	N        int     `json:"n"`
	K        int     `json:"k"`
	LogNFA   float64 `json:"log10_nfa"`
	Accepted bool    `json:"accepted"`
}

func (v Verdict) NFA() float64 {
	return math.Pow(10, v.LogNFA)
}

// better reports whether v is more significant than o.
func (v Verdict) better(o Verdict) bool {
	return v.LogNFA < o.LogNFA
}

// Validator decides whether a rectangle is meaningful.
type Validator interface {
	Validate(r Rectangle, orient, mag raster.Scalar) Verdict
}

// ValidatorFactory builds the validator of one detection from the image
// size.
type ValidatorFactory func(width, height int) Validator

// BinomialValidator accepts rectangles whose number of false alarms under
// the independent uniform orientation model is at most 10^LogEpsilon.
type BinomialValidator struct {
	LogNT      float64
	LogEpsilon float64
}

// NewBinomialValidator returns the validator for an image of the given size.
func NewBinomialValidator(width, height int, epsilon float64) BinomialValidator {
	return BinomialValidator{
		LogNT:      LogNumberOfTests(width, height),
		LogEpsilon: math.Log10(epsilon),
	}
}

// LogNumberOfTests is log10 of the number of rectangles that can be tested
// in a width x height image: (WH)^(5/2) positions, orientations and widths
// times the precision steps.
func LogNumberOfTests(width, height int) float64 {
	return 2.5*(math.Log10(float64(width))+math.Log10(float64(height))) + math.Log10(precisionSteps)
}

func (v BinomialValidator) Validate(r Rectangle, orient, mag raster.Scalar) Verdict {
	n, k := countAligned(r, orient, mag)
	logNFA := LogNFA(n, k, r.P, v.LogNT)
	return Verdict{
		N:        n,
		K:        k,
		LogNFA:   logNFA,
		Accepted: logNFA <= v.LogEpsilon,
	}
}

// countAligned returns the number of image pixels inside r and how many of
// them are aligned with it.
func countAligned(r Rectangle, orient, mag raster.Scalar) (n, k int) {
	w, h := orient.Width(), orient.Height()
	forEachPixel(r, func(x, y int) {
		if x < 0 || y < 0 || x >= w || y >= h {
			return
		}
		n++
		if isAligned(mag, orient, x, y, r.Theta, r.Prec) {
			k++
		}
	})
	return n, k
}

// LogNFA returns log10(NT * P(X >= k)) with X ~ Binomial(n, p) and
// log10(NT) = logNT.
//
// The first term of the tail is evaluated through log-gamma; the following
// terms are accumulated relative to it with the ratio
// term(i)/term(i-1) = (n-i+1)/i * p/(1-p), and the sum is cut once the
// remaining terms provably change log10(NFA) by less than 10%.
func LogNFA(n, k int, p, logNT float64) float64 {
	assertf(n >= 0 && k >= 0 && k <= n && p > 0 && p < 1, "nfa: invalid n=%d k=%d p=%v", n, k, p)

	if n == 0 || k == 0 {
		return logNT
	}
	if n == k {
		return logNT + float64(n)*math.Log10(p)
	}

	lgN, _ := math.Lgamma(float64(n) + 1)
	lgK, _ := math.Lgamma(float64(k) + 1)
	lgNK, _ := math.Lgamma(float64(n-k) + 1)
	logFirst := (lgN - lgK - lgNK + float64(k)*math.Log(p) + float64(n-k)*math.Log1p(-p)) / math.Ln10

	pTerm := p / (1 - p)
	sum, term := 1.0, 1.0
	for i := k + 1; i <= n; i++ {
		binTerm := float64(n-i+1) / float64(i)
		mult := binTerm * pTerm
		term *= mult
		sum += term

		// Keep the relative sum representable.
		if sum > 1e200 {
			logFirst += math.Log10(sum)
			term /= sum
			sum = 1
		}

		if binTerm < 1 && mult < 1 {
			// The ratios only decrease from here, so the rest of the tail
			// is bounded by a geometric series.
			bound := term * ((1-math.Pow(mult, float64(n-i+1)))/(1-mult) - 1)
			logNFA := logNT + logFirst + math.Log10(sum)
			if bound < tailTolerance*math.Abs(logNFA)*sum {
				break
			}
		}
	}
	return logNT + logFirst + math.Log10(sum)
}
