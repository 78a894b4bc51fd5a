package detection

import (
	"math"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// CandidateState is the position of a seed in the detection state machine.
type CandidateState int

const (
	StateUnvisited CandidateState = iota
	StateGrown
	StateFitted
	StateRefining
	StateAccepted
	StateRejected
)

func (s CandidateState) String() string {
	switch s {
	case StateUnvisited:
		return "unvisited"
	case StateGrown:
		return "grown"
	case StateFitted:
		return "fitted"
	case StateRefining:
		return "refining"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RejectReason explains a rejected candidate.
type RejectReason int

const (
	ReasonNone RejectReason = iota
	ReasonTooSmall
	ReasonDegenerate
	ReasonGaveUp
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTooSmall:
		return "too_small"
	case ReasonDegenerate:
		return "degenerate"
	case ReasonGaveUp:
		return "gave_up"
	default:
		return "unknown"
	}
}

// Strategy names a refinement transformation.
type Strategy string

const (
	StrategyReduceWidth      Strategy = "reduce_width"
	StrategyTrimEnd          Strategy = "trim_end"
	StrategyTightenTolerance Strategy = "tighten_tolerance"
)

// Candidate is the state of one seed while it is processed. Rect and Verdict
// always hold the most significant rectangle seen so far.
type Candidate struct {
	Seed       Point
	Region     Region
	Rect       Rectangle
	Verdict    Verdict
	State      CandidateState
	Reason     RejectReason
	Strategies []Strategy
}

// offer replaces the current rectangle when v is more significant.
func (c *Candidate) offer(r Rectangle, v Verdict) bool {
	if !v.better(c.Verdict) {
		return false
	}
	c.Rect = r
	c.Verdict = v
	return true
}

// Workspace is what a refiner may read and mutate while refining one
// candidate.
type Workspace struct {
	Magnitude     raster.Scalar
	Orientation   raster.Scalar
	Status        *StatusMap
	Fitter        Fitter
	Validator     Validator
	MinRegionSize int
}

func (w *Workspace) validate(r Rectangle) Verdict {
	return w.Validator.Validate(r, w.Orientation, w.Magnitude)
}

// Refiner tries to turn a rejected candidate into an accepted one. It
// updates the candidate in place and returns its final verdict.
type Refiner interface {
	Refine(c *Candidate, w *Workspace) Verdict
}

// StagedRefiner narrows the rectangle, then trims its weakest end, then
// regrows the region under a tighter tolerance, stopping at the first
// accepted rectangle.
type StagedRefiner struct {
	// MaxAttempts bounds the iterations of each strategy.
	MaxAttempts int
}

const (
	// widthStep is the width removed by each one-sided shrink.
	widthStep = 0.5
	// minWidth is the narrowest rectangle tried.
	minWidth = 0.5
	// endSliceRatio is the share of the length examined at each end.
	endSliceRatio = 0.1
)

func (s StagedRefiner) Refine(c *Candidate, w *Workspace) Verdict {
	steps := []struct {
		name Strategy
		run  func(*Candidate, *Workspace)
	}{
		{StrategyReduceWidth, s.reduceWidth},
		{StrategyTrimEnd, s.trimEnd},
		{StrategyTightenTolerance, s.tightenTolerance},
	}
	for _, step := range steps {
		if c.Verdict.Accepted {
			break
		}
		c.Strategies = append(c.Strategies, step.name)
		step.run(c, w)
	}
	return c.Verdict
}

// reduceWidth bisects the width between one pixel and the fitted width
// towards the narrowest improving value, then shrinks each long side in
// turn. The region is not touched.
func (s StagedRefiner) reduceWidth(c *Candidate, w *Workspace) {
	base := c.Rect
	lo, hi := 1.0, base.Width
	for i := 0; i < s.MaxAttempts && hi-lo > widthStep/2; i++ {
		mid := (lo + hi) / 2
		r := base
		r.Width = mid
		if c.offer(r, w.validate(r)) {
			hi = mid
		} else {
			lo = mid
		}
	}

	for _, side := range []float64{1, -1} {
		if c.Verdict.Accepted {
			return
		}
		r := c.Rect
		for i := 0; i < s.MaxAttempts && r.Width-widthStep >= minWidth; i++ {
			r = r.shifted(side*widthStep/2, r.Width-widthStep)
			c.offer(r, w.validate(r))
		}
	}
}

// trimEnd repeatedly cuts a slice off the end of the rectangle whose aligned
// pixel density is lower. Region pixels in the slice leave the region and
// are queued for release; the seed is never cut.
func (s StagedRefiner) trimEnd(c *Candidate, w *Workspace) {
	for i := 0; i < s.MaxAttempts && !c.Verdict.Accepted; i++ {
		r, err := w.Fitter.Fit(c.Region)
		if err != nil {
			return
		}
		thickness := math.Max(1, endSliceRatio*r.Length)
		half := r.Length / 2
		seedL, _ := r.project(float64(c.Seed.X), float64(c.Seed.Y))

		headDensity := s.sliceDensity(r, w, -half, -half+thickness)
		tailDensity := s.sliceDensity(r, w, half-thickness, half)

		headCuttable := seedL > -half+thickness
		tailCuttable := seedL < half-thickness

		var keep func(l float64) bool
		switch {
		case headCuttable && (!tailCuttable || headDensity <= tailDensity):
			cut := -half + thickness
			keep = func(l float64) bool { return l > cut }
		case tailCuttable:
			cut := half - thickness
			keep = func(l float64) bool { return l < cut }
		default:
			return
		}

		kept := make([]Point, 0, len(c.Region.Pixels))
		var dropped []Point
		for j, p := range c.Region.Pixels {
			l, _ := r.project(float64(p.X), float64(p.Y))
			if j == 0 || keep(l) {
				kept = append(kept, p)
			} else {
				dropped = append(dropped, p)
			}
		}
		if len(dropped) == 0 || len(kept) < w.MinRegionSize {
			return
		}
		for _, p := range dropped {
			w.Status.QueueRelease(p)
		}
		c.Region.Pixels = kept

		trimmed, err := w.Fitter.Fit(c.Region)
		if err != nil {
			return
		}
		c.offer(trimmed, w.validate(trimmed))
	}
}

// sliceDensity is the fraction of aligned pixels among the image pixels of
// r whose axial coordinate lies in [from, to].
func (s StagedRefiner) sliceDensity(r Rectangle, w *Workspace, from, to float64) float64 {
	var n, k int
	forEachPixel(r, func(x, y int) {
		if !w.Status.In(x, y) {
			return
		}
		l, _ := r.project(float64(x), float64(y))
		if l < from || l > to {
			return
		}
		n++
		if isAligned(w.Magnitude, w.Orientation, x, y, r.Theta, r.Prec) {
			k++
		}
	})
	if n == 0 {
		return 0
	}
	return float64(k) / float64(n)
}

// tightenTolerance halves the growth tolerance, releases the region and
// regrows it from the same seed. The release is immediate so the regrowth
// can revisit the pixels; this is the only transition back to NotUsed that
// bypasses the release queue. When no regrown rectangle is accepted the
// region from before the first regrowth is claimed back, so a rejected
// candidate always ends with its pixels used.
func (s StagedRefiner) tightenTolerance(c *Candidate, w *Workspace) {
	orig := c.Region
	regrown := false
	for i := 0; i < s.MaxAttempts && !c.Verdict.Accepted; i++ {
		tolerance := c.Region.Tolerance / 2
		for _, p := range c.Region.Pixels {
			w.Status.Release(p)
		}
		c.Region = GrowRegion(c.Seed, w.Magnitude, w.Orientation, w.Status, tolerance)
		regrown = true
		if c.Region.Len() < w.MinRegionSize {
			break
		}
		r, err := w.Fitter.Fit(c.Region)
		if err != nil {
			break
		}
		c.offer(r, w.validate(r))
	}

	if regrown && !c.Verdict.Accepted {
		for _, p := range c.Region.Pixels {
			w.Status.Release(p)
		}
		for _, p := range orig.Pixels {
			w.Status.Claim(p)
		}
		c.Region = orig
	}
}
