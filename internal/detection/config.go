package detection

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Default parameter values.
const (
	// DefaultAngleTolerance is 22.5 degrees.
	DefaultAngleTolerance = math.Pi / 8

	// DefaultEpsilon accepts rectangles expected to occur at most once in
	// a noise image of the same size.
	DefaultEpsilon = 1.0

	// DefaultLevels is the number of magnitude buckets used to order seeds.
	DefaultLevels = 1024

	// DefaultRefinementsPerStrategy bounds the iterations of each
	// refinement strategy.
	DefaultRefinementsPerStrategy = 5

	// DefaultMergeDistance is the largest distance, in gradient pixels,
	// between the two edges of a line that are reported as one segment.
	DefaultMergeDistance = 6.0

	// gradientQuantization is the assumed quantization error of grey levels.
	gradientQuantization = 2.0
)

// Config holds the detector parameters.
type Config struct {
	// MinGradient is the magnitude a pixel must exceed to become a seed.
	// Pixels below it can still join a region grown from another seed.
	MinGradient float64 `json:"min_gradient"`

	// AngleTolerance is the initial region growing and alignment tolerance,
	// in radians, in the open interval (0, pi).
	AngleTolerance float64 `json:"angle_tolerance"`

	// Epsilon is the NFA acceptance threshold.
	Epsilon float64 `json:"epsilon"`

	// MinRegionSize is the smallest region handed to the fitter. Zero
	// derives it from the number of tests: the smallest region that could
	// ever be meaningful.
	MinRegionSize int `json:"min_region_size"`

	// Levels is the number of magnitude quantization buckets.
	Levels int `json:"levels"`

	// RefinementsPerStrategy is the iteration budget of each refinement
	// strategy, not of the whole refinement. Width reduction spends it on
	// the bisection and again on each one-sided shrink, so a rejected
	// rectangle is re-validated at most 5 * RefinementsPerStrategy times.
	RefinementsPerStrategy int `json:"refinements_per_strategy"`

	// MergeDistance joins accepted rectangles that are the two opposite
	// edges of one thin line when their center lines are at most this far
	// apart. Zero reports every edge separately.
	MergeDistance float64 `json:"merge_distance"`

	// WidthPercentile selects the rectangle width policy. Zero uses the
	// full perpendicular extent of the region; a value in (0, 1] uses twice
	// that quantile of the absolute perpendicular deviations.
	WidthPercentile float64 `json:"width_percentile"`
}

// DefaultConfig returns the standard parameters. The minimum gradient is the
// magnitude below which grey-level quantization alone can move the gradient
// angle by more than the tolerance.
func DefaultConfig() Config {
	return Config{
		MinGradient:            gradientQuantization / math.Sin(DefaultAngleTolerance),
		AngleTolerance:         DefaultAngleTolerance,
		Epsilon:                DefaultEpsilon,
		Levels:                 DefaultLevels,
		RefinementsPerStrategy: DefaultRefinementsPerStrategy,
		MergeDistance:          DefaultMergeDistance,
	}
}

// Validate reports every invalid parameter at once.
func (c Config) Validate() error {
	var err error
	if math.IsNaN(c.MinGradient) || c.MinGradient < 0 {
		err = multierr.Append(err, errors.Errorf("min_gradient must be >= 0, got %v", c.MinGradient))
	}
	if !(c.AngleTolerance > 0 && c.AngleTolerance < math.Pi) {
		err = multierr.Append(err, errors.Errorf("angle_tolerance must be in (0, pi), got %v", c.AngleTolerance))
	}
	if !(c.Epsilon > 0) || math.IsInf(c.Epsilon, 1) {
		err = multierr.Append(err, errors.Errorf("epsilon must be a positive finite number, got %v", c.Epsilon))
	}
	if c.MinRegionSize < 0 {
		err = multierr.Append(err, errors.Errorf("min_region_size must be >= 0, got %d", c.MinRegionSize))
	}
	if c.Levels <= 0 {
		err = multierr.Append(err, errors.Errorf("levels must be > 0, got %d", c.Levels))
	}
	if c.RefinementsPerStrategy < 0 {
		err = multierr.Append(err, errors.Errorf("refinements_per_strategy must be >= 0, got %d", c.RefinementsPerStrategy))
	}
	if math.IsNaN(c.MergeDistance) || c.MergeDistance < 0 {
		err = multierr.Append(err, errors.Errorf("merge_distance must be >= 0, got %v", c.MergeDistance))
	}
	if math.IsNaN(c.WidthPercentile) || c.WidthPercentile < 0 || c.WidthPercentile > 1 {
		err = multierr.Append(err, errors.Errorf("width_percentile must be in [0, 1], got %v", c.WidthPercentile))
	}
	return err
}

// alignmentProbability is the chance that a noise pixel is aligned with a
// direction under the given tolerance.
func alignmentProbability(tolerance float64) float64 {
	return tolerance / math.Pi
}

// minRegionSize resolves the configured minimum region size. A region with
// fewer than -logNT/log10(p) pixels cannot reach NFA <= 1 even if every pixel
// is aligned.
func (c Config) minRegionSize(logNT float64) int {
	size := c.MinRegionSize
	if size == 0 {
		size = int(-logNT / math.Log10(alignmentProbability(c.AngleTolerance)))
	}
	if size < 2 {
		size = 2
	}
	return size
}
