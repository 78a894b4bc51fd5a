package detection

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ironsheep/lsd-mcp/internal/logging"
	"github.com/ironsheep/lsd-mcp/internal/raster"
)

var (
	// ErrEmptyImage is returned for rasters without pixels.
	ErrEmptyImage = errors.New("empty image")

	// ErrDimensionMismatch is returned when magnitude and orientation
	// rasters differ in size.
	ErrDimensionMismatch = errors.New("magnitude and orientation dimensions differ")
)

// Detector finds line segments in gradient fields. It holds no per-call
// state and is safe for concurrent use.
type Detector struct {
	cfg        Config
	validators ValidatorFactory
	refiner    Refiner
	logger     zerolog.Logger
	frame      Frame
	observer   func(Candidate)
}

// Option configures a Detector.
type Option func(*Detector)

// WithValidator replaces the binomial NFA test.
func WithValidator(f ValidatorFactory) Option {
	return func(d *Detector) { d.validators = f }
}

// WithRefiner replaces the staged refinement.
func WithRefiner(r Refiner) Option {
	return func(d *Detector) { d.refiner = r }
}

// WithLogger sets the logger. Per-call summaries are logged at debug level
// and every candidate at trace level, under component=detector.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Detector) { d.logger = logging.Component(l, "detector") }
}

// WithFrame sets the transform applied to output segments.
func WithFrame(f Frame) Option {
	return func(d *Detector) { d.frame = f.normalized() }
}

// WithObserver registers fn to receive every candidate once it reaches a
// terminal state.
func WithObserver(fn func(Candidate)) Option {
	return func(d *Detector) { d.observer = fn }
}

// New validates cfg and builds a detector.
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid detector config")
	}

	d := &Detector{
		cfg: cfg,
		validators: func(width, height int) Validator {
			return NewBinomialValidator(width, height, cfg.Epsilon)
		},
		refiner: StagedRefiner{MaxAttempts: cfg.RefinementsPerStrategy},
		logger:  zerolog.Nop(),
		frame:   IdentityFrame(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the validated parameters.
func (d *Detector) Config() Config { return d.cfg }

// Frame returns the transform applied to output segments.
func (d *Detector) Frame() Frame { return d.frame }

// Stats counts what happened to the seeds of one detection.
type Stats struct {
	Seeds         int     `json:"seeds"`
	Candidates    int     `json:"candidates"`
	Accepted      int     `json:"accepted"`
	TooSmall      int     `json:"too_small"`
	Degenerate    int     `json:"degenerate"`
	GaveUp        int     `json:"gave_up"`
	Refined       int     `json:"refined"`
	Merged        int     `json:"merged"`
	Claims        int     `json:"claims"`
	Releases      int     `json:"releases"`
	LogNT         float64 `json:"log10_tests"`
	MinRegionSize int     `json:"min_region_size"`
}

func (s *Stats) record(c *Candidate) {
	s.Candidates++
	if len(c.Strategies) > 0 {
		s.Refined++
	}
	switch {
	case c.State == StateAccepted:
		s.Accepted++
	case c.Reason == ReasonTooSmall:
		s.TooSmall++
	case c.Reason == ReasonDegenerate:
		s.Degenerate++
	case c.Reason == ReasonGaveUp:
		s.GaveUp++
	}
}

func (s *Stats) add(o Stats) {
	s.Seeds += o.Seeds
	s.Candidates += o.Candidates
	s.Accepted += o.Accepted
	s.TooSmall += o.TooSmall
	s.Degenerate += o.Degenerate
	s.GaveUp += o.GaveUp
	s.Refined += o.Refined
	s.Merged += o.Merged
	s.Claims += o.Claims
	s.Releases += o.Releases
}

// Detect runs one detection. Seeds are processed strongest first and each
// runs to acceptance or rejection before the next one starts.
func (d *Detector) Detect(mag, orient raster.Scalar) (*Result, error) {
	width, height := mag.Width(), mag.Height()
	if width != orient.Width() || height != orient.Height() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "magnitude %dx%d, orientation %dx%d",
			width, height, orient.Width(), orient.Height())
	}
	if width == 0 || height == 0 {
		return nil, errors.Wrapf(ErrEmptyImage, "%dx%d", width, height)
	}

	start := time.Now()
	logNT := LogNumberOfTests(width, height)
	ws := &Workspace{
		Magnitude:     mag,
		Orientation:   orient,
		Status:        newStatusMapFor(orient),
		Fitter:        Fitter{WidthPercentile: d.cfg.WidthPercentile},
		Validator:     d.validators(width, height),
		MinRegionSize: d.cfg.minRegionSize(logNT),
	}
	buckets := BuildSeedBuckets(mag, d.cfg.MinGradient, d.cfg.Levels)

	res := &Result{
		Segments: []Segment{},
		Status:   ws.Status,
		Stats: Stats{
			Seeds:         buckets.Len(),
			LogNT:         logNT,
			MinRegionSize: ws.MinRegionSize,
		},
	}

	var accepted []*Candidate
	buckets.Each(func(p Point) bool {
		if ws.Status.At(p.X, p.Y) != NotUsed {
			return true
		}
		c := d.process(p, ws)
		ws.Status.CommitReleases()

		res.Stats.record(c)
		if c.State == StateAccepted {
			accepted = append(accepted, c)
		}
		d.logger.Trace().
			Int("x", p.X).Int("y", p.Y).
			Int("region", c.Region.Len()).
			Stringer("state", c.State).
			Stringer("reason", c.Reason).
			Float64("log10_nfa", c.Verdict.LogNFA).
			Msg("candidate")
		if d.observer != nil {
			d.observer(*c)
		}
		return true
	})

	accepted, res.Stats.Merged = mergeLines(accepted, d.cfg.AngleTolerance, d.cfg.MergeDistance)
	for _, c := range accepted {
		res.Segments = append(res.Segments, d.frame.segment(c))
	}

	res.Stats.Claims = ws.Status.Claims()
	res.Stats.Releases = ws.Status.Releases()

	d.logger.Debug().
		Int("width", width).Int("height", height).
		Int("seeds", res.Stats.Seeds).
		Int("candidates", res.Stats.Candidates).
		Int("segments", len(res.Segments)).
		Int("merged", res.Stats.Merged).
		Dur("elapsed", time.Since(start)).
		Msg("detection complete")

	return res, nil
}

// process drives one seed through growth, fitting, validation and
// refinement.
func (d *Detector) process(seed Point, ws *Workspace) *Candidate {
	c := &Candidate{Seed: seed, State: StateUnvisited}

	c.Region = GrowRegion(seed, ws.Magnitude, ws.Orientation, ws.Status, d.cfg.AngleTolerance)
	c.State = StateGrown
	if c.Region.Len() < ws.MinRegionSize {
		c.State, c.Reason = StateRejected, ReasonTooSmall
		return c
	}

	rect, err := ws.Fitter.Fit(c.Region)
	if err != nil {
		c.State, c.Reason = StateRejected, ReasonDegenerate
		return c
	}
	c.Rect = rect
	c.State = StateFitted

	c.Verdict = ws.validate(rect)
	if !c.Verdict.Accepted {
		c.State = StateRefining
		d.refiner.Refine(c, ws)
	}

	if c.Verdict.Accepted {
		c.State = StateAccepted
	} else {
		c.State, c.Reason = StateRejected, ReasonGaveUp
	}
	return c
}
