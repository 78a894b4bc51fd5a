// Package pipeline runs line segment detection on images: load, crop to a
// region of interest, build the gradient field and detect, either in one
// pass or tile by tile.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ironsheep/lsd-mcp/internal/detection"
	"github.com/ironsheep/lsd-mcp/internal/imaging"
	"github.com/ironsheep/lsd-mcp/internal/logging"
)

// Options bundles every stage's configuration.
type Options struct {
	Gradient imaging.GradientConfig `json:"gradient"`
	Detector detection.Config       `json:"detector"`

	// ROI restricts detection to part of the image. Zero means the whole
	// image.
	ROI imaging.ROI `json:"roi"`

	// Tiles enables tiled detection when Tiles.Size > 0.
	Tiles detection.TileOptions `json:"tiles"`
}

func DefaultOptions() Options {
	return Options{
		Gradient: imaging.DefaultGradientConfig(),
		Detector: detection.DefaultConfig(),
	}
}

// Report is the outcome of one run. Segments are in source image pixel
// coordinates whatever the ROI and scale.
type Report struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Region imaging.ROI `json:"region"`
	Tiled  bool        `json:"tiled"`

	*detection.Result

	// Source is the whole input image and Field the gradient of the region.
	Source image.Image            `json:"-"`
	Field  *imaging.GradientField `json:"-"`
}

// Overlay draws the segments over the source image.
func (r *Report) Overlay(opts imaging.OverlayOptions) (image.Image, error) {
	return imaging.Overlay(r.Source, r.Segments, opts)
}

// Pipeline runs detections, sharing an image cache between runs.
type Pipeline struct {
	cache  *imaging.ImageCache
	base   zerolog.Logger
	logger zerolog.Logger
}

func New(cache *imaging.ImageCache, logger zerolog.Logger) *Pipeline {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	return &Pipeline{
		cache:  cache,
		base:   logger,
		logger: logging.Component(logger, "pipeline"),
	}
}

func (p *Pipeline) Cache() *imaging.ImageCache { return p.cache }

// RunFile loads path through the cache and runs on it.
func (p *Pipeline) RunFile(ctx context.Context, path string, opts Options) (*Report, error) {
	img, err := p.cache.Load(path)
	if err != nil {
		return nil, err
	}
	rep, err := p.Run(ctx, img, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to detect segments in %s", path)
	}
	return rep, nil
}

// Run detects line segments in img.
func (p *Pipeline) Run(ctx context.Context, img image.Image, opts Options) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	cropped, offset, err := imaging.Crop(img, opts.ROI)
	if err != nil {
		return nil, err
	}
	field, err := imaging.Gradient(cropped, opts.Gradient)
	if err != nil {
		return nil, err
	}

	frame := field.Frame
	frame.OriginX, frame.OriginY = float64(offset.X), float64(offset.Y)
	d, err := detection.New(opts.Detector, detection.WithFrame(frame), detection.WithLogger(p.base))
	if err != nil {
		return nil, err
	}

	var res *detection.Result
	tiled := opts.Tiles.Size > 0
	if tiled {
		res, err = detection.DetectTiled(ctx, d, field.Magnitude, field.Orientation, opts.Tiles)
	} else {
		res, err = d.Detect(field.Magnitude, field.Orientation)
	}
	if err != nil {
		return nil, err
	}

	b := cropped.Bounds()
	rep := &Report{
		Width:  b.Dx(),
		Height: b.Dy(),
		Region: imaging.ROI{X1: offset.X, Y1: offset.Y, X2: offset.X + b.Dx(), Y2: offset.Y + b.Dy()},
		Tiled:  tiled,
		Result: res,
		Source: img,
		Field:  field,
	}

	p.logger.Info().
		Int("width", rep.Width).Int("height", rep.Height).
		Float64("scale", opts.Gradient.Scale).
		Bool("tiled", tiled).
		Int("segments", res.Count()).Int("merged", res.Stats.Merged).
		Dur("elapsed", time.Since(start)).
		Msg("segments detected")

	return rep, nil
}
