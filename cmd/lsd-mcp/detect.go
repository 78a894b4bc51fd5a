package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/ironsheep/lsd-mcp/internal/detection"
	"github.com/ironsheep/lsd-mcp/internal/imaging"
	"github.com/ironsheep/lsd-mcp/internal/pipeline"
)

const (
	flagFormat          = "format"
	flagOverlay         = "overlay"
	flagStatus          = "status"
	flagRegion          = "region"
	flagROI             = "roi"
	flagScale           = "scale"
	flagSigmaScale      = "sigma-scale"
	flagNoiseFloor      = "noise-floor"
	flagMinGradient     = "min-gradient"
	flagAngleTolerance  = "angle-tolerance"
	flagEpsilon         = "epsilon"
	flagMinRegionSize   = "min-region-size"
	flagLevels          = "levels"
	flagRefinements     = "refinements-per-strategy"
	flagMergeDistance   = "merge-distance"
	flagWidthPercentile = "width-percentile"
	flagTileSize        = "tile-size"
	flagWorkers         = "workers"

	formatJSON    = "json"
	formatGeoJSON = "geojson"
)

func detectFlags() []cli.Flag {
	gradient := imaging.DefaultGradientConfig()
	det := detection.DefaultConfig()

	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagFormat,
			Usage: "output format: json or geojson",
			Value: formatJSON,
		},
		&cli.StringFlag{
			Name:  flagOverlay,
			Usage: "write the image with the segments drawn on it to `FILE` (PNG)",
		},
		&cli.StringFlag{
			Name:  flagStatus,
			Usage: "write the final pixel status map to `FILE` (PNG)",
		},
		&cli.StringFlag{
			Name:  flagRegion,
			Usage: "analyse a named region: top-left, top-right, bottom-left, bottom-right, top-half, bottom-half, left-half, right-half, center",
		},
		&cli.StringFlag{
			Name:  flagROI,
			Usage: "analyse the pixels in `X1,Y1,X2,Y2` (x2 and y2 exclusive)",
		},
		&cli.Float64Flag{Name: flagScale, Usage: "down-sampling factor in (0, 1]", Value: gradient.Scale},
		&cli.Float64Flag{Name: flagSigmaScale, Usage: "Gaussian sigma is sigma-scale/scale", Value: gradient.SigmaScale},
		&cli.Float64Flag{Name: flagNoiseFloor, Usage: "ignore gradients at or below this many grey levels", Value: gradient.NoiseFloor},
		&cli.Float64Flag{Name: flagMinGradient, Usage: "minimum gradient magnitude of a seed", Value: det.MinGradient},
		&cli.Float64Flag{
			Name:  flagAngleTolerance,
			Usage: "region growing angle tolerance in degrees",
			Value: det.AngleTolerance * 180 / math.Pi,
		},
		&cli.Float64Flag{Name: flagEpsilon, Usage: "accept segments with NFA at most epsilon", Value: det.Epsilon},
		&cli.IntFlag{Name: flagMinRegionSize, Usage: "minimum region size; 0 derives it from the image size", Value: det.MinRegionSize},
		&cli.IntFlag{Name: flagLevels, Usage: "gradient bins used to order seeds", Value: det.Levels},
		&cli.IntFlag{Name: flagRefinements, Usage: "iterations of each refinement strategy", Value: det.RefinementsPerStrategy},
		&cli.Float64Flag{
			Name:  flagMergeDistance,
			Usage: "report the two edges of a thin line as one segment when at most this many gradient pixels apart; 0 disables",
			Value: det.MergeDistance,
		},
		&cli.Float64Flag{
			Name:  flagWidthPercentile,
			Usage: "fit rectangle width to this percentile of pixel distances; 0 uses the farthest pixel",
			Value: det.WidthPercentile,
		},
		&cli.IntFlag{Name: flagTileSize, Usage: "detect independently in tiles of this many gradient pixels; 0 disables tiling"},
		&cli.IntFlag{Name: flagWorkers, Usage: "tiles processed at once; 0 uses all CPUs"},
	}
}

// detectOptions builds pipeline options from the command flags.
func detectOptions(c *cli.Context) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	opts.Gradient = imaging.GradientConfig{
		Scale:      c.Float64(flagScale),
		SigmaScale: c.Float64(flagSigmaScale),
		NoiseFloor: c.Float64(flagNoiseFloor),
	}
	opts.Detector = detection.Config{
		MinGradient:            c.Float64(flagMinGradient),
		AngleTolerance:         c.Float64(flagAngleTolerance) * math.Pi / 180,
		Epsilon:                c.Float64(flagEpsilon),
		MinRegionSize:          c.Int(flagMinRegionSize),
		Levels:                 c.Int(flagLevels),
		RefinementsPerStrategy: c.Int(flagRefinements),
		MergeDistance:          c.Float64(flagMergeDistance),
		WidthPercentile:        c.Float64(flagWidthPercentile),
	}
	opts.Tiles = detection.TileOptions{Size: c.Int(flagTileSize), Workers: c.Int(flagWorkers)}

	if roi := c.String(flagROI); roi != "" {
		var r imaging.ROI
		if _, err := fmt.Sscanf(roi, "%d,%d,%d,%d", &r.X1, &r.Y1, &r.X2, &r.Y2); err != nil {
			return opts, errors.Wrapf(err, "invalid --%s %q, want X1,Y1,X2,Y2", flagROI, roi)
		}
		opts.ROI = r
	}
	return opts, nil
}

func runDetect(c *cli.Context, logger zerolog.Logger) error {
	if c.NArg() != 1 {
		return errors.New("detect needs exactly one image path")
	}
	path := c.Args().First()

	format := c.String(flagFormat)
	if format != formatJSON && format != formatGeoJSON {
		return errors.Errorf("unknown format: %s", format)
	}

	opts, err := detectOptions(c)
	if err != nil {
		return err
	}

	p := pipeline.New(imaging.NewImageCache(), logger)
	if name := c.String(flagRegion); name != "" && opts.ROI.IsZero() {
		img, err := p.Cache().Load(path)
		if err != nil {
			return err
		}
		if opts.ROI, err = imaging.NamedRegion(img.Bounds(), name); err != nil {
			return err
		}
	}

	rep, err := p.RunFile(c.Context, path, opts)
	if err != nil {
		return err
	}

	if file := c.String(flagOverlay); file != "" {
		over, err := rep.Overlay(imaging.DefaultOverlayOptions())
		if err != nil {
			return err
		}
		if err := imgio.Save(file, over, imgio.PNGEncoder()); err != nil {
			return errors.Wrapf(err, "failed to write overlay %s", file)
		}
	}
	if file := c.String(flagStatus); file != "" {
		if err := imgio.Save(file, rep.Status.Gray(), imgio.PNGEncoder()); err != nil {
			return errors.Wrapf(err, "failed to write status map %s", file)
		}
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if format == formatGeoJSON {
		return enc.Encode(rep.FeatureCollection())
	}
	return enc.Encode(rep)
}
