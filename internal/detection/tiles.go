package detection

import (
	"context"
	"image"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// TileOptions controls DetectTiled.
type TileOptions struct {
	// Size is the tile edge in pixels. Zero or negative uses a single tile.
	Size int `json:"size"`

	// Workers bounds the tiles processed at once. Zero uses GOMAXPROCS.
	Workers int `json:"workers"`
}

// Tiles splits a width x height extent into tiles of at most size pixels,
// row by row.
func Tiles(width, height, size int) []image.Rectangle {
	if size <= 0 {
		size = max(width, height)
	}
	var tiles []image.Rectangle
	for y := 0; y < height; y += size {
		for x := 0; x < width; x += size {
			tiles = append(tiles, image.Rect(x, y, min(x+size, width), min(y+size, height)))
		}
	}
	return tiles
}

// DetectTiled runs one independent detection per tile, in parallel, and
// merges the results. Segments are expressed in the frame of the whole
// image and ordered by tile. Each tile has its own number of tests, so a
// segment crossing a tile border is found at most piecewise.
//
// An observer registered on d is called from several goroutines.
func DetectTiled(ctx context.Context, d *Detector, mag, orient raster.Scalar, opts TileOptions) (*Result, error) {
	width, height := mag.Width(), mag.Height()
	if width != orient.Width() || height != orient.Height() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "magnitude %dx%d, orientation %dx%d",
			width, height, orient.Width(), orient.Height())
	}
	if width == 0 || height == 0 {
		return nil, errors.Wrapf(ErrEmptyImage, "%dx%d", width, height)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	tiles := Tiles(width, height, opts.Size)
	results := make([]*Result, len(tiles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, tile := range tiles {
		i, tile := i, tile
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			td := *d
			td.frame = d.frame.Translate(float64(tile.Min.X), float64(tile.Min.Y))
			td.logger = d.logger.With().Int("tile", i).Logger()

			res, err := td.Detect(raster.Crop(mag, tile), raster.Crop(orient, tile))
			if err != nil {
				return errors.Wrapf(err, "tile %d %v", i, tile)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Result{
		Segments: []Segment{},
		Status:   NewStatusMap(width, height),
	}
	for i, res := range results {
		merged.Segments = append(merged.Segments, res.Segments...)
		merged.Status.Paste(res.Status, tiles[i].Min)
		merged.Stats.add(res.Stats)
	}
	merged.Stats.LogNT = results[0].Stats.LogNT
	merged.Stats.MinRegionSize = results[0].Stats.MinRegionSize

	d.logger.Debug().
		Int("tiles", len(tiles)).
		Int("workers", workers).
		Int("segments", len(merged.Segments)).
		Msg("tiled detection complete")

	return merged, nil
}
