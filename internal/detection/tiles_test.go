package detection

import (
	"context"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiles(t *testing.T) {
	tiles := Tiles(130, 64, 64)
	assert.Equal(t, []image.Rectangle{
		image.Rect(0, 0, 64, 64),
		image.Rect(64, 0, 128, 64),
		image.Rect(128, 0, 130, 64),
	}, tiles)

	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 30, 20)}, Tiles(30, 20, 0))
}

func TestDetectTiled_SingleTileMatchesDetect(t *testing.T) {
	mag, orient := sceneField(21)
	d := newDetector(t)

	want, err := d.Detect(mag, orient)
	require.NoError(t, err)
	got, err := DetectTiled(context.Background(), d, mag, orient, TileOptions{})
	require.NoError(t, err)

	if diff := cmp.Diff(want.Segments, got.Segments); diff != "" {
		t.Errorf("segments differ (-detect +tiled):\n%s", diff)
	}
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.Status.Gray().Pix, got.Status.Gray().Pix)
}

func TestDetectTiled_SplitsLine(t *testing.T) {
	mag, orient := bandField(128, 64, 5, 30, 122, 30, 1, 40)

	res, err := DetectTiled(context.Background(), newDetector(t), mag, orient, TileOptions{Size: 64, Workers: 2})
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Count(), 2)

	var left, right bool
	for _, s := range res.Segments {
		assert.InDelta(t, 30, s.Start[1], 1)
		assert.InDelta(t, 30, s.End[1], 1)
		if s.Start[0] < 64 {
			left = true
		}
		if s.End[0] > 64 {
			right = true
		}
	}
	assert.True(t, left && right, "each half of the line is found in the global frame")
	assert.Equal(t, 3*118, res.Status.Count(Used))
	assert.Equal(t, res.Stats.Claims-res.Stats.Releases, res.Status.Count(Used))
}

func TestDetectTiled_Cancelled(t *testing.T) {
	mag, orient := sceneField(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DetectTiled(ctx, newDetector(t), mag, orient, TileOptions{Size: 16})
	assert.ErrorIs(t, err, context.Canceled)
}
