package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// rowField has a row of aligned pixels at y = row for x in [x0, x1], in a
// field whose other pixels are oriented across it.
func rowField(width, height, row, x0, x1 int) (*raster.Grid, *raster.Grid) {
	mag := raster.Fill(width, height, 10)
	orient := raster.Fill(width, height, math.Pi/2)
	for x := x0; x <= x1; x++ {
		orient.Set(x, row, 0)
	}
	return mag, orient
}

func TestStagedRefiner_ReduceWidth(t *testing.T) {
	mag, orient := rowField(64, 32, 10, 5, 44)
	ws := testWorkspace(mag, orient, NewBinomialValidator(64, 32, 1))

	region := horizontalRegion(5, 44, 10, 0)
	claimAll(ws.Status, region.Pixels)
	wide := rectangleAt(24.5, 10, 0, 39, 9)

	c := &Candidate{Seed: region.Seed(), Region: region, Rect: wide, State: StateRefining}
	c.Verdict = ws.validate(wide)
	require.False(t, c.Verdict.Accepted, "a nine pixel wide box is mostly misaligned")

	verdict := StagedRefiner{MaxAttempts: 5}.Refine(c, ws)
	assert.True(t, verdict.Accepted)
	assert.Equal(t, []Strategy{StrategyReduceWidth}, c.Strategies)
	assert.Less(t, c.Rect.Width, 9.0)
	assert.Equal(t, region.Len(), c.Region.Len(), "narrowing leaves the region alone")
	assert.Zero(t, ws.Status.Pending())
}

func TestStagedRefiner_TrimEnd(t *testing.T) {
	// Twenty aligned pixels followed by sixty misaligned ones, all in the
	// same region.
	mag, orient := rowField(100, 32, 10, 5, 24)
	ws := testWorkspace(mag, orient, NewBinomialValidator(100, 32, 1))

	region := horizontalRegion(5, 84, 10, 0)
	region.Pixels[0], region.Pixels[5] = region.Pixels[5], region.Pixels[0]
	claimAll(ws.Status, region.Pixels)

	rect, err := Fitter{}.Fit(region)
	require.NoError(t, err)
	c := &Candidate{Seed: region.Seed(), Region: region, Rect: rect, State: StateRefining}
	c.Verdict = ws.validate(rect)
	require.False(t, c.Verdict.Accepted)

	verdict := StagedRefiner{MaxAttempts: 30}.Refine(c, ws)
	require.True(t, verdict.Accepted)
	assert.Equal(t, []Strategy{StrategyReduceWidth, StrategyTrimEnd}, c.Strategies)
	assert.Equal(t, Point{10, 10}, c.Region.Seed())
	assert.Less(t, c.Region.Len(), region.Len())
	assert.Less(t, c.Rect.X2, 84.0)

	// Trimmed pixels stay claimed until the candidate is finished.
	dropped := region.Len() - c.Region.Len()
	assert.Equal(t, dropped, ws.Status.Pending())
	assert.Equal(t, Used, ws.Status.At(84, 10))

	assert.Equal(t, dropped, ws.Status.CommitReleases())
	assert.Equal(t, NotUsed, ws.Status.At(84, 10))
	assert.Equal(t, Used, ws.Status.At(10, 10))
	assert.Equal(t, c.Region.Len(), ws.Status.Count(Used))
}

// precValidator accepts only rectangles validated with a tolerance of at
// most maxPrec.
type precValidator struct {
	maxPrec float64
}

func (v precValidator) Validate(r Rectangle, orient, mag raster.Scalar) Verdict {
	n, k := countAligned(r, orient, mag)
	if r.Prec <= v.maxPrec+1e-12 {
		return Verdict{N: n, K: k, LogNFA: -1, Accepted: true}
	}
	return Verdict{N: n, K: k, LogNFA: 5}
}

// fanField orients each column a little further from zero than the one to
// its left, around column 8.
func fanField() (*raster.Grid, *raster.Grid) {
	mag := raster.Fill(16, 16, 10)
	orient := raster.NewGrid(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			orient.Set(x, y, 0.03*float64(x-8))
		}
	}
	return mag, orient
}

func TestStagedRefiner_TightenTolerance(t *testing.T) {
	mag, orient := fanField()
	ws := testWorkspace(mag, orient, precValidator{maxPrec: math.Pi / 64})

	region := GrowRegion(Point{8, 8}, mag, orient, ws.Status, math.Pi/8)
	require.Equal(t, 256, region.Len())

	c := &Candidate{Seed: Point{8, 8}, Region: region, Verdict: Verdict{LogNFA: math.Inf(1)}}
	StagedRefiner{MaxAttempts: 5}.tightenTolerance(c, ws)

	require.True(t, c.Verdict.Accepted)
	assert.InDelta(t, math.Pi/64, c.Region.Tolerance, 1e-12)
	assert.InDelta(t, math.Pi/64, c.Rect.Prec, 1e-12)
	// |0.03 (x-8)| <= pi/64 keeps columns 7..9.
	assert.Equal(t, 3*16, c.Region.Len())
	assert.Equal(t, c.Region.Len(), ws.Status.Count(Used))
	assert.Equal(t, NotUsed, ws.Status.At(0, 0), "pixels left out of the regrown region are free")
	assert.Zero(t, ws.Status.Pending())
}

func TestStagedRefiner_TightenToleranceRestoresOnGiveUp(t *testing.T) {
	mag, orient := fanField()
	ws := testWorkspace(mag, orient, stubValidator{logNFA: 5})

	region := GrowRegion(Point{8, 8}, mag, orient, ws.Status, math.Pi/8)
	claims := ws.Status.Claims()

	c := &Candidate{Seed: Point{8, 8}, Region: region, Verdict: Verdict{LogNFA: math.Inf(1)}}
	StagedRefiner{MaxAttempts: 3}.tightenTolerance(c, ws)

	assert.False(t, c.Verdict.Accepted)
	assert.Equal(t, region.Len(), c.Region.Len())
	assert.Equal(t, math.Pi/8, c.Region.Tolerance)
	assert.Equal(t, 256, ws.Status.Count(Used))
	assert.Equal(t, Used, ws.Status.At(0, 0))

	// Every regrowth released its region, and the restore released the last
	// one and claimed the original region again.
	assert.Greater(t, ws.Status.Releases(), 256)
	assert.Greater(t, ws.Status.Claims(), claims)
	assert.Equal(t, ws.Status.Claims()-ws.Status.Releases(), ws.Status.Count(Used))
}

func TestStagedRefiner_GivesUp(t *testing.T) {
	mag, orient := rowField(32, 32, 10, 5, 24)
	ws := testWorkspace(mag, orient, stubValidator{logNFA: 3})

	region := horizontalRegion(5, 24, 10, 0)
	claimAll(ws.Status, region.Pixels)
	rect, err := Fitter{}.Fit(region)
	require.NoError(t, err)

	c := &Candidate{Seed: region.Seed(), Region: region, Rect: rect}
	c.Verdict = ws.validate(rect)

	verdict := StagedRefiner{MaxAttempts: 2}.Refine(c, ws)
	assert.False(t, verdict.Accepted)
	assert.Equal(t, []Strategy{StrategyReduceWidth, StrategyTrimEnd, StrategyTightenTolerance}, c.Strategies)
	for _, p := range c.Region.Pixels {
		assert.Equal(t, Used, ws.Status.At(p.X, p.Y))
	}
}

func TestCandidate_OfferKeepsBest(t *testing.T) {
	c := &Candidate{Verdict: Verdict{LogNFA: 2}}
	assert.False(t, c.offer(Rectangle{Width: 3}, Verdict{LogNFA: 4}))
	assert.True(t, c.offer(Rectangle{Width: 2}, Verdict{LogNFA: -1, Accepted: true}))
	assert.Equal(t, 2.0, c.Rect.Width)
	assert.True(t, c.Verdict.Accepted)
}
