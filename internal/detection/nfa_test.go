package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

func TestLogNumberOfTests(t *testing.T) {
	assert.InDelta(t, 2.5*4+math.Log10(11), LogNumberOfTests(100, 100), 1e-12)
}

func TestLogNFA_TrivialCases(t *testing.T) {
	assert.Equal(t, 7.0, LogNFA(0, 0, 0.125, 7))
	assert.Equal(t, 7.0, LogNFA(50, 0, 0.125, 7))
	assert.InDelta(t, 7+10*math.Log10(0.125), LogNFA(10, 10, 0.125, 7), 1e-12)
}

func TestLogNFA_MatchesBinomialTail(t *testing.T) {
	tests := []struct {
		n, k int
		p    float64
	}{
		{100, 30, 0.125},
		{200, 60, 0.125},
		{50, 20, 0.25},
		{1000, 100, 0.0625},
		{400, 100, 0.125},
		{30, 12, 0.03125},
	}

	for _, tt := range tests {
		// Survival is 1-CDF and loses the tail below about 1e-14.
		tail := distuv.Binomial{N: float64(tt.n), P: tt.p}.Survival(float64(tt.k - 1))
		if tail < 1e-14 {
			continue
		}
		want := math.Log10(tail)
		got := LogNFA(tt.n, tt.k, tt.p, 0)
		assert.InEpsilon(t, want, got, 0.1, "n=%d k=%d p=%v", tt.n, tt.k, tt.p)
	}
}

func TestLogNFA_LargeRegions(t *testing.T) {
	got := LogNFA(100000, 90000, 0.125, 12)
	assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
	assert.Less(t, got, -1000.0)

	// Far below the mean the tail is about 1.
	assert.InDelta(t, 12, LogNFA(100000, 100, 0.125, 12), 1e-6)
}

func TestLogNFA_MoreAlignedIsMoreSignificant(t *testing.T) {
	prev := LogNFA(200, 20, 0.125, 10)
	for k := 25; k <= 200; k += 5 {
		cur := LogNFA(200, k, 0.125, 10)
		assert.Less(t, cur, prev, "k=%d", k)
		prev = cur
	}
}

func TestBinomialValidator(t *testing.T) {
	mag := raster.Fill(40, 20, 10)
	orient := raster.NewGrid(40, 20)
	v := NewBinomialValidator(40, 20, 1)

	aligned := v.Validate(rectangleAt(20, 10, 0, 30, 3), orient, mag)
	assert.Equal(t, 31*3, aligned.N)
	assert.Equal(t, aligned.N, aligned.K)
	assert.True(t, aligned.Accepted)
	assert.Less(t, aligned.NFA(), 1e-3)

	across := v.Validate(rectangleAt(20, 10, math.Pi/2, 10, 3), orient, mag)
	assert.Zero(t, across.K)
	assert.False(t, across.Accepted)
	assert.InDelta(t, v.LogNT, across.LogNFA, 1e-12)
}

func TestBinomialValidator_ClipsToImage(t *testing.T) {
	mag := raster.Fill(10, 10, 10)
	orient := raster.NewGrid(10, 10)
	v := NewBinomialValidator(10, 10, 1)

	verdict := v.Validate(rectangleAt(0, 5, 0, 10, 1), orient, mag)
	assert.Equal(t, 6, verdict.N)
}
