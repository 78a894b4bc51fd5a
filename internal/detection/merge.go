package detection

import (
	"math"
)

// minMergeOverlap is the share of the shorter rectangle that must overlap
// the other one along the axis.
const minMergeOverlap = 0.5

// mergeLines joins the two edges of thin lines. A dark line on a light
// background (or the reverse) has two edges whose level lines point in
// opposite directions, so each edge grows into its own region and is
// accepted separately. Pairs of accepted candidates that are antiparallel
// within tolerance, overlap along their axis and whose center lines are at
// most maxDist apart are replaced by a single rectangle on the line's center.
//
// Candidates are paired greedily in detection order; each joins at most one
// other. The result keeps detection order and the number of merges.
func mergeLines(accepted []*Candidate, tolerance, maxDist float64) ([]*Candidate, int) {
	if maxDist <= 0 || len(accepted) < 2 {
		return accepted, 0
	}

	used := make([]bool, len(accepted))
	out := make([]*Candidate, 0, len(accepted))
	merged := 0
	for i, a := range accepted {
		if used[i] {
			continue
		}
		for j := i + 1; j < len(accepted); j++ {
			if used[j] || !edgesOfLine(a.Rect, accepted[j].Rect, tolerance, maxDist) {
				continue
			}
			a = joinEdges(a, accepted[j])
			used[j] = true
			merged++
			break
		}
		out = append(out, a)
	}
	return out, merged
}

// edgesOfLine reports whether a and b look like the two edges of one line.
func edgesOfLine(a, b Rectangle, tolerance, maxDist float64) bool {
	if angleDiff(math.Atan2(a.Dy, a.Dx), math.Atan2(b.Dy, b.Dx)) < math.Pi-tolerance {
		return false
	}
	_, wb := a.project(b.CenterX, b.CenterY)
	_, wa := b.project(a.CenterX, a.CenterY)
	if math.Abs(wa) > maxDist || math.Abs(wb) > maxDist {
		return false
	}

	l1, _ := a.project(b.X1, b.Y1)
	l2, _ := a.project(b.X2, b.Y2)
	lo := math.Max(-a.Length/2, math.Min(l1, l2))
	hi := math.Min(a.Length/2, math.Max(l1, l2))
	return hi-lo >= minMergeOverlap*math.Min(a.Length, b.Length)
}

// joinEdges builds the candidate of the line between a and b. The direction
// is a's; the center line runs halfway between the two edges and spans both.
// The verdict is the more significant of the two.
func joinEdges(a, b *Candidate) *Candidate {
	ra, rb := a.Rect, b.Rect
	cx, cy := (ra.CenterX+rb.CenterX)/2, (ra.CenterY+rb.CenterY)/2

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range [][2]float64{{ra.X1, ra.Y1}, {ra.X2, ra.Y2}, {rb.X1, rb.Y1}, {rb.X2, rb.Y2}} {
		l := (p[0]-cx)*ra.Dx + (p[1]-cy)*ra.Dy
		lo = math.Min(lo, l)
		hi = math.Max(hi, l)
	}
	_, gap := ra.project(rb.CenterX, rb.CenterY)

	r := ra
	r.X1, r.Y1 = cx+lo*ra.Dx, cy+lo*ra.Dy
	r.X2, r.Y2 = cx+hi*ra.Dx, cy+hi*ra.Dy
	r.CenterX, r.CenterY = (r.X1+r.X2)/2, (r.Y1+r.Y2)/2
	r.Length = hi - lo
	r.Width = math.Abs(gap) + (ra.Width+rb.Width)/2

	c := *a
	c.Rect = r
	if b.Verdict.better(a.Verdict) {
		c.Verdict = b.Verdict
	}
	c.Region.Pixels = append(append(make([]Point, 0, a.Region.Len()+b.Region.Len()), a.Region.Pixels...), b.Region.Pixels...)
	return &c
}
