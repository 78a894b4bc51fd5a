package detection

import "math"

// forEachPixel calls fn for every integer pixel inside r, column by column
// left to right and by increasing y inside a column. Pixels outside the
// image are not filtered here.
func forEachPixel(r Rectangle, fn func(x, y int)) {
	hw := r.HalfWidth()
	cx := [4]float64{
		r.X1 - r.Dy*hw,
		r.X2 - r.Dy*hw,
		r.X2 + r.Dy*hw,
		r.X1 + r.Dy*hw,
	}
	cy := [4]float64{
		r.Y1 + r.Dx*hw,
		r.Y2 + r.Dx*hw,
		r.Y2 - r.Dx*hw,
		r.Y1 - r.Dx*hw,
	}

	// Rotate the corners so that the first has the smallest x; on a
	// vertical side the corner with the largest y comes first.
	var offset int
	switch {
	case r.X1 < r.X2 && r.Y1 <= r.Y2:
		offset = 0
	case r.X1 >= r.X2 && r.Y1 < r.Y2:
		offset = 1
	case r.X1 > r.X2 && r.Y1 >= r.Y2:
		offset = 2
	default:
		offset = 3
	}
	var vx, vy [4]float64
	for i := 0; i < 4; i++ {
		vx[i] = cx[(offset+i)%4]
		vy[i] = cy[(offset+i)%4]
	}

	for x := int(math.Ceil(vx[0])); float64(x) <= vx[2]; x++ {
		fx := float64(x)

		var ys, ye float64
		if fx < vx[3] {
			ys = interpLow(fx, vx[0], vy[0], vx[3], vy[3])
		} else {
			ys = interpLow(fx, vx[3], vy[3], vx[2], vy[2])
		}
		if fx < vx[1] {
			ye = interpHigh(fx, vx[0], vy[0], vx[1], vy[1])
		} else {
			ye = interpHigh(fx, vx[1], vy[1], vx[2], vy[2])
		}

		for y := int(math.Ceil(ys)); float64(y) <= ye; y++ {
			fn(x, y)
		}
	}
}

// interpLow interpolates the y of x on the segment (x1,y1)-(x2,y2), taking
// the smaller end on a vertical segment.
func interpLow(x, x1, y1, x2, y2 float64) float64 {
	if nearlyEqual(x1, x2) {
		return math.Min(y1, y2)
	}
	return y1 + (x-x1)*(y2-y1)/(x2-x1)
}

// interpHigh is interpLow taking the larger end on a vertical segment.
func interpHigh(x, x1, y1, x2, y2 float64) float64 {
	if nearlyEqual(x1, x2) {
		return math.Max(y1, y2)
	}
	return y1 + (x-x1)*(y2-y1)/(x2-x1)
}

func nearlyEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < 1 {
		scale = 1
	}
	return diff/scale <= 100*0x1p-52
}
