package detection

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Frame maps detector pixel coordinates to output coordinates:
//
//	out = origin + spacing * (p + offset) / scale
//
// Offset accounts for the half pixel shift of a 2x2 gradient and Scale for a
// down-sampled gradient field.
type Frame struct {
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
	SpacingX float64 `json:"spacing_x"`
	SpacingY float64 `json:"spacing_y"`
	Offset   float64 `json:"offset"`
	Scale    float64 `json:"scale"`
}

// IdentityFrame keeps detector pixel coordinates.
func IdentityFrame() Frame {
	return Frame{SpacingX: 1, SpacingY: 1, Scale: 1}
}

// normalized replaces zero spacing and scale with 1.
func (f Frame) normalized() Frame {
	if f.SpacingX == 0 {
		f.SpacingX = 1
	}
	if f.SpacingY == 0 {
		f.SpacingY = 1
	}
	if f.Scale == 0 {
		f.Scale = 1
	}
	return f
}

// Apply transforms a detector pixel coordinate.
func (f Frame) Apply(x, y float64) orb.Point {
	f = f.normalized()
	return orb.Point{
		f.OriginX + f.SpacingX*(x+f.Offset)/f.Scale,
		f.OriginY + f.SpacingY*(y+f.Offset)/f.Scale,
	}
}

// Distance converts a detector length to output units, using the geometric
// mean spacing for anisotropic frames.
func (f Frame) Distance(d float64) float64 {
	f = f.normalized()
	return d * math.Sqrt(math.Abs(f.SpacingX*f.SpacingY)) / f.Scale
}

// Translate returns f with the origin moved by (dx, dy) detector pixels.
func (f Frame) Translate(dx, dy float64) Frame {
	f = f.normalized()
	f.OriginX += f.SpacingX * dx / f.Scale
	f.OriginY += f.SpacingY * dy / f.Scale
	return f
}

// Segment is an accepted rectangle in output coordinates.
type Segment struct {
	Start         orb.Point `json:"start"`
	End           orb.Point `json:"end"`
	Width         float64   `json:"width"`
	Length        float64   `json:"length"`
	Angle         float64   `json:"angle"`
	AngleDegrees  float64   `json:"angle_degrees"`
	NFA           float64   `json:"nfa"`
	LogNFA        float64   `json:"log10_nfa"`
	AlignedPixels int       `json:"aligned_pixels"`
	TotalPixels   int       `json:"total_pixels"`
	RegionSize    int       `json:"region_size"`
	Precision     float64   `json:"precision"`
}

func (f Frame) segment(c *Candidate) Segment {
	start := f.Apply(c.Rect.X1, c.Rect.Y1)
	end := f.Apply(c.Rect.X2, c.Rect.Y2)
	angle := math.Atan2(end[1]-start[1], end[0]-start[0])
	return Segment{
		Start:         start,
		End:           end,
		Width:         f.Distance(c.Rect.Width),
		Length:        planar.Distance(start, end),
		Angle:         angle,
		AngleDegrees:  angle * 180 / math.Pi,
		NFA:           c.Verdict.NFA(),
		LogNFA:        c.Verdict.LogNFA,
		AlignedPixels: c.Verdict.K,
		TotalPixels:   c.Verdict.N,
		RegionSize:    c.Region.Len(),
		Precision:     c.Rect.Prec,
	}
}

// LineString returns the segment as a two point line.
func (s Segment) LineString() orb.LineString {
	return orb.LineString{s.Start, s.End}
}

// Result is the output of one detection.
type Result struct {
	Segments []Segment  `json:"segments"`
	Status   *StatusMap `json:"-"`
	Stats    Stats      `json:"stats"`
}

func (r *Result) Count() int { return len(r.Segments) }

// MultiLineString collects the segments in detection order.
func (r *Result) MultiLineString() orb.MultiLineString {
	mls := make(orb.MultiLineString, 0, len(r.Segments))
	for _, s := range r.Segments {
		mls = append(mls, s.LineString())
	}
	return mls
}

// Bound is the bounding box of every segment end point.
func (r *Result) Bound() orb.Bound {
	return r.MultiLineString().Bound()
}

// FeatureCollection returns one LineString feature per segment.
func (r *Result) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, s := range r.Segments {
		f := geojson.NewFeature(s.LineString())
		f.ID = i
		f.Properties["width"] = s.Width
		f.Properties["length"] = s.Length
		f.Properties["angle_degrees"] = s.AngleDegrees
		f.Properties["nfa"] = s.NFA
		f.Properties["log10_nfa"] = s.LogNFA
		f.Properties["aligned_pixels"] = s.AlignedPixels
		f.Properties["total_pixels"] = s.TotalPixels
		fc.Append(f)
	}
	return fc
}
