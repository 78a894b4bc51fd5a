package detection

import (
	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// SeedBuckets holds seed pixels grouped by quantized magnitude. Bucket 0
// holds the strongest pixels; inside a bucket pixels are in raster order.
type SeedBuckets [][]Point

// BuildSeedBuckets sorts every pixel whose magnitude exceeds minGradient into
// one of levels buckets spanning [0, max]. When no pixel qualifies every
// bucket is empty.
func BuildSeedBuckets(mag raster.Scalar, minGradient float64, levels int) SeedBuckets {
	buckets := make(SeedBuckets, levels)
	maxVal := raster.Max(mag)
	if maxVal <= 0 || levels <= 0 {
		return buckets
	}

	step := maxVal / float64(levels)
	for y := 0; y < mag.Height(); y++ {
		for x := 0; x < mag.Width(); x++ {
			v := mag.At(x, y)
			if !(v > minGradient) || v > maxVal {
				continue
			}
			i := int((maxVal - v) / step)
			if i >= levels {
				i = levels - 1
			}
			buckets[i] = append(buckets[i], Point{X: x, Y: y})
		}
	}
	return buckets
}

// Len is the total number of seeds.
func (b SeedBuckets) Len() int {
	n := 0
	for _, bucket := range b {
		n += len(bucket)
	}
	return n
}

// Each visits the seeds strongest first and stops when fn returns false.
func (b SeedBuckets) Each(fn func(p Point) bool) {
	for _, bucket := range b {
		for _, p := range bucket {
			if !fn(p) {
				return
			}
		}
	}
}
