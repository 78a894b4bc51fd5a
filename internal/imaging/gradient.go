package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ironsheep/lsd-mcp/internal/detection"
	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// Gradient builder defaults.
const (
	DefaultScale      = 0.8
	DefaultSigmaScale = 0.6
	DefaultNoiseFloor = 2.0
)

// GradientConfig controls how an image is turned into the magnitude and
// orientation rasters consumed by the detector.
type GradientConfig struct {
	// Scale down-samples the image before differentiation. 1 keeps the
	// original resolution and skips smoothing.
	Scale float64 `json:"scale"`

	// SigmaScale sets the Gaussian sigma as SigmaScale/Scale when Scale < 1.
	SigmaScale float64 `json:"sigma_scale"`

	// NoiseFloor is in grey levels. Magnitudes at or below it are zeroed;
	// the orientation is still recorded.
	NoiseFloor float64 `json:"noise_floor"`
}

func DefaultGradientConfig() GradientConfig {
	return GradientConfig{
		Scale:      DefaultScale,
		SigmaScale: DefaultSigmaScale,
		NoiseFloor: DefaultNoiseFloor,
	}
}

// Validate reports every invalid field.
func (c GradientConfig) Validate() error {
	var err error
	if !(c.Scale > 0 && c.Scale <= 1) {
		err = multierr.Append(err, errors.Errorf("scale must be in (0, 1], got %g", c.Scale))
	}
	if c.Scale < 1 && !(c.SigmaScale > 0) {
		err = multierr.Append(err, errors.Errorf("sigma scale must be positive, got %g", c.SigmaScale))
	}
	if c.NoiseFloor < 0 || math.IsNaN(c.NoiseFloor) {
		err = multierr.Append(err, errors.Errorf("noise floor must be non-negative, got %g", c.NoiseFloor))
	}
	return err
}

// GradientField holds the rasters the detector runs on, together with the
// frame mapping their pixel coordinates back to the source image.
type GradientField struct {
	Magnitude   *raster.Grid
	Orientation *raster.Grid
	Frame       detection.Frame
}

// Width and Height are the size of the rasters, not of the source image.
func (f *GradientField) Width() int  { return f.Magnitude.Width() }
func (f *GradientField) Height() int { return f.Magnitude.Height() }

// Gradient computes the gradient field the line segment detector consumes.
//
// Parameters:
//   - img: Any image; it is converted to grey levels first.
//   - cfg: Down-sampling and noise parameters. When cfg.Scale < 1 the image
//     is smoothed with a Gaussian of sigma cfg.SigmaScale/cfg.Scale and
//     resized to ceil(width*scale) x ceil(height*scale) before the 2x2
//     gradient is taken.
//
// Returns:
//   - *GradientField: Magnitude and level-line orientation rasters of the
//     (possibly down-sampled) image, and the Frame that maps their pixel
//     coordinates back to img.
//   - error: Non-nil if cfg is invalid (all violations are reported) or img
//     has no pixels (detection.ErrEmptyImage).
func Gradient(img image.Image, cfg GradientConfig) (*GradientField, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid gradient config")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.Wrapf(detection.ErrEmptyImage, "%dx%d", b.Dx(), b.Dy())
	}

	var gray image.Image = effect.Grayscale(img)
	if cfg.Scale < 1 {
		w := max(1, int(math.Ceil(float64(b.Dx())*cfg.Scale)))
		h := max(1, int(math.Ceil(float64(b.Dy())*cfg.Scale)))
		gray = imaging.Resize(imaging.Blur(gray, cfg.SigmaScale/cfg.Scale), w, h, imaging.Linear)
	}

	mag, orient := GradientFromGray(Luminance(gray), cfg.NoiseFloor)
	return &GradientField{
		Magnitude:   mag,
		Orientation: orient,
		Frame:       detection.Frame{SpacingX: 1, SpacingY: 1, Offset: 0.5, Scale: cfg.Scale},
	}, nil
}

// Luminance copies the grey level of every pixel of img into a grid, with
// the top-left pixel at (0, 0).
func Luminance(img image.Image) *raster.Grid {
	b := img.Bounds()
	g := raster.NewGrid(b.Dx(), b.Dy())
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			row := gray.Pix[gray.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < b.Dx(); x++ {
				g.Set(x, y, float64(row[x]))
			}
		}
		return g
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g.Set(x, y, float64(c.Y))
		}
	}
	return g
}

// GradientFromGray computes the gradient of each 2x2 block anchored at
// (x, y). The magnitude is the norm of the block gradient and the
// orientation is the level-line angle, perpendicular to the gradient. Blocks
// of the last row and column repeat the border pixels. Every pixel gets an
// orientation; magnitudes at or below noiseFloor are zeroed, which keeps the
// pixel out of every region without marking it undefined.
func GradientFromGray(gray raster.Scalar, noiseFloor float64) (mag, orient *raster.Grid) {
	w, h := gray.Width(), gray.Height()
	mag = raster.NewGrid(w, h)
	orient = raster.NewGrid(w, h)

	for y := 0; y < h; y++ {
		y1 := min(y+1, h-1)
		for x := 0; x < w; x++ {
			x1 := min(x+1, w-1)
			// A B
			// C D
			com1 := gray.At(x1, y1) - gray.At(x, y)
			com2 := gray.At(x1, y) - gray.At(x, y1)
			gx := com1 + com2
			gy := com1 - com2

			orient.Set(x, y, math.Atan2(gx, -gy))
			if norm := math.Sqrt((gx*gx + gy*gy) / 4); norm > noiseFloor {
				mag.Set(x, y, norm)
			}
		}
	}
	return mag, orient
}
