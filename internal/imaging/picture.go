package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/ironsheep/lsd-mcp/internal/raster"
)

// PictureResult is an image encoded as base64 PNG.
type PictureResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG so that it can travel inside a JSON
// tool result. The returned PictureResult carries the size and MIME type
// alongside the data.
func EncodePNG(img image.Image) (*PictureResult, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	return &PictureResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// MagnitudePicture renders mag as grey levels scaled to its maximum.
func MagnitudePicture(mag raster.Scalar) *image.Gray {
	w, h := mag.Width(), mag.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))
	top := raster.Max(mag)
	if top <= 0 {
		return img
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(255 * mag.At(x, y) / top))})
		}
	}
	return img
}

// OrientationPicture maps the level-line angle to hue and the magnitude to
// value. Opposite angles share a hue since a level line has no direction.
// Pixels without an orientation are black.
func OrientationPicture(mag, orient raster.Scalar) *image.RGBA {
	w, h := mag.Width(), mag.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	top := raster.Max(mag)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a, m := orient.At(x, y), mag.At(x, y)
			if math.IsNaN(a) || math.IsInf(a, 0) || m <= 0 || top <= 0 {
				img.Set(x, y, color.Black)
				continue
			}
			hue := math.Mod(a+2*math.Pi, math.Pi) / math.Pi * 360
			c := colorful.Hsv(hue, 1, m/top).Clamped()
			r, g, b := c.RGB255()
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}
