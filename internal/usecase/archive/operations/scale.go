package operations

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Scaler shrinks images wider than MaxWidth, keeping the aspect ratio. Narrower
// images are returned untouched.
type Scaler struct {
	maxWidth int
}

func NewScaler(maxWidth int) *Scaler {
	return &Scaler{maxWidth: maxWidth}
}

func (s *Scaler) Process(img image.Image) image.Image {
	bounds := img.Bounds()
	if s.maxWidth <= 0 || bounds.Dx() <= s.maxWidth {
		return img
	}

	ratio := float64(bounds.Dx()) / float64(bounds.Dy())
	height := max(int(float64(s.maxWidth)/ratio), 1)

	return resizeImage(img, s.maxWidth, height)
}

func resizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}
