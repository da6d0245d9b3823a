package operations

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const captionMargin = 8

// Captioner appends a white strip below an image and writes a line of text into it.
type Captioner struct {
	font     *truetype.Font
	fontSize float64
	color    color.RGBA
}

func NewCaptioner(fontSize float64, colorStr string) (*Captioner, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	col, err := parseColor(colorStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption color: %w", err)
	}

	return &Captioner{
		font:     f,
		fontSize: fontSize,
		color:    col,
	}, nil
}

func (c *Captioner) Process(img image.Image, text string) (image.Image, error) {
	if c.fontSize <= 0 || text == "" {
		return img, nil
	}

	bounds := img.Bounds()
	strip := int(c.fontSize) + 2*captionMargin

	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()+strip))
	draw.Draw(result, result.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(result, image.Rect(0, 0, bounds.Dx(), bounds.Dy()), img, bounds.Min, draw.Over)

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(c.font)
	ctx.SetFontSize(c.fontSize)
	ctx.SetClip(result.Bounds())
	ctx.SetDst(result)
	ctx.SetSrc(image.NewUniform(c.color))
	ctx.SetHinting(font.HintingFull)

	pt := freetype.Pt(captionMargin, bounds.Dy()+captionMargin+int(c.fontSize))
	if _, err := ctx.DrawString(text, pt); err != nil {
		return nil, fmt.Errorf("failed to draw caption: %w", err)
	}

	return result, nil
}

// parseColor reads "r,g,b" or "r,g,b,a".
func parseColor(colorStr string) (color.RGBA, error) {
	parts := strings.Split(strings.ReplaceAll(colorStr, " ", ""), ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.RGBA{}, fmt.Errorf("invalid color format %q", colorStr)
	}

	values := [4]int{0, 0, 0, 255}
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color value %q", part)
		}
		values[i] = clamp(v, 0, 255)
	}

	return color.RGBA{uint8(values[0]), uint8(values[1]), uint8(values[2]), uint8(values[3])}, nil
}

func clamp(value, lo, hi int) int {
	return min(max(value, lo), hi)
}
