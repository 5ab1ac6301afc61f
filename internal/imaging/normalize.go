// Package imaging post-processes captured screenshots into the uniform
// grayscale form the search index expects.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultTargetSize matches the SVG normalizer's canvas.
const DefaultTargetSize = 224

// ErrEmptyImage reports a zero-byte input.
var ErrEmptyImage = errors.New("image data is empty")

// NormalizePNG converts a captured PNG into a square grayscale image on a
// light background with stretched contrast. Dark-background captures are
// inverted so every output reads as dark glyph on light ground.
func NormalizePNG(data []byte, target int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if target <= 0 {
		target = DefaultTargetSize
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	gray := toGray(src)
	if backgroundIsDark(gray) {
		invert(gray)
	}
	stretchContrast(gray)

	out := image.NewGray(image.Rect(0, 0, target, target))
	draw.CatmullRom.Scale(out, out.Bounds(), gray, gray.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, src, b.Min, draw.Src)
	return gray
}

// backgroundIsDark samples the image border; captures place the glyph in the
// middle, so the border is a reliable proxy for the background.
func backgroundIsDark(g *image.Gray) bool {
	b := g.Bounds()
	var sum, count int
	for x := b.Min.X; x < b.Max.X; x++ {
		sum += int(g.GrayAt(x, b.Min.Y).Y)
		sum += int(g.GrayAt(x, b.Max.Y-1).Y)
		count += 2
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		sum += int(g.GrayAt(b.Min.X, y).Y)
		sum += int(g.GrayAt(b.Max.X-1, y).Y)
		count += 2
	}
	if count == 0 {
		return false
	}
	return sum/count < 128
}

func invert(g *image.Gray) {
	for i, v := range g.Pix {
		g.Pix[i] = 255 - v
	}
}

// stretchContrast maps the observed intensity range onto the full 0..255
// scale. Flat images are left alone.
func stretchContrast(g *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return
	}
	span := int(hi) - int(lo)
	for i, v := range g.Pix {
		g.Pix[i] = uint8((int(v) - int(lo)) * 255 / span)
	}
}
