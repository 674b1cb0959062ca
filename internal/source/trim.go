package source

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// DefaultTrimThreshold is the luma distance from the background above
// which a pixel counts as content.
const DefaultTrimThreshold = 24.0

// ContentBounds returns the smallest rectangle holding every pixel that
// stands out from the background. Images with a transparent top-left
// corner count any visible pixel as content; otherwise content differs in
// luma from that corner by more than threshold. An empty result means the
// image is blank.
func ContentBounds(img image.Image, threshold float64) image.Rectangle {
	b := img.Bounds()
	if b.Empty() {
		return image.Rectangle{}
	}

	_, _, _, a := img.At(b.Min.X, b.Min.Y).RGBA()
	transparentBg := a < 0x8000
	bg := luma(img.At(b.Min.X, b.Min.Y))

	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			var content bool
			if transparentBg {
				_, _, _, pa := c.RGBA()
				content = pa >= 0x8000
			} else {
				content = math.Abs(luma(c)-bg) > threshold
			}
			if !content {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < minX {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Trim crops img to its content. Blank images are returned unchanged.
func Trim(img image.Image, threshold float64) image.Image {
	r := ContentBounds(img, threshold)
	if r.Empty() || r == img.Bounds() {
		return img
	}
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(r)
	}
	out := image.NewRGBA(r)
	draw.Draw(out, r, img, r.Min, draw.Src)
	return out
}

func luma(c color.Color) float64 {
	return float64(color.GrayModel.Convert(c).(color.Gray).Y)
}
