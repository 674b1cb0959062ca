package encoder

import (
	"image"
	"image/color"
	"math"

	"github.com/soniakeys/quant/median"
	"golang.org/x/image/draw"
)

// transparent is always the last palette entry.
var transparent = color.RGBA{}

// buildPalette median-cuts up to 255 opaque colours out of img and appends
// the transparent entry. stride trades accuracy for speed: the image is
// subsampled so roughly one pixel in stride is considered.
func buildPalette(img *image.RGBA, stride int) color.Palette {
	src := subsample(img, stride)

	var q draw.Quantizer = median.Quantizer(255)
	raw := q.Quantize(make(color.Palette, 0, 255), src)

	pal := make(color.Palette, 0, 256)
	for _, c := range raw {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		if rgba.A < 0x80 || len(pal) == 255 {
			continue
		}
		rgba.A = 0xff
		pal = append(pal, rgba)
	}
	if len(pal) == 0 {
		pal = append(pal, color.RGBA{A: 0xff})
	}
	return append(pal, transparent)
}

func subsample(img *image.RGBA, stride int) image.Image {
	k := int(math.Sqrt(float64(max(stride, 1))))
	b := img.Bounds()
	if k <= 1 || b.Dx() < 2*k || b.Dy() < 2*k {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()/k, b.Dy()/k))
	draw.NearestNeighbor.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst
}

// mapper assigns palette indices to pixels, caching per exact colour.
type mapper struct {
	pal   []color.RGBA
	cache map[uint32]uint8
}

func newMapper(pal color.Palette) *mapper {
	m := &mapper{pal: make([]color.RGBA, len(pal)), cache: make(map[uint32]uint8)}
	for i, c := range pal {
		m.pal[i] = color.RGBAModel.Convert(c).(color.RGBA)
	}
	return m
}

func (m *mapper) transparentIndex() uint8 {
	return uint8(len(m.pal) - 1)
}

func (m *mapper) index(r, g, b, a uint8) uint8 {
	if a < 0x80 {
		return m.transparentIndex()
	}
	key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if idx, ok := m.cache[key]; ok {
		return idx
	}

	best, bestDist := 0, int(^uint(0)>>1)
	for i, pc := range m.pal[:len(m.pal)-1] {
		dr, dg, db := int(pc.R)-int(r), int(pc.G)-int(g), int(pc.B)-int(b)
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	m.cache[key] = uint8(best)
	return uint8(best)
}
