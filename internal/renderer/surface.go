package renderer

import (
	"errors"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/magicons/internal/system"
)

// ErrRenderSurfaceUnavailable is returned when a frame cannot be drawn
// because the surface was released or there is no source image.
var ErrRenderSurfaceUnavailable = errors.New("render surface unavailable")

// ReferenceSize is the on-page icon size (CSS px) animation translations are authored in.
const ReferenceSize = 80.0

// SurfaceOptions controls how the source icon is placed on the canvas.
type SurfaceOptions struct {
	// IconFill is the share of the shorter canvas side the untransformed icon occupies.
	IconFill float64
	// Interpolator resamples the source; nil means CatmullRom.
	Interpolator draw.Interpolator
}

// Surface is an offscreen RGBA canvas the icon is composited onto. It is
// not safe for concurrent use; exactly one writer owns it at a time.
type Surface struct {
	canvas *image.RGBA
	layer  *image.RGBA
	opts   SurfaceOptions
}

// NewSurface allocates a width x height canvas from the shared image pool.
func NewSurface(width, height int, opts SurfaceOptions) *Surface {
	if opts.IconFill <= 0 || opts.IconFill > 1 {
		opts.IconFill = 0.7
	}
	if opts.Interpolator == nil {
		opts.Interpolator = draw.CatmullRom
	}
	rect := image.Rect(0, 0, width, height)
	return &Surface{
		canvas: system.GetImage(rect),
		layer:  system.GetImage(rect),
		opts:   opts,
	}
}

// Bounds returns the canvas rectangle.
func (s *Surface) Bounds() image.Rectangle {
	if s == nil || s.canvas == nil {
		return image.Rectangle{}
	}
	return s.canvas.Rect
}

// Pixels exposes the canvas. The caller must copy it before the next Render.
func (s *Surface) Pixels() *image.RGBA {
	if s == nil {
		return nil
	}
	return s.canvas
}

// Render clears the canvas and draws src under state. Transforms are applied
// in a fixed order: scale, rotate, translateX, translateY, then opacity.
func (s *Surface) Render(src image.Image, state TransformState) error {
	if s == nil || s.canvas == nil || src == nil || src.Bounds().Empty() {
		return ErrRenderSurfaceUnavailable
	}

	clear(s.canvas.Pix)

	opacity := math.Max(0, math.Min(1, state.Opacity))
	if opacity == 0 || state.Scale == 0 {
		return nil
	}

	m := s.iconMatrix(src.Bounds(), state)
	if opacity >= 1 {
		s.opts.Interpolator.Transform(s.canvas, m, src, src.Bounds(), draw.Over, nil)
		return nil
	}

	clear(s.layer.Pix)
	s.opts.Interpolator.Transform(s.layer, m, src, src.Bounds(), draw.Over, nil)
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(s.canvas, s.canvas.Rect, s.layer, image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

// iconMatrix maps source pixels to canvas pixels. Reading right to left:
// centre the source, fit it to the icon box, then translateY, translateX,
// rotate and scale about the canvas centre, the same nesting a 2D canvas
// context produces for scale(); rotate(); translate() calls.
func (s *Surface) iconMatrix(sr image.Rectangle, st TransformState) f64.Aff3 {
	cw, ch := float64(s.canvas.Rect.Dx()), float64(s.canvas.Rect.Dy())
	box := math.Min(cw, ch) * s.opts.IconFill
	sw, sh := float64(sr.Dx()), float64(sr.Dy())
	fit := box / math.Max(sw, sh)
	unit := box / ReferenceSize

	rad := st.RotateZ * math.Pi / 180
	m := translate(cw/2, ch/2)
	m = mul(m, scale(st.Scale))
	m = mul(m, rotate(rad))
	m = mul(m, translate(st.TranslateX*unit, 0))
	m = mul(m, translate(0, st.TranslateY*unit))
	m = mul(m, scale(fit))
	m = mul(m, translate(-float64(sr.Min.X)-sw/2, -float64(sr.Min.Y)-sh/2))
	return m
}

// Release returns the canvas buffers to the pool. Render fails afterwards.
func (s *Surface) Release() {
	if s == nil || s.canvas == nil {
		return
	}
	system.PutImage(s.canvas)
	system.PutImage(s.layer)
	s.canvas, s.layer = nil, nil
}

// Released reports whether Release was called.
func (s *Surface) Released() bool {
	return s == nil || s.canvas == nil
}

func translate(x, y float64) f64.Aff3 {
	return f64.Aff3{1, 0, x, 0, 1, y}
}

func scale(k float64) f64.Aff3 {
	return f64.Aff3{k, 0, 0, 0, k, 0}
}

// rotate is clockwise on screen because the y axis points down.
func rotate(rad float64) f64.Aff3 {
	sin, cos := math.Sincos(rad)
	return f64.Aff3{cos, -sin, 0, sin, cos, 0}
}

// mul returns a·b, so b is applied to a point first.
func mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}
