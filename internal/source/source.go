// Package source turns an input reference into the icon raster the
// animation core draws. Sources are validated before rendering.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image exceeds maximum dimensions")
)

const (
	MaxWidth  = 800
	MaxHeight = 400

	DefaultDPI    = 72
	DefaultQRSize = 256

	qrPrefix   = "qr:"
	sniffLimit = 8 << 10
)

// Allowed lists the MIME types accepted for the icon.
var Allowed = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/svg+xml",
	"application/pdf",
}

type Source interface {
	MIME() string
	Dimensions() (width, height int, err error)
	Render() (image.Image, error)
	Close() error
}

type Options struct {
	// DPI rasterizes vector sources; 72 keeps one pixel per point.
	DPI int
	// QRSize is the edge length of generated placeholder icons.
	QRSize int
	// Trim crops empty margins so the icon fills its box.
	Trim bool
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.QRSize <= 0 {
		o.QRSize = DefaultQRSize
	}
	return o
}

// Open picks a source for ref: "qr:<text>" generates a QR code, .svg and .pdf
// files go through MuPDF, everything else is decoded as a raster image.
func Open(ref string, opts Options) (Source, error) {
	opts = opts.withDefaults()
	if text, ok := strings.CutPrefix(ref, qrPrefix); ok {
		return NewQRSource(text, opts.QRSize)
	}

	mime, err := DetectMIME(ref)
	if err != nil {
		return nil, err
	}
	if !allowed(mime) {
		return nil, fmt.Errorf("%s: %w: %q", ref, ErrUnsupportedType, mime)
	}
	switch mime {
	case "image/svg+xml", "application/pdf":
		return NewFitzSource(ref, mime, opts.DPI)
	default:
		return NewImageSource(ref, mime)
	}
}

// Load opens ref, validates it and renders the icon, trimmed when opts.Trim is set.
func Load(ref string, opts Options) (image.Image, error) {
	src, err := Open(ref, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	w, h, err := src.Dimensions()
	if err != nil {
		return nil, err
	}
	if err := Validate(src.MIME(), w, h); err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	img, err := src.Render()
	if err != nil {
		return nil, err
	}
	if opts.Trim {
		img = Trim(img, DefaultTrimThreshold)
	}
	return img, nil
}

// Validate checks the declared type against Allowed and the pixel size
// against MaxWidth x MaxHeight.
func Validate(mime string, width, height int) error {
	if !allowed(mime) {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, mime)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", ErrUnsupportedType, width, height)
	}
	if width > MaxWidth || height > MaxHeight {
		return fmt.Errorf("%w: %dx%d, max %dx%d", ErrTooLarge, width, height, MaxWidth, MaxHeight)
	}
	return nil
}

func allowed(mime string) bool {
	for _, m := range Allowed {
		if m == mime {
			return true
		}
	}
	return false
}

// DetectMIME identifies the file from its content. Markup that mimetype
// classifies as generic XML, HTML or text is reported as SVG when it
// contains an <svg> element.
func DetectMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, sniffLimit))
	if err != nil {
		return "", err
	}
	m := mimetype.Detect(head)
	mime, _, _ := strings.Cut(m.String(), ";")
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("text/xml") || m.Is("text/html") {
			if bytes.Contains(head, []byte("<svg")) {
				return "image/svg+xml", nil
			}
			break
		}
	}
	return mime, nil
}

type FitzSource struct {
	doc  *fitz.Document
	path string
	mime string
	dpi  int
}

func NewFitzSource(path, mime string, dpi int) (*FitzSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, fmt.Errorf("%w: %s has no pages", ErrUnsupportedType, path)
	}
	return &FitzSource{doc: doc, path: path, mime: mime, dpi: dpi}, nil
}

func (f *FitzSource) MIME() string { return f.mime }

// Dimensions is the pixel size of the first page at the source DPI.
func (f *FitzSource) Dimensions() (int, int, error) {
	rect, err := f.doc.Bound(0)
	if err != nil {
		return 0, 0, err
	}
	k := float64(f.dpi) / 72
	return int(float64(rect.Dx())*k + 0.5), int(float64(rect.Dy())*k + 0.5), nil
}

func (f *FitzSource) Render() (image.Image, error) {
	return f.doc.ImageDPI(0, float64(f.dpi))
}

func (f *FitzSource) Close() error {
	return f.doc.Close()
}
