package source

import (
	"fmt"
	"image"

	"github.com/skip2/go-qrcode"
)

// QRSource renders text as a QR code, handy as a placeholder icon when no
// image is at hand.
type QRSource struct {
	code *qrcode.QRCode
	size int
}

func NewQRSource(text string, size int) (*QRSource, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty qr text", ErrUnsupportedType)
	}
	code, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return &QRSource{code: code, size: size}, nil
}

func (q *QRSource) MIME() string { return "image/png" }

func (q *QRSource) Dimensions() (int, int, error) {
	return q.size, q.size, nil
}

func (q *QRSource) Render() (image.Image, error) {
	return q.code.Image(q.size), nil
}

func (q *QRSource) Close() error { return nil }
