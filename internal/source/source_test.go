package source

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, name string, w, h int, encode func(*os.File, image.Image) error) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if err := encode(f, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return path
}

func pngEncode(f *os.File, img image.Image) error { return png.Encode(f, img) }
func bmpEncode(f *os.File, img image.Image) error { return bmp.Encode(f, img) }

func TestValidate(t *testing.T) {
	tests := []struct {
		mime string
		w, h int
		want error
	}{
		{"image/png", 80, 80, nil},
		{"image/svg+xml", 800, 400, nil},
		{"application/pdf", 10, 10, nil},
		{"image/png", 801, 100, ErrTooLarge},
		{"image/jpeg", 100, 401, ErrTooLarge},
		{"image/tiff", 10, 10, ErrUnsupportedType},
		{"text/plain", 10, 10, ErrUnsupportedType},
		{"image/png", 0, 10, ErrUnsupportedType},
	}
	for _, tt := range tests {
		err := Validate(tt.mime, tt.w, tt.h)
		if tt.want == nil && err != nil {
			t.Errorf("%s %dx%d: unexpected error %v", tt.mime, tt.w, tt.h, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s %dx%d: expected %v, got %v", tt.mime, tt.w, tt.h, tt.want, err)
		}
	}
}

func TestLoadRaster(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*os.File, image.Image) error
		mime   string
	}{
		{"icon.png", pngEncode, "image/png"},
		{"icon.bmp", bmpEncode, "image/bmp"},
	}
	for _, tt := range tests {
		path := writeImage(t, tt.name, 40, 20, tt.encode)

		mime, err := DetectMIME(path)
		if err != nil || mime != tt.mime {
			t.Errorf("%s: expected %s, got %s (%v)", tt.name, tt.mime, mime, err)
		}

		img, err := Load(path, Options{})
		if err != nil {
			t.Fatalf("%s: Load failed: %v", tt.name, err)
		}
		if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
			t.Errorf("%s: unexpected bounds %v", tt.name, img.Bounds())
		}
	}
}

func TestLoadTooLarge(t *testing.T) {
	path := writeImage(t, "wide.png", 900, 10, pngEncode)
	if _, err := Load(path, Options{}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(path, Options{}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.png"), Options{}); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestDetectSVGByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.svg")
	svg := `<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"></svg>`
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	mime, err := DetectMIME(path)
	if err != nil {
		t.Fatalf("DetectMIME failed: %v", err)
	}
	if mime != "image/svg+xml" {
		t.Errorf("Expected image/svg+xml, got %s", mime)
	}
}

func TestDetectSVGFromContent(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"commented.svg", `<!-- icon --><svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"></svg>`},
		{"no-extension", `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`},
		{"doctype.img", "<?xml version=\"1.0\"?>\n<!DOCTYPE svg>\n<!-- exported -->\n<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), tt.name)
		if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		mime, err := DetectMIME(path)
		if err != nil {
			t.Fatalf("%s: DetectMIME failed: %v", tt.name, err)
		}
		if mime != "image/svg+xml" {
			t.Errorf("%s: expected image/svg+xml, got %s", tt.name, mime)
		}
	}
}

func TestOpenRejectsBeforeDecoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, []byte("<html><body>hello</body></html>"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := Open(path, Options{})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Expected ErrUnsupportedType, got %v", err)
	}
	if strings.Contains(err.Error(), "unknown format") {
		t.Errorf("Expected the type rejected before decoding, got %v", err)
	}
	t.Logf("Rejected: %v", err)
}

func TestQRSource(t *testing.T) {
	img, err := Load("qr:magicons", Options{QRSize: 128})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 128 {
		t.Errorf("Expected 128x128, got %v", img.Bounds())
	}

	if _, err := Open("qr:", Options{}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType for empty text, got %v", err)
	}
	if _, err := Load("qr:x", Options{QRSize: 1000}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge for an oversized placeholder, got %v", err)
	}
}

func TestContentBounds(t *testing.T) {
	transparent := image.NewRGBA(image.Rect(0, 0, 50, 40))
	for y := 10; y < 20; y++ {
		for x := 5; x < 30; x++ {
			transparent.SetRGBA(x, y, color.RGBA{R: 10, A: 255})
		}
	}

	opaque := image.NewRGBA(image.Rect(0, 0, 50, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
			if x >= 20 && x < 25 && y >= 3 && y < 33 {
				c = color.RGBA{A: 255}
			}
			opaque.SetRGBA(x, y, c)
		}
	}

	tests := []struct {
		name string
		img  image.Image
		want image.Rectangle
	}{
		{"transparent margins", transparent, image.Rect(5, 10, 30, 20)},
		{"white margins", opaque, image.Rect(20, 3, 25, 33)},
		{"blank", image.NewRGBA(image.Rect(0, 0, 8, 8)), image.Rectangle{}},
	}
	for _, tt := range tests {
		if got := ContentBounds(tt.img, DefaultTrimThreshold); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	trimmed := Trim(transparent, DefaultTrimThreshold)
	if trimmed.Bounds() != image.Rect(5, 10, 30, 20) {
		t.Errorf("Unexpected trimmed bounds %v", trimmed.Bounds())
	}
	blank := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if Trim(blank, DefaultTrimThreshold) != image.Image(blank) {
		t.Error("Blank image must be returned unchanged")
	}
}

func TestLoadTrimmedQR(t *testing.T) {
	full, err := Load("qr:trim", Options{QRSize: 200})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	trimmed, err := Load("qr:trim", Options{QRSize: 200, Trim: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if trimmed.Bounds().Dx() >= full.Bounds().Dx() {
		t.Errorf("Expected the quiet zone trimmed, %v -> %v", full.Bounds(), trimmed.Bounds())
	}
	t.Logf("QR %v trimmed to %v", full.Bounds(), trimmed.Bounds())
}
