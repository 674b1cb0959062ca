package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type ImageSource struct {
	path string
	mime string
}

func NewImageSource(path, mime string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedType, path)
	}
	return &ImageSource{path: path, mime: mime}, nil
}

func (s *ImageSource) MIME() string { return s.mime }

func (s *ImageSource) Dimensions() (int, int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Render decodes the file. Animated GIFs contribute their first frame.
func (s *ImageSource) Render() (image.Image, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return img, nil
}

func (s *ImageSource) Close() error {
	return nil
}
