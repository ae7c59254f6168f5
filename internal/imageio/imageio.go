// Package imageio reads and writes 8-bit grayscale images for morph.
//
// Decoding accepts PNG, JPEG, GIF, BMP and TIFF and converts color images
// to luma. Encoding writes PNG, BMP or TIFF, chosen by file extension.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // register GIF decoder
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned for an output extension with no encoder.
var ErrUnsupportedFormat = errors.New("imageio: unsupported format")

// Gray is a row-major 8-bit grayscale image with no row padding.
type Gray struct {
	Width  int
	Height int
	Pix    []uint8
}

// FromImage converts any image to Gray.
func FromImage(img image.Image) *Gray {
	b := img.Bounds()
	g, ok := img.(*image.Gray)
	if !ok || g.Stride != b.Dx() || b.Min != (image.Point{}) {
		g = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	}
	return &Gray{Width: b.Dx(), Height: b.Dy(), Pix: g.Pix}
}

// Image returns the pixels as an *image.Gray sharing the buffer.
func (g *Gray) Image() *image.Gray {
	return &image.Gray{Pix: g.Pix, Stride: g.Width, Rect: image.Rect(0, 0, g.Width, g.Height)}
}

// Decode reads an image in any registered format and converts it to Gray.
// It returns the detected format name.
func Decode(r io.Reader) (*Gray, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("imageio: decode: %w", err)
	}
	return FromImage(img), format, nil
}

// Encode writes g in the named format: "png", "bmp" or "tiff".
func Encode(w io.Writer, g *Gray, format string) error {
	img := g.Image()
	var err error
	switch strings.ToLower(format) {
	case "png":
		err = png.Encode(w, img)
	case "bmp":
		err = bmp.Encode(w, img)
	case "tif", "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("imageio: encode %s: %w", format, err)
	}
	return nil
}

// FormatFor returns the output format implied by a file name.
func FormatFor(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "png", "bmp":
		return ext, nil
	case "tif", "tiff":
		return "tiff", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load decodes the file at path.
func Load(path string) (*Gray, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Save encodes g to path in the format implied by its extension.
func Save(path string, g *Gray) (err error) {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, g, format)
}

// Luma returns the 8-bit luma of c, as image.Gray conversion computes it.
func Luma(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}
