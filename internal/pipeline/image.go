package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	// Register decoders beyond the stdlib jpeg/png/gif set.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// maxSourcePixels rejects headers that claim absurd dimensions before a full decode.
const maxSourcePixels = 100_000_000

// ImageInfo is what Validate learns from the image header.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// Validate checks that data carries a recognised, well-formed image header
// without decoding pixel data. Failures wrap ErrDecode.
func Validate(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: no data", ErrDecode)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: %s header reports %dx%d", ErrDecode, format, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return ImageInfo{}, fmt.Errorf("%w: %s image too large (%dx%d)", ErrDecode, format, cfg.Width, cfg.Height)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode validates data and decodes it, applying any EXIF orientation.
func Decode(data []byte) (image.Image, ImageInfo, error) {
	info, err := Validate(data)
	if err != nil {
		return nil, info, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, info, fmt.Errorf("%w: decode %s: %w", ErrDecode, info.Format, err)
	}
	return img, info, nil
}

// Normalize scales img to fit within width x height keeping its aspect ratio,
// then centres it on an opaque canvas of exactly that size filled with bg.
// Smaller sources are scaled up. Content is never cropped and transparent
// pixels are flattened onto bg.
func Normalize(img image.Image, width, height int, bg color.NRGBA) *image.NRGBA {
	bg.A = 0xFF
	canvas := imaging.New(width, height, bg)

	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return canvas
	}

	w, h := fitSize(srcW, srcH, width, height)
	resized := imaging.Resize(img, w, h, imaging.Lanczos)
	offset := image.Pt((width-w)/2, (height-h)/2)
	return imaging.Overlay(canvas, resized, offset, 1.0)
}

// fitSize returns the largest size with the source aspect ratio that fits the box.
func fitSize(srcW, srcH, boxW, boxH int) (int, int) {
	ratio := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	w := int(math.Round(float64(srcW) * ratio))
	h := int(math.Round(float64(srcH) * ratio))
	w = min(max(w, 1), boxW)
	h = min(max(h, 1), boxH)
	return w, h
}

// Encode writes img as a baseline JPEG at quality (0-100).
func Encode(w io.Writer, img image.Image, quality int) error {
	quality = min(max(quality, 0), 100)
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}
