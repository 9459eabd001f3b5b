package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/hyperjump/stacbg/internal/models"
)

// Mirror flips img horizontally.
func Mirror(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	// x' = -x + (minX + maxX) maps the source span onto itself reversed;
	// shift by -minX so the result starts at the origin.
	s2d := f64.Aff3{
		-1, 0, float64(b.Max.X),
		0, 1, float64(-b.Min.Y),
	}
	draw.NearestNeighbor.Transform(dst, s2d, img, b, draw.Src, nil)
	return dst
}

// Thumbnail scales img to exactly width x height.
func Thumbnail(img image.Image, width, height int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Opaque drops the alpha channel: every pixel keeps its colour at full opacity.
func Opaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		// Straight copy keeps the unpremultiplied colour exact.
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[off:off+4*b.Dx()])
		}
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// SaveImage writes img as RGB to path, choosing JPEG or PNG from the extension.
func SaveImage(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create image directory: %w", models.ErrStorage, err)
		}
	}
	// Write next to the target and rename so a reader never sees a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", models.ErrStorage, path, err)
	}
	defer os.Remove(tmp.Name())

	rgb := Opaque(img)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(tmp, rgb, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(tmp, rgb)
	}
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: encode %s: %w", models.ErrStorage, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", models.ErrStorage, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", models.ErrStorage, path, err)
	}
	return nil
}
