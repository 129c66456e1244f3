package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	lherrors "github.com/a3tai/mcp-pdf-letterhead/internal/pdf/errors"
)

// Image is a raster ready for placement. Data is JPEG or PNG, matching Type.
type Image struct {
	Name   string
	Type   string // "JPG" or "PNG"
	Data   []byte
	Width  float64
	Height float64
}

// DecodeImage validates raw image bytes and normalizes them for the canvas.
// JPEG passes through untouched; every other registered format is decoded
// and re-encoded as an 8-bit PNG. Failures are ImageDecode errors.
func DecodeImage(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, lherrors.ImageDecode(fmt.Errorf("empty image data"))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, lherrors.ImageDecode(err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, lherrors.ImageDecode(fmt.Errorf("image has zero size"))
	}

	img := &Image{
		Name:   name,
		Width:  float64(cfg.Width),
		Height: float64(cfg.Height),
	}

	if format == "jpeg" {
		if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
			return nil, lherrors.ImageDecode(err)
		}
		img.Type = "JPG"
		img.Data = data
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, lherrors.ImageDecode(err)
	}
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, lherrors.ImageDecode(fmt.Errorf("re-encoding %s as png: %w", format, err))
	}
	img.Type = "PNG"
	img.Data = buf.Bytes()
	return img, nil
}

// FitRect scales an image of the given pixel size into r, preserving the
// aspect ratio and centring it.
func FitRect(r Rect, width, height float64) Rect {
	if width <= 0 || height <= 0 {
		return r
	}
	scale := min(r.W/width, r.H/height)
	w, h := width*scale, height*scale
	return Rect{
		X: r.X + (r.W-w)/2,
		Y: r.Y + (r.H-h)/2,
		W: w,
		H: h,
	}
}
