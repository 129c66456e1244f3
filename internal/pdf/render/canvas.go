package render

import (
	"bytes"
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/textwrap"
)

// Canvas is the drawing surface the renderer writes pages to. Coordinates
// use a top-left origin in points; y passed to Text is the baseline.
type Canvas interface {
	AddPage()
	SetFont(style string, size float64)
	StringWidth(s string) float64
	Text(x, y float64, s string)
	DrawImage(img *Image, x, y, w, h float64)
	Finish() ([]byte, error)
}

// FontConfig selects the text face. Without TTF data the Helvetica core
// font is used and text is transcoded to WinAnsi.
type FontConfig struct {
	TTF []byte
}

const (
	coreFamily = "Helvetica"
	ttfFamily  = "Letterhead"
)

// FpdfCanvas draws US Letter pages with fpdf
type FpdfCanvas struct {
	pdf       *fpdf.Fpdf
	family    string
	translate func(string) string
	images    map[string]bool
}

// NewFpdfCanvas creates a canvas with zero margins and no automatic page breaks
func NewFpdfCanvas(font FontConfig) (*FpdfCanvas, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("mcp-pdf-letterhead", true)

	c := &FpdfCanvas{
		pdf:       pdf,
		family:    coreFamily,
		translate: toWinAnsi,
		images:    make(map[string]bool),
	}

	if len(font.TTF) > 0 {
		pdf.AddUTF8FontFromBytes(ttfFamily, "", font.TTF)
		pdf.AddUTF8FontFromBytes(ttfFamily, "B", font.TTF)
		c.family = ttfFamily
		c.translate = func(s string) string { return s }
	}
	pdf.SetFont(c.family, "", 11)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to initialize pdf canvas: %w", err)
	}
	return c, nil
}

// AddPage starts a new page
func (c *FpdfCanvas) AddPage() {
	c.pdf.AddPage()
}

// SetFont sets the style ("" or "B") and size of following text
func (c *FpdfCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont(c.family, style, size)
}

// StringWidth measures s in the current font
func (c *FpdfCanvas) StringWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.translate(s))
}

// Text draws s with its baseline at y
func (c *FpdfCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.translate(s))
}

// DrawImage places img in the box whose top-left corner is (x, y). Each
// image is embedded once no matter how many pages show it.
func (c *FpdfCanvas) DrawImage(img *Image, x, y, w, h float64) {
	opts := fpdf.ImageOptions{ImageType: img.Type}
	if !c.images[img.Name] {
		c.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
		c.images[img.Name] = true
	}
	c.pdf.ImageOptions(img.Name, x, y, w, h, false, opts, 0, "")
}

// Finish serializes the document. The canvas must not be used afterwards.
func (c *FpdfCanvas) Finish() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewMeasurer returns a width function for the body font at the given size.
// It uses its own fpdf instance so measuring never disturbs a canvas.
func NewMeasurer(font FontConfig, style string, size float64) (textwrap.MeasureFunc, error) {
	c, err := NewFpdfCanvas(font)
	if err != nil {
		return nil, err
	}
	c.SetFont(style, size)
	return c.StringWidth, nil
}

// toWinAnsi transcodes UTF-8 to the code page of the PDF core fonts.
// Runes outside Windows-1252 become '?'.
func toWinAnsi(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
