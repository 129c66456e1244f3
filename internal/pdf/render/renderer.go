// Package render draws paginated letter text onto US Letter pages.
package render

import (
	"fmt"
	"log"
	"strings"

	lherrors "github.com/a3tai/mcp-pdf-letterhead/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/pagination"
)

// Document is a rendered PDF and the number of pages it holds
type Document struct {
	Data  []byte
	Pages int
}

// Options describes what goes on each page besides the body lines
type Options struct {
	Title       string
	TitlePolicy TitlePolicy
	Image       *ImagePlacement
}

// Renderer draws page groups with a fixed layout
type Renderer struct {
	layout Layout
	debug  bool
}

// NewRenderer creates a renderer for the given layout
func NewRenderer(layout Layout, debug bool) *Renderer {
	return &Renderer{layout: layout, debug: debug}
}

// Layout returns the layout pages are drawn with
func (r *Renderer) Layout() Layout {
	return r.layout
}

// Render draws one page per group onto c and serializes the result
func (r *Renderer) Render(c Canvas, groups []pagination.PageGroup, opts Options) (*Document, error) {
	if len(groups) == 0 {
		groups = pagination.Paginate(nil, 1)
	}
	total := len(groups)

	if img := opts.Image; img != nil {
		if img.Image == nil {
			return nil, lherrors.ImageDecode(fmt.Errorf("image placement without image data"))
		}
		if img.Target == ImageOnPage && (img.Page < 1 || img.Page > total) {
			return nil, lherrors.Wrap(lherrors.ErrorTypeGeneration,
				"image target page out of range",
				fmt.Errorf("page %d requested, document has %d page(s)", img.Page, total))
		}
	}

	for i, group := range groups {
		if len(group.Lines) > r.layout.LineCapacity() {
			return nil, lherrors.Wrap(lherrors.ErrorTypeGeneration,
				"page holds too many body lines",
				fmt.Errorf("page %d has %d lines, at most %d fit above the footer", i+1, len(group.Lines), r.layout.LineCapacity()))
		}
	}

	for i, group := range groups {
		c.AddPage()
		r.drawTitle(c, i, opts)
		r.drawBody(c, group.Lines)
		r.drawFooter(c, i, total)
		r.drawImage(c, i, opts.Image)
	}

	data, err := c.Finish()
	if err != nil {
		return nil, lherrors.Generation("rendering pages", err)
	}

	if r.debug {
		log.Printf("rendered %d page(s), %d bytes", total, len(data))
	}

	return &Document{Data: data, Pages: total}, nil
}

func (r *Renderer) drawTitle(c Canvas, index int, opts Options) {
	if opts.Title == "" || !opts.TitlePolicy.ShowsTitle(index) {
		return
	}
	c.SetFont("B", r.layout.TitleFontSize)
	c.Text(r.layout.MarginLeft, r.layout.TitleBaseline, fitText(c, opts.Title, r.layout.ColumnWidth()))
}

const ellipsis = "..."

// fitText shortens s with a trailing ellipsis until it fits maxWidth in the
// canvas' current font
func fitText(c Canvas, s string, maxWidth float64) string {
	if c.StringWidth(s) <= maxWidth {
		return s
	}
	runes := []rune(strings.TrimSpace(s))
	for n := len(runes) - 1; n > 0; n-- {
		candidate := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if c.StringWidth(candidate) <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func (r *Renderer) drawBody(c Canvas, lines []string) {
	c.SetFont("", r.layout.BodyFontSize)
	for k, line := range lines {
		if line == "" {
			continue
		}
		c.Text(r.layout.MarginLeft, r.layout.BodyTop+float64(k)*r.layout.LinePitch, line)
	}
}

func (r *Renderer) drawFooter(c Canvas, index, total int) {
	if total <= 1 {
		return
	}
	footer := fmt.Sprintf("Page %d of %d", index+1, total)
	c.SetFont("", r.layout.FooterFontSize)
	x := PageWidth - r.layout.MarginRight - c.StringWidth(footer)
	c.Text(x, r.layout.FooterBaseline, footer)
}

func (r *Renderer) drawImage(c Canvas, index int, placement *ImagePlacement) {
	if placement == nil || !placement.AppliesTo(index+1) {
		return
	}
	fit := FitRect(placement.Rect, placement.Image.Width, placement.Image.Height)
	// Rect is bottom-left based; the canvas wants the top-left corner.
	c.DrawImage(placement.Image, fit.X, PageHeight-fit.Y-fit.H, fit.W, fit.H)
}
