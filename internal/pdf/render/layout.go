package render

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/pagination"
)

// US Letter in points. Fixed for every generated page.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
)

// Layout holds the fixed positions used when drawing a page. Vertical
// positions are baselines measured from the top edge.
type Layout struct {
	MarginLeft     float64
	MarginRight    float64
	TitleBaseline  float64
	BodyTop        float64
	BodyBottom     float64
	FooterBaseline float64
	LinePitch      float64
	TitleFontSize  float64
	BodyFontSize   float64
	FooterFontSize float64
}

// DefaultLayout returns one-inch side margins and an 11pt body on a 14pt pitch
func DefaultLayout() Layout {
	return Layout{
		MarginLeft:     72,
		MarginRight:    72,
		TitleBaseline:  90,
		BodyTop:        130,
		BodyBottom:     702,
		FooterBaseline: 752,
		LinePitch:      14,
		TitleFontSize:  16,
		BodyFontSize:   11,
		FooterFontSize: 9,
	}
}

// ColumnWidth is the printable width between the side margins
func (l Layout) ColumnWidth() float64 {
	return PageWidth - l.MarginLeft - l.MarginRight
}

// AvailableHeight is the vertical space holding body baselines, one pitch per line
func (l Layout) AvailableHeight() float64 {
	return l.BodyBottom - l.BodyTop + l.LinePitch
}

// LineCapacity is the most body lines a page holds above the footer band
func (l Layout) LineCapacity() int {
	return pagination.LinesPerPage(l.AvailableHeight(), l.LinePitch)
}

// TitlePolicy decides which pages carry the title
type TitlePolicy string

const (
	TitleFirstOnly TitlePolicy = "first"
	TitleAllPages  TitlePolicy = "all"
)

// ShowsTitle reports whether the page at zero-based index carries the title
func (p TitlePolicy) ShowsTitle(index int) bool {
	if p == TitleAllPages {
		return true
	}
	return index == 0
}

// ParseTitlePolicy accepts "first" or "all"; empty means first
func ParseTitlePolicy(s string) (TitlePolicy, error) {
	switch TitlePolicy(s) {
	case "", TitleFirstOnly:
		return TitleFirstOnly, nil
	case TitleAllPages:
		return TitleAllPages, nil
	default:
		return "", fmt.Errorf("invalid title policy %q (must be 'first' or 'all')", s)
	}
}

// ImageTarget decides which pages carry the overlay image
type ImageTarget string

const (
	ImageOnPage     ImageTarget = "page"
	ImageOnAllPages ImageTarget = "all"
)

// ParseImageTarget accepts "page" or "all"; empty means page
func ParseImageTarget(s string) (ImageTarget, error) {
	switch ImageTarget(s) {
	case "", ImageOnPage:
		return ImageOnPage, nil
	case ImageOnAllPages:
		return ImageOnAllPages, nil
	default:
		return "", fmt.Errorf("invalid image target %q (must be 'page' or 'all')", s)
	}
}

// Rect is a rectangle in points with a bottom-left origin
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Validate checks that the origin lies on the page and the size is positive
func (r Rect) Validate() error {
	if r.X < 0 || r.X > PageWidth {
		return fmt.Errorf("image x %.1f outside 0..%.0f", r.X, PageWidth)
	}
	if r.Y < 0 || r.Y > PageHeight {
		return fmt.Errorf("image y %.1f outside 0..%.0f", r.Y, PageHeight)
	}
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("image size %.1fx%.1f must be positive", r.W, r.H)
	}
	return nil
}

// ImagePlacement places a decoded image on one page (1-based) or every page
type ImagePlacement struct {
	Image  *Image
	Rect   Rect
	Target ImageTarget
	Page   int
}

// AppliesTo reports whether the image is drawn on the 1-based page number
func (p *ImagePlacement) AppliesTo(pageNumber int) bool {
	if p.Target == ImageOnAllPages {
		return true
	}
	return p.Page == pageNumber
}
