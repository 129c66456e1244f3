package template

import (
	"bytes"
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const defaultAppearance = "/Helv 0 Tf 0 g"

// Widget rectangles in PDF user space (bottom-left origin) on a Letter page
var (
	titleRect = [4]float64{72, 688, 540, 716}
	bodyRect  = [4]float64{72, 84, 540, 666}
)

// StarterOptions configures a generated letterhead template
type StarterOptions struct {
	Pages            int
	Heading          string
	TitleField       string
	BodyField        string
	TitleOnEveryPage bool
}

// DefaultStarterOptions returns a one page template with the default field names
func DefaultStarterOptions() StarterOptions {
	return StarterOptions{
		Pages:      1,
		Heading:    "Letterhead",
		TitleField: "title",
		BodyField:  "body",
	}
}

type fieldSpec struct {
	name  string
	flags int
	rect  [4]float64
	pages []int
}

// NewStarter writes a Letter size template with a header band and text
// fields for the title and body. A field shown on several pages becomes a
// parent field with one widget per page.
func NewStarter(opts StarterOptions) ([]byte, error) {
	if opts.Pages < 1 {
		return nil, fmt.Errorf("starter template needs at least one page, got %d", opts.Pages)
	}

	base, err := drawStarterPages(opts)
	if err != nil {
		return nil, err
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(base), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read starter pages: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to read starter pages: %w", err)
	}

	var specs []fieldSpec
	if opts.TitleField != "" {
		pages := []int{1}
		if opts.TitleOnEveryPage {
			pages = pageRange(opts.Pages)
		}
		specs = append(specs, fieldSpec{name: opts.TitleField, rect: titleRect, pages: pages})
	}
	if opts.BodyField != "" {
		specs = append(specs, fieldSpec{name: opts.BodyField, flags: flagMultiline, rect: bodyRect, pages: pageRange(opts.Pages)})
	}

	var fields types.Array
	for _, spec := range specs {
		ref, err := addTextField(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to add field %q: %w", spec.name, err)
		}
		fields = append(fields, *ref)
	}

	if len(fields) > 0 {
		if err := addAcroForm(ctx, fields); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to write starter template: %w", err)
	}
	return out.Bytes(), nil
}

func drawStarterPages(opts StarterOptions) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("mcp-pdf-letterhead", true)

	for i := 0; i < opts.Pages; i++ {
		pdf.AddPage()
		pdf.SetFillColor(242, 242, 247)
		pdf.Rect(0, 0, 612, 60, "F")
		if opts.Heading != "" {
			pdf.SetFont("Helvetica", "B", 18)
			pdf.Text(72, 40, opts.Heading)
		}
		pdf.SetDrawColor(90, 90, 120)
		pdf.SetLineWidth(1)
		pdf.Line(72, 60, 540, 60)
		pdf.SetLineWidth(0.5)
		pdf.Line(72, 738, 540, 738)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to draw starter pages: %w", err)
	}
	return buf.Bytes(), nil
}

// addTextField registers a text field. A single placement yields a merged
// field and widget; several yield a parent with kid widgets.
func addTextField(ctx *model.Context, spec fieldSpec) (*types.IndirectRef, error) {
	field := types.Dict{
		"FT": types.Name("Tx"),
		"T":  hexString(spec.name),
		"DA": types.StringLiteral(defaultAppearance),
	}
	if spec.flags != 0 {
		field["Ff"] = types.Integer(spec.flags)
	}

	if len(spec.pages) == 1 {
		for k, v := range widgetEntries(spec.rect) {
			field[k] = v
		}
		ref, err := ctx.IndRefForNewObject(field)
		if err != nil {
			return nil, err
		}
		if err := attachWidget(ctx, spec.pages[0], field, *ref); err != nil {
			return nil, err
		}
		return ref, nil
	}

	parentRef, err := ctx.IndRefForNewObject(field)
	if err != nil {
		return nil, err
	}
	kids := make(types.Array, 0, len(spec.pages))
	for _, page := range spec.pages {
		widget := widgetEntries(spec.rect)
		widget["Parent"] = *parentRef
		ref, err := ctx.IndRefForNewObject(widget)
		if err != nil {
			return nil, err
		}
		if err := attachWidget(ctx, page, widget, *ref); err != nil {
			return nil, err
		}
		kids = append(kids, *ref)
	}
	field["Kids"] = kids
	return parentRef, nil
}

func widgetEntries(rect [4]float64) types.Dict {
	return types.Dict{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Widget"),
		"Rect":    types.NewRectangle(rect[0], rect[1], rect[2], rect[3]).Array(),
		"F":       types.Integer(4),
	}
}

func attachWidget(ctx *model.Context, page int, widget types.Dict, ref types.IndirectRef) error {
	pageDict, pageRef, _, err := ctx.PageDict(page, false)
	if err != nil {
		return err
	}
	if pageRef != nil {
		widget["P"] = *pageRef
	}

	annots := types.Array{}
	if obj, found := pageDict.Find("Annots"); found {
		existing, err := ctx.DereferenceArray(obj)
		if err != nil {
			return err
		}
		annots = append(annots, existing...)
	}
	pageDict["Annots"] = append(annots, ref)
	return nil
}

func addAcroForm(ctx *model.Context, fields types.Array) error {
	font := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	fontRef, err := ctx.IndRefForNewObject(font)
	if err != nil {
		return err
	}

	root, err := ctx.Catalog()
	if err != nil {
		return err
	}
	root["AcroForm"] = types.Dict{
		"Fields":          fields,
		"NeedAppearances": types.Boolean(true),
		"DA":              types.StringLiteral(defaultAppearance),
		"DR": types.Dict{
			"Font": types.Dict{"Helv": *fontRef},
		},
	}
	return nil
}

func pageRange(n int) []int {
	pages := make([]int, n)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
