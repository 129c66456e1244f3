package template

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	lherrors "github.com/a3tai/mcp-pdf-letterhead/internal/pdf/errors"
)

const contentXObjectName = "LhContent"

// FieldRules names the form fields removed while merging. The body field
// goes on every page, the title field on every page but the first.
type FieldRules struct {
	TitleField string
	BodyField  string
}

func (r FieldRules) prunes(name string, pageIndex int) bool {
	if name == "" {
		return false
	}
	if name == r.BodyField {
		return true
	}
	return pageIndex > 0 && name == r.TitleField
}

// MergeResult is a merged document
type MergeResult struct {
	Data          []byte
	Pages         int
	TemplatePages int
	Warnings      *lherrors.Collection
}

// Merger stamps rendered content pages onto template pages
type Merger struct {
	debugMode bool
}

// NewMerger creates a merger
func NewMerger(debugMode bool) *Merger {
	return &Merger{debugMode: debugMode}
}

type sourcePage struct {
	number    int
	dict      types.Dict
	mediaBox  *types.Rectangle
	resources types.Dict
	rotate    int
	content   []byte
	annots    []types.Dict
}

type annotCopy struct {
	dict   types.Dict
	name   string
	widget bool
}

// Merge produces one output page per content page. Content page i is drawn
// over a private copy of template page min(i, T-1), so the output always has
// exactly as many pages as content.
func (m *Merger) Merge(tpl *Document, content []byte, rules FieldRules) (*MergeResult, error) {
	warnings, err := m.missingFields(tpl, rules)
	if err != nil {
		return nil, err
	}

	ctx, err := combine(tpl.data, content)
	if err != nil {
		return nil, err
	}

	tplPages := tpl.PageCount()
	contentPages := ctx.PageCount - tplPages
	if contentPages < 1 {
		return nil, lherrors.Generation("combining template and content",
			fmt.Errorf("combined document has %d page(s) for a %d page template", ctx.PageCount, tplPages))
	}

	templates := make([]*sourcePage, tplPages)
	for i := range templates {
		if templates[i], err = readSourcePage(ctx, i+1); err != nil {
			return nil, lherrors.Generation("reading template page", err)
		}
	}
	bodies := make([]*sourcePage, contentPages)
	for i := range bodies {
		if bodies[i], err = readSourcePage(ctx, tplPages+i+1); err != nil {
			return nil, lherrors.Generation("reading content page", err)
		}
	}

	pagesRef, pagesDict, err := rootPages(ctx)
	if err != nil {
		return nil, lherrors.Generation("locating page tree", err)
	}

	kids := make(types.Array, 0, contentPages)
	var fields types.Array
	for i, body := range bodies {
		tplPage := templates[min(i, tplPages-1)]
		ref, widgets, err := m.mergePage(ctx, *pagesRef, tplPage, body, i, rules)
		if err != nil {
			return nil, lherrors.Generation(fmt.Sprintf("merging page %d", i+1), err)
		}
		kids = append(kids, *ref)
		fields = append(fields, widgets...)
	}

	// The tree is flattened to exactly the merged pages; the original
	// template and content pages become unreachable.
	pagesDict["Kids"] = kids
	pagesDict["Count"] = types.Integer(contentPages)
	pagesDict.Delete("Rotate")
	ctx.PageCount = contentPages

	if err := rebuildAcroForm(ctx, fields); err != nil {
		return nil, lherrors.Generation("rebuilding form fields", err)
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, lherrors.Generation("writing merged document", err)
	}

	if m.debugMode {
		log.Printf("merged %d content page(s) onto %d template page(s), %d field(s) kept",
			contentPages, tplPages, len(fields))
	}

	return &MergeResult{
		Data:          out.Bytes(),
		Pages:         contentPages,
		TemplatePages: tplPages,
		Warnings:      warnings,
	}, nil
}

// missingFields reports configured field names that no template page carries
func (m *Merger) missingFields(tpl *Document, rules FieldRules) (*lherrors.Collection, error) {
	warnings := lherrors.NewCollection()
	names, err := tpl.FieldNames()
	if err != nil {
		return nil, lherrors.InvalidTemplate("template annotations are unreadable", err)
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	checked := make(map[string]bool)
	for _, name := range []string{rules.TitleField, rules.BodyField} {
		if name == "" || checked[name] {
			continue
		}
		checked[name] = true
		if !present[name] {
			warnings.Add(lherrors.FieldNotFound(name))
		}
	}
	return warnings, nil
}

// combine appends the content pages after the template pages in one context
func combine(template, content []byte) (*model.Context, error) {
	readers := []io.ReadSeeker{bytes.NewReader(template), bytes.NewReader(content)}
	var combined bytes.Buffer
	if err := api.MergeRaw(readers, &combined, false, newConfiguration()); err != nil {
		return nil, lherrors.Generation("combining template and content", err)
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(combined.Bytes()), newConfiguration())
	if err != nil {
		return nil, lherrors.Generation("reading combined document", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, lherrors.Generation("reading combined document", err)
	}
	return ctx, nil
}

func readSourcePage(ctx *model.Context, number int) (*sourcePage, error) {
	dict, _, inh, err := ctx.PageDict(number, false)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, fmt.Errorf("page %d not found", number)
	}

	p := &sourcePage{number: number, dict: dict}
	if inh != nil {
		p.mediaBox = inh.MediaBox
		p.resources = inh.Resources
		p.rotate = inh.Rotate
	}
	if p.mediaBox == nil {
		p.mediaBox = types.RectForWidthAndHeight(0, 0, 612, 792)
	}

	if _, found := dict.Find("Contents"); found {
		if p.content, err = ctx.PageContent(dict, number); err != nil {
			return nil, fmt.Errorf("page %d content: %w", number, err)
		}
	}

	if p.annots, err = pageAnnotations(ctx, number); err != nil {
		return nil, err
	}
	return p, nil
}

func rootPages(ctx *model.Context) (*types.IndirectRef, types.Dict, error) {
	root, err := ctx.Catalog()
	if err != nil {
		return nil, nil, err
	}
	obj, found := root.Find("Pages")
	if !found {
		return nil, nil, fmt.Errorf("catalog has no page tree")
	}
	ref, ok := obj.(types.IndirectRef)
	if !ok {
		return nil, nil, fmt.Errorf("page tree root is not an indirect object")
	}
	dict, err := ctx.DereferenceDict(ref)
	if err != nil {
		return nil, nil, err
	}
	return &ref, dict, nil
}

// mergePage builds output page index from a copy of tpl with body drawn on top.
// It returns the new page and the widgets that survived pruning.
func (m *Merger) mergePage(ctx *model.Context, parent types.IndirectRef, tpl, body *sourcePage,
	index int, rules FieldRules) (*types.IndirectRef, types.Array, error) {

	page, ok := tpl.dict.Clone().(types.Dict)
	if !ok {
		return nil, nil, fmt.Errorf("template page %d is not a dictionary", tpl.number)
	}
	page.Delete("Annots")
	page.Delete("Contents")
	page.Delete("Parent")
	page["Type"] = types.Name("Page")
	page["MediaBox"] = tpl.mediaBox.Array()
	if tpl.rotate != 0 {
		page["Rotate"] = types.Integer(tpl.rotate)
	}

	resources, err := cloneResources(tpl.resources)
	if err != nil {
		return nil, nil, err
	}
	xobjects, err := cloneSubDict(ctx, resources, "XObject")
	if err != nil {
		return nil, nil, err
	}
	formRef, err := contentForm(ctx, body)
	if err != nil {
		return nil, nil, err
	}
	formName := freeName(xobjects, contentXObjectName)
	xobjects[formName] = *formRef
	resources["XObject"] = xobjects
	page["Resources"] = resources

	var buf bytes.Buffer
	buf.WriteString("q\n")
	buf.Write(tpl.content)
	fmt.Fprintf(&buf, "\nQ\nq /%s Do Q\n", formName)
	contentsRef, err := newStream(ctx, buf.Bytes(), nil)
	if err != nil {
		return nil, nil, err
	}
	page["Contents"] = *contentsRef

	pageRef, err := ctx.IndRefForNewObject(page)
	if err != nil {
		return nil, nil, err
	}
	page["Parent"] = parent

	annots, widgets, err := m.copyAnnotations(ctx, tpl.annots, *pageRef, index, rules)
	if err != nil {
		return nil, nil, err
	}
	if len(annots) > 0 {
		page["Annots"] = annots
	}
	return pageRef, widgets, nil
}

// copyAnnotations works in two passes: it first decides which annotations
// survive, then registers a fresh copy of each survivor.
func (m *Merger) copyAnnotations(ctx *model.Context, src []types.Dict, pageRef types.IndirectRef,
	index int, rules FieldRules) (types.Array, types.Array, error) {

	survivors := make([]annotCopy, 0, len(src))
	for _, d := range src {
		c := annotCopy{dict: d, widget: nameEntry(ctx, d, "Subtype") == "Widget"}
		if c.widget {
			c.name = fieldName(ctx, d)
			if rules.prunes(c.name, index) {
				if m.debugMode {
					log.Printf("page %d: removing field %q", index+1, c.name)
				}
				continue
			}
		}
		survivors = append(survivors, c)
	}

	var annots, widgets types.Array
	for _, s := range survivors {
		d, ok := s.dict.Clone().(types.Dict)
		if !ok {
			continue
		}
		d["P"] = pageRef
		if s.widget {
			flattenField(ctx, s.dict, d)
			if s.name != "" {
				d["T"] = hexString(s.name)
			}
		}
		ref, err := ctx.IndRefForNewObject(d)
		if err != nil {
			return nil, nil, err
		}
		annots = append(annots, *ref)
		if s.widget {
			widgets = append(widgets, *ref)
		}
	}
	return annots, widgets, nil
}

// flattenField turns a kid widget copy into a standalone field by pulling in
// the entries it would inherit.
func flattenField(ctx *model.Context, src, dst types.Dict) {
	if _, found := src.Find("Parent"); !found {
		return
	}
	for _, key := range inheritableFieldKeys {
		if _, found := dst.Find(key); found {
			continue
		}
		if obj := inheritedEntry(ctx, src, key); obj != nil {
			dst[key] = obj.Clone()
		}
	}
	dst.Delete("Parent")
	dst.Delete("Kids")
}

// contentForm wraps a rendered page as a form XObject
func contentForm(ctx *model.Context, body *sourcePage) (*types.IndirectRef, error) {
	extra := types.Dict{
		"Type":    types.Name("XObject"),
		"Subtype": types.Name("Form"),
		"BBox":    body.mediaBox.Array(),
	}
	if body.resources != nil {
		extra["Resources"] = body.resources
	}
	return newStream(ctx, body.content, extra)
}

func newStream(ctx *model.Context, content []byte, extra types.Dict) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		sd.Dict[k] = v
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

func cloneResources(res types.Dict) (types.Dict, error) {
	if res == nil {
		return types.NewDict(), nil
	}
	clone, ok := res.Clone().(types.Dict)
	if !ok {
		return nil, fmt.Errorf("page resources are not a dictionary")
	}
	return clone, nil
}

// cloneSubDict returns a private copy of d[key], resolving indirect references
func cloneSubDict(ctx *model.Context, d types.Dict, key string) (types.Dict, error) {
	obj, found := d.Find(key)
	if !found {
		return types.NewDict(), nil
	}
	sub, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return types.NewDict(), nil
	}
	clone, ok := sub.Clone().(types.Dict)
	if !ok {
		return nil, fmt.Errorf("%s resources are not a dictionary", key)
	}
	return clone, nil
}

func freeName(d types.Dict, base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := d[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

func hexString(s string) types.HexLiteral {
	return types.HexLiteral(hex.EncodeToString([]byte(s)))
}

// rebuildAcroForm points the form at the surviving widget copies. Viewers
// regenerate appearances since pruned fields may have been visible.
func rebuildAcroForm(ctx *model.Context, fields types.Array) error {
	root, err := ctx.Catalog()
	if err != nil {
		return err
	}

	var form types.Dict
	if obj, found := root.Find("AcroForm"); found {
		if form, err = ctx.DereferenceDict(obj); err != nil {
			return err
		}
	}
	if form == nil {
		if len(fields) == 0 {
			return nil
		}
		form = types.NewDict()
		root["AcroForm"] = form
	}

	if fields == nil {
		fields = types.Array{}
	}
	form["Fields"] = fields
	form["NeedAppearances"] = types.Boolean(true)
	form.Delete("XFA")
	return nil
}
