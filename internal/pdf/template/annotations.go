package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Field flag bit for multiline text fields
const flagMultiline = 1 << 12

// Keys a widget may inherit from its parent field
var inheritableFieldKeys = []string{"FT", "Ff", "V", "DV", "DA", "Q", "MaxLen"}

// Annotation describes one annotation on a template page
type Annotation struct {
	Page         int        `json:"page"`
	Name         string     `json:"name,omitempty"`
	Subtype      string     `json:"subtype"`
	FieldType    string     `json:"field_type,omitempty"`
	Value        string     `json:"value,omitempty"`
	DefaultValue string     `json:"default_value,omitempty"`
	Flags        int        `json:"flags,omitempty"`
	Rect         [4]float64 `json:"rect"`
}

// IsWidget reports whether the annotation belongs to a form field
func (a Annotation) IsWidget() bool {
	return a.Subtype == "Widget"
}

// Multiline reports whether the field accepts multiple lines of text
func (a Annotation) Multiline() bool {
	return a.Flags&flagMultiline != 0
}

// Annotations scans every page and returns its annotations in page order
func (d *Document) Annotations() ([]Annotation, error) {
	var out []Annotation
	for page := 1; page <= d.ctx.PageCount; page++ {
		dicts, err := pageAnnotations(d.ctx, page)
		if err != nil {
			return nil, err
		}
		for _, a := range dicts {
			out = append(out, describeAnnotation(d.ctx, page, a))
		}
	}
	return out, nil
}

// FieldNames returns the sorted set of form field names with at least one widget
func (d *Document) FieldNames() ([]string, error) {
	annots, err := d.Annotations()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, a := range annots {
		if a.IsWidget() && a.Name != "" {
			seen[a.Name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// HasField reports whether any widget on any page carries name
func (d *Document) HasField(name string) (bool, error) {
	names, err := d.FieldNames()
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name, nil
}

func pageAnnotations(ctx *model.Context, page int) ([]types.Dict, error) {
	pageDict, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w", page, err)
	}
	obj, found := pageDict.Find("Annots")
	if !found {
		return nil, nil
	}
	arr, err := ctx.DereferenceArray(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations of page %d: %w", page, err)
	}

	dicts := make([]types.Dict, 0, len(arr))
	for _, item := range arr {
		d, err := ctx.DereferenceDict(item)
		if err != nil || d == nil {
			continue
		}
		dicts = append(dicts, d)
	}
	return dicts, nil
}

func describeAnnotation(ctx *model.Context, page int, d types.Dict) Annotation {
	a := Annotation{
		Page:    page,
		Subtype: nameEntry(ctx, d, "Subtype"),
	}
	if !a.IsWidget() {
		return a
	}

	a.Name = fieldName(ctx, d)
	if obj := inheritedEntry(ctx, d, "FT"); obj != nil {
		if ft, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
			a.FieldType = string(ft)
		}
	}
	a.Value = textValue(ctx, inheritedEntry(ctx, d, "V"))
	a.DefaultValue = textValue(ctx, inheritedEntry(ctx, d, "DV"))
	if obj := inheritedEntry(ctx, d, "Ff"); obj != nil {
		if ff, err := ctx.DereferenceInteger(obj); err == nil && ff != nil {
			a.Flags = int(*ff)
		}
	}
	if obj, found := d.Find("Rect"); found {
		if arr, err := ctx.DereferenceArray(obj); err == nil && len(arr) == 4 {
			for i, v := range arr {
				if f, err := ctx.DereferenceNumber(v); err == nil {
					a.Rect[i] = f
				}
			}
		}
	}
	return a
}

// fieldName returns the fully qualified name of the field a widget belongs to.
// Kid widgets usually carry no /T of their own.
func fieldName(ctx *model.Context, d types.Dict) string {
	var parts []string
	for depth := 0; d != nil && depth < 32; depth++ {
		if obj, found := d.Find("T"); found {
			if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil && s != "" {
				parts = append(parts, s)
			}
		}
		d = parentDict(ctx, d)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// inheritedEntry looks key up on d and then along its /Parent chain
func inheritedEntry(ctx *model.Context, d types.Dict, key string) types.Object {
	for depth := 0; d != nil && depth < 32; depth++ {
		if obj, found := d.Find(key); found {
			return obj
		}
		d = parentDict(ctx, d)
	}
	return nil
}

func parentDict(ctx *model.Context, d types.Dict) types.Dict {
	obj, found := d.Find("Parent")
	if !found {
		return nil
	}
	parent, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return parent
}

func nameEntry(ctx *model.Context, d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	name, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(name)
}

// textValue reads a field value that may be a string or a name
func textValue(ctx *model.Context, obj types.Object) string {
	if obj == nil {
		return ""
	}
	if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return s
	}
	if name, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
		return string(name)
	}
	return ""
}
