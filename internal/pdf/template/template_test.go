package template

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lherrors "github.com/a3tai/mcp-pdf-letterhead/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/pagination"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/render"
)

// contentPages renders n plain pages the way a generation does
func contentPages(t *testing.T, n int) []byte {
	t.Helper()
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("paragraph %d", i+1)
	}
	c, err := render.NewFpdfCanvas(render.FontConfig{})
	require.NoError(t, err)
	doc, err := render.NewRenderer(render.DefaultLayout(), false).
		Render(c, pagination.Paginate(lines, 1), render.Options{Title: "Subject"})
	require.NoError(t, err)
	require.Equal(t, n, doc.Pages)
	return doc.Data
}

func starter(t *testing.T, opts StarterOptions) *Document {
	t.Helper()
	data, err := NewStarter(opts)
	require.NoError(t, err)
	doc, err := Read(data)
	require.NoError(t, err)
	return doc
}

// rawPDF assembles a classic xref PDF from object bodies numbered from 1
func rawPDF(objects ...string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func widgetsByPage(t *testing.T, doc *Document) map[int][]string {
	t.Helper()
	annots, err := doc.Annotations()
	require.NoError(t, err)
	out := make(map[int][]string)
	for _, a := range annots {
		if a.IsWidget() {
			out[a.Page] = append(out[a.Page], a.Name)
		}
	}
	return out
}

func mediaBox(t *testing.T, doc *Document, page int) (float64, float64) {
	t.Helper()
	_, _, inh, err := doc.ctx.PageDict(page, false)
	require.NoError(t, err)
	require.NotNil(t, inh.MediaBox)
	return inh.MediaBox.Width(), inh.MediaBox.Height()
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "letterhead.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("%PDF-1.7 on disk"), 0644))

	t.Run("upload wins over default", func(t *testing.T) {
		data, err := Load([]byte("%PDF-upload"), existing, 0)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-upload", string(data))
	})

	t.Run("default path is read", func(t *testing.T) {
		data, err := Load(nil, existing, 0)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7 on disk", string(data))
	})

	t.Run("no template configured", func(t *testing.T) {
		data, err := Load(nil, "", 0)
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("missing default template", func(t *testing.T) {
		_, err := Load(nil, filepath.Join(dir, "missing.pdf"), 0)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, lherrors.ErrTemplateNotFound))
		assert.Contains(t, err.Error(), "supply a template")
	})

	t.Run("directory is rejected", func(t *testing.T) {
		_, err := Load(nil, dir, 0)
		assert.True(t, stderrors.Is(err, lherrors.ErrInvalidTemplate))
	})

	t.Run("size limit", func(t *testing.T) {
		_, err := Load(nil, existing, 4)
		assert.True(t, stderrors.Is(err, lherrors.ErrInvalidTemplate))

		_, err = Load([]byte("%PDF-too large"), "", 4)
		assert.True(t, stderrors.Is(err, lherrors.ErrInvalidTemplate))
	})
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a pdf", []byte("hello, world")},
		{"empty", nil},
		{"broken body", []byte("%PDF-1.4\nthis is not a pdf body")},
		{"zero pages", rawPDF(
			"<< /Type /Catalog /Pages 2 0 R >>",
			"<< /Type /Pages /Kids [] /Count 0 >>",
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.data)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, lherrors.ErrInvalidTemplate), "got %v", err)
		})
	}
}

func TestStarter_Fields(t *testing.T) {
	opts := DefaultStarterOptions()
	opts.Pages = 3
	doc := starter(t, opts)

	assert.Equal(t, 3, doc.PageCount())
	assert.Equal(t, map[int][]string{
		1: {"title", "body"},
		2: {"body"},
		3: {"body"},
	}, widgetsByPage(t, doc))

	names, err := doc.FieldNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "title"}, names)

	annots, err := doc.Annotations()
	require.NoError(t, err)
	for _, a := range annots {
		assert.Equal(t, "Tx", a.FieldType)
		assert.Equal(t, a.Name == "body", a.Multiline(), a.Name)
	}
}

func TestStarter_RejectsZeroPages(t *testing.T) {
	_, err := NewStarter(StarterOptions{Pages: 0})
	assert.Error(t, err)
}

func TestMerge_PrunesFields(t *testing.T) {
	tpl := starter(t, DefaultStarterOptions())

	res, err := NewMerger(false).Merge(tpl, contentPages(t, 3), FieldRules{TitleField: "title", BodyField: "body"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 1, res.TemplatePages)
	assert.Zero(t, res.Warnings.Len())

	out, err := Read(res.Data)
	require.NoError(t, err)
	assert.Equal(t, 3, out.PageCount())
	assert.Equal(t, map[int][]string{1: {"title"}}, widgetsByPage(t, out))
}

func TestMerge_TitleOnEveryTemplatePage(t *testing.T) {
	opts := DefaultStarterOptions()
	opts.Pages = 2
	opts.TitleOnEveryPage = true
	tpl := starter(t, opts)

	res, err := NewMerger(false).Merge(tpl, contentPages(t, 4), FieldRules{TitleField: "title", BodyField: "body"})
	require.NoError(t, err)

	out, err := Read(res.Data)
	require.NoError(t, err)
	assert.Equal(t, 4, out.PageCount())
	// Kid widgets resolve to their parent's name, so the same rules apply.
	assert.Equal(t, map[int][]string{1: {"title"}}, widgetsByPage(t, out))
}

func TestMerge_ClampsToLastTemplatePage(t *testing.T) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: 595, Ht: 842})
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	tpl, err := Read(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 2, tpl.PageCount())

	res, err := NewMerger(false).Merge(tpl, contentPages(t, 4), FieldRules{})
	require.NoError(t, err)

	out, err := Read(res.Data)
	require.NoError(t, err)
	require.Equal(t, 4, out.PageCount())

	wantSizes := [][2]float64{{612, 792}, {595, 842}, {595, 842}, {595, 842}}
	for i, want := range wantSizes {
		w, h := mediaBox(t, out, i+1)
		assert.InDelta(t, want[0], w, 0.01, "page %d width", i+1)
		assert.InDelta(t, want[1], h, 0.01, "page %d height", i+1)
	}
}

func TestMerge_SinglePageKeepsTitle(t *testing.T) {
	tpl := starter(t, DefaultStarterOptions())

	res, err := NewMerger(false).Merge(tpl, contentPages(t, 1), FieldRules{TitleField: "title", BodyField: "body"})
	require.NoError(t, err)

	out, err := Read(res.Data)
	require.NoError(t, err)
	assert.Equal(t, 1, out.PageCount())
	assert.Equal(t, map[int][]string{1: {"title"}}, widgetsByPage(t, out))
}

func TestMerge_MissingFieldWarns(t *testing.T) {
	tpl := starter(t, DefaultStarterOptions())

	res, err := NewMerger(false).Merge(tpl, contentPages(t, 2), FieldRules{TitleField: "title", BodyField: "message"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Warnings.Len())

	w := res.Warnings.Warnings[0]
	assert.True(t, w.IsWarning())
	assert.True(t, stderrors.Is(w, lherrors.ErrFieldNotFound))
	assert.Contains(t, w.Error(), `"message"`)

	// The body field was not pruned since it was never named.
	out, err := Read(res.Data)
	require.NoError(t, err)
	assert.Equal(t, map[int][]string{
		1: {"title", "body"},
		2: {"body"},
	}, widgetsByPage(t, out))
}

func TestMerge_PagesAreIndependentCopies(t *testing.T) {
	tpl := starter(t, DefaultStarterOptions())

	res, err := NewMerger(false).Merge(tpl, contentPages(t, 3), FieldRules{TitleField: "title"})
	require.NoError(t, err)

	out, err := Read(res.Data)
	require.NoError(t, err)

	// Fill the body widget on page 2 only.
	pageDict, _, _, err := out.ctx.PageDict(2, false)
	require.NoError(t, err)
	obj, found := pageDict.Find("Annots")
	require.True(t, found)
	annots, err := out.ctx.DereferenceArray(obj)
	require.NoError(t, err)
	require.Len(t, annots, 1)
	widget, err := out.ctx.DereferenceDict(annots[0])
	require.NoError(t, err)
	widget["V"] = types.StringLiteral("changed")

	all, err := out.Annotations()
	require.NoError(t, err)
	values := make(map[int]string)
	for _, a := range all {
		if a.Name == "body" {
			values[a.Page] = a.Value
		}
	}
	assert.Equal(t, map[int]string{1: "", 2: "changed", 3: ""}, values)
}

func TestMerge_TemplateWithoutFields(t *testing.T) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	tpl, err := Read(buf.Bytes())
	require.NoError(t, err)

	res, err := NewMerger(false).Merge(tpl, contentPages(t, 2), FieldRules{TitleField: "title", BodyField: "body"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, res.Warnings.Len())
}

func TestFieldRules(t *testing.T) {
	rules := FieldRules{TitleField: "title", BodyField: "body"}

	tests := []struct {
		name  string
		field string
		page  int
		want  bool
	}{
		{"body on first page", "body", 0, true},
		{"body on later page", "body", 3, true},
		{"title on first page", "title", 0, false},
		{"title on later page", "title", 1, true},
		{"unrelated field", "date", 2, false},
		{"unnamed widget", "", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.prunes(tt.field, tt.page))
		})
	}
}
