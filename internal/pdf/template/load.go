// Package template loads letterhead templates and stamps rendered pages onto them.
package template

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	lherrors "github.com/a3tai/mcp-pdf-letterhead/internal/pdf/errors"
)

var pdfHeader = []byte("%PDF-")

// Document is a parsed template together with its original bytes
type Document struct {
	ctx  *model.Context
	data []byte
}

// Load picks the template bytes for one generation. An upload always wins
// over defaultPath. With neither, it returns nil and no error: the letter is
// rendered on plain pages.
func Load(upload []byte, defaultPath string, maxSize int64) ([]byte, error) {
	if len(upload) > 0 {
		if maxSize > 0 && int64(len(upload)) > maxSize {
			return nil, lherrors.InvalidTemplate(
				fmt.Sprintf("uploaded template is %d bytes, limit is %d", len(upload), maxSize), nil)
		}
		return upload, nil
	}

	if defaultPath == "" {
		return nil, nil
	}

	info, err := os.Stat(defaultPath)
	if os.IsNotExist(err) {
		return nil, lherrors.TemplateNotFound(defaultPath)
	}
	if err != nil {
		return nil, lherrors.InvalidTemplate("cannot access template", err).WithContext(defaultPath)
	}
	if info.IsDir() {
		return nil, lherrors.InvalidTemplate("template path is a directory", nil).WithContext(defaultPath)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, lherrors.InvalidTemplate(
			fmt.Sprintf("template is %d bytes, limit is %d", info.Size(), maxSize), nil).WithContext(defaultPath)
	}

	data, err := os.ReadFile(defaultPath)
	if err != nil {
		return nil, lherrors.InvalidTemplate("cannot read template", err).WithContext(defaultPath)
	}
	return data, nil
}

// Read parses template bytes. Anything that is not a PDF with at least one
// page is an InvalidTemplate error.
func Read(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, lherrors.InvalidTemplate("template is not a PDF file (missing %PDF- header)", nil)
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, lherrors.InvalidTemplate("template could not be parsed", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, lherrors.InvalidTemplate("template page tree is unreadable", err)
	}
	if ctx.PageCount == 0 {
		return nil, lherrors.InvalidTemplate("template has no pages", nil)
	}

	return &Document{ctx: ctx, data: data}, nil
}

// PageCount returns the number of template pages
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Bytes returns the template as it was read
func (d *Document) Bytes() []byte {
	return d.data
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
