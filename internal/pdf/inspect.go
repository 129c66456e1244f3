package pdf

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Inspector reads generated PDFs back for verification
type Inspector struct {
	validator   *Validator
	maxTextSize int
}

// NewInspector creates an inspector sharing the service's size limits
func NewInspector(validator *Validator) *Inspector {
	return &Inspector{
		validator:   validator,
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// InspectFile returns page count and per-page text of a PDF on disk
func (i *Inspector) InspectFile(path string) (*InspectResult, error) {
	info, err := i.validator.ValidateFile(path)
	if err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	result := i.inspect(reader)
	result.Path = path
	result.Size = info.Size()
	return result, nil
}

// InspectBytes is InspectFile for an in-memory PDF
func (i *Inspector) InspectBytes(data []byte) (*InspectResult, error) {
	if err := i.validator.ValidateBytes(data); err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	result := i.inspect(reader)
	result.Size = int64(len(data))
	return result, nil
}

func (i *Inspector) inspect(reader *pdf.Reader) *InspectResult {
	pages := reader.NumPage()
	result := &InspectResult{
		Pages:    pages,
		PageText: make([]string, pages),
	}

	total := 0
	for n := 1; n <= pages; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Continue with other pages even if one fails
			continue
		}
		if total+len(text) > i.maxTextSize {
			break
		}
		total += len(text)
		result.PageText[n-1] = text
	}
	return result
}
