package pdf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	lherrors "github.com/a3tai/mcp-pdf-letterhead/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/pagination"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/render"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/template"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/textwrap"
)

// Service generates letterhead PDFs by orchestrating the wrapping,
// pagination, rendering and template merge components. A generation keeps
// no state between calls.
type Service struct {
	defaults      Defaults
	maxFileSize   int64
	font          render.FontConfig
	renderer      *render.Renderer
	merger        *template.Merger
	validator     *Validator
	inspector     *Inspector
	pathValidator *security.PathValidator
}

// settings are the request values after falling back to Defaults
type settings struct {
	wrapMode     textwrap.Mode
	maxLineWidth float64
	charsPerLine int
	linesPerPage int
	titlePolicy  render.TitlePolicy
	rules        template.FieldRules
}

// NewService creates a new letterhead service. Template and image paths
// must resolve inside workDir; generated files go to defaults.OutputDir.
func NewService(defaults Defaults, maxFileSize int64, workDir string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(workDir, defaults.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if defaults.OutputDir == "" {
		defaults.OutputDir = filepath.Join(pathValidator.WorkDir(), "out")
		if pathValidator, err = security.NewPathValidator(workDir, defaults.OutputDir); err != nil {
			return nil, fmt.Errorf("failed to create path validator: %w", err)
		}
	}

	var font render.FontConfig
	if defaults.FontFile != "" {
		if font.TTF, err = os.ReadFile(defaults.FontFile); err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
	}

	validator := NewValidator(maxFileSize)
	return &Service{
		defaults:      defaults,
		maxFileSize:   maxFileSize,
		font:          font,
		renderer:      render.NewRenderer(render.DefaultLayout(), defaults.Debug),
		merger:        template.NewMerger(defaults.Debug),
		validator:     validator,
		inspector:     NewInspector(validator),
		pathValidator: pathValidator,
	}, nil
}

// Defaults returns the settings requests fall back to
func (s *Service) Defaults() Defaults {
	return s.defaults
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Generate renders one letter and, when a template is available, merges it
// onto the template pages. Non-fatal problems are returned as warnings.
func (s *Service) Generate(req GenerateRequest) (*GenerateResult, error) {
	cfg, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	templateData, err := s.loadTemplate(req)
	if err != nil {
		return nil, err
	}

	lines, err := s.wrap(req.Body, cfg)
	if err != nil {
		return nil, lherrors.Generation("measuring text", err)
	}
	linesPerPage := cfg.linesPerPage
	if linesPerPage == 0 {
		linesPerPage = s.renderer.Layout().LineCapacity()
	}
	groups := pagination.Paginate(lines, linesPerPage)

	opts := render.Options{Title: req.Title, TitlePolicy: cfg.titlePolicy}
	if req.Image != nil {
		if opts.Image, err = s.imagePlacement(req.Image); err != nil {
			return nil, err
		}
	}

	canvas, err := render.NewFpdfCanvas(s.font)
	if err != nil {
		return nil, lherrors.Generation("creating canvas", err)
	}
	doc, err := s.renderer.Render(canvas, groups, opts)
	if err != nil {
		return nil, lherrors.Generation("rendering pages", err)
	}

	result := &GenerateResult{
		Data:     doc.Data,
		Filename: PDFFilename(firstNonEmpty(req.Filename, req.Title)),
		Pages:    doc.Pages,
		Lines:    len(lines),
	}

	if templateData != nil {
		tpl, err := template.Read(templateData)
		if err != nil {
			return nil, err
		}
		merged, err := s.merger.Merge(tpl, doc.Data, cfg.rules)
		if err != nil {
			return nil, lherrors.Generation("merging template", err)
		}
		result.Data = merged.Data
		result.Pages = merged.Pages
		result.TemplatePages = merged.TemplatePages
		result.Warnings = merged.Warnings.Messages()
	}
	result.Size = len(result.Data)

	if s.defaults.Debug {
		log.Printf("generated %s: %d page(s), %d line(s), %d warning(s)",
			result.Filename, result.Pages, result.Lines, len(result.Warnings))
	}
	return result, nil
}

// GenerateToFile generates a letter and writes it into the output directory.
// The file appears atomically; a failed write leaves nothing behind.
func (s *Service) GenerateToFile(req GenerateRequest) (*GenerateResult, error) {
	result, err := s.Generate(req)
	if err != nil {
		return nil, err
	}

	target, err := s.pathValidator.ResolveOutput(filepath.Join(s.defaults.OutputDir, result.Filename))
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := writeFileAtomic(target, result.Data); err != nil {
		return nil, lherrors.Generation("writing output file", err)
	}
	result.Path = target
	return result, nil
}

// Inspect reads a PDF inside the allowed directories back
func (s *Service) Inspect(path string) (*InspectResult, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.inspector.InspectFile(resolved)
}

// InspectBytes reads an in-memory PDF back
func (s *Service) InspectBytes(data []byte) (*InspectResult, error) {
	return s.inspector.InspectBytes(data)
}

// TemplateFields lists the annotations of a template and reports which of
// the title and body fields it lacks
func (s *Service) TemplateFields(req TemplateFieldsRequest) (*TemplateFieldsResult, error) {
	path := firstNonEmpty(req.Path, s.defaults.TemplatePath)
	if path == "" {
		return nil, lherrors.TemplateNotFound("")
	}
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	data, err := template.Load(nil, resolved, s.maxFileSize)
	if err != nil {
		return nil, err
	}
	tpl, err := template.Read(data)
	if err != nil {
		return nil, err
	}

	annots, err := tpl.Annotations()
	if err != nil {
		return nil, lherrors.InvalidTemplate("template annotations are unreadable", err)
	}
	names, err := tpl.FieldNames()
	if err != nil {
		return nil, lherrors.InvalidTemplate("template annotations are unreadable", err)
	}

	result := &TemplateFieldsResult{
		Path:        resolved,
		Pages:       tpl.PageCount(),
		Annotations: annots,
		FieldNames:  names,
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	for _, want := range []string{
		firstNonEmpty(req.TitleField, s.defaults.TitleField),
		firstNonEmpty(req.BodyField, s.defaults.BodyField),
	} {
		if want != "" && !present[want] {
			result.Missing = append(result.Missing, want)
		}
	}
	return result, nil
}

// InitTemplate writes a starter template with the configured field names
func (s *Service) InitTemplate(req InitTemplateRequest) (string, error) {
	target, err := s.pathValidator.ResolveOutput(req.Path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}

	opts := template.DefaultStarterOptions()
	opts.TitleField = firstNonEmpty(s.defaults.TitleField, opts.TitleField)
	opts.BodyField = firstNonEmpty(s.defaults.BodyField, opts.BodyField)
	opts.TitleOnEveryPage = req.TitleOnEveryPage
	if req.Pages > 0 {
		opts.Pages = req.Pages
	}
	if req.Heading != "" {
		opts.Heading = req.Heading
	}

	data, err := template.NewStarter(opts)
	if err != nil {
		return "", lherrors.Generation("building starter template", err)
	}
	if err := writeFileAtomic(target, data); err != nil {
		return "", lherrors.Generation("writing starter template", err)
	}
	return target, nil
}

// resolve validates request overrides and fills in defaults
func (s *Service) resolve(req GenerateRequest) (*settings, error) {
	cfg := &settings{
		wrapMode:     s.defaults.WrapMode,
		maxLineWidth: s.defaults.MaxLineWidth,
		charsPerLine: s.defaults.CharsPerLine,
		linesPerPage: s.defaults.LinesPerPage,
		titlePolicy:  s.defaults.TitlePolicy,
		rules: template.FieldRules{
			TitleField: firstNonEmpty(req.TitleField, s.defaults.TitleField),
			BodyField:  firstNonEmpty(req.BodyField, s.defaults.BodyField),
		},
	}

	if req.WrapMode != "" {
		mode, err := textwrap.ParseMode(req.WrapMode)
		if err != nil {
			return nil, err
		}
		cfg.wrapMode = mode
	}
	if cfg.wrapMode == "" {
		cfg.wrapMode = textwrap.ModeWidth
	}
	if req.TitlePolicy != "" {
		policy, err := render.ParseTitlePolicy(req.TitlePolicy)
		if err != nil {
			return nil, err
		}
		cfg.titlePolicy = policy
	}

	if req.MaxLineWidth < 0 || req.CharsPerLine < 0 || req.LinesPerPage < 0 {
		return nil, fmt.Errorf("line width, characters per line and lines per page cannot be negative")
	}
	if req.MaxLineWidth > 0 {
		cfg.maxLineWidth = req.MaxLineWidth
	}
	if req.CharsPerLine > 0 {
		cfg.charsPerLine = req.CharsPerLine
	}
	if req.LinesPerPage > 0 {
		cfg.linesPerPage = req.LinesPerPage
	}

	layout := s.renderer.Layout()
	if cfg.maxLineWidth <= 0 {
		cfg.maxLineWidth = layout.ColumnWidth()
	}
	if cfg.maxLineWidth > layout.ColumnWidth() {
		return nil, fmt.Errorf("max line width %.1fpt exceeds the %.0fpt text column", cfg.maxLineWidth, layout.ColumnWidth())
	}
	if cfg.linesPerPage > layout.LineCapacity() {
		return nil, fmt.Errorf("lines per page %d exceeds the %d lines a page holds", cfg.linesPerPage, layout.LineCapacity())
	}
	if cfg.charsPerLine <= 0 {
		cfg.charsPerLine = 95
	}
	return cfg, nil
}

func (s *Service) loadTemplate(req GenerateRequest) ([]byte, error) {
	if len(req.Template) > 0 {
		if err := s.validator.ValidateBytes(req.Template); err != nil {
			return nil, lherrors.InvalidTemplate("uploaded template rejected", err)
		}
		return req.Template, nil
	}

	path := firstNonEmpty(req.TemplatePath, s.defaults.TemplatePath)
	if path == "" {
		return nil, nil
	}
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return template.Load(nil, resolved, s.maxFileSize)
}

func (s *Service) wrap(body string, cfg *settings) ([]string, error) {
	if cfg.wrapMode == textwrap.ModeChars {
		return textwrap.WrapChars(body, cfg.charsPerLine), nil
	}
	measure, err := render.NewMeasurer(s.font, "", s.renderer.Layout().BodyFontSize)
	if err != nil {
		return nil, err
	}
	return textwrap.Wrap(body, cfg.maxLineWidth, measure), nil
}

func (s *Service) imagePlacement(req *ImageRequest) (*render.ImagePlacement, error) {
	target, err := render.ParseImageTarget(req.Target)
	if err != nil {
		return nil, err
	}
	rect := render.Rect{X: req.X, Y: req.Y, W: req.Width, H: req.Height}
	if err := rect.Validate(); err != nil {
		return nil, err
	}

	data := req.Data
	name := "image"
	if len(data) == 0 {
		if req.Path == "" {
			return nil, lherrors.ImageDecode(fmt.Errorf("no image data or path given"))
		}
		resolved, err := s.pathValidator.Resolve(req.Path)
		if err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, lherrors.ImageDecode(err).WithContext(resolved)
		}
		if err := s.validator.ValidateSize(info.Size()); err != nil {
			return nil, lherrors.ImageDecode(err).WithContext(resolved)
		}
		if data, err = os.ReadFile(resolved); err != nil {
			return nil, lherrors.ImageDecode(err).WithContext(resolved)
		}
		name = filepath.Base(resolved)
	} else if err := s.validator.ValidateSize(int64(len(data))); err != nil {
		return nil, lherrors.ImageDecode(err)
	}

	img, err := render.DecodeImage(name, data)
	if err != nil {
		return nil, err
	}
	page := req.Page
	if target == render.ImageOnPage && page == 0 {
		page = 1
	}
	return &render.ImagePlacement{Image: img, Rect: rect, Target: target, Page: page}, nil
}

// writeFileAtomic writes through a temp file in the target directory
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(path), ".pdf")+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
