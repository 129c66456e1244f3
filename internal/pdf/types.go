package pdf

import (
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/render"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/template"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/textwrap"
)

// DefaultFilename is used when a title sanitizes to nothing
const DefaultFilename = "letterhead"

// Defaults holds the generation settings a request falls back to. It is
// built from configuration and handed to the service by value.
type Defaults struct {
	TemplatePath string
	TitleField   string
	BodyField    string
	WrapMode     textwrap.Mode
	MaxLineWidth float64
	CharsPerLine int
	LinesPerPage int // 0 derives the count from the layout
	TitlePolicy  render.TitlePolicy
	FontFile     string
	OutputDir    string
	Debug        bool
}

// ImageRequest places one raster image on the rendered pages. Data wins over
// Path. X and Y are the bottom-left corner of the box in points.
type ImageRequest struct {
	Path   string  `json:"path,omitempty"`
	Data   []byte  `json:"-"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Target string  `json:"target"` // "page" or "all"
	Page   int     `json:"page,omitempty"`
}

// GenerateRequest is one letter to render. Zero values fall back to Defaults.
type GenerateRequest struct {
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	Template     []byte        `json:"-"`
	TemplatePath string        `json:"template_path,omitempty"`
	TitleField   string        `json:"title_field,omitempty"`
	BodyField    string        `json:"body_field,omitempty"`
	WrapMode     string        `json:"wrap_mode,omitempty"`
	MaxLineWidth float64       `json:"max_line_width,omitempty"`
	CharsPerLine int           `json:"chars_per_line,omitempty"`
	LinesPerPage int           `json:"lines_per_page,omitempty"`
	TitlePolicy  string        `json:"title_policy,omitempty"`
	Image        *ImageRequest `json:"image,omitempty"`
	Filename     string        `json:"filename,omitempty"`
}

// GenerateResult is a finished letter
type GenerateResult struct {
	Data          []byte   `json:"-"`
	Filename      string   `json:"filename"`
	Path          string   `json:"path,omitempty"`
	Size          int      `json:"size"`
	Pages         int      `json:"pages"`
	TemplatePages int      `json:"template_pages"`
	Lines         int      `json:"lines"`
	Warnings      []string `json:"warnings,omitempty"`
}

// InspectResult is the read-back view of a generated PDF
type InspectResult struct {
	Path     string   `json:"path"`
	Size     int64    `json:"size"`
	Pages    int      `json:"pages"`
	PageText []string `json:"page_text"`
}

// TemplateFieldsRequest asks for the form fields of a template. An empty
// path inspects the configured default template.
type TemplateFieldsRequest struct {
	Path       string `json:"path,omitempty"`
	TitleField string `json:"title_field,omitempty"`
	BodyField  string `json:"body_field,omitempty"`
}

// TemplateFieldsResult lists template annotations and which configured
// fields are missing
type TemplateFieldsResult struct {
	Path        string                `json:"path"`
	Pages       int                   `json:"pages"`
	Annotations []template.Annotation `json:"annotations"`
	FieldNames  []string              `json:"field_names"`
	Missing     []string              `json:"missing,omitempty"`
}

// InitTemplateRequest writes a starter template
type InitTemplateRequest struct {
	Path             string `json:"path"`
	Pages            int    `json:"pages"`
	Heading          string `json:"heading,omitempty"`
	TitleOnEveryPage bool   `json:"title_on_every_page,omitempty"`
}

// ToolInfo describes one MCP tool for the server info report
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult summarizes configuration and available tools
type ServerInfoResult struct {
	ServerName      string     `json:"server_name"`
	Version         string     `json:"version"`
	WorkDir         string     `json:"work_dir"`
	OutputDir       string     `json:"output_dir"`
	DefaultTemplate string     `json:"default_template,omitempty"`
	TemplateFound   bool       `json:"template_found"`
	TitleField      string     `json:"title_field"`
	BodyField       string     `json:"body_field"`
	WrapMode        string     `json:"wrap_mode"`
	MaxLineWidth    float64    `json:"max_line_width"`
	CharsPerLine    int        `json:"chars_per_line"`
	LinesPerPage    int        `json:"lines_per_page"`
	TitlePolicy     string     `json:"title_policy"`
	MaxFileSize     int64      `json:"max_file_size"`
	ImageFormats    []string   `json:"image_formats"`
	AvailableTools  []ToolInfo `json:"available_tools"`
	UsageGuidance   string     `json:"usage_guidance"`
}
