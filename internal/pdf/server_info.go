package pdf

import (
	"fmt"
	"os"

	"github.com/a3tai/mcp-pdf-letterhead/internal/descriptions"
)

// ImageFormats lists the overlay image formats the renderer decodes
var ImageFormats = []string{"jpeg", "png", "gif", "bmp", "tiff", "webp"}

// ServerInfo summarizes the configuration requests fall back to
func (s *Service) ServerInfo(serverName, version string) *ServerInfoResult {
	result := &ServerInfoResult{
		ServerName:      serverName,
		Version:         version,
		WorkDir:         s.pathValidator.WorkDir(),
		OutputDir:       s.defaults.OutputDir,
		DefaultTemplate: s.defaults.TemplatePath,
		TitleField:      s.defaults.TitleField,
		BodyField:       s.defaults.BodyField,
		WrapMode:        string(s.defaults.WrapMode),
		MaxLineWidth:    s.defaults.MaxLineWidth,
		CharsPerLine:    s.defaults.CharsPerLine,
		LinesPerPage:    s.defaults.LinesPerPage,
		TitlePolicy:     string(s.defaults.TitlePolicy),
		MaxFileSize:     s.maxFileSize,
		ImageFormats:    ImageFormats,
		AvailableTools:  availableTools(),
		UsageGuidance:   s.usageGuidance(),
	}

	if result.DefaultTemplate != "" {
		if resolved, err := s.pathValidator.Resolve(result.DefaultTemplate); err == nil {
			if info, err := os.Stat(resolved); err == nil && !info.IsDir() {
				result.TemplateFound = true
			}
		}
	}
	return result
}

func availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "letterhead_generate",
			Description: descriptions.GetToolDescription("letterhead_generate"),
			Usage:       "Use this tool to turn a title and body text into a paginated letter on the letterhead template.",
			Parameters: "title, body (required); template_path, title_field, body_field, wrap_mode, max_line_width, " +
				"chars_per_line, lines_per_page, title_policy, filename, image_path, image_x, image_y, " +
				"image_width, image_height, image_target, image_page (optional)",
		},
		{
			Name:        "letterhead_template_fields",
			Description: descriptions.GetToolDescription("letterhead_template_fields"),
			Usage:       "Use this tool to check a template's form fields before generating with it.",
			Parameters:  "path (optional, defaults to the configured template), title_field, body_field (optional)",
		},
		{
			Name:        "letterhead_inspect",
			Description: descriptions.GetToolDescription("letterhead_inspect"),
			Usage:       "Use this tool to verify a generated letter's page count and text.",
			Parameters:  "path (required): generated PDF inside the working or output directory",
		},
		{
			Name:        "letterhead_server_info",
			Description: descriptions.GetToolDescription("letterhead_server_info"),
			Usage:       "Use this tool to learn the server configuration.",
			Parameters:  "No parameters required",
		},
	}
}

func (s *Service) usageGuidance() string {
	return fmt.Sprintf(`Letterhead MCP Server Usage Guide:

1. CHECK THE TEMPLATE:
   - Use 'letterhead_template_fields' to confirm the template has the '%s' and '%s' fields

2. GENERATE:
   - Use 'letterhead_generate' with a title and body; blank lines separate paragraphs
   - Generated files are written to %s

3. VERIFY:
   - Use 'letterhead_inspect' on the returned path to check page count and text

IMPORTANT NOTES:
- Template and image paths must be inside %s
- Inputs up to %dMB are accepted
- Missing template fields produce warnings, not errors`,
		s.defaults.TitleField, s.defaults.BodyField, s.defaults.OutputDir,
		s.pathValidator.WorkDir(), s.maxFileSize/(1024*1024))
}
