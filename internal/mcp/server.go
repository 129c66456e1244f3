package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-letterhead/internal/config"
	"github.com/a3tai/mcp-pdf-letterhead/internal/descriptions"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/render"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	layout := render.DefaultLayout()
	generateTool := mcp.NewTool(
		"letterhead_generate",
		mcp.WithDescription(descriptions.GetToolDescription("letterhead_generate")),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Letter title, drawn bold at the top of the first page (or every page)"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Letter body; newlines separate paragraphs"),
		),
		mcp.WithString("template_path",
			mcp.Description("Template PDF inside the working directory (default: configured template)"),
		),
		mcp.WithString("template_base64",
			mcp.Description("Template PDF bytes, base64 encoded; wins over template_path"),
		),
		mcp.WithString("title_field",
			mcp.Description("Template field removed from pages after the first"),
		),
		mcp.WithString("body_field",
			mcp.Description("Template field removed from every page"),
		),
		mcp.WithString("wrap_mode",
			mcp.Description("Line wrapping strategy"),
			mcp.Enum("width", "chars"),
		),
		mcp.WithNumber("max_line_width",
			mcp.Description("Wrap width in points for width mode, at most the text column"),
			mcp.Min(1),
			mcp.Max(layout.ColumnWidth()),
		),
		mcp.WithNumber("chars_per_line",
			mcp.Description("Wrap width in characters for chars mode"),
			mcp.Min(1),
		),
		mcp.WithNumber("lines_per_page",
			mcp.Description("Body lines per page (default derives from the layout)"),
			mcp.Min(1),
			mcp.Max(float64(layout.LineCapacity())),
		),
		mcp.WithString("title_policy",
			mcp.Description("Which pages carry the title"),
			mcp.Enum("first", "all"),
		),
		mcp.WithString("filename",
			mcp.Description("Output file name (default derived from the title)"),
		),
		mcp.WithString("image_path",
			mcp.Description("Image to overlay, inside the working directory"),
		),
		mcp.WithString("image_base64",
			mcp.Description("Image bytes to overlay, base64 encoded; wins over image_path"),
		),
		mcp.WithNumber("image_x", mcp.Description("Image box left edge in points")),
		mcp.WithNumber("image_y", mcp.Description("Image box bottom edge in points, from the page bottom")),
		mcp.WithNumber("image_width", mcp.Description("Image box width in points")),
		mcp.WithNumber("image_height", mcp.Description("Image box height in points")),
		mcp.WithString("image_target",
			mcp.Description("Draw the image on one page or on all pages"),
			mcp.Enum("page", "all"),
		),
		mcp.WithNumber("image_page",
			mcp.Description("1-based page for image_target 'page' (default 1)"),
			mcp.Min(1),
		),
	)
	s.mcpServer.AddTool(generateTool, s.handleLetterheadGenerate)

	templateFieldsTool := mcp.NewTool(
		"letterhead_template_fields",
		mcp.WithDescription(descriptions.GetToolDescription("letterhead_template_fields")),
		mcp.WithString("path",
			mcp.Description("Template PDF (default: configured template)"),
		),
		mcp.WithString("title_field",
			mcp.Description("Title field name to check for"),
		),
		mcp.WithString("body_field",
			mcp.Description("Body field name to check for"),
		),
	)
	s.mcpServer.AddTool(templateFieldsTool, s.handleLetterheadTemplateFields)

	inspectTool := mcp.NewTool(
		"letterhead_inspect",
		mcp.WithDescription(descriptions.GetToolDescription("letterhead_inspect")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a generated PDF"),
		),
	)
	s.mcpServer.AddTool(inspectTool, s.handleLetterheadInspect)

	serverInfoTool := mcp.NewTool(
		"letterhead_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("letterhead_server_info")),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleLetterheadServerInfo)
}

// Handler functions
func (s *Server) handleLetterheadGenerate(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.GenerateRequest{
		Title:        title,
		Body:         body,
		TemplatePath: request.GetString("template_path", ""),
		TitleField:   request.GetString("title_field", ""),
		BodyField:    request.GetString("body_field", ""),
		WrapMode:     request.GetString("wrap_mode", ""),
		MaxLineWidth: request.GetFloat("max_line_width", 0),
		CharsPerLine: request.GetInt("chars_per_line", 0),
		LinesPerPage: request.GetInt("lines_per_page", 0),
		TitlePolicy:  request.GetString("title_policy", ""),
		Filename:     request.GetString("filename", ""),
	}

	if encoded := request.GetString("template_base64", ""); encoded != "" {
		if req.Template, err = decodeBase64(encoded); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("template_base64: %v", err)), nil
		}
	}

	if req.Image, err = imageRequest(request); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.GenerateToFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatGenerateResult(result)), nil
}

// imageRequest returns nil when the call carries no image
func imageRequest(request mcp.CallToolRequest) (*pdf.ImageRequest, error) {
	path := request.GetString("image_path", "")
	encoded := request.GetString("image_base64", "")
	if path == "" && encoded == "" {
		return nil, nil
	}

	img := &pdf.ImageRequest{
		Path:   path,
		X:      request.GetFloat("image_x", 0),
		Y:      request.GetFloat("image_y", 0),
		Width:  request.GetFloat("image_width", 0),
		Height: request.GetFloat("image_height", 0),
		Target: request.GetString("image_target", ""),
		Page:   request.GetInt("image_page", 0),
	}
	if encoded != "" {
		data, err := decodeBase64(encoded)
		if err != nil {
			return nil, fmt.Errorf("image_base64: %w", err)
		}
		img.Data = data
	}
	return img, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ";base64,"); i >= 0 {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

func (s *Server) handleLetterheadTemplateFields(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	req := pdf.TemplateFieldsRequest{
		Path:       request.GetString("path", ""),
		TitleField: request.GetString("title_field", ""),
		BodyField:  request.GetString("body_field", ""),
	}

	result, err := s.pdfService.TemplateFields(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatTemplateFieldsResult(result)), nil
}

func (s *Server) handleLetterheadInspect(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.Inspect(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatInspectResult(result)), nil
}

func (s *Server) handleLetterheadServerInfo(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	result := s.pdfService.ServerInfo(s.config.ServerName, s.config.Version)
	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatGenerateResult(result *pdf.GenerateResult) string {
	text := fmt.Sprintf("Generated letter: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Body lines: %d\n", result.Lines)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	if result.TemplatePages > 0 {
		text += fmt.Sprintf("Template pages: %d\n", result.TemplatePages)
	} else {
		text += "Template: none (plain pages)\n"
	}

	if len(result.Warnings) > 0 {
		text += fmt.Sprintf("\n⚠️  Warnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			text += fmt.Sprintf("  • %s\n", w)
		}
	}

	return text
}

func (s *Server) formatTemplateFieldsResult(result *pdf.TemplateFieldsResult) string {
	text := fmt.Sprintf("Template: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)

	if len(result.Annotations) == 0 {
		text += "\nNo annotations found\n"
	} else {
		text += fmt.Sprintf("\nAnnotations (%d):\n", len(result.Annotations))
		for _, a := range result.Annotations {
			text += fmt.Sprintf("  Page %d: %s", a.Page, a.Subtype)
			if a.Name != "" {
				text += fmt.Sprintf(" %q", a.Name)
			}
			if a.FieldType != "" {
				text += fmt.Sprintf(" [%s]", a.FieldType)
			}
			if a.Multiline() {
				text += " multiline"
			}
			text += fmt.Sprintf(" at (%.0f, %.0f, %.0f, %.0f)\n", a.Rect[0], a.Rect[1], a.Rect[2], a.Rect[3])
		}
	}

	if len(result.FieldNames) > 0 {
		text += fmt.Sprintf("\nField names: %s\n", strings.Join(result.FieldNames, ", "))
	}
	if len(result.Missing) > 0 {
		text += fmt.Sprintf("\n⚠️  Missing fields: %s (generation will warn and continue)\n",
			strings.Join(result.Missing, ", "))
	}

	return text
}

func (s *Server) formatInspectResult(result *pdf.InspectResult) string {
	text := fmt.Sprintf("PDF: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)

	for i, pageText := range result.PageText {
		text += fmt.Sprintf("\n--- Page %d ---\n%s\n", i+1, strings.TrimSpace(pageText))
	}

	return text
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Working Directory: %s\n", result.WorkDir)
	text += fmt.Sprintf("📤 Output Directory: %s\n", result.OutputDir)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n\n", result.MaxFileSize/(1024*1024))

	switch {
	case result.DefaultTemplate == "":
		text += "📄 Default Template: none (plain pages unless a template is given)\n"
	case result.TemplateFound:
		text += fmt.Sprintf("📄 Default Template: %s\n", result.DefaultTemplate)
	default:
		text += fmt.Sprintf("📄 Default Template: %s (missing)\n", result.DefaultTemplate)
	}
	text += fmt.Sprintf("🏷️  Fields: title=%q body=%q\n", result.TitleField, result.BodyField)
	text += fmt.Sprintf("↩️  Wrapping: %s (max width %.0fpt, %d chars per line)\n",
		result.WrapMode, result.MaxLineWidth, result.CharsPerLine)
	if result.LinesPerPage > 0 {
		text += fmt.Sprintf("📄 Lines per page: %d\n", result.LinesPerPage)
	} else {
		text += "📄 Lines per page: derived from layout\n"
	}
	text += fmt.Sprintf("🔠 Title policy: %s\n", result.TitlePolicy)

	text += "\n🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	if len(result.ImageFormats) > 0 {
		text += fmt.Sprintf("\n🖼️  Image Formats: %s\n", strings.Join(result.ImageFormats, ", "))
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting letterhead MCP server in stdio mode")
		log.Printf("Working directory: %s", s.config.WorkDir)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves streamable HTTP until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting letterhead MCP server on %s", s.config.Address())
		errCh <- httpServer.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
