package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-letterhead/internal/config"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf"
)

// newTestServer builds a server rooted in a fresh temp directory
func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	cfg.OutputDir = filepath.Join(cfg.WorkDir, "out")
	cfg.ServerName = "test-server"
	cfg.MaxFileSize = 10 * 1024 * 1024
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	pdfService, err := pdf.NewService(cfg.Options(), cfg.MaxFileSize, cfg.WorkDir)
	if err != nil {
		t.Fatalf("Failed to create PDF service: %v", err)
	}
	server, err := NewServer(cfg, pdfService)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return server, cfg
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	pdfService, err := pdf.NewService(cfg.Options(), cfg.MaxFileSize, cfg.WorkDir)
	if err != nil {
		t.Fatalf("Failed to create PDF service: %v", err)
	}

	server, err := NewServer(cfg, pdfService)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.config != cfg {
		t.Error("server config not set correctly")
	}
	if server.pdfService != pdfService {
		t.Error("server pdfService not set correctly")
	}
	if server.mcpServer == nil {
		t.Error("mcpServer should be initialized")
	}

	if _, err := NewServer(cfg, nil); err == nil {
		t.Error("expected error for nil service")
	}
	if _, err := NewServer(nil, pdfService); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestServer_HandleLetterheadGenerate(t *testing.T) {
	server, cfg := newTestServer(t)

	result, err := server.handleLetterheadGenerate(context.Background(), callRequest(map[string]interface{}{
		"title":          "Quarterly Update",
		"body":           strings.Repeat("The quarter went well. ", 200),
		"wrap_mode":      "chars",
		"chars_per_line": float64(95),
		"lines_per_page": float64(20),
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	text := extractTextFromResult(result)
	wantPath := filepath.Join(cfg.OutputDir, "quarterly_update.pdf")
	if !strings.Contains(text, "Generated letter: "+wantPath) {
		t.Errorf("result should name %s, got: %s", wantPath, text)
	}
	if !strings.Contains(text, "Template: none") {
		t.Errorf("result should report plain pages, got: %s", text)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestServer_HandleLetterheadGenerate_WithTemplateAndImage(t *testing.T) {
	server, cfg := newTestServer(t)

	templatePath, err := server.pdfService.InitTemplate(pdf.InitTemplateRequest{Path: "acme.pdf", Pages: 2})
	if err != nil {
		t.Fatalf("InitTemplate() error = %v", err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	result, err := server.handleLetterheadGenerate(context.Background(), callRequest(map[string]interface{}{
		"title":         "Signed",
		"body":          "Short letter.",
		"template_path": templatePath,
		"body_field":    "message",
		"filename":      "signed letter",
		"image_base64":  "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		"image_x":       float64(400),
		"image_y":       float64(80),
		"image_width":   float64(100),
		"image_height":  float64(50),
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := extractTextFromResult(result)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}

	if !strings.Contains(text, filepath.Join(cfg.OutputDir, "signed_letter.pdf")) {
		t.Errorf("result should use the sanitized filename, got: %s", text)
	}
	if !strings.Contains(text, "Template pages: 2") {
		t.Errorf("result should report template pages, got: %s", text)
	}
	if !strings.Contains(text, "FIELD_NOT_FOUND") || !strings.Contains(text, "message") {
		t.Errorf("result should warn about the missing field, got: %s", text)
	}
}

func TestServer_HandleLetterheadGenerate_Errors(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{
			name:    "missing title",
			args:    map[string]interface{}{"body": "text"},
			wantErr: "title",
		},
		{
			name:    "missing body",
			args:    map[string]interface{}{"title": "x"},
			wantErr: "body",
		},
		{
			name:    "too many lines per page",
			args:    map[string]interface{}{"title": "x", "body": "y", "lines_per_page": float64(60)},
			wantErr: "lines per page",
		},
		{
			name:    "line width past the column",
			args:    map[string]interface{}{"title": "x", "body": "y", "max_line_width": float64(5000)},
			wantErr: "max line width",
		},
		{
			name:    "template not found",
			args:    map[string]interface{}{"title": "x", "body": "y", "template_path": "missing.pdf"},
			wantErr: "TEMPLATE_NOT_FOUND",
		},
		{
			name:    "template not base64",
			args:    map[string]interface{}{"title": "x", "body": "y", "template_base64": "%%%"},
			wantErr: "template_base64",
		},
		{
			name:    "template not a pdf",
			args:    map[string]interface{}{"title": "x", "body": "y", "template_base64": base64.StdEncoding.EncodeToString([]byte("hello"))},
			wantErr: "INVALID_TEMPLATE",
		},
		{
			name: "undecodable image",
			args: map[string]interface{}{
				"title": "x", "body": "y",
				"image_base64": base64.StdEncoding.EncodeToString([]byte("not an image")),
				"image_width":  float64(10), "image_height": float64(10),
			},
			wantErr: "IMAGE_DECODE",
		},
		{
			name:    "bad wrap mode",
			args:    map[string]interface{}{"title": "x", "body": "y", "wrap_mode": "pixels"},
			wantErr: "wrap mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleLetterheadGenerate(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected tool error, got: %s", extractTextFromResult(result))
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.wantErr) {
				t.Errorf("error %q should mention %q", text, tt.wantErr)
			}
		})
	}
}

func TestServer_HandleLetterheadTemplateFields(t *testing.T) {
	server, _ := newTestServer(t)

	if _, err := server.pdfService.InitTemplate(pdf.InitTemplateRequest{Path: "acme.pdf"}); err != nil {
		t.Fatalf("InitTemplate() error = %v", err)
	}

	result, err := server.handleLetterheadTemplateFields(context.Background(), callRequest(map[string]interface{}{
		"path":        "acme.pdf",
		"title_field": "heading",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := extractTextFromResult(result)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}

	for _, want := range []string{"Pages: 1", `Widget "title" [Tx]`, `Widget "body" [Tx] multiline`,
		"Field names: body, title", "Missing fields: heading"} {
		if !strings.Contains(text, want) {
			t.Errorf("result should contain %q, got: %s", want, text)
		}
	}

	t.Run("no template configured", func(t *testing.T) {
		result, err := server.handleLetterheadTemplateFields(context.Background(), callRequest(nil))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if !result.IsError || !strings.Contains(extractTextFromResult(result), "TEMPLATE_NOT_FOUND") {
			t.Errorf("expected TEMPLATE_NOT_FOUND, got: %s", extractTextFromResult(result))
		}
	})
}

func TestServer_HandleLetterheadInspect(t *testing.T) {
	server, _ := newTestServer(t)

	generated, err := server.pdfService.GenerateToFile(pdf.GenerateRequest{
		Title:        "Minutes",
		Body:         strings.Repeat("Item discussed. ", 100),
		WrapMode:     "chars",
		CharsPerLine: 50,
		LinesPerPage: 10,
	})
	if err != nil {
		t.Fatalf("GenerateToFile() error = %v", err)
	}

	result, err := server.handleLetterheadInspect(context.Background(), callRequest(map[string]interface{}{
		"path": generated.Path,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := extractTextFromResult(result)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "--- Page 1 ---") || !strings.Contains(text, "Minutes") {
		t.Errorf("result should contain page text, got: %s", text)
	}

	t.Run("missing path", func(t *testing.T) {
		result, _ := server.handleLetterheadInspect(context.Background(), callRequest(nil))
		if !result.IsError {
			t.Error("expected tool error for missing path")
		}
	})

	t.Run("outside working directory", func(t *testing.T) {
		result, _ := server.handleLetterheadInspect(context.Background(), callRequest(map[string]interface{}{
			"path": "/etc/hosts",
		}))
		if !result.IsError || !strings.Contains(extractTextFromResult(result), "security validation failed") {
			t.Errorf("expected security error, got: %s", extractTextFromResult(result))
		}
	})
}

func TestServer_HandleLetterheadServerInfo(t *testing.T) {
	server, cfg := newTestServer(t)

	result, err := server.handleLetterheadServerInfo(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := extractTextFromResult(result)

	for _, want := range []string{
		"test-server v1.0.0",
		"Working Directory: " + cfg.WorkDir,
		"Default Template: none",
		`title="title" body="body"`,
		"• letterhead_generate",
		"• letterhead_template_fields",
		"• letterhead_inspect",
		"• letterhead_server_info",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("server info should contain %q, got: %s", want, text)
		}
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "aGVsbG8=", "hello", false},
		{"data url", "data:application/pdf;base64,aGVsbG8=", "hello", false},
		{"surrounding whitespace", "  aGVsbG8=\n", "hello", false},
		{"invalid", "***", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBase64(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeBase64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("decodeBase64() = %q, want %q", got, tt.want)
			}
		})
	}
}

// extractTextFromResult returns the first text content of a tool result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}
