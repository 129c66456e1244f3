package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidator_ValidateFile(t *testing.T) {
	validator := NewValidator(1024 * 1024) // 1MB limit
	tempDir := t.TempDir()

	notPDF := filepath.Join(tempDir, "garbage.pdf")
	if err := os.WriteFile(notPDF, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		errorMsg string
	}{
		{name: "empty path", path: "", errorMsg: "path cannot be empty"},
		{name: "non-existent file", path: "/non/existent/file.pdf", errorMsg: "file does not exist"},
		{name: "directory", path: tempDir, errorMsg: "is a directory"},
		{name: "unparseable pdf", path: notPDF, errorMsg: "invalid PDF file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateFile(tt.path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
			if validator.IsValidPDF(tt.path) {
				t.Errorf("IsValidPDF should be false for %s", tt.path)
			}
		})
	}
}

func TestValidator_ValidateFileInfo(t *testing.T) {
	validator := NewValidator(1024 * 1024) // 1MB limit
	tempDir := t.TempDir()

	validPDFPath := filepath.Join(tempDir, "valid.pdf")
	largePDFPath := filepath.Join(tempDir, "large.pdf")
	emptyPDFPath := filepath.Join(tempDir, "empty.pdf")
	nonPDFPath := filepath.Join(tempDir, "document.txt")

	if err := os.WriteFile(validPDFPath, make([]byte, 1024), 0o644); err != nil {
		t.Fatalf("failed to create valid PDF: %v", err)
	}
	if err := os.WriteFile(largePDFPath, make([]byte, 2*1024*1024), 0o644); err != nil {
		t.Fatalf("failed to create large PDF: %v", err)
	}
	if err := os.WriteFile(emptyPDFPath, []byte{}, 0o644); err != nil {
		t.Fatalf("failed to create empty PDF: %v", err)
	}
	if err := os.WriteFile(nonPDFPath, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("failed to create non-PDF: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		expectError bool
		errorMsg    string
	}{
		{name: "valid PDF file", filePath: validPDFPath},
		{name: "large PDF file", filePath: largePDFPath, expectError: true, errorMsg: "file too large"},
		{name: "empty PDF file", filePath: emptyPDFPath, expectError: true, errorMsg: "file is empty"},
		{name: "non-PDF file", filePath: nonPDFPath, expectError: true, errorMsg: "file is not a PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := os.Stat(tt.filePath)
			if err != nil {
				t.Fatalf("failed to stat file: %v", err)
			}

			err = validator.ValidateFileInfo(tt.filePath, info)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidator_ValidateBytes(t *testing.T) {
	validator := NewValidator(16)

	tests := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{name: "pdf header", data: []byte("%PDF-1.7\n")},
		{name: "empty", data: nil, expectError: true},
		{name: "png bytes", data: []byte("\x89PNG\r\n\x1a\n"), expectError: true},
		{name: "too large", data: []byte("%PDF-1.7 and then a lot more"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateBytes(tt.data)
			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidator_NoLimit(t *testing.T) {
	validator := NewValidator(0)
	if err := validator.ValidateSize(1 << 40); err != nil {
		t.Errorf("zero limit should accept any size: %v", err)
	}
}
