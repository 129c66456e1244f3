package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-pdf-letterhead/internal/config"
	"github.com/a3tai/mcp-pdf-letterhead/internal/mcp"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// newLetterheadService builds the service and checks the configured default
// template once, so a broken template stops startup instead of failing
// every generate call
func newLetterheadService(cfg *config.Config) (*pdf.Service, error) {
	service, err := pdf.NewService(cfg.Options(), cfg.MaxFileSize, cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create letterhead service: %w", err)
	}

	log.Printf("Working directory: %s", cfg.WorkDir)
	log.Printf("Output directory: %s", service.Defaults().OutputDir)

	if cfg.TemplatePath == "" {
		log.Printf("Default template: none, letters render on plain pages")
		return service, nil
	}

	fields, err := service.TemplateFields(pdf.TemplateFieldsRequest{})
	if err != nil {
		return nil, fmt.Errorf("default template %s is unusable: %w", cfg.TemplatePath, err)
	}
	log.Printf("Default template: %s (%d page(s), fields: %v)", fields.Path, fields.Pages, fields.FieldNames)
	for _, name := range fields.Missing {
		log.Printf("Warning: default template has no %q field; it will be left untouched", name)
	}
	return service, nil
}

// serve runs the MCP server until it stops on its own or, in server mode,
// until SIGINT, SIGTERM or SIGHUP arrives
func serve(cfg *config.Config, server *mcp.Server) error {
	ctx := context.Background()
	if cfg.IsServerMode() {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()
	}

	if err := server.Run(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Println("Shutdown signal received, server stopped")
	}
	return nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if version != "dev" {
		cfg.Version = version
	}

	setupLogging(cfg)
	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	service, err := newLetterheadService(cfg)
	if err != nil {
		log.Fatal(err)
	}

	server, err := mcp.NewServer(cfg, service)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if err := serve(cfg, server); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Letterhead\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
