package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-letterhead/internal/config"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf"
)

// options holds everything the command line can set
type options struct {
	cfg *config.Config

	title    string
	body     string
	bodyFile string
	filename string

	image       string
	imageX      float64
	imageY      float64
	imageWidth  float64
	imageHeight float64
	imageTarget string
	imagePage   int

	fields         string
	initTemplate   string
	pages          int
	heading        string
	titleEveryPage bool

	format string
	debug  bool
	help   bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, flags := newFlagSet(stderr)
	if err := flags.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if opts.help {
		printHelp(stdout, flags)
		return 0
	}

	log.SetOutput(io.Discard)
	if opts.debug {
		opts.cfg.LogLevel = "debug"
		log.SetOutput(stderr)
	}

	if err := opts.cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}
	service, err := pdf.NewService(opts.cfg.Options(), opts.cfg.MaxFileSize, opts.cfg.WorkDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var result interface{}
	switch {
	case opts.initTemplate != "":
		result, err = initTemplate(service, opts)
	case opts.fields != "":
		result, err = service.TemplateFields(pdf.TemplateFieldsRequest{Path: opts.fields})
	default:
		result, err = generate(service, opts, stdin)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if gen, ok := result.(*pdf.GenerateResult); ok {
		for _, w := range gen.Warnings {
			fmt.Fprintf(stderr, "Warning: %s\n", w)
		}
	}

	if err := outputResult(stdout, opts.format, result); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}
	return 0
}

func newFlagSet(stderr io.Writer) (*options, *pflag.FlagSet) {
	opts := &options{cfg: config.DefaultConfig()}
	cfg := opts.cfg

	flags := pflag.NewFlagSet("pdf_letterhead", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.StringVar(&cfg.WorkDir, "dir", cfg.WorkDir, "Working directory; template and image paths must be inside it")
	flags.StringVar(&cfg.OutputDir, "output", "", "Output directory (default <dir>/out)")
	flags.StringVar(&cfg.TemplatePath, "template", "", "Letterhead template PDF (default: plain pages)")
	flags.StringVar(&cfg.TitleField, "titlefield", cfg.TitleField, "Template form field holding the title")
	flags.StringVar(&cfg.BodyField, "bodyfield", cfg.BodyField, "Template form field holding the body")
	flags.StringVar(&cfg.WrapMode, "wrapmode", cfg.WrapMode, "Line wrapping: width or chars")
	flags.Float64Var(&cfg.MaxLineWidth, "maxlinewidth", cfg.MaxLineWidth, "Wrap width in points for width mode")
	flags.IntVar(&cfg.CharsPerLine, "charsperline", cfg.CharsPerLine, "Wrap width in characters for chars mode")
	flags.IntVar(&cfg.LinesPerPage, "linesperpage", cfg.LinesPerPage, "Body lines per page (0 derives from the layout)")
	flags.StringVar(&cfg.TitlePolicy, "titlepolicy", cfg.TitlePolicy, "Title placement: first or all")
	flags.StringVar(&cfg.FontFile, "fontfile", "", "TrueType font for body text")
	flags.Int64Var(&cfg.MaxFileSize, "maxfilesize", cfg.MaxFileSize, "Maximum template or image size in bytes")

	flags.StringVar(&opts.title, "title", "", "Letter title")
	flags.StringVar(&opts.body, "body", "", "Letter body; newlines separate paragraphs")
	flags.StringVar(&opts.bodyFile, "body-file", "", "Read the body from a file ('-' for stdin)")
	flags.StringVar(&opts.filename, "filename", "", "Output file name (default derived from the title)")

	flags.StringVar(&opts.image, "image", "", "Image to overlay")
	flags.Float64Var(&opts.imageX, "image-x", 0, "Image box left edge in points")
	flags.Float64Var(&opts.imageY, "image-y", 0, "Image box bottom edge in points")
	flags.Float64Var(&opts.imageWidth, "image-width", 0, "Image box width in points")
	flags.Float64Var(&opts.imageHeight, "image-height", 0, "Image box height in points")
	flags.StringVar(&opts.imageTarget, "image-target", "page", "Image pages: page or all")
	flags.IntVar(&opts.imagePage, "image-page", 1, "1-based page for image-target page")

	flags.StringVar(&opts.fields, "fields", "", "List the form fields of a template and exit")
	flags.StringVar(&opts.initTemplate, "init-template", "", "Write a starter template to this path and exit")
	flags.IntVar(&opts.pages, "pages", 1, "Pages of the starter template")
	flags.StringVar(&opts.heading, "heading", "", "Header text of the starter template")
	flags.BoolVar(&opts.titleEveryPage, "title-every-page", false, "Starter template carries a title field on every page")

	flags.StringVar(&opts.format, "format", "text", "Output format: text, json")
	flags.BoolVar(&opts.debug, "debug", false, "Log progress to stderr")
	flags.BoolVarP(&opts.help, "help", "h", false, "Show help message")

	return opts, flags
}

func generate(service *pdf.Service, opts *options, stdin io.Reader) (*pdf.GenerateResult, error) {
	body := opts.body
	if opts.bodyFile != "" {
		if body != "" {
			return nil, errors.New("--body and --body-file are mutually exclusive")
		}
		data, err := readBody(opts.bodyFile, stdin)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		body = string(data)
	}
	if opts.title == "" && body == "" {
		return nil, errors.New("--title or --body is required")
	}

	req := pdf.GenerateRequest{
		Title:    opts.title,
		Body:     body,
		Filename: opts.filename,
	}
	if opts.image != "" {
		req.Image = &pdf.ImageRequest{
			Path:   opts.image,
			X:      opts.imageX,
			Y:      opts.imageY,
			Width:  opts.imageWidth,
			Height: opts.imageHeight,
			Target: opts.imageTarget,
			Page:   opts.imagePage,
		}
	}
	return service.GenerateToFile(req)
}

func readBody(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// initTemplateResult reports where a starter template was written
type initTemplateResult struct {
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

func initTemplate(service *pdf.Service, opts *options) (*initTemplateResult, error) {
	path, err := service.InitTemplate(pdf.InitTemplateRequest{
		Path:             opts.initTemplate,
		Pages:            opts.pages,
		Heading:          opts.heading,
		TitleOnEveryPage: opts.titleEveryPage,
	})
	if err != nil {
		return nil, err
	}
	return &initTemplateResult{Path: path, Pages: opts.pages}, nil
}

func outputResult(w io.Writer, format string, result interface{}) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		outputText(w, result)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, result interface{}) {
	switch r := result.(type) {
	case *pdf.GenerateResult:
		fmt.Fprintf(w, "Wrote %s\n", r.Path)
		fmt.Fprintf(w, "Pages: %d (template pages: %d)\n", r.Pages, r.TemplatePages)
		fmt.Fprintf(w, "Body lines: %d\n", r.Lines)
		fmt.Fprintf(w, "Size: %d bytes\n", r.Size)
	case *pdf.TemplateFieldsResult:
		fmt.Fprintf(w, "Template: %s\n", r.Path)
		fmt.Fprintf(w, "Pages: %d\n", r.Pages)
		for _, a := range r.Annotations {
			fmt.Fprintf(w, "  page %d  %-8s %-12s %s", a.Page, a.Subtype, a.Name, a.FieldType)
			if a.Multiline() {
				fmt.Fprint(w, " multiline")
			}
			fmt.Fprintln(w)
		}
		for _, name := range r.Missing {
			fmt.Fprintf(w, "Missing field: %s\n", name)
		}
	case *initTemplateResult:
		fmt.Fprintf(w, "Wrote starter template %s (%d page(s))\n", r.Path, r.Pages)
	}
}

func printHelp(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "PDF Letterhead - Render a letter onto a letterhead template PDF")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_letterhead --title TITLE (--body TEXT | --body-file FILE) [OPTIONS]")
	fmt.Fprintln(w, "  pdf_letterhead --fields TEMPLATE")
	fmt.Fprintln(w, "  pdf_letterhead --init-template PATH [--pages N]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, flags.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_letterhead --init-template letterhead.pdf --pages 2")
	fmt.Fprintln(w, "  pdf_letterhead --template letterhead.pdf --title \"Quarterly Update\" --body-file update.txt")
	fmt.Fprintln(w, "  pdf_letterhead --fields letterhead.pdf --format json")
}
