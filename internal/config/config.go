package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/render"
	"github.com/a3tai/mcp-pdf-letterhead/internal/pdf/textwrap"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultTitleField   = "title"
	DefaultBodyField    = "body"
	DefaultMaxLineWidth = 468.0 // letter width minus two 72pt margins
	DefaultCharsPerLine = 95

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "LETTERHEAD"
)

// Config holds all configuration for the letterhead MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Directories
	WorkDir   string
	OutputDir string

	// Letterhead defaults
	TemplatePath string
	TitleField   string
	BodyField    string
	WrapMode     string
	MaxLineWidth float64
	CharsPerLine int
	LinesPerPage int // 0 derives the count from the page layout
	TitlePolicy  string
	FontFile     string

	// Application configuration
	ConfigFile  string
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum template or image size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio,
		Host:         DefaultHost,
		Port:         DefaultPort,
		WorkDir:      currentDir,
		TitleField:   DefaultTitleField,
		BodyField:    DefaultBodyField,
		WrapMode:     string(textwrap.ModeWidth),
		MaxLineWidth: DefaultMaxLineWidth,
		CharsPerLine: DefaultCharsPerLine,
		TitlePolicy:  string(render.TitleFirstOnly),
		Version:      "1.0.0",
		ServerName:   "mcp-pdf-letterhead",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
// Flags win over environment variables, which win over the config file.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if err := readConfigFile(); err != nil {
		return nil, err
	}

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.WorkDir)
	viper.SetDefault("output", cfg.OutputDir)
	viper.SetDefault("template", cfg.TemplatePath)
	viper.SetDefault("titlefield", cfg.TitleField)
	viper.SetDefault("bodyfield", cfg.BodyField)
	viper.SetDefault("wrapmode", cfg.WrapMode)
	viper.SetDefault("maxlinewidth", cfg.MaxLineWidth)
	viper.SetDefault("charsperline", cfg.CharsPerLine)
	viper.SetDefault("linesperpage", cfg.LinesPerPage)
	viper.SetDefault("titlepolicy", cfg.TitlePolicy)
	viper.SetDefault("fontfile", cfg.FontFile)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("config", cfg.ConfigFile)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.WorkDir, "Working directory; template and image paths must be inside it")
	pflag.String("output", cfg.OutputDir, "Output directory for generated PDFs (default <dir>/out)")
	pflag.String("template", cfg.TemplatePath, "Default letterhead template PDF")
	pflag.String("titlefield", cfg.TitleField, "Template form field holding the title")
	pflag.String("bodyfield", cfg.BodyField, "Template form field holding the body")
	pflag.String("wrapmode", cfg.WrapMode, "Line wrapping: 'width' (glyph metrics) or 'chars'")
	pflag.Float64("maxlinewidth", cfg.MaxLineWidth, "Wrap width in points for width mode")
	pflag.Int("charsperline", cfg.CharsPerLine, "Wrap width in characters for chars mode")
	pflag.Int("linesperpage", cfg.LinesPerPage, "Body lines per page (0 derives from the layout)")
	pflag.String("titlepolicy", cfg.TitlePolicy, "Title placement: 'first' or 'all' pages")
	pflag.String("fontfile", cfg.FontFile, "TrueType font for body text (default Helvetica)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum template or image size in bytes")
	pflag.String("config", cfg.ConfigFile, "Optional config file (yaml, json or toml)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "output", "template", "titlefield", "bodyfield",
		"wrapmode", "maxlinewidth", "charsperline", "linesperpage", "titlepolicy",
		"fontfile", "loglevel", "maxfilesize", "config",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Letterhead - A Model Context Protocol server that renders letters onto PDF templates\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/letters --template=acme.pdf   "+
			"# default template inside the working directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --wrapmode=chars --charsperline=80        # fixed width wrapping\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_DIR          Working directory\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_OUTPUT       Output directory\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_TEMPLATE     Default template\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_TITLEFIELD   Title field name\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_BODYFIELD    Body field name\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_WRAPMODE     Wrap mode\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_LOGLEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  LETTERHEAD_MAXFILESIZE  Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// readConfigFile merges the optional config file under flags and environment
func readConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.WorkDir = viper.GetString("dir")
	cfg.OutputDir = viper.GetString("output")
	cfg.TemplatePath = viper.GetString("template")
	cfg.TitleField = viper.GetString("titlefield")
	cfg.BodyField = viper.GetString("bodyfield")
	cfg.WrapMode = viper.GetString("wrapmode")
	cfg.MaxLineWidth = viper.GetFloat64("maxlinewidth")
	cfg.CharsPerLine = viper.GetInt("charsperline")
	cfg.LinesPerPage = viper.GetInt("linesperpage")
	cfg.TitlePolicy = viper.GetString("titlepolicy")
	cfg.FontFile = viper.GetString("fontfile")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.ConfigFile = viper.GetString("config")
}

// expandPaths makes directories absolute and anchors relative template,
// output and font paths at the working directory
func (c *Config) expandPaths() {
	if c.WorkDir != "" {
		if abs, err := filepath.Abs(c.WorkDir); err == nil {
			c.WorkDir = abs
		}
	}
	if c.OutputDir == "" && c.WorkDir != "" {
		c.OutputDir = filepath.Join(c.WorkDir, "out")
	}
	c.OutputDir = c.anchor(c.OutputDir)
	c.TemplatePath = c.anchor(c.TemplatePath)
	c.FontFile = c.anchor(c.FontFile)
}

func (c *Config) anchor(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkDir, path)
}

// Validate checks if the configuration is valid. The working and output
// directories are created when missing.
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.WorkDir == "" {
		return errors.New("working directory cannot be empty")
	}
	if err := ensureDir(c.WorkDir); err != nil {
		return err
	}
	if c.OutputDir != "" {
		if err := ensureDir(c.OutputDir); err != nil {
			return err
		}
	}

	if c.TemplatePath != "" {
		if info, err := os.Stat(c.TemplatePath); err == nil && info.IsDir() {
			return fmt.Errorf("template %s is a directory", c.TemplatePath)
		}
	}

	if c.TitleField == "" || c.BodyField == "" {
		return errors.New("title and body field names cannot be empty")
	}

	if _, err := textwrap.ParseMode(c.WrapMode); err != nil {
		return err
	}
	if _, err := render.ParseTitlePolicy(c.TitlePolicy); err != nil {
		return err
	}

	layout := render.DefaultLayout()
	if c.MaxLineWidth <= 0 || c.MaxLineWidth > layout.ColumnWidth() {
		return fmt.Errorf("maximum line width must be in (0, %.0f]", layout.ColumnWidth())
	}
	if c.CharsPerLine < 1 {
		return errors.New("characters per line must be at least 1")
	}
	if c.LinesPerPage < 0 || c.LinesPerPage > layout.LineCapacity() {
		return fmt.Errorf("lines per page must be in [0, %d]", layout.LineCapacity())
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Options converts the configuration into the defaults each generation
// falls back to. Call Validate first.
func (c *Config) Options() pdf.Defaults {
	mode, _ := textwrap.ParseMode(c.WrapMode)
	policy, _ := render.ParseTitlePolicy(c.TitlePolicy)
	return pdf.Defaults{
		TemplatePath: c.TemplatePath,
		TitleField:   c.TitleField,
		BodyField:    c.BodyField,
		WrapMode:     mode,
		MaxLineWidth: c.MaxLineWidth,
		CharsPerLine: c.CharsPerLine,
		LinesPerPage: c.LinesPerPage,
		TitlePolicy:  policy,
		FontFile:     c.FontFile,
		OutputDir:    c.OutputDir,
		Debug:        c.IsDebug(),
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, WorkDir: %s, OutputDir: %s, Template: %s, "+
		"WrapMode: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.WorkDir, c.OutputDir, c.TemplatePath, c.WrapMode, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
