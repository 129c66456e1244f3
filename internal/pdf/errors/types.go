package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the categories of letterhead generation failures
type ErrorType int

const (
	ErrorTypeGeneration ErrorType = iota
	ErrorTypeTemplateNotFound
	ErrorTypeInvalidTemplate
	ErrorTypeFieldNotFound
	ErrorTypeImageDecode
)

// ErrorSeverity indicates whether an error aborts a generation
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
)

// Sentinels for errors.Is comparisons. Only the Type is compared.
var (
	ErrGeneration       = &LetterheadError{Type: ErrorTypeGeneration}
	ErrTemplateNotFound = &LetterheadError{Type: ErrorTypeTemplateNotFound}
	ErrInvalidTemplate  = &LetterheadError{Type: ErrorTypeInvalidTemplate}
	ErrFieldNotFound    = &LetterheadError{Type: ErrorTypeFieldNotFound}
	ErrImageDecode      = &LetterheadError{Type: ErrorTypeImageDecode}
)

// LetterheadError is a typed error carrying the failure kind and the original cause
type LetterheadError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Context string    `json:"context,omitempty"`
	Cause   error     `json:"-"`
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTemplateNotFound:
		return "TEMPLATE_NOT_FOUND"
	case ErrorTypeInvalidTemplate:
		return "INVALID_TEMPLATE"
	case ErrorTypeFieldNotFound:
		return "FIELD_NOT_FOUND"
	case ErrorTypeImageDecode:
		return "IMAGE_DECODE"
	default:
		return "GENERATION"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	if et == ErrorTypeFieldNotFound {
		return SeverityWarning
	}
	return SeverityError
}

// Error implements the error interface
func (e *LetterheadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, ": %s", e.Context)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the underlying library error
func (e *LetterheadError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a LetterheadError of the same type
func (e *LetterheadError) Is(target error) bool {
	t, ok := target.(*LetterheadError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// IsWarning returns true if the error does not abort generation
func (e *LetterheadError) IsWarning() bool {
	return e.Type.GetSeverity() == SeverityWarning
}

// New creates a LetterheadError of the given type
func New(errorType ErrorType, message string) *LetterheadError {
	return &LetterheadError{Type: errorType, Message: message}
}

// Wrap wraps a library error as a LetterheadError
func Wrap(errorType ErrorType, message string, cause error) *LetterheadError {
	return &LetterheadError{Type: errorType, Message: message, Cause: cause}
}

// WithContext adds context to an existing LetterheadError
func (e *LetterheadError) WithContext(context string) *LetterheadError {
	e.Context = context
	return e
}

// TemplateNotFound reports a missing default template with the instruction shown to users
func TemplateNotFound(path string) *LetterheadError {
	return New(ErrorTypeTemplateNotFound,
		"no template was uploaded and the default template is missing; supply a template PDF").
		WithContext(path)
}

// InvalidTemplate reports a template that cannot be used
func InvalidTemplate(message string, cause error) *LetterheadError {
	return Wrap(ErrorTypeInvalidTemplate, message, cause)
}

// FieldNotFound reports a form field name absent from the whole template
func FieldNotFound(name string) *LetterheadError {
	return New(ErrorTypeFieldNotFound,
		fmt.Sprintf("form field %q not found in template; rendering continues without it", name))
}

// ImageDecode reports image bytes that cannot be decoded
func ImageDecode(cause error) *LetterheadError {
	return Wrap(ErrorTypeImageDecode, "image could not be decoded (JPEG, PNG, GIF, BMP, TIFF or WebP expected)", cause)
}

// Generation wraps an unexpected library failure. Errors that are already
// typed pass through unchanged.
func Generation(stage string, cause error) error {
	if cause == nil {
		return nil
	}
	var typed *LetterheadError
	if stderrors.As(cause, &typed) {
		return cause
	}
	return Wrap(ErrorTypeGeneration, fmt.Sprintf("%s failed (%T)", stage, cause), cause)
}

// Collection gathers non-fatal errors raised during a generation
type Collection struct {
	Warnings []*LetterheadError `json:"warnings"`
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{Warnings: make([]*LetterheadError, 0)}
}

// Add appends a warning to the collection
func (c *Collection) Add(err *LetterheadError) {
	if err == nil {
		return
	}
	c.Warnings = append(c.Warnings, err)
}

// Merge appends every warning of other
func (c *Collection) Merge(other *Collection) {
	if other == nil {
		return
	}
	c.Warnings = append(c.Warnings, other.Warnings...)
}

// Len returns the number of warnings
func (c *Collection) Len() int {
	return len(c.Warnings)
}

// Messages returns the warnings rendered as strings
func (c *Collection) Messages() []string {
	msgs := make([]string, 0, len(c.Warnings))
	for _, w := range c.Warnings {
		msgs = append(msgs, w.Error())
	}
	return msgs
}
