package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	LetterheadGenerateDescription = `Render a letter (title + body text) onto a letterhead template PDF.

**When to use:** Need a finished, paginated letter on company stationery from plain text.

**How it works:** The body is wrapped to the printable column (glyph metrics or a character count), split into pages, and each page gets the title, the body lines and a "Page X of Y" footer when there is more than one page. Every rendered page is stamped onto a private copy of a template page: page 1 onto template page 1, page 2 onto template page 2, and so on, reusing the last template page once the template runs out. The template's body field is removed from every page and its title field from every page but the first.

**Examples:**
• Board letter: title "Quarterly Update", body with several paragraphs separated by blank lines
• Long notice: 400 words with wrap_mode "chars" and chars_per_line 95 gives a two page letter
• Signed letter: image_path "signature.png", image_x 400, image_y 80, image_width 120, image_height 60, image_target "page", image_page 2

**Notes:** Without a template path and without a configured default, the letter is rendered on plain pages. A field name missing from the template is reported as a warning, not an error. Image coordinates are points from the bottom-left corner of the page; the image keeps its aspect ratio inside the box.`

	LetterheadTemplateFieldsDescription = `List the annotations and form fields of a letterhead template.

**When to use:** Before generating with a new template, to check that it carries the title and body fields that will be removed during rendering.

**Examples:**
• "Which fields does templates/acme.pdf have?"
• "Does the default template have a field called message?" (title_field/body_field overrides)

**Output:** page count, every annotation with page, name, type, flags (multiline) and rectangle, the sorted field names, and the configured field names the template lacks.`

	LetterheadInspectDescription = `Read a generated PDF back: page count and the plain text of every page.

**When to use:** Verify a generated letter, e.g. that the footer reads "Page 2 of 3" or that the title only appears on page 1.

**Notes:** Text drawn by the renderer is extracted; template artwork and form field values may not be.`

	LetterheadServerInfoDescription = `Show the server configuration and the available letterhead tools.

**When to use:** At the start of a session to learn the working directory, output directory, default template, field names, wrap settings and size limits.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"letterhead_generate":        LetterheadGenerateDescription,
	"letterhead_template_fields": LetterheadTemplateFieldsDescription,
	"letterhead_inspect":         LetterheadInspectDescription,
	"letterhead_server_info":     LetterheadServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
