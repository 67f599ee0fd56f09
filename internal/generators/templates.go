package generators

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// siteTemplates maps site template names to template files
var siteTemplates = map[string]string{
	"elegant":   "presentation.html",
	"synthwave": "synthwave.html",
}

// letterTemplates maps letter template names to template files
var letterTemplates = map[string]string{
	"elegant":   "letter-christmas-elegant.html",
	"christmas": "letter-christmas-elegant.html",
	"standard":  "letter-template.html",
}

// loadTemplate resolves a template file, preferring an override directory
// when configured, falling back to the embedded defaults.
func loadTemplate(overrideDir, filename string) (string, error) {
	if overrideDir != "" {
		path := filepath.Join(overrideDir, filename)
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}

	data, err := embeddedTemplates.ReadFile("templates/" + filename)
	if err != nil {
		return "", fmt.Errorf("template %s not found: %w", filename, err)
	}
	return string(data), nil
}

// siteTemplateFile returns the template filename for a site template name,
// or empty when the name is unknown.
func siteTemplateFile(template string) string {
	return siteTemplates[template]
}

// letterTemplateFile returns the template filename for a letter template
// name, defaulting to standard for unknown names.
func letterTemplateFile(template string) string {
	if f, ok := letterTemplates[template]; ok {
		return f
	}
	return letterTemplates["standard"]
}
