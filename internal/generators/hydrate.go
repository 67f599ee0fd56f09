package generators

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/applyforge/applyforge/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{[a-zA-Z0-9_-]+\}\}`)

// sectionKeys are hydrated through HTML section builders rather than plain
// string substitution.
var sectionKeys = map[string]bool{
	"matching-points": true,
	"stats":           true,
}

// hydrateTemplate fills {{key}} placeholders from the data map. Complex
// section keys expand to generated HTML fragments; remaining unknown
// placeholders are cleared, never an error.
func hydrateTemplate(template string, data map[string]interface{}) string {
	result := template

	result = strings.Replace(result, "{{matching-points}}", buildMatchingPoints(data["matching-points"]), 1)
	result = strings.Replace(result, "{{stats-section}}", buildStats(data["stats"]), 1)

	for key, value := range data {
		if sectionKeys[key] {
			continue
		}
		str := ""
		if value != nil {
			str = fmt.Sprintf("%v", value)
		}
		result = strings.ReplaceAll(result, "{{"+key+"}}", str)
	}

	// Unused placeholders are left blank
	return placeholderPattern.ReplaceAllString(result, "")
}

func buildMatchingPoints(value interface{}) string {
	points, ok := value.([]models.MatchingPoint)
	if !ok {
		return ""
	}

	var b strings.Builder
	for _, p := range points {
		b.WriteString(`<div class="matching-point">`)
		b.WriteString(`<div class="matching-point-icon">` + html.EscapeString(p.Icon) + `</div>`)
		b.WriteString(`<div class="matching-point-title">` + html.EscapeString(p.Title) + `</div>`)
		b.WriteString(`<div class="matching-point-desc">` + html.EscapeString(p.Description) + `</div>`)
		b.WriteString(`</div>` + "\n")
	}
	return b.String()
}

func buildStats(value interface{}) string {
	stats, ok := value.([]models.Stat)
	if !ok {
		return ""
	}

	var b strings.Builder
	for _, s := range stats {
		b.WriteString(`<div class="stat">`)
		b.WriteString(`<div class="stat-number">` + html.EscapeString(s.Number) + `</div>`)
		b.WriteString(`<div class="stat-label">` + html.EscapeString(s.Label) + `</div>`)
		b.WriteString(`</div>` + "\n")
	}
	return b.String()
}

