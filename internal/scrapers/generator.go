package scrapers

import (
	"bytes"
	"fmt"
	"text/template"
)

// defaultSelector matches the common markup shapes of job listing pages
const defaultSelector = "article, .job-item, .job-card, [data-job], .listing"

var scriptTemplate = template.Must(template.New("scrape").Parse(`function scrape(params) {
  var html = httpGet({{printf "%q" .URL}});
  var nodes = parse(html, {{printf "%q" .Selector}});

  var jobs = [];
  for (var i = 0; i < nodes.length; i++) {
    var node = nodes[i];
    if (!node.text) {
      continue;
    }
    jobs.push({
      title: node.text.split("\n")[0],
      description: toMarkdown(node.html),
      url: node.href || "",
      scrapedFrom: {{printf "%q" .Name}}
    });
  }

  console.log("extracted " + jobs.length + " entries");

  return {
    success: true,
    count: jobs.length,
    jobs: jobs,
    source: {{printf "%q" .Name}},
    url: {{printf "%q" .URL}}
  };
}
`))

// GenerateScript produces a starter scrape script for a new scraper. The
// script fetches the scraper's URL and extracts entries with a CSS
// selector, which the config may override under the "selector" key. It is
// a starting point for hand editing, not a finished scraper.
func GenerateScript(name, url string, config map[string]interface{}) (string, error) {
	selector := defaultSelector
	if config != nil {
		if s, ok := config["selector"].(string); ok && s != "" {
			selector = s
		}
	}

	var buf bytes.Buffer
	err := scriptTemplate.Execute(&buf, struct {
		Name     string
		URL      string
		Selector string
	}{Name: name, URL: url, Selector: selector})
	if err != nil {
		return "", fmt.Errorf("failed to generate scraper script: %w", err)
	}
	return buf.String(), nil
}
