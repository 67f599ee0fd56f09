package generators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/interfaces"
)

// SiteGenerator produces presentation-site artifacts: a hydrated HTML file
// (plus a publicly hosted copy) and a PDF rendition.
type SiteGenerator struct {
	paths  *common.FilesystemConfig
	genCfg *common.GeneratorConfig
	engine interfaces.RenderEngine // nil when browser rendering is disabled
	logger arbor.ILogger
}

// NewSiteGenerator creates a site generator and ensures its output directories exist
func NewSiteGenerator(paths *common.FilesystemConfig, genCfg *common.GeneratorConfig, engine interfaces.RenderEngine, logger arbor.ILogger) (*SiteGenerator, error) {
	for _, dir := range []string{paths.Sites, paths.HostedSites} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	return &SiteGenerator{
		paths:  paths,
		genCfg: genCfg,
		engine: engine,
		logger: logger,
	}, nil
}

// GenerateHTML hydrates the site template and writes the HTML file, plus a
// copy into the hosted-sites directory. Returns the output file path.
func (g *SiteGenerator) GenerateHTML(ctx context.Context, template string, data map[string]interface{}) (string, error) {
	content, err := g.hydrate(template, data)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("site-%d.html", time.Now().UnixMilli())
	outputPath := filepath.Join(g.paths.Sites, filename)

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write site HTML: %w", err)
	}

	hostedPath := filepath.Join(g.paths.HostedSites, filename)
	if err := os.WriteFile(hostedPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write hosted site copy: %w", err)
	}

	g.logger.Info().
		Str("file", filename).
		Msg("Site HTML generated")

	return outputPath, nil
}

// GeneratePDF renders the hydrated site template to PDF and returns the
// output filename. Uses the browser engine when available, otherwise the
// native renderer.
func (g *SiteGenerator) GeneratePDF(ctx context.Context, template string, data map[string]interface{}) (string, error) {
	filename := fmt.Sprintf("site-%d.pdf", time.Now().UnixMilli())
	outputPath := filepath.Join(g.paths.Sites, filename)

	var pdf []byte
	var err error
	if g.engine != nil {
		var content string
		content, err = g.hydrate(template, data)
		if err != nil {
			return "", err
		}
		pdf, err = g.engine.RenderPDF(ctx, content)
	} else {
		pdf, err = renderSitePDFNative(data)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render site PDF: %w", err)
	}

	if err := os.WriteFile(outputPath, pdf, 0644); err != nil {
		return "", fmt.Errorf("failed to write site PDF: %w", err)
	}

	if g.genCfg.ValidatePDF {
		if err := api.ValidateFile(outputPath, nil); err != nil {
			return "", fmt.Errorf("generated site PDF failed validation: %w", err)
		}
	}

	g.logger.Info().
		Str("file", filename).
		Msg("Site PDF generated")

	return filename, nil
}

func (g *SiteGenerator) hydrate(template string, data map[string]interface{}) (string, error) {
	file := siteTemplateFile(template)
	if file == "" {
		return "", fmt.Errorf("unknown site template: %s", template)
	}
	raw, err := loadTemplate(g.paths.Templates, file)
	if err != nil {
		return "", err
	}
	return hydrateTemplate(raw, data), nil
}
