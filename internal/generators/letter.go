package generators

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
	"github.com/applyforge/applyforge/internal/interfaces"
)

// LetterGenerator produces cover-letter PDFs with an embedded QR code
type LetterGenerator struct {
	paths  *common.FilesystemConfig
	genCfg *common.GeneratorConfig
	engine interfaces.RenderEngine // nil when browser rendering is disabled
	logger arbor.ILogger
}

// NewLetterGenerator creates a letter generator and ensures its output directory exists
func NewLetterGenerator(paths *common.FilesystemConfig, genCfg *common.GeneratorConfig, engine interfaces.RenderEngine, logger arbor.ILogger) (*LetterGenerator, error) {
	if err := os.MkdirAll(paths.Letters, 0755); err != nil {
		return nil, fmt.Errorf("failed to create letter output directory: %w", err)
	}

	return &LetterGenerator{
		paths:  paths,
		genCfg: genCfg,
		engine: engine,
		logger: logger,
	}, nil
}

// GenerateWithQR renders a letter from the named template, embedding the QR
// image given as a PNG data URL. Returns the output filename.
func (g *LetterGenerator) GenerateWithQR(ctx context.Context, template string, data map[string]interface{}, qrDataURL string) (string, error) {
	filename := fmt.Sprintf("letter-%d.pdf", time.Now().UnixMilli())
	outputPath := filepath.Join(g.paths.Letters, filename)

	var pdf []byte
	var err error
	if g.engine != nil {
		pdf, err = g.renderBrowser(ctx, template, data, qrDataURL)
	} else {
		pdf, err = g.renderNative(data, qrDataURL)
	}
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(outputPath, pdf, 0644); err != nil {
		return "", fmt.Errorf("failed to write letter PDF: %w", err)
	}

	if g.genCfg.ValidatePDF {
		if err := api.ValidateFile(outputPath, nil); err != nil {
			return "", fmt.Errorf("generated letter PDF failed validation: %w", err)
		}
	}

	g.logger.Info().
		Str("file", filename).
		Str("template", template).
		Msg("Letter generated")

	return filename, nil
}

func (g *LetterGenerator) renderBrowser(ctx context.Context, template string, data map[string]interface{}, qrDataURL string) ([]byte, error) {
	raw, err := loadTemplate(g.paths.Templates, letterTemplateFile(template))
	if err != nil {
		return nil, err
	}

	withQR := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		withQR[k] = v
	}
	withQR["qr-code"] = fmt.Sprintf(
		`<img src="%s" width="150" height="150" alt="QR Code" style="display: block; margin: 1rem 0;" />`,
		qrDataURL,
	)

	content := hydrateTemplate(raw, withQR)

	pdf, err := g.engine.RenderPDF(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to render letter PDF: %w", err)
	}
	return pdf, nil
}

// renderNative builds the letter as markdown and renders it with fpdf
func (g *LetterGenerator) renderNative(data map[string]interface{}, qrDataURL string) ([]byte, error) {
	str := func(key string) string {
		if v, ok := data[key]; ok && v != nil {
			return fmt.Sprintf("%v", v)
		}
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", str("sender-name"))
	if contact := str("contact-info"); contact != "" {
		fmt.Fprintf(&b, "%s\n\n", contact)
	}
	fmt.Fprintf(&b, "%s\n\n", str("Date"))
	fmt.Fprintf(&b, "**%s**, %s\n\n", str("company-name"), str("position"))
	for _, key := range []string{"intro-paragraph", "matching-description", "closing-paragraph"} {
		if p := str(key); p != "" {
			fmt.Fprintf(&b, "%s\n\n", p)
		}
	}

	var qrPNG []byte
	if idx := strings.Index(qrDataURL, "base64,"); idx >= 0 {
		decoded, err := base64.StdEncoding.DecodeString(qrDataURL[idx+len("base64,"):])
		if err != nil {
			return nil, fmt.Errorf("invalid QR data URL: %w", err)
		}
		qrPNG = decoded
	}

	return renderMarkdownPDF(b.String(), qrPNG)
}
