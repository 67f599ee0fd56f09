package generators

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
)

func testPaths(t *testing.T) *common.FilesystemConfig {
	t.Helper()
	root := t.TempDir()
	return &common.FilesystemConfig{
		Sites:       filepath.Join(root, "sites"),
		HostedSites: filepath.Join(root, "hosted-sites"),
		Letters:     filepath.Join(root, "letters"),
		QRCodes:     filepath.Join(root, "qr"),
		ScraperData: filepath.Join(root, "scrapers"),
	}
}

func testGenCfg() *common.GeneratorConfig {
	return &common.GeneratorConfig{QRWidth: 128, ValidatePDF: false}
}

func siteData() map[string]interface{} {
	return map[string]interface{}{
		"main-title":   "Ada Lovelace",
		"company-name": "Initech",
		"subtitle":     "Staff Engineer",
		"about":        "I write engines.",
	}
}

func TestSiteGenerator_GenerateHTMLWritesHostedCopy(t *testing.T) {
	paths := testPaths(t)
	gen, err := NewSiteGenerator(paths, testGenCfg(), nil, arbor.NewLogger())
	require.NoError(t, err)

	path, err := gen.GenerateHTML(context.Background(), "elegant", siteData())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Ada Lovelace")
	assert.NotContains(t, string(content), "{{main-title}}", "placeholders are fully hydrated")

	hosted, err := os.ReadFile(filepath.Join(paths.HostedSites, filepath.Base(path)))
	require.NoError(t, err)
	assert.Equal(t, content, hosted, "the hosted copy mirrors the site file")
}

func TestSiteGenerator_UnknownTemplate(t *testing.T) {
	gen, err := NewSiteGenerator(testPaths(t), testGenCfg(), nil, arbor.NewLogger())
	require.NoError(t, err)

	_, err = gen.GenerateHTML(context.Background(), "vaporwave", siteData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown site template")
}

func TestSiteGenerator_NativePDF(t *testing.T) {
	paths := testPaths(t)
	gen, err := NewSiteGenerator(paths, testGenCfg(), nil, arbor.NewLogger())
	require.NoError(t, err)

	filename, err := gen.GeneratePDF(context.Background(), "elegant", siteData())
	require.NoError(t, err)

	pdf, err := os.ReadFile(filepath.Join(paths.Sites, filename))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"), "output is a PDF document")
}

func TestQRGenerator_FileAndDataURL(t *testing.T) {
	paths := testPaths(t)
	gen, err := NewQRGenerator(paths, testGenCfg(), arbor.NewLogger())
	require.NoError(t, err)

	result, err := gen.Generate("http://localhost:8085/hosted-sites/site-1.html", "elegant")
	require.NoError(t, err)

	png, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.QRCodes, result.Filename), result.Path)
	assert.Equal(t, "\x89PNG", string(png[:4]), "file is a PNG image")

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(result.DataURL, prefix))
	decoded, err := base64.StdEncoding.DecodeString(result.DataURL[len(prefix):])
	require.NoError(t, err)
	assert.Equal(t, png, decoded, "the data URL embeds the same image")
}

func TestQRGenerator_StandardStyle(t *testing.T) {
	gen, err := NewQRGenerator(testPaths(t), testGenCfg(), arbor.NewLogger())
	require.NoError(t, err)

	result, err := gen.Generate("http://localhost:8085/hosted-sites/site-2.html", "standard")
	require.NoError(t, err)
	assert.FileExists(t, result.Path)
}

func TestLetterGenerator_NativePDFEmbedsQR(t *testing.T) {
	paths := testPaths(t)
	qrGen, err := NewQRGenerator(paths, testGenCfg(), arbor.NewLogger())
	require.NoError(t, err)
	qr, err := qrGen.Generate("http://localhost:8085/hosted-sites/site-3.html", "elegant")
	require.NoError(t, err)

	gen, err := NewLetterGenerator(paths, testGenCfg(), nil, arbor.NewLogger())
	require.NoError(t, err)

	data := map[string]interface{}{
		"sender-name":     "Ada Lovelace",
		"contact-info":    "ada@example.com | +44 1234",
		"Date":            "28/08/2026",
		"company-name":    "Initech",
		"position":        "Staff Engineer",
		"intro-paragraph": "I would like to apply.",
	}
	filename, err := gen.GenerateWithQR(context.Background(), "standard", data, qr.DataURL)
	require.NoError(t, err)

	pdf, err := os.ReadFile(filepath.Join(paths.Letters, filename))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}

func TestLetterGenerator_InvalidQRDataURL(t *testing.T) {
	gen, err := NewLetterGenerator(testPaths(t), testGenCfg(), nil, arbor.NewLogger())
	require.NoError(t, err)

	_, err = gen.GenerateWithQR(context.Background(), "standard", map[string]interface{}{
		"sender-name": "Ada",
	}, "data:image/png;base64,!!!not-base64!!!")
	assert.Error(t, err)
}

func TestRenderMarkdownPDF_CoversBasicStructure(t *testing.T) {
	markdown := "# Heading\n\nA paragraph with **bold** and *italic* text.\n\n- first\n- second\n"
	pdf, err := renderMarkdownPDF(markdown, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}
