package generators

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/ternarybob/arbor"

	"github.com/applyforge/applyforge/internal/common"
)

// QRResult holds the artifacts of one QR generation
type QRResult struct {
	Filename string
	Path     string
	DataURL  string // base64 PNG data URL for inline embedding
}

// QRGenerator produces QR code images encoding public site locators
type QRGenerator struct {
	paths  *common.FilesystemConfig
	width  int
	logger arbor.ILogger
}

// NewQRGenerator creates a QR generator and ensures its output directory exists
func NewQRGenerator(paths *common.FilesystemConfig, genCfg *common.GeneratorConfig, logger arbor.ILogger) (*QRGenerator, error) {
	if err := os.MkdirAll(paths.QRCodes, 0755); err != nil {
		return nil, fmt.Errorf("failed to create QR output directory: %w", err)
	}

	width := genCfg.QRWidth
	if width <= 0 {
		width = 200
	}

	return &QRGenerator{
		paths:  paths,
		width:  width,
		logger: logger,
	}, nil
}

// Generate encodes data into a QR PNG file plus an inline data URL.
// Style selects the color scheme: "elegant" uses the accent palette,
// anything else is plain black on white.
func (g *QRGenerator) Generate(data, style string) (*QRResult, error) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to build QR code: %w", err)
	}

	switch style {
	case "elegant":
		qr.ForegroundColor = color.RGBA{R: 0x2c, G: 0x2c, B: 0x2c, A: 0xff}
		qr.BackgroundColor = color.RGBA{R: 0xfa, G: 0xf8, B: 0xf5, A: 0xff}
	default:
		qr.ForegroundColor = color.Black
		qr.BackgroundColor = color.White
	}

	png, err := qr.PNG(g.width)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR PNG: %w", err)
	}

	filename := fmt.Sprintf("qr-%d.png", time.Now().UnixMilli())
	path := filepath.Join(g.paths.QRCodes, filename)

	if err := os.WriteFile(path, png, 0644); err != nil {
		return nil, fmt.Errorf("failed to write QR image: %w", err)
	}

	g.logger.Info().
		Str("file", filename).
		Int("width", g.width).
		Msg("QR code generated")

	return &QRResult{
		Filename: filename,
		Path:     path,
		DataURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}
