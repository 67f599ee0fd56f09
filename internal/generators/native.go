package generators

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// nativeRenderer converts markdown to PDF with fpdf, without a browser.
// It covers the subset letters and site summaries need: headings,
// paragraphs, emphasis and bullet lists.
type nativeRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	inList    bool
}

// renderMarkdownPDF renders markdown to A4 PDF bytes, optionally embedding
// a PNG image (the QR code) at the end of the document.
func renderMarkdownPDF(markdown string, pngImage []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pdf.SetFont("Times", "", 11)

	r := &nativeRenderer{
		pdf:       pdf,
		source:    []byte(markdown),
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
	doc := md.Parser().Parse(text.NewReader(r.source))

	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	if len(pngImage) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr-code", opts, bytes.NewReader(pngImage))
		pdf.Ln(8)
		x := pdf.GetX()
		y := pdf.GetY()
		pdf.ImageOptions("qr-code", x, y, 40, 40, false, opts, 0, "")
		pdf.SetY(y + 45)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *nativeRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		h := n.(*ast.Heading)
		if entering {
			size := 18.0 - float64(h.Level)*2
			if size < 11 {
				size = 11
			}
			r.pdf.SetFont("Times", "B", size)
		} else {
			r.pdf.Ln(8)
			r.setBodyFont()
		}
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(7)
			if !r.inList {
				r.pdf.Ln(2)
			}
		}
	case ast.KindEmphasis:
		e := n.(*ast.Emphasis)
		if e.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setBodyFont()
	case ast.KindList:
		r.inList = entering
		if !entering {
			r.pdf.Ln(2)
		}
	case ast.KindListItem:
		if entering {
			r.pdf.CellFormat(6, 5, r.translate("•"), "", 0, "L", false, 0, "")
		}
	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			r.pdf.Write(5, r.translate(string(t.Segment.Value(r.source))))
			if t.SoftLineBreak() || t.HardLineBreak() {
				r.pdf.Ln(5)
			}
		}
	}
	return ast.WalkContinue, nil
}

func (r *nativeRenderer) setBodyFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Times", style, 11)
}

// renderSitePDFNative is the no-browser fallback for the site PDF stage.
// It renders the textual site content; layout styling needs the browser
// engine.
func renderSitePDFNative(data map[string]interface{}) ([]byte, error) {
	var b bytes.Buffer
	writeLine := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n\n", args...)
	}

	if v, ok := data["main-title"]; ok && v != nil {
		writeLine("# %v", v)
	}
	if v, ok := data["subtitle"]; ok && v != nil {
		writeLine("## %v", v)
	}
	if v, ok := data["about"]; ok && v != nil {
		writeLine("%v", v)
	}

	return renderMarkdownPDF(b.String(), nil)
}
