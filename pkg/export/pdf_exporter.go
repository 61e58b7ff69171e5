package export

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PDFExporter renders datasets and receipts into simple PDF documents. The
// core PDF fonts have no glyphs for Romanian comma-below letters, so text is
// folded to its base letters before drawing.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType reports the MIME type of rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(Fold(title)), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, Fold(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, Fold(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

// Receipt holds the printable fields of a completed purchase.
type Receipt struct {
	Number    string
	IssuedAt  string
	Customer  string
	Email     string
	Item      string
	Credits   int
	Amount    string
	Provider  string
	Reference string
}

// RenderReceipt draws a single-page purchase receipt.
func (e *PDFExporter) RenderReceipt(r Receipt) ([]byte, error) {
	if r.Number == "" {
		return nil, fmt.Errorf("receipt number required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Vindel10", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, Fold("Chitanta nr. "+r.Number), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, Fold("Data: "+r.IssuedAt), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Client", r.Customer},
		{"Email", r.Email},
		{"Produs", r.Item},
		{"Credite", fmt.Sprintf("%d", r.Credits)},
		{"Total", r.Amount},
		{"Procesator", r.Provider},
		{"Referinta", r.Reference},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 8, Fold(row[0]), "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(125, 8, Fold(row[1]), "1", 1, "", false, 0, "")
	}

	return output(pdf)
}

// Fold strips diacritics so text renders with the core PDF fonts.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
