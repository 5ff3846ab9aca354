package app

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/webdigest/internal/aggregate"
)

// writeReportPDF renders the report corpus as a simple PDF: one block per
// page with a bold title, a clickable URL, the description, up to five image
// links and the summary. Core fonts are cp1252, so text is translated and
// characters outside that set are replaced.
func writeReportPDF(rep aggregate.Report, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("webdigest: "+rep.Query), false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(rep.Query), "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Search: %s (%s), %d pages, %s", rep.SearchQuery, rep.Provider, len(rep.Pages), rep.StartedAt.Format("2006-01-02 15:04 MST"))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for i, p := range rep.Pages {
		title := p.Title
		if strings.TrimSpace(title) == "" {
			title = p.SearchTitle
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, title)), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 200)
		pdf.WriteLinkString(5, p.URL, p.URL)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 11)
		if p.MetaDescription != "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr(p.MetaDescription), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		}
		for _, img := range p.Images[:min(len(p.Images), 5)] {
			label := img.Alt
			if label == "" {
				label = img.Src
			}
			pdf.WriteLinkString(5, tr("[image] "+label), img.Src)
			pdf.Ln(5)
		}
		body := p.Summary
		if body == "" {
			body = truncate(p.MainText, 1000)
		}
		if body != "" {
			pdf.Ln(2)
			pdf.MultiCell(0, 5, tr(body), "", "L", false)
		}
		pdf.Ln(5)
	}

	// Write file
	return pdf.OutputFileAndClose(outPath)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
