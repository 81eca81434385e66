package itinerary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/vietddude/packup/internal/core/domain"
)

// RenderPDF lays out a stored trip as an A4 document. Images are listed by
// caption and link; they are not embedded.
func RenderPDF(trip *domain.Trip) ([]byte, error) {
	var it domain.Itinerary
	if len(trip.Payload) > 0 {
		if err := json.Unmarshal(trip.Payload, &it); err != nil {
			return nil, fmt.Errorf("decode trip payload: %w", err)
		}
	}
	title := it.Title
	if title == "" {
		title = trip.Title
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, "Created "+trip.CreatedAt.Format("2 Jan 2006"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	for _, d := range it.Days {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("Day %d: %s", d.Day, d.Theme)), "", "L", false)

		pdf.SetFont("Helvetica", "", 10)
		if d.Details != "" {
			pdf.MultiCell(0, 5, tr(d.Details), "", "L", false)
		}
		if len(d.Places) > 0 {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr("Top places: "+strings.Join(d.Places, ", ")), "", "L", false)
		}
		for _, img := range d.Images {
			if img.PublicURL == "" {
				continue
			}
			pdf.SetFont("Helvetica", "U", 9)
			pdf.SetTextColor(30, 80, 180)
			label := img.Caption
			if label == "" {
				label = img.Query
			}
			pdf.WriteLinkString(5, tr(label), img.PublicURL)
			pdf.Ln(5)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
