package calendar

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"garage-backend/internal/models"
)

// DaySheetPDF renders the printable schedule of one day: one table row
// per booked slot.
func DaySheetPDF(title string, view DayView) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(190, 6, tr("Programari "+view.Date), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(220, 220, 220)
	pdf.CellFormat(18, 7, "Ora", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Client", "1", 0, "C", true, 0, "")
	pdf.CellFormat(32, 7, "Telefon", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Masina", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Servicii", "1", 0, "C", true, 0, "")
	pdf.CellFormat(15, 7, "Pret", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	rows := 0
	for _, slot := range view.Slots {
		for _, e := range slot.Events {
			writeSheetRow(pdf, tr, slot.Time, e.Event)
			rows++
		}
	}
	if rows == 0 {
		pdf.CellFormat(190, 8, tr("Nicio programare"), "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render day sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheetRow(pdf *gofpdf.Fpdf, tr func(string) string, slot string, e *models.Event) {
	price := ""
	if e.Price != nil {
		price = fmt.Sprintf("%d", *e.Price)
	}
	car := e.CarInfo
	if e.MultiDay {
		car = fmt.Sprintf("%s (%d zile)", car, e.Duration)
	}
	pdf.CellFormat(18, 6, slot, "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, tr(clip(e.ClientName, 28)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(32, 6, e.ClientPhone, "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, tr(clip(car, 24)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, tr(clip(strings.Join(e.Services, ", "), 24)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(15, 6, price, "1", 1, "R", false, 0, "")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
