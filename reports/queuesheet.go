// Package reports renders printable views of a shop's day.
package reports

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"

	"salonq/models"
)

var sheetColumns = []struct {
	title string
	width float64
}{
	{"#", 10},
	{"Time", 22},
	{"Service", 60},
	{"Customer", 45},
	{"Advance", 22},
	{"Status", 25},
}

// QueueSheet writes the day's queue for shop as a one-table PDF.
func QueueSheet(w io.Writer, shop models.Shop, date string, bookings []models.Booking) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s queue %s", shop.Name, date), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, shop.Name)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Queue for %s  (%d booking(s))", date, len(bookings)))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range sheetColumns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for i, b := range bookings {
		row := []string{
			fmt.Sprint(i + 1),
			b.TimeSlot,
			b.Service.Name,
			b.CustomerID,
			fmt.Sprintf("%.2f", b.Payment.Amount),
			string(b.Status),
		}
		for j, c := range sheetColumns {
			pdf.CellFormat(c.width, 7, row[j], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(bookings) == 0 {
		pdf.Cell(0, 8, "No bookings.")
	}

	return pdf.Output(w)
}
