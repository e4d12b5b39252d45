package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/robertarktes/travel-storefront/internal/domain"
)

// Render builds a one-page PDF receipt for a confirmed booking.
func Render(b domain.Booking) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking ID     : %s", safe(b.ID, "-")),
		fmt.Sprintf("Status         : %s", strings.ToUpper(safe(b.Status, domain.BookingStatusConfirmed))),
		fmt.Sprintf("Booked on      : %s", b.CreatedAt.Format("02 Jan 2006 15:04 MST")),
		"",
		fmt.Sprintf("Traveler       : %s", safe(b.UserName, "-")),
		fmt.Sprintf("Email          : %s", safe(b.UserEmail, "-")),
		fmt.Sprintf("Phone          : %s", safe(b.UserPhone, "-")),
		"",
		fmt.Sprintf("Booking type   : %s", safe(b.BookingType, "-")),
		fmt.Sprintf("Trip           : %s", safe(b.DestinationName, "-")),
		fmt.Sprintf("Travel date    : %s", travelDate(b)),
		fmt.Sprintf("Travelers      : %s", travelers(b)),
	}
	if b.Rooms != nil {
		lines = append(lines, fmt.Sprintf("Rooms          : %d", *b.Rooms))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Payment ID     : %s", safe(b.PaymentID, "-")),
		fmt.Sprintf("Payment method : %s", safe(b.PaymentMethod, "all")),
	)
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Total paid: "+domain.FormatPrice(b.TotalPrice, b.Currency))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Keep this receipt for your records. For changes or cancellations contact support with your booking ID.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), Filename(b), nil
}

func Filename(b domain.Booking) string {
	return fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(b.ID))
}

func travelDate(b domain.Booking) string {
	if b.Date.IsZero() {
		return "-"
	}
	return b.Date.Format("02 Jan 2006")
}

func travelers(b domain.Booking) string {
	s := fmt.Sprintf("%d adult(s)", b.Adults)
	if b.Children > 0 {
		s += fmt.Sprintf(", %d child(ren)", b.Children)
	}
	return s
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
