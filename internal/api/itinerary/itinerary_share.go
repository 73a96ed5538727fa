package itinerary

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/phpdave11/gofpdf"
	"github.com/samber/lo"
	"github.com/skip2/go-qrcode"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

// Format is a share encoding of an itinerary.
type Format string

const (
	FormatText Format = "text"
	FormatICS  Format = "ics"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value to a Format; empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatICS, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported share format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatICS:
		return "text/calendar; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// ShareOptions carries data that is not part of the itinerary itself.
type ShareOptions struct {
	// ShareURL is encoded as a QR code in PDF output when set.
	ShareURL string
	Now      time.Time
}

// Encode renders it in the requested format.
func Encode(it types.Itinerary, f Format, opts ShareOptions) ([]byte, error) {
	switch f {
	case FormatText, "":
		return []byte(FormatShareText(it)), nil
	case FormatICS:
		return []byte(FormatICSCalendar(it, opts)), nil
	case FormatPDF:
		return FormatPDFDocument(it, opts)
	default:
		return nil, fmt.Errorf("unsupported share format %q", f)
	}
}

func activityLine(a types.Activity) string {
	line := fmt.Sprintf("%s: %s", a.Time, a.Description)
	if a.Location != "" {
		line += " at " + a.Location
	}
	if a.Cost != "" {
		line += fmt.Sprintf(" (%s)", a.Cost)
	}
	return line
}

// FormatShareText renders the plain-text share sheet: title, summary, one
// block per day, budget, tips and any attached flights.
func FormatShareText(it types.Itinerary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n%s\n\n", it.Title, it.Summary)

	for _, d := range it.Days {
		fmt.Fprintf(&sb, "Day %d - %s\n", d.Day, d.Date)
		for _, a := range d.Activities {
			sb.WriteString(activityLine(a))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if b := it.BudgetBreakdown; b != nil {
		sb.WriteString("Budget:\n")
		for _, kv := range budgetRows(b) {
			fmt.Fprintf(&sb, "- %s: %s\n", kv.Key, kv.Value)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Travel Tips:\n")
	for _, tip := range it.Tips {
		fmt.Fprintf(&sb, "- %s\n", tip)
	}

	if it.HasFlights() {
		sb.WriteString("\nFlights:\n")
		for _, opt := range it.Flights {
			sb.WriteString("- " + flightLine(opt) + "\n")
		}
	}
	return sb.String()
}

func budgetRows(b *types.BudgetBreakdown) []lo.Entry[string, string] {
	rows := []lo.Entry[string, string]{
		{Key: "Accommodation", Value: b.Accommodation},
		{Key: "Transportation", Value: b.Transportation},
		{Key: "Activities", Value: b.Activities},
		{Key: "Food", Value: b.Food},
		{Key: "Misc", Value: b.Misc},
		{Key: "Total", Value: b.Total},
	}
	return lo.Filter(rows, func(e lo.Entry[string, string], _ int) bool { return e.Value != "" })
}

func flightLine(opt types.FlightOption) string {
	legs := lo.Map(opt.Legs, func(l types.FlightLeg, _ int) string {
		return fmt.Sprintf("%s %s %s %s -> %s %s",
			l.Airline, l.FlightNumber,
			l.DepartureAirport.ID, l.DepartureAirport.Time,
			l.ArrivalAirport.ID, l.ArrivalAirport.Time)
	})
	line := strings.Join(legs, " / ")
	if opt.Price != "" {
		line += " (" + opt.Price + ")"
	}
	return line
}

// FormatICSCalendar renders one all-day event per itinerary day. Days whose
// date cannot be parsed are left out.
func FormatICSCalendar(it types.Itinerary, opts ShareOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//TripFusion//Itinerary//EN")
	cal.SetName(it.Title)

	for _, d := range it.Days {
		start, err := types.ParseDate(d.Date)
		if err != nil {
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("%s-day-%d@tripfusion", start.Format("20060102"), d.Day))
		ev.SetDtStampTime(now)
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		ev.SetSummary(fmt.Sprintf("%s: day %d", it.Title, d.Day))
		ev.SetDescription(strings.Join(lo.Map(d.Activities, func(a types.Activity, _ int) string {
			return activityLine(a)
		}), "\n"))
		if loc, ok := lo.Find(d.Activities, func(a types.Activity) bool { return a.Location != "" }); ok {
			ev.SetLocation(loc.Location)
		}
	}
	return cal.Serialize()
}

const (
	pdfPageWidth = 210.0
	pdfMargin    = 20.0
	pdfQRSize    = 30.0
	pdfQRGap     = 5.0
)

// headerLayout returns the width of the title block and the x of the QR
// code beside it. Without a QR code the title spans the page.
func headerLayout(withQR bool) (textWidth, qrX float64) {
	if !withQR {
		return pdfPageWidth - 2*pdfMargin, 0
	}
	qrX = pdfPageWidth - pdfMargin - pdfQRSize
	return qrX - pdfMargin - pdfQRGap, qrX
}

// FormatPDFDocument renders a printable A4 itinerary.
func FormatPDFDocument(it types.Itinerary, opts ShareOptions) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetTitle(tr(it.Title), false)
	pdf.AddPage()

	withQR := opts.ShareURL != ""
	textWidth, qrX := headerLayout(withQR)
	if withQR {
		png, err := qrcode.Encode(opts.ShareURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode share QR code: %w", err)
		}
		imgOpts := gofpdf.ImageOptions{ImageType: "png"}
		pdf.RegisterImageOptionsReader("share-qr", imgOpts, bytes.NewReader(png))
		pdf.ImageOptions("share-qr", qrX, pdfMargin, pdfQRSize, pdfQRSize, false, imgOpts, 0, "")
	}

	pdf.SetFont("Arial", "B", 20)
	pdf.MultiCell(textWidth, 10, tr(it.Title), "", "L", false)
	pdf.Ln(2)
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(textWidth, 6, tr(it.Summary), "", "L", false)
	pdf.Ln(4)
	// the day sections span the page, so they start below the QR code
	if below := pdfMargin + pdfQRSize + 4; withQR && pdf.GetY() < below {
		pdf.SetY(below)
	}

	for _, d := range it.Days {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Day %d - %s", d.Day, d.Date)), "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		for _, a := range d.Activities {
			pdf.MultiCell(0, 6, tr(activityLine(a)), "", "L", false)
		}
		pdf.Ln(3)
	}

	if b := it.BudgetBreakdown; b != nil {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, "Budget", "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		for _, kv := range budgetRows(b) {
			pdf.CellFormat(60, 6, tr(kv.Key), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(kv.Value), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	if len(it.Tips) > 0 {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, "Travel Tips", "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		for _, tip := range it.Tips {
			pdf.MultiCell(0, 6, tr("- "+tip), "", "L", false)
		}
		pdf.Ln(3)
	}

	if it.HasFlights() {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, "Flights", "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		for _, opt := range it.Flights {
			pdf.MultiCell(0, 6, tr(flightLine(opt)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render itinerary PDF: %w", err)
	}
	return buf.Bytes(), nil
}
