// Package export renders expense lists as CSV, JSON or PDF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"

	"spendview/internal/core"
)

// Format is an export file type.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	PDF  Format = "pdf"
)

// ParseFormat accepts csv, json or pdf in any case. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return CSV, nil
	case CSV, JSON, PDF:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q: use csv, json or pdf", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case PDF:
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Filename is "expenses_<YYYY-MM-DD>.<ext>".
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("expenses_%s.%s", now.Format(core.DayLayout), f)
}

// Write renders expenses in format f. cur labels PDF amounts.
func Write(w io.Writer, f Format, expenses []core.Expense, cur core.Currency, now time.Time) error {
	switch f {
	case CSV:
		return WriteCSV(w, expenses)
	case JSON:
		return WriteJSON(w, expenses)
	case PDF:
		return WritePDF(w, expenses, cur, now)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// WriteFile writes the export into dir and returns its absolute path.
func WriteFile(dir string, f Format, expenses []core.Expense, cur core.Currency, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}
	path := filepath.Join(dir, Filename(f, now))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating %s file: %w", f, err)
	}
	if err := Write(file, f, expenses, cur, now); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing %s file: %w", f, err)
	}
	return filepath.Abs(path)
}

// WriteCSV writes the header Date,Category,Amount,Notes and one row per expense.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "Category", "Amount", "Notes"}); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	for _, e := range expenses {
		record := []string{
			e.Date.CalendarDay().String(),
			csvText(e.Category),
			core.FormatPlain(e.Amount),
			csvText(e.Notes),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// csvText quotes free text that a spreadsheet would otherwise evaluate as a
// formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteJSON writes the expenses as an indented array.
func WriteJSON(w io.Writer, expenses []core.Expense) error {
	if expenses == nil {
		expenses = []core.Expense{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(expenses); err != nil {
		return fmt.Errorf("error encoding JSON data: %w", err)
	}
	return nil
}

var (
	headerColor   = [3]int{30, 41, 59}
	headerText    = [3]int{255, 255, 255}
	bodyTextColor = [3]int{51, 65, 85}
	stripeColor   = [3]int{241, 245, 249}
	pdfColumns    = []struct {
		title string
		width float64
		align string
	}{
		{"Date", 30, "L"},
		{"Category", 45, "L"},
		{"Amount", 35, "R"},
		{"Notes", 80, "L"},
	}
)

const maxNoteRunes = 48

// WritePDF writes an A4 table of expenses followed by a total row.
// Amounts carry the ISO code since the core PDF fonts lack some symbols.
func WritePDF(w io.Writer, expenses []core.Expense, cur core.Currency, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(95, 10, "Generated by spendview on "+now.Format("2006-01-02 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.Cell(0, 10, "Expense Report")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	pdf.Cell(0, 6, fmt.Sprintf("%d expenses", len(expenses)))
	pdf.Ln(10)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
		pdf.SetTextColor(headerText[0], headerText[1], headerText[2])
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 8, col.title, "", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.SetFillColor(stripeColor[0], stripeColor[1], stripeColor[2])
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	var total float64
	for i, e := range expenses {
		if pdf.GetY()+7 > pageHeight-bottom-15 {
			pdf.AddPage()
			header()
		}
		total += e.Amount
		fill := i%2 == 1
		cells := []string{
			e.Date.CalendarDay().String(),
			tr(truncate(e.Category, 28)),
			pdfMoney(e.Amount, cur),
			tr(truncate(e.Notes, maxNoteRunes)),
		}
		for j, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, cells[j], "", 0, col.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(pdfColumns[0].width+pdfColumns[1].width, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(pdfColumns[2].width, 8, pdfMoney(total, cur), "T", 0, "R", false, 0, "")
	pdf.CellFormat(pdfColumns[3].width, 8, "", "T", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}

func pdfMoney(amount float64, cur core.Currency) string {
	return string(cur) + " " + humanize.FormatFloat("#,###.##", float64(core.Cents(amount))/100)
}

func truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-3]) + "..."
}
