package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quotedesk/quotedesk/internal/quote"
	"github.com/xuri/excelize/v2"
)

func sampleQuotation() quote.Quotation {
	return quote.Quotation{
		ID:       "1700000000000",
		Number:   "Q-20250314-1234",
		Date:     "2025-03-14",
		Customer: "Acme Ltd",
		Contact:  "Jo",
		Address:  "1 Main St",
		Notes:    "Valid for 30 days",
		Items: []quote.LineItem{
			{Description: "Widget", Quantity: 2, Price: 50, Total: 100},
			{Description: "Gadget", Quantity: 1, Price: 25, Total: 25, Remark: "blue"},
		},
		Total: 125,
	}
}

func TestTextLayout(t *testing.T) {
	out := Text(sampleQuotation())

	for _, want := range []string{
		"=== Quotation ===",
		"Number: Q-20250314-1234",
		"Customer: Acme Ltd",
		"1 | Widget | 2 | 50 | 100 | \n",
		"2 | Gadget | 1 | 25 | 25 | blue\n",
		"Total: 125",
		"Notes:\nValid for 30 days",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteText(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteText(sampleQuotation(), dir)
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if filepath.Base(path) != "quotation_Q-20250314-1234.txt" {
		t.Errorf("unexpected file name %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Total: 125") {
		t.Error("written file missing total line")
	}
}

func TestWriteExcel(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteExcel(sampleQuotation(), dir)
	if err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}
	if filepath.Base(path) != "quotation_Q-20250314-1234.xlsx" {
		t.Errorf("unexpected file name %q", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	checks := map[string]string{
		"A1": "Quotation",
		"B2": "Q-20250314-1234",
		"B3": "Acme Ltd",
		"B7": "Widget",
		"E7": "100",
		"F8": "blue",
		"E9": "125",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue(sheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Errorf("cell %s = %q, want %q", cell, got, want)
		}
	}
}

func TestPrintHTML(t *testing.T) {
	doc, err := PrintHTML(sampleQuotation())
	if err != nil {
		t.Fatalf("PrintHTML: %v", err)
	}
	for _, want := range []string{
		"<title>Quotation - Acme Ltd</title>",
		"<td>Widget</td>",
		"Total: 125",
		"Customer Signature",
		"window.print()",
		"Valid for 30 days",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("print document missing %q", want)
		}
	}
}

func TestPrintHTMLEscapesMarkup(t *testing.T) {
	q := sampleQuotation()
	q.Customer = "<script>alert(1)</script>"
	doc, err := PrintHTML(q)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc, "<script>alert(1)</script>") {
		t.Error("customer field not escaped in print document")
	}
}

func TestPrintHTMLOmitsEmptyNotes(t *testing.T) {
	q := sampleQuotation()
	q.Notes = ""
	doc, err := PrintHTML(q)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc, "<h3>Notes</h3>") {
		t.Error("notes section rendered for an empty notes field")
	}
}
