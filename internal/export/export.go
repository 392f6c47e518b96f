// internal/export/export.go
//
// Pure transforms of a quotation snapshot into shareable artifacts: a plain
// text summary, an Excel workbook, and a print-ready HTML document. Nothing
// here talks to the store; callers pass a finished snapshot and a directory.

package export

import (
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/quotedesk/quotedesk/internal/quote"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Quotation"

// Text renders the labeled plain-text summary of a quotation.
func Text(q quote.Quotation) string {
	var b strings.Builder
	b.WriteString("=== Quotation ===\n\n")
	fmt.Fprintf(&b, "Number: %s\n", q.Number)
	fmt.Fprintf(&b, "Date: %s\n", q.Date)
	fmt.Fprintf(&b, "Customer: %s\n", q.Customer)
	fmt.Fprintf(&b, "Contact: %s\n", q.Contact)
	fmt.Fprintf(&b, "Address: %s\n\n", q.Address)

	b.WriteString("Items:\n")
	b.WriteString("----------------------------------------------\n")
	b.WriteString("No. | Description | Qty | Unit Price | Amount | Remark\n")
	b.WriteString("----------------------------------------------\n")
	for i, item := range q.Items {
		fmt.Fprintf(&b, "%d | %s | %d | %d | %d | %s\n",
			i+1, item.Description, item.Quantity, item.Price, item.Total, item.Remark)
	}
	fmt.Fprintf(&b, "\nTotal: %d\n\n", q.Total)
	fmt.Fprintf(&b, "Notes:\n%s\n", q.Notes)
	return b.String()
}

// WriteText writes the text summary into dir and returns the file path.
func WriteText(q quote.Quotation, dir string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("quotation_%s.txt", q.Number))
	if err := os.WriteFile(path, []byte(Text(q)), 0o644); err != nil {
		return "", fmt.Errorf("export: write text: %w", err)
	}
	return path, nil
}

// WriteExcel builds an .xlsx workbook in dir and returns the file path. The
// layout mirrors the text summary: a header block, the item table, a totals
// row, and a notes row.
func WriteExcel(q quote.Quotation, dir string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("export: new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("export: delete default sheet: %w", err)
	}

	rows := [][]any{
		{"Quotation"},
		{"Number:", q.Number, "", "Date:", q.Date},
		{"Customer:", q.Customer, "", "Contact:", q.Contact},
		{"Address:", q.Address},
		{},
		{"No.", "Description", "Qty", "Unit Price", "Amount", "Remark"},
	}
	for i, item := range q.Items {
		rows = append(rows, []any{i + 1, item.Description, item.Quantity, item.Price, item.Total, item.Remark})
	}
	rows = append(rows, []any{"", "", "", "Total:", q.Total, ""})
	rows = append(rows, []any{})
	rows = append(rows, []any{"Notes:", q.Notes})

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return "", fmt.Errorf("export: cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return "", fmt.Errorf("export: set cell %s: %w", cell, err)
			}
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("quotation_%s.xlsx", q.Number))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("export: save workbook: %w", err)
	}
	return path, nil
}

var printTemplate = template.Must(template.New("print").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<title>Quotation - {{.Customer}}</title>
<meta charset="UTF-8">
<style>
body { margin: 0; padding: 20px; font-family: Arial, sans-serif; }
@page { size: A4; margin: 10mm; }
h2 { text-align: center; color: #3498db; border-bottom: 2px solid #f5f5f5; padding-bottom: 15px; }
.info { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; margin-bottom: 30px; }
table { width: 100%; border-collapse: collapse; margin: 25px 0; border: 1px solid #ddd; }
th { background-color: #3498db; color: white; text-align: left; padding: 12px 15px; }
td { padding: 12px 15px; border-bottom: 1px solid #ddd; }
td.num { text-align: right; }
.total-box { text-align: right; margin-top: 20px; padding: 15px; background-color: #f5f5f5; font-size: 18px; font-weight: bold; }
.signatures { margin-top: 50px; display: flex; justify-content: space-between; }
.signature { width: 200px; border-top: 1px solid #333; padding-top: 10px; text-align: center; }
.notes { margin-top: 30px; white-space: pre-line; }
</style>
</head>
<body>
<h2>Quotation</h2>
<div class="info">
<div>
<p><strong>Number:</strong> {{.Number}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
</div>
<div>
<p><strong>Customer:</strong> {{.Customer}}</p>
<p><strong>Contact:</strong> {{.Contact}}</p>
</div>
</div>
<p><strong>Address:</strong> {{.Address}}</p>
<table>
<thead>
<tr><th>No.</th><th>Description</th><th>Qty</th><th>Unit Price</th><th>Amount</th><th>Remark</th></tr>
</thead>
<tbody>
{{range $i, $item := .Items}}<tr><td>{{inc $i}}</td><td>{{$item.Description}}</td><td class="num">{{$item.Quantity}}</td><td class="num">{{$item.Price}}</td><td class="num">{{$item.Total}}</td><td>{{$item.Remark}}</td></tr>
{{end}}</tbody>
</table>
<div class="total-box">Total: {{.Total}}</div>
{{if .Notes}}<div class="notes"><h3>Notes</h3><p>{{.Notes}}</p></div>
{{end}}<div class="signatures">
<div class="signature">Customer Signature</div>
<div class="signature">Company Seal</div>
</div>
<script>
window.onload = function() { setTimeout(function() { window.print(); }, 200); };
</script>
</body>
</html>
`))

// PrintHTML renders the self-contained printable document.
func PrintHTML(q quote.Quotation) (string, error) {
	var b strings.Builder
	if err := printTemplate.Execute(&b, q); err != nil {
		return "", fmt.Errorf("export: render print document: %w", err)
	}
	return b.String(), nil
}

// WritePrint writes the printable HTML document into dir and returns its path.
func WritePrint(q quote.Quotation, dir string) (string, error) {
	doc, err := PrintHTML(q)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("quotation_%s.html", q.Number))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("export: write print document: %w", err)
	}
	return path, nil
}

// Print writes the printable document and opens it with the platform opener
// so the browser's print dialog comes up.
func Print(q quote.Quotation, dir string) (string, error) {
	path, err := WritePrint(q, dir)
	if err != nil {
		return "", err
	}
	if err := openInBrowser(path); err != nil {
		return path, fmt.Errorf("export: open print document: %w", err)
	}
	return path, nil
}

func openInBrowser(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
