// internal/quote/quote.go
//
// Core record shapes for the quotation client. A Quotation is one document;
// its line items are owned exclusively by it. Totals are derived values:
// each line total is quantity × price as of the last edit, and the grand
// total is the sum of the stored line totals.

package quote

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Placeholder text applied when free-text fields are left blank at snapshot
// time. Records are never persisted with empty header fields.
const (
	PlaceholderCustomer    = "unspecified"
	PlaceholderContact     = "unspecified"
	PlaceholderAddress     = "not provided"
	PlaceholderDescription = "not filled in"
)

// DateLayout is the calendar-date wire format used by the remote store.
const DateLayout = "2006-01-02"

// LineItem is one row of a quotation's item table.
type LineItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       int    `json:"price"`
	Total       int    `json:"total"`
	Remark      string `json:"remark"`
}

// Quotation is one itemized price quote for a customer.
type Quotation struct {
	ID       string     `json:"id"`
	Number   string     `json:"number"`
	Date     string     `json:"date"`
	Customer string     `json:"customer"`
	Contact  string     `json:"contact"`
	Address  string     `json:"address"`
	Notes    string     `json:"notes"`
	Items    []LineItem `json:"items"`
	Total    int        `json:"total"`
	Created  string     `json:"created"`
}

// Amount parses raw field text into a non-negative integer. Surrounding
// whitespace is tolerated; unparsable or negative input counts as zero.
// Every amount field in the app goes through this one parser.
func Amount(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LineTotal computes quantity × price from raw field text, so the result is
// never negative and the function never fails.
func LineTotal(quantity, price string) int {
	return Amount(quantity) * Amount(price)
}

// GrandTotal sums the stored per-item totals. It trusts each item's Total
// field, which must already be current.
func GrandTotal(items []LineItem) int {
	sum := 0
	for _, item := range items {
		sum += item.Total
	}
	return sum
}

// Number generates a display reference of the form Q-YYYYMMDD-NNNN where
// NNNN is a random 4-digit suffix in [1000, 9999]. Collisions are an
// accepted risk; the number is a display key, not an identifier.
func Number(now time.Time) string {
	return "Q-" + now.Format("20060102") + "-" + strconv.Itoa(1000+rand.Intn(9000))
}

// NewDraft produces an unsaved Quotation with a fresh number, today's date,
// no items, and a zero total.
func NewDraft(now time.Time) Quotation {
	return Quotation{
		Number: Number(now),
		Date:   now.Format(DateLayout),
	}
}

// Normalize applies the snapshot-time defaults: blank header fields become
// their placeholder text, blank item descriptions become theirs, and the
// date falls back to today. Totals are recomputed from the item fields so
// the grand-total invariant holds at the moment of save or export.
func (q *Quotation) Normalize(now time.Time) {
	if q == nil {
		return
	}
	q.Number = strings.TrimSpace(q.Number)
	q.Customer = defaultIfBlank(q.Customer, PlaceholderCustomer)
	q.Contact = defaultIfBlank(q.Contact, PlaceholderContact)
	q.Address = defaultIfBlank(q.Address, PlaceholderAddress)
	q.Notes = strings.TrimSpace(q.Notes)
	if strings.TrimSpace(q.Date) == "" {
		q.Date = now.Format(DateLayout)
	}
	for i := range q.Items {
		q.Items[i].Description = defaultIfBlank(q.Items[i].Description, PlaceholderDescription)
		q.Items[i].Remark = strings.TrimSpace(q.Items[i].Remark)
		if q.Items[i].Quantity < 0 {
			q.Items[i].Quantity = 0
		}
		if q.Items[i].Price < 0 {
			q.Items[i].Price = 0
		}
		q.Items[i].Total = q.Items[i].Quantity * q.Items[i].Price
	}
	q.Total = GrandTotal(q.Items)
}

// CreatedTime resolves the timestamp used for list ordering: the server's
// created stamp when present, the issue date otherwise.
func (q Quotation) CreatedTime() time.Time {
	if t, ok := parseTimestamp(q.Created); ok {
		return t
	}
	if t, ok := parseTimestamp(q.Date); ok {
		return t
	}
	return time.Time{}
}

// SortByCreated orders records most recent first. The sort is stable so
// records with equal timestamps keep their fetch order.
func SortByCreated(records []Quotation) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedTime().After(records[j].CreatedTime())
	})
}

// FormatDate renders a stored date for list display. Unparsable input is
// returned as-is rather than dropped.
func FormatDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, ok := parseTimestamp(value); ok {
		return t.Format("2006/01/02")
	}
	return value
}

func defaultIfBlank(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
