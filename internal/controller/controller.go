// internal/controller/controller.go
//
// The controller owns the editable draft and the in-memory record set, and
// exposes every user action as a named operation so the UI layer binds keys
// to commands instead of holding business logic. Dialog capabilities are
// injected (Confirm, Notifier), which keeps the controller testable without
// a terminal attached.

package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/quotedesk/quotedesk/internal/cache"
	"github.com/quotedesk/quotedesk/internal/logbook"
	"github.com/quotedesk/quotedesk/internal/quote"
	"github.com/quotedesk/quotedesk/internal/store"
)

var (
	// ErrNothingSelected is returned when a removal or delete has no target.
	ErrNothingSelected = errors.New("controller: nothing selected")
	// ErrBusy is returned when a mutating remote call is already in flight.
	ErrBusy = errors.New("controller: operation already in progress")
	// ErrNoRemote is returned when no remote store is configured.
	ErrNoRemote = errors.New("controller: remote store not configured")
	// ErrCancelled is returned when the user declines a confirmation prompt.
	ErrCancelled = errors.New("controller: cancelled")
)

// Field names an editable line-item column.
type Field int

const (
	FieldDescription Field = iota
	FieldQuantity
	FieldPrice
	FieldRemark
)

// Row is one editable line of the draft's item table. Index is a pure
// display sequence, renumbered after removals; it is never persisted.
type Row struct {
	Index    int
	Item     quote.LineItem
	Selected bool
}

// Notifier surfaces transient outcome messages to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// ConfirmFunc asks the user to approve a destructive step.
type ConfirmFunc func(prompt string) bool

// RemoteStore is the slice of the store client the controller needs.
type RemoteStore interface {
	Create(ctx context.Context, q quote.Quotation) (store.Result, error)
	GetAllWithRetry(ctx context.Context) ([]store.Record, error)
	Delete(ctx context.Context, id string) (store.Result, error)
}

// Draft is a read-only snapshot of the form state for rendering.
type Draft struct {
	Number     string
	Date       string
	Customer   string
	Contact    string
	Address    string
	Notes      string
	Rows       []Row
	GrandTotal int
}

// Controller mediates between the UI, the remote store, and the local cache.
type Controller struct {
	mu sync.Mutex

	remote  RemoteStore
	cache   *cache.Cache
	log     *logbook.Logbook
	confirm ConfirmFunc
	notify  Notifier
	now     func() time.Time

	// draft state
	number   string
	date     string
	customer string
	contact  string
	address  string
	notes    string
	rows     []Row
	total    int
	draftID  string

	// persisted record set, mirrored between remote store and cache
	records    []quote.Quotation
	selectedID string

	// busy guards mutating remote calls; reading counts in-flight fetches.
	// Either one lights the UI spinner.
	busy    bool
	reading int
}

// OptionFunc customizes controller construction.
type OptionFunc func(*Controller)

// WithClock overrides the clock, mainly for tests.
func WithClock(clock func() time.Time) OptionFunc {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// New builds a controller. remote may be nil when no endpoint is configured;
// drafting, export, and the cached list still work without one. The initial
// record set comes from the cache so the list renders before any fetch.
func New(remote RemoteStore, localCache *cache.Cache, log *logbook.Logbook, confirm ConfirmFunc, notify Notifier, opts ...OptionFunc) *Controller {
	c := &Controller{
		remote:  remote,
		cache:   localCache,
		log:     log,
		confirm: confirm,
		notify:  notify,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.records = localCache.Load()
	c.resetFormLocked()
	return c
}

// Draft returns a snapshot of the current form state.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Draft{
		Number:     c.number,
		Date:       c.date,
		Customer:   c.customer,
		Contact:    c.contact,
		Address:    c.address,
		Notes:      c.notes,
		Rows:       cloneRows(c.rows),
		GrandTotal: c.total,
	}
}

// SetHeader stores a header field edit from the UI.
func (c *Controller) SetHeader(field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch field {
	case "number":
		c.number = value
	case "date":
		c.date = value
	case "customer":
		c.customer = value
	case "contact":
		c.contact = value
	case "address":
		c.address = value
	case "notes":
		c.notes = value
	}
}

// AddItem appends a fresh row (quantity 1, price and total 0) and returns
// its position so the UI can focus the description field.
func (c *Controller) AddItem() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, Row{
		Index: len(c.rows) + 1,
		Item:  quote.LineItem{Quantity: 1},
	})
	c.recomputeLocked()
	return len(c.rows) - 1
}

// EditItem applies one field edit to the row at pos. Quantity and price
// edits recompute the row total and then the grand total.
func (c *Controller) EditItem(pos int, field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos < 0 || pos >= len(c.rows) {
		return fmt.Errorf("controller: row %d out of range", pos)
	}
	row := &c.rows[pos]
	switch field {
	case FieldDescription:
		row.Item.Description = value
	case FieldRemark:
		row.Item.Remark = value
	case FieldQuantity:
		// Quantity is floored at 1 on input; a row always orders something.
		qty := quote.Amount(value)
		if qty < 1 {
			qty = 1
		}
		row.Item.Quantity = qty
		row.Item.Total = row.Item.Quantity * row.Item.Price
	case FieldPrice:
		row.Item.Price = quote.Amount(value)
		row.Item.Total = row.Item.Quantity * row.Item.Price
	default:
		return fmt.Errorf("controller: unknown field %d", field)
	}
	c.recomputeLocked()
	return nil
}

// ToggleRow flips the selection flag on the row at pos.
func (c *Controller) ToggleRow(pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos >= 0 && pos < len(c.rows) {
		c.rows[pos].Selected = !c.rows[pos].Selected
	}
}

// RemoveSelected deletes every selected row after confirmation, renumbers
// the remainder, and recomputes the grand total. With no selection it is a
// reported no-op, not a silent success.
func (c *Controller) RemoveSelected() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	selected := 0
	for _, row := range c.rows {
		if row.Selected {
			selected++
		}
	}
	if selected == 0 {
		c.notify.Info("No items selected")
		return 0, ErrNothingSelected
	}
	if !c.confirm(fmt.Sprintf("Remove %d selected item(s)?", selected)) {
		return 0, ErrCancelled
	}
	kept := c.rows[:0]
	for _, row := range c.rows {
		if !row.Selected {
			kept = append(kept, row)
		}
	}
	c.rows = kept
	c.renumberLocked()
	c.recomputeLocked()
	return selected, nil
}

// CurrentQuotation snapshots the visible fields into a Quotation, applying
// the placeholder defaults. A brand-new draft gets a timestamp-derived id;
// a loaded record keeps the id the store assigned, which stays authoritative.
func (c *Controller) CurrentQuotation() quote.Quotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentQuotationLocked()
}

func (c *Controller) currentQuotationLocked() quote.Quotation {
	now := c.now()
	items := make([]quote.LineItem, len(c.rows))
	for i, row := range c.rows {
		items[i] = row.Item
	}
	q := quote.Quotation{
		ID:       c.draftID,
		Number:   c.number,
		Date:     c.date,
		Customer: c.customer,
		Contact:  c.contact,
		Address:  c.address,
		Notes:    c.notes,
		Items:    items,
	}
	if q.ID == "" {
		q.ID = strconv.FormatInt(now.UnixMilli(), 10)
	}
	q.Normalize(now)
	return q
}

// ResetForm clears every row, regenerates the number and date, and blanks
// the header fields.
func (c *Controller) ResetForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetFormLocked()
}

func (c *Controller) resetFormLocked() {
	draft := quote.NewDraft(c.now())
	c.number = draft.Number
	c.date = draft.Date
	c.customer = ""
	c.contact = ""
	c.address = ""
	c.notes = ""
	c.rows = nil
	c.total = 0
	c.draftID = ""
}

// LoadQuotation replaces the draft with a stored record after the user
// confirms the current edits may be discarded. The grand total is taken
// from the record as stored, not recomputed.
func (c *Controller) LoadQuotation(record quote.Quotation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.confirm("Load this quotation? The current draft will be replaced.") {
		return ErrCancelled
	}
	c.number = record.Number
	c.date = record.Date
	c.customer = record.Customer
	c.contact = record.Contact
	c.address = record.Address
	c.notes = record.Notes
	c.rows = make([]Row, len(record.Items))
	for i, item := range record.Items {
		c.rows[i] = Row{Index: i + 1, Item: item}
	}
	c.total = record.Total
	c.draftID = record.ID
	if c.log != nil {
		c.log.Info("Loaded quotation %s", record.Number)
	}
	return nil
}

// Select marks the stored record with the given id as the list selection.
// Selection is exclusive by construction: there is one selected id.
func (c *Controller) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = id
}

// SelectedID returns the current list selection, empty when none.
func (c *Controller) SelectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// Find returns the in-memory record with the given id.
func (c *Controller) Find(id string) (quote.Quotation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.records {
		if record.ID == id {
			return record, true
		}
	}
	return quote.Quotation{}, false
}

// Records returns the record set sorted most recent first.
func (c *Controller) Records() []quote.Quotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]quote.Quotation, len(c.records))
	copy(out, c.records)
	quote.SortByCreated(out)
	return out
}

// Busy reports whether any remote call is in flight, mutating or not. The
// UI uses it to show the spinner; mutating calls additionally refuse
// duplicate submits via the busy flag.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy || c.reading > 0
}

// Save snapshots the draft, creates it remotely, refreshes the record set,
// mirrors the new record into the cache, and resets the form. On failure the
// draft is left exactly as it was.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.remote == nil {
		c.mu.Unlock()
		c.notify.Error("Remote store is not configured")
		return ErrNoRemote
	}
	if c.busy {
		c.mu.Unlock()
		c.notify.Info("A save is already in progress")
		return ErrBusy
	}
	c.busy = true
	q := c.currentQuotationLocked()
	c.mu.Unlock()
	defer c.clearBusy()

	result, err := c.remote.Create(ctx, q)
	if err != nil {
		c.logError("Save failed: %v", err)
		c.notify.Error("Save failed: " + err.Error())
		return err
	}
	if result.ID != "" {
		q.ID = result.ID
	}

	if refreshErr := c.refresh(ctx); refreshErr != nil {
		// The record was stored; only the follow-up fetch failed. Keep the
		// mirror consistent by appending the saved record locally.
		c.logError("Post-save refresh failed: %v", refreshErr)
	}

	c.mu.Lock()
	if !containsID(c.records, q.ID) {
		c.records = append(c.records, q)
	}
	records := make([]quote.Quotation, len(c.records))
	copy(records, c.records)
	c.resetFormLocked()
	c.mu.Unlock()

	if err := c.cache.Save(records); err != nil {
		c.logError("Cache write failed: %v", err)
	}
	if c.log != nil {
		c.log.Info("Saved quotation %s", q.Number)
	}
	c.notify.Success("Quotation saved")
	return nil
}

// DeleteSelected removes the selected stored record from the remote store
// and, via the follow-up refresh, from the cache. It requires a selection
// and an explicit confirmation; failure leaves everything unchanged.
func (c *Controller) DeleteSelected(ctx context.Context) error {
	c.mu.Lock()
	if c.remote == nil {
		c.mu.Unlock()
		c.notify.Error("Remote store is not configured")
		return ErrNoRemote
	}
	if c.busy {
		c.mu.Unlock()
		c.notify.Info("An operation is already in progress")
		return ErrBusy
	}
	id := c.selectedID
	c.mu.Unlock()

	if id == "" {
		c.notify.Info("No quotation selected")
		return ErrNothingSelected
	}
	if !c.confirm("Delete this quotation? This cannot be undone.") {
		return ErrCancelled
	}

	c.mu.Lock()
	c.busy = true
	c.mu.Unlock()
	defer c.clearBusy()

	if _, err := c.remote.Delete(ctx, id); err != nil {
		c.logError("Delete failed: %v", err)
		c.notify.Error("Delete failed: " + err.Error())
		return err
	}
	if err := c.refresh(ctx); err != nil {
		// Deletion succeeded remotely; drop the record locally so the list
		// and cache do not resurrect it.
		c.mu.Lock()
		c.records = removeID(c.records, id)
		records := make([]quote.Quotation, len(c.records))
		copy(records, c.records)
		c.mu.Unlock()
		if cacheErr := c.cache.Save(records); cacheErr != nil {
			c.logError("Cache write failed: %v", cacheErr)
		}
	}
	c.mu.Lock()
	c.selectedID = ""
	c.mu.Unlock()
	if c.log != nil {
		c.log.Info("Deleted quotation %s", id)
	}
	c.notify.Success("Quotation deleted")
	return nil
}

// RefreshFromRemote replaces the record set and the cache with the remote
// store's contents. On transport failure it surfaces the error and falls
// back to whatever the cache holds, without overwriting the cache.
func (c *Controller) RefreshFromRemote(ctx context.Context) error {
	c.mu.Lock()
	if c.remote == nil {
		c.mu.Unlock()
		return ErrNoRemote
	}
	c.reading++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.reading--
		c.mu.Unlock()
	}()
	if err := c.refresh(ctx); err != nil {
		c.logError("Refresh failed: %v", err)
		c.notify.Error("Load failed: " + err.Error())
		cached := c.cache.Load()
		c.mu.Lock()
		c.records = cached
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Controller) refresh(ctx context.Context) error {
	raw, err := c.remote.GetAllWithRetry(ctx)
	if err != nil {
		return err
	}
	records := make([]quote.Quotation, 0, len(raw))
	for _, rec := range raw {
		records = append(records, store.DecodeRecord(rec))
	}
	c.mu.Lock()
	c.records = records
	snapshot := make([]quote.Quotation, len(records))
	copy(snapshot, records)
	c.mu.Unlock()
	if err := c.cache.Save(snapshot); err != nil {
		c.logError("Cache write failed: %v", err)
	}
	return nil
}

func (c *Controller) clearBusy() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) logError(format string, args ...any) {
	if c.log != nil {
		c.log.Error(format, args...)
	}
}

func (c *Controller) renumberLocked() {
	for i := range c.rows {
		c.rows[i].Index = i + 1
	}
}

func (c *Controller) recomputeLocked() {
	sum := 0
	for _, row := range c.rows {
		sum += row.Item.Total
	}
	c.total = sum
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

func containsID(records []quote.Quotation, id string) bool {
	for _, record := range records {
		if record.ID == id {
			return true
		}
	}
	return false
}

func removeID(records []quote.Quotation, id string) []quote.Quotation {
	out := records[:0]
	for _, record := range records {
		if record.ID != id {
			out = append(out, record)
		}
	}
	return out
}
