// internal/tui/form.go
//
// The draft-editing form: header textinputs, the item table with per-row
// inputs and selection marks, and the notes textarea. Every edit is pushed
// straight into the controller so the form never holds quotation state of
// its own.

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/quotedesk/quotedesk/internal/controller"
)

// Fixed focus slots before the item rows begin.
const (
	slotDate = iota
	slotCustomer
	slotContact
	slotAddress
	headerSlots
)

const fieldsPerRow = 4

type formRow struct {
	description textinput.Model
	quantity    textinput.Model
	price       textinput.Model
	remark      textinput.Model
	selected    bool
}

type formInputs struct {
	number   string
	date     textinput.Model
	customer textinput.Model
	contact  textinput.Model
	address  textinput.Model
	notes    textarea.Model
	rows     []formRow
	focus    int
}

func newHeaderInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 120
	ti.Width = width
	return ti
}

func newFormInputs() formInputs {
	f := formInputs{
		date:     newHeaderInput("YYYY-MM-DD", 12),
		customer: newHeaderInput("Customer name", 30),
		contact:  newHeaderInput("Contact person", 30),
		address:  newHeaderInput("Address", 48),
		notes:    textarea.New(),
	}
	f.notes.Placeholder = "Notes"
	f.notes.SetHeight(3)
	f.date.Focus()
	return f
}

func newRowInputs(row controller.Row) formRow {
	r := formRow{
		description: newHeaderInput("Description", 28),
		quantity:    newHeaderInput("Qty", 5),
		price:       newHeaderInput("Price", 8),
		remark:      newHeaderInput("Remark", 18),
		selected:    row.Selected,
	}
	r.description.SetValue(row.Item.Description)
	r.quantity.SetValue(strconv.Itoa(row.Item.Quantity))
	r.price.SetValue(strconv.Itoa(row.Item.Price))
	r.remark.SetValue(row.Item.Remark)
	return r
}

func (f *formInputs) appendRow(row controller.Row) {
	f.rows = append(f.rows, newRowInputs(row))
}

// slotCount is the number of focusable inputs: header, rows, then notes.
func (f *formInputs) slotCount() int {
	return headerSlots + len(f.rows)*fieldsPerRow + 1
}

func (f *formInputs) notesSlot() int {
	return f.slotCount() - 1
}

// focusedRow reports which item row holds focus, if any.
func (f *formInputs) focusedRow() (int, bool) {
	if f.focus < headerSlots || f.focus >= f.notesSlot() {
		return 0, false
	}
	return (f.focus - headerSlots) / fieldsPerRow, true
}

func (f *formInputs) focusRow(pos int) {
	f.setFocus(headerSlots + pos*fieldsPerRow)
}

func (f *formInputs) setFocus(slot int) {
	count := f.slotCount()
	if slot < 0 {
		slot = count - 1
	}
	if slot >= count {
		slot = 0
	}
	f.focus = slot
	f.date.Blur()
	f.customer.Blur()
	f.contact.Blur()
	f.address.Blur()
	f.notes.Blur()
	for i := range f.rows {
		f.rows[i].description.Blur()
		f.rows[i].quantity.Blur()
		f.rows[i].price.Blur()
		f.rows[i].remark.Blur()
	}
	if input := f.slotInput(slot); input != nil {
		input.Focus()
	} else if slot == f.notesSlot() {
		f.notes.Focus()
	}
}

func (f *formInputs) slotInput(slot int) *textinput.Model {
	switch slot {
	case slotDate:
		return &f.date
	case slotCustomer:
		return &f.customer
	case slotContact:
		return &f.contact
	case slotAddress:
		return &f.address
	}
	if slot >= headerSlots && slot < f.notesSlot() {
		pos := (slot - headerSlots) / fieldsPerRow
		switch (slot - headerSlots) % fieldsPerRow {
		case 0:
			return &f.rows[pos].description
		case 1:
			return &f.rows[pos].quantity
		case 2:
			return &f.rows[pos].price
		case 3:
			return &f.rows[pos].remark
		}
	}
	return nil
}

// syncFormFromDraft rebuilds every input from the controller's draft. Used
// after reset, load, removal, and a successful save.
func (a *App) syncFormFromDraft() {
	draft := a.ctrl.Draft()
	a.form.number = draft.Number
	a.form.date.SetValue(draft.Date)
	a.form.customer.SetValue(draft.Customer)
	a.form.contact.SetValue(draft.Contact)
	a.form.address.SetValue(draft.Address)
	a.form.notes.SetValue(draft.Notes)
	a.form.rows = a.form.rows[:0]
	for _, row := range draft.Rows {
		a.form.appendRow(row)
	}
	a.form.setFocus(slotCustomer)
}

// updateForm routes a message to the focused input and mirrors the new
// value into the controller.
func (a *App) updateForm(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			if key.String() == "down" && a.form.focus == a.form.notesSlot() {
				break
			}
			a.form.setFocus(a.form.focus + 1)
			return nil
		case "shift+tab", "up":
			if key.String() == "up" && a.form.focus == a.form.notesSlot() {
				break
			}
			a.form.setFocus(a.form.focus - 1)
			return nil
		}
	}

	var cmd tea.Cmd
	slot := a.form.focus
	if slot == a.form.notesSlot() {
		a.form.notes, cmd = a.form.notes.Update(msg)
		a.ctrl.SetHeader("notes", a.form.notes.Value())
		return cmd
	}
	input := a.form.slotInput(slot)
	if input == nil {
		return nil
	}
	*input, cmd = input.Update(msg)
	a.pushInputValue(slot, input.Value())
	return cmd
}

func (a *App) pushInputValue(slot int, value string) {
	switch slot {
	case slotDate:
		a.ctrl.SetHeader("date", value)
		return
	case slotCustomer:
		a.ctrl.SetHeader("customer", value)
		return
	case slotContact:
		a.ctrl.SetHeader("contact", value)
		return
	case slotAddress:
		a.ctrl.SetHeader("address", value)
		return
	}
	pos := (slot - headerSlots) / fieldsPerRow
	switch (slot - headerSlots) % fieldsPerRow {
	case 0:
		_ = a.ctrl.EditItem(pos, controller.FieldDescription, value)
	case 1:
		_ = a.ctrl.EditItem(pos, controller.FieldQuantity, value)
	case 2:
		_ = a.ctrl.EditItem(pos, controller.FieldPrice, value)
	case 3:
		_ = a.ctrl.EditItem(pos, controller.FieldRemark, value)
	}
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	totalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2ECC71"))
	markStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F39C12"))
)

func (a *App) renderForm(width int) string {
	draft := a.ctrl.Draft()
	f := &a.form

	header := strings.Join([]string{
		labelStyle.Render("Number ") + f.number,
		labelStyle.Render("Date   ") + f.date.View(),
		labelStyle.Render("Customer ") + f.customer.View(),
		labelStyle.Render("Contact  ") + f.contact.View(),
		labelStyle.Render("Address  ") + f.address.View(),
	}, "\n")

	var items []string
	items = append(items, labelStyle.Render("  #  Description                   Qty    Price     Amount   Remark"))
	for i, row := range f.rows {
		mark := "  "
		if row.selected {
			mark = markStyle.Render("✓ ")
		}
		total := 0
		if i < len(draft.Rows) {
			total = draft.Rows[i].Item.Total
		}
		line := fmt.Sprintf("%s%-2d %s %s %s %8d  %s",
			mark, i+1,
			row.description.View(), row.quantity.View(), row.price.View(),
			total, row.remark.View())
		items = append(items, line)
	}
	if len(f.rows) == 0 {
		items = append(items, labelStyle.Render("  (no items — Ctrl+A to add one)"))
	}

	sections := []string{
		header,
		"",
		strings.Join(items, "\n"),
		"",
		totalStyle.Render(fmt.Sprintf("Total: %d", draft.GrandTotal)),
		"",
		labelStyle.Render("Notes") + "\n" + f.notes.View(),
	}
	return lipgloss.NewStyle().Width(max(40, width)).Render(strings.Join(sections, "\n"))
}
