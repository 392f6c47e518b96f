// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for QuoteDesk.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// Every key is bound to a controller command; the UI layer itself holds no
// quotation logic. Destructive commands route through the confirm overlay
// before the controller operation runs.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/quotedesk/quotedesk/internal/cache"
	"github.com/quotedesk/quotedesk/internal/config"
	"github.com/quotedesk/quotedesk/internal/controller"
	"github.com/quotedesk/quotedesk/internal/export"
	"github.com/quotedesk/quotedesk/internal/logbook"
	"github.com/quotedesk/quotedesk/internal/quote"
	"github.com/quotedesk/quotedesk/internal/store"
)

// appState represents which "screen" we're on
type appState int

const (
	stateForm    appState = iota // Editing the draft quotation
	stateList                    // Browsing saved quotations
	stateConfirm                 // Confirm overlay for a destructive command
)

const (
	successBannerTTL = 3 * time.Second
	errorBannerTTL   = 5 * time.Second
	remoteTimeout    = 30 * time.Second
)

type noticeKind int

const (
	noticeSuccess noticeKind = iota
	noticeError
	noticeInfo
)

type notice struct {
	kind noticeKind
	text string
}

// noticeQueue implements controller.Notifier. Controller operations run in
// tea.Cmd goroutines, so outcomes are queued here and drained into the
// banner on the Update thread once the operation's message arrives.
type noticeQueue struct {
	mu      sync.Mutex
	pending []notice
}

func (q *noticeQueue) Success(m string) { q.push(noticeSuccess, m) }
func (q *noticeQueue) Error(m string)   { q.push(noticeError, m) }
func (q *noticeQueue) Info(m string)    { q.push(noticeInfo, m) }

func (q *noticeQueue) push(kind noticeKind, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, notice{kind: kind, text: text})
}

func (q *noticeQueue) drain() []notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// approvalGate hands a confirm overlay approval to the controller operation
// it was granted for. The grant is one-shot: controller operations may run
// asynchronously, so the answer waits here until the gate is consumed.
type approvalGate struct {
	mu       sync.Mutex
	approved bool
}

func (g *approvalGate) grant() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.approved = true
}

func (g *approvalGate) take(string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.approved
	g.approved = false
	return v
}

type remoteOpMsg struct {
	op  string
	err error
}

type bannerExpiredMsg struct {
	deadline time.Time
}

// confirmRequest is a queued destructive command waiting for the user's
// answer in the confirm overlay.
type confirmRequest struct {
	prompt string
	run    func() tea.Cmd
	origin appState
}

// quotationItem implements list.Item for the saved-quotations list.
type quotationItem struct {
	q quote.Quotation
}

func (i quotationItem) Title() string {
	return fmt.Sprintf("%s · %s", i.q.Number, i.q.Customer)
}

func (i quotationItem) Description() string {
	return fmt.Sprintf("Total %d · %s", i.q.Total, quote.FormatDate(i.q.Date))
}

func (i quotationItem) FilterValue() string { return i.q.Number + " " + i.q.Customer }

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithRemoteStore overrides the remote store client, mainly for tests.
func WithRemoteStore(remote controller.RemoteStore) AppOption {
	return func(a *App) {
		a.remote = remote
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	config  *config.Config
	ctrl    *controller.Controller
	cache   *cache.Cache
	logbook *logbook.Logbook
	remote  controller.RemoteStore
	notices *noticeQueue

	logWarnOnly bool

	// UI components
	form        formInputs
	recordsList list.Model
	spinner     spinner.Model

	pendingConfirm *confirmRequest
	approvals      *approvalGate

	banner         string
	bannerStyle    lipgloss.Style
	bannerDeadline time.Time
	successTTL     time.Duration
	errorTTL       time.Duration
	statusMsg      string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates a new App instance rooted at the config's work directory.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	localCache, err := cache.New(cfg.CacheDir())
	if err != nil {
		return nil, err
	}
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "quotedesk.log"))
	if err != nil {
		lb = nil
	}

	app := &App{
		state:      stateForm,
		config:     cfg,
		cache:      localCache,
		logbook:    lb,
		notices:    &noticeQueue{},
		approvals:  &approvalGate{},
		successTTL: successBannerTTL,
		errorTTL:   errorBannerTTL,
	}
	if cfg.HasRemote() {
		client, err := store.NewClient(cfg.Endpoint(), cfg.Password(),
			store.WithRetry(cfg.RetryAttempts(), cfg.RetryDelay()))
		if err != nil {
			return nil, err
		}
		app.remote = client
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	// The confirm gate reads the overlay's answer; destructive commands only
	// reach the controller after the overlay has been through Update.
	app.ctrl = controller.New(app.remote, localCache, lb, app.approvals.take, app.notices)

	app.recordsList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	app.recordsList.Title = "Saved Quotations"
	app.recordsList.SetShowStatusBar(false)
	app.recordsList.SetFilteringEnabled(false)

	app.spinner = spinner.New()
	app.spinner.Spinner = spinner.Dot

	app.form = newFormInputs()
	app.syncFormFromDraft()
	app.refreshRecordsList()
	if lb != nil {
		lb.Info("Session opened · %d cached quotation(s)", len(app.ctrl.Records()))
	}
	return app, nil
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick}
	if a.remote != nil {
		cmds = append(cmds, a.refreshCmd())
	}
	return tea.Batch(cmds...)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.recordsList.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case bannerExpiredMsg:
		if !msg.deadline.Before(a.bannerDeadline) {
			a.banner = ""
		}
		return a, nil

	case remoteOpMsg:
		return a, a.finishRemoteOp(msg)

	case exportDoneMsg:
		a.logInfo("Exported %s", filepath.Base(msg.path))
		a.showBanner(notice{kind: noticeSuccess, text: "Exported " + filepath.Base(msg.path)})
		return a, a.bannerTimeout()

	case tea.KeyMsg:
		if a.state == stateConfirm {
			return a.updateConfirm(msg)
		}
		if model, cmd, handled := a.handleGlobalKey(msg); handled {
			return model, cmd
		}
	}

	switch a.state {
	case stateForm:
		return a, a.updateForm(msg)
	case stateList:
		var cmd tea.Cmd
		a.recordsList, cmd = a.recordsList.Update(msg)
		return a, cmd
	}
	return a, nil
}

// handleGlobalKey binds the command keys that work in both the form and the
// list screen. It reports whether the key was consumed.
func (a *App) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit, true

	case "ctrl+s":
		return a, a.saveCmd(), true

	case "ctrl+a":
		if a.state == stateForm {
			pos := a.ctrl.AddItem()
			a.form.appendRow(a.ctrl.Draft().Rows[pos])
			a.form.focusRow(pos)
			return a, nil, true
		}

	case "ctrl+t":
		if a.state == stateForm {
			if pos, ok := a.form.focusedRow(); ok {
				a.ctrl.ToggleRow(pos)
				a.form.rows[pos].selected = !a.form.rows[pos].selected
			}
			return a, nil, true
		}

	case "ctrl+r":
		if a.state == stateForm {
			return a, a.requestRemoveSelected(), true
		}

	case "ctrl+n":
		a.ctrl.ResetForm()
		a.syncFormFromDraft()
		a.showBanner(notice{kind: noticeInfo, text: "New quotation started"})
		return a, a.bannerTimeout(), true

	case "ctrl+e":
		return a, a.exportCmd("text"), true

	case "ctrl+x":
		return a, a.exportCmd("excel"), true

	case "ctrl+p":
		return a, a.exportCmd("print"), true

	case "ctrl+w":
		a.logWarnOnly = !a.logWarnOnly
		return a, nil, true

	case "ctrl+l":
		a.state = stateList
		a.refreshRecordsList()
		a.statusMsg = "Enter → load · d → delete · r → refresh · Esc → back"
		if a.remote != nil {
			return a, a.refreshCmd(), true
		}
		return a, nil, true

	case "esc":
		if a.state == stateList {
			a.state = stateForm
			a.statusMsg = ""
			return a, nil, true
		}

	case "enter":
		if a.state == stateList {
			return a, a.requestLoadSelected(), true
		}

	case "d":
		if a.state == stateList {
			return a, a.requestDeleteSelected(), true
		}

	case "r":
		if a.state == stateList && a.remote != nil {
			return a, a.refreshCmd(), true
		}

	case "q":
		if a.state == stateList {
			return a, tea.Quit, true
		}
	}
	return a, nil, false
}

func (a *App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	req := a.pendingConfirm
	if req == nil {
		a.state = stateForm
		return a, nil
	}
	switch msg.String() {
	case "y", "Y":
		a.state = req.origin
		a.pendingConfirm = nil
		a.approvals.grant()
		return a, req.run()
	case "n", "N", "esc":
		a.state = req.origin
		a.pendingConfirm = nil
		a.statusMsg = "Cancelled"
		return a, nil
	}
	return a, nil
}

// askConfirm swaps in the confirm overlay for a destructive command.
func (a *App) askConfirm(prompt string, run func() tea.Cmd) tea.Cmd {
	a.pendingConfirm = &confirmRequest{prompt: prompt, run: run, origin: a.state}
	a.state = stateConfirm
	return nil
}

func (a *App) requestRemoveSelected() tea.Cmd {
	selected := 0
	for _, row := range a.ctrl.Draft().Rows {
		if row.Selected {
			selected++
		}
	}
	if selected == 0 {
		// Let the controller report the no-op so the behavior matches a
		// direct command invocation.
		_, _ = a.ctrl.RemoveSelected()
		return a.drainNotices()
	}
	return a.askConfirm(fmt.Sprintf("Remove %d selected item(s)? (y/n)", selected), func() tea.Cmd {
		if _, err := a.ctrl.RemoveSelected(); err == nil {
			a.syncFormFromDraft()
		}
		return a.drainNotices()
	})
}

func (a *App) requestLoadSelected() tea.Cmd {
	item, ok := a.recordsList.SelectedItem().(quotationItem)
	if !ok {
		return nil
	}
	record := item.q
	a.ctrl.Select(record.ID)
	return a.askConfirm("Load this quotation? The current draft will be replaced. (y/n)", func() tea.Cmd {
		if err := a.ctrl.LoadQuotation(record); err == nil {
			a.syncFormFromDraft()
			a.state = stateForm
			a.showBanner(notice{kind: noticeInfo, text: "Quotation " + record.Number + " loaded"})
			return a.bannerTimeout()
		}
		return a.drainNotices()
	})
}

func (a *App) requestDeleteSelected() tea.Cmd {
	item, ok := a.recordsList.SelectedItem().(quotationItem)
	if !ok {
		return nil
	}
	a.ctrl.Select(item.q.ID)
	return a.askConfirm("Delete quotation "+item.q.Number+"? This cannot be undone. (y/n)", func() tea.Cmd {
		return a.deleteCmd()
	})
}

// saveCmd runs the save on a worker goroutine; the UI spins until the
// remoteOpMsg comes back.
func (a *App) saveCmd() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return remoteOpMsg{op: "save", err: ctrl.Save(ctx)}
	}
}

func (a *App) deleteCmd() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return remoteOpMsg{op: "delete", err: ctrl.DeleteSelected(ctx)}
	}
}

func (a *App) refreshCmd() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return remoteOpMsg{op: "refresh", err: ctrl.RefreshFromRemote(ctx)}
	}
}

func (a *App) finishRemoteOp(msg remoteOpMsg) tea.Cmd {
	a.refreshRecordsList()
	if msg.op == "save" && msg.err == nil {
		a.syncFormFromDraft()
	}
	if cmd := a.drainNotices(); cmd != nil {
		return cmd
	}
	// Export failures do not pass through the notifier; surface them here.
	if msg.err != nil {
		a.showBanner(notice{kind: noticeError, text: msg.err.Error()})
		return a.bannerTimeout()
	}
	return nil
}

func (a *App) exportCmd(format string) tea.Cmd {
	q := a.ctrl.CurrentQuotation()
	dir := a.config.ExportsDir()
	return func() tea.Msg {
		var (
			path string
			err  error
		)
		switch format {
		case "text":
			path, err = export.WriteText(q, dir)
		case "excel":
			path, err = export.WriteExcel(q, dir)
		case "print":
			path, err = export.Print(q, dir)
		}
		if err != nil {
			return remoteOpMsg{op: "export", err: err}
		}
		return exportDoneMsg{path: path}
	}
}

type exportDoneMsg struct {
	path string
}

// drainNotices moves queued controller outcomes into the banner. The last
// notice wins the banner slot; everything lands in the logbook regardless.
func (a *App) drainNotices() tea.Cmd {
	pending := a.notices.drain()
	if len(pending) == 0 {
		return nil
	}
	a.showBanner(pending[len(pending)-1])
	return a.bannerTimeout()
}

func (a *App) showBanner(n notice) {
	ttl := a.successTTL
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2ECC71"))
	switch n.kind {
	case noticeError:
		ttl = a.errorTTL
		style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E74C3C"))
	case noticeInfo:
		style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	}
	a.banner = n.text
	a.bannerStyle = style
	a.bannerDeadline = time.Now().Add(ttl)
}

func (a *App) bannerTimeout() tea.Cmd {
	deadline := a.bannerDeadline
	return tea.Tick(time.Until(deadline), func(time.Time) tea.Msg {
		return bannerExpiredMsg{deadline: deadline}
	})
}

func (a *App) refreshRecordsList() {
	records := a.ctrl.Records()
	items := make([]list.Item, len(records))
	for i, record := range records {
		items[i] = quotationItem{q: record}
	}
	a.recordsList.SetItems(items)
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}

	var content string
	switch a.state {
	case stateConfirm:
		content = a.renderConfirm()
	case stateList:
		content = a.recordsList.View()
		if len(a.recordsList.Items()) == 0 {
			if a.cache != nil && a.cache.Exists() {
				content = "No saved quotations."
			} else {
				content = "No saved quotations yet. Save a draft with Ctrl+S."
			}
		}
	default:
		content = a.renderForm(width - 6)
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3498DB")).
		MarginBottom(1).
		Render("▤ QUOTEDESK")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(40, width-2)).
		Render(content)

	sections := []string{header, box}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *App) renderConfirm() string {
	prompt := ""
	if a.pendingConfirm != nil {
		prompt = a.pendingConfirm.prompt
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F39C12")).
		Render("⚠ " + prompt)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	title := "LOG · " + filepath.Base(a.logbook.Path())
	entries := a.logbook.Tail(5)
	if a.logWarnOnly {
		entries = a.logbook.TailLevel(logbook.LevelWarn, 5)
		title += " · warnings"
	}
	if len(entries) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(title)
	plain := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#F39C12"))
	fail := lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		style := plain
		switch e.Level {
		case logbook.LevelWarn:
			style = warn
		case logbook.LevelError:
			style = fail
		}
		lines = append(lines, style.Render(e.String()))
	}
	body := strings.Join(lines, "\n")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(head + "\n" + body)
}

func (a *App) renderFooter() string {
	parts := []string{}
	if a.banner != "" {
		parts = append(parts, a.bannerStyle.Render(a.banner))
	}
	if a.ctrl.Busy() {
		parts = append(parts, a.spinner.View()+" working…")
	}
	hint := a.statusMsg
	if hint == "" {
		hint = "Tab → next field · Ctrl+A add item · Ctrl+T select item · Ctrl+R remove · Ctrl+S save · Ctrl+L list · Ctrl+E/X/P export txt/xlsx/print · Ctrl+W log filter · Ctrl+N new"
	}
	parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(hint))
	return strings.Join(parts, "\n")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
