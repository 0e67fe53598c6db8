package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/renderer"
	"github.com/dpshade/prompt-vault/internal/service"
)

// statusTTL is how long a status message stays on screen
var statusTTL = 3 * time.Second

// createGlamourRenderer creates a glamour renderer matching the active palette
func createGlamourRenderer(wordWrap int, dark bool) (*glamour.TermRenderer, error) {
	profile := termenv.ColorProfile()

	// Limited color terminals get glamour's own detection
	styleOption := glamour.WithAutoStyle()
	if profile == termenv.TrueColor || profile == termenv.ANSI256 {
		if dark {
			styleOption = glamour.WithStandardStyle("dark")
		} else {
			styleOption = glamour.WithStandardStyle("light")
		}
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// Messages produced by storage commands
type listLoadedMsg struct {
	seq     int
	listing *models.Listing
	filters []string
	status  string
	err     error
}

type promptLoadedMsg struct {
	prompt *models.Prompt
	edit   bool
	err    error
}

type savedMsg struct {
	prompt *models.Prompt
	err    error
}

type toggledMsg struct {
	title    string
	favorite bool
	found    bool
	err      error
}

type deletedMsg struct {
	title   string
	deleted bool
	err     error
}

type copiedMsg struct {
	part renderer.Part
	err  error
}

type randomMsg struct {
	prompt *models.Prompt
	found  bool
	err    error
}

type themeSavedMsg struct {
	theme string
	err   error
}

type newFormMsg struct {
	categories []string
	category   string
	prompt     *models.Prompt
	err        error
}

// vaultChangedMsg is sent by the file watcher when the database is replaced
type vaultChangedMsg struct{}

type statusMsg struct {
	text string
	kind string
}

type clearStatusMsg struct {
	seq int
}

func statusCmd(text, kind string) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, kind: kind}
	}
}

// ViewMode represents the current view in the TUI
type ViewMode int

const (
	ViewLibrary ViewMode = iota
	ViewPromptDetail
	ViewEditor
)

// Model represents the TUI application state
type Model struct {
	ctx      context.Context
	service  *service.Service
	viewMode ViewMode

	// UI components
	promptList list.Model
	search     textinput.Model
	viewport   viewport.Model
	help       help.Model
	keys       KeyMap
	form       *EditorForm

	// Data
	listing     *models.Listing
	filters     []string
	filterIndex int
	listSeq     int // reload in flight; older replies are dropped
	vaultStatus string
	loading     bool
	selected    *models.Prompt

	// Title waiting for delete confirmation, "" when no modal is open
	confirmDelete string
	// Title to select after the next list load
	pendingSelect string

	modes           renderer.Modes
	theme           string
	dark            bool
	glamourRenderer *glamour.TermRenderer
	errHandler      *errors.TUIErrorHandler

	width  int
	height int

	statusMsg   string
	statusKind  string
	statusColor lipgloss.Color
	statusSeq   int

	showExpandedHelp bool
}

// KeyMap defines all key bindings
type KeyMap struct {
	Up            key.Binding
	Down          key.Binding
	Enter         key.Binding
	Back          key.Binding
	Quit          key.Binding
	Help          key.Binding
	Search        key.Binding
	NextFilter    key.Binding
	PrevFilter    key.Binding
	New           key.Binding
	Edit          key.Binding
	Delete        key.Binding
	Favorite      key.Binding
	Random        key.Binding
	CopyBoth      key.Binding
	CopyPositive  key.Binding
	CopyNegative  key.Binding
	TogglePony    key.Binding
	ToggleRealism key.Binding
	Theme         key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.New, k.CopyBoth, k.Search, k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back},
		{k.Search, k.NextFilter, k.PrevFilter, k.Random},
		{k.New, k.Edit, k.Delete, k.Favorite},
		{k.CopyBoth, k.CopyPositive, k.CopyNegative},
		{k.TogglePony, k.ToggleRealism, k.Theme},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	NextFilter: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next filter"),
	),
	PrevFilter: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous filter"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new prompt"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Favorite: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "favorite"),
	),
	Random: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "random"),
	),
	CopyBoth: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy both"),
	),
	CopyPositive: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "copy positive"),
	),
	CopyNegative: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "copy negative"),
	),
	TogglePony: key.NewBinding(
		key.WithKeys("P"),
		key.WithHelp("P", "pony mode"),
	),
	ToggleRealism: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "realism mode"),
	),
	Theme: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "theme"),
	),
}

// NewModel creates a new TUI model. theme is a selected_theme value.
func NewModel(ctx context.Context, svc *service.Service, theme string) (*Model, error) {
	dark := applyTheme(theme)

	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	// Search runs against storage, not the list's own fuzzy filter
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "pgdown"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("left", "pgup"))

	search := textinput.New()
	search.Placeholder = "search title, tags, prompts, category"
	search.Prompt = "/ "
	search.CharLimit = 200
	search.Width = 50

	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	glamourRenderer, err := createGlamourRenderer(76, dark)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}

	return &Model{
		ctx:             ctx,
		service:         svc,
		viewMode:        ViewLibrary,
		promptList:      l,
		search:          search,
		viewport:        vp,
		help:            help.New(),
		keys:            keys,
		filters:         []string{models.FilterNameAll, models.FilterNameFavorites},
		loading:         true,
		modes:           svc.Modes(),
		theme:           theme,
		dark:            dark,
		glamourRenderer: glamourRenderer,
		errHandler:      errors.NewTUIErrorHandler(false),
	}, nil
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.listCmd(m.listSeq)
}

func (m Model) currentFilter() models.Filter {
	if m.filterIndex < 0 || m.filterIndex >= len(m.filters) {
		return models.AllFilter()
	}
	return models.ParseFilter(m.filters[m.filterIndex])
}

// selectedTitle returns the title of the highlighted list row
func (m Model) selectedTitle() (string, bool) {
	return m.listing.TitleAt(m.promptList.Index())
}

// loadListCmd starts a reload of the filter menu, the listing and the status
// line. Only the reply to the latest reload is applied.
func (m *Model) loadListCmd() tea.Cmd {
	m.listSeq++
	return m.listCmd(m.listSeq)
}

func (m Model) listCmd(seq int) tea.Cmd {
	svc, ctx := m.service, m.ctx
	filter, search := m.currentFilter(), m.search.Value()
	return func() tea.Msg {
		filters, err := svc.FilterOptions(ctx)
		if err != nil {
			return listLoadedMsg{seq: seq, err: err}
		}
		listing, err := svc.List(ctx, filter, search)
		if err != nil {
			return listLoadedMsg{seq: seq, err: err}
		}
		status, err := svc.Status(ctx, listing)
		return listLoadedMsg{seq: seq, listing: listing, filters: filters, status: status, err: err}
	}
}

func (m Model) loadPromptCmd(title string, edit bool) tea.Cmd {
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		// Opening a prompt counts as using it; editing does not
		load := svc.Use
		if edit {
			load = svc.Load
		}
		p, err := load(ctx, title)
		return promptLoadedMsg{prompt: p, edit: edit, err: err}
	}
}

// newFormCmd gathers the category suggestions and, for a new prompt, the
// category to preselect
func (m Model) newFormCmd(p *models.Prompt) tea.Cmd {
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		categories, err := svc.Categories(ctx)
		if err != nil {
			return newFormMsg{err: err}
		}
		category := ""
		if p == nil {
			category, err = svc.LastCategory(ctx)
		}
		return newFormMsg{categories: categories, category: category, prompt: p, err: err}
	}
}

func (m Model) saveCmd(draft models.Draft) tea.Cmd {
	svc, ctx, modes := m.service, m.ctx, m.modes
	return func() tea.Msg {
		p, err := svc.Save(ctx, draft, modes)
		return savedMsg{prompt: p, err: err}
	}
}

func (m Model) toggleFavoriteCmd(title string) tea.Cmd {
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		favorite, found, err := svc.ToggleFavorite(ctx, title)
		return toggledMsg{title: title, favorite: favorite, found: found, err: err}
	}
}

func (m Model) deleteCmd(title string) tea.Cmd {
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		deleted, err := svc.Delete(ctx, title)
		return deletedMsg{title: title, deleted: deleted, err: err}
	}
}

func (m Model) copyCmd(title string, part renderer.Part) tea.Cmd {
	svc, ctx, modes := m.service, m.ctx, m.modes
	return func() tea.Msg {
		_, err := svc.Copy(ctx, title, part, modes)
		return copiedMsg{part: part, err: err}
	}
}

func (m Model) randomCmd() tea.Cmd {
	svc, ctx := m.service, m.ctx
	filter, search := m.currentFilter(), m.search.Value()
	return func() tea.Msg {
		p, found, err := svc.Random(ctx, filter, search)
		return randomMsg{prompt: p, found: found, err: err}
	}
}

func (m Model) saveThemeCmd(theme string) tea.Cmd {
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		return themeSavedMsg{theme: theme, err: svc.SetSetting(ctx, models.SettingTheme, theme)}
	}
}

// setStatus shows text in the status bar and schedules its removal
func (m *Model) setStatus(text, kind string) tea.Cmd {
	m.statusSeq++
	m.statusMsg = text
	m.statusKind = kind
	m.statusColor = ""
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// setError logs err and shows it in the status bar styled by severity
func (m *Model) setError(err error) tea.Cmd {
	_ = m.errHandler.HandleError(err)
	icon, color := m.errHandler.GetErrorStyle(err)
	cmd := m.setStatus(icon+" "+m.errHandler.FormatError(err), statusError)
	m.statusColor = lipgloss.Color(color)
	return cmd
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
		}
		return m, nil

	case statusMsg:
		cmd := m.setStatus(msg.text, msg.kind)
		return m, cmd

	case vaultChangedMsg:
		cmd := m.loadListCmd()
		return m, cmd

	case listLoadedMsg:
		if msg.seq != m.listSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		m.applyListing(msg)
		return m, nil

	case promptLoadedMsg:
		if msg.err != nil {
			// The row went away underneath us
			if errors.IsNotFound(msg.err) {
				cmd := tea.Batch(m.setStatus("That prompt no longer exists", statusWarning), m.loadListCmd())
				return m, cmd
			}
			cmd := m.setError(msg.err)
			return m, cmd
		}
		if msg.edit {
			return m, m.newFormCmd(msg.prompt)
		}
		m.openDetail(msg.prompt)
		// Use moved it to the top of the list
		m.pendingSelect = msg.prompt.Name
		cmd := m.loadListCmd()
		return m, cmd

	case newFormMsg:
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		m.form = NewEditorForm(msg.categories)
		if msg.prompt != nil {
			m.form.LoadPrompt(msg.prompt)
		} else {
			m.form.SetCategory(msg.category)
		}
		m.form.Resize(m.width, m.height)
		m.viewMode = ViewEditor
		return m, nil

	case savedMsg:
		if msg.err != nil {
			if m.form != nil {
				m.form.ClearSubmitted()
			}
			cmd := m.setError(msg.err)
			return m, cmd
		}
		m.form = nil
		m.viewMode = ViewLibrary
		m.pendingSelect = msg.prompt.Name
		cmd := tea.Batch(m.setStatus(fmt.Sprintf("'%s' saved/updated!", msg.prompt.Name), statusSuccess), m.loadListCmd())
		return m, cmd

	case toggledMsg:
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		if !msg.found {
			cmd := m.loadListCmd()
			return m, cmd
		}
		if m.selected != nil && m.selected.Name == msg.title {
			m.selected.Favorite = msg.favorite
			m.renderDetail()
		}
		text := fmt.Sprintf("'%s' is no longer a favorite", msg.title)
		if msg.favorite {
			text = fmt.Sprintf("★ '%s' is now a favorite", msg.title)
		}
		m.pendingSelect = msg.title
		cmd := tea.Batch(m.setStatus(text, statusSuccess), m.loadListCmd())
		return m, cmd

	case deletedMsg:
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		if m.selected != nil && m.selected.Name == msg.title {
			m.selected = nil
			m.viewMode = ViewLibrary
		}
		if !msg.deleted {
			cmd := m.loadListCmd()
			return m, cmd
		}
		cmd := tea.Batch(m.setStatus(fmt.Sprintf("Deleted '%s'", msg.title), statusSuccess), m.loadListCmd())
		return m, cmd

	case copiedMsg:
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		cmd := m.setStatus(partCopied(msg.part), statusSuccess)
		return m, cmd

	case randomMsg:
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		if !msg.found {
			cmd := m.setStatus("No prompts match current filter.", statusInfo)
			return m, cmd
		}
		m.openDetail(msg.prompt)
		m.pendingSelect = msg.prompt.Name
		cmd := tea.Batch(m.setStatus("Loaded: "+msg.prompt.Name, statusSuccess), m.loadListCmd())
		return m, cmd

	case themeSavedMsg:
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		cmd := m.setStatus("Theme: "+msg.theme, statusInfo)
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.confirmDelete != "" {
			return m.updateConfirm(msg)
		}
		switch m.viewMode {
		case ViewEditor:
			return m.updateEditor(msg)
		case ViewPromptDetail:
			return m.updateDetail(msg)
		default:
			return m.updateLibrary(msg)
		}
	}

	// Cursor blink and other component messages
	var cmd tea.Cmd
	switch {
	case m.viewMode == ViewEditor && m.form != nil:
		cmd = m.form.Update(msg)
	case m.search.Focused():
		m.search, cmd = m.search.Update(msg)
	}
	return m, cmd
}

// applyListing replaces the list rows, keeping the selection on the same
// title when it is still shown
func (m *Model) applyListing(msg listLoadedMsg) {
	current := ""
	if m.filterIndex < len(m.filters) {
		current = m.filters[m.filterIndex]
	}
	previous, _ := m.selectedTitle()
	if m.pendingSelect != "" {
		previous = m.pendingSelect
		m.pendingSelect = ""
	}

	m.filters = msg.filters
	m.filterIndex = 0
	for i, f := range m.filters {
		if f == current {
			m.filterIndex = i
			break
		}
	}

	m.listing = msg.listing
	m.vaultStatus = msg.status
	items := make([]list.Item, len(msg.listing.Items))
	for i, item := range msg.listing.Items {
		items[i] = item
	}
	m.promptList.SetItems(items)
	if i := msg.listing.IndexOf(previous); i >= 0 {
		m.promptList.Select(i)
	}
}

func (m Model) updateLibrary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.Focused() {
		switch msg.String() {
		case "esc", "enter":
			m.search.Blur()
			return m, nil
		}
		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			reload := m.loadListCmd()
			return m, tea.Batch(cmd, reload)
		}
		return m, cmd
	}

	title, hasRow := m.selectedTitle()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showExpandedHelp = !m.showExpandedHelp
		m.help.ShowAll = m.showExpandedHelp
		return m, nil
	case key.Matches(msg, m.keys.Search):
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		if m.search.Value() != "" {
			m.search.SetValue("")
			cmd := m.loadListCmd()
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.NextFilter):
		m.filterIndex = (m.filterIndex + 1) % len(m.filters)
		cmd := m.loadListCmd()
		return m, cmd
	case key.Matches(msg, m.keys.PrevFilter):
		m.filterIndex = (m.filterIndex + len(m.filters) - 1) % len(m.filters)
		cmd := m.loadListCmd()
		return m, cmd
	case key.Matches(msg, m.keys.New):
		return m, m.newFormCmd(nil)
	case key.Matches(msg, m.keys.Random):
		return m, m.randomCmd()
	case key.Matches(msg, m.keys.TogglePony, m.keys.ToggleRealism, m.keys.Theme):
		cmd := m.toggleSetting(msg)
		return m, cmd
	}

	if hasRow {
		switch {
		case key.Matches(msg, m.keys.Enter):
			return m, m.loadPromptCmd(title, false)
		case key.Matches(msg, m.keys.Edit):
			return m, m.loadPromptCmd(title, true)
		case key.Matches(msg, m.keys.Delete):
			m.confirmDelete = title
			return m, nil
		case key.Matches(msg, m.keys.Favorite):
			return m, m.toggleFavoriteCmd(title)
		case key.Matches(msg, m.keys.CopyBoth):
			return m, m.copyCmd(title, renderer.PartBoth)
		case key.Matches(msg, m.keys.CopyPositive):
			return m, m.copyCmd(title, renderer.PartPositive)
		case key.Matches(msg, m.keys.CopyNegative):
			return m, m.copyCmd(title, renderer.PartNegative)
		}
	}

	var cmd tea.Cmd
	m.promptList, cmd = m.promptList.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	title := m.selected.Name

	switch {
	case key.Matches(msg, m.keys.Back), msg.String() == "backspace":
		m.viewMode = ViewLibrary
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showExpandedHelp = !m.showExpandedHelp
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		return m, m.newFormCmd(m.selected)
	case key.Matches(msg, m.keys.Delete):
		m.confirmDelete = title
		return m, nil
	case key.Matches(msg, m.keys.Favorite):
		return m, m.toggleFavoriteCmd(title)
	case key.Matches(msg, m.keys.Random):
		return m, m.randomCmd()
	case key.Matches(msg, m.keys.CopyBoth):
		return m, m.copyCmd(title, renderer.PartBoth)
	case key.Matches(msg, m.keys.CopyPositive):
		return m, m.copyCmd(title, renderer.PartPositive)
	case key.Matches(msg, m.keys.CopyNegative):
		return m, m.copyCmd(title, renderer.PartNegative)
	case key.Matches(msg, m.keys.TogglePony, m.keys.ToggleRealism, m.keys.Theme):
		cmd := m.toggleSetting(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" && !m.form.LoraActive() {
		m.form = nil
		if m.selected != nil {
			m.viewMode = ViewPromptDetail
		} else {
			m.viewMode = ViewLibrary
		}
		return m, nil
	}

	cmd := m.form.Update(msg)
	if m.form.IsSubmitted() {
		return m, tea.Batch(cmd, m.saveCmd(m.form.ToDraft()))
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	title := m.confirmDelete
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirmDelete = ""
		return m, m.deleteCmd(title)
	case "n", "N", "esc", "q":
		m.confirmDelete = ""
		return m, nil
	}
	return m, nil
}

// toggleSetting flips pony or realism mode for the session, or cycles the
// stored theme
func (m *Model) toggleSetting(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.TogglePony):
		m.modes.Pony = !m.modes.Pony
		m.renderDetail()
		return m.setStatus(modeStatus("Pony mode", m.modes.Pony), statusInfo)
	case key.Matches(msg, m.keys.ToggleRealism):
		m.modes.Realism = !m.modes.Realism
		m.renderDetail()
		return m.setStatus(modeStatus("Realism mode", m.modes.Realism), statusInfo)
	default:
		m.theme = nextTheme(m.theme)
		m.dark = applyTheme(m.theme)
		m.rebuildGlamour()
		m.renderDetail()
		return m.saveThemeCmd(m.theme)
	}
}

func nextTheme(theme string) string {
	switch theme {
	case models.ThemeSystem:
		return models.ThemeDark
	case models.ThemeDark:
		return models.ThemeLight
	default:
		return models.ThemeSystem
	}
}

func modeStatus(label string, on bool) string {
	if on {
		return label + " on"
	}
	return label + " off"
}

func partCopied(part renderer.Part) string {
	switch part {
	case renderer.PartPositive:
		return "Positive prompt copied!"
	case renderer.PartNegative:
		return "Negative prompt copied!"
	default:
		return "Both prompts copied!"
	}
}

func (m *Model) openDetail(p *models.Prompt) {
	m.selected = p
	m.viewMode = ViewPromptDetail
	m.viewport.GotoTop()
	m.renderDetail()
}

// renderDetail renders the selected prompt with the current modes applied
func (m *Model) renderDetail() {
	if m.selected == nil {
		return
	}
	md := renderer.RenderMarkdown(m.selected, m.modes)
	formatted, err := m.glamourRenderer.Render(md)
	if err != nil {
		formatted = md
	}
	m.viewport.SetContent(formatted)
}

func (m *Model) rebuildGlamour() {
	wrap := m.viewport.Width - 4
	if wrap < 40 {
		wrap = 40
	}
	if r, err := createGlamourRenderer(wrap, m.dark); err == nil {
		m.glamourRenderer = r
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	// title, filter bar, status line, help and margins
	const reservedHeight = 8
	available := height - reservedHeight
	if available < 5 {
		available = 5
	}

	m.promptList.SetSize(width-4, available)
	m.search.Width = width - 10

	vpWidth := width - 8
	if vpWidth < 40 {
		vpWidth = 40
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = available - 2
	m.help.Width = width - 4
	m.rebuildGlamour()
	m.renderDetail()

	if m.form != nil {
		m.form.Resize(width, height)
	}
}

// View renders the current screen
func (m Model) View() string {
	if m.confirmDelete != "" {
		modal := StyleModal.Render(lipgloss.JoinVertical(lipgloss.Left,
			StyleFormLabel.Render(fmt.Sprintf("Delete '%s'?", m.confirmDelete)),
			"",
			StyleTextDim.Render("y delete • n cancel"),
		))
		return CenterModal(modal, m.width, m.height)
	}

	var mainView string
	switch m.viewMode {
	case ViewPromptDetail:
		mainView = m.renderPromptDetailView()
	case ViewEditor:
		mainView = m.renderEditorView()
	default:
		mainView = m.renderLibraryView()
	}

	if m.statusMsg != "" {
		var statusBar string
		if m.statusColor != "" {
			statusBar = StyleError.Foreground(m.statusColor).Render(m.statusMsg)
		} else {
			statusBar = CreateStatus(m.statusMsg, m.statusKind)
		}
		mainView = lipgloss.JoinVertical(lipgloss.Left, mainView, statusBar)
	}
	return AddMainPadding(mainView)
}

func (m Model) renderModes() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		CreateModeIndicator("Pony", m.modes.Pony),
		"  ",
		CreateModeIndicator("Realism", m.modes.Realism),
	)
}

// renderLibraryView renders the filter bar, search box and prompt list
func (m Model) renderLibraryView() string {
	filter := StyleFilterIndicator.Render("Filter: " + m.currentFilter().String())
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		CreateMainHeader("Prompt Vault"), "  ", filter, "  ", m.renderModes())

	elements := []string{header}
	if m.search.Focused() || m.search.Value() != "" {
		elements = append(elements, m.search.View())
	}

	switch {
	case m.loading:
		elements = append(elements, StyleLoading.Render("Loading prompts..."))
	case m.listing.Len() == 0:
		elements = append(elements, StyleTextMuted.Render("  No prompts match current filter."))
	default:
		elements = append(elements, m.promptList.View())
	}

	elements = append(elements, CreateMetadata(m.vaultStatus), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, elements...)
}

// renderPromptDetailView renders the selected prompt in full-page view
func (m Model) renderPromptDetailView() string {
	if m.selected == nil {
		return "No prompt selected"
	}

	metadata := fmt.Sprintf("Category: %s", m.selected.Category)
	if !m.selected.LastUsed.IsZero() {
		metadata += " • Last used: " + m.selected.LastUsed.Format(models.TimeLayout)
	}

	topIndicator, bottomIndicator := CreateScrollIndicators(!m.viewport.AtTop(), !m.viewport.AtBottom())
	content := StyleContentContainer.Render(lipgloss.JoinVertical(lipgloss.Left,
		topIndicator, m.viewport.View(), bottomIndicator))

	essential := []string{"c copy both • 1 positive • 2 negative • esc back"}
	additional := []string{"e edit • f favorite • d delete • r random", "P pony • R realism • t theme • q quit"}
	help := CreateContextualHelp(essential, additional, m.showExpandedHelp, m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		CreateMainHeader(m.selected.Name),
		lipgloss.JoinHorizontal(lipgloss.Left, CreateMetadata(metadata), "  ", m.renderModes()),
		content,
		help,
	)
}

func (m Model) renderEditorView() string {
	if m.form == nil {
		return ""
	}
	title := "New Prompt"
	if m.form.Editing() != "" {
		title = "Edit: " + m.form.Editing()
	}
	help := CreateContextualHelp(
		[]string{"tab next field • ctrl+s save • ctrl+l add LoRA • esc cancel"},
		nil, false, m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Left, CreateMainHeader(title), "  ", m.renderModes()),
		"",
		m.form.View(),
		"",
		help,
	)
}
