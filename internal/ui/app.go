package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/five82/pulse/internal/dashboard"
	"github.com/five82/pulse/internal/logtail"
	"github.com/five82/pulse/internal/prefs"
	"github.com/five82/pulse/internal/state"
	"github.com/five82/pulse/internal/status"
)

const (
	defaultTick       = time.Second
	authCheckInterval = time.Minute
	toastDuration     = 3 * time.Second
	logPaneHeight     = 8
	logTailLines      = 200
	requestTimeout    = 15 * time.Second
)

// Options configures the UI.
type Options struct {
	Context context.Context
	Store   *state.Store

	// Refresh triggers a manual refresh. Nil disables the r key.
	Refresh func(ctx context.Context) error
	// AuthStatus fetches the backend authorization state. Nil hides the badge.
	AuthStatus func(ctx context.Context) (dashboard.AuthStatus, error)
	// AuthURL is opened by the a key.
	AuthURL string
	// OpenURL opens a URL in the user's browser. Defaults to browser.OpenURL.
	OpenURL func(url string) error

	LogPath   string
	Tick      time.Duration
	ThemeName string
	ShowLogs  bool
	PrefsPath string
	Logger    zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx        context.Context
	store      *state.Store
	refresh    func(context.Context) error
	authStatus func(context.Context) (dashboard.AuthStatus, error)
	authURL    string
	openURL    func(string) error
	logPath    string
	prefsPath  string
	tick       time.Duration
	log        zerolog.Logger
	keys       keyMap

	theme  Theme
	width  int
	height int
	ready  bool

	snapshot   state.Snapshot
	auth       dashboard.AuthStatus
	hasAuth    bool
	lastAuth   time.Time
	refreshing bool

	offset   int
	showLogs bool
	logLines []logtail.Entry

	showHelp       bool
	showAuthPrompt bool

	toast      string
	toastUntil time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	openURL := opts.OpenURL
	if openURL == nil {
		openURL = browser.OpenURL
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return Model{
		ctx:        ctx,
		store:      store,
		refresh:    opts.Refresh,
		authStatus: opts.AuthStatus,
		authURL:    opts.AuthURL,
		openURL:    openURL,
		logPath:    opts.LogPath,
		prefsPath:  prefsPath,
		tick:       tick,
		log:        opts.Logger.With().Str("component", "ui").Logger(),
		keys:       DefaultKeyMap(),
		theme:      GetTheme(opts.ThemeName),
		showLogs:   opts.ShowLogs,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.tick),
		fetchSnapshotCmd(m.store),
	}
	if cmd := m.fetchAuthStatus(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.showLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.clampOffset()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		return m.handleSnapshot(msg)

	case refreshDoneMsg:
		m.refreshing = false
		if msg.err != nil {
			m.setToast("Refresh failed: " + msg.err.Error())
		} else {
			m.setToast("Refreshed")
		}
		return m, fetchSnapshotCmd(m.store)

	case authStatusMsg:
		if msg.err != nil {
			m.log.Debug().Err(msg.err).Msg("auth status unavailable")
			return m, nil
		}
		m.auth = msg.status
		m.hasAuth = true
		return m, nil

	case logsMsg:
		if msg.err == nil {
			m.logLines = msg.entries
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.setToast("Could not open browser: " + msg.err.Error())
		} else {
			m.setToast("Opened " + m.authURL)
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.showAuthPrompt {
		return m.renderAuthPrompt()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.showAuthPrompt {
		switch {
		case key.Matches(msg, m.keys.Authorize), msg.String() == "enter":
			m.showAuthPrompt = false
			return m, m.openAuth()
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
			m.showAuthPrompt = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.savePrefs()
		m.clampOffset()
		if m.showLogs {
			return m, readLogsCmd(m.logPath)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.refresh == nil || m.refreshing {
			return m, nil
		}
		m.refreshing = true
		m.setToast("Refreshing...")
		return m, refreshCmd(m.ctx, m.refresh)

	case key.Matches(msg, m.keys.Authorize):
		return m, m.openAuth()

	case key.Matches(msg, m.keys.Up):
		if m.offset > 0 {
			m.offset--
		}
	case key.Matches(msg, m.keys.Down):
		m.offset++
		m.clampOffset()
	case key.Matches(msg, m.keys.Top):
		m.offset = 0
	case key.Matches(msg, m.keys.Bottom):
		m.offset = len(m.snapshot.Records)
		m.clampOffset()
	}

	return m, nil
}

func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{fetchSnapshotCmd(m.store)}

	if m.toast != "" && now.After(m.toastUntil) {
		m.toast = ""
	}
	if m.showLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	if now.Sub(m.lastAuth) >= authCheckInterval {
		if cmd := m.fetchAuthStatus(); cmd != nil {
			m.lastAuth = now
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(m.tick))
	return m, tea.Batch(cmds...)
}

func (m Model) handleSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	prev := m.snapshot
	m.snapshot = msg.snapshot
	m.clampOffset()

	if msg.prompt {
		m.showAuthPrompt = true
	}

	fresh := m.snapshot.Updates > prev.Updates
	if fresh && m.snapshot.Origin == "push" &&
		m.snapshot.Status.Category == status.Success && len(m.snapshot.Records) > 0 {
		m.setToast("Data updated")
	}

	// Authorization state likely moved; re-read the badge.
	if fresh && prev.HasStatus && prev.Status.Category != m.snapshot.Status.Category &&
		(prev.Status.Category == status.NeedAuth || m.snapshot.Status.Category == status.NeedAuth) {
		return m, m.fetchAuthStatus()
	}
	return m, nil
}

func (m *Model) setToast(text string) {
	m.toast = text
	m.toastUntil = time.Now().Add(toastDuration)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, ShowLogs: m.showLogs}); err != nil {
		m.log.Warn().Err(err).Msg("save prefs failed")
	}
}

func (m Model) openAuth() tea.Cmd {
	if strings.TrimSpace(m.authURL) == "" {
		return nil
	}
	url, open := m.authURL, m.openURL
	return func() tea.Msg {
		return openedMsg{err: open(url)}
	}
}

func (m Model) fetchAuthStatus() tea.Cmd {
	if m.authStatus == nil {
		return nil
	}
	ctx, fetch := m.ctx, m.authStatus
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		st, err := fetch(reqCtx)
		return authStatusMsg{status: st, err: err}
	}
}

// tableRows is how many record rows fit on screen.
func (m Model) tableRows() int {
	used := 5 // header, command bar, stats, table header, footer
	if m.snapshot.HasStatus && m.snapshot.Status.Banner != status.BannerHidden {
		used++
	}
	if m.showLogs {
		used += logPaneHeight + 1
	}
	rows := m.height - used
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampOffset() {
	maxOffset := len(m.snapshot.Records) - m.tableRows()
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.offset > maxOffset {
		m.offset = maxOffset
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	if banner := m.renderBanner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(m.renderTable())
	if m.showLogs {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	snapshot state.Snapshot
	prompt   bool
}

type refreshDoneMsg struct{ err error }

type authStatusMsg struct {
	status dashboard.AuthStatus
	err    error
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

type openedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snapshot: store.Snapshot(), prompt: store.TakePrompt()}
	}
}

func refreshCmd(ctx context.Context, refresh func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return refreshDoneMsg{err: refresh(reqCtx)}
	}
}

func readLogsCmd(path string) tea.Cmd {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines)
		return logsMsg{entries: entries, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx ends.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
