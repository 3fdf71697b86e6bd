package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
)

// maxOutcomeLines caps the per-video listing on the result screen.
const maxOutcomeLines = 15

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ResourceListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// Store is the slice of local persistence the TUI needs.
//
// Implemented by [repositories.LocalStore].
type Store interface {
	LoadAll() ([]models.Resource, error)
	Apply(res models.Resource, result *tasks.SyncResult) error
	RecordRun(res models.Resource, result *tasks.SyncResult, syncErr error) (*models.SyncRun, error)
	SetSyncEnabled(kind models.Kind, youtubeID string, enabled bool) error
}

// Options configures the syncs the TUI starts.
type Options struct {
	Engine tasks.EngineOpts
	Bulk   tasks.BulkSyncOpts
	Logger *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	store        Store
	fetcher      tasks.Fetcher
	opts         Options
	logger       *log.Logger
	width        int
	height       int
	resources    list.Model
	targets      []models.Resource
	progressChan chan tasks.ProgressUpdate
	done         chan tea.Msg
	progress     tasks.ProgressUpdate
	results      []tasks.ResourceResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model syncing resources from store against fetcher.
func NewModel(ctx context.Context, store Store, fetcher tasks.Fetcher, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Model{
		ctx:       ctx,
		view:      ResourceListView,
		store:     store,
		fetcher:   fetcher,
		opts:      opts,
		logger:    logger,
		resources: newResourceList(nil, 0, 0),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init initializes the TUI by loading tracked resources.
func (m *Model) Init() tea.Cmd {
	return m.loadResources()
}

// View returns the active view.
func (m *Model) View() string {
	if m.err != nil && m.view == ResourceListView {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.reload, m.keys.quit})
	}

	switch m.view {
	case ResourceListView:
		return m.renderResourceList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resources.SetSize(max(msg.Width-4, 0), max(msg.Height-8, 0))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ResourceListView:
			return m.handleListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case resourcesLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.resources = newResourceList(msg.resources, m.width, m.height)
		}
		return m, nil

	case toggledMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.loadResources()

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncedMsg:
		m.results = msg.results
		m.err = msg.err
		m.view = ResultView
		m.progressChan, m.done = nil, nil
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ResourceListView {
		m.resources, cmd = m.resources.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.resources.SettingFilter() {
		var cmd tea.Cmd
		m.resources, cmd = m.resources.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.err = nil
		return m, m.loadResources()
	case key.Matches(msg, m.keys.sync):
		if res := m.selected(); res != nil {
			m.targets = []models.Resource{res}
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.syncAll):
		m.targets = m.allResources()
		if len(m.targets) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		if res := m.selected(); res != nil {
			return m, m.toggle(res)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.resources, cmd = m.resources.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startSync()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.targets = nil
		m.view = ResourceListView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.reload):
		m.view = ResourceListView
		m.targets, m.results, m.err = nil, nil, nil
		return m, m.loadResources()
	}
	return m, nil
}

func (m *Model) selected() models.Resource {
	if item, ok := m.resources.SelectedItem().(resourceItem); ok {
		return item.res
	}
	return nil
}

func (m *Model) allResources() []models.Resource {
	items := m.resources.Items()
	resources := make([]models.Resource, 0, len(items))
	for _, it := range items {
		if item, ok := it.(resourceItem); ok {
			resources = append(resources, item.res)
		}
	}
	return resources
}

func (m *Model) loadResources() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		resources, err := store.LoadAll()
		return resourcesLoadedMsg{resources: resources, err: err}
	}
}

func (m *Model) toggle(res models.Resource) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return toggledMsg{err: store.SetSyncEnabled(res.Kind(), res.RemoteInfo().ID, !res.IsSyncEnabled())}
	}
}

// startSync reconciles the confirmed targets in the background.
//
// A single target goes through one [tasks.Engine] so every phase is reported; more go through [tasks.SyncAll].
func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan tea.Msg, 1)

	targets, progress, done := m.targets, m.progressChan, m.done
	go func() {
		done <- m.runSync(targets, progress)
	}()

	return m.waitForProgress()
}

func (m *Model) runSync(targets []models.Resource, progress chan<- tasks.ProgressUpdate) syncedMsg {
	var (
		results []tasks.ResourceResult
		err     error
	)

	if len(targets) == 1 {
		engine := tasks.NewEngine(m.fetcher, m.opts.Engine)
		result, syncErr := engine.Sync(m.ctx, progress, targets[0])
		results = []tasks.ResourceResult{{Resource: targets[0], Result: result, Err: syncErr}}
	} else {
		var bulk *tasks.BulkSyncResult
		bulk, err = tasks.SyncAll(m.ctx, progress, m.fetcher, targets, m.opts.Bulk)
		if bulk != nil {
			results = bulk.Results
		}
	}

	for i := range results {
		r := &results[i]
		if r.Err == nil {
			if applyErr := m.store.Apply(r.Resource, r.Result); applyErr != nil {
				r.Err = applyErr
			}
		}
		if _, runErr := m.store.RecordRun(r.Resource, r.Result, r.Err); runErr != nil {
			m.logger.Warn("failed to record sync run", "id", r.Resource.RemoteInfo().ID, "error", runErr)
		}
	}

	return syncedMsg{results: results, err: err}
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

func (m *Model) renderResourceList() string {
	helpKeys := []key.Binding{m.keys.sync, m.keys.syncAll, m.keys.toggle, m.keys.reload, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.resources.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	var b strings.Builder
	if len(m.targets) == 1 {
		res := m.targets[0]
		b.WriteString(styles.title.Render(fmt.Sprintf("Sync %s %s?", res.Kind(), res.RemoteInfo().ID)))
		if title := resourceTitle(res); title != "" {
			b.WriteString(fmt.Sprintf("\nTitle: %s", title))
		}
		b.WriteString(fmt.Sprintf("\nSync: %s\n", shared.VisibilityString(res.IsSyncEnabled())))
	} else {
		b.WriteString(styles.title.Render(fmt.Sprintf("Sync all %d tracked resources?", len(m.targets))))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchIncremental:
		phase = "Fetching incremental changes..."
	case tasks.FetchFull:
		phase = "Fetching full snapshot..."
	case tasks.FetchVideo:
		phase = "Fetching video..."
	case tasks.MergeVideos:
		phase = "Merging videos..."
	case tasks.BulkSync:
		phase = fmt.Sprintf("Syncing resources (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Sync interrupted: %v", m.err)) + "\n\n")
	}

	failed := 0
	for _, r := range m.results {
		if r.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ Synced %d resources", len(m.results))))
	} else {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Synced %d/%d resources (%d failed)", len(m.results)-failed, len(m.results), failed)))
	}
	b.WriteString("\n\n")

	for _, r := range m.results {
		b.WriteString(summaryLine(r) + "\n")
	}

	if len(m.results) == 1 && m.results[0].Err == nil && m.results[0].Result != nil {
		b.WriteString(outcomeLines(m.results[0].Result))
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func summaryLine(r tasks.ResourceResult) string {
	name := fmt.Sprintf("[%s] %s", r.Resource.Kind(), r.Resource.RemoteInfo().ID)
	if r.Err != nil {
		return styles.err.Render("✗ ") + fmt.Sprintf("%s: %v", name, r.Err)
	}

	res := r.Result
	if res.Kind == models.KindVideo {
		state := "updated"
		if res.Unchanged {
			state = "unchanged"
		}
		return styles.ok.Render("✓ ") + fmt.Sprintf("%s: %s", name, state)
	}

	return styles.ok.Render("✓ ") + fmt.Sprintf("%s: %d videos (%d added, %d updated, %d skipped, %d removed)",
		name, res.Videos.Len(),
		res.Videos.Count(models.OutcomeAdded),
		res.Videos.Count(models.OutcomeUpdated),
		res.Videos.Count(models.OutcomeSkipped),
		len(res.Removed),
	)
}

func outcomeLines(res *tasks.SyncResult) string {
	var b strings.Builder
	shown := 0
	for _, e := range res.Videos.Entries {
		if e.Outcome == models.OutcomeUnchanged {
			continue
		}
		if shown == maxOutcomeLines {
			b.WriteString(styles.help.Render("  ...") + "\n")
			break
		}
		title := e.Video.Title
		if title == "" {
			title = e.Video.YouTubeID
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", styles.outcomeStyle(e.Outcome).Render(fmt.Sprintf("%-9s", e.Outcome)), shared.Truncate(title, 60)))
		shown++
	}
	for _, v := range res.Removed {
		if shown == maxOutcomeLines {
			break
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", styles.err.Render(fmt.Sprintf("%-9s", "removed")), shared.Truncate(v.YouTubeID, 60)))
		shown++
	}
	if b.Len() == 0 {
		return ""
	}
	return "\n" + b.String()
}
