package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chronicle-labs/chronicle/internal/actions"
	"github.com/chronicle-labs/chronicle/internal/model"
	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

// focusArea is which pane receives key input.
type focusArea int

const (
	focusQuery focusArea = iota
	focusTable
	focusTree
	focusMenu
	focusFilter
	focusConfirm
)

// detailResult carries a background-loaded live object and snapshot for the
// detail tree.
type detailResult struct {
	id       core.SnapshotID
	obj      any
	snapshot any
}

type detailMsg struct{ result detailResult }

// Options configures the browser.
type Options struct {
	Store    store.Store
	Registry *actions.Registry
	Logger   *slog.Logger
	SaveDir  string

	// Refresh re-runs the current query whenever it delivers, typically
	// fed by a store.Watcher.
	Refresh <-chan struct{}
}

// App is the bubbletea model for the browser. The Update loop is the
// interactive thread: every mutation of the underlying models happens here,
// fed by messages from background workers.
type App struct {
	store    store.Store
	exec     *model.Executor
	qstate   *model.QueryState
	stream   *model.ResultStream
	table    *model.EntryTable
	tree     *model.DetailTree
	filter   *model.TypeFilter
	registry *actions.Registry
	logger   *slog.Logger
	saveDir  string

	queryInput textinput.Model
	spin       spinner.Model
	treePane   *treePane

	focus     focusArea
	lastFocus focusArea
	epoch     int
	cursor    int
	drained   bool
	parseErr  string
	counts    model.TaskCounts
	status    noticeMsg
	width     int
	height    int

	menu        actions.Menu
	menuSection int
	menuItem    int

	typeEntries []model.TypeEntry
	typeCursor  int

	streamCh  chan model.StreamEvent
	typesCh   chan []model.TypeEntry
	detailCh  chan detailResult
	refreshCh <-chan struct{}
	confirmer *chanConfirmer
	notifier  *chanNotifier
	deleted   chan []string
	pending   *confirmRequest
}

// New assembles the browser around a store handle, which may be nil when no
// database is connected yet.
func New(ctx context.Context, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = actions.DefaultRegistry()
	}

	exec := model.NewExecutor(logger)
	qstate := model.NewQueryState()

	var finder model.Finder
	var namer model.TypeNamer
	if opts.Store != nil {
		finder = model.StoreFinder(opts.Store)
		namer = opts.Store
	}
	stream := model.NewResultStream(ctx, exec, qstate, finder)

	a := &App{
		store:     opts.Store,
		exec:      exec,
		qstate:    qstate,
		stream:    stream,
		table:     model.NewEntryTable(namer),
		tree:      model.NewDetailTree(),
		registry:  registry,
		logger:    logger,
		saveDir:   opts.SaveDir,
		streamCh:  make(chan model.StreamEvent, 64),
		refreshCh: opts.Refresh,
		typesCh:   make(chan []model.TypeEntry, 1),
		detailCh:  make(chan detailResult, 4),
		confirmer: newChanConfirmer(),
		notifier:  newChanNotifier(),
		deleted:   make(chan []string, 4),
		focus:     focusTable,
	}
	if opts.Store != nil {
		a.filter = model.NewTypeFilter(opts.Store, exec, qstate)
		a.filter.Subscribe(func(e model.TypeFilterPopulated) {
			select {
			case a.typesCh <- e.Entries:
			default:
			}
		})
	}
	a.treePane = newTreePane(a.tree)

	a.queryInput = textinput.New()
	a.queryInput.Prompt = "query> "
	a.queryInput.Placeholder = `{"type": "...", "version": -1}`
	a.queryInput.SetValue(qstate.GetQuery().String())

	a.spin = spinner.New(spinner.WithSpinner(spinner.Dot))

	stream.Subscribe(func(e model.StreamEvent) { a.streamCh <- e })
	return a
}

// Init implements tea.Model: arm the message pumps and run the first query.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitStream(a.streamCh),
		waitExec(a.exec.Events()),
		waitConfirm(a.confirmer.requests),
		waitNotice(a.notifier.notices),
		waitDeleted(a.deleted),
		a.waitDetail(),
		a.waitTypes(),
		a.spin.Tick,
	}
	if a.refreshCh != nil {
		cmds = append(cmds, a.waitRefresh())
	}
	a.stream.Refresh()
	if a.filter != nil {
		a.filter.Populate(context.Background())
	}
	return tea.Batch(cmds...)
}

func (a *App) waitRefresh() tea.Cmd {
	return func() tea.Msg {
		_, ok := <-a.refreshCh
		if !ok {
			return nil
		}
		return refreshMsg{}
	}
}

func (a *App) waitDetail() tea.Cmd {
	return func() tea.Msg {
		r, ok := <-a.detailCh
		if !ok {
			return nil
		}
		return detailMsg{result: r}
	}
}

func (a *App) waitTypes() tea.Cmd {
	return func() tea.Msg {
		entries, ok := <-a.typesCh
		if !ok {
			return nil
		}
		return typesMsg{entries: entries}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.queryInput.Width = msg.Width - len(a.queryInput.Prompt) - 2
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case streamMsg:
		a.applyStream(msg.event)
		return a, waitStream(a.streamCh)

	case execMsg:
		switch e := msg.event.(type) {
		case model.TaskStarted:
			a.counts = e.Counts
		case model.TaskEnded:
			a.counts = e.Counts
			if e.Err != nil {
				a.status = noticeMsg{level: levelError, text: e.Err.Error()}
			}
		}
		return a, waitExec(a.exec.Events())

	case detailMsg:
		a.applyDetail(msg.result)
		return a, a.waitDetail()

	case typesMsg:
		a.typeEntries = msg.entries
		return a, a.waitTypes()

	case refreshMsg:
		a.stream.Refresh()
		return a, a.waitRefresh()

	case noticeMsg:
		a.status = msg
		return a, waitNotice(a.notifier.notices)

	case deletedMsg:
		removed := a.removeDeleted(msg.ids)
		a.status = noticeMsg{level: levelInfo, text: fmt.Sprintf("Removed %d row(s)", removed)}
		return a, waitDeleted(a.deleted)

	case confirmMsg:
		a.pending = &msg.req
		a.lastFocus = a.focus
		a.focus = focusConfirm
		return a, waitConfirm(a.confirmer.requests)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

// applyStream folds a stream event into the table. Batches from superseded
// epochs are dropped here; the worker may already have queued them before
// it noticed the epoch moved.
func (a *App) applyStream(e model.StreamEvent) {
	switch e.Kind {
	case model.StreamInvalidated:
		a.epoch = e.Epoch
		a.drained = false
		a.cursor = 0
		a.table.RemoveRecords(0, a.table.RowCount())
		a.tree.Reset()
		a.treePane.reset()
	case model.StreamBatch:
		if e.Epoch != a.epoch {
			return
		}
		a.table.AppendRecords(e.Records)
	case model.StreamDrained:
		if e.Epoch == a.epoch {
			a.drained = true
		}
	case model.StreamFailed:
		if e.Epoch == a.epoch {
			a.status = noticeMsg{level: levelError, text: fmt.Sprintf("query failed: %v", e.Err)}
		}
	}
}

// applyDetail attaches loaded live object and snapshot, unless the cursor
// has moved on to another record.
func (a *App) applyDetail(r detailResult) {
	rec, ok := a.table.GetRecord(a.cursor)
	if !ok || rec.SnapshotID() != r.id {
		return
	}
	a.tree.SetRecord(rec, r.obj, r.snapshot)
	a.treePane.reset()
}

// selectRecord shows the record under the cursor in the detail tree and
// kicks off a background load of its live object and snapshot.
func (a *App) selectRecord() {
	rec, ok := a.table.GetRecord(a.cursor)
	if !ok {
		return
	}
	a.tree.SetRecord(rec, nil, nil)
	a.treePane.reset()

	if a.store == nil {
		return
	}
	id := rec.SnapshotID()
	s := a.store
	a.exec.Submit(func() (any, error) {
		r := detailResult{id: id}
		if obj, err := s.Load(context.Background(), id.ObjID); err == nil {
			r.obj = obj
			if snap, err := s.LoadSnapshot(context.Background(), id); err == nil {
				r.snapshot = snap
			}
		}
		a.detailCh <- r
		return nil, nil
	}, "Loading object...", false)
}

// removeDeleted drops rows whose object was deleted; inferred columns are
// pruned by the table as rows disappear.
func (a *App) removeDeleted(ids []string) int {
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	removed := a.table.RemoveMatching(func(rec core.Record) bool { return gone[rec.ObjID] })
	if a.cursor >= a.table.RowCount() {
		a.cursor = a.table.RowCount() - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	return removed
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	switch a.focus {
	case focusConfirm:
		return a.handleConfirmKey(msg)
	case focusMenu:
		return a.handleMenuKey(msg)
	case focusFilter:
		return a.handleFilterKey(msg)
	case focusQuery:
		return a.handleQueryKey(msg)
	case focusTree:
		return a.handleTreeKey(msg)
	default:
		return a.handleTableKey(msg)
	}
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		a.answerConfirm(true)
	case "n", "N", "esc":
		a.answerConfirm(false)
	}
	return a, nil
}

func (a *App) answerConfirm(answer bool) {
	if a.pending != nil {
		a.pending.resp <- answer
		a.pending = nil
	}
	a.focus = a.lastFocus
}

func (a *App) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.focus = a.lastFocus
	case "up", "k":
		a.moveMenu(-1)
	case "down", "j":
		a.moveMenu(1)
	case "enter":
		item := a.menu.Sections[a.menuSection].Items[a.menuItem]
		a.focus = a.lastFocus
		a.invokeItem(item)
	}
	return a, nil
}

func (a *App) moveMenu(delta int) {
	if a.menu.Empty() {
		return
	}
	section, item := a.menuSection, a.menuItem+delta
	for {
		items := a.menu.Sections[section].Items
		if item >= 0 && item < len(items) {
			break
		}
		if item < 0 {
			if section == 0 {
				item = 0
				break
			}
			section--
			item = len(a.menu.Sections[section].Items) - 1
		} else {
			if section == len(a.menu.Sections)-1 {
				item = len(items) - 1
				break
			}
			section++
			item = 0
		}
	}
	a.menuSection, a.menuItem = section, item
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.focus = a.lastFocus
	case "up", "k":
		if a.typeCursor > 0 {
			a.typeCursor--
		}
	case "down", "j":
		if a.typeCursor < len(a.typeEntries) {
			a.typeCursor++
		}
	case "enter":
		// Index 0 is the "all types" entry.
		if a.typeCursor == 0 {
			a.qstate.SetTypeRestriction("")
		} else if a.typeCursor-1 < len(a.typeEntries) {
			a.qstate.SetTypeRestriction(a.typeEntries[a.typeCursor-1].TypeID)
		}
		a.queryInput.SetValue(a.qstate.GetQuery().String())
		a.focus = focusTable
	}
	return a, nil
}

func (a *App) handleQueryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.focus = focusTable
		a.queryInput.Blur()
		return a, nil
	case "enter":
		query, err := core.ParseQuery(a.queryInput.Value())
		if err != nil {
			// A bad document never clobbers current results.
			a.parseErr = err.Error()
			return a, nil
		}
		a.parseErr = ""
		a.qstate.SetQuery(query)
		a.focus = focusTable
		a.queryInput.Blur()
		return a, nil
	}
	var cmd tea.Cmd
	a.queryInput, cmd = a.queryInput.Update(msg)
	return a, cmd
}

func (a *App) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "tab":
		a.focus = focusQuery
		return a, a.queryInput.Focus()
	case "up", "k":
		a.treePane.moveUp()
	case "down", "j":
		a.treePane.moveDown()
	case "enter", "right", "l":
		a.treePane.toggle()
	case "left", "h":
		a.treePane.collapse()
	case "a":
		a.openMenuForTree()
	case "esc":
		a.focus = focusTable
	}
	return a, nil
}

func (a *App) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "tab":
		a.focus = focusQuery
		return a, a.queryInput.Focus()
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
			a.selectRecord()
		}
	case "down", "j":
		if a.cursor < a.table.RowCount()-1 {
			a.cursor++
			a.selectRecord()
		}
	case "enter":
		a.selectRecord()
		a.focus = focusTree
	case "r":
		a.stream.Refresh()
	case "t":
		if a.filter != nil {
			a.lastFocus = a.focus
			a.focus = focusFilter
			a.typeEntries = a.filter.Entries()
			a.typeCursor = 0
		}
	case "a":
		a.openMenuForTable()
	}
	return a, nil
}

func (a *App) openMenuForTable() {
	rec, ok := a.table.GetRecord(a.cursor)
	if !ok {
		return
	}
	a.openMenu([]actions.Group{
		{Label: "Selected record", Selection: actions.SelectRecord(rec)},
	})
}

func (a *App) openMenuForTree() {
	groups := []actions.Group{}
	if n := a.treePane.current(); n != nil {
		groups = append(groups, actions.Group{Label: "Value", Selection: actions.SelectValue(n.Display())})
	}
	if rec, ok := a.table.GetRecord(a.cursor); ok {
		groups = append(groups, actions.Group{Label: "Selected record", Selection: actions.SelectRecord(rec)})
	}
	a.openMenu(groups)
}

func (a *App) openMenu(groups []actions.Group) {
	menu := actions.BuildMenu(a.registry, groups, a.actionContext())
	if menu.Empty() {
		a.status = noticeMsg{level: levelInfo, text: "No actions available"}
		return
	}
	a.menu = menu
	a.menuSection, a.menuItem = 0, 0
	a.lastFocus = a.focus
	a.focus = focusMenu
}

// Run starts the program and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	app := New(ctx, opts)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	app.stream.Close()
	return err
}
