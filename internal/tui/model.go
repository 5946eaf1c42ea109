package tui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"quill/internal/dictation"
	"quill/internal/direction"
	"quill/internal/document"
	"quill/internal/domain"
	"quill/internal/editor"
	"quill/internal/narration"
	"quill/internal/search"
	"quill/internal/tui/keymap"
	"quill/internal/tui/styles"
)

type promptKind int

const (
	promptNone promptKind = iota
	promptFind
	promptReplaceFind
	promptReplaceWith
	promptGoto
	promptOpen
	promptSaveAs
	promptBackground
	promptConfirm
)

// action runs once the user has dealt with unsaved changes.
type action int

const (
	actionNone action = iota
	actionNew
	actionOpen
	actionQuit
)

type editKind int

const (
	editOther editKind = iota
	editTyping
)

// Deps are the collaborators of the editor. Dictation, Narration and Watcher
// may be nil when not configured.
type Deps struct {
	Store     domain.DocumentStore
	Dictation Dictation
	Narration Narration
	Watcher   Watcher
	Clipboard Clipboard
	Logger    *slog.Logger
	Now       func() time.Time
}

type Options struct {
	Path       string
	UndoLimit  int
	TabWidth   int
	Theme      string
	Background string
}

// Model is the Bubble Tea model for the editor. It owns the buffer, the
// search index and the direction tags; background workers reach it only
// through messages.
type Model struct {
	ctx  context.Context
	deps Deps
	log  *slog.Logger

	keys     *keymap.KeyMap
	help     help.Model
	helpView viewport.Model
	showHelp bool

	styles     *styles.Styles
	dark       bool
	background string

	buf       *editor.Buffer
	hist      *editor.History
	dirs      []domain.Direction
	index     *search.Index
	highlight bool
	lastEdit  editKind
	path      string

	input       textinput.Model
	prompt      promptKind
	pending     action
	replaceFind string

	notice    string
	noticeErr bool

	width, height int
	top, left     int
	ready         bool
}

// New creates the editor and loads opts.Path when given. A missing file
// starts an empty document that will be saved there. ctx bounds the
// dictation and narration workers.
func New(ctx context.Context, deps Deps, opts Options) Model {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clipboard == nil {
		deps.Clipboard = SystemClipboard{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	ti := textinput.New()
	ti.CharLimit = 0

	m := Model{
		ctx:        ctx,
		deps:       deps,
		log:        deps.Logger,
		keys:       keymap.DefaultKeyMap(),
		help:       help.New(),
		helpView:   viewport.New(0, 0),
		dark:       !strings.EqualFold(opts.Theme, "light"),
		background: opts.Background,
		buf:        editor.NewBuffer("", opts.TabWidth),
		hist:       editor.NewHistory(opts.UndoLimit),
		index:      search.New(),
		input:      ti,
	}
	m.applyTheme()
	m.reclassify()
	if opts.Path != "" {
		m.load(opts.Path)
	}
	return m
}

// Init arms the receivers for worker output.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.deps.Dictation != nil {
		cmds = append(cmds, waitFragment(m.deps.Dictation.Fragments()))
	}
	if m.deps.Narration != nil {
		cmds = append(cmds, waitNarration(m.deps.Narration.Events()))
	}
	if m.deps.Watcher != nil {
		cmds = append(cmds, waitChange(m.deps.Watcher.Events()))
	}
	return tea.Batch(cmds...)
}

// Update handles key, window and worker events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.helpView.Width = msg.Width
		m.helpView.Height = max(1, msg.Height-2)
		m.scrollToCursor()
		return m, nil
	case fragmentMsg:
		m.insertDictated(msg.text)
		return m, waitFragment(m.deps.Dictation.Fragments())
	case narrationMsg:
		switch {
		case msg.Err != nil:
			m.fail("Read aloud failed: %v", msg.Err)
		case !msg.Stopped:
			m.info("Finished reading")
		}
		return m, waitNarration(m.deps.Narration.Events())
	case fileChangedMsg:
		if msg.Path == m.path {
			if msg.Removed {
				m.fail("%s was removed from disk", filepath.Base(msg.Path))
			} else {
				m.fail("%s changed on disk; ctrl+o to reload", filepath.Base(msg.Path))
			}
		}
		return m, waitChange(m.deps.Watcher.Events())
	case tea.KeyMsg:
		if m.showHelp {
			return m.updateHelp(msg)
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateEditor(msg)
	}
	return m, nil
}

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Help, m.keys.Cancel) || msg.String() == "q" {
		m.showHelp = false
		return m, nil
	}
	var cmd tea.Cmd
	m.helpView, cmd = m.helpView.Update(msg)
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, m.guard(actionQuit)
	case key.Matches(msg, k.Help):
		m.showHelp = true
		m.helpView.SetContent(m.help.FullHelpView(k.FullHelp()))
		m.helpView.GotoTop()
		return m, nil
	case key.Matches(msg, k.Cancel):
		m.highlight = false
		m.buf.ClearSelection()
		m.notice = ""
		return m, nil
	case key.Matches(msg, k.New):
		return m, m.guard(actionNew)
	case key.Matches(msg, k.Open):
		return m, m.guard(actionOpen)
	case key.Matches(msg, k.Save):
		return m, m.save()
	case key.Matches(msg, k.SaveAs):
		return m, m.openPrompt(promptSaveAs, "Save as: ", m.suggestPath())
	case key.Matches(msg, k.Undo):
		if m.hist.Undo(m.buf) {
			m.lastEdit = editOther
			m.contentReplaced()
		} else {
			m.info("Nothing to undo")
		}
		return m, nil
	case key.Matches(msg, k.Redo):
		if m.hist.Redo(m.buf) {
			m.lastEdit = editOther
			m.contentReplaced()
		} else {
			m.info("Nothing to redo")
		}
		return m, nil
	case key.Matches(msg, k.Copy):
		m.copy()
		return m, nil
	case key.Matches(msg, k.Cut):
		m.cut()
		return m, nil
	case key.Matches(msg, k.Select):
		if move := m.movement(msg.Type); move != nil {
			m.buf.Select()
			move()
			m.lastEdit = editOther
			m.scrollToCursor()
		}
		return m, nil
	case key.Matches(msg, k.SelectAll):
		m.buf.SelectAll()
		m.lastEdit = editOther
		m.scrollToCursor()
		return m, nil
	case key.Matches(msg, k.Paste):
		m.paste()
		return m, nil
	case key.Matches(msg, k.Find):
		return m, m.openPrompt(promptFind, "Find: ", m.index.Query())
	case key.Matches(msg, k.FindNext):
		m.step(1)
		return m, nil
	case key.Matches(msg, k.FindPrev):
		m.step(-1)
		return m, nil
	case key.Matches(msg, k.Replace):
		return m, m.openPrompt(promptReplaceFind, "Replace: ", m.index.Query())
	case key.Matches(msg, k.GotoLine):
		return m, m.openPrompt(promptGoto, "Go to line: ", "")
	case key.Matches(msg, k.InsertTime):
		m.edit(editOther, func() { m.buf.InsertTimestamp(m.deps.Now()) })
		return m, nil
	case key.Matches(msg, k.Dictate):
		m.toggleDictation()
		return m, nil
	case key.Matches(msg, k.ReadAloud):
		m.toggleNarration()
		return m, nil
	case key.Matches(msg, k.ToggleTheme):
		m.dark = !m.dark
		m.background = ""
		m.applyTheme()
		return m, nil
	case key.Matches(msg, k.Background):
		return m, m.openPrompt(promptBackground, "Background (#rrggbb): ", m.background)
	}
	m.updateText(msg)
	return m, nil
}

// updateText handles cursor movement and typing.
func (m *Model) updateText(msg tea.KeyMsg) {
	if move := m.movement(msg.Type); move != nil {
		m.buf.ClearSelection()
		move()
		m.lastEdit = editOther
		m.scrollToCursor()
		return
	}
	row, col := m.buf.Cursor()
	sel := m.buf.HasSelection()
	switch msg.Type {
	case tea.KeyEnter:
		m.edit(editOther, m.buf.Newline)
	case tea.KeyBackspace:
		if sel || row > 0 || col > 0 {
			m.edit(editOther, m.buf.Backspace)
		}
	case tea.KeyDelete:
		if sel || row < m.buf.LineCount()-1 || col < len([]rune(m.buf.CurrentLine())) {
			m.edit(editOther, m.buf.Delete)
		}
	case tea.KeyTab:
		m.edit(editTyping, m.buf.InsertTab)
	case tea.KeySpace:
		m.edit(editTyping, func() { m.buf.InsertRune(' ') })
	case tea.KeyRunes:
		if msg.Alt {
			return
		}
		text := string(msg.Runes)
		m.edit(editTyping, func() { m.buf.Insert(text) })
	}
}

// movement returns the cursor motion for a key, plain or shifted, or nil.
func (m *Model) movement(t tea.KeyType) func() {
	switch t {
	case tea.KeyUp, tea.KeyShiftUp:
		return m.buf.Up
	case tea.KeyDown, tea.KeyShiftDown:
		return m.buf.Down
	case tea.KeyLeft, tea.KeyShiftLeft:
		return m.buf.Left
	case tea.KeyRight, tea.KeyShiftRight:
		return m.buf.Right
	case tea.KeyHome, tea.KeyShiftHome:
		return m.buf.Home
	case tea.KeyEnd, tea.KeyShiftEnd:
		return m.buf.End
	case tea.KeyPgUp:
		return func() { m.buf.PageUp(m.bodyHeight()) }
	case tea.KeyPgDown:
		return func() { m.buf.PageDown(m.bodyHeight()) }
	}
	return nil
}

// edit applies fn to the buffer with an undo step. Consecutive typing shares
// one step.
func (m *Model) edit(kind editKind, fn func()) {
	sel := m.buf.HasSelection()
	if sel || kind != editTyping || m.lastEdit != editTyping {
		m.hist.Capture(m.buf)
	}
	m.lastEdit = kind
	lines := m.buf.LineCount()
	fn()
	if sel || m.buf.LineCount() != lines || len(m.dirs) != lines {
		m.reclassify()
	} else {
		row, _ := m.buf.Cursor()
		m.dirs[row] = direction.Classify(m.buf.Line(row))
	}
	m.refreshSearch()
	m.scrollToCursor()
}

// contentReplaced resyncs derived state after a bulk change.
func (m *Model) contentReplaced() {
	m.reclassify()
	m.refreshSearch()
	m.scrollToCursor()
}

func (m *Model) reclassify() {
	m.dirs = direction.ClassifyDocument(m.buf.Lines())
}

func (m *Model) refreshSearch() {
	if m.index.Query() != "" {
		m.index.Refresh(m.buf.Content())
	}
}

// insertDictated appends a transcript to the end of the document. The
// cursor keeps its offset so typing and dictation can be mixed.
func (m *Model) insertDictated(text string) {
	m.hist.Capture(m.buf)
	m.lastEdit = editOther
	m.buf.Replace(m.buf.Content() + text)
	m.contentReplaced()
}

func (m *Model) info(format string, args ...any) {
	m.notice = fmt.Sprintf(format, args...)
	m.noticeErr = false
}

func (m *Model) fail(format string, args ...any) {
	m.notice = fmt.Sprintf(format, args...)
	m.noticeErr = true
}

func (m *Model) applyTheme() {
	theme := styles.DarkTheme()
	if !m.dark {
		theme = styles.LightTheme()
	}
	if m.background != "" {
		custom, err := theme.WithBackground(m.background)
		if err != nil {
			m.fail("%v", err)
			m.background = ""
		} else {
			theme = custom
		}
	}
	m.styles = styles.NewStyles(theme)
	m.input.PromptStyle = m.styles.Prompt
	m.input.TextStyle = m.styles.Text
}

func (m *Model) step(delta int) {
	if m.index.Len() == 0 {
		m.info("No search term entered")
		return
	}
	var match domain.Match
	if delta > 0 {
		match, _ = m.index.Next()
	} else {
		match, _ = m.index.Prev()
	}
	m.buf.ClearSelection()
	m.buf.SetOffset(match.Start)
	m.lastEdit = editOther
	m.highlight = true
	m.info("Match %d of %d", m.index.Cursor()+1, m.index.Len())
	m.scrollToCursor()
}

func (m *Model) find(query string) {
	if query == "" {
		m.index.Reset()
		m.highlight = false
		m.info("No search term entered")
		return
	}
	if m.index.Rebuild(m.buf.Content(), query) == 0 {
		m.highlight = false
		m.info("Text not found")
		return
	}
	m.step(1)
}

func (m *Model) replaceAll(find, repl string) {
	out, n := search.ReplaceAll(m.buf.Content(), find, repl)
	if n == 0 {
		m.info("Text not found")
		return
	}
	m.hist.Capture(m.buf)
	m.lastEdit = editOther
	m.buf.Replace(out)
	m.contentReplaced()
	m.info("Replaced %d occurrence(s)", n)
}

func (m *Model) gotoLine(value string) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		m.fail("Not a line number: %q", value)
		return
	}
	m.buf.ClearSelection()
	if err := m.buf.GotoLine(n); err != nil {
		m.fail("%v", err)
		return
	}
	m.lastEdit = editOther
	m.scrollToCursor()
}

// copy puts the selection, or the current line without one, on the
// clipboard.
func (m *Model) copy() {
	text, what := m.buf.CurrentLine(), "Line"
	if m.buf.HasSelection() {
		text, what = m.buf.SelectedText(), "Selection"
	}
	if err := m.deps.Clipboard.WriteAll(text); err != nil {
		m.fail("Copy failed: %v", err)
		return
	}
	m.info("%s copied", what)
}

// cut is copy followed by removing what was copied.
func (m *Model) cut() {
	if m.buf.HasSelection() {
		if err := m.deps.Clipboard.WriteAll(m.buf.SelectedText()); err != nil {
			m.fail("Cut failed: %v", err)
			return
		}
		m.edit(editOther, func() { m.buf.DeleteSelection() })
		m.info("Selection cut")
		return
	}
	if err := m.deps.Clipboard.WriteAll(m.buf.CurrentLine()); err != nil {
		m.fail("Cut failed: %v", err)
		return
	}
	m.edit(editOther, func() { m.buf.CutLine() })
	m.info("Line cut")
}

func (m *Model) paste() {
	text, err := m.deps.Clipboard.ReadAll()
	if err != nil {
		m.fail("Paste failed: %v", err)
		return
	}
	if text == "" {
		return
	}
	m.edit(editOther, func() { m.buf.Insert(text) })
}

func (m *Model) toggleDictation() {
	if m.deps.Dictation == nil {
		m.fail("Dictation is not configured")
		return
	}
	state, err := m.deps.Dictation.Toggle(m.ctx)
	if err != nil {
		m.fail("Dictation: %v", err)
		return
	}
	m.log.Debug("dictation toggled", "state", state.String())
	if state == dictation.Listening {
		m.info("Listening... (ctrl+d to stop)")
	} else {
		m.info("Dictation stopped")
	}
}

func (m *Model) toggleNarration() {
	if m.deps.Narration == nil {
		m.fail("Read aloud is not configured")
		return
	}
	state, err := m.deps.Narration.Toggle(m.ctx, m.buf.Content())
	switch {
	case errors.Is(err, narration.ErrNothingToRead):
		m.info("Nothing to read")
		return
	case err != nil:
		m.fail("Read aloud: %v", err)
		return
	}
	m.log.Debug("narration toggled", "state", state.String())
	if state == narration.Speaking {
		m.info("Reading aloud... (ctrl+t to stop)")
	} else {
		m.info("Reading stopped")
	}
}

// guard runs a, asking first when there are unsaved changes worth keeping.
func (m *Model) guard(a action) tea.Cmd {
	if m.buf.Modified() && !m.buf.Empty() {
		m.pending = a
		m.prompt = promptConfirm
		return nil
	}
	return m.run(a)
}

func (m *Model) run(a action) tea.Cmd {
	m.pending = actionNone
	switch a {
	case actionNew:
		m.newDocument()
	case actionOpen:
		return m.openPrompt(promptOpen, "Open: ", m.dirHint())
	case actionQuit:
		return tea.Quit
	}
	return nil
}

func (m *Model) newDocument() {
	m.buf.SetContent("")
	m.hist.Reset()
	m.path = ""
	m.highlight = false
	m.top, m.left = 0, 0
	m.lastEdit = editOther
	m.contentReplaced()
	m.watch("")
	m.info("New document")
}

// load replaces the document with the file at path. On failure the current
// document is left untouched.
func (m *Model) load(path string) {
	doc, err := m.deps.Store.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !document.IsReadOnly(path) {
			m.newDocument()
			m.path = path
			m.watch(path)
			m.info("New file %s", filepath.Base(path))
			return
		}
		m.log.Debug("open failed", "path", path, "err", err)
		m.fail("Could not open %s: %v", filepath.Base(path), err)
		return
	}
	m.buf.SetContent(doc.Content)
	m.hist.Reset()
	m.path = doc.Path
	m.highlight = false
	m.top, m.left = 0, 0
	m.lastEdit = editOther
	m.contentReplaced()
	m.watch(doc.Path)
	if document.IsReadOnly(doc.Path) {
		m.info("Opened %s (read-only format, f12 saves a copy)", filepath.Base(doc.Path))
	} else {
		m.info("Opened %s", filepath.Base(doc.Path))
	}
}

func (m *Model) watch(path string) {
	if m.deps.Watcher == nil {
		return
	}
	if err := m.deps.Watcher.Watch(path); err != nil {
		m.log.Debug("watch failed", "path", path, "err", err)
	}
}

func (m *Model) save() tea.Cmd {
	if m.path == "" || document.IsReadOnly(m.path) {
		return m.openPrompt(promptSaveAs, "Save as: ", m.suggestPath())
	}
	m.saveTo(m.path)
	return nil
}

// saveTo writes the buffer to path and adopts path as the document's file.
func (m *Model) saveTo(path string) bool {
	content := m.buf.Content()
	write := func() error { return m.deps.Store.Save(path, content) }
	var err error
	if m.deps.Watcher != nil && path == m.path {
		err = m.deps.Watcher.Saving(write)
	} else {
		err = write()
	}
	if err != nil {
		if errors.Is(err, document.ErrReadOnlyFormat) {
			m.fail("Cannot save %s files; save as plain text instead", filepath.Ext(path))
		} else {
			m.fail("Save failed: %v", err)
		}
		return false
	}
	if path != m.path {
		m.path = path
		m.watch(path)
	}
	m.buf.MarkSaved()
	m.info("Saved %s", filepath.Base(path))
	return true
}

// suggestPath proposes a plain-text name next to the current file.
func (m *Model) suggestPath() string {
	if m.path == "" {
		return ""
	}
	if document.IsReadOnly(m.path) {
		return strings.TrimSuffix(m.path, filepath.Ext(m.path)) + ".txt"
	}
	return m.path
}

func (m *Model) dirHint() string {
	if m.path == "" {
		return ""
	}
	return filepath.Dir(m.path) + string(filepath.Separator)
}

func (m *Model) openPrompt(kind promptKind, label, value string) tea.Cmd {
	m.prompt = kind
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt == promptConfirm {
		return m.updateConfirm(msg)
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		m.pending = actionNone
		return m, nil
	case tea.KeyEnter:
		kind, value := m.prompt, m.input.Value()
		m.closePrompt()
		return m, m.submit(kind, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.prompt = promptNone
		if m.path == "" || document.IsReadOnly(m.path) {
			return m, m.openPrompt(promptSaveAs, "Save as: ", m.suggestPath())
		}
		if !m.saveTo(m.path) {
			m.pending = actionNone
			return m, nil
		}
		return m, m.run(m.pending)
	case "n":
		m.prompt = promptNone
		return m, m.run(m.pending)
	case "esc":
		m.prompt = promptNone
		m.pending = actionNone
	}
	return m, nil
}

func (m *Model) submit(kind promptKind, value string) tea.Cmd {
	switch kind {
	case promptFind:
		m.find(value)
	case promptReplaceFind:
		if value == "" {
			m.info("No search term entered")
			return nil
		}
		m.replaceFind = value
		return m.openPrompt(promptReplaceWith, fmt.Sprintf("Replace %q with: ", value), "")
	case promptReplaceWith:
		m.replaceAll(m.replaceFind, value)
	case promptGoto:
		m.gotoLine(value)
	case promptOpen:
		if value = strings.TrimSpace(value); value != "" {
			m.load(value)
		}
	case promptSaveAs:
		value = strings.TrimSpace(value)
		if value == "" {
			m.pending = actionNone
			return nil
		}
		if !m.saveTo(value) {
			m.pending = actionNone
			return nil
		}
		if m.pending != actionNone {
			return m.run(m.pending)
		}
	case promptBackground:
		value = strings.TrimSpace(value)
		if _, err := styles.ForegroundFor(value); err != nil {
			m.fail("%v", err)
			return nil
		}
		m.background = value
		m.applyTheme()
	}
	return nil
}

func (m Model) bodyHeight() int {
	return max(1, m.height-2)
}

func (m Model) gutterWidth() int {
	return len(strconv.Itoa(m.buf.LineCount())) + 1
}

func (m Model) textWidth() int {
	return max(1, m.width-m.gutterWidth())
}

// scrollToCursor keeps the cursor inside the visible window. The
// horizontal offset is in terminal cells.
func (m *Model) scrollToCursor() {
	if !m.ready {
		return
	}
	row, col := m.buf.Cursor()
	if h := m.bodyHeight(); row < m.top {
		m.top = row
	} else if row >= m.top+h {
		m.top = row - h + 1
	}
	line := []rune(m.buf.CurrentLine())
	cx := displayColumn(line, col, m.buf.TabWidth())
	cw := 1
	if col < len(line) {
		_, cw = cell(line[col], cx, m.buf.TabWidth())
		cw = max(cw, 1)
	}
	if w := m.textWidth(); cx < m.left {
		m.left = cx
	} else if cx+cw > m.left+w {
		m.left = cx + cw - w
	}
}
