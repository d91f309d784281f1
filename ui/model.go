// Package ui is the interactive editor surface: a single-paste
// terminal UI with an editable body, language auto-detection, a
// read-only highlighted viewer, and footer controls for title,
// language and visibility. All session mutation happens inside
// Update; commands only perform transport work and report back.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oxypaste/cfg"
	"oxypaste/pkg/domain"
	"oxypaste/pkg/lang"
	"oxypaste/svc/session"
	"oxypaste/svc/transport"
)

// detectDebounce is how long after the last keystroke detection runs.
// Stale results are discarded by the session's revision guard, so the
// debounce only bounds wasted work, not correctness.
const detectDebounce = 250 * time.Millisecond

type focusArea int

const (
	focusBody focusArea = iota
	focusTitle
)

type (
	saveResultMsg struct {
		paste         *domain.Paste
		revocationKey string
		err           error
	}
	loadResultMsg struct {
		paste *domain.Paste
		edit  bool
		err   error
	}
	deleteResultMsg struct {
		id    string
		owned bool
		err   error
	}
	detectResultMsg struct {
		revision uint64
		language lang.Language
	}
	statusFadeMsg struct{}
)

type Model struct {
	sess    *session.Session
	api     *transport.Client
	timeout time.Duration
	baseURL string

	body  textarea.Model
	title textinput.Model
	view  viewport.Model
	menu  *languageMenu

	keys  KeyMap
	theme Theme
	focus focusArea

	width  int
	height int

	status    string
	errNotice string
	raw       bool
	busy      bool
	quitting  bool
}

func New(c *cfg.Cfg, api *transport.Client, sess *session.Session) Model {
	body := textarea.New()
	body.Placeholder = "paste or type here"
	body.ShowLineNumbers = true
	body.CharLimit = 0
	body.Focus()

	title := textinput.New()
	title.Placeholder = "untitled"
	title.CharLimit = 120
	title.Prompt = ""

	m := Model{
		sess:    sess,
		api:     api,
		timeout: c.RequestTimeout,
		baseURL: c.APIBaseURL,
		body:    body,
		title:   title,
		view:    viewport.New(80, 24),
		keys:    DefaultKeyMap,
		theme:   DefaultTheme(),
	}
	m.syncFromSession()
	return m
}

// Run starts the program in the alternate screen and blocks until the
// user quits.
func Run(c *cfg.Cfg, api *transport.Client, sess *session.Session) error {
	_, err := tea.NewProgram(New(c, api, sess), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.sess.AutoDetect() && m.sess.Draft().Content != "" {
		cmds = append(cmds, m.detectCmd(m.sess.Revision(), m.sess.Draft().Content))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case saveResultMsg:
		paste, err := m.sess.CommitSave(context.Background(), msg.paste, msg.revocationKey, msg.err)
		if err != nil {
			m.errNotice = "save failed: " + err.Error()
			return m, fadeStatus()
		}
		m.raw = false
		m.syncFromSession()
		m.status = "saved as " + paste.ID + " (C-x copies the link)"
		return m, fadeStatus()

	case loadResultMsg:
		m.busy = false
		if msg.err != nil {
			m.errNotice = msg.err.Error()
			return m, fadeStatus()
		}
		if msg.edit {
			m.sess.EditPaste(msg.paste)
		} else {
			m.sess.ShowPaste(msg.paste)
		}
		m.raw = false
		m.syncFromSession()
		return m, nil

	case deleteResultMsg:
		m.busy = false
		if err := m.sess.CommitDelete(context.Background(), msg.id, msg.owned, msg.err); err != nil {
			m.errNotice = "delete failed: " + err.Error()
			return m, fadeStatus()
		}
		m.syncFromSession()
		m.status = "deleted " + msg.id
		return m, fadeStatus()

	case detectResultMsg:
		if m.sess.ApplyDetection(msg.revision, msg.language) {
			m.refreshViewer()
		}
		return m, nil

	case statusFadeMsg:
		m.status = ""
		m.errNotice = ""
		return m, nil
	}

	return m.forward(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	// The language menu swallows everything else while open.
	if m.menu != nil {
		switch msg.String() {
		case "up", "k":
			m.menu.MoveUp()
		case "down", "j":
			m.menu.MoveDown()
		case "enter":
			m.sess.ChooseLanguage(m.menu.Selected().Value)
			m.menu = nil
			m.refreshViewer()
		case "esc":
			m.menu = nil
		}
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Save):
		return m.startSave()

	case key.Matches(msg, m.keys.Edit):
		if m.sess.Paste() == nil {
			m.status = "nothing to edit"
			return m, fadeStatus()
		}
		if m.sess.State() == session.Editing {
			return m, nil
		}
		m.busy = true
		return m, m.loadCmd(m.sess.Paste().ID, true)

	case key.Matches(msg, m.keys.New):
		if m.sess.Saving() {
			m.status = "save in flight"
			return m, fadeStatus()
		}
		m.sess.StartNew("")
		m.raw = false
		m.syncFromSession()
		return m, nil

	case key.Matches(msg, m.keys.Raw):
		if !m.viewing() {
			return m, nil
		}
		m.raw = !m.raw
		m.refreshViewer()
		return m, nil

	case key.Matches(msg, m.keys.Share):
		paste := m.sess.Paste()
		if paste == nil {
			m.status = "save first to get a link"
			return m, fadeStatus()
		}
		m.status = "link copied"
		return m, tea.Batch(copyToClipboard(m.baseURL+"/"+paste.ID), fadeStatus())

	case key.Matches(msg, m.keys.Delete):
		paste := m.sess.Paste()
		if paste == nil || !m.viewing() {
			return m, nil
		}
		// The credential lookup is a local ledger read, so it stays on
		// the event loop; only the server call goes into the command.
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		revocationKey, owned, err := m.sess.BeginDelete(ctx, paste.ID)
		cancel()
		if err != nil {
			m.errNotice = err.Error()
			return m, fadeStatus()
		}
		m.busy = true
		return m, m.deleteCmd(paste.ID, revocationKey, owned)

	case key.Matches(msg, m.keys.Language):
		if m.sess.State() != session.Editing && m.sess.State() != session.Empty {
			return m, nil
		}
		current := lang.AutoDetect
		if !m.sess.AutoDetect() {
			current = m.sess.Draft().Language
		}
		m.menu = newLanguageMenu(current)
		return m, nil

	case key.Matches(msg, m.keys.Public):
		if m.sess.State() != session.Editing {
			return m, nil
		}
		m.sess.SetPublic(!m.sess.Draft().Public)
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.sess.State() == session.Editing || m.sess.State() == session.Empty {
			m.toggleFocus()
		}
		return m, nil
	}

	return m.forward(msg)
}

// startSave snapshots the draft and fires the transport call. The save
// chord is inert outside of editing; a save already in flight reports
// instead of double-submitting.
func (m Model) startSave() (tea.Model, tea.Cmd) {
	if m.viewing() {
		m.status = "read-only (C-e to edit)"
		return m, fadeStatus()
	}
	draft, err := m.sess.BeginSave()
	if err != nil {
		m.errNotice = err.Error()
		return m, fadeStatus()
	}
	m.status = "saving..."
	return m, m.saveCmd(draft)
}

// forward routes non-chord input into the focused widget and keeps the
// session draft in lockstep, scheduling detection on body changes.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.viewing() {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}

	switch m.focus {
	case focusBody:
		before := m.body.Value()
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		cmds = append(cmds, cmd)
		if after := m.body.Value(); after != before {
			revision := m.sess.SetContent(after)
			if m.sess.AutoDetect() {
				cmds = append(cmds, m.detectCmd(revision, after))
			}
		}
	case focusTitle:
		before := m.title.Value()
		var cmd tea.Cmd
		m.title, cmd = m.title.Update(msg)
		cmds = append(cmds, cmd)
		if after := m.title.Value(); after != before {
			m.sess.SetTitle(after)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) toggleFocus() {
	if m.focus == focusBody {
		m.focus = focusTitle
		m.body.Blur()
		m.title.Focus()
	} else {
		m.focus = focusBody
		m.title.Blur()
		m.body.Focus()
	}
}

func (m Model) viewing() bool {
	state := m.sess.State()
	return state == session.Viewing || state == session.Saved
}

// syncFromSession pushes the session draft into the widgets after a
// state transition (load, save, new, delete).
func (m *Model) syncFromSession() {
	draft := m.sess.Draft()
	m.body.SetValue(draft.Content)
	m.title.SetValue(draft.Title)
	if m.viewing() {
		m.body.Blur()
		m.title.Blur()
		m.refreshViewer()
	} else {
		m.focus = focusBody
		m.title.Blur()
		m.body.Focus()
	}
}

func (m *Model) refreshViewer() {
	if !m.viewing() {
		return
	}
	content := m.sess.Draft().Content
	if !m.raw {
		faint := lipgloss.NewStyle().Foreground(m.theme.FaintText).Render
		content = numberLines(Highlight(content, m.sess.DisplayLanguage(), m.theme.ChromaStyle), faint)
	}
	m.view.SetContent(content)
	m.view.GotoTop()
}

func (m *Model) layout() {
	bodyHeight := m.height - 4
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.body.SetWidth(m.width)
	m.body.SetHeight(bodyHeight)
	m.view.Width = m.width
	m.view.Height = bodyHeight
	m.title.Width = 40
	m.refreshViewer()
}

func (m *Model) saveCmd(draft domain.Draft) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		paste, revocationKey, err := api.Create(ctx, draft)
		return saveResultMsg{paste: paste, revocationKey: revocationKey, err: err}
	}
}

func (m *Model) loadCmd(id string, edit bool) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		paste, err := api.Get(ctx, id)
		return loadResultMsg{paste: paste, edit: edit, err: err}
	}
}

// deleteCmd runs only the transport call. The session stays untouched
// until the result message lands back on the event loop, where
// CommitDelete drops the ledger entry and resets the loaded paste.
func (m *Model) deleteCmd(id, revocationKey string, owned bool) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return deleteResultMsg{id: id, owned: owned, err: api.Delete(ctx, id, revocationKey)}
	}
}

func (m *Model) detectCmd(revision uint64, content string) tea.Cmd {
	return tea.Tick(detectDebounce, func(time.Time) tea.Msg {
		return detectResultMsg{revision: revision, language: lang.Detect(content)}
	})
}
