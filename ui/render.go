package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"oxypaste/pkg/lang"
	"oxypaste/svc/session"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := m.renderHeader()
	body := m.renderBody()
	footer := m.renderFooter()
	notice := m.renderNotice()

	return strings.Join([]string{header, body, footer, notice}, "\n")
}

func (m Model) renderHeader() string {
	accent := lipgloss.NewStyle().Foreground(m.theme.Accent).Bold(true)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	left := accent.Render("oxypaste")
	where := "draft"
	if paste := m.sess.Paste(); paste != nil {
		where = paste.ID
	}
	state := m.sess.State().String()
	if m.sess.Saving() {
		state = "saving"
	}
	if m.raw && m.viewing() {
		state += " (raw)"
	}
	line := left + "  " + faint.Render(where+" · "+state)
	return padLine(line, m.width)
}

func (m Model) renderBody() string {
	var body string
	if m.viewing() {
		body = m.view.View()
	} else {
		body = m.body.View()
	}
	if m.menu != nil {
		overlay := m.menu.Render(m.theme, m.view.Height-2)
		return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, overlay)
	}
	return body
}

func (m Model) renderFooter() string {
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(m.theme.NormalText)

	titleCell := m.title.View()
	if m.viewing() {
		title := m.sess.Draft().Title
		if title == "" {
			title = "untitled"
		}
		titleCell = normal.Render(title)
	}

	visibility := "private"
	if m.sess.Draft().Public {
		visibility = "public"
	}

	cells := []string{
		faint.Render("title: ") + titleCell,
		faint.Render("lang: ") + normal.Render(m.languageLabel()),
		normal.Render(visibility),
	}
	return padLine(strings.Join(cells, faint.Render(" │ ")), m.width)
}

func (m Model) renderNotice() string {
	if m.errNotice != "" {
		return padLine(lipgloss.NewStyle().Foreground(m.theme.ErrorText).Render(m.errNotice), m.width)
	}
	if m.status != "" {
		return padLine(lipgloss.NewStyle().Foreground(m.theme.Accent).Render(m.status), m.width)
	}
	help := lipgloss.NewStyle().Foreground(m.theme.HelpText)
	bindings := []string{"C-s save", "C-e edit", "C-n new", "C-l language", "C-p public", "C-r raw", "C-x link", "C-d delete", "C-c quit"}
	if m.viewing() {
		bindings = []string{"C-e edit", "C-n new", "C-r raw", "C-x link", "C-d delete", "C-c quit"}
	}
	return padLine(help.Render(strings.Join(bindings, "  ")), m.width)
}

// languageLabel resolves the display label for the footer, marking
// detection-derived guesses.
func (m Model) languageLabel() string {
	display := m.sess.DisplayLanguage()
	label := display.Label()
	if m.sess.AutoDetect() && m.sess.State() != session.Viewing {
		if display == lang.AutoDetect {
			return "auto"
		}
		return "auto (" + label + ")"
	}
	return label
}

func (m Model) bodyHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func padLine(line string, width int) string {
	gap := width - lipgloss.Width(line)
	if gap <= 0 {
		return line
	}
	return line + strings.Repeat(" ", gap)
}
