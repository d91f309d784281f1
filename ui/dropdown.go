package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"oxypaste/pkg/lang"
)

// languageMenu is the language picker opened from the footer. It
// captures all keyboard input while open: up/down navigate, enter
// selects, escape dismisses.
type languageMenu struct {
	options []lang.Option
	cursor  int
}

func newLanguageMenu(current lang.Language) *languageMenu {
	menu := &languageMenu{options: lang.Options()}
	for i, opt := range menu.options {
		if opt.Value == current {
			menu.cursor = i
			break
		}
	}
	return menu
}

// MoveUp moves the cursor up by one, wrapping to the bottom.
func (menu *languageMenu) MoveUp() {
	menu.cursor--
	if menu.cursor < 0 {
		menu.cursor = len(menu.options) - 1
	}
}

// MoveDown moves the cursor down by one, wrapping to the top.
func (menu *languageMenu) MoveDown() {
	menu.cursor++
	if menu.cursor >= len(menu.options) {
		menu.cursor = 0
	}
}

// Selected returns the currently highlighted option.
func (menu *languageMenu) Selected() lang.Option {
	return menu.options[menu.cursor]
}

// Render draws the menu as a block of equal-width lines with a solid
// background so it reads as a floating panel over the editor.
func (menu *languageMenu) Render(theme Theme, maxHeight int) string {
	width := 0
	for _, opt := range menu.options {
		if len(opt.Label) > width {
			width = len(opt.Label)
		}
	}

	base := lipgloss.NewStyle().Background(theme.MenuBackground).Foreground(theme.NormalText)
	selected := lipgloss.NewStyle().Background(theme.SelectedBackground).Foreground(theme.SelectedForeground)

	// Keep the cursor visible when the menu is taller than the screen.
	first := 0
	if maxHeight > 0 && len(menu.options) > maxHeight {
		first = menu.cursor - maxHeight/2
		if first < 0 {
			first = 0
		}
		if first+maxHeight > len(menu.options) {
			first = len(menu.options) - maxHeight
		}
	}
	last := len(menu.options)
	if maxHeight > 0 && first+maxHeight < last {
		last = first + maxHeight
	}

	var lines []string
	for i := first; i < last; i++ {
		opt := menu.options[i]
		marker := " "
		if i == menu.cursor {
			marker = ">"
		}
		line := " " + marker + " " + opt.Label + strings.Repeat(" ", width-len(opt.Label)) + " "
		if i == menu.cursor {
			lines = append(lines, selected.Render(line))
		} else {
			lines = append(lines, base.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}
