package ui

import "github.com/charmbracelet/lipgloss"

// Theme is the palette for the editor surface. ANSI 256-color codes
// keep rendering sane on terminals without truecolor.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color
	ErrorText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	MenuBackground lipgloss.Color
	BorderColor    lipgloss.Color
	HelpText       lipgloss.Color

	// ChromaStyle names the highlight style passed to the formatter.
	ChromaStyle string
}

func DefaultTheme() Theme {
	return Theme{
		NormalText:         lipgloss.Color("252"),
		FaintText:          lipgloss.Color("243"),
		Accent:             lipgloss.Color("140"),
		ErrorText:          lipgloss.Color("203"),
		SelectedBackground: lipgloss.Color("61"),
		SelectedForeground: lipgloss.Color("231"),
		MenuBackground:     lipgloss.Color("236"),
		BorderColor:        lipgloss.Color("238"),
		HelpText:           lipgloss.Color("243"),
		ChromaStyle:        "monokai",
	}
}
