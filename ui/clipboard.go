package ui

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// statusFadeDelay is how long transient notices stay in the footer.
const statusFadeDelay = 3 * time.Second

// copyToClipboard writes text to the system clipboard via the OSC 52
// terminal escape sequence, straight to /dev/tty so it bypasses the
// managed renderer (OSC 52 has no screen effect). BEL terminates the
// sequence because it survives SSH and tmux layers better than ST.
// Inside tmux the sequence is additionally sent through DCS
// passthrough; duplicate clipboard sets are harmless.
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			return nil
		}
		defer tty.Close()

		encoded := base64.StdEncoding.EncodeToString([]byte(text))
		osc52 := fmt.Sprintf("\x1b]52;c;%s\x07", encoded)

		inTmux := os.Getenv("TMUX") != "" ||
			strings.HasPrefix(os.Getenv("TERM"), "tmux") ||
			strings.HasPrefix(os.Getenv("TERM"), "screen")
		if inTmux {
			fmt.Fprintf(tty, "\x1bPtmux;\x1b%s\x1b\\", osc52)
		}
		tty.WriteString(osc52)
		return nil
	}
}

func fadeStatus() tea.Cmd {
	return tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
		return statusFadeMsg{}
	})
}
