package ui

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// ============================================================================
// Rendering helpers
// ============================================================================

// maxPooledBuilder keeps oversized builders out of the pool
const maxPooledBuilder = 64 * 1024

var builders = sync.Pool{New: func() any { return new(strings.Builder) }}

func getBuilder() *strings.Builder {
	b := builders.Get().(*strings.Builder)
	b.Reset()
	return b
}

func putBuilder(b *strings.Builder) {
	if b.Cap() <= maxPooledBuilder {
		builders.Put(b)
	}
}

func clamp(v, lo, hi int) int { return min(max(v, lo), hi) }

// truncateString truncates s to maxWidth terminal cells with an ellipsis
func truncateString(s string, maxWidth int) string {
	if maxWidth <= 3 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// padRight pads s with spaces to width terminal cells
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// ============================================================================
// Terminal
// ============================================================================

// getTTY returns file handles for TUI input/output
// Uses /dev/tty when stdout is piped
func getTTY() (in *os.File, out *os.File, cleanup func()) {
	var closers []func()

	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		out, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			out = os.Stderr // Last resort fallback
		} else {
			closers = append(closers, func() { out.Close() })
		}

		in, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			in = os.Stdin
		} else {
			closers = append(closers, func() { in.Close() })
		}

		// Tell lipgloss to use the TTY for color detection
		lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(out))

		return in, out, func() {
			for _, c := range closers {
				c()
			}
		}
	}

	return os.Stdin, os.Stdout, func() {}
}

// openCommand builds the command that opens target in the configured
// browser or the system default handler
func openCommand(browser, target string) *exec.Cmd {
	if browser != "" {
		return exec.Command(browser, target)
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", target)
	default: // linux, freebsd, etc.
		return exec.Command("xdg-open", target)
	}
}
