package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	maxBarWidth  = 40
)

// Terminal reports import progress and notifications on a terminal. On a
// TTY the progress bar redraws in place; otherwise one line is written per
// phase and again when it completes.
type Terminal struct {
	out    io.Writer
	prefix string
	tty    bool
	width  int

	notice func(a ...interface{}) string
	alert  func(a ...interface{}) string

	mu        sync.Mutex
	lineOpen  bool
	lastLabel string
	lastPct   int
}

type fdWriter interface {
	io.Writer
	Fd() uintptr
}

// NewTerminal creates a reporter writing to out. prefix is prepended to
// every notification.
func NewTerminal(out io.Writer, prefix string) *Terminal {
	t := &Terminal{out: out, prefix: prefix, width: defaultWidth, lastPct: -1}
	if f, ok := out.(fdWriter); ok && term.IsTerminal(int(f.Fd())) {
		t.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			t.width = w
		}
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed, color.Bold)
	if !t.tty {
		green.DisableColor()
		red.DisableColor()
	}
	t.notice = green.SprintFunc()
	t.alert = red.SprintFunc()
	return t
}

// Progress draws the bar for label at fraction, clamped to 0..100%.
func (t *Terminal) Progress(label string, fraction float64) {
	pct := int(fraction * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.tty {
		if label != t.lastLabel || (pct == 100 && t.lastPct != 100) {
			fmt.Fprintf(t.out, "%s %d%%\n", label, pct)
		}
		t.lastLabel, t.lastPct = label, pct
		return
	}

	if label == t.lastLabel && pct == t.lastPct {
		return
	}
	t.lastLabel, t.lastPct = label, pct
	fmt.Fprintf(t.out, "\r%s", t.bar(label, pct))
	t.lineOpen = true
}

func (t *Terminal) bar(label string, pct int) string {
	width := t.width - len(label) - 10
	if width > maxBarWidth {
		width = maxBarWidth
	}
	if width < 10 {
		width = 10
	}
	filled := width * pct / 100
	return fmt.Sprintf("%s [%s%s] %3d%%", label, strings.Repeat("#", filled), strings.Repeat(".", width-filled), pct)
}

// Done clears the progress line.
func (t *Terminal) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLine()
	t.lastLabel, t.lastPct = "", -1
}

// Notify prints an informational message.
func (t *Terminal) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLine()
	fmt.Fprintln(t.out, t.notice(t.prefix+msg))
}

// Error prints an error message.
func (t *Terminal) Error(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLine()
	fmt.Fprintln(t.out, t.alert(t.prefix+msg))
}

func (t *Terminal) clearLine() {
	if !t.lineOpen {
		return
	}
	fmt.Fprintf(t.out, "\r%s\r", strings.Repeat(" ", t.width-1))
	t.lineOpen = false
}
