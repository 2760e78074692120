// Package output renders recognition progress for a terminal or a plain
// stream.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Printer writes interim, final and status lines. On a terminal interim
// text is redrawn in place and lines are styled; otherwise every line is
// plain and progress is suppressed.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	tty bool

	// interimOpen is set while the current line holds redrawable text.
	interimOpen bool

	interimStyle lipgloss.Style
	finalStyle   lipgloss.Style
	noticeStyle  lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
}

// NewPrinter detects whether out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	tty := false
	if file, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(file.Fd()))
	}
	return newPrinter(out, tty)
}

func newPrinter(out io.Writer, tty bool) *Printer {
	return &Printer{
		out:          out,
		tty:          tty,
		interimStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		finalStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		noticeStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dimStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Interim redraws the in-progress sentence.
func (p *Printer) Interim(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tty {
		fmt.Fprintln(p.out, "interim: "+singleLine(text))
		return
	}
	fmt.Fprintf(p.out, "\r\x1b[2K%s", p.interimStyle.Render("… "+singleLine(text)))
	p.interimOpen = true
}

// Final prints a completed sentence with its confidence when nonzero.
func (p *Printer) Final(text string, confidence float64) {
	line := "result: " + singleLine(text)
	if confidence > 0 {
		line += fmt.Sprintf(" (confidence %.1f%%)", confidence*100)
	}
	p.line(line, p.finalStyle)
}

func (p *Printer) Notice(message string) {
	p.line(message, p.noticeStyle)
}

func (p *Printer) Error(message string) {
	p.line("error: "+singleLine(message), p.errorStyle)
}

// Progress reports capture counters.
func (p *Printer) Progress(frames int64, sent int64, elapsed time.Duration) {
	line := fmt.Sprintf("audio: %d frames captured, %d sent, %s elapsed", frames, sent, elapsed.Round(time.Second))
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tty {
		return
	}
	p.closeInterim()
	fmt.Fprintln(p.out, p.dimStyle.Render(line))
}

// Plain prints text without styling.
func (p *Printer) Plain(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeInterim()
	fmt.Fprintln(p.out, text)
}

func (p *Printer) line(text string, style lipgloss.Style) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeInterim()
	if p.tty {
		text = style.Render(text)
	}
	fmt.Fprintln(p.out, text)
}

// closeInterim clears a pending interim line. Callers hold p.mu.
func (p *Printer) closeInterim() {
	if !p.interimOpen {
		return
	}
	fmt.Fprint(p.out, "\r\x1b[2K")
	p.interimOpen = false
}

func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
