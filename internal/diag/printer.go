package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// ANSI colors used only when the destination is a real terminal.
const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31;1m"
	colorDim   = "\x1b[2m"
)

// Printer renders Errors for a CLI driver. It colorizes output only when
// writing to an interactive terminal, mirroring the teacher's isatty check
// before touching stdout.
type Printer struct {
	w      io.Writer
	color  bool
	Tag    string // a short id correlating one compilation's diagnostics
}

// NewPrinter builds a Printer writing to w. Colorization is auto-detected
// from w when w is *os.File; pass a non-file writer (e.g. a bytes.Buffer in
// tests) to always get plain output.
func NewPrinter(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, color: color, Tag: uuid.NewString()[:8]}
}

// Print writes one line per error: "[tag] kind: message".
func (p *Printer) Print(err *Error) {
	if p.color {
		fmt.Fprintf(p.w, "%s[%s]%s %s%s:%s %s\n", colorDim, p.Tag, colorReset, colorRed, err.Kind, colorReset, err.Message)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s: %s\n", p.Tag, err.Kind, err.Message)
}
