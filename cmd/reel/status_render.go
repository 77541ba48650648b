package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

func (k statusKind) label() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	}
	return "INFO"
}

func (k statusKind) ansi() string {
	switch k {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	}
	return ansiBlue
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusPrinter renders the aligned label/status lines used by `reel status`.
// Color engages only when the destination is a terminal.
type statusPrinter struct {
	w     io.Writer
	color bool
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	p := &statusPrinter{w: w}
	if file, ok := w.(*os.File); ok {
		fd := file.Fd()
		p.color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return p
}

func (p *statusPrinter) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(p.w, p.paint(ansiBlue, heading))
	fmt.Fprintln(p.w, p.paint(ansiBlue, strings.Repeat("-", len(heading))))
}

func (p *statusPrinter) line(kind statusKind, label, detail string) {
	tag := "[" + kind.label() + "]"
	if detail != "" {
		tag += " " + detail
	}
	fmt.Fprintln(p.w, p.paint(kind.ansi(), fmt.Sprintf("  %-20s %s", label+":", tag)))
}

func (p *statusPrinter) blank() {
	fmt.Fprintln(p.w)
}

func (p *statusPrinter) paint(color, s string) string {
	if !p.color || color == "" {
		return s
	}
	return color + s + ansiReset
}
