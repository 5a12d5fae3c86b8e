package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/zephyrtronium/evalex"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	caretStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// maxSuggestions is the number of function names suggested for an unknown
// function.
const maxSuggestions = 3

// report prints an error. Errors with a position show the source with a
// caret under the offending column.
func report(w io.Writer, src string, err error, reg *evalex.Registry) {
	fmt.Fprintln(w, errorStyle.Render(err.Error()))
	var ie evalex.InputError
	if !errors.As(err, &ie) {
		return
	}
	fmt.Fprintln(w, "  "+src)
	fmt.Fprintln(w, "  "+caret(src, ie.Pos()))
	var pe *evalex.ParseError
	if errors.As(err, &pe) && strings.HasPrefix(pe.Msg, "Undefined function") {
		if s := suggest(pe.Text, reg); len(s) > 0 {
			fmt.Fprintln(w, hintStyle.Render("did you mean "+strings.Join(s, ", ")+"?"))
		}
	}
}

// caret returns a line with a caret under the 1-based rune column col of
// src. Tabs in src are kept so that the caret lines up.
func caret(src string, col int) string {
	var b strings.Builder
	i := 1
	for _, r := range src {
		if i >= col {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
		i++
	}
	return b.String() + caretStyle.Render("^")
}

// suggest returns the registered function names closest to name.
func suggest(name string, reg *evalex.Registry) []string {
	matches := fuzzy.Find(strings.ToUpper(name), reg.FunctionNames())
	r := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(r) == maxSuggestions {
			break
		}
		r = append(r, m.Str)
	}
	return r
}
