package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xplshn/sbc/pkg/config"
	"github.com/xplshn/sbc/pkg/token"
	"golang.org/x/term"
)

type Severity int

const (
	SevError Severity = iota
	SevWarning
	SevHint
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "hint"
	}
}

func (s Severity) color() string {
	switch s {
	case SevError:
		return "\033[31m"
	case SevWarning:
		return "\033[33m"
	default:
		return "\033[36m"
	}
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// Diagnostic is a single user-facing message anchored to a source position.
type Diagnostic struct {
	Severity Severity
	Tok      token.Token
	File     string
	Message  string
	Flag     string // warning name, rendered as [-W<flag>]
}

func (d *Diagnostic) Error() string {
	msg := fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Tok.Line, d.Tok.Column, d.Severity, d.Message)
	if d.Flag != "" {
		msg += " [-W" + d.Flag + "]"
	}
	return msg
}

// Diagnostics collects every error, warning and hint of one compilation so a
// single run can report as many problems as possible.
type Diagnostics struct {
	Sources []SourceFileRecord
	List    []*Diagnostic
}

func NewDiagnostics(sources []SourceFileRecord) *Diagnostics {
	return &Diagnostics{Sources: sources}
}

// FileName converts a token's file index to the name of the source file.
func (ds *Diagnostics) FileName(tok token.Token) string {
	if tok.FileIndex < 0 || tok.FileIndex >= len(ds.Sources) {
		return "unknown"
	}
	return ds.Sources[tok.FileIndex].Name
}

func (ds *Diagnostics) add(sev Severity, flag string, tok token.Token, format string, args ...interface{}) *Diagnostic {
	d := &Diagnostic{
		Severity: sev,
		Tok:      tok,
		File:     ds.FileName(tok),
		Message:  fmt.Sprintf(format, args...),
		Flag:     flag,
	}
	ds.List = append(ds.List, d)
	return d
}

// Error records a user-facing compiler error.
func (ds *Diagnostics) Error(tok token.Token, format string, args ...interface{}) *Diagnostic {
	return ds.add(SevError, "", tok, format, args...)
}

// Warn records a warning if the corresponding warning is enabled.
func (ds *Diagnostics) Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	ds.add(SevWarning, cfg.Warnings[wt].Name, tok, format, args...)
}

// Hint records an informational note. Hints share the warning switches.
func (ds *Diagnostics) Hint(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	ds.add(SevHint, cfg.Warnings[wt].Name, tok, format, args...)
}

func (ds *Diagnostics) count(sev Severity) int {
	n := 0
	for _, d := range ds.List {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

func (ds *Diagnostics) HasErrors() bool { return ds.count(SevError) > 0 }
func (ds *Diagnostics) ErrorCount() int  { return ds.count(SevError) }

// Err folds every error diagnostic into one error, or returns nil.
func (ds *Diagnostics) Err() error {
	var result error
	for _, d := range ds.List {
		if d.Severity == SevError {
			result = multierror.Append(result, d)
		}
	}
	return result
}

// Render writes every diagnostic to w, followed by the offending source line
// and a caret. Colors are used only when w is a terminal.
func (ds *Diagnostics) Render(w io.Writer) {
	color := isTerminal(w)
	for _, d := range ds.List {
		sev := d.Severity.String()
		if color {
			sev = d.Severity.color() + sev + "\033[0m"
		}
		fmt.Fprintf(w, "%s:%d:%d: %s: %s", d.File, d.Tok.Line, d.Tok.Column, sev, d.Message)
		if d.Flag != "" {
			fmt.Fprintf(w, " [-W%s]", d.Flag)
		}
		fmt.Fprintln(w)
		ds.printErrorLine(w, d.Tok, color)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printErrorLine prints the source line and a caret indicating the error position
func (ds *Diagnostics) printErrorLine(w io.Writer, tok token.Token, color bool) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(ds.Sources) || tok.Line == 0 {
		return
	}

	content := ds.Sources[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))

	col := tok.Column - 1
	if col < 0 {
		col = 0
	}
	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	if color {
		caret = "\033[32m" + caret + "\033[0m"
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col), caret)
}
