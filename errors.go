// errors.go — diagnostic taxonomy and caret-snippet rendering.
//
// What this file does
// -------------------
// Every way a pain program can fail maps to exactly one DiagKind, and every
// failing run surfaces exactly one *Diagnostic to the host. Lex and parse
// failures are built by lexer.go / parser.go; runtime failures are raised by
// the evaluator's fail* helpers (interpreter_ops.go) and positioned at the
// recover boundary (interpreter_exec.go).
//
// WrapErrorWithSource turns a positioned error into a readable, Python-style
// snippet with a caret under the offending column:
//
//	TYPE ERROR at 3:9: dict does not support add
//
//	   2 | d = dict{}
//	   3 | x = d + 1
//	     |         ^
//	   4 | print{x}
//
// The snippet shows up to one line of context on each side, numbers the
// lines, and clamps out-of-range coordinates so rendering never fails.
package pain

import (
	"fmt"
	"strings"
)

// DiagKind classifies a diagnostic per the language's error taxonomy.
type DiagKind int

const (
	DiagLex        DiagKind = iota // unrecognized character
	DiagParse                      // unexpected token / malformed grammar
	DiagName                       // undefined identifier or function
	DiagType                       // operation not declared for the operand's type
	DiagArity                      // call argument count mismatch
	DiagDivision                   // division or modulus by zero
	DiagConversion                 // unsupported or unparseable cast
	DiagValue                      // bad value (negative repeat, bad index, unhashable key)
)

// Header returns the uppercase label used in rendered diagnostics.
func (k DiagKind) Header() string {
	switch k {
	case DiagLex:
		return "LEXICAL ERROR"
	case DiagParse:
		return "PARSE ERROR"
	case DiagName:
		return "NAME ERROR"
	case DiagType:
		return "TYPE ERROR"
	case DiagArity:
		return "ARITY ERROR"
	case DiagDivision:
		return "DIVISION ERROR"
	case DiagConversion:
		return "CONVERSION ERROR"
	default:
		return "VALUE ERROR"
	}
}

// Diagnostic is the single terminal error of a failing run. Line and Col are
// 1-based; zero means the position could not be resolved.
type Diagnostic struct {
	Kind DiagKind
	Msg  string
	Line int
	Col  int
}

func (e *Diagnostic) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Kind.Header(), e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Header(), e.Msg)
}

// WrapErrorWithSource augments a positioned error with a caret-annotated
// snippet of the source. *LexError, *ParseError and *Diagnostic are
// recognized; any other error is returned unchanged.
func WrapErrorWithSource(err error, src string) error {
	switch e := err.(type) {
	case *LexError:
		// Lexer Col is 0-based; render as 1-based.
		return fmt.Errorf("%s", snippet(src, DiagLex.Header(), e.Line, e.Col+1, e.Msg))
	case *ParseError:
		return fmt.Errorf("%s", snippet(src, DiagParse.Header(), e.Line, e.Col, e.Msg))
	case *Diagnostic:
		if e.Line <= 0 {
			return err
		}
		return fmt.Errorf("%s", snippet(src, e.Kind.Header(), e.Line, e.Col, e.Msg))
	default:
		return err
	}
}

// snippet builds the header + context lines + caret block. Coordinates are
// 1-based and clamped to the source bounds.
func snippet(src, header string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
