// lexer.go — whitespace-sensitive scanner for pain source text.
//
// OVERVIEW
// --------
// Converts raw source into a flat token stream. Two details matter to the
// parser and are worth knowing up front:
//
//   - '[' and '{' are *whitespace-sensitive*. When they directly touch the
//     previous token they lex as CLSQUARE / CLCURLY and participate in
//     postfix indexing (`xs[0]`) and calls (`print{x}`). With whitespace in
//     between they lex as LSQUARE / LCURLY, which open blocks and list
//     literals (`if ok [ ... ]`, `xs = [1, 2]`). This is the only way the
//     declared bracket set can serve blocks, calls, indexing and literals
//     at the same time.
//
//   - Scanning is *recoverable*. An unrecognized character is recorded as a
//     LexError and skipped; the scanner keeps going so the parser can still
//     produce diagnostics for the rest of the program. Callers that intend
//     to evaluate must check the returned errors first — a program with lex
//     errors never runs.
//
// Tokens carry 1-based Line, 0-based Col and byte offsets. The byte offsets
// feed the span sidecar (spans.go) that runtime errors use for carets.
//
// Dependencies: none within the package (errors.go consumes *LexError).
package pain

import (
	"fmt"
	"strconv"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Delimiters
	LROUND   // "("
	RROUND   // ")"
	LSQUARE  // "[" preceded by whitespace (block / list literal)
	CLSQUARE // "[" not preceded by whitespace (index)
	RSQUARE  // "]"
	LCURLY   // "{" preceded by whitespace
	CLCURLY  // "{" not preceded by whitespace (call)
	RCURLY   // "}"
	COMMA    // ","
	SEP      // "|" statement separator

	// Operators
	ASSIGN // "="
	PLUS
	MINUS
	MULT
	DIV
	MOD
	EQ  // "=="
	NEQ // "!="
	LESS
	LESS_EQ
	GREATER
	GREATER_EQ

	// Literals & identifiers
	IDENT
	INTEGER
	FLOAT
	STRING
	BOOLEAN // True / False

	// Keywords
	IF
	ELSE
	FOR
	IN
	WHILE
	DEF
	AND
	OR
	NOT
)

// Token is a lexical token with optional parsed literal value.
type Token struct {
	Type      TokenType
	Lexeme    string      // raw text slice
	Literal   interface{} // parsed value for literals
	Line      int         // 1-based
	Col       int         // 0-based
	StartByte int
	EndByte   int
}

// keywords bind case-sensitively; True/False are BOOLEAN literals.
var keywords = map[string]TokenType{
	"if":    IF,
	"else":  ELSE,
	"for":   FOR,
	"in":    IN,
	"while": WHILE,
	"def":   DEF,
	"and":   AND,
	"or":    OR,
	"not":   NOT,
	"True":  BOOLEAN,
	"False": BOOLEAN,
}

// Lexer scans a pain source string into tokens.
type Lexer struct {
	src              string
	start            int // start index of current token
	cur              int // current index
	line             int // 1-based
	col              int // 0-based column within line
	tokens           []Token
	errs             []*LexError
	whitespaceBefore bool

	// precise token start position
	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) peekN(n int) (byte, bool) {
	idx := l.cur + n
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch, true
}

// rewindToStart undoes the speculative advance of a token's first byte so
// the dedicated scanners (string/number/identifier) see the whole lexeme.
func (l *Lexer) rewindToStart() {
	l.cur = l.start
	l.line = l.tokStartLine
	l.col = l.tokStartCol
}

func (l *Lexer) addToken(tt TokenType, lit interface{}) Token {
	tok := Token{
		Type:      tt,
		Lexeme:    l.src[l.start:l.cur],
		Literal:   lit,
		Line:      l.tokStartLine,
		Col:       l.tokStartCol,
		StartByte: l.start,
		EndByte:   l.cur,
	}
	l.tokens = append(l.tokens, tok)
	l.start = l.cur
	l.whitespaceBefore = false
	return tok
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		ch, _ := l.peek()
		switch ch {
		case ' ', '\r', '\n', '\t':
			l.whitespaceBefore = true
			l.advance()
			l.start = l.cur
		case '#':
			// "##" comment runs to end of line; a lone '#' falls through to
			// the main scanner and is reported there.
			if b, ok := l.peekN(1); ok && b == '#' {
				for {
					b, ok := l.peek()
					if !ok || b == '\n' {
						break
					}
					l.advance()
				}
				l.start = l.cur
				continue
			}
			return
		default:
			return
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b) || b == '_'
}

// ----- errors -----

// LexError reports an unrecognized or malformed piece of input. Col is
// 0-based; rendering adds 1.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("LEXICAL ERROR at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

// record stores a recoverable lex error at the current token start.
func (l *Lexer) record(msg string) {
	l.errs = append(l.errs, &LexError{Line: l.tokStartLine, Col: l.tokStartCol, Msg: msg})
}

// ----- scanners -----

// scanString parses a double-quoted string literal. The text is taken raw
// until the closing quote; the only escape is \" for an embedded quote.
func (l *Lexer) scanString() (string, bool) {
	l.advance() // opening quote

	var out []byte
	for !l.isAtEnd() {
		ch, _ := l.advance()
		if ch == '"' {
			return string(out), true
		}
		if ch == '\\' {
			if b, ok := l.peek(); ok && b == '"' {
				l.advance()
				out = append(out, '"')
				continue
			}
		}
		out = append(out, ch)
	}
	l.record("string was not terminated")
	return "", false
}

// scanNumber parses an integer or float literal: digits with an optional
// fractional part (1, 12.5). A trailing bare '.' is not consumed.
func (l *Lexer) scanNumber() (TokenType, interface{}, bool) {
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}

	sawDot := false
	if b, ok := l.peek(); ok && b == '.' {
		if b2, ok2 := l.peekN(1); ok2 && isDigit(b2) {
			sawDot = true
			l.advance()
			for {
				b, ok := l.peek()
				if !ok || !isDigit(b) {
					break
				}
				l.advance()
			}
		}
	}

	lex := l.src[l.start:l.cur]
	if sawDot {
		v, err := strconv.ParseFloat(lex, 64)
		if err != nil {
			l.record("invalid float literal")
			return ILLEGAL, nil, false
		}
		return FLOAT, v, true
	}
	v, err := strconv.ParseInt(lex, 10, 64)
	if err != nil {
		l.record("invalid integer literal")
		return ILLEGAL, nil, false
	}
	return INTEGER, v, true
}

// scanIdentifier parses [A-Za-z][A-Za-z0-9_]*.
func (l *Lexer) scanIdentifier() string {
	for {
		b, ok := l.peek()
		if !ok || !isAlphaNum(b) {
			break
		}
		l.advance()
	}
	return l.src[l.start:l.cur]
}

// ----- main scanner -----

// scanToken returns the next token. Unrecognized input is recorded and
// skipped; the loop continues until a real token or EOF is produced.
func (l *Lexer) scanToken() Token {
	for {
		l.skipWhitespace()
		l.tokStartLine = l.line
		l.tokStartCol = l.col
		l.start = l.cur

		if l.isAtEnd() {
			return l.addToken(EOF, nil)
		}

		ch, _ := l.advance()

		switch ch {
		case '(':
			return l.addToken(LROUND, nil)
		case ')':
			return l.addToken(RROUND, nil)
		case '[':
			if l.whitespaceBefore || len(l.tokens) == 0 {
				return l.addToken(LSQUARE, nil)
			}
			return l.addToken(CLSQUARE, nil)
		case ']':
			return l.addToken(RSQUARE, nil)
		case '{':
			if l.whitespaceBefore || len(l.tokens) == 0 {
				return l.addToken(LCURLY, nil)
			}
			return l.addToken(CLCURLY, nil)
		case '}':
			return l.addToken(RCURLY, nil)
		case ',':
			return l.addToken(COMMA, nil)
		case '|':
			return l.addToken(SEP, nil)
		case '+':
			return l.addToken(PLUS, nil)
		case '-':
			return l.addToken(MINUS, nil)
		case '*':
			return l.addToken(MULT, nil)
		case '/':
			return l.addToken(DIV, nil)
		case '%':
			return l.addToken(MOD, nil)
		case '=':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(EQ, nil)
			}
			return l.addToken(ASSIGN, nil)
		case '!':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(NEQ, nil)
			}
			l.record("unexpected character: '!'")
			continue
		case '<':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(LESS_EQ, nil)
			}
			return l.addToken(LESS, nil)
		case '>':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(GREATER_EQ, nil)
			}
			return l.addToken(GREATER, nil)
		}

		if ch == '"' {
			l.rewindToStart()
			text, ok := l.scanString()
			if !ok {
				l.start = l.cur
				continue
			}
			return l.addToken(STRING, text)
		}

		if isDigit(ch) {
			l.rewindToStart()
			tt, lit, ok := l.scanNumber()
			if !ok {
				l.start = l.cur
				continue
			}
			return l.addToken(tt, lit)
		}

		if isAlpha(ch) {
			l.rewindToStart()
			lex := l.scanIdentifier()
			if tt, ok := keywords[lex]; ok {
				if tt == BOOLEAN {
					return l.addToken(BOOLEAN, lex == "True")
				}
				return l.addToken(tt, lex)
			}
			return l.addToken(IDENT, lex)
		}

		l.record(fmt.Sprintf("unexpected character: %q", ch))
		// Skip to the next plausible token boundary.
		l.start = l.cur
	}
}

// Scan tokenizes the entire source and returns all tokens (EOF included)
// together with any recoverable lex errors. The token stream is always
// usable by the parser even when errors are present.
func (l *Lexer) Scan() ([]Token, []*LexError) {
	for {
		tok := l.scanToken()
		if tok.Type == EOF {
			return l.tokens, l.errs
		}
	}
}
