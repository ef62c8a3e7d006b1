// parser.go — Pratt parser for pain that produces compact S-expressions.
//
// OVERVIEW
// --------
// Consumes the token stream from the whitespace-sensitive lexer (lexer.go)
// and builds a Lisp-style S-expression AST. The grammar is the reconciled
// one: blocks are delimited by [ ], call arguments by { }, parameter lists
// by ( ), and `|` may separate statements. Whitespace-sensitive signals
// from the lexer drive the bracket roles:
//
//   - CLSQUARE (tight '[') participates in indexing; LSQUARE opens a block
//     or list literal.
//   - CLCURLY (tight '{') participates in calls; a spaced '{' is an error
//     (the language has no dict literal — dicts start from dict{}).
//
// Nodes
// -----
// The AST is a tree of S-expressions: []any whose first element is a string
// tag. This list is the authoritative reference:
//
//	("block", stmt...)               // program and every [ ] block
//	("int", int64)  ("float", float64)  ("str", string)  ("bool", bool)
//	("id", name)                     // identifier reference
//	("list", e...)                   // [a, b] or (a, b, c) literal
//	("unop",  op, rhs)               // prefix "-" or "not"
//	("binop", op, lhs, rhs)          // arithmetic, comparisons, and/or
//	("assign", target, value)        // target is ("id",..) or ("idx",..)
//	("idx", obj, keyExpr)            // obj[key]
//	("call", callee, arg...)         // callee{args}
//	("if", cond, thenBlk)            // plus optional elseBlk as 4th slot
//	("while", cond, blk)
//	("for", name, iterExpr, blk)     // name is a plain string
//	("def", name, ("params", p...), blk)
//
// Precedence (lowest to highest): assignment (right-assoc) → or → and →
// not (prefix) → comparisons (non-associative; chaining is a parse error)
// → + - → * / % → unary minus → postfix call/index → primary.
//
// SPAN EMISSION INVARIANT
// -----------------------
// Every AST node is constructed through the mk/mkLeaf helpers, which append
// exactly one Span per node in strict post-order of the final AST (children
// first, left to right). BuildSpanIndexPostOrder (spans.go) later binds the
// spans to NodePaths by walking the tree in the same order. Nodes whose
// children include non-node payloads (identifier names, parameter strings)
// still follow the rule: only S-typed children carry their own spans.
//
// Dependencies: lexer.go (tokens), spans.go (Span, SpanIndex).
package pain

import "fmt"

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// S is the S-expression node type: a tag string followed by children.
type S = []any

// L builds an S-expression node without span accounting. Useful in tests and
// hosts that synthesize ASTs; parser-built nodes go through mk/mkLeaf.
func L(tag string, parts ...any) S { return append([]any{tag}, parts...) }

// ParseError reports an unexpected token or malformed grammar. Line and Col
// are 1-based. AtEOF marks errors caused by input that simply stops early,
// which the REPL uses to keep prompting for continuation lines.
type ParseError struct {
	Line  int
	Col   int
	Msg   string
	AtEOF bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err is a parse error that more input could
// still fix (the source ended mid-construct).
func IsIncomplete(err error) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.AtEOF
}

// ParseSExpr parses a complete pain source string and returns its AST as a
// ("block", ...) of top-level statements. The first lex error, if any, wins
// over parse errors, matching the report-before-evaluate policy.
func ParseSExpr(src string) (S, error) {
	ast, _, err := ParseSExprWithSpans(src)
	return ast, err
}

// ParseSExprWithSpans parses like ParseSExpr and also returns the SpanIndex
// binding every AST node to its source byte span.
func ParseSExprWithSpans(src string) (S, *SpanIndex, error) {
	toks, lexErrs := NewLexer(src).Scan()
	p := &parser{toks: toks}
	ast, perr := p.program()
	if len(lexErrs) > 0 {
		return nil, nil, lexErrs[0]
	}
	if perr != nil {
		return nil, nil, perr
	}
	return ast, BuildSpanIndexPostOrder(ast, p.post), nil
}

//// END_OF_PUBLIC

////////////////////////////////////////////////////////////////////////////////
//                             PRIVATE IMPLEMENTATION
////////////////////////////////////////////////////////////////////////////////

type parser struct {
	toks []Token
	i    int
	post []Span // strictly post-order: one span per node, appended after children
}

// ─────────────────────────── token basics & helpers ─────────────────────────

func (p *parser) atEnd() bool { return p.peek().Type == EOF }

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) match(tt ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(t TokenType, msg string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	return Token{}, p.errAt(p.peek(), msg)
}

func (p *parser) errAt(tok Token, msg string) error {
	return &ParseError{Line: tok.Line, Col: tok.Col + 1, Msg: msg, AtEOF: tok.Type == EOF}
}

func (p *parser) skipSeps() {
	for !p.atEnd() && p.peek().Type == SEP {
		p.i++
	}
}

// ───────────────────────── precedence / associativity ──────────────────────

const (
	bpAssign  = 10
	bpOr      = 20
	bpAnd     = 30
	bpNot     = 35
	bpCompare = 40
	bpAdd     = 50
	bpMul     = 60
	bpNeg     = 70
	bpPostfix = 80
)

func lbp(t TokenType) int {
	switch t {
	case ASSIGN:
		return bpAssign
	case OR:
		return bpOr
	case AND:
		return bpAnd
	case EQ, NEQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
		return bpCompare
	case PLUS, MINUS:
		return bpAdd
	case MULT, DIV, MOD:
		return bpMul
	case CLCURLY, CLSQUARE:
		return bpPostfix
	}
	return 0
}

func isComparison(t TokenType) bool {
	switch t {
	case EQ, NEQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
		return true
	}
	return false
}

func binopName(t TokenType) string {
	switch t {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case MULT:
		return "*"
	case DIV:
		return "/"
	case MOD:
		return "%"
	case EQ:
		return "=="
	case NEQ:
		return "!="
	case LESS:
		return "<"
	case LESS_EQ:
		return "<="
	case GREATER:
		return ">"
	case GREATER_EQ:
		return ">="
	case AND:
		return "and"
	case OR:
		return "or"
	}
	return "?"
}

// ───────────────────────────── span emission (core) ─────────────────────────
//
// All node construction goes through these helpers, which append exactly one
// span per node in post-order. Token indices address p.toks.

func (p *parser) appendNodeSpanByTok(startTok, endTok int) {
	if startTok >= 0 && endTok >= startTok && endTok < len(p.toks) {
		p.post = append(p.post, Span{
			StartByte: p.toks[startTok].StartByte,
			EndByte:   p.toks[endTok].EndByte,
		})
		return
	}
	p.post = append(p.post, Span{})
}

// mkLeaf builds a leaf node spanning a single token.
func (p *parser) mkLeaf(tag string, tok int, parts ...any) S {
	n := L(tag, parts...)
	p.appendNodeSpanByTok(tok, tok)
	return n
}

// mk builds a parent node after its children were constructed, covering the
// token range [startTok, endTok].
func (p *parser) mk(tag string, startTok, endTok int, parts ...any) S {
	n := L(tag, parts...)
	p.appendNodeSpanByTok(startTok, endTok)
	return n
}

// ───────────────────────────────── program ──────────────────────────────────

func (p *parser) program() (S, error) {
	stmts := []any{"block"}
	p.skipSeps()
	for !p.atEnd() {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
		p.skipSeps()
	}
	p.appendNodeSpanByTok(0, len(p.toks)-1)
	return S(stmts), nil
}

// ──────────────────────────────── statements ────────────────────────────────

func (p *parser) statement() (S, error) {
	switch p.peek().Type {
	case IF:
		return p.ifStmt()
	case WHILE:
		return p.whileStmt()
	case FOR:
		return p.forStmt()
	case DEF:
		return p.defStmt()
	default:
		return p.expression(0)
	}
}

// block parses "[ stmt... ]" into ("block", ...). The opening bracket must be
// a spaced LSQUARE; a tight one would have been consumed as an index.
func (p *parser) block() (S, error) {
	open, err := p.need(LSQUARE, "expected '[' to open a block")
	if err != nil {
		return nil, err
	}
	stmts := []any{"block"}
	p.skipSeps()
	for !p.atEnd() && p.peek().Type != RSQUARE {
		st, serr := p.statement()
		if serr != nil {
			return nil, serr
		}
		stmts = append(stmts, st)
		p.skipSeps()
	}
	close_, err := p.need(RSQUARE, "expected ']' to close a block")
	if err != nil {
		return nil, err
	}
	return p.mk("block", p.tokIdx(open), p.tokIdx(close_), stmts[1:]...), nil
}

// tokIdx recovers the index of a token returned by need/prev. Tokens are
// unique by StartByte, so a backward scan from the cursor is exact.
func (p *parser) tokIdx(t Token) int {
	for j := p.i - 1; j >= 0; j-- {
		if p.toks[j].StartByte == t.StartByte {
			return j
		}
	}
	return -1
}

func (p *parser) ifStmt() (S, error) {
	start := p.i
	p.i++ // consume IF
	cond, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	thenBlk, err := p.block()
	if err != nil {
		return nil, err
	}
	if !p.match(ELSE) {
		return p.mk("if", start, p.i-1, cond, thenBlk), nil
	}
	// `else if ...` chains wrap the nested if in a one-statement block.
	if p.peek().Type == IF {
		innerStart := p.i
		inner, ierr := p.ifStmt()
		if ierr != nil {
			return nil, ierr
		}
		elseBlk := p.mk("block", innerStart, p.i-1, inner)
		return p.mk("if", start, p.i-1, cond, thenBlk, elseBlk), nil
	}
	elseBlk, err := p.block()
	if err != nil {
		return nil, err
	}
	return p.mk("if", start, p.i-1, cond, thenBlk, elseBlk), nil
}

func (p *parser) whileStmt() (S, error) {
	start := p.i
	p.i++ // consume WHILE
	cond, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	blk, err := p.block()
	if err != nil {
		return nil, err
	}
	return p.mk("while", start, p.i-1, cond, blk), nil
}

func (p *parser) forStmt() (S, error) {
	start := p.i
	p.i++ // consume FOR
	name, err := p.need(IDENT, "expected loop variable name after 'for'")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(IN, "expected 'in' after loop variable"); err != nil {
		return nil, err
	}
	iter, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	blk, err := p.block()
	if err != nil {
		return nil, err
	}
	return p.mk("for", start, p.i-1, name.Lexeme, iter, blk), nil
}

func (p *parser) defStmt() (S, error) {
	start := p.i
	p.i++ // consume DEF
	name, err := p.need(IDENT, "expected function name after 'def'")
	if err != nil {
		return nil, err
	}
	lparen, err := p.need(LROUND, "expected '(' to open the parameter list")
	if err != nil {
		return nil, err
	}
	params := []any{"params"}
	if p.peek().Type != RROUND {
		for {
			pn, perr := p.need(IDENT, "expected parameter name")
			if perr != nil {
				return nil, perr
			}
			params = append(params, pn.Lexeme)
			if !p.match(COMMA) {
				break
			}
		}
	}
	rparen, err := p.need(RROUND, "expected ')' to close the parameter list")
	if err != nil {
		return nil, err
	}
	paramsNode := p.mk("params", p.tokIdx(lparen), p.tokIdx(rparen), params[1:]...)
	blk, err := p.block()
	if err != nil {
		return nil, err
	}
	return p.mk("def", start, p.i-1, name.Lexeme, paramsNode, blk), nil
}

// ─────────────────────────────── expressions ────────────────────────────────

// expression is the Pratt loop: parse a prefix form, then extend with infix
// and postfix forms while the next token binds tighter than minBP.
func (p *parser) expression(minBP int) (S, error) {
	left, startTok, err := p.nud()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek().Type
		bp := lbp(t)
		if bp <= minBP {
			return left, nil
		}

		switch {
		case t == ASSIGN:
			if tag, _ := left[0].(string); tag != "id" && tag != "idx" {
				return nil, p.errAt(p.peek(), "invalid assignment target")
			}
			p.i++
			rhs, rerr := p.expression(bpAssign - 1) // right-assoc
			if rerr != nil {
				return nil, rerr
			}
			left = p.mk("assign", startTok, p.i-1, left, rhs)

		case isComparison(t):
			p.i++
			op := binopName(t)
			rhs, rerr := p.expression(bpCompare)
			if rerr != nil {
				return nil, rerr
			}
			if isComparison(p.peek().Type) {
				return nil, p.errAt(p.peek(), "comparisons cannot be chained")
			}
			left = p.mk("binop", startTok, p.i-1, op, left, rhs)

		case t == CLCURLY:
			p.i++
			args := []any{}
			if p.peek().Type != RCURLY {
				for {
					a, aerr := p.expression(0)
					if aerr != nil {
						return nil, aerr
					}
					args = append(args, a)
					if !p.match(COMMA) {
						break
					}
				}
			}
			if _, cerr := p.need(RCURLY, "expected '}' to close call arguments"); cerr != nil {
				return nil, cerr
			}
			left = p.mk("call", startTok, p.i-1, append([]any{left}, args...)...)

		case t == CLSQUARE:
			p.i++
			key, kerr := p.expression(0)
			if kerr != nil {
				return nil, kerr
			}
			if _, cerr := p.need(RSQUARE, "expected ']' to close index"); cerr != nil {
				return nil, cerr
			}
			left = p.mk("idx", startTok, p.i-1, left, key)

		default: // and/or, additive, multiplicative: left-assoc binops
			p.i++
			op := binopName(t)
			rhs, rerr := p.expression(bp)
			if rerr != nil {
				return nil, rerr
			}
			left = p.mk("binop", startTok, p.i-1, op, left, rhs)
		}
	}
}

// nud parses a prefix/primary form and reports the token index it started at
// (needed for parent span ranges built by the caller).
func (p *parser) nud() (S, int, error) {
	tok := p.peek()
	start := p.i

	switch tok.Type {
	case INTEGER:
		p.i++
		return p.mkLeaf("int", start, tok.Literal.(int64)), start, nil
	case FLOAT:
		p.i++
		return p.mkLeaf("float", start, tok.Literal.(float64)), start, nil
	case STRING:
		p.i++
		return p.mkLeaf("str", start, tok.Literal.(string)), start, nil
	case BOOLEAN:
		p.i++
		return p.mkLeaf("bool", start, tok.Literal.(bool)), start, nil
	case IDENT:
		p.i++
		return p.mkLeaf("id", start, tok.Lexeme), start, nil

	case MINUS:
		p.i++
		rhs, err := p.expression(bpNeg)
		if err != nil {
			return nil, start, err
		}
		return p.mk("unop", start, p.i-1, "-", rhs), start, nil

	case NOT:
		p.i++
		rhs, err := p.expression(bpNot)
		if err != nil {
			return nil, start, err
		}
		return p.mk("unop", start, p.i-1, "not", rhs), start, nil

	case LROUND:
		p.i++
		first, err := p.expression(0)
		if err != nil {
			return nil, start, err
		}
		if p.match(COMMA) {
			// (a, b, c) is a list literal.
			elems := []any{first}
			for {
				e, eerr := p.expression(0)
				if eerr != nil {
					return nil, start, eerr
				}
				elems = append(elems, e)
				if !p.match(COMMA) {
					break
				}
			}
			if _, cerr := p.need(RROUND, "expected ')' to close list"); cerr != nil {
				return nil, start, cerr
			}
			return p.mk("list", start, p.i-1, elems...), start, nil
		}
		if _, cerr := p.need(RROUND, "expected ')' after expression"); cerr != nil {
			return nil, start, cerr
		}
		return first, start, nil

	case LSQUARE, CLSQUARE:
		// In prefix position both forms open a list literal.
		p.i++
		elems := []any{}
		if p.peek().Type != RSQUARE {
			for {
				e, eerr := p.expression(0)
				if eerr != nil {
					return nil, start, eerr
				}
				elems = append(elems, e)
				if !p.match(COMMA) {
					break
				}
			}
		}
		if _, cerr := p.need(RSQUARE, "expected ']' to close list"); cerr != nil {
			return nil, start, cerr
		}
		return p.mk("list", start, p.i-1, elems...), start, nil

	case LCURLY:
		return nil, start, p.errAt(tok, "no dict literal syntax; build dicts with dict{} and index assignment")

	case EOF:
		return nil, start, p.errAt(tok, "unexpected end of input")
	}

	return nil, start, p.errAt(tok, fmt.Sprintf("unexpected token %q", tok.Lexeme))
}
