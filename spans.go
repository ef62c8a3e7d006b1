// spans.go — sidecar source spans for pain ASTs.
//
// The AST is the compact S-expression type S from parser.go, which leaves no
// room for position fields on the nodes themselves. Instead, the parser
// records one byte span per node in strict post-order (children before
// parent, left to right), and BuildSpanIndexPostOrder binds those spans to
// structural addresses (NodePath) with a deterministic walk in the same
// order. The evaluator tracks its own NodePath while walking the tree and
// resolves it here when a runtime error needs a caret position.
//
// Spans are half-open byte intervals [StartByte, EndByte) into the original
// UTF-8 source; line/column are derived on demand from the source text.
package pain

import (
	"strconv"
	"strings"
)

// Span is a half-open byte interval [StartByte, EndByte) in the source.
type Span struct {
	StartByte int // inclusive
	EndByte   int // exclusive
}

// NodePath is a stable structural address into an S-expression AST. Each
// element selects a child slot: path element k refers to S[k+1], since S[0]
// is the string tag. Non-node children (tag payloads such as identifier
// names) occupy slots but are never addressed.
type NodePath []int

// SpanIndex maps NodePath → Span for one parsed program. Read-only after
// construction; safe for concurrent reads.
type SpanIndex struct {
	byPath map[string]Span
}

// Get returns the span recorded for the given path, if any. A nil index
// resolves nothing.
func (si *SpanIndex) Get(p NodePath) (Span, bool) {
	if si == nil {
		return Span{}, false
	}
	sp, ok := si.byPath[pathKey(p)]
	return sp, ok
}

// BuildSpanIndexPostOrder binds one span per AST node, walking root in
// post-order. postorder must list exactly one Span per node in that order;
// a short slice leaves the remaining nodes unindexed, extras are ignored.
func BuildSpanIndexPostOrder(root S, postorder []Span) *SpanIndex {
	si := &SpanIndex{byPath: make(map[string]Span, len(postorder))}
	i := 0
	var walk func(n S, path NodePath)
	walk = func(n S, path NodePath) {
		for ci := 1; ci < len(n); ci++ {
			if child, ok := n[ci].(S); ok {
				walk(child, append(path, ci-1))
			}
		}
		if i < len(postorder) {
			si.byPath[pathKey(path)] = postorder[i]
			i++
		}
	}
	walk(root, nil)
	return si
}

// pathKey serializes a NodePath to a compact "a.b.c" map key.
func pathKey(p NodePath) string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, x := range p {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(x))
	}
	return sb.String()
}

// offsetToLineCol converts a byte offset into 1-based line and column.
func offsetToLineCol(src string, off int) (int, int) {
	if off < 0 {
		return 1, 1
	}
	line, col := 1, 1
	for i := 0; i < len(src) && i < off; i++ {
		if src[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
