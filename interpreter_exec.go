// interpreter_exec.go — the tree-walking evaluator.
//
// HOW ERRORS GET POSITIONS
// ------------------------
// The evaluator maintains its NodePath into the AST by pushing a child slot
// before descending and popping after a *normal* return — deliberately not
// with defer. When an operation fails, the fail* helper panics a *Diagnostic
// with no position; the panic unwinds past every pop, so at the recover
// boundary ev.path still addresses the failing node. evalRoot then resolves
// the path against the SpanIndex (truncating trailing elements until a span
// is found) and stamps line/column onto the diagnostic. One recover site,
// one terminal diagnostic per run.
//
// Scoping rules: function calls and for loops open a scope; if and while
// bodies evaluate in the enclosing scope, so assignments inside them remain
// visible after the statement.
package pain

import "fmt"

// maxCallDepth bounds user-function recursion so runaway recursion surfaces
// as a diagnostic instead of exhausting the Go stack.
const maxCallDepth = 5000

type evaluator struct {
	ip    *Interpreter
	env   *Env
	spans *SpanIndex
	src   string
	path  NodePath
	depth int
}

// evalRoot is the single recover boundary of a run.
func (ip *Interpreter) evalRoot(ast S, spans *SpanIndex, src string, env *Env) (v Value, err error) {
	ev := &evaluator{ip: ip, env: env, spans: spans, src: src}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		d, ok := r.(*Diagnostic)
		if !ok {
			panic(r)
		}
		if d.Line == 0 && ev.spans != nil {
			p := ev.path
			for {
				if sp, found := ev.spans.Get(p); found {
					d.Line, d.Col = offsetToLineCol(ev.src, sp.StartByte)
					break
				}
				if len(p) == 0 {
					break
				}
				p = p[:len(p)-1]
			}
		}
		v = Value{}
		err = d
	}()
	v = ev.eval(ast)
	return v, nil
}

func (ev *evaluator) push(slot int) { ev.path = append(ev.path, slot) }
func (ev *evaluator) pop()          { ev.path = ev.path[:len(ev.path)-1] }

// evalAt evaluates the child node at n[slot+1]. The pop is skipped when the
// child panics, leaving ev.path at the failure site.
func (ev *evaluator) evalAt(n S, slot int) Value {
	ev.push(slot)
	v := ev.eval(n[slot+1].(S))
	ev.pop()
	return v
}

func (ev *evaluator) eval(n S) Value {
	switch n[0].(string) {

	case "int":
		return NewIntValue(n[1].(int64))
	case "float":
		return NewFloatValue(n[1].(float64))
	case "str":
		return NewStrValue(n[1].(string))
	case "bool":
		return NewBoolValue(n[1].(bool))

	case "id":
		name := n[1].(string)
		v, ok := ev.env.Get(name)
		if !ok {
			failName(name)
		}
		return v

	case "list":
		items := make([]Value, 0, len(n)-1)
		for i := 1; i < len(n); i++ {
			items = append(items, ev.evalAt(n, i-1))
		}
		return NewListValue(items)

	case "block":
		result := NewBoolValue(false)
		for i := 1; i < len(n); i++ {
			result = ev.evalAt(n, i-1)
		}
		return result

	case "unop":
		return ev.evalUnop(n)
	case "binop":
		return ev.evalBinop(n)
	case "assign":
		return ev.evalAssign(n)
	case "idx":
		obj := ev.evalAt(n, 0)
		key := ev.evalAt(n, 1)
		return indexGet(obj, key)
	case "call":
		return ev.evalCall(n)

	case "if":
		return ev.evalIf(n)
	case "while":
		return ev.evalWhile(n)
	case "for":
		return ev.evalFor(n)
	case "def":
		return ev.evalDef(n)
	}

	failValue(fmt.Sprintf("cannot evaluate node %v", n[0]))
	return Value{}
}

// ─────────────────────────────── operators ──────────────────────────────────

func (ev *evaluator) evalUnop(n S) Value {
	op := n[1].(string)
	if op == "not" {
		return NewBoolValue(!truthy(ev.evalAt(n, 1)))
	}
	return negate(ev.evalAt(n, 1))
}

func (ev *evaluator) evalBinop(n S) Value {
	op := n[1].(string)

	// and/or short-circuit: the right operand is only evaluated when the
	// left one does not decide the result.
	switch op {
	case "and":
		if !truthy(ev.evalAt(n, 1)) {
			return NewBoolValue(false)
		}
		return NewBoolValue(truthy(ev.evalAt(n, 2)))
	case "or":
		if truthy(ev.evalAt(n, 1)) {
			return NewBoolValue(true)
		}
		return NewBoolValue(truthy(ev.evalAt(n, 2)))
	}

	lhs := ev.evalAt(n, 1)
	rhs := ev.evalAt(n, 2)
	return binaryOp(op, lhs, rhs)
}

// ─────────────────────────────── assignment ─────────────────────────────────

func (ev *evaluator) evalAssign(n S) Value {
	target := n[1].(S)
	switch target[0].(string) {

	case "id":
		v := ev.evalAt(n, 1)
		name := target[1].(string)
		if !ev.env.Set(name, v) {
			ev.env.Define(name, v)
		}
		return v

	case "idx":
		// Evaluate in source order: object, key, then the assigned value.
		ev.push(0)
		obj := ev.evalAt(target, 0)
		key := ev.evalAt(target, 1)
		ev.pop()
		v := ev.evalAt(n, 1)

		if obj.Tag == VTStr {
			// Strings are immutable: s[i] = c rebinds the variable s to a
			// fresh string, and is only meaningful on a plain variable.
			idNode, ok := target[1].(S)
			if !ok || idNode[0].(string) != "id" {
				failType("cannot assign into a str expression")
			}
			ev.push(0)
			updated := strIndexSet(obj, key, v)
			ev.pop()
			name := idNode[1].(string)
			if !ev.env.Set(name, updated) {
				ev.env.Define(name, updated)
			}
			return v
		}

		ev.push(0)
		indexSet(obj, key, v)
		ev.pop()
		return v
	}

	failParseShape("invalid assignment target")
	return Value{}
}

// ─────────────────────────────── control flow ───────────────────────────────

func (ev *evaluator) evalIf(n S) Value {
	if truthy(ev.evalAt(n, 0)) {
		return ev.evalAt(n, 1)
	}
	if len(n) > 3 {
		return ev.evalAt(n, 2)
	}
	return NewBoolValue(false)
}

func (ev *evaluator) evalWhile(n S) Value {
	for truthy(ev.evalAt(n, 0)) {
		ev.evalAt(n, 1)
	}
	return NewBoolValue(false)
}

// evalFor iterates a snapshot of the iterable taken at loop entry, so body
// mutations of the underlying list or dict do not change the trip count.
// The loop variable lives in a scope of its own.
func (ev *evaluator) evalFor(n S) Value {
	name := n[1].(string)
	iter := ev.evalAt(n, 1)

	var items []Value
	switch iter.Tag {
	case VTList:
		items = append(items, iter.AsList().Items...)
	case VTStr:
		for _, r := range iter.AsStr() {
			items = append(items, NewStrValue(string(r)))
		}
	case VTDict:
		items = append(items, iter.AsDict().Keys...)
	default:
		ev.push(1)
		failType(fmt.Sprintf("%s is not iterable", iter.Tag))
	}

	saved := ev.env
	ev.env = NewEnv(saved)
	for _, item := range items {
		ev.env.Define(name, item)
		ev.evalAt(n, 2)
	}
	ev.env = saved
	return NewBoolValue(false)
}

func (ev *evaluator) evalDef(n S) Value {
	name := n[1].(string)
	paramsNode := n[2].(S)
	params := make([]string, 0, len(paramsNode)-1)
	for i := 1; i < len(paramsNode); i++ {
		params = append(params, paramsNode[i].(string))
	}
	// The body's span paths are rooted at the def site, so remember where
	// the body lives; calls rebase blame onto this path.
	defPath := append(append(NodePath{}, ev.path...), 2)
	fn := NewFunValue(&Fun{
		Name:    name,
		Params:  params,
		Body:    n[3].(S),
		Env:     ev.env,
		Arity:   len(params),
		defPath: defPath,
	})
	ev.env.Define(name, fn)
	return fn
}

// ───────────────────────────────── calls ────────────────────────────────────

func (ev *evaluator) evalCall(n S) Value {
	callee := ev.evalAt(n, 0)
	if callee.Tag != VTFun {
		ev.push(0)
		failType(fmt.Sprintf("%s is not callable", callee.Tag))
	}
	fn := callee.AsFun()

	args := make([]Value, 0, len(n)-2)
	for i := 2; i < len(n); i++ {
		args = append(args, ev.evalAt(n, i-1))
	}

	if fn.Arity >= 0 && len(args) != fn.Arity {
		failArity(fmt.Sprintf("%s takes %d argument(s), got %d",
			callName(fn), fn.Arity, len(args)))
	}

	if fn.Native != nil {
		return fn.Native(ev, args)
	}

	// User call: fresh scope chained to the defining environment, params
	// bound positionally, body's last expression is the result. Blame inside
	// the body resolves relative to the def site, so rebase the path there
	// (a panic leaves the rebased path in place for the recover boundary).
	if ev.depth >= maxCallDepth {
		failValue(fmt.Sprintf("call depth exceeded %d frames", maxCallDepth))
	}
	savedEnv, savedPath := ev.env, ev.path
	ev.depth++
	ev.env = NewEnv(fn.Env)
	for i, p := range fn.Params {
		ev.env.Define(p, args[i])
	}
	ev.path = append(NodePath{}, fn.defPath...)
	result := ev.eval(fn.Body)
	ev.env, ev.path = savedEnv, savedPath
	ev.depth--
	return result
}

func callName(fn *Fun) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "function"
}
