// interpreter.go — public API and value model of the pain interpreter.
//
// OVERVIEW
// --------
// This file is the embedding surface: the Value tagged union, the lexical
// Env chain, and the Interpreter with its Run entry points. The private
// evaluator lives in interpreter_exec.go, value operations and builtins in
// interpreter_ops.go.
//
// A host embeds the language in three lines:
//
//	ip := pain.NewInterpreter()
//	v, err := ip.Run(`x = 2 + 3 | print{x * x}`)
//	// "25" was written to ip.Out; v is Int(25)
//
// Run evaluates in a throwaway scope; RunPersistent accumulates state across
// calls and is what the REPL uses. Both return the value of the last
// statement, or a *Diagnostic describing the single terminal error of the
// run. Output printed before the failure point has already been streamed to
// Out by then.
package pain

import (
	"fmt"
	"io"
	"math"
	"os"
)

// Version is the interpreter release tag reported by the CLI.
const Version = "0.3.1"

////////////////////////////////////////////////////////////////////////////////
//                                    VALUES
////////////////////////////////////////////////////////////////////////////////

// ValueTag discriminates the runtime value union.
type ValueTag int

const (
	VTBool ValueTag = iota
	VTInt
	VTFloat
	VTStr
	VTList
	VTDict
	VTFun
)

// String returns the user-facing type name used in diagnostics.
func (t ValueTag) String() string {
	switch t {
	case VTBool:
		return "bool"
	case VTInt:
		return "int"
	case VTFloat:
		return "float"
	case VTStr:
		return "str"
	case VTList:
		return "list"
	case VTDict:
		return "dict"
	case VTFun:
		return "function"
	}
	return "unknown"
}

// Value is the tagged runtime value. Data holds, per tag: bool, int64,
// float64, string, *ListObject, *DictObject, *Fun. Lists and dicts are
// reference types: assigning or passing one shares the underlying object.
type Value struct {
	Tag  ValueTag
	Data any
}

// Constructors. Hosts and builtins use these rather than building Value
// literals, so the Tag/Data pairing stays in one place.

func NewBoolValue(b bool) Value       { return Value{Tag: VTBool, Data: b} }
func NewIntValue(n int64) Value       { return Value{Tag: VTInt, Data: n} }
func NewFloatValue(f float64) Value   { return Value{Tag: VTFloat, Data: f} }
func NewStrValue(s string) Value      { return Value{Tag: VTStr, Data: s} }
func NewListValue(xs []Value) Value   { return Value{Tag: VTList, Data: &ListObject{Items: xs}} }
func NewDictValue() Value             { return Value{Tag: VTDict, Data: NewDictObject()} }
func NewFunValue(f *Fun) Value        { return Value{Tag: VTFun, Data: f} }

// Accessors panic on tag mismatch; callers check Tag first (the evaluator
// always does, via the op tables in interpreter_ops.go).

func (v Value) AsBool() bool          { return v.Data.(bool) }
func (v Value) AsInt() int64          { return v.Data.(int64) }
func (v Value) AsFloat() float64      { return v.Data.(float64) }
func (v Value) AsStr() string         { return v.Data.(string) }
func (v Value) AsList() *ListObject   { return v.Data.(*ListObject) }
func (v Value) AsDict() *DictObject   { return v.Data.(*DictObject) }
func (v Value) AsFun() *Fun           { return v.Data.(*Fun) }

// ListObject is the shared backing store of a list value.
type ListObject struct {
	Items []Value
}

// dictKey is the hashed form of a dict key. Only Bool, Int, Float and Str
// values are hashable; a Float with an integral value hashes equal to the
// corresponding Int, so d[1] and d[1.0] address the same entry.
type dictKey struct {
	tag ValueTag
	b   bool
	i   int64
	f   float64
	s   string
}

// DictObject is an insertion-ordered hash map. Keys preserves first-insert
// order for keys{}/values{} snapshots and for-in iteration.
type DictObject struct {
	entries map[dictKey]Value
	Keys    []Value
}

// NewDictObject returns an empty dict.
func NewDictObject() *DictObject {
	return &DictObject{entries: make(map[dictKey]Value)}
}

// hashKey normalizes a key value, reporting false for unhashable tags.
func hashKey(k Value) (dictKey, bool) {
	switch k.Tag {
	case VTBool:
		return dictKey{tag: VTBool, b: k.AsBool()}, true
	case VTInt:
		return dictKey{tag: VTInt, i: k.AsInt()}, true
	case VTFloat:
		f := k.AsFloat()
		// Only fold into the int form when int64(f) is well defined.
		if f >= math.MinInt64 && f < math.MaxInt64 && f == math.Trunc(f) {
			return dictKey{tag: VTInt, i: int64(f)}, true
		}
		return dictKey{tag: VTFloat, f: f}, true
	case VTStr:
		return dictKey{tag: VTStr, s: k.AsStr()}, true
	}
	return dictKey{}, false
}

// Get looks up a key; ok is false for missing (but hashable) keys and for
// unhashable ones alike — callers distinguish via hashKey when they care.
func (d *DictObject) Get(k Value) (Value, bool) {
	hk, ok := hashKey(k)
	if !ok {
		return Value{}, false
	}
	v, ok := d.entries[hk]
	return v, ok
}

// Set inserts or updates a key, preserving insertion order for new keys.
// Reports false if the key is unhashable.
func (d *DictObject) Set(k, v Value) bool {
	hk, ok := hashKey(k)
	if !ok {
		return false
	}
	if _, exists := d.entries[hk]; !exists {
		d.Keys = append(d.Keys, k)
	}
	d.entries[hk] = v
	return true
}

// Len returns the number of entries.
func (d *DictObject) Len() int { return len(d.entries) }

// Fun is a function value: either a user function (Params/Body/Env set) or
// a native builtin (Native set). Arity < 0 on a native means variadic.
type Fun struct {
	Name   string
	Params []string
	Body   S
	Env    *Env // defining scope, captured for lexical closure
	Native func(ev *evaluator, args []Value) Value
	Arity  int

	defPath NodePath // AST path of Body at definition, for error blame
}

////////////////////////////////////////////////////////////////////////////////
//                                 ENVIRONMENTS
////////////////////////////////////////////////////////////////////////////////

// Env is one frame of the lexical scope chain. A sealed frame (the builtin
// core) is readable but never rebound by Set, so `len = 5` shadows the
// builtin in the writer's scope instead of destroying it for everyone.
type Env struct {
	parent *Env
	table  map[string]Value
	sealed bool
}

// NewEnv creates a frame chained to parent (nil for the root).
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[string]Value)}
}

// Get resolves a name through the chain.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.table[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Define binds a name in this frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) { e.table[name] = v }

// Set rebinds the nearest existing binding of name; reports false when the
// name is bound nowhere in the chain.
func (e *Env) Set(name string, v Value) bool {
	for env := e; env != nil; env = env.parent {
		if env.sealed {
			return false
		}
		if _, ok := env.table[name]; ok {
			env.table[name] = v
			return true
		}
	}
	return false
}

////////////////////////////////////////////////////////////////////////////////
//                                  INTERPRETER
////////////////////////////////////////////////////////////////////////////////

// Interpreter owns the scope chain and output stream for a sequence of runs.
// Core holds the builtins and is never written by programs; Global is where
// RunPersistent accumulates REPL state.
type Interpreter struct {
	Core   *Env
	Global *Env
	Out    io.Writer
}

// NewInterpreter builds an interpreter writing to stdout. Replace Out to
// capture output.
func NewInterpreter() *Interpreter {
	ip := &Interpreter{Out: os.Stdout}
	ip.Core = NewEnv(nil)
	ip.Core.sealed = true
	ip.Global = NewEnv(ip.Core)
	installBuiltins(ip.Core)
	return ip
}

// Parse returns the AST of src without evaluating it.
func (ip *Interpreter) Parse(src string) (S, error) {
	return ParseSExpr(src)
}

// Run parses and evaluates src in a throwaway child of Global: assignments
// and definitions do not survive the call. Returns the value of the last
// statement (False for an empty program) or the run's terminal error.
func (ip *Interpreter) Run(src string) (Value, error) {
	return ip.runIn(src, NewEnv(ip.Global))
}

// RunPersistent is Run with state: bindings land in Global and remain
// visible to later calls. This is the REPL entry point.
func (ip *Interpreter) RunPersistent(src string) (Value, error) {
	return ip.runIn(src, ip.Global)
}

func (ip *Interpreter) runIn(src string, env *Env) (Value, error) {
	ast, spans, err := ParseSExprWithSpans(src)
	if err != nil {
		return Value{}, err
	}
	return ip.evalRoot(ast, spans, src, env)
}

// EvalAST evaluates a pre-built AST in env (Global when env is nil). No
// source is available, so diagnostics carry no position.
func (ip *Interpreter) EvalAST(ast S, env *Env) (Value, error) {
	if env == nil {
		env = ip.Global
	}
	return ip.evalRoot(ast, nil, "", env)
}

// RunFile reads and runs a script, wrapping any error with a caret snippet.
func (ip *Interpreter) RunFile(path string) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Value{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	src := string(data)
	v, rerr := ip.Run(src)
	if rerr != nil {
		return Value{}, WrapErrorWithSource(rerr, src)
	}
	return v, nil
}
