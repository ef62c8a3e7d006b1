// interpreter_ops.go — value-model operations and builtin functions.
//
// Every (type, operation) pair the language declares is implemented here;
// anything outside the declared table raises a TypeError naming the type and
// the operation. The fail* helpers panic a *Diagnostic that the evaluator's
// recover boundary (interpreter_exec.go) positions and returns to the host.
//
// The conversion builtins implement the declared source table exactly:
//
//	bool{}  ← str                     ("True"/"False" only)
//	int{}   ← float (truncates), str
//	float{} ← int, str
//	str{}   ← int, float, list, dict  (canonical rendering)
//
// Identity conversions are not in the table and fail like any other
// undeclared pair.
package pain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ─────────────────────────────── failure helpers ────────────────────────────

func failName(name string) {
	panic(&Diagnostic{Kind: DiagName, Msg: fmt.Sprintf("name %q is not defined", name)})
}

func failType(msg string) {
	panic(&Diagnostic{Kind: DiagType, Msg: msg})
}

func failArity(msg string) {
	panic(&Diagnostic{Kind: DiagArity, Msg: msg})
}

func failDivision(msg string) {
	panic(&Diagnostic{Kind: DiagDivision, Msg: msg})
}

func failConversion(msg string) {
	panic(&Diagnostic{Kind: DiagConversion, Msg: msg})
}

func failValue(msg string) {
	panic(&Diagnostic{Kind: DiagValue, Msg: msg})
}

func failParseShape(msg string) {
	panic(&Diagnostic{Kind: DiagParse, Msg: msg})
}

// ───────────────────────────── truthiness, negate ───────────────────────────

// truthy implements the control-flow boolean rule: Bool directly, numbers
// nonzero, containers nonempty, functions always true.
func truthy(v Value) bool {
	switch v.Tag {
	case VTBool:
		return v.AsBool()
	case VTInt:
		return v.AsInt() != 0
	case VTFloat:
		return v.AsFloat() != 0
	case VTStr:
		return v.AsStr() != ""
	case VTList:
		return len(v.AsList().Items) > 0
	case VTDict:
		return v.AsDict().Len() > 0
	}
	return true
}

func negate(v Value) Value {
	switch v.Tag {
	case VTInt:
		return NewIntValue(-v.AsInt())
	case VTFloat:
		return NewFloatValue(-v.AsFloat())
	}
	failType(fmt.Sprintf("%s does not support unary minus", v.Tag))
	return Value{}
}

// ─────────────────────────────── binary dispatch ────────────────────────────

func binaryOp(op string, a, b Value) Value {
	switch op {
	case "+":
		return opAdd(a, b)
	case "-":
		return opSub(a, b)
	case "*":
		return opMul(a, b)
	case "/":
		return opDiv(a, b)
	case "%":
		return opMod(a, b)
	case "==":
		return NewBoolValue(valueEquals(a, b))
	case "!=":
		return NewBoolValue(!valueEquals(a, b))
	case "<", "<=", ">", ">=":
		return opCompare(op, a, b)
	}
	failType(fmt.Sprintf("unknown operator %q", op))
	return Value{}
}

func bothInts(a, b Value) bool { return a.Tag == VTInt && b.Tag == VTInt }

func numericPair(a, b Value) (float64, float64, bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return af, bf, aok && bok
}

func asFloat(v Value) (float64, bool) {
	switch v.Tag {
	case VTInt:
		return float64(v.AsInt()), true
	case VTFloat:
		return v.AsFloat(), true
	}
	return 0, false
}

func opAdd(a, b Value) Value {
	if bothInts(a, b) {
		return NewIntValue(a.AsInt() + b.AsInt())
	}
	if af, bf, ok := numericPair(a, b); ok {
		return NewFloatValue(af + bf)
	}
	if a.Tag == VTStr && b.Tag == VTStr {
		return NewStrValue(a.AsStr() + b.AsStr())
	}
	if a.Tag == VTList && b.Tag == VTList {
		items := make([]Value, 0, len(a.AsList().Items)+len(b.AsList().Items))
		items = append(items, a.AsList().Items...)
		items = append(items, b.AsList().Items...)
		return NewListValue(items)
	}
	failBinop("+", a, b)
	return Value{}
}

func opSub(a, b Value) Value {
	if bothInts(a, b) {
		return NewIntValue(a.AsInt() - b.AsInt())
	}
	if af, bf, ok := numericPair(a, b); ok {
		return NewFloatValue(af - bf)
	}
	failBinop("-", a, b)
	return Value{}
}

func opMul(a, b Value) Value {
	if bothInts(a, b) {
		return NewIntValue(a.AsInt() * b.AsInt())
	}
	if af, bf, ok := numericPair(a, b); ok {
		return NewFloatValue(af * bf)
	}
	// Repetition commutes: "ab" * 3 and 3 * "ab" both work.
	if a.Tag == VTStr || a.Tag == VTList {
		return repeatValue(a, b)
	}
	if b.Tag == VTStr || b.Tag == VTList {
		return repeatValue(b, a)
	}
	failBinop("*", a, b)
	return Value{}
}

func repeatValue(v, count Value) Value {
	if count.Tag == VTFloat {
		failValue("repeat count must be a whole number")
	}
	if count.Tag != VTInt {
		failBinop("*", v, count)
	}
	n := count.AsInt()
	if n < 0 {
		failValue("repeat count cannot be negative")
	}
	if v.Tag == VTStr {
		return NewStrValue(strings.Repeat(v.AsStr(), int(n)))
	}
	src := v.AsList().Items
	items := make([]Value, 0, len(src)*int(n))
	for i := int64(0); i < n; i++ {
		items = append(items, src...)
	}
	return NewListValue(items)
}

func opDiv(a, b Value) Value {
	if bothInts(a, b) {
		if b.AsInt() == 0 {
			failDivision("division by zero")
		}
		return NewIntValue(a.AsInt() / b.AsInt()) // truncates toward zero
	}
	if af, bf, ok := numericPair(a, b); ok {
		if bf == 0 {
			failDivision("division by zero")
		}
		return NewFloatValue(af / bf)
	}
	failBinop("/", a, b)
	return Value{}
}

func opMod(a, b Value) Value {
	if bothInts(a, b) {
		if b.AsInt() == 0 {
			failDivision("modulus by zero")
		}
		return NewIntValue(a.AsInt() % b.AsInt())
	}
	if af, bf, ok := numericPair(a, b); ok {
		if bf == 0 {
			failDivision("modulus by zero")
		}
		return NewFloatValue(floatMod(af, bf))
	}
	failBinop("%", a, b)
	return Value{}
}

// floatMod keeps the truncated-division identity a == (a/b)*b + a%b without
// pulling in math.Mod's sign conventions.
func floatMod(a, b float64) float64 {
	return a - float64(int64(a/b))*b
}

func opCompare(op string, a, b Value) Value {
	var cmp int
	switch {
	case a.Tag == VTStr && b.Tag == VTStr:
		cmp = strings.Compare(a.AsStr(), b.AsStr())
	default:
		af, bf, ok := numericPair(a, b)
		if !ok {
			failBinop(op, a, b)
		}
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	}
	switch op {
	case "<":
		return NewBoolValue(cmp < 0)
	case "<=":
		return NewBoolValue(cmp <= 0)
	case ">":
		return NewBoolValue(cmp > 0)
	default:
		return NewBoolValue(cmp >= 0)
	}
}

func failBinop(op string, a, b Value) {
	if a.Tag == b.Tag {
		failType(fmt.Sprintf("%s does not support %s", a.Tag, op))
	}
	failType(fmt.Sprintf("%s does not support %s with %s", a.Tag, op, b.Tag))
}

// ──────────────────────────────── equality ──────────────────────────────────

// valueEquals is deep equality. Numeric tags compare by value across int and
// float; any other cross-tag comparison is false rather than an error.
// Containers can alias themselves; a pair of objects already under
// comparison on the current path is taken as equal, so cyclic structures
// terminate instead of overflowing the stack.
func valueEquals(a, b Value) bool {
	return valueEqualsOn(a, b, make(map[[2]any]bool))
}

func valueEqualsOn(a, b Value, onPath map[[2]any]bool) bool {
	if a.Tag != b.Tag {
		if af, bf, ok := numericPair(a, b); ok {
			return af == bf
		}
		return false
	}
	switch a.Tag {
	case VTBool:
		return a.AsBool() == b.AsBool()
	case VTInt:
		return a.AsInt() == b.AsInt()
	case VTFloat:
		return a.AsFloat() == b.AsFloat()
	case VTStr:
		return a.AsStr() == b.AsStr()
	case VTList:
		pair := [2]any{a.Data, b.Data}
		if onPath[pair] {
			return true
		}
		onPath[pair] = true
		defer delete(onPath, pair)
		xs, ys := a.AsList().Items, b.AsList().Items
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !valueEqualsOn(xs[i], ys[i], onPath) {
				return false
			}
		}
		return true
	case VTDict:
		pair := [2]any{a.Data, b.Data}
		if onPath[pair] {
			return true
		}
		onPath[pair] = true
		defer delete(onPath, pair)
		da, db := a.AsDict(), b.AsDict()
		if da.Len() != db.Len() {
			return false
		}
		for _, k := range da.Keys {
			va, _ := da.Get(k)
			vb, ok := db.Get(k)
			if !ok || !valueEqualsOn(va, vb, onPath) {
				return false
			}
		}
		return true
	case VTFun:
		return a.AsFun() == b.AsFun()
	}
	return false
}

// ──────────────────────────────── indexing ──────────────────────────────────

// normIndex resolves an int index against a length, counting negatives from
// the end. Reports false when out of range.
func normIndex(i int64, length int) (int, bool) {
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, false
	}
	return int(i), true
}

func indexGet(obj, key Value) Value {
	switch obj.Tag {
	case VTStr:
		if key.Tag != VTInt {
			failType(fmt.Sprintf("str index must be int, not %s", key.Tag))
		}
		runes := []rune(obj.AsStr())
		i, ok := normIndex(key.AsInt(), len(runes))
		if !ok {
			failValue(fmt.Sprintf("str index %d out of range", key.AsInt()))
		}
		return NewStrValue(string(runes[i]))

	case VTList:
		if key.Tag != VTInt {
			failType(fmt.Sprintf("list index must be int, not %s", key.Tag))
		}
		items := obj.AsList().Items
		i, ok := normIndex(key.AsInt(), len(items))
		if !ok {
			failValue(fmt.Sprintf("list index %d out of range", key.AsInt()))
		}
		return items[i]

	case VTDict:
		if _, ok := hashKey(key); !ok {
			failValue(fmt.Sprintf("%s is not a hashable dict key", key.Tag))
		}
		v, ok := obj.AsDict().Get(key)
		if !ok {
			failValue(fmt.Sprintf("dict has no key %s", FormatValue(key, true)))
		}
		return v
	}
	failType(fmt.Sprintf("%s does not support indexing", obj.Tag))
	return Value{}
}

// indexSet mutates a list element or dict entry in place. Strings take the
// separate strIndexSet path since they rebind rather than mutate.
func indexSet(obj, key, v Value) {
	switch obj.Tag {
	case VTList:
		if key.Tag != VTInt {
			failType(fmt.Sprintf("list index must be int, not %s", key.Tag))
		}
		items := obj.AsList().Items
		i, ok := normIndex(key.AsInt(), len(items))
		if !ok {
			failValue(fmt.Sprintf("list index %d out of range", key.AsInt()))
		}
		items[i] = v
		return

	case VTDict:
		if !obj.AsDict().Set(key, v) {
			failValue(fmt.Sprintf("%s is not a hashable dict key", key.Tag))
		}
		return
	}
	failType(fmt.Sprintf("%s does not support index assignment", obj.Tag))
}

// strIndexSet returns the string with one character replaced. The new value
// must itself be a single-character str.
func strIndexSet(obj, key, v Value) Value {
	if key.Tag != VTInt {
		failType(fmt.Sprintf("str index must be int, not %s", key.Tag))
	}
	if v.Tag != VTStr {
		failType(fmt.Sprintf("cannot assign %s into a str", v.Tag))
	}
	if utf8.RuneCountInString(v.AsStr()) != 1 {
		failValue("str index assignment needs a single character")
	}
	runes := []rune(obj.AsStr())
	i, ok := normIndex(key.AsInt(), len(runes))
	if !ok {
		failValue(fmt.Sprintf("str index %d out of range", key.AsInt()))
	}
	runes[i] = []rune(v.AsStr())[0]
	return NewStrValue(string(runes))
}

// ─────────────────────────────── conversions ────────────────────────────────

func convBool(v Value) Value {
	if v.Tag == VTStr {
		switch v.AsStr() {
		case "True":
			return NewBoolValue(true)
		case "False":
			return NewBoolValue(false)
		}
		failConversion(fmt.Sprintf("cannot convert %q to bool", v.AsStr()))
	}
	failConversion(fmt.Sprintf("cannot convert %s to bool", v.Tag))
	return Value{}
}

func convInt(v Value) Value {
	switch v.Tag {
	case VTFloat:
		f := v.AsFloat()
		// int64(f) is only defined when the truncated value fits.
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			failConversion(fmt.Sprintf("%s does not fit in an int", formatFloat(f)))
		}
		return NewIntValue(int64(f)) // truncates
	case VTStr:
		n, err := strconv.ParseInt(strings.TrimSpace(v.AsStr()), 10, 64)
		if err != nil {
			failConversion(fmt.Sprintf("cannot convert %q to int", v.AsStr()))
		}
		return NewIntValue(n)
	}
	failConversion(fmt.Sprintf("cannot convert %s to int", v.Tag))
	return Value{}
}

func convFloat(v Value) Value {
	switch v.Tag {
	case VTInt:
		return NewFloatValue(float64(v.AsInt()))
	case VTStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsStr()), 64)
		if err != nil {
			failConversion(fmt.Sprintf("cannot convert %q to float", v.AsStr()))
		}
		return NewFloatValue(f)
	}
	failConversion(fmt.Sprintf("cannot convert %s to float", v.Tag))
	return Value{}
}

func convStr(v Value) Value {
	switch v.Tag {
	case VTInt, VTFloat, VTList, VTDict:
		return NewStrValue(FormatValue(v, false))
	}
	failConversion(fmt.Sprintf("cannot convert %s to str", v.Tag))
	return Value{}
}

// ──────────────────────────────── builtins ──────────────────────────────────

// installBuiltins populates the core scope. Builtins live one frame above
// Global, so user code can shadow a name locally but never destroy the
// underlying binding.
func installBuiltins(core *Env) {
	native := func(name string, arity int, fn func(ev *evaluator, args []Value) Value) {
		core.Define(name, NewFunValue(&Fun{Name: name, Arity: arity, Native: fn}))
	}

	native("print", -1, func(ev *evaluator, args []Value) Value {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = FormatValue(a, false)
		}
		fmt.Fprintln(ev.ip.Out, strings.Join(parts, " "))
		return NewBoolValue(false)
	})

	native("len", 1, func(ev *evaluator, args []Value) Value {
		switch args[0].Tag {
		case VTStr:
			return NewIntValue(int64(utf8.RuneCountInString(args[0].AsStr())))
		case VTList:
			return NewIntValue(int64(len(args[0].AsList().Items)))
		case VTDict:
			return NewIntValue(int64(args[0].AsDict().Len()))
		}
		failType(fmt.Sprintf("%s does not support len", args[0].Tag))
		return Value{}
	})

	native("bool", 1, func(ev *evaluator, args []Value) Value { return convBool(args[0]) })
	native("int", 1, func(ev *evaluator, args []Value) Value { return convInt(args[0]) })
	native("float", 1, func(ev *evaluator, args []Value) Value { return convFloat(args[0]) })
	native("str", 1, func(ev *evaluator, args []Value) Value { return convStr(args[0]) })

	native("keys", 1, func(ev *evaluator, args []Value) Value {
		if args[0].Tag != VTDict {
			failType(fmt.Sprintf("%s does not support keys", args[0].Tag))
		}
		d := args[0].AsDict()
		return NewListValue(append([]Value{}, d.Keys...))
	})

	native("values", 1, func(ev *evaluator, args []Value) Value {
		if args[0].Tag != VTDict {
			failType(fmt.Sprintf("%s does not support values", args[0].Tag))
		}
		d := args[0].AsDict()
		vals := make([]Value, 0, len(d.Keys))
		for _, k := range d.Keys {
			v, _ := d.Get(k)
			vals = append(vals, v)
		}
		return NewListValue(vals)
	})

	native("min", 2, func(ev *evaluator, args []Value) Value {
		if truthy(opCompare("<", args[0], args[1])) {
			return args[0]
		}
		return args[1]
	})

	native("max", 2, func(ev *evaluator, args []Value) Value {
		if truthy(opCompare(">", args[0], args[1])) {
			return args[0]
		}
		return args[1]
	})

	// There is no dict literal syntax; these constructors are the way to
	// start an empty container.
	native("list", 0, func(ev *evaluator, args []Value) Value { return NewListValue(nil) })
	native("dict", 0, func(ev *evaluator, args []Value) Value { return NewDictValue() })
}
