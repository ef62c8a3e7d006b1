// interpreter_test.go
package pain

import (
	"bytes"
	"strings"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func evalSrc(t *testing.T, src string) Value {
	t.Helper()
	ip := NewInterpreter()
	ip.Out = &bytes.Buffer{}
	v, err := ip.Run(src)
	if err != nil {
		t.Fatalf("Run error: %v\nsource:\n%s", err, src)
	}
	return v
}

func runOut(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	ip := NewInterpreter()
	ip.Out = &buf
	if _, err := ip.Run(src); err != nil {
		t.Fatalf("Run error: %v\nsource:\n%s", err, src)
	}
	return buf.String()
}

func wantOut(t *testing.T, src string, lines ...string) {
	t.Helper()
	got := runOut(t, src)
	want := strings.Join(lines, "\n")
	if len(lines) > 0 {
		want += "\n"
	}
	if got != want {
		t.Fatalf("\nsource:\n%s\nwant output:\n%q\ngot:\n%q", src, want, got)
	}
}

func wantErrKind(t *testing.T, src string, kind DiagKind) *Diagnostic {
	t.Helper()
	ip := NewInterpreter()
	ip.Out = &bytes.Buffer{}
	_, err := ip.Run(src)
	if err == nil {
		t.Fatalf("want %s for %q, got no error", kind.Header(), src)
	}
	d, ok := err.(*Diagnostic)
	if !ok {
		t.Fatalf("want *Diagnostic for %q, got %T: %v", src, err, err)
	}
	if d.Kind != kind {
		t.Fatalf("want %s for %q, got %v", kind.Header(), src, d)
	}
	return d
}

func wantInt(t *testing.T, v Value, n int64) {
	t.Helper()
	if v.Tag != VTInt || v.AsInt() != n {
		t.Fatalf("want int %d, got %#v", n, v)
	}
}

func wantFloat(t *testing.T, v Value, f float64) {
	t.Helper()
	if v.Tag != VTFloat || v.AsFloat() != f {
		t.Fatalf("want float %g, got %#v", f, v)
	}
}

func wantStr(t *testing.T, v Value, s string) {
	t.Helper()
	if v.Tag != VTStr || v.AsStr() != s {
		t.Fatalf("want str %q, got %#v", s, v)
	}
}

func wantBool(t *testing.T, v Value, b bool) {
	t.Helper()
	if v.Tag != VTBool || v.AsBool() != b {
		t.Fatalf("want bool %v, got %#v", b, v)
	}
}

// --- arithmetic ------------------------------------------------------------

func Test_Eval_IntArithmetic(t *testing.T) {
	wantInt(t, evalSrc(t, `2 + 3 * 4`), 14)
	wantInt(t, evalSrc(t, `10 - 4 - 3`), 3)
	wantInt(t, evalSrc(t, `7 / 2`), 3)
	wantInt(t, evalSrc(t, `-7 / 2`), -3) // truncates toward zero
	wantInt(t, evalSrc(t, `7 % 3`), 1)
	wantInt(t, evalSrc(t, `-5`), -5)
}

func Test_Eval_DivModIdentity(t *testing.T) {
	// a == (a/b)*b + a%b for the language's own div and mod.
	pairs := [][2]int64{{7, 3}, {-7, 3}, {7, -3}, {-7, -3}, {12, 4}, {1, 5}}
	for _, p := range pairs {
		src := strings.NewReplacer(
			"A", itoa(p[0]), "B", itoa(p[1]),
		).Replace(`a = A | b = B | a == (a / b) * b + a % b`)
		wantBool(t, evalSrc(t, src), true)
	}
}

func itoa(n int64) string {
	return FormatValue(NewIntValue(n), false)
}

func Test_Eval_FloatPromotion(t *testing.T) {
	wantFloat(t, evalSrc(t, `1 + 2.5`), 3.5)
	wantFloat(t, evalSrc(t, `2.0 * 3`), 6.0)
	wantFloat(t, evalSrc(t, `7.0 / 2`), 3.5)
	wantFloat(t, evalSrc(t, `1.5 - 0.5`), 1.0)
}

func Test_Eval_DivisionByZero(t *testing.T) {
	wantErrKind(t, `1 / 0`, DiagDivision)
	wantErrKind(t, `1 % 0`, DiagDivision)
	wantErrKind(t, `1.5 / 0.0`, DiagDivision)
	wantErrKind(t, `1.5 % 0.0`, DiagDivision)
}

func Test_Eval_UndeclaredOperations(t *testing.T) {
	wantErrKind(t, `True + True`, DiagType)
	wantErrKind(t, `"a" - "b"`, DiagType)
	wantErrKind(t, `"a" / 2`, DiagType)
	wantErrKind(t, `d = dict{} | d + d`, DiagType)
	wantErrKind(t, `1 + "x"`, DiagType)
	wantErrKind(t, `-"x"`, DiagType)
}

// --- strings and lists -----------------------------------------------------

func Test_Eval_Concat(t *testing.T) {
	wantStr(t, evalSrc(t, `"foo" + "bar"`), "foobar")
	wantOut(t, `print{[1, 2] + [3]}`, `[1, 2, 3]`)
}

func Test_Eval_Repetition(t *testing.T) {
	wantStr(t, evalSrc(t, `"ab" * 3`), "ababab")
	wantStr(t, evalSrc(t, `3 * "ab"`), "ababab")
	wantStr(t, evalSrc(t, `"ab" * 0`), "")
	wantOut(t, `print{[1, 2] * 2}`, `[1, 2, 1, 2]`)
	wantOut(t, `print{[1] * 0}`, `[]`)
	wantErrKind(t, `"ab" * -1`, DiagValue)
	wantErrKind(t, `[1] * -2`, DiagValue)
	wantErrKind(t, `"ab" * 1.5`, DiagValue)
}

func Test_Eval_Len(t *testing.T) {
	wantInt(t, evalSrc(t, `len{"héllo"}`), 5) // runes, not bytes
	wantInt(t, evalSrc(t, `len{""}`), 0)
	wantInt(t, evalSrc(t, `len{(1, 2, 3)}`), 3)
	wantInt(t, evalSrc(t, `d = dict{} | d["k"] = 1 | len{d}`), 1)
	wantErrKind(t, `len{5}`, DiagType)
}

// --- comparisons and equality ----------------------------------------------

func Test_Eval_Comparisons(t *testing.T) {
	wantBool(t, evalSrc(t, `2 < 3`), true)
	wantBool(t, evalSrc(t, `2 >= 3`), false)
	wantBool(t, evalSrc(t, `2 <= 2.0`), true)
	wantBool(t, evalSrc(t, `"apple" < "banana"`), true)
	wantErrKind(t, `"a" < 1`, DiagType)
	wantErrKind(t, `(1, 2) < (3, 4)`, DiagType)
}

func Test_Eval_Equality(t *testing.T) {
	wantBool(t, evalSrc(t, `1 == 1.0`), true)
	wantBool(t, evalSrc(t, `1 != 2`), true)
	wantBool(t, evalSrc(t, `"x" == "x"`), true)
	wantBool(t, evalSrc(t, `(1, 2) == [1, 2]`), true)
	wantBool(t, evalSrc(t, `(1, 2) == (1, 3)`), false)
	// Cross-tag comparison is false, not an error.
	wantBool(t, evalSrc(t, `1 == "1"`), false)
	wantBool(t, evalSrc(t, `True == 1`), false)
}

func Test_Eval_CyclicEquality(t *testing.T) {
	// Self-referential containers must compare without blowing the stack;
	// a pair already under comparison counts as equal.
	wantBool(t, evalSrc(t, `a = [1] | a[0] = a | a == a`), true)
	wantBool(t, evalSrc(t, `a = [1] | a[0] = a | b = [1] | b[0] = b | a == b`), true)
	wantBool(t, evalSrc(t, `a = [1] | a[0] = a | b = [1] | b[0] = (b, 2) | a == b`), false)
	src := `
a = dict{} | a["self"] = a
b = dict{} | b["self"] = b
a == b
`
	wantBool(t, evalSrc(t, src), true)
}

func Test_Eval_DeepDictEquality(t *testing.T) {
	src := `
a = dict{} | a["x"] = (1, 2)
b = dict{} | b["x"] = [1, 2]
a == b
`
	wantBool(t, evalSrc(t, src), true)
}

// --- booleans --------------------------------------------------------------

func Test_Eval_ShortCircuit(t *testing.T) {
	// The right side must never be evaluated once the left side decides.
	wantBool(t, evalSrc(t, `False and undefined_call{}`), false)
	wantBool(t, evalSrc(t, `True or undefined_call{}`), true)
	wantErrKind(t, `True and undefined_call{}`, DiagName)
}

func Test_Eval_BooleanOperatorsReturnBool(t *testing.T) {
	wantBool(t, evalSrc(t, `1 and "x"`), true)
	wantBool(t, evalSrc(t, `0 or ""`), false)
	wantBool(t, evalSrc(t, `not 0`), true)
	wantBool(t, evalSrc(t, `not (1, 2)`), false)
}

func Test_Eval_Truthiness(t *testing.T) {
	wantOut(t, `if 0.0 [ print{"yes"} ] else [ print{"no"} ]`, "no")
	wantOut(t, `if "x" [ print{"yes"} ]`, "yes")
	wantOut(t, `d = dict{} | if d [ print{"yes"} ] else [ print{"no"} ]`, "no")
}

// --- control flow ----------------------------------------------------------

func Test_Eval_ForOverList(t *testing.T) {
	wantOut(t, `for x in (1, 2, 3) [ print{x} ]`, "1", "2", "3")
}

func Test_Eval_ForOverString(t *testing.T) {
	wantOut(t, `for c in "abc" [ print{c} ]`, "a", "b", "c")
}

func Test_Eval_ForOverDictInsertionOrder(t *testing.T) {
	src := `
d = dict{}
d["b"] = 2 | d["a"] = 1 | d["c"] = 3
for k in d [ print{k, d[k]} ]
`
	wantOut(t, src, "b 2", "a 1", "c 3")
}

func Test_Eval_ForSnapshotsIterable(t *testing.T) {
	// Appending during iteration must not extend the loop.
	src := `
xs = [1, 2]
n = 0
for x in xs [
    xs = xs + [99]
    n = n + 1
]
n
`
	wantInt(t, evalSrc(t, src), 2)
}

func Test_Eval_ForRejectsNonIterable(t *testing.T) {
	wantErrKind(t, `for x in 5 [ print{x} ]`, DiagType)
}

func Test_Eval_WhileZeroIterations(t *testing.T) {
	wantOut(t, `while False [ print{"never"} ]`)
}

func Test_Eval_WhileCountdown(t *testing.T) {
	src := `
n = 3
while n > 0 [
    print{n}
    n = n - 1
]
`
	wantOut(t, src, "3", "2", "1")
}

func Test_Eval_IfElseChain(t *testing.T) {
	src := `
def grade(n) [
    if n >= 90 [ "A" ]
    else if n >= 80 [ "B" ]
    else [ "C" ]
]
print{grade{95}, grade{85}, grade{50}}
`
	wantOut(t, src, "A B C")
}

// --- scoping ---------------------------------------------------------------

func Test_Eval_IfDoesNotOpenScope(t *testing.T) {
	// A variable assigned inside an if block is visible after it.
	wantInt(t, evalSrc(t, `if True [ x = 5 ] | x`), 5)
	wantInt(t, evalSrc(t, `n = 0 | while n < 3 [ n = n + 1 | y = n ] | y`), 3)
}

func Test_Eval_ForLoopVariableScoped(t *testing.T) {
	wantErrKind(t, `for x in (1, 2) [ x ] | x`, DiagName)
}

func Test_Eval_FunctionScopeIsolated(t *testing.T) {
	src := `
x = 1
def f() [ x = 2 | x ]
f{}
x
`
	// Assignment inside f rebinds the outer x it can see.
	wantInt(t, evalSrc(t, src), 2)

	src2 := `
def f() [ local = 42 ]
f{}
local
`
	wantErrKind(t, src2, DiagName)
}

func Test_Eval_Closure(t *testing.T) {
	src := `
def counter() [
    n = 0
    def tick() [ n = n + 1 | n ]
    tick
]
c = counter{}
c{} | c{} | c{}
`
	wantInt(t, evalSrc(t, src), 3)
}

// --- functions -------------------------------------------------------------

func Test_Eval_FunctionReturnsLastExpression(t *testing.T) {
	wantInt(t, evalSrc(t, `def f() [ 1 | 2 | 3 ] | f{}`), 3)
	wantBool(t, evalSrc(t, `def empty() [ ] | empty{}`), false)
}

func Test_Eval_Recursion(t *testing.T) {
	src := `
def fact(n) [
    if n <= 1 [ 1 ]
    else [ n * fact{n - 1} ]
]
fact{6}
`
	wantInt(t, evalSrc(t, src), 720)
}

func Test_Eval_RunawayRecursionDiagnosed(t *testing.T) {
	// Unbounded recursion must surface as a diagnostic, not kill the host.
	d := wantErrKind(t, `def f(n) [ f{n + 1} ] | f{0}`, DiagValue)
	if !strings.Contains(d.Msg, "depth") {
		t.Fatalf("want a call-depth message, got %q", d.Msg)
	}
}

func Test_Eval_FunctionsFirstClass(t *testing.T) {
	src := `
def twice(f, x) [ f{f{x}} ]
def inc(n) [ n + 1 ]
twice{inc, 5}
`
	wantInt(t, evalSrc(t, src), 7)
}

func Test_Eval_ArityMismatch(t *testing.T) {
	wantErrKind(t, `def f(a, b) [ a ] | f{1}`, DiagArity)
	wantErrKind(t, `def f(a, b) [ a ] | f{1, 2, 3}`, DiagArity)
	wantErrKind(t, `len{1, 2}`, DiagArity)
}

func Test_Eval_CallingNonFunction(t *testing.T) {
	wantErrKind(t, `x = 5 | x{}`, DiagType)
}

func Test_Eval_UndefinedName(t *testing.T) {
	wantErrKind(t, `nope`, DiagName)
	wantErrKind(t, `nope{1}`, DiagName)
}

// --- indexing --------------------------------------------------------------

func Test_Eval_StringIndexing(t *testing.T) {
	wantStr(t, evalSrc(t, `"hello"[1]`), "e")
	wantStr(t, evalSrc(t, `"hello"[-1]`), "o")
	wantErrKind(t, `"hi"[5]`, DiagValue)
	wantErrKind(t, `"hi"["x"]`, DiagType)
}

func Test_Eval_ListIndexing(t *testing.T) {
	wantInt(t, evalSrc(t, `xs = [10, 20, 30] | xs[1]`), 20)
	wantInt(t, evalSrc(t, `xs = [10, 20, 30] | xs[-1]`), 30)
	wantErrKind(t, `xs = [1] | xs[3]`, DiagValue)
	wantErrKind(t, `xs = [1] | xs[1.0]`, DiagType)
}

func Test_Eval_ListIndexAssignment(t *testing.T) {
	wantOut(t, `xs = [1, 2, 3] | xs[1] = 99 | print{xs}`, `[1, 99, 3]`)
	wantErrKind(t, `xs = [1] | xs[5] = 0`, DiagValue)
}

func Test_Eval_ListsShareByReference(t *testing.T) {
	wantOut(t, `a = [1, 2] | b = a | b[0] = 99 | print{a}`, `[99, 2]`)
}

func Test_Eval_DictOperations(t *testing.T) {
	src := `
d = dict{}
d["name"] = "ada" | d[1] = "one" | d[True] = "yes"
print{d["name"], d[1], d[True]}
`
	wantOut(t, src, "ada one yes")
	wantErrKind(t, `d = dict{} | d["missing"]`, DiagValue)
	wantErrKind(t, `d = dict{} | d[[1]] = 2`, DiagValue)
	wantErrKind(t, `d = dict{} | d[dict{}]`, DiagValue)
}

func Test_Eval_DictIntFloatKeysUnify(t *testing.T) {
	wantStr(t, evalSrc(t, `d = dict{} | d[1] = "x" | d[1.0]`), "x")
}

func Test_Eval_KeysValues(t *testing.T) {
	src := `
d = dict{}
d["b"] = 2 | d["a"] = 1
print{keys{d}}
print{values{d}}
`
	wantOut(t, src, `["b", "a"]`, `[2, 1]`)
	wantErrKind(t, `keys{[1]}`, DiagType)
}

func Test_Eval_StringIndexAssignmentRebinds(t *testing.T) {
	src := `
s = "cat"
t = s
s[0] = "b"
print{s, t}
`
	// s is rebound to a fresh string; t still sees the original.
	wantOut(t, src, "bat cat")
	wantErrKind(t, `s = "cat" | s[0] = "xy"`, DiagValue)
	wantErrKind(t, `"cat"[0] = "b"`, DiagType)
}

func Test_Eval_IndexingUnsupportedType(t *testing.T) {
	wantErrKind(t, `5[0]`, DiagType)
}

// --- conversions -----------------------------------------------------------

func Test_Eval_Conversions(t *testing.T) {
	wantBool(t, evalSrc(t, `bool{"True"}`), true)
	wantBool(t, evalSrc(t, `bool{"False"}`), false)
	wantInt(t, evalSrc(t, `int{3.9}`), 3)
	wantInt(t, evalSrc(t, `int{"42"}`), 42)
	wantFloat(t, evalSrc(t, `float{2}`), 2.0)
	wantFloat(t, evalSrc(t, `float{"2.5"}`), 2.5)
	wantStr(t, evalSrc(t, `str{42}`), "42")
	wantStr(t, evalSrc(t, `str{2.5}`), "2.5")
	wantStr(t, evalSrc(t, `str{(1, 2)}`), "[1, 2]")
	wantStr(t, evalSrc(t, `d = dict{} | d["k"] = 1 | str{d}`), `{"k": 1}`)
}

func Test_Eval_IntConversionRange(t *testing.T) {
	// Floats beyond the int range must not reach Go's undefined int64(f).
	wantErrKind(t, `int{10000000000.0 * 10000000000.0}`, DiagConversion)
	wantErrKind(t, `int{0.0 - 10000000000.0 * 10000000000.0}`, DiagConversion)
	wantInt(t, evalSrc(t, `int{2147483648.0}`), 2147483648)
}

func Test_Eval_HugeFloatDictKey(t *testing.T) {
	// A float key too large to fold into an int still hashes as a float.
	src := `
big = 10000000000.0 * 10000000000.0
d = dict{}
d[big] = "huge"
d[big]
`
	wantStr(t, evalSrc(t, src), "huge")
}

func Test_Eval_ConversionTableIsStrict(t *testing.T) {
	// Only the declared source types convert; everything else, identity
	// included, is a ConversionError.
	for _, src := range []string{
		`bool{1}`, `bool{True}`, `bool{"yes"}`, `bool{(1, 2)}`,
		`int{True}`, `int{"abc"}`, `int{(1, 2)}`, `int{1}`,
		`float{True}`, `float{"x"}`, `float{1.0}`,
		`str{True}`, `str{"s"}`,
	} {
		wantErrKind(t, src, DiagConversion)
	}
}

// --- builtins --------------------------------------------------------------

func Test_Eval_MinMax(t *testing.T) {
	wantInt(t, evalSrc(t, `min{3, 5}`), 3)
	wantInt(t, evalSrc(t, `max{3, 5}`), 5)
	wantFloat(t, evalSrc(t, `min{2.5, 3}`), 2.5)
	wantStr(t, evalSrc(t, `max{"apple", "banana"}`), "banana")
	wantErrKind(t, `min{1, "x"}`, DiagType)
}

func Test_Eval_Constructors(t *testing.T) {
	wantOut(t, `print{list{}}`, `[]`)
	wantOut(t, `print{dict{}}`, `{}`)
	wantErrKind(t, `dict{1}`, DiagArity)
}

func Test_Eval_BuiltinShadowing(t *testing.T) {
	// A user binding shadows the builtin without destroying it.
	src := `
def use() [ len{"abcd"} ]
len = 5
print{len}
`
	wantOut(t, src, "5")
	wantInt(t, evalSrc(t, `def f(len) [ len + 1 ] | f{2}`), 3)
}

// --- print and output ordering ---------------------------------------------

func Test_Eval_PrintCanonicalLiterals(t *testing.T) {
	wantOut(t, `print{True}`, "True")
	wantOut(t, `print{42}`, "42")
	wantOut(t, `print{2.5}`, "2.5")
	wantOut(t, `print{4.0}`, "4.0")
	wantOut(t, `print{"hi"}`, "hi")
	wantOut(t, `print{(1, "a", True)}`, `[1, "a", True]`)
}

func Test_Eval_PrintVariadic(t *testing.T) {
	wantOut(t, `print{1, "two", 3.0}`, "1 two 3.0")
	wantOut(t, `print{}`, "")
}

func Test_Eval_OutputKeptBeforeFailure(t *testing.T) {
	var buf bytes.Buffer
	ip := NewInterpreter()
	ip.Out = &buf
	_, err := ip.Run(`print{"before"} | 1 / 0 | print{"after"}`)
	if err == nil {
		t.Fatalf("want division error")
	}
	if got := buf.String(); got != "before\n" {
		t.Fatalf("output before failure: %q", got)
	}
}

// --- sessions --------------------------------------------------------------

func Test_Eval_RunIsEphemeral(t *testing.T) {
	ip := NewInterpreter()
	ip.Out = &bytes.Buffer{}
	if _, err := ip.Run(`x = 1`); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := ip.Run(`x`); err == nil {
		t.Fatalf("x must not survive Run")
	}
}

func Test_Eval_RunPersistentKeepsState(t *testing.T) {
	ip := NewInterpreter()
	ip.Out = &bytes.Buffer{}
	if _, err := ip.RunPersistent(`x = 1 | def inc(n) [ n + 1 ]`); err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	v, err := ip.RunPersistent(`inc{x}`)
	if err != nil {
		t.Fatalf("second chunk: %v", err)
	}
	wantInt(t, v, 2)
}

// --- diagnostics -----------------------------------------------------------

func Test_Eval_ErrorPositions(t *testing.T) {
	d := wantErrKind(t, "x = 1\ny = 2\nz = x / 0\n", DiagDivision)
	if d.Line != 3 {
		t.Fatalf("want failure on line 3, got %v", d)
	}
}

func Test_Eval_ErrorPositionInsideFunction(t *testing.T) {
	src := "def boom() [\n    1 / 0\n]\nboom{}\n"
	d := wantErrKind(t, src, DiagDivision)
	if d.Line != 2 {
		t.Fatalf("want failure on line 2 (the body), got %v", d)
	}
}

func Test_Eval_LexErrorBlocksEvaluation(t *testing.T) {
	var buf bytes.Buffer
	ip := NewInterpreter()
	ip.Out = &buf
	_, err := ip.Run(`print{"hi"} | ?`)
	if _, ok := err.(*LexError); !ok {
		t.Fatalf("want *LexError, got %T: %v", err, err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing may run when lexing failed, got %q", buf.String())
	}
}
