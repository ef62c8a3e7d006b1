// printer.go — canonical rendering of runtime values.
//
// One rendering serves print{}, str{} and dict-key display, so tests can
// compare output lines literally. Strings print bare at the top level but
// quoted inside containers, which keeps `print{"hi"}` natural while still
// making `["a", "b"]` unambiguous.
package pain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue renders v canonically. quoted controls whether a top-level
// string gets quotes; container elements are always quoted. Containers can
// alias themselves, so rendering tracks the objects on the current path and
// prints a cycle as [...] or {...} instead of recursing forever.
func FormatValue(v Value, quoted bool) string {
	return formatValue(v, quoted, make(map[any]bool))
}

func formatValue(v Value, quoted bool, onPath map[any]bool) string {
	switch v.Tag {
	case VTBool:
		if v.AsBool() {
			return "True"
		}
		return "False"

	case VTInt:
		return strconv.FormatInt(v.AsInt(), 10)

	case VTFloat:
		return formatFloat(v.AsFloat())

	case VTStr:
		if quoted {
			return strconv.Quote(v.AsStr())
		}
		return v.AsStr()

	case VTList:
		lo := v.AsList()
		if onPath[lo] {
			return "[...]"
		}
		onPath[lo] = true
		parts := make([]string, len(lo.Items))
		for i, it := range lo.Items {
			parts[i] = formatValue(it, true, onPath)
		}
		delete(onPath, lo)
		return "[" + strings.Join(parts, ", ") + "]"

	case VTDict:
		d := v.AsDict()
		if onPath[d] {
			return "{...}"
		}
		onPath[d] = true
		parts := make([]string, 0, len(d.Keys))
		for _, k := range d.Keys {
			val, _ := d.Get(k)
			parts = append(parts, formatValue(k, true, onPath)+": "+formatValue(val, true, onPath))
		}
		delete(onPath, d)
		return "{" + strings.Join(parts, ", ") + "}"

	case VTFun:
		fn := v.AsFun()
		if fn.Name != "" {
			return fmt.Sprintf("<function %s>", fn.Name)
		}
		return "<function>"
	}
	return "<unknown>"
}

// formatFloat renders shortest-roundtrip, keeping a ".0" marker on integral
// values so floats stay visually distinct from ints.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") { // n/N guards NaN and Inf spellings
		s += ".0"
	}
	return s
}
