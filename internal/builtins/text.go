package builtins

import (
	"fmt"
	"strings"

	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/value"
)

var textFunctions = []*evaluator.Builtin{
	{
		Name: "strlen",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeText, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.Int(int64(len(f.Arg(0).Str()))))
		},
	},
	{
		// substr(s, from[, count]); negative from counts from the end
		Name: "substr",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeText, Undefres: true}, {Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			s := f.Arg(0).Str()
			start := int(f.Arg(1).Int())
			if start < 0 {
				start = len(s) + start
				if start < 0 {
					start = 0
				}
			}
			if start > len(s) {
				start = len(s)
			}
			end := len(s)
			if f.Arg(2).Defined() {
				if count := int(f.Arg(2).Int()); start+count < end {
					end = start + count
				}
			}
			f.Finish(value.String(s[start:end]))
		},
	},
	{
		// find(haystack, needle[, from]): position or null
		Name: "find",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeText, Undefres: true}, {Types: evaluator.TypeText}, {Types: evaluator.TypeNumeric, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			haystack := f.Arg(0).Str()
			needle := f.Arg(1).Str()
			start := 0
			if f.Arg(2).Defined() {
				start = int(f.Arg(2).Int())
				if start > len(haystack) {
					start = len(haystack)
				}
				if start < 0 {
					start = 0
				}
			}
			if p := strings.Index(haystack[start:], needle); p >= 0 {
				f.Finish(value.Int(int64(start + p)))
				return
			}
			f.Finish(value.NullReason("no such substring"))
		},
	},
	{
		// format(fmt, value...): printf-style with the basic %duxXeEgGfs
		// conversions only
		Name: "format",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeText}, {Types: evaluator.TypeAny, Optional: true, Multiple: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			res, errv := formatValues(f.Arg(0).Str(), f)
			if errv != nil {
				f.Finish(*errv)
				return
			}
			f.Finish(value.String(res))
		},
	},
}

// formatValues implements the restricted format() conversion language.
func formatValues(format string, f *evaluator.BuiltinContext) (string, *value.Value) {
	var b strings.Builder
	ai := 1
	i := 0
	for i < len(format) {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		spec := i
		for i < len(format) {
			sc := format[i]
			if sc >= '0' && sc <= '9' || sc == '.' || sc == '+' || sc == '-' {
				i++
				continue
			}
			break
		}
		if i >= len(format) {
			e := value.NewError(value.ErrSyntax, "incomplete format spec")
			return "", &e
		}
		conv := format[i]
		i++
		arg := f.Arg(ai)
		ai++
		if !arg.Defined() {
			fmt.Fprintf(&b, "<%s>", arg.Annotation())
			continue
		}
		switch conv {
		case 'd', 'u', 'x', 'X':
			verb := conv
			if verb == 'u' {
				verb = 'd'
			}
			fmt.Fprintf(&b, "%"+format[spec:i-1]+string(verb), arg.Int())
		case 'e', 'E', 'g', 'G', 'f':
			fmt.Fprintf(&b, "%"+format[spec:i], arg.Num())
		case 's':
			fmt.Fprintf(&b, "%"+format[spec:i], arg.Str())
		default:
			e := value.NewError(value.ErrSyntax, "invalid format string, only basic %%duxXeEgGfs specs allowed")
			return "", &e
		}
	}
	return b.String(), nil
}
