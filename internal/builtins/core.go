package builtins

import (
	"math"
	"math/rand"

	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/value"
)

var coreFunctions = []*evaluator.Builtin{
	{
		// ifvalid(a, b): a if a is a defined value, b otherwise
		Name: "ifvalid",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}, {Types: evaluator.TypeAny}},
		Impl: func(f *evaluator.BuiltinContext) {
			if f.Arg(0).Defined() {
				f.Finish(f.Arg(0))
				return
			}
			f.Finish(f.Arg(1))
		},
	},
	{
		Name: "isvalid",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.Bool(f.Arg(0).Defined()))
		},
	},
	{
		// if(c, a, b): functional conditional
		Name: "if",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}, {Types: evaluator.TypeAny}, {Types: evaluator.TypeAny, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			if f.Arg(0).Bool() {
				f.Finish(f.Arg(1))
				return
			}
			f.Finish(f.Arg(2))
		},
	},
	{
		Name: "abs",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.Number(math.Abs(f.Arg(0).Num())))
		},
	},
	{
		Name: "int",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.Int(f.Arg(0).Int()))
		},
	},
	{
		// frac(a): fractional part, retains sign
		Name: "frac",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			n := f.Arg(0).Num()
			f.Finish(value.Number(n - float64(int64(n))))
		},
	},
	{
		// round(a[, p]): round to integer or to precision p
		Name: "round",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}, {Types: evaluator.TypeNumeric, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			precision := 1.0
			if f.Arg(1).Defined() {
				precision = f.Arg(1).Num()
			}
			f.Finish(value.Number(math.Round(f.Arg(0).Num()/precision) * precision))
		},
	},
	{
		// random(a, b): uniform random value in a..b
		Name: "random",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric}},
		Impl: func(f *evaluator.BuiltinContext) {
			a := f.Arg(0).Num()
			b := f.Arg(1).Num()
			f.Finish(value.Number(a + rand.Float64()*(b-a)))
		},
	},
	{
		Name: "min",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}, {Types: evaluator.TypeAny, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			if f.Arg(0).Less(f.Arg(1)) {
				f.Finish(f.Arg(0))
				return
			}
			f.Finish(f.Arg(1))
		},
	},
	{
		Name: "max",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}, {Types: evaluator.TypeAny, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			if f.Arg(1).Less(f.Arg(0)) {
				f.Finish(f.Arg(0))
				return
			}
			f.Finish(f.Arg(1))
		},
	},
	{
		// limited(x, a, b): x clamped to a..b
		Name: "limited",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}, {Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric}},
		Impl: func(f *evaluator.BuiltinContext) {
			x := f.Arg(0)
			if x.Less(f.Arg(1)) {
				f.Finish(f.Arg(1))
				return
			}
			if f.Arg(2).Less(x) {
				f.Finish(f.Arg(2))
				return
			}
			f.Finish(x)
		},
	},
	{
		// cyclic(x, a, b): x wrapped into a..b (b excluded, it equals a)
		Name: "cyclic",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeScalar, Undefres: true}, {Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric}},
		Impl: func(f *evaluator.BuiltinContext) {
			o := f.Arg(1).Num()
			x0 := f.Arg(0).Num() - o
			r := f.Arg(2).Num() - o
			if x0 >= r {
				x0 -= float64(int64(x0/r)) * r
			} else if x0 < 0 {
				x0 += float64(int64(-x0/r)+1) * r
			}
			f.Finish(value.Number(x0 + o))
		},
	},
	{
		// maprange(x, a1, b1, a2, b2): linear mapping of x from range
		// a1..b1 into a2..b2, without clamping
		Name: "maprange",
		Args: []evaluator.ArgDesc{
			{Types: evaluator.TypeScalar, Undefres: true},
			{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric},
			{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric},
		},
		Impl: func(f *evaluator.BuiltinContext) {
			x := f.Arg(0).Num()
			a1, b1 := f.Arg(1).Num(), f.Arg(2).Num()
			a2, b2 := f.Arg(3).Num(), f.Arg(4).Num()
			if b1 == a1 {
				f.Finish(value.NewError(value.ErrInvalid, "maprange() input range is empty"))
				return
			}
			f.Finish(value.Number(a2 + (x-a1)*(b2-a2)/(b1-a1)))
		},
	},
	{
		// string(x): force conversion, nulls become "undefined"
		Name: "string",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.String(f.Arg(0).Str()))
		},
	},
	{
		Name: "number",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.Number(f.Arg(0).Num()))
		},
	},
	{
		// lastarg(a, b, ..., z): z; evaluates all arguments for their
		// side effects
		Name: "lastarg",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny, Optional: true, Multiple: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			if f.NumArgs() == 0 {
				f.Finish(value.Null())
				return
			}
			f.Finish(f.Arg(f.NumArgs() - 1))
		},
	},
	{
		// elements(a): number of elements of a JSON array
		Name: "elements",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			if a, ok := f.Arg(0).JSONData().([]any); ok {
				f.Finish(value.Int(int64(len(a))))
				return
			}
			f.Finish(value.NullReason("not an array"))
		},
	},
}
