package builtins

import (
	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/value"
)

var errorFunctions = []*evaluator.Builtin{
	{
		// throw(x): raise x as an error; error values are re-thrown
		// unchanged, everything else becomes a user error
		Name: "throw",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}},
		Impl: func(f *evaluator.BuiltinContext) {
			a := f.Arg(0)
			if a.IsError() {
				f.Finish(a.WithThrown(false))
				return
			}
			f.Finish(value.NewError(value.ErrUser, "%s", a.Str()))
		},
	},
	{
		// error(x): construct a user error value that does NOT throw,
		// so it can be stored and compared like a regular value
		Name: "error",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.NewError(value.ErrUser, "%s", f.Arg(0).Str()).WithThrown(true))
		},
	},
	{
		Name: "errordomain",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeError, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.String("ScriptError"))
		},
	},
	{
		Name: "errorcode",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeError, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.Int(int64(f.Arg(0).Code())))
		},
	},
	{
		Name: "errormessage",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeError, Undefres: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.String(f.Arg(0).ErrorMessage()))
		},
	},
}
