package builtins

import (
	"fmt"
	"time"

	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

var controlFunctions = []*evaluator.Builtin{
	{
		// eval(code[, args...]): run a string as script code in a child
		// context of the caller's main scope; extra arguments are
		// available as arg1..argN
		Name: "eval",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeText}, {Types: evaluator.TypeAny, Optional: true, Multiple: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			ctx := f.ChildContext()
			if ctx == nil {
				f.Finish(value.NewError(value.ErrInternal, "eval() has no main context"))
				return
			}
			container := source.NewContainer("eval", f.Arg(0).Str())
			code := evaluator.NewCode("eval", source.NewCursor(container), evaluator.FlagScriptBody)
			for i := 1; i < f.NumArgs(); i++ {
				ctx.SetVar(fmt.Sprintf("arg%d", i), f.Arg(i))
			}
			flags := evaluator.FlagScriptBody | evaluator.FlagKeepVars |
				(f.EvalFlags() & evaluator.FlagSynchronously)
			f.SetAbortCallback(func() {
				ctx.AbortThreads(value.NewError(value.ErrAborted, "eval() aborted"))
			})
			ctx.Execute(code, flags, func(v value.Value) {
				// evaluated code may fail; deliver errors as plain
				// values so the caller decides whether to throw
				f.Finish(v.WithThrown(true))
			}, 0)
		},
	},
	{
		// delay(seconds): suspend the calling thread
		Name:  "delay",
		Args:  []evaluator.ArgDesc{{Types: evaluator.TypeNumeric}},
		Async: true,
		Impl: func(f *evaluator.BuiltinContext) {
			d := time.Duration(f.Arg(0).Num() * float64(time.Second))
			loop := f.Loop()
			ticket := loop.ExecuteOnce(func() {
				f.Finish(value.NullReason("delayed"))
			}, d)
			f.SetAbortCallback(func() {
				loop.Cancel(ticket)
			})
		},
	},
	{
		// log(message) / log(level, message): writes to the domain's
		// diagnostic output and returns the message
		Name: "log",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeAny}, {Types: evaluator.TypeAny, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			msg := f.Arg(0)
			if f.HasArg(1) {
				msg = f.Arg(1)
			}
			if out := f.Domain().Output(); out != nil {
				fmt.Fprintf(out, "script log: %s\n", msg.Str())
			}
			f.Finish(msg)
		},
	},
	{
		// abort(thread): stop the given concurrent thread;
		// abort(): stop the calling thread itself
		Name: "abort",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeThread, Exact: true, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			if f.HasArg(0) {
				if t, ok := f.Arg(0).ThreadRef().(*evaluator.Thread); ok && t.Running() {
					t.Abort(value.NewError(value.ErrAborted, "aborted by script"))
				}
				f.Finish(value.NullReason("aborted"))
				return
			}
			f.Thread().Abort(value.NewError(value.ErrAborted, "abort() called"))
		},
	},
}
