package evaluator

import (
	"time"

	"github.com/funvibe/automa/internal/mainloop"
	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

// TypeMask is the argument type requirement of a builtin parameter;
// bits combine.
type TypeMask uint16

const (
	TypeNull TypeMask = 1 << iota
	TypeError
	TypeNumeric
	TypeText
	TypeJSON
	TypeExecutable
	TypeThread
)

// TypeScalar covers the kinds that coerce into each other implicitly.
const TypeScalar = TypeNumeric | TypeText

const TypeAny = TypeNull | TypeError | TypeNumeric | TypeText | TypeJSON | TypeExecutable | TypeThread

func kindMask(v value.Value) TypeMask {
	switch v.Kind() {
	case value.KindNull:
		return TypeNull
	case value.KindError:
		return TypeError
	case value.KindNumber:
		return TypeNumeric
	case value.KindString:
		return TypeText
	case value.KindJSON:
		return TypeJSON
	case value.KindFunction:
		return TypeExecutable
	case value.KindThread:
		return TypeThread
	}
	return 0
}

// ArgDesc describes one positional parameter of a builtin.
type ArgDesc struct {
	Types    TypeMask
	Optional bool
	Multiple bool // varargs tail; this and following args use this descriptor
	Exact    bool // no implicit scalar coercion
	Undefres bool // wrong type means "return null without calling" rather than an error
}

// BuiltinImpl implements a builtin. It must call exactly one of
// f.Finish/f.FinishWith, either before returning (synchronous
// functions) or later from a host callback (asynchronous functions,
// which must also register an abort callback before yielding).
type BuiltinImpl func(f *BuiltinContext)

// Builtin is a declarative builtin function descriptor.
type Builtin struct {
	Name  string
	Args  []ArgDesc
	Async bool
	Impl  BuiltinImpl
}

// callable is what a thread can invoke: script functions and builtins.
type callable interface {
	value.Callable
	argumentInfo(i int) (ArgDesc, bool)
	contextForCall(t *Thread) (callContext, value.Value)
}

// callContext is one prepared invocation: it accumulates positional
// arguments, executes, and can be aborted while executing.
type callContext interface {
	numArgs() int
	setArg(i int, v value.Value)
	setUndefinedResult()
	execute(flags Flags, cb Callback)
	abort(res value.Value)
}

// checkAndSetArg validates and binds one positional argument (nil hasArg
// checks for a missing one at the end of the list). A non-nil return is
// the error (or the forwarded argument error) the call must yield.
func checkAndSetArg(cc callContext, callee callable, idx int, arg *value.Value) *value.Value {
	desc, hasInfo := callee.argumentInfo(idx)
	if !hasInfo {
		if arg != nil {
			e := value.NewError(value.ErrSyntax, "too many arguments for '%s'", callee.FuncName())
			return &e
		}
		return nil
	}
	if arg == nil {
		if !desc.Optional && !desc.Multiple {
			e := value.NewError(value.ErrSyntax, "missing argument %d in call to '%s'", idx+1, callee.FuncName())
			return &e
		}
		return nil
	}
	am := kindMask(*arg)
	if am&desc.Types == 0 {
		coercible := !desc.Exact && am&TypeScalar != 0 && desc.Types&TypeScalar != 0
		if !coercible {
			switch {
			case desc.Undefres:
				cc.setUndefinedResult()
			case arg.IsError():
				return arg // forward argument errors as-is
			default:
				e := value.NewError(value.ErrSyntax, "argument %d in call to '%s' is %s", idx+1, callee.FuncName(), arg.Kind())
				return &e
			}
		}
	}
	cc.setArg(idx, *arg)
	return nil
}

// builtinCallable is the callable form a builtin takes when looked up.
type builtinCallable struct {
	fn *Builtin
}

func (b *builtinCallable) FuncName() string { return b.fn.Name }

func (b *builtinCallable) argumentInfo(i int) (ArgDesc, bool) {
	if i < len(b.fn.Args) {
		return b.fn.Args[i], true
	}
	if n := len(b.fn.Args); n > 0 && b.fn.Args[n-1].Multiple {
		return b.fn.Args[n-1], true
	}
	return ArgDesc{}, false
}

func (b *builtinCallable) contextForCall(t *Thread) (callContext, value.Value) {
	return &BuiltinContext{
		fn:       b.fn,
		thread:   t,
		callSite: t.src.Pos,
	}, value.Value{}
}

// BuiltinContext is the call context handed to builtin implementations.
type BuiltinContext struct {
	fn        *Builtin
	thread    *Thread
	args      []value.Value
	argSet    []bool
	undefined bool
	flags     Flags
	cb        Callback
	abortCB   func()
	finished  bool
	callSite  source.Pos
}

func (f *BuiltinContext) numArgs() int { return len(f.args) }

func (f *BuiltinContext) setArg(i int, v value.Value) {
	for len(f.args) <= i {
		f.args = append(f.args, value.Null())
		f.argSet = append(f.argSet, false)
	}
	f.args[i] = v
	f.argSet[i] = true
}

func (f *BuiltinContext) setUndefinedResult() { f.undefined = true }

func (f *BuiltinContext) execute(flags Flags, cb Callback) {
	f.flags = flags
	f.cb = cb
	if f.undefined {
		f.Finish(value.NullReason("undefined function argument"))
		return
	}
	if f.fn.Async && flags&FlagSynchronously != 0 {
		f.Finish(value.NewError(value.ErrAsyncNotAllowed, "'%s' cannot run in synchronous evaluation", f.fn.Name))
		return
	}
	f.fn.Impl(f)
}

func (f *BuiltinContext) abort(res value.Value) {
	if f.abortCB != nil {
		cb := f.abortCB
		f.abortCB = nil
		cb()
	}
	f.Finish(res)
}

// NumArgs is the number of arguments the call received.
func (f *BuiltinContext) NumArgs() int { return len(f.args) }

// Arg returns the i-th argument, null when absent.
func (f *BuiltinContext) Arg(i int) value.Value {
	if i < 0 || i >= len(f.args) {
		return value.Null()
	}
	return f.args[i]
}

// HasArg reports whether the i-th argument was supplied by the caller.
func (f *BuiltinContext) HasArg(i int) bool {
	return i >= 0 && i < len(f.argSet) && f.argSet[i]
}

// Finish delivers the function result and resumes the calling thread.
// Only the first call has an effect.
func (f *BuiltinContext) Finish(v value.Value) {
	if f.finished {
		return
	}
	f.finished = true
	f.abortCB = nil
	if f.cb != nil {
		cb := f.cb
		f.cb = nil
		cb(v)
	}
}

// SetAbortCallback registers cleanup to run when the calling thread is
// aborted while this (asynchronous) function is pending.
func (f *BuiltinContext) SetAbortCallback(fn func()) { f.abortCB = fn }

func (f *BuiltinContext) Thread() *Thread { return f.thread }

func (f *BuiltinContext) Domain() *Domain { return f.thread.owner.domain }

func (f *BuiltinContext) Loop() *mainloop.Loop { return f.thread.owner.domain.loop }

func (f *BuiltinContext) EvalFlags() Flags { return f.thread.flags }

// Now is the domain clock's current time.
func (f *BuiltinContext) Now() time.Time { return f.Domain().clock.Now() }

// FreezeKey identifies this call site's i-th argument in the freeze
// store of the running code.
func (f *BuiltinContext) FreezeKey(argIdx int) FreezeID {
	return FreezeID{Offset: f.callSite.Offset, Arg: argIdx}
}

// Frozen looks up a frozen result for this call site.
func (f *BuiltinContext) Frozen(argIdx int) *FrozenResult {
	return f.thread.code.freeze.get(f.FreezeKey(argIdx))
}

// Freeze caches a result for this call site until the given time and
// asks the owning code to be re-evaluated then.
func (f *BuiltinContext) Freeze(argIdx int, v value.Value, until time.Time) {
	f.thread.code.freeze.set(f.FreezeKey(argIdx), &FrozenResult{Result: v, Until: until})
	if !until.IsZero() {
		f.thread.code.freeze.scheduleEvalNotLaterThan(until)
	}
}

// Unfreeze drops a frozen result; reports whether one existed.
func (f *BuiltinContext) Unfreeze(argIdx int) bool {
	return f.thread.code.freeze.unfreeze(f.FreezeKey(argIdx))
}

// RequestReEval asks the owning code to be re-evaluated not later than
// the given time (trigger re-arming), without freezing anything.
func (f *BuiltinContext) RequestReEval(when time.Time) {
	f.thread.code.freeze.scheduleEvalNotLaterThan(when)
}

// ChildContext returns a fresh execution context sharing the caller's
// main scope, for builtins that run script code themselves.
func (f *BuiltinContext) ChildContext() *CodeContext {
	if m := f.thread.owner.main; m != nil {
		return m.NewChildContext()
	}
	return nil
}
