// Package script is the public embedding API of the automa runtime: a
// Runtime bundling the event loop and a script domain, Sources holding
// editable program text, and Triggers re-evaluating expressions when
// their time-dependent state changes.
package script

import (
	"io"
	"time"

	"github.com/funvibe/automa/internal/builtins"
	"github.com/funvibe/automa/internal/config"
	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/mainloop"
	"github.com/funvibe/automa/internal/value"
)

// Re-exported engine types, so embedders never need the internal
// packages.
type (
	Value          = value.Value
	Kind           = value.Kind
	ErrorCode      = value.ErrorCode
	Flags          = evaluator.Flags
	Builtin        = evaluator.Builtin
	BuiltinContext = evaluator.BuiltinContext
	ArgDesc        = evaluator.ArgDesc
	Lookup         = evaluator.Lookup
	MutableLookup  = evaluator.MutableLookup
	SimpleLookup   = evaluator.SimpleLookup
	FuncLookup     = evaluator.FuncLookup
	GlobalStore    = evaluator.GlobalStore
	GeoLocation    = evaluator.GeoLocation
	Limits         = config.Limits
)

// NewSimpleLookup creates a map-backed namespace for RegisterLookup.
var NewSimpleLookup = evaluator.NewSimpleLookup

// Value constructors.
var (
	Null       = value.Null
	NullReason = value.NullReason
	Number     = value.Number
	Int        = value.Int
	Bool       = value.Bool
	String     = value.String
	JSONValue  = value.JSON
	NewError   = value.NewError
)

// Evaluation flags.
const (
	Expression    = evaluator.FlagExpression
	ScriptBody    = evaluator.FlagScriptBody
	Synchronously = evaluator.FlagSynchronously
	StopRunning   = evaluator.FlagStopRunning
	Queue         = evaluator.FlagQueue
	Concurrently  = evaluator.FlagConcurrently
	KeepVars      = evaluator.FlagKeepVars
)

// Error codes script results can carry.
const (
	ErrUser            = value.ErrUser
	ErrSyntax          = value.ErrSyntax
	ErrDivisionByZero  = value.ErrDivisionByZero
	ErrCyclicReference = value.ErrCyclicReference
	ErrBusy            = value.ErrBusy
	ErrNotFound        = value.ErrNotFound
	ErrAborted         = value.ErrAborted
	ErrTimeout         = value.ErrTimeout
	ErrAsyncNotAllowed = value.ErrAsyncNotAllowed
)

// Runtime owns one event loop and one script domain with the standard
// function library installed. All script execution of this runtime
// happens serialized on the loop goroutine.
type Runtime struct {
	loop   *mainloop.Loop
	domain *evaluator.Domain
}

// Option configures a Runtime at construction.
type Option func(*Runtime) error

// WithGeoLocation enables the sunrise/sunset family of functions.
func WithGeoLocation(latitude, longitude float64) Option {
	return func(r *Runtime) error {
		r.domain.SetGeo(&evaluator.GeoLocation{Latitude: latitude, Longitude: longitude})
		return nil
	}
}

// WithOutput redirects diagnostic and log() output.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) error {
		r.domain.SetOutput(w)
		return nil
	}
}

// WithTrace enables per-thread trace diagnostics.
func WithTrace() Option {
	return func(r *Runtime) error {
		r.domain.SetTrace(true)
		return nil
	}
}

// WithLimits overrides the default execution budgets.
func WithLimits(l Limits) Option {
	return func(r *Runtime) error {
		r.domain.SetLimits(l)
		return nil
	}
}

// WithStore attaches a persistent globals store; its contents become
// domain globals before the first script runs.
func WithStore(s GlobalStore) Option {
	return func(r *Runtime) error {
		return r.domain.AttachStore(s)
	}
}

// New creates a runtime and starts its event loop.
func New(opts ...Option) (*Runtime, error) {
	loop := mainloop.New()
	r := &Runtime{loop: loop, domain: evaluator.NewDomain(loop)}
	builtins.Register(r.domain)
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	loop.Start()
	return r, nil
}

// Stop terminates the event loop. Pending timers are dropped.
func (r *Runtime) Stop() { r.loop.Stop() }

// RegisterFunction adds a host-provided builtin to the domain,
// available to every source of this runtime.
func (r *Runtime) RegisterFunction(b *Builtin) { r.domain.Register(b) }

// SetGlobal writes a domain-scope variable from host code.
func (r *Runtime) SetGlobal(name string, v Value) { r.domain.SetGlobal(name, v, false) }

// Global reads a domain-scope variable from host code.
func (r *Runtime) Global(name string) (Value, bool) { return r.domain.Global(name) }

// Post runs fn on the loop goroutine, serialized with script execution.
func (r *Runtime) Post(fn func()) { r.loop.Post(fn) }

// DefaultLimits returns the compiled-in execution budgets.
func DefaultLimits() Limits { return config.DefaultLimits() }

// LoadLimits reads execution budgets from a YAML file; a missing file
// yields the defaults.
func LoadLimits(path string) (Limits, error) { return config.LoadLimits(path) }

// callbackOnLoop wraps a host callback so it also releases waiters.
func callbackOnLoop(cb func(Value), done chan<- Value) evaluator.Callback {
	return func(v value.Value) {
		if cb != nil {
			cb(v)
		}
		if done != nil {
			done <- v
		}
	}
}

// waitResult blocks the caller until the loop-side callback delivers,
// with a generous safety margin over the engine's own budgets.
func waitResult(done <-chan Value, maxWait time.Duration) Value {
	select {
	case v := <-done:
		return v
	case <-time.After(maxWait):
		return value.NewError(value.ErrTimeout, "no result within %v", maxWait)
	}
}
