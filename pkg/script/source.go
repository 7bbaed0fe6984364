package script

import (
	"sync"
	"time"

	"github.com/funvibe/automa/internal/config"
	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

// Source holds one editable piece of script text together with the
// execution context it runs in. Hosts that re-push their configuration
// periodically can call SetSource every time: identical text keeps all
// cached state, including frozen timed function results, while changed
// text drops the cached code and aborts threads still running the old
// version.
type Source struct {
	rt   *Runtime
	name string
	main *evaluator.MainContext

	mu   sync.Mutex
	text string
	code *evaluator.Code
}

// NewSource creates an empty source with its own main context.
func (r *Runtime) NewSource(name string) *Source {
	return &Source{rt: r, name: name, main: evaluator.NewMainContext(r.domain, nil)}
}

// NewSourceWithInstance creates a source whose scripts see the given
// lookup as their instance scope, between locals and globals.
func (r *Runtime) NewSourceWithInstance(name string, instance Lookup) *Source {
	return &Source{rt: r, name: name, main: evaluator.NewMainContext(r.domain, instance)}
}

// RegisterLookup adds a host member lookup to this source's scope.
func (s *Source) RegisterLookup(l Lookup) { s.main.RegisterLookup(l) }

// Name returns the label used in diagnostics for this source.
func (s *Source) Name() string { return s.name }

// Text returns the currently installed program text.
func (s *Source) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetSource installs new program text and reports whether the text
// actually changed. Re-setting the identical text is a no-op.
func (s *Source) SetSource(text string) bool {
	s.mu.Lock()
	if s.code != nil && s.text == text {
		s.mu.Unlock()
		return false
	}
	hadCode := s.code != nil
	s.text = text
	s.code = evaluator.NewCode(s.name, source.NewCursor(source.NewContainer(s.name, text)), evaluator.FlagScriptBody)
	s.mu.Unlock()
	if hadCode {
		s.rt.loop.Post(func() {
			s.main.AbortThreads(value.NewError(value.ErrAborted, "source text changed"))
		})
	}
	return true
}

// Run executes the current text. The callback fires exactly once, on
// the loop goroutine, with the final result. Flags select the scope
// (ScriptBody by default) and the concurrency policy towards threads
// already running in this source.
func (s *Source) Run(flags Flags, cb func(Value)) {
	s.mu.Lock()
	code := s.code
	s.mu.Unlock()
	if cb == nil {
		cb = func(Value) {}
	}
	if code == nil {
		s.rt.loop.Post(func() { cb(value.NullReason("no source text")) })
		return
	}
	if flags&(Expression|ScriptBody) == 0 {
		flags |= ScriptBody
	}
	s.rt.loop.Post(func() {
		s.main.Execute(code, flags, cb, 0)
	})
}

// EvaluateSynchronously runs the current text to completion and blocks
// the caller for the result. Scripts reaching an asynchronous function
// fail with an error rather than suspend.
func (s *Source) EvaluateSynchronously() Value {
	done := make(chan Value, 1)
	s.Run(ScriptBody|Synchronously, callbackOnLoop(nil, done))
	return waitResult(done, config.DefaultSyncRunTime+5*time.Second)
}

// Evaluating reports whether any thread of this source is currently
// running or suspended.
func (s *Source) Evaluating() bool {
	done := make(chan bool, 1)
	s.rt.loop.Post(func() { done <- s.main.Evaluating() })
	return <-done
}

// Abort stops all threads of this source. Their completion callbacks
// are invoked with an aborted error.
func (s *Source) Abort() {
	s.rt.loop.Post(func() {
		s.main.AbortThreads(value.NewError(value.ErrAborted, "aborted by host"))
	})
}

// SetVar places a host value into the source's context scope so
// scripts can read and assign it without declaring it.
func (s *Source) SetVar(name string, v Value) {
	s.rt.loop.Post(func() { s.main.SetVar(name, v) })
}

// Var reads back a context variable, typically after a run completed.
func (s *Source) Var(name string) (Value, bool) {
	type res struct {
		v  Value
		ok bool
	}
	done := make(chan res, 1)
	s.rt.loop.Post(func() {
		v, ok := s.main.Var(name)
		done <- res{v, ok}
	})
	r := <-done
	return r.v, r.ok
}
