package script

import (
	"sync"

	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/mainloop"
	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

// TriggerMode selects which evaluation results are reported to the
// host callback.
type TriggerMode int

const (
	// OnGettingTrue reports when the result turns from false to true.
	OnGettingTrue TriggerMode = iota
	// OnChange reports whenever the result differs from the previous
	// evaluation.
	OnChange
	// OnEvaluation reports every evaluation.
	OnEvaluation
)

// Trigger is an expression that re-evaluates itself whenever one of
// its timed functions (is_time, every, testlater, ...) schedules a
// re-check. Results are reported to the host callback according to the
// trigger mode. The first evaluation after Arm carries the initial
// flag so functions like initial() and testlater() can tell it apart.
type Trigger struct {
	rt   *Runtime
	name string
	mode TriggerMode
	cb   func(Value)
	main *evaluator.MainContext
	code *evaluator.Code

	// the fields below are touched on the loop goroutine only
	armed  bool
	ticket mainloop.Ticket
	seen   bool

	mu   sync.Mutex
	last value.Value
}

// NewTrigger compiles the expression and prepares a trigger in the
// given mode. The callback runs on the loop goroutine; it must not
// block. Call Arm to start evaluating.
func (r *Runtime) NewTrigger(name, expression string, mode TriggerMode, cb func(Value)) *Trigger {
	t := &Trigger{
		rt:   r,
		name: name,
		mode: mode,
		cb:   cb,
		main: evaluator.NewMainContext(r.domain, nil),
	}
	t.code = evaluator.NewCode(name, source.NewCursor(source.NewContainer(name, expression)), evaluator.FlagExpression)
	return t
}

// RegisterLookup adds a host member lookup to the trigger's scope.
func (t *Trigger) RegisterLookup(l Lookup) { t.main.RegisterLookup(l) }

// Arm starts the trigger with an initial evaluation.
func (t *Trigger) Arm() {
	t.rt.loop.Post(func() {
		if t.armed {
			return
		}
		t.armed = true
		t.seen = false
		t.evaluate(evaluator.FlagInitial)
	})
}

// Disarm stops evaluations and cancels the pending re-check timer.
// Frozen timed results survive, so a later Arm picks up where the
// trigger left off.
func (t *Trigger) Disarm() {
	t.rt.loop.Post(func() {
		t.armed = false
		if t.ticket != 0 {
			t.rt.loop.Cancel(t.ticket)
			t.ticket = 0
		}
		t.main.AbortThreads(value.NewError(value.ErrAborted, "trigger disarmed"))
	})
}

// Last returns the most recent evaluation result.
func (t *Trigger) Last() Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Check forces an out-of-schedule evaluation, for hosts whose trigger
// inputs changed outside the timed functions.
func (t *Trigger) Check() {
	t.rt.loop.Post(func() {
		if t.armed {
			t.evaluate(0)
		}
	})
}

func (t *Trigger) evaluate(extra Flags) {
	t.main.Execute(t.code, evaluator.FlagExpression|evaluator.FlagStopRunning|extra, func(v value.Value) {
		t.finished(v, extra)
	}, 0)
}

func (t *Trigger) finished(v value.Value, flags Flags) {
	if !t.armed {
		return
	}
	t.mu.Lock()
	prev := t.last
	hadPrev := t.seen
	t.last = v
	t.mu.Unlock()
	t.seen = true
	fire := false
	switch t.mode {
	case OnGettingTrue:
		fire = v.Bool() && (!hadPrev || !prev.Bool())
	case OnChange:
		// the first result establishes the baseline only
		fire = hadPrev && !v.Equal(prev)
	case OnEvaluation:
		fire = true
	}
	t.schedule()
	if fire && t.cb != nil {
		t.cb(v)
	}
}

// schedule arms the loop timer for the next re-check the timed
// functions asked for during the evaluation that just finished.
func (t *Trigger) schedule() {
	next := t.code.TakeNextEval()
	if next.IsZero() {
		return
	}
	if t.ticket != 0 {
		t.rt.loop.Cancel(t.ticket)
	}
	delay := next.Sub(t.rt.domain.Clock().Now())
	if delay < 0 {
		delay = 0
	}
	t.ticket = t.rt.loop.ExecuteOnce(func() {
		t.ticket = 0
		if t.armed {
			t.evaluate(evaluator.FlagTimed)
		}
	}, delay)
}
