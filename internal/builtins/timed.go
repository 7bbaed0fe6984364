package builtins

import (
	"math"
	"time"

	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/value"
)

// isTimeTolerance is the matching window of is_time().
const isTimeTolerance = 5 * time.Second

// minRetrigger limits how fast testlater() may re-arm itself.
const minRetrigger = 10 * time.Second

// minEvery limits how fast every() may fire.
const minEvery = 500 * time.Millisecond

// timeCheck implements after_time() and is_time(). The target time of
// day is frozen per call site so a trigger hosting the expression gets
// re-evaluated exactly when the result will change.
func timeCheck(f *evaluator.BuiltinContext, isTime bool) {
	now := f.Now()
	var targetSecs int64
	if f.NumArgs() >= 2 && f.Arg(1).Defined() {
		// legacy two-argument form: hours and minutes
		targetSecs = (f.Arg(0).Int()*60 + f.Arg(1).Int()) * 60
	} else {
		targetSecs = f.Arg(0).Int()
	}
	daySecs := int64(secondOfDay(now))
	met := daySecs >= targetSecs
	res := met
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	target := midnight.Add(time.Duration(targetSecs) * time.Second)
	if isTime && met && now.Before(target.Add(isTimeTolerance)) {
		// inside the matching window: stay true until it closes
		f.Freeze(0, value.Int(targetSecs), target.Add(isTimeTolerance))
	} else {
		next := target
		if met {
			// already met today: drop back at midnight, match again tomorrow
			next = nextMidnight(now)
			if isTime {
				res = false
			}
		}
		f.Freeze(0, value.Int(targetSecs), next)
	}
	f.Finish(value.Bool(res))
}

var timedFunctions = []*evaluator.Builtin{
	{
		Name: "after_time",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) { timeCheck(f, false) },
	},
	{
		Name: "is_time",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) { timeCheck(f, true) },
	},
	{
		// is_weekday(w, w, ...): true when today is one of the given
		// weekdays (0/7=sunday); re-evaluates at next midnight
		Name: "is_weekday",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric, Multiple: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			now := f.Now()
			today := int64(now.Weekday())
			isday := false
			for i := 0; i < f.NumArgs(); i++ {
				w := f.Arg(i).Int()
				if w == 7 {
					w = 0
				}
				if w == today {
					isday = true
					break
				}
			}
			f.Freeze(0, value.Bool(isday), nextMidnight(now))
			f.Finish(value.Bool(isday))
		},
	},
	{
		// between_dates(a, b): true while today's yearday is within
		// a..b (wrapping over new year when a > b)
		Name: "between_dates",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric}},
		Impl: func(f *evaluator.BuiltinContext) {
			now := f.Now()
			smaller := int(f.Arg(0).Num())
			larger := int(f.Arg(1).Num())
			wrapped := smaller > larger
			if wrapped {
				smaller, larger = larger, smaller
			}
			currentYday := now.YearDay() - 1
			// next check around the nearer boundary, scheduled a day
			// early so leap year transitions cannot skip the edge
			var next time.Time
			switch {
			case currentYday < smaller:
				next = time.Date(now.Year(), 1, 1+smaller, 0, 0, 0, 0, now.Location())
			case currentYday <= larger:
				next = time.Date(now.Year(), 1, 1+larger, 0, 0, 0, 0, now.Location())
			default:
				next = time.Date(now.Year()+1, 1, smaller, 0, 0, 0, 0, now.Location())
			}
			f.RequestReEval(next)
			f.Finish(value.Bool((currentYday >= smaller && currentYday <= larger) != wrapped))
		},
	},
	{
		// every(interval[, syncoffset]): true once per interval; with a
		// sync offset, aligned to whole intervals since midnight
		Name: "every",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			now := f.Now()
			interval := f.Arg(0).Num()
			if interval < minEvery.Seconds() {
				interval = minEvery.Seconds()
			}
			syncOffset := -1.0
			if f.Arg(1).Defined() {
				syncOffset = f.Arg(1).Num()
			}
			frozen := f.Frozen(0)
			triggered := frozen != nil && !frozen.Frozen(now)
			if triggered || f.EvalFlags()&evaluator.FlagInitial != 0 {
				if syncOffset < 0 {
					f.Freeze(0, value.Number(interval), now.Add(time.Duration(interval*float64(time.Second))))
					triggered = true // fire on the initial evaluation too
				} else {
					sod := secondOfDay(now)
					untilNext := syncOffset + (math.Floor((sod-syncOffset)/interval)+1)*interval - sod
					f.Freeze(0, value.Number(interval), now.Add(time.Duration(untilNext*float64(time.Second))))
				}
				// the true result is an instant, request an immediate
				// re-evaluation to let it go false again
				f.RequestReEval(now)
			}
			f.Finish(value.Bool(triggered))
		},
	},
	{
		// testlater(seconds, test[, retrigger]): null now, value of test
		// after the given delay on the timed re-evaluation
		Name: "testlater",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric}, {Types: evaluator.TypeNumeric, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			now := f.Now()
			retrigger := f.Arg(2).Bool()
			secs := f.Arg(0).Num()
			if retrigger && secs < minRetrigger.Seconds() {
				secs = minRetrigger.Seconds()
			}
			frozen := f.Frozen(0)
			evalNow := frozen != nil && !frozen.Frozen(now)
			if f.EvalFlags()&evaluator.FlagTimed == 0 {
				// a non-timed evaluation (re)starts the wait
				if f.EvalFlags()&evaluator.FlagInitial == 0 || retrigger {
					f.Freeze(0, value.Number(secs), now.Add(time.Duration(secs*float64(time.Second))))
				}
				evalNow = false
			} else if frozen != nil && retrigger {
				f.Freeze(0, value.Number(secs), now.Add(time.Duration(secs*float64(time.Second))))
			}
			if evalNow {
				f.Finish(f.Arg(1))
				return
			}
			f.Finish(value.NullReason("testlater() not yet ready"))
		},
	},
	{
		// initial(): true during the initial evaluation of a trigger
		Name: "initial",
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(value.Bool(f.EvalFlags()&evaluator.FlagInitial != 0))
		},
	},
}
