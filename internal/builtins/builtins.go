// Package builtins provides the standard function library every domain
// gets: value inspection, math, string handling, error construction,
// clock and calendar access, timed trigger helpers and flow utilities.
package builtins

import (
	"time"

	"github.com/funvibe/automa/internal/evaluator"
)

// Register installs the whole standard library into a domain.
func Register(d *evaluator.Domain) {
	d.RegisterAll(table())
}

func table() map[string]*evaluator.Builtin {
	all := make(map[string]*evaluator.Builtin)
	for _, group := range [][]*evaluator.Builtin{
		coreFunctions,
		textFunctions,
		errorFunctions,
		clockFunctions,
		timedFunctions,
		controlFunctions,
	} {
		for _, b := range group {
			all[b.Name] = b
		}
	}
	return all
}

// argOrNow interprets an optional epoch-seconds argument: absent means
// the domain clock's now, values within one day mean a time of day
// today.
func argOrNow(f *evaluator.BuiltinContext, idx int) time.Time {
	if !f.HasArg(idx) || !f.Arg(idx).Defined() {
		return f.Now()
	}
	secs := f.Arg(idx).Num()
	if secs <= 24*3600 {
		now := f.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight.Add(time.Duration(secs * float64(time.Second)))
	}
	sec := int64(secs)
	return time.Unix(sec, int64((secs-float64(sec))*1e9))
}

// secondOfDay is the local time of day in seconds including fractions.
func secondOfDay(t time.Time) float64 {
	return float64(((t.Hour()*60)+t.Minute())*60+t.Second()) + float64(t.Nanosecond())/1e9
}

// nextMidnight is the start of the following local day.
func nextMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}
