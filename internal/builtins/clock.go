package builtins

import (
	"time"

	"github.com/funvibe/automa/internal/evaluator"
	"github.com/funvibe/automa/internal/suntime"
	"github.com/funvibe/automa/internal/value"
)

// timeGetterArgs is shared by all calendar field getters: an optional
// epoch time, defaulting to now.
var timeGetterArgs = []evaluator.ArgDesc{{Types: evaluator.TypeNumeric, Optional: true}}

func timeGetter(name string, get func(t time.Time) value.Value) *evaluator.Builtin {
	return &evaluator.Builtin{
		Name: name,
		Args: timeGetterArgs,
		Impl: func(f *evaluator.BuiltinContext) {
			f.Finish(get(argOrNow(f, 0)))
		},
	}
}

func sunFunc(name string, evening, twilight bool) *evaluator.Builtin {
	return &evaluator.Builtin{
		Name: name,
		Impl: func(f *evaluator.BuiltinContext) {
			geo := f.Domain().Geo()
			if geo == nil {
				f.Finish(value.NullReason("no geolocation information available"))
				return
			}
			var hours float64
			if evening {
				hours = suntime.Sunset(f.Now(), geo.Latitude, geo.Longitude, twilight)
			} else {
				hours = suntime.Sunrise(f.Now(), geo.Latitude, geo.Longitude, twilight)
			}
			f.Finish(value.Number(hours * 3600))
		},
	}
}

var clockFunctions = []*evaluator.Builtin{
	{
		// epochtime(): unix time in seconds with fractions
		Name: "epochtime",
		Impl: func(f *evaluator.BuiltinContext) {
			now := f.Now()
			f.Finish(value.Number(float64(now.UnixNano()) / 1e9))
		},
	},
	{
		Name: "epochdays",
		Impl: func(f *evaluator.BuiltinContext) {
			now := f.Now()
			f.Finish(value.Number(float64(now.UnixNano()) / 1e9 / 86400))
		},
	},
	timeGetter("timeofday", func(t time.Time) value.Value {
		return value.Number(secondOfDay(t))
	}),
	timeGetter("hour", func(t time.Time) value.Value { return value.Int(int64(t.Hour())) }),
	timeGetter("minute", func(t time.Time) value.Value { return value.Int(int64(t.Minute())) }),
	timeGetter("second", func(t time.Time) value.Value { return value.Int(int64(t.Second())) }),
	timeGetter("year", func(t time.Time) value.Value { return value.Int(int64(t.Year())) }),
	timeGetter("month", func(t time.Time) value.Value { return value.Int(int64(t.Month())) }),
	timeGetter("day", func(t time.Time) value.Value { return value.Int(int64(t.Day())) }),
	timeGetter("weekday", func(t time.Time) value.Value { return value.Int(int64(t.Weekday())) }),
	// yearday is 0-based to match date literals
	timeGetter("yearday", func(t time.Time) value.Value { return value.Int(int64(t.YearDay() - 1)) }),
	sunFunc("sunrise", false, false),
	sunFunc("dawn", false, true),
	sunFunc("sunset", true, false),
	sunFunc("dusk", true, true),
	{
		// formattime([epochtime][, layout]): strftime-like via Go layout
		Name: "formattime",
		Args: []evaluator.ArgDesc{{Types: evaluator.TypeNumeric, Optional: true}, {Types: evaluator.TypeText, Optional: true}},
		Impl: func(f *evaluator.BuiltinContext) {
			t := argOrNow(f, 0)
			layout := "2006-01-02 15:04:05"
			if f.HasArg(0) && f.Arg(0).Defined() && f.Arg(0).Num() <= 24*3600 {
				layout = "15:04:05"
			}
			if f.Arg(1).Defined() {
				layout = f.Arg(1).Str()
			}
			f.Finish(value.String(t.Format(layout)))
		},
	},
}
