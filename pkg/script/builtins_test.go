package script

import (
	"fmt"
	"testing"
	"time"
)

// The standard function library, exercised end to end through scripts.
func TestStandardFunctions(t *testing.T) {
	tests := []struct {
		script string
		want   string
	}{
		// conditionals and validity
		{`return if(1, "a", "b")`, "a"},
		{`return if(0, "a", "b")`, "b"},
		{`return ifvalid(undefined, 7)`, "7"},
		{`return ifvalid(3, 7)`, "3"},
		{`return isvalid(undefined)`, "0"},
		{`return isvalid(42)`, "1"},
		// numerics
		{`return abs(-3.5)`, "3.5"},
		{`return int(3.7)`, "3"},
		{`return frac(3.75)`, "0.75"},
		{`return round(2.5)`, "3"},
		{`return min(3, 1)`, "1"},
		{`return max(3, 1)`, "3"},
		{`return limited(5, 1, 3)`, "3"},
		{`return limited(0, 1, 3)`, "1"},
		{`return limited(2, 1, 3)`, "2"},
		{`return cyclic(8, 0, 5)`, "3"},
		{`return cyclic(-2, 0, 5)`, "3"},
		{`return maprange(5, 0, 10, 0, 100)`, "50"},
		// conversions
		{`return number("12:00")`, "43200"},
		{`return string(42)`, "42"},
		{`return number("garbage")`, "0"},
		// strings
		{`return strlen("abc")`, "3"},
		{`return substr("hello", 1, 3)`, "ell"},
		{`return substr("hello", -3)`, "llo"},
		{`return substr("hello", 99)`, ""},
		{`return find("hello", "ll")`, "2"},
		{`return isvalid(find("hello", "xyz"))`, "0"},
		{`return format("%05d!", 42)`, "00042!"},
		{`return format("%x", 255)`, "ff"},
		{`return format("%.2f", 1.2345)`, "1.23"},
		{`return format("%s-%d", "a", 1)`, "a-1"},
		{`return format("100%%")`, "100%"},
		// varargs
		{`return lastarg(1, 2, 3)`, "3"},
		{`return elements([1, 2, 3])`, "3"},
		// string concatenation via +
		{`return "a" + 42`, "a42"},
	}
	rt := newTestRuntime(t)
	for _, tt := range tests {
		v := runScript(t, rt, tt.script)
		if v.IsError() {
			t.Errorf("%s: %s", tt.script, v.Str())
			continue
		}
		if got := v.Str(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestRoundToPrecision(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, `return round(3.567, 0.01)`)
	if d := v.Num() - 3.57; d > 1e-9 || d < -1e-9 {
		t.Errorf("round(3.567, 0.01) = %v, want 3.57", v.Num())
	}
}

func TestFormatRejectsUnknownConversion(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, `return format("%q", 1)`)
	if !v.IsError() || v.Code() != ErrSyntax {
		t.Errorf("format with %%q = %s, want syntax error", v.Str())
	}
}

func TestFormatUndefinedArg(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, `return format("%d", undefined)`)
	if v.IsError() {
		t.Fatalf("unexpected error: %s", v.Str())
	}
	if got := v.Str(); got == "" || got[0] != '<' {
		t.Errorf("undefined arg rendered as %q, want annotation in angle brackets", got)
	}
}

func TestErrorIntrospection(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, `var e = error("oops"); return errordomain(e)`)
	if v.Str() != "ScriptError" {
		t.Errorf("errordomain = %q", v.Str())
	}
	v = runScript(t, rt, `return errormessage(error("oops"))`)
	if v.Str() != "oops" {
		t.Errorf("errormessage = %q", v.Str())
	}
	// passing a non-error yields undefined instead of failing
	v = runScript(t, rt, `return isvalid(errorcode(42))`)
	if v.Bool() {
		t.Errorf("errorcode of a number should be undefined")
	}
}

func TestRandomRange(t *testing.T) {
	rt := newTestRuntime(t)
	for i := 0; i < 5; i++ {
		v := runScript(t, rt, `return random(10, 20)`)
		if v.Num() < 10 || v.Num() >= 20 {
			t.Fatalf("random(10,20) = %v, out of range", v.Num())
		}
	}
}

func TestClockFunctions(t *testing.T) {
	rt := newTestRuntime(t)
	before := float64(time.Now().UnixNano()) / 1e9
	v := runScript(t, rt, `return epochtime()`)
	after := float64(time.Now().UnixNano()) / 1e9
	if v.Num() < before-1 || v.Num() > after+1 {
		t.Errorf("epochtime() = %v, wall clock is %v", v.Num(), before)
	}
	// field getters agree with an explicit epoch time argument
	ref := time.Date(2025, 7, 15, 13, 45, 30, 0, time.Local)
	tests := []struct {
		script string
		want   float64
	}{
		{`return hour(%d)`, 13},
		{`return minute(%d)`, 45},
		{`return second(%d)`, 30},
		{`return year(%d)`, 2025},
		{`return month(%d)`, 7},
		{`return day(%d)`, 15},
		{`return timeofday(%d)`, 13*3600 + 45*60 + 30},
	}
	for _, tt := range tests {
		script := fmt.Sprintf(tt.script, ref.Unix())
		if v := runScript(t, rt, script); v.Num() != tt.want {
			t.Errorf("%s = %v, want %v", script, v.Num(), tt.want)
		}
	}
}

func TestSunFunctionsNeedGeo(t *testing.T) {
	rt := newTestRuntime(t)
	if v := runScript(t, rt, `return isvalid(sunrise())`); v.Bool() {
		t.Error("sunrise() without geolocation should be undefined")
	}

	located := newTestRuntime(t, WithGeoLocation(47.4, 8.5))
	v := runScript(t, located, `return sunrise()`)
	if !v.Defined() {
		t.Fatalf("sunrise() with geolocation = %s", v.Str())
	}
	if v.Num() < 0 || v.Num() >= 24*3600 {
		t.Errorf("sunrise() = %v, want seconds within the day", v.Num())
	}
	dawn := runScript(t, located, `return dawn()`)
	if dawn.Num() >= v.Num() {
		t.Errorf("dawn (%v) should be before sunrise (%v)", dawn.Num(), v.Num())
	}
}
