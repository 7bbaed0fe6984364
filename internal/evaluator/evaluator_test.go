package evaluator

import (
	"testing"
	"time"

	"github.com/funvibe/automa/internal/mainloop"
	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

func timeNowPlus(ms int) time.Time {
	return time.Now().Add(time.Duration(ms) * time.Millisecond)
}

// evalSync runs a script body to completion on the calling goroutine.
// No builtin functions are registered, this exercises the bare language.
func evalSync(t *testing.T, text string) value.Value {
	t.Helper()
	d := NewDomain(mainloop.New())
	m := NewMainContext(d, nil)
	code := NewCode("test", source.NewCursor(source.NewContainer("test", text)), FlagScriptBody)
	return m.ExecuteSynchronously(code, FlagScriptBody, 0)
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		script string
		want   float64
	}{
		{"return 2+3*4", 14},
		{"return (2+3)*4", 20},
		{"return 10-4-3", 3},
		{"return 10/5/2", 1},
		{"return 1+2 == 3", 1},
		{"return 2 < 1+2", 1},
		{"return 7 % 4 + 1", 4},
	}
	for _, tt := range tests {
		v := evalSync(t, tt.script)
		if v.IsError() {
			t.Errorf("%s: %s", tt.script, v.Str())
			continue
		}
		if v.Num() != tt.want {
			t.Errorf("%s = %v, want %v", tt.script, v.Num(), tt.want)
		}
	}
}

func TestComparisonsAndLogic(t *testing.T) {
	tests := []struct {
		script string
		want   bool
	}{
		{"return 1 < 2 && 3 >= 3", true},
		{"return 1 > 2 || 2 > 1", true},
		{"return 1 > 2 || 2 > 3", false},
		{"return !0", true},
		{"return !42", false},
		{"return 1 <> 2", true},
		{"return 1 != 1", false},
		{`return "abc" < "abd"`, true},
		{`return "abc" == "abc"`, true},
		// '=' at expression level compares
		{"return 3 = 3", true},
	}
	for _, tt := range tests {
		v := evalSync(t, tt.script)
		if v.IsError() {
			t.Errorf("%s: %s", tt.script, v.Str())
			continue
		}
		if v.Bool() != tt.want {
			t.Errorf("%s = %v, want %v", tt.script, v.Bool(), tt.want)
		}
	}
}

func TestLetAndUnset(t *testing.T) {
	v := evalSync(t, "var a = 1; let a = 2; return a")
	if v.Num() != 2 {
		t.Errorf("let assignment = %s, want 2", v.Str())
	}
	// let cannot create
	v = evalSync(t, "let b = 2; return b")
	if !v.IsError() {
		t.Errorf("let of undeclared variable yielded %s, want error", v.Str())
	}
	// unset removes the variable entirely
	v = evalSync(t, "var c = 1; unset c; return c")
	if !v.IsError() || v.Code() != value.ErrNotFound {
		t.Errorf("read after unset = %s, want not-found error", v.Str())
	}
}

func TestSkippedBranchParsesOver(t *testing.T) {
	// the false branch references an unknown function, which must not
	// matter as long as the branch is only parsed over
	v := evalSync(t, "var x = 0; if (x) unknownfunc(1, 2+3); return 5")
	if v.IsError() {
		t.Fatalf("skipped branch raised %s", v.Str())
	}
	if v.Num() != 5 {
		t.Errorf("got %v, want 5", v.Num())
	}
}

func TestStringIndexing(t *testing.T) {
	v := evalSync(t, `var s = "hello"; return s[1]`)
	if v.Str() != "e" {
		t.Errorf("s[1] = %q, want \"e\"", v.Str())
	}
}

func TestOperationOnUndefined(t *testing.T) {
	v := evalSync(t, "var u; return u + 1")
	if v.Defined() {
		t.Errorf("undefined + 1 = %s, want undefined", v.Str())
	}
	// comparisons against undefined stay defined
	v = evalSync(t, "var u; return u == 1")
	if v.Bool() {
		t.Error("undefined == 1 must be false")
	}
}

func TestWeekdayConstants(t *testing.T) {
	v := evalSync(t, "return sat - mon")
	if v.Num() != 5 {
		t.Errorf("sat-mon = %v, want 5", v.Num())
	}
}

func TestUnknownIdentifier(t *testing.T) {
	v := evalSync(t, "return nosuchthing")
	if !v.IsError() || v.Code() != value.ErrNotFound {
		t.Errorf("unknown identifier = %s, want not-found error", v.Str())
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, script := range []string{
		"if 1 return 2",
		"return (1+2",
		"var",
		"try { var x = 1 } var y = 2",
		"else return 1",
		"break",
		"return 1 ! 2",
	} {
		v := evalSync(t, script)
		if !v.IsError() {
			t.Errorf("%s: expected an error, got %s", script, v.Str())
		}
	}
}

func TestErrorAbortsStatementSequence(t *testing.T) {
	// an unraised error left by a statement must not let the next
	// statement run
	v := evalSync(t, "1/0; return 2")
	if !v.IsError() || v.Code() != value.ErrDivisionByZero {
		t.Errorf("got %s, want division error", v.Str())
	}
	v = evalSync(t, "var x = 0; while (x < 3) { x = x + 1; 1/0 }; return x")
	if !v.IsError() || v.Code() != value.ErrDivisionByZero {
		t.Errorf("error inside block = %s, want division error", v.Str())
	}
	// unless a try is waiting for it
	v = evalSync(t, `try { 1/0; return "unreached" } catch { return "caught" }`)
	if v.Str() != "caught" {
		t.Errorf("got %q, want \"caught\"", v.Str())
	}
}

func TestDeclareOnAssign(t *testing.T) {
	v := evalSync(t, "z := 7; return z + 1")
	if v.IsError() || v.Num() != 8 {
		t.Errorf("':=' declaration = %s, want 8", v.Str())
	}
	// plain '=' still needs a declared target
	v = evalSync(t, "q = 1")
	if !v.IsError() || v.Code() != value.ErrNotFound {
		t.Errorf("assignment to undeclared = %s, want not-found error", v.Str())
	}
}

func TestLiteralMemberAccess(t *testing.T) {
	v := evalSync(t, `return {"a":{"b":7}}.a.b`)
	if v.Num() != 7 {
		t.Errorf("nested field on object literal = %s, want 7", v.Str())
	}
	v = evalSync(t, `return [10,20,30][2]`)
	if v.Num() != 30 {
		t.Errorf("subscript on array literal = %s, want 30", v.Str())
	}
	v = evalSync(t, `return "hello"[1]`)
	if v.Str() != "e" {
		t.Errorf("subscript on string literal = %q, want \"e\"", v.Str())
	}
	// missing members read as annotated null, not as errors
	v = evalSync(t, `return {"a":1}.missing`)
	if v.Defined() || v.IsError() {
		t.Errorf("missing member = %s, want undefined", v.Str())
	}
}

func TestFreezeStore(t *testing.T) {
	code := NewCode("t", source.NewCursor(source.NewContainer("t", "1")), FlagExpression)
	id := FreezeID{Offset: 3, Arg: 0}
	until := timeNowPlus(50)
	code.freeze.set(id, &FrozenResult{Result: value.Int(7), Until: until})
	fr := code.freeze.get(id)
	if fr == nil || fr.Result.Num() != 7 {
		t.Fatal("frozen result not retrievable")
	}
	if !fr.Frozen(timeNowPlus(0)) {
		t.Error("result should still be frozen")
	}
	if fr.Frozen(timeNowPlus(100)) {
		t.Error("result should have thawed")
	}
	// a surviving freeze is a pending re-evaluation reason
	if next := code.TakeNextEval(); !next.Equal(until) {
		t.Errorf("TakeNextEval = %v, want the freeze expiry %v", next, until)
	}
	if !code.freeze.unfreeze(id) {
		t.Error("unfreeze failed")
	}
	if code.freeze.unfreeze(id) {
		t.Error("double unfreeze should fail")
	}
}
