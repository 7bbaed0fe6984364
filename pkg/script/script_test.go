package script

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/automa/internal/storage"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(rt.Stop)
	return rt
}

// runScript runs text in a fresh source and waits for the result.
func runScript(t *testing.T, rt *Runtime, text string) Value {
	t.Helper()
	src := rt.NewSource("test")
	src.SetSource(text)
	done := make(chan Value, 1)
	src.Run(ScriptBody, func(v Value) { done <- v })
	select {
	case v := <-done:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("script did not finish: %s", text)
		return Null()
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		script string
		want   float64
	}{
		{"return 12*3+7", 43},
		{"return 12*(3+7)", 120},
		{"return 10-2-3", 5},
		{"return 2+3*4", 14},
		{"return 7 % 4", 3},
		{"return -3+5", 2},
		{"return 0x10", 16},
	}
	rt := newTestRuntime(t)
	for _, tt := range tests {
		v := runScript(t, rt, tt.script)
		if v.IsError() {
			t.Errorf("%s: %s", tt.script, v.Str())
			continue
		}
		if v.Num() != tt.want {
			t.Errorf("%s = %v, want %v", tt.script, v.Num(), tt.want)
		}
	}
}

func TestScriptBodyYieldsLastStatement(t *testing.T) {
	rt := newTestRuntime(t)
	if v := runScript(t, rt, "12 * 3 + 7"); v.Num() != 43 {
		t.Errorf("bare expression body = %v, want 43", v.Num())
	}
}

func TestNullComparisons(t *testing.T) {
	tests := []struct {
		script string
		want   bool
	}{
		{"return null == undefined", true},
		{"return undefined != 42", true},
		{"return 42 == undefined", false},
		{"return undefined == 42", false},
	}
	rt := newTestRuntime(t)
	for _, tt := range tests {
		v := runScript(t, rt, tt.script)
		if v.Bool() != tt.want {
			t.Errorf("%s = %v, want %v", tt.script, v.Bool(), tt.want)
		}
	}
}

func TestTimeLiteral(t *testing.T) {
	rt := newTestRuntime(t)
	if v := runScript(t, rt, "return 14:57:42"); v.Num() != 53862 {
		t.Errorf("time literal = %v, want 53862", v.Num())
	}
}

func TestDivisionByZero(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, "return 1/0")
	if !v.IsError() || v.Code() != ErrDivisionByZero {
		t.Errorf("1/0 = %s, want DivisionByZero error", v.Str())
	}
}

func TestVariables(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, "var x = 4321; x = x + 1234; return x")
	if v.Num() != 5555 {
		t.Errorf("got %v, want 5555", v.Num())
	}
	// assigning an undeclared variable is an error
	v = runScript(t, rt, "y = 1")
	if !v.IsError() {
		t.Errorf("assignment to undeclared variable yielded %s, want error", v.Str())
	}
	// := declares on assignment
	v = runScript(t, rt, "z := 7; return z")
	if v.Num() != 7 {
		t.Errorf(":= declaration got %v, want 7", v.Num())
	}
}

func TestIfElseChain(t *testing.T) {
	script := `
		var verbal;
		var n = 1;
		if (n==1) verbal = "one"
		else if (n==2) verbal = "two"
		else verbal = "many";
		return verbal`
	rt := newTestRuntime(t)
	if v := runScript(t, rt, script); v.Str() != "one" {
		t.Errorf("if/else chain = %q, want \"one\"", v.Str())
	}
}

func TestWhileLoop(t *testing.T) {
	script := `
		var i = 0;
		var sum = 0;
		while (i < 10) {
			i = i + 1;
			if (i > 3) break;
			sum = sum + i;
		}
		return sum`
	rt := newTestRuntime(t)
	if v := runScript(t, rt, script); v.Num() != 6 {
		t.Errorf("loop sum = %v, want 6", v.Num())
	}
}

func TestContinue(t *testing.T) {
	script := `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			i = i + 1;
			if (i == 3) continue;
			sum = sum + i;
		}
		return sum`
	rt := newTestRuntime(t)
	if v := runScript(t, rt, script); v.Num() != 12 {
		t.Errorf("sum with continue = %v, want 12", v.Num())
	}
}

func TestFunctions(t *testing.T) {
	script := `
		function add(a, b) {
			return a + b
		}
		return add(3, add(1, 3))`
	rt := newTestRuntime(t)
	if v := runScript(t, rt, script); v.Num() != 7 {
		t.Errorf("function call = %v, want 7", v.Num())
	}
}

func TestThrowAndCatch(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, `try { throw("boom") } catch as e { return errormessage(e) }`)
	if v.Str() != "boom" {
		t.Errorf("caught message = %q, want \"boom\"", v.Str())
	}
	v = runScript(t, rt, `try { var x = 1/0; return "unreached" } catch { return "caught" }`)
	if v.Str() != "caught" {
		t.Errorf("division error not caught, got %q", v.Str())
	}
	// error() produces a value that does not throw by itself
	v = runScript(t, rt, `var e = error("bad"); return errormessage(e)`)
	if v.Str() != "bad" {
		t.Errorf("error value message = %q, want \"bad\"", v.Str())
	}
	// uncaught throw terminates with the error
	v = runScript(t, rt, `throw("unhandled"); return "unreached"`)
	if !v.IsError() || v.Code() != ErrUser {
		t.Errorf("uncaught throw = %s, want user error", v.Str())
	}
}

func TestJSONAccess(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, `return {"a":{"b":7},"list":[10,20,30]}.a.b`)
	if v.Num() != 7 {
		t.Errorf("nested field = %v, want 7", v.Num())
	}
	v = runScript(t, rt, `var d = {"list":[10,20,30]}; return d.list[1]`)
	if v.Num() != 20 {
		t.Errorf("array subscript = %v, want 20", v.Num())
	}
	v = runScript(t, rt, `return {"a":1}.missing`)
	if v.Defined() {
		t.Errorf("missing field = %s, want undefined", v.Str())
	}
}

func TestDelaySuspends(t *testing.T) {
	rt := newTestRuntime(t)
	start := time.Now()
	v := runScript(t, rt, `delay(0.1); return "after"`)
	if v.Str() != "after" {
		t.Fatalf("got %q", v.Str())
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("script finished after %v, delay did not suspend", elapsed)
	}
}

func TestAbort(t *testing.T) {
	rt := newTestRuntime(t)
	src := rt.NewSource("abort-test")
	src.SetSource(`delay(10); return "never"`)
	done := make(chan Value, 1)
	src.Run(ScriptBody, func(v Value) { done <- v })
	time.Sleep(50 * time.Millisecond)
	if !src.Evaluating() {
		t.Fatal("script should be suspended in delay()")
	}
	src.Abort()
	select {
	case v := <-done:
		if !v.IsError() || v.Code() != ErrAborted {
			t.Errorf("aborted run finished with %s, want aborted error", v.Str())
		}
	case <-time.After(time.Second):
		t.Fatal("abort did not complete the thread")
	}
	if src.Evaluating() {
		t.Error("source still evaluating after abort")
	}
	select {
	case v := <-done:
		t.Fatalf("callback fired twice, second result %s", v.Str())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDefaultPolicyRejectsSecondRun(t *testing.T) {
	rt := newTestRuntime(t)
	src := rt.NewSource("busy-test")
	src.SetSource(`delay(0.3); return 1`)
	first := make(chan Value, 1)
	second := make(chan Value, 1)
	src.Run(ScriptBody, func(v Value) { first <- v })
	time.Sleep(30 * time.Millisecond)
	src.Run(ScriptBody, func(v Value) { second <- v })
	select {
	case v := <-second:
		if !v.IsError() || v.Code() != ErrBusy {
			t.Errorf("second run got %s, want busy error", v.Str())
		}
	case <-time.After(time.Second):
		t.Fatal("busy rejection did not arrive")
	}
	if v := <-first; v.Num() != 1 {
		t.Errorf("first run disturbed, got %s", v.Str())
	}
}

func TestStopRunningPreempts(t *testing.T) {
	rt := newTestRuntime(t)
	src := rt.NewSource("preempt-test")
	src.SetSource(`delay(10); return 1`)
	first := make(chan Value, 1)
	src.Run(ScriptBody, func(v Value) { first <- v })
	time.Sleep(30 * time.Millisecond)

	src.SetSource(`return 7`)
	second := make(chan Value, 1)
	src.Run(ScriptBody|StopRunning, func(v Value) { second <- v })
	v := <-first
	if !v.IsError() || v.Code() != ErrAborted {
		t.Errorf("pre-empted run finished with %s, want aborted error", v.Str())
	}
	if v := <-second; v.Num() != 7 {
		t.Errorf("pre-empting run = %s, want 7", v.Str())
	}
}

func TestQueuePolicyRunsFIFO(t *testing.T) {
	rt := newTestRuntime(t)
	src := rt.NewSource("queue-test")
	src.SetSource(`delay(0.05); return 1`)
	results := make(chan float64, 3)
	cb := func(v Value) { results <- v.Num() }
	src.Run(ScriptBody|Queue, cb)
	src.Run(ScriptBody|Queue, cb)
	src.Run(ScriptBody|Queue, cb)
	for i := 0; i < 3; i++ {
		select {
		case n := <-results:
			if n != 1 {
				t.Errorf("queued run %d = %v, want 1", i, n)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("queued run %d never finished", i)
		}
	}
}

func TestSetSourceIdempotent(t *testing.T) {
	rt := newTestRuntime(t)
	src := rt.NewSource("idem-test")
	if !src.SetSource("return 1") {
		t.Error("first SetSource must report a change")
	}
	if src.SetSource("return 1") {
		t.Error("identical text must not count as a change")
	}
	if !src.SetSource("return 2") {
		t.Error("different text must count as a change")
	}
	if src.Text() != "return 2" {
		t.Errorf("Text() = %q", src.Text())
	}
}

func TestEvaluateSynchronously(t *testing.T) {
	rt := newTestRuntime(t)
	src := rt.NewSource("sync-test")
	src.SetSource("return 6*7")
	if v := src.EvaluateSynchronously(); v.Num() != 42 {
		t.Errorf("sync eval = %s, want 42", v.Str())
	}
	// async functions are rejected in synchronous evaluation
	src.SetSource("delay(1); return 1")
	if v := src.EvaluateSynchronously(); !v.IsError() || v.Code() != ErrAsyncNotAllowed {
		t.Errorf("sync eval of async script = %s, want async-not-allowed error", v.Str())
	}
}

func TestConcurrentBlockAndAbort(t *testing.T) {
	rt := newTestRuntime(t)
	script := `
		concurrent as worker { delay(10); }
		abort(worker);
		return "done"`
	if v := runScript(t, rt, script); v.Str() != "done" {
		t.Errorf("got %s, want \"done\"", v.Str())
	}
}

func TestEvalBuiltin(t *testing.T) {
	rt := newTestRuntime(t)
	v := runScript(t, rt, `return eval("return arg1 + arg2", 3, 4)`)
	if v.Num() != 7 {
		t.Errorf("eval = %s, want 7", v.Str())
	}
	// errors in evaluated code come back as values, not throws
	v = runScript(t, rt, `var r = eval("return 1/0"); return isvalid(r)`)
	if v.Bool() {
		t.Errorf("eval error should yield an invalid value, isvalid = %v", v.Bool())
	}
}

func TestHostVariables(t *testing.T) {
	rt := newTestRuntime(t)
	src := rt.NewSource("hostvar-test")
	src.SetVar("input", Number(21))
	src.SetSource("var result = input * 2; return result")
	done := make(chan Value, 1)
	src.Run(ScriptBody|KeepVars, func(v Value) { done <- v })
	if v := <-done; v.Num() != 42 {
		t.Errorf("got %s, want 42", v.Str())
	}
}

func TestGlobalsSharedAcrossSources(t *testing.T) {
	rt := newTestRuntime(t)
	if v := runScript(t, rt, "glob shared = 11"); v.IsError() {
		t.Fatalf("glob declaration failed: %s", v.Str())
	}
	if v := runScript(t, rt, "return shared + 1"); v.Num() != 12 {
		t.Errorf("global read from second source = %s, want 12", v.Str())
	}
	g, ok := rt.Global("shared")
	if !ok || g.Num() != 11 {
		t.Errorf("host-side global = %v %v, want 11", g, ok)
	}
}

func TestPersistentGlobals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globals.db")
	st, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rt, err := New(WithStore(st))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v := runScript(t, rt, "glob persisted = 123"); v.IsError() {
		t.Fatalf("glob declaration failed: %s", v.Str())
	}
	rt.Stop()
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// a fresh runtime on the same database sees the value again
	st2, err := storage.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { st2.Close() })
	rt2 := newTestRuntime(t, WithStore(st2))
	if v := runScript(t, rt2, "return persisted + 1"); v.Num() != 124 {
		t.Errorf("persisted global = %s, want 124", v.Str())
	}
	// re-running the declaration must not clobber the stored value
	if v := runScript(t, rt2, "glob persisted = 999; return persisted"); v.Num() != 123 {
		t.Errorf("glob re-declaration clobbered value, got %s", v.Str())
	}
}

func TestLogOutput(t *testing.T) {
	var buf strings.Builder
	rt := newTestRuntime(t, WithOutput(&buf))
	runScript(t, rt, `log("hello from script")`)
	if !strings.Contains(buf.String(), "hello from script") {
		t.Errorf("log output missing, got %q", buf.String())
	}
}
