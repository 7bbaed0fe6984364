package script

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerReportsInitialEvaluation(t *testing.T) {
	rt := newTestRuntime(t)
	got := make(chan Value, 1)
	tr := rt.NewTrigger("t", "1+1", OnEvaluation, func(v Value) { got <- v })
	tr.Arm()
	select {
	case v := <-got:
		if v.Num() != 2 {
			t.Errorf("trigger result = %s, want 2", v.Str())
		}
	case <-time.After(time.Second):
		t.Fatal("initial evaluation never reported")
	}
	if tr.Last().Num() != 2 {
		t.Errorf("Last() = %s", tr.Last().Str())
	}
}

func TestOnChangeSkipsBaseline(t *testing.T) {
	rt := newTestRuntime(t)
	var fires int32
	tr := rt.NewTrigger("t", "42", OnChange, func(Value) { atomic.AddInt32(&fires, 1) })
	tr.Arm()
	time.Sleep(100 * time.Millisecond)
	tr.Check()
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 0 {
		t.Errorf("constant expression fired %d times, want 0", n)
	}
}

func TestEveryFiresPeriodically(t *testing.T) {
	rt := newTestRuntime(t)
	var fires int32
	tr := rt.NewTrigger("t", "every(0.5)", OnGettingTrue, func(v Value) {
		if v.Bool() {
			atomic.AddInt32(&fires, 1)
		}
	})
	tr.Arm()
	time.Sleep(1800 * time.Millisecond)
	tr.Disarm()
	n := atomic.LoadInt32(&fires)
	// initial fire plus at least two periodic ones
	if n < 3 {
		t.Errorf("every(0.5) fired %d times in 1.8s, want >= 3", n)
	}
	// no more fires after disarm
	time.Sleep(700 * time.Millisecond)
	if after := atomic.LoadInt32(&fires); after != n {
		t.Errorf("trigger fired %d more times after Disarm", after-n)
	}
}

func TestInitialFunction(t *testing.T) {
	rt := newTestRuntime(t)
	got := make(chan Value, 4)
	tr := rt.NewTrigger("t", "initial()", OnEvaluation, func(v Value) { got <- v })
	tr.Arm()
	select {
	case v := <-got:
		if !v.Bool() {
			t.Error("initial() should be true on the first trigger evaluation")
		}
	case <-time.After(time.Second):
		t.Fatal("no evaluation")
	}
	tr.Check()
	select {
	case v := <-got:
		if v.Bool() {
			t.Error("initial() should be false on later evaluations")
		}
	case <-time.After(time.Second):
		t.Fatal("forced check never evaluated")
	}
}

func TestTestlaterDelaysResult(t *testing.T) {
	rt := newTestRuntime(t)
	results := make(chan Value, 4)
	tr := rt.NewTrigger("t", "testlater(0.2, 7)", OnEvaluation, func(v Value) { results <- v })
	tr.Arm()
	select {
	case v := <-results:
		if v.Defined() {
			t.Errorf("initial evaluation = %s, want undefined", v.Str())
		}
	case <-time.After(time.Second):
		t.Fatal("no initial evaluation")
	}
	// a regular evaluation starts the wait
	tr.Check()
	select {
	case v := <-results:
		if v.Defined() {
			t.Errorf("evaluation starting the wait = %s, want undefined", v.Str())
		}
	case <-time.After(time.Second):
		t.Fatal("forced check never evaluated")
	}
	// the timed re-evaluation delivers the test value
	select {
	case v := <-results:
		if v.Num() != 7 {
			t.Errorf("timed evaluation = %s, want 7", v.Str())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed re-evaluation never happened")
	}
	tr.Disarm()
}
