package mainloop

import (
	"testing"
	"time"
)

func TestPostRunsInOrder(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	var got []int
	done := make(chan struct{})
	for i := 1; i <= 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted functions did not run")
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("execution order %v, want 1..5", got)
		}
	}
}

func TestExecuteOnceFires(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	fired := make(chan struct{})
	start := time.Now()
	l.ExecuteOnce(func() { close(fired) }, 20*time.Millisecond)
	select {
	case <-fired:
		if d := time.Since(start); d < 15*time.Millisecond {
			t.Errorf("timer fired after %v, too early", d)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestCancel(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	fired := make(chan struct{})
	ticket := l.ExecuteOnce(func() { close(fired) }, 50*time.Millisecond)
	if !l.Cancel(ticket) {
		t.Fatal("Cancel returned false for a pending timer")
	}
	if l.Cancel(ticket) {
		t.Error("second Cancel of the same ticket should fail")
	}
	select {
	case <-fired:
		t.Fatal("cancelled timer fired anyway")
	case <-time.After(120 * time.Millisecond):
	}
}

func TestTimerOrdering(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	var got []string
	done := make(chan struct{})
	l.ExecuteOnce(func() {
		got = append(got, "late")
		close(done)
	}, 40*time.Millisecond)
	l.ExecuteOnce(func() { got = append(got, "early") }, 10*time.Millisecond)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timers did not fire")
	}
	if len(got) != 2 || got[0] != "early" || got[1] != "late" {
		t.Errorf("firing order %v, want [early late]", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := New()
	l.Start()
	l.Stop()
	l.Stop()
}
