package timer

import (
	"runtime"
	"testing"
	"time"
)

func waitForElapsed(t *testing.T, tm *Timer, min int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for tm.Elapsed() < min {
		if time.Now().After(deadline) {
			t.Fatalf("elapsed = %d, want >= %d", tm.Elapsed(), min)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestTimer_StartStop(t *testing.T) {
	tm := NewWithInterval(5 * time.Millisecond)

	if tm.Running() {
		t.Fatal("new timer should not be running")
	}
	if tm.Elapsed() != 0 {
		t.Fatalf("new timer elapsed = %d, want 0", tm.Elapsed())
	}

	tm.Start()
	if !tm.Running() {
		t.Fatal("timer should be running after Start")
	}
	waitForElapsed(t, tm, 2)

	tm.Stop()
	if tm.Running() {
		t.Error("timer should not be running after Stop")
	}
	if tm.Elapsed() != 0 {
		t.Errorf("elapsed after Stop = %d, want 0", tm.Elapsed())
	}

	// no ticks land after Stop returns
	time.Sleep(20 * time.Millisecond)
	if tm.Elapsed() != 0 {
		t.Errorf("elapsed changed after Stop: %d", tm.Elapsed())
	}
}

func TestTimer_RestartResets(t *testing.T) {
	tm := NewWithInterval(5 * time.Millisecond)
	defer tm.Stop()

	tm.Start()
	waitForElapsed(t, tm, 3)

	tm.Start()
	if got := tm.Elapsed(); got > 1 {
		t.Errorf("elapsed right after restart = %d, want 0 or 1", got)
	}
}

func TestTimer_ReentrantStartSingleTicker(t *testing.T) {
	tm := NewWithInterval(time.Hour)
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		tm.Start()
	}
	after := runtime.NumGoroutine()
	if after-before > 1 {
		t.Errorf("goroutines grew by %d after repeated Start, want at most 1", after-before)
	}

	tm.Stop()
}

func TestTimer_StopWithoutStart(t *testing.T) {
	tm := New()
	tm.Stop()
	tm.Stop()
	if tm.Elapsed() != 0 {
		t.Errorf("elapsed = %d, want 0", tm.Elapsed())
	}
}

func TestNewWithInterval_InvalidFallsBack(t *testing.T) {
	tm := NewWithInterval(0)
	if tm.interval != time.Second {
		t.Errorf("interval = %v, want 1s", tm.interval)
	}
}
