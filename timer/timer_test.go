package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerManager_OneShot(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	fired := make(chan time.Time, 1)
	start := time.Now()
	m.AddTimer(20*time.Millisecond, 0, func() { fired <- time.Now() })

	select {
	case at := <-fired:
		if at.Sub(start) < 20*time.Millisecond {
			t.Errorf("Timer fired too early after %v", at.Sub(start))
		}
	case <-time.After(time.Second):
		t.Fatal("Timer never fired")
	}

	if m.Pending() != 0 {
		t.Errorf("Expected no pending timers after a one-shot fired, got %d", m.Pending())
	}
}

func TestTimerManager_Order(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)
	record := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			wg.Done()
		}
	}

	m.AddTimer(60*time.Millisecond, 0, record(3))
	m.AddTimer(10*time.Millisecond, 0, record(1))
	m.AddTimer(35*time.Millisecond, 0, record(2))
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, n := range order {
		if n != i+1 {
			t.Fatalf("Expected timers to fire in deadline order, got %v", order)
		}
	}
}

func TestTimerManager_RemoveTimer(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var fired atomic.Bool
	id := m.AddTimer(30*time.Millisecond, 0, func() { fired.Store(true) })

	if !m.RemoveTimer(id) {
		t.Fatal("RemoveTimer should report a pending timer")
	}
	if m.RemoveTimer(id) {
		t.Error("RemoveTimer should report false for an already removed timer")
	}

	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Error("Removed timer must not fire")
	}
}

func TestTimerManager_Interval(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var count atomic.Int32
	id := m.AddTimer(5*time.Millisecond, 10*time.Millisecond, func() { count.Add(1) })

	deadline := time.Now().Add(time.Second)
	for count.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Repeating timer fired only %d times", count.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.RemoveTimer(id)
	if m.Pending() != 0 {
		t.Errorf("Expected no pending timers after removal, got %d", m.Pending())
	}
}

func TestTimerManager_Stop(t *testing.T) {
	m := NewTimerManager()

	var fired atomic.Bool
	m.AddTimer(20*time.Millisecond, 0, func() { fired.Store(true) })
	m.Stop()
	m.Stop()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Error("Timers must not fire after Stop")
	}
}
