package clock

import (
	"testing"
	"time"
)

var start = time.Unix(1700000000, 0)

func TestFakeTimeoutFiresOnce(t *testing.T) {
	f := NewFake(start)

	fired := 0
	f.SetTimeout(func() { fired++ }, 5*time.Second)

	f.Advance(4 * time.Second)
	if fired != 0 {
		t.Fatal("timeout fired before its deadline")
	}

	f.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("expected one firing, got %d", fired)
	}

	f.Advance(time.Minute)
	if fired != 1 {
		t.Errorf("timeout fired again, got %d", fired)
	}
}

func TestFakeIntervalReschedules(t *testing.T) {
	f := NewFake(start)

	var at []time.Time
	f.SetInterval(func() { at = append(at, f.Now()) }, 10*time.Second)

	f.Advance(35 * time.Second)

	if len(at) != 3 {
		t.Fatalf("expected 3 firings in 35s, got %d", len(at))
	}
	for i, want := range []time.Duration{10, 20, 30} {
		if got := at[i].Sub(start); got != want*time.Second {
			t.Errorf("firing %d at +%v, want +%vs", i, got, want)
		}
	}
	if f.Now() != start.Add(35*time.Second) {
		t.Errorf("clock landed at %v, want +35s", f.Now().Sub(start))
	}
}

func TestFakeRunsDueTasksInOrder(t *testing.T) {
	f := NewFake(start)

	var order []string
	f.SetTimeout(func() { order = append(order, "late") }, 3*time.Second)
	f.SetTimeout(func() { order = append(order, "early") }, time.Second)

	f.Advance(5 * time.Second)

	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Errorf("expected due order [early late], got %v", order)
	}
}

func TestFakeNowAdvancesWithCallback(t *testing.T) {
	f := NewFake(start)

	var seen time.Time
	f.SetTimeout(func() { seen = f.Now() }, 2*time.Second)

	f.Advance(10 * time.Second)

	if seen != start.Add(2*time.Second) {
		t.Errorf("callback observed %v, want the due time +2s", seen.Sub(start))
	}
}

func TestFakeStopCancelsTasks(t *testing.T) {
	f := NewFake(start)

	fired := false
	f.SetInterval(func() { fired = true }, time.Second)
	f.Stop()

	f.Advance(time.Minute)
	if fired {
		t.Error("task fired after Stop")
	}
}

func TestRealStopIsIdempotent(t *testing.T) {
	r := NewReal()
	r.SetTimeout(func() {}, time.Hour)
	r.SetInterval(func() {}, time.Hour)
	r.Stop()
	r.Stop()

	// Scheduling after Stop is a no-op rather than a panic.
	r.SetTimeout(func() {}, time.Hour)
	r.SetInterval(func() {}, time.Hour)
}
