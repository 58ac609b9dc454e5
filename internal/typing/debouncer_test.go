package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	mu  sync.Mutex
	got []bool
}

func (r *recorder) emit(active bool) {
	r.mu.Lock()
	r.got = append(r.got, active)
	r.mu.Unlock()
}

func (r *recorder) calls() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.got...)
}

func TestDebouncer_BurstEmitsOnce(t *testing.T) {
	var r recorder
	d := New(40*time.Millisecond, r.emit)

	for i := 0; i < 5; i++ {
		d.Keystroke()
		time.Sleep(10 * time.Millisecond)
	}
	if diff := cmp.Diff([]bool{true}, r.calls()); diff != "" {
		t.Errorf("during burst (-want +got):\n%s", diff)
	}

	time.Sleep(150 * time.Millisecond)
	if diff := cmp.Diff([]bool{true, false}, r.calls()); diff != "" {
		t.Errorf("after idle (-want +got):\n%s", diff)
	}
	if d.Active() {
		t.Error("Active() = true after idle window")
	}
}

func TestDebouncer_Flush(t *testing.T) {
	var r recorder
	d := New(50*time.Millisecond, r.emit)

	d.Flush()
	if len(r.calls()) != 0 {
		t.Errorf("Flush() while idle emitted %v", r.calls())
	}

	d.Keystroke()
	d.Flush()
	if diff := cmp.Diff([]bool{true, false}, r.calls()); diff != "" {
		t.Errorf("after flush (-want +got):\n%s", diff)
	}

	time.Sleep(120 * time.Millisecond)
	if diff := cmp.Diff([]bool{true, false}, r.calls()); diff != "" {
		t.Errorf("stale timer emitted again (-want +got):\n%s", diff)
	}

	d.Keystroke()
	if diff := cmp.Diff([]bool{true, false, true}, r.calls()); diff != "" {
		t.Errorf("new burst (-want +got):\n%s", diff)
	}
	d.Flush()
}

func TestDebouncer_SlowEmitDoesNotBlockState(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan bool, 4)
	d := New(time.Hour, func(active bool) {
		entered <- active
		<-release
	})

	go d.Keystroke()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("started was not emitted")
	}

	// The started call is still stuck in emit.
	done := make(chan bool)
	go func() {
		d.Keystroke()
		done <- d.Active()
	}()
	select {
	case active := <-done:
		if !active {
			t.Error("Active() = false during a burst")
		}
	case <-time.After(time.Second):
		t.Fatal("Keystroke blocked behind a running emit")
	}

	close(release)
	d.Flush()
	select {
	case active := <-entered:
		if active {
			t.Error("second emit = started, want stopped")
		}
	case <-time.After(time.Second):
		t.Fatal("stopped was not emitted")
	}
}

func TestDebouncer_OvertakenTransitionSkipped(t *testing.T) {
	var r recorder
	d := New(time.Hour, r.emit)

	d.mu.Lock()
	d.active = true
	started := d.nextTurn()
	d.active = false
	stopped := d.nextTurn()
	d.mu.Unlock()

	d.notify(false, stopped)
	d.notify(true, started)
	if diff := cmp.Diff([]bool{false}, r.calls()); diff != "" {
		t.Errorf("emitted (-want +got):\n%s", diff)
	}
}
