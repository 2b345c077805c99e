package watcher

import (
	"fmt"
	"testing"
	"time"
)

func TestDebouncer_SingleArrival(t *testing.T) {
	d := NewDebouncer(50)
	defer d.Stop()

	d.Add("clip.mp4")

	select {
	case a := <-d.Arrivals():
		if a.Name != "clip.mp4" {
			t.Errorf("expected 'clip.mp4', got %q", a.Name)
		}
	case <-time.After(200 * time.Millisecond):
		t.Error("timed out waiting for arrival")
	}
}

func TestDebouncer_CoalescesWriteBurst(t *testing.T) {
	d := NewDebouncer(100)
	defer d.Stop()

	// A file being copied in fires many write events.
	d.Add("clip.mp4")
	d.Add("clip.mp4")
	d.Add("clip.mp4")

	count := 0
	timeout := time.After(300 * time.Millisecond)

loop:
	for {
		select {
		case <-d.Arrivals():
			count++
		case <-timeout:
			break loop
		}
	}

	if count != 1 {
		t.Errorf("expected 1 coalesced arrival, got %d", count)
	}
}

func TestDebouncer_MultipleFiles(t *testing.T) {
	d := NewDebouncer(50)
	defer d.Stop()

	d.Add("one.mp4")
	d.Add("two.mov")

	received := make(map[string]bool)
	timeout := time.After(200 * time.Millisecond)

loop:
	for {
		select {
		case a := <-d.Arrivals():
			received[a.Name] = true
			if len(received) == 2 {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	if !received["one.mp4"] || !received["two.mov"] {
		t.Errorf("expected both files, got %v", received)
	}
}

func TestDebouncer_StopWithBlockedEmits(t *testing.T) {
	d := NewDebouncer(1)

	// More files than the output buffer holds, with nobody draining, so
	// fired timers end up blocked mid-send when Stop runs.
	for i := 0; i < 150; i++ {
		d.Add(fmt.Sprintf("clip-%03d.mp4", i))
	}
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return with emits in flight")
	}

	// The output channel must end up closed, never panicked on.
	for range d.Arrivals() {
	}

	// A second Stop is a no-op.
	d.Stop()
}

func TestDebouncer_Flush(t *testing.T) {
	d := NewDebouncer(5000)
	defer d.Stop()

	d.Add("clip.mp4")

	if d.PendingCount() != 1 {
		t.Errorf("expected 1 pending, got %d", d.PendingCount())
	}

	d.Flush()

	select {
	case a := <-d.Arrivals():
		if a.Name != "clip.mp4" {
			t.Errorf("expected 'clip.mp4', got %q", a.Name)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("flush should emit immediately")
	}

	if d.PendingCount() != 0 {
		t.Errorf("expected 0 pending after flush, got %d", d.PendingCount())
	}
}
