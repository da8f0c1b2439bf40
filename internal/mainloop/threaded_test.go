package mainloop

import (
	"testing"
	"time"
)

func TestThreadedLoopWithLockMarshalsOntoLoopGoroutine(t *testing.T) {
	tl, err := NewThreaded(nil)
	if err != nil {
 t.Fatalf("NewThreaded: %v", err)
	}
	tl.Start()

	var counter int
	for i := 0; i < 50; i++ {
 tl.WithLock(func() { counter++ })
	}

	tl.WithLock(func() {
 if counter != 50 {
 t.Fatalf("counter = %d, want 50", counter)
 }
	})

	if got := tl.Stop(); got != 0 {
 t.Fatalf("Stop = %d, want 0", got)
	}
}

func TestThreadedLoopLockInterruptsBlockingPoll(t *testing.T) {
	tl, err := NewThreaded(nil)
	if err != nil {
 t.Fatalf("NewThreaded: %v", err)
	}
	tl.Start()

	done := make(chan struct{})
	go func() {
 defer close(done)
 tl.WithLock(func() {})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
 t.Fatal("Lock did not return promptly; poll was not woken")
	}

	tl.Stop()
}
