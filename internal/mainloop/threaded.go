package mainloop

import (
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

// ThreadedLoop runs a Loop on its own goroutine and gives other
// goroutines a way to safely reach into it. Any embedding that exposes
// a threaded API over Core — httpapi does — must own a mainloop-lock
// around the loop iteration and acquire it around every core call it
// marshals in, since HTTP handlers run on their own goroutines but Core
// itself has no locking of its own.
//
// The lock is a plain mutex held by the loop goroutine for the
// duration of each Iterate, including the blocking poll. A self-pipe
// registered as an IOEvent lets Lock wake a parked poll immediately
// instead of waiting out whatever timer happens to be pending next.
type ThreadedLoop struct {
	Loop *Loop

	mu sync.Mutex
	wakeReadFD int
	wakeWriteFD int

	done chan int
	log *slog.Logger
}

// NewThreaded builds a Loop plus the plumbing needed to drive it from
// a dedicated goroutine while still accepting marshaled calls from
// others.
func NewThreaded(log *slog.Logger) (*ThreadedLoop, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
 return nil, err
	}
	t := &ThreadedLoop{
 Loop: New(log),
 wakeReadFD: fds[0],
 wakeWriteFD: fds[1],
 done: make(chan int, 1),
 log: log,
	}
	t.Loop.NewIO(t.wakeReadFD, IOInput, t.drainWake)
	return t, nil
}

func (t *ThreadedLoop) drainWake(loop *Loop, e *IOEvent, fd int, flags IOFlags) {
	var buf [64]byte
	for {
 n, err := unix.Read(fd, buf[:])
 if n <= 0 || err != nil {
 return
 }
	}
}

// Start runs the loop on a new goroutine until Stop is called or the
// loop's own Quit fires. Safe to call once.
func (t *ThreadedLoop) Start() {
	go func() {
 for {
 t.mu.Lock()
 done, retval := t.Loop.Iterate(true)
 t.mu.Unlock()
 if done {
 t.done <- retval
 return
 }
 }
	}()
}

// Stop requests the loop exit and waits for the goroutine started by
// Start to return, yielding the value passed to Loop.Quit.
func (t *ThreadedLoop) Stop() int {
	t.Loop.Quit(0)
	t.wake()
	return <-t.done
}

// wake writes a byte to the self-pipe so a blocked poll returns right
// away instead of sitting out its current timeout.
func (t *ThreadedLoop) wake() {
	var b [1]byte
	unix.Write(t.wakeWriteFD, b[:])
}

// Lock acquires the mainloop lock, blocking until the loop goroutine
// is between iterations. Every call into Core from outside the loop
// goroutine must happen between Lock and Unlock.
func (t *ThreadedLoop) Lock() {
	t.wake()
	t.mu.Lock()
}

// Unlock releases the mainloop lock acquired by Lock.
func (t *ThreadedLoop) Unlock() {
	t.mu.Unlock()
}

// WithLock runs fn with the mainloop lock held and releases it
// afterwards even if fn panics.
func (t *ThreadedLoop) WithLock(fn func()) {
	t.Lock()
	defer t.Unlock()
	fn()
}
