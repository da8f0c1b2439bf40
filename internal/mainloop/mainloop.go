// Package mainloop implements the single-threaded, cooperative event loop
// every pulsed component runs on: I/O events on file descriptors, timer
// events at an absolute deadline, and deferred events that fire once per
// iteration until explicitly disabled. There is no
// internal locking — callbacks never preempt each other, because nothing
// here ever calls out to a second goroutine. A handle freed from inside
// its own callback is only marked dead; it is swept at the start of the
// next iteration, never mid-dispatch.
package mainloop

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"
)

// IOFlags describes which conditions on a file descriptor an IOEvent
// should wake for, and which conditions a dispatch actually observed.
type IOFlags int

const (
	IOInput IOFlags = 1 << iota
	IOOutput
	IOHangup
	IOError
)

// IOCallback is invoked when fd becomes ready per the event's enabled
// flags, or when the poll reports hangup/error regardless of flags.
type IOCallback func(loop *Loop, e *IOEvent, fd int, flags IOFlags)

// TimeCallback is invoked once when a TimeEvent's deadline has passed.
// The event is disabled before the callback runs; the callback must call
// RestartTime to re-arm it for another deadline.
type TimeCallback func(loop *Loop, e *TimeEvent, deadline time.Time)

// DeferCallback is invoked once per iteration while the event is enabled.
type DeferCallback func(loop *Loop, e *DeferEvent)

// IOEvent is a handle returned by NewIO.
type IOEvent struct {
	fd int
	flags IOFlags
	callback IOCallback
	dead bool
	pollIdx int // index into loop.pollfds while valid, -1 otherwise
}

// TimeEvent is a handle returned by NewTime.
type TimeEvent struct {
	deadline time.Time
	enabled bool
	callback TimeCallback
	dead bool
}

// DeferEvent is a handle returned by NewDefer.
type DeferEvent struct {
	enabled bool
	callback DeferCallback
	dead bool
}

// Loop is a single mainloop instance. Nothing in Loop is safe to touch
// from a second goroutine; every event callback, and every call into
// Loop's own methods, must happen on the goroutine running Run/Iterate.
type Loop struct {
	ioEvents []*IOEvent
	timeEvents []*TimeEvent
	deferEvents []*DeferEvent
	pollfds []unix.PollFd
	rebuildPolls bool

	ioScanDead, timeScanDead, deferScanDead bool

	quit bool
	retval int
	running bool

	log *slog.Logger
}

// New creates an empty event loop, logging poll errors to log (pass nil
// to stay silent — used in tests that deliberately drive a closed fd).
func New(log *slog.Logger) *Loop {
	return &Loop{rebuildPolls: false, log: log}
}

// NewIO registers a callback for fd, watching for the given flags.
// IOHangup/IOError are always reported regardless of which flags are
// requested, matching poll(2)'s own behavior.
func (l *Loop) NewIO(fd int, flags IOFlags, cb IOCallback) *IOEvent {
	e := &IOEvent{fd: fd, flags: flags, callback: cb, pollIdx: -1}
	l.ioEvents = append(l.ioEvents, e)
	l.rebuildPolls = true
	return e
}

// EnableIO changes which conditions e watches.
func (l *Loop) EnableIO(e *IOEvent, flags IOFlags) {
	e.flags = flags
	l.rebuildPolls = true
}

// FreeIO marks e for removal at the start of the next iteration.
func (l *Loop) FreeIO(e *IOEvent) {
	e.dead = true
	l.ioScanDead = true
	l.rebuildPolls = true
}

// NewTime registers a one-shot timer for the given absolute deadline.
// A zero deadline creates the event disabled; arm it later with
// RestartTime.
func (l *Loop) NewTime(deadline time.Time, cb TimeCallback) *TimeEvent {
	e := &TimeEvent{deadline: deadline, enabled: !deadline.IsZero(), callback: cb}
	l.timeEvents = append(l.timeEvents, e)
	return e
}

// RestartTime re-arms e for a new deadline, or disables it if deadline is
// the zero time.
func (l *Loop) RestartTime(e *TimeEvent, deadline time.Time) {
	if deadline.IsZero() {
 e.enabled = false
 return
	}
	e.enabled = true
	e.deadline = deadline
}

// FreeTime marks e for removal at the start of the next iteration.
func (l *Loop) FreeTime(e *TimeEvent) {
	e.dead = true
	l.timeScanDead = true
}

// NewDefer registers a callback that fires once per iteration, before
// I/O is dispatched, until disabled. Deferred events are how a component
// breaks out of reentering its own call stack — schedule follow-up work
// for "the next iteration" instead of calling back into itself directly.
func (l *Loop) NewDefer(cb DeferCallback) *DeferEvent {
	e := &DeferEvent{enabled: true, callback: cb}
	l.deferEvents = append(l.deferEvents, e)
	return e
}

// EnableDefer turns e on or off.
func (l *Loop) EnableDefer(e *DeferEvent, enabled bool) {
	e.enabled = enabled
}

// FreeDefer marks e for removal at the start of the next iteration.
func (l *Loop) FreeDefer(e *DeferEvent) {
	e.dead = true
	l.deferScanDead = true
}

// Quit requests that Run stop after the current iteration, returning
// retval.
func (l *Loop) Quit(retval int) {
	l.quit = true
	l.retval = retval
}

// Run iterates until Quit is called, returning the value passed to Quit.
func (l *Loop) Run() int {
	for {
 done, retval := l.Iterate(true)
 if done {
 return retval
 }
	}
}

// Iterate runs a single pass of the loop: sweep dead handles, fire
// deferred callbacks, rebuild the poll set if it changed, compute the
// poll timeout from pending timers (or 0 if block is false), poll, fire
// expired timers, then fire ready I/O callbacks. Returns done=true once
// Quit has been called, along with the value it was given.
func (l *Loop) Iterate(block bool) (done bool, retval int) {
	if l.quit {
 return true, l.retval
	}
	l.running = true
	defer func() { l.running = false }()

	l.scanDead()
	l.dispatchDefer()

	if l.rebuildPolls {
 l.rebuildPollfds()
 l.rebuildPolls = false
	}

	timeout := -1
	if block {
 timeout = l.nextTimeoutMillis()
	} else {
 timeout = 0
	}

	n, err := unix.Poll(l.pollfds, timeout)
	for errors.Is(err, unix.EINTR) {
 n, err = unix.Poll(l.pollfds, timeout)
	}

	l.dispatchTimeouts()

	if err != nil {
 if l.log != nil {
 l.log.Error("poll failed", "error", err)
 }
	} else if n > 0 {
 l.dispatchIO()
	}

	return false, 0
}

func (l *Loop) scanDead() {
	if l.ioScanDead {
 filtered := l.ioEvents[:0]
 for _, e := range l.ioEvents {
 if !e.dead {
 filtered = append(filtered, e)
 }
 }
 l.ioEvents = filtered
 l.ioScanDead = false
	}
	if l.timeScanDead {
 filtered := l.timeEvents[:0]
 for _, e := range l.timeEvents {
 if !e.dead {
 filtered = append(filtered, e)
 }
 }
 l.timeEvents = filtered
 l.timeScanDead = false
	}
	if l.deferScanDead {
 filtered := l.deferEvents[:0]
 for _, e := range l.deferEvents {
 if !e.dead {
 filtered = append(filtered, e)
 }
 }
 l.deferEvents = filtered
 l.deferScanDead = false
	}
}

func (l *Loop) rebuildPollfds() {
	l.pollfds = l.pollfds[:0]
	for _, e := range l.ioEvents {
 if e.dead {
 e.pollIdx = -1
 continue
 }
 var events int16
 if e.flags&IOInput != 0 {
 events |= unix.POLLIN
 }
 if e.flags&IOOutput != 0 {
 events |= unix.POLLOUT
 }
 events |= unix.POLLHUP | unix.POLLERR
 e.pollIdx = len(l.pollfds)
 l.pollfds = append(l.pollfds, unix.PollFd{Fd: int32(e.fd), Events: events})
	}
}

func (l *Loop) dispatchIO() {
	for _, e := range l.ioEvents {
 if e.dead || e.pollIdx < 0 {
 continue
 }
 pfd := l.pollfds[e.pollIdx]
 if pfd.Revents == 0 {
 continue
 }
 var flags IOFlags
 if pfd.Revents&unix.POLLHUP != 0 {
 flags |= IOHangup
 }
 if pfd.Revents&unix.POLLIN != 0 {
 flags |= IOInput
 }
 if pfd.Revents&unix.POLLOUT != 0 {
 flags |= IOOutput
 }
 if pfd.Revents&unix.POLLERR != 0 {
 flags |= IOError
 }
 e.callback(l, e, e.fd, flags)
 l.pollfds[e.pollIdx].Revents = 0
	}
}

func (l *Loop) dispatchDefer() {
	for _, e := range l.deferEvents {
 if e.dead || !e.enabled {
 continue
 }
 e.callback(l, e)
	}
}

func (l *Loop) nextTimeoutMillis() int {
	var earliest time.Time
	found := false
	for _, e := range l.timeEvents {
 if e.dead || !e.enabled {
 continue
 }
 if !found || e.deadline.Before(earliest) {
 earliest = e.deadline
 found = true
 }
	}
	if !found {
 return -1
	}
	d := time.Until(earliest)
	if d <= 0 {
 return 0
	}
	ms := d.Milliseconds()
	if ms == 0 {
 ms = 1
	}
	return int(ms)
}

func (l *Loop) dispatchTimeouts() {
	now := time.Now()
	for _, e := range l.timeEvents {
 if e.dead || !e.enabled {
 continue
 }
 if e.deadline.After(now) {
 continue
 }
 deadline := e.deadline
 e.enabled = false
 e.callback(l, e, deadline)
	}
}
