package mainloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDeferFiresEveryIterationUntilDisabled(t *testing.T) {
	l := New(nil)
	calls := 0
	var ev *DeferEvent
	ev = l.NewDefer(func(loop *Loop, e *DeferEvent) {
 calls++
 if calls == 3 {
 loop.EnableDefer(ev, false)
 }
	})

	for range 5 {
 l.Iterate(false)
	}
	assert.Equal(t, 3, calls, "defer stops firing once disabled mid-callback")
}

func TestTimeEventFiresOnceAtDeadline(t *testing.T) {
	l := New(nil)
	fired := 0
	l.NewTime(time.Now().Add(10*time.Millisecond), func(loop *Loop, e *TimeEvent, deadline time.Time) {
 fired++
	})

	deadline := time.Now().Add(500 * time.Millisecond)
	for fired == 0 && time.Now().Before(deadline) {
 l.Iterate(true)
	}
	assert.Equal(t, 1, fired)

	// without RestartTime the event stays disabled
	for range 3 {
 l.Iterate(false)
	}
	assert.Equal(t, 1, fired)
}

func TestTimeEventRestartRearms(t *testing.T) {
	l := New(nil)
	fired := 0
	var e *TimeEvent
	e = l.NewTime(time.Now().Add(5*time.Millisecond), func(loop *Loop, ev *TimeEvent, deadline time.Time) {
 fired++
 if fired < 2 {
 loop.RestartTime(e, time.Now().Add(5*time.Millisecond))
 }
	})

	deadline := time.Now().Add(500 * time.Millisecond)
	for fired < 2 && time.Now().Before(deadline) {
 l.Iterate(true)
	}
	assert.Equal(t, 2, fired)
}

func TestIOEventFiresOnInput(t *testing.T) {
	l := New(nil)
	r, w, err := openPipe()
	require.NoError(t, err)
	defer unix.Close(r)
	defer unix.Close(w)

	got := make(chan IOFlags, 1)
	var ev *IOEvent
	ev = l.NewIO(r, IOInput, func(loop *Loop, e *IOEvent, fd int, flags IOFlags) {
 got <- flags
 loop.FreeIO(ev)
	})

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
 l.Iterate(true)
 select {
 case flags := <-got:
 assert.NotZero(t, flags&IOInput)
 return
 default:
 }
	}
	t.Fatal("io event never fired")
}

func TestFreeDuringCallbackIsSweptNextIteration(t *testing.T) {
	l := New(nil)
	var ev *DeferEvent
	calls := 0
	ev = l.NewDefer(func(loop *Loop, e *DeferEvent) {
 calls++
 loop.FreeDefer(ev)
	})

	l.Iterate(false)
	assert.Equal(t, 1, calls)
	assert.Len(t, l.deferEvents, 1, "the handle is only marked dead, not removed, inside its own callback")

	l.Iterate(false)
	assert.Equal(t, 1, calls, "swept before this iteration's dispatch, so it does not fire again")
	assert.Len(t, l.deferEvents, 0)
}

func TestQuitStopsIterate(t *testing.T) {
	l := New(nil)
	l.Quit(7)
	done, retval := l.Iterate(false)
	assert.True(t, done)
	assert.Equal(t, 7, retval)
}

func openPipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
 return -1, -1, err
	}
	return fds[0], fds[1], nil
}
