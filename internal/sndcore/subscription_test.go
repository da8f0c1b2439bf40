package sndcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/mainloop"
)

func TestBusPostDeliversOnlyToMatchingMaskOnNextIteration(t *testing.T) {
	loop := mainloop.New(nil)
	bus := NewBus(loop, nil)

	var sinkEvents, sourceEvents []Event
	bus.Subscribe(MaskFor(FacilitySink), func(ev Event) { sinkEvents = append(sinkEvents, ev) })
	bus.Subscribe(MaskFor(FacilitySource), func(ev Event) { sourceEvents = append(sourceEvents, ev) })

	bus.Post(FacilitySink, OpNew, 3)
	require.Empty(t, sinkEvents, "delivery must not happen synchronously from Post")

	loop.Iterate(false)

	require.Len(t, sinkEvents, 1)
	assert.Equal(t, Event{Facility: FacilitySink, Operation: OpNew, Index: 3}, sinkEvents[0])
	assert.Empty(t, sourceEvents)
}

func TestBusMaskAllDeliversEverything(t *testing.T) {
	loop := mainloop.New(nil)
	bus := NewBus(loop, nil)

	var got []Event
	bus.Subscribe(MaskAll, func(ev Event) { got = append(got, ev) })

	bus.Post(FacilitySink, OpNew, 1)
	bus.Post(FacilitySourceOutput, OpRemove, 2)
	loop.Iterate(false)

	require.Len(t, got, 2)
}

func TestBusUnsubscribeStopsFurtherDelivery(t *testing.T) {
	loop := mainloop.New(nil)
	bus := NewBus(loop, nil)

	n := 0
	h := bus.Subscribe(MaskAll, func(ev Event) { n++ })

	bus.Post(FacilitySink, OpNew, 1)
	loop.Iterate(false)
	assert.Equal(t, 1, n)

	bus.Unsubscribe(h)
	bus.Post(FacilitySink, OpNew, 2)
	loop.Iterate(false)
	assert.Equal(t, 1, n, "no delivery after unsubscribe")
	assert.Equal(t, 0, bus.Count())
}

func TestBusUnsubscribeFromWithinCallbackDoesNotCorruptDrain(t *testing.T) {
	loop := mainloop.New(nil)
	bus := NewBus(loop, nil)

	var secondFired bool
	var h Handle
	h = bus.Subscribe(MaskAll, func(ev Event) { bus.Unsubscribe(h) })
	bus.Subscribe(MaskAll, func(ev Event) { secondFired = true })

	bus.Post(FacilitySink, OpNew, 1)
	loop.Iterate(false)

	assert.True(t, secondFired)
	assert.Equal(t, 1, bus.Count())
}

func TestMaskForIsOneBitPerFacility(t *testing.T) {
	assert.NotEqual(t, MaskFor(FacilitySink), MaskFor(FacilitySource))
	combined := MaskFor(FacilitySink) | MaskFor(FacilitySource)
	assert.True(t, combined.has(FacilitySink))
	assert.True(t, combined.has(FacilitySource))
	assert.False(t, combined.has(FacilityModule))
}
