package sndcore

import "github.com/pulsed/pulsed/internal/mainloop"

// Facility identifies which entity kind a subscription event describes.
type Facility int

const (
	FacilitySink Facility = iota
	FacilitySource
	FacilitySinkInput
	FacilitySourceOutput
	FacilityModule
	FacilityClient
	FacilitySampleCache
	FacilityServer
	FacilityAutoload
)

func (f Facility) String() string {
	switch f {
	case FacilitySink:
 return "sink"
	case FacilitySource:
 return "source"
	case FacilitySinkInput:
 return "sink-input"
	case FacilitySourceOutput:
 return "source-output"
	case FacilityModule:
 return "module"
	case FacilityClient:
 return "client"
	case FacilitySampleCache:
 return "sample-cache"
	case FacilityServer:
 return "server"
	case FacilityAutoload:
 return "autoload"
	default:
 return "unknown"
	}
}

// SubscriptionMask selects which facilities a subscriber wants events
// for; one bit per Facility.
type SubscriptionMask uint32

func (m SubscriptionMask) has(f Facility) bool { return m&(1<<uint(f)) != 0 }

// MaskFor ORs the bit for a single facility into a mask, the building
// block clients use to construct a subscribe(mask) request.
func MaskFor(f Facility) SubscriptionMask { return 1 << uint(f) }

// MaskAll subscribes to every facility.
const MaskAll SubscriptionMask = (1 << 9) - 1

// Operation is what happened to the entity named in an Event.
type Operation int

const (
	OpNew Operation = iota
	OpChange
	OpRemove
)

func (o Operation) String() string {
	switch o {
	case OpNew:
 return "new"
	case OpChange:
 return "change"
	case OpRemove:
 return "remove"
	default:
 return "unknown"
	}
}

// Event is one (facility, operation, index) notification.
type Event struct {
	Facility Facility
	Operation Operation
	Index uint32
}

// SubscriptionCallback receives delivered events. It must not mutate the
// entity the event names — subscription delivery only ever happens from
// the deferred event, never synchronously from Post, specifically so
// this is always safe.
type SubscriptionCallback func(ev Event)

type subscriber struct {
	mask SubscriptionMask
	cb SubscriptionCallback
	dead bool
}

// Handle identifies a registered subscription for later unsubscription.
type Handle struct{ sub *subscriber }

// Bus is the subscription bus: subscribers register a mask and callback,
// Post enqueues matching events for delivery on the next mainloop
// iteration rather than invoking callbacks inline — the property that
// lets every mutating core operation (even deep inside a render call)
// post an event without risking reentrant modification of the entity it
// describes.
type Bus struct {
	subscribers []*subscriber
	queue []Event
	loop *mainloop.Loop
	defer_ *mainloop.DeferEvent
	onPublish func(facility Facility, op Operation)
}

// NewBus creates a subscription bus driven by loop. onPublish, if
// non-nil, is called once per posted event before it is queued — wired
// to observability/metrics.SubscriptionMetrics.EventsPublished by Core.
func NewBus(loop *mainloop.Loop, onPublish func(facility Facility, op Operation)) *Bus {
	b := &Bus{loop: loop, onPublish: onPublish}
	b.defer_ = loop.NewDefer(func(l *mainloop.Loop, e *mainloop.DeferEvent) {
 b.drain()
	})
	loop.EnableDefer(b.defer_, false)
	return b
}

// Subscribe registers cb for events matching mask, returning a handle
// that can later be passed to Unsubscribe.
func (b *Bus) Subscribe(mask SubscriptionMask, cb SubscriptionCallback) Handle {
	sub := &subscriber{mask: mask, cb: cb}
	b.subscribers = append(b.subscribers, sub)
	return Handle{sub: sub}
}

// Unsubscribe removes h. If called from inside a callback during Bus's
// own drain, it prevents any further events of the current drain from
// reaching h (the dead flag is checked before every remaining delivery).
func (b *Bus) Unsubscribe(h Handle) {
	h.sub.dead = true
}

// Count reports how many live subscribers are registered, used to feed
// SubscriptionMetrics.FanoutTargets.
func (b *Bus) Count() int {
	n := 0
	for _, s := range b.subscribers {
 if !s.dead {
 n++
 }
	}
	return n
}

// Post enqueues ev for delivery to every subscriber whose mask matches
// at delivery time (not at post time: ordering guarantees),
// and enables the bus's deferred event so the queue drains on the next
// mainloop iteration. Never delivers synchronously.
func (b *Bus) Post(facility Facility, op Operation, index uint32) {
	if b.onPublish != nil {
 b.onPublish(facility, op)
	}
	b.queue = append(b.queue, Event{Facility: facility, Operation: op, Index: index})
	b.loop.EnableDefer(b.defer_, true)
}

func (b *Bus) drain() {
	pending := b.queue
	b.queue = nil
	b.loop.EnableDefer(b.defer_, false)

	for _, ev := range pending {
 for _, sub := range b.subscribers {
 if sub.dead {
 continue
 }
 if !sub.mask.has(ev.Facility) {
 continue
 }
 sub.cb(ev)
 }
	}

	// Drop dead subscribers once the whole drain is done, not mid-loop:
	// a subscriber that unsubscribed itself must still be skipped for
	// the rest of *this* drain (handled by the dead check above), but a
	// subscriber unsubscribed by another's callback should not corrupt
	// the slice being ranged over.
	live := b.subscribers[:0]
	for _, s := range b.subscribers {
 if !s.dead {
 live = append(live, s)
 }
	}
	b.subscribers = live
}
