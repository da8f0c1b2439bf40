package sndcore

import "github.com/pulsed/pulsed/internal/memblock"

// SinkInputProducer is the trait a module implements to feed a
// sink-input: "peek/drop" are required, "get_latency"/"underrun" are
// optional. The core adapter around this interface owns the resampler
// cache and the volume-pre-adjustment logic; a producer never sees the
// sink's sample format, only its own.
type SinkInputProducer interface {
	// Peek returns the producer's next chunk of PCM in the input's own
	// sample spec, or ok=false if none is available right now.
	Peek() (memblock.Chunk, bool)
	// Drop consumes length bytes that a prior Peek returned.
	Drop(length int)
	// Kill is invoked when the core force-disconnects this input (sink
	// disconnect, kill-sink-input command, entity-fatal error). The
	// producer is expected to eventually call SinkInput.Disconnect.
	Kill()
}

// SinkInputLatencyProducer is implemented by producers that can report
// their own buffering latency in addition to the queue's.
type SinkInputLatencyProducer interface {
	GetLatency() int64 // microseconds
}

// SinkInputUnderrunProducer is implemented by producers that want to
// know when their input ran dry during a render pass.
type SinkInputUnderrunProducer interface {
	Underrun()
}

// SourceOutputProducer is the mirror of SinkInputProducer for the
// capture direction: Push receives resampled PCM, Kill tears
// the output down.
type SourceOutputProducer interface {
	Push(chunk memblock.Chunk)
	Kill()
}
