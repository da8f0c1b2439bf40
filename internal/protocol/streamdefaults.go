package protocol

import "github.com/pulsed/pulsed/internal/sample"

// StreamDefaults are the stream-queue sizing values (in milliseconds,
// the unit clients and config files both use) applied when a
// create-playback-stream / create-record-stream request leaves a field
// unspecified (zero), converted to a byte count per-spec at creation
// time since squeue.New wants bytes rounded to a frame.
type StreamDefaults struct {
	MaxLengthMsec int
	TLengthMsec int
	PrebufMsec int
	MinreqMsec int
}

// DefaultStreamDefaults matches the "four second total, two hundred
// millisecond target" shape internal/conf.CoreSettings ships with.
func DefaultStreamDefaults() StreamDefaults {
	return StreamDefaults{MaxLengthMsec: 4000, TLengthMsec: 200, PrebufMsec: 200, MinreqMsec: 20}
}

// resolve converts the defaults into byte counts for spec, applying any
// explicit per-request override (a zero field in the override keeps the
// default; any other value, negative ones included, is used as given).
func (d StreamDefaults) resolve(spec sample.Spec, override StreamDefaults) (maxLength, tlength, prebuf, minreq int) {
	pick := func(override, def int) int {
 if override != 0 {
 return override
 }
 return def
	}
	maxLength = int(spec.UsecToBytes(int64(pick(override.MaxLengthMsec, d.MaxLengthMsec)) * 1000))
	tlength = int(spec.UsecToBytes(int64(pick(override.TLengthMsec, d.TLengthMsec)) * 1000))
	prebuf = int(spec.UsecToBytes(int64(pick(override.PrebufMsec, d.PrebufMsec)) * 1000))
	minreq = int(spec.UsecToBytes(int64(pick(override.MinreqMsec, d.MinreqMsec)) * 1000))
	return
}
