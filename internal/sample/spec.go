// Package sample implements the data model shared by every audio-carrying
// component: the (format, rate, channels) triple, channel position maps,
// per-channel volume vectors, and the silence byte per format. These are
// value types with no lifetime of their own — memblock and squeue own the
// bytes; this package only describes their shape.
package sample

import (
	"fmt"

	"github.com/pulsed/pulsed/internal/errors"
)

// Format identifies a PCM sample encoding.
type Format int

const (
	FormatU8 Format = iota
	FormatALaw
	FormatULaw
	FormatS16LE
	FormatS16BE
	FormatFloat32LE
	FormatFloat32BE
	formatMax
)

// MaxChannels is the largest channel count a Spec may carry.
const MaxChannels = 16

// String renders the format the way a log line or HTTP response would.
func (f Format) String() string {
	switch f {
	case FormatU8:
 return "u8"
	case FormatALaw:
 return "alaw"
	case FormatULaw:
 return "ulaw"
	case FormatS16LE:
 return "s16le"
	case FormatS16BE:
 return "s16be"
	case FormatFloat32LE:
 return "float32le"
	case FormatFloat32BE:
 return "float32be"
	default:
 return "invalid"
	}
}

// BytesPerSample returns the storage width of one channel's sample.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatU8, FormatALaw, FormatULaw:
 return 1
	case FormatS16LE, FormatS16BE:
 return 2
	case FormatFloat32LE, FormatFloat32BE:
 return 4
	default:
 return 0
	}
}

// Silence is the byte value that represents digital silence in this
// format when repeated across a buffer — render_full padding.
func (f Format) Silence() byte {
	switch f {
	case FormatU8:
 return 0x80
	case FormatULaw:
 return 0xD5
	case FormatALaw:
 return 0x55
	default:
 return 0x00
	}
}

// Valid reports whether f is one of the defined formats.
func (f Format) Valid() bool { return f >= FormatU8 && f < formatMax }

// Spec is the (format, rate, channels) triple that fully describes a
// PCM stream.
type Spec struct {
	Format Format
	Rate uint32
	Channels uint8
}

// FrameSize is bytes-per-sample * channels: the unit every stream-queue
// length must be a multiple of.
func (s Spec) FrameSize() int {
	return s.Format.BytesPerSample() * int(s.Channels)
}

// Validate checks the structural constraints on a spec: format must be
// one of the seven encodings, rate must be positive, channels in [1,16].
func (s Spec) Validate() error {
	if !s.Format.Valid() {
 return errors.New(errors.NewStd("invalid sample format")).
 Component("sample").
 Category(errors.CategoryInvalid).
 Context("format", int(s.Format)).
 Build()
	}
	if s.Rate == 0 {
 return errors.New(errors.NewStd("sample rate must be positive")).
 Component("sample").
 Category(errors.CategoryInvalid).
 Build()
	}
	if s.Channels == 0 || s.Channels > MaxChannels {
 return errors.New(errors.NewStd("channel count out of range")).
 Component("sample").
 Category(errors.CategoryInvalid).
 Context("channels", s.Channels).
 Build()
	}
	return nil
}

// Equal reports whether two specs describe identical PCM layout.
func (s Spec) Equal(o Spec) bool {
	return s.Format == o.Format && s.Rate == o.Rate && s.Channels == o.Channels
}

// BytesToUsec converts a byte count at this spec's rate/frame-size into a
// duration, rounding toward zero — used by get_latency and by
// the stream-request flow's diagnostics.
func (s Spec) BytesToUsec(nbytes int64) int64 {
	fs := int64(s.FrameSize())
	if fs == 0 || s.Rate == 0 {
 return 0
	}
	frames := nbytes / fs
	return frames * 1_000_000 / int64(s.Rate)
}

// UsecToBytes is the inverse of BytesToUsec, rounded down to a whole frame.
func (s Spec) UsecToBytes(usec int64) int64 {
	fs := int64(s.FrameSize())
	frames := usec * int64(s.Rate) / 1_000_000
	return frames * fs
}

func (s Spec) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", s.Format, s.Rate, s.Channels)
}
