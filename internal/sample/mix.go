package sample

import (
	"encoding/binary"
	"math"
)

// Silence fills buf with length bytes of digital silence in the given
// format, using the byte-repeat value appropriate to that format.
func Silence(buf []byte, format Format) {
	c := format.Silence()
	for i := range buf {
 buf[i] = c
	}
}

// MixInput is one stream's contribution to a mix: its PCM bytes (already
// sliced to the render window) and its per-channel volume.
type MixInput struct {
	Data []byte
	Volume CVolume
}

// Mix sums nstreams of PCM data, applying each stream's per-channel
// volume; there is no master volume stage. S16 and U8 samples are
// scaled, accumulated and clamped to the format's range; Float32 samples
// are not clamped. The return value is the number of bytes written,
// which is shorter than len(out) when any input runs out first: mixing
// stops at the end of the shortest input.
func Mix(inputs []MixInput, out []byte, spec Spec) int {
	switch spec.Format {
	case FormatS16LE:
 return mixS16LE(inputs, out, spec)
	case FormatU8:
 return mixU8(inputs, out, spec)
	case FormatFloat32LE:
 return mixFloat32LE(inputs, out, spec)
	default:
 // Other wire formats are only ever used for stream ingress;
 // decode converts them to one of the above before mixing
 // (resampler pipeline).
 return 0
	}
}

func mixS16LE(inputs []MixInput, out []byte, spec Spec) int {
	channels := int(spec.Channels)
	n := len(out) / 2 * 2
	channel := 0
	for d := 0; d+1 < n; d += 2 {
 var sum int32
 for _, in := range inputs {
 if d+1 >= len(in.Data) {
 return d
 }
 cv := in.Volume.Values[channel%int(in.Volume.Channels)]
 if cv == VolumeMuted {
 continue
 }
 v := int32(int16(binary.LittleEndian.Uint16(in.Data[d : d+2])))
 if cv != VolumeNorm {
 v = int32(int64(v) * int64(cv) / int64(VolumeNorm))
 }
 sum += v
 }
 sum = clampInt32(sum, -0x8000, 0x7FFF)
 binary.LittleEndian.PutUint16(out[d:d+2], uint16(int16(sum)))
 channel++
 if channel >= channels {
 channel = 0
 }
	}
	return n
}

func mixU8(inputs []MixInput, out []byte, spec Spec) int {
	channels := int(spec.Channels)
	channel := 0
	for d := range out {
 var sum int32
 for _, in := range inputs {
 if d >= len(in.Data) {
 return d
 }
 cv := in.Volume.Values[channel%int(in.Volume.Channels)]
 if cv == VolumeMuted {
 continue
 }
 v := int32(in.Data[d]) - 0x80
 if cv != VolumeNorm {
 v = int32(int64(v) * int64(cv) / int64(VolumeNorm))
 }
 sum += v
 }
 sum = clampInt32(sum, -0x80, 0x7F)
 out[d] = byte(sum + 0x80)
 channel++
 if channel >= channels {
 channel = 0
 }
	}
	return len(out)
}

func mixFloat32LE(inputs []MixInput, out []byte, spec Spec) int {
	channels := int(spec.Channels)
	n := len(out) / 4 * 4
	channel := 0
	for d := 0; d+3 < n; d += 4 {
 var sum float32
 for _, in := range inputs {
 if d+3 >= len(in.Data) {
 return d
 }
 cv := in.Volume.Values[channel%int(in.Volume.Channels)]
 if cv == VolumeMuted {
 continue
 }
 bits := binary.LittleEndian.Uint32(in.Data[d : d+4])
 v := math.Float32frombits(bits)
 if cv != VolumeNorm {
 v *= float32(cv) / float32(VolumeNorm)
 }
 sum += v
 }
 binary.LittleEndian.PutUint32(out[d:d+4], math.Float32bits(sum))
 channel++
 if channel >= channels {
 channel = 0
 }
	}
	return n
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
 return lo
	}
	if v > hi {
 return hi
	}
	return v
}
