package resampler

import (
	"encoding/binary"
	"math"

	"github.com/pulsed/pulsed/internal/sample"
)

// decodeToFloat32 reads an interleaved PCM buffer in format f with ch
// channels and returns one float32 per frame in [-1, 1], mixed down to
// mono by summing (not averaging) and clamping the channels of each
// frame.
func decodeToFloat32(f sample.Format, data []byte, ch int) []float32 {
	frameBytes := f.BytesPerSample() * ch
	if frameBytes == 0 || len(data) < frameBytes {
 return nil
	}
	n := len(data) / frameBytes
	out := make([]float32, n)
	for i := 0; i < n; i++ {
 frame := data[i*frameBytes : (i+1)*frameBytes]
 var sum float32
 for c := 0; c < ch; c++ {
 sum += decodeOne(f, frame[c*f.BytesPerSample():])
 }
 out[i] = clamp1(sum)
	}
	return out
}

// encodeFromFloat32 writes one float32 per frame out to ch interleaved
// channels of format f, replicating the same value to every channel.
func encodeFromFloat32(f sample.Format, in []float32, ch int) []byte {
	frameBytes := f.BytesPerSample() * ch
	out := make([]byte, len(in)*frameBytes)
	for i, v := range in {
 v = clamp1(v)
 frame := out[i*frameBytes : (i+1)*frameBytes]
 for c := 0; c < ch; c++ {
 encodeOne(f, v, frame[c*f.BytesPerSample():])
 }
	}
	return out
}

func clamp1(v float32) float32 {
	if v > 1 {
 return 1
	}
	if v < -1 {
 return -1
	}
	return v
}

func decodeOne(f sample.Format, b []byte) float32 {
	switch f {
	case sample.FormatU8:
 return (float32(b[0]) - 128) / 127
	case sample.FormatS16LE:
 return float32(int16(binary.LittleEndian.Uint16(b))) / 32768
	case sample.FormatS16BE:
 return float32(int16(binary.BigEndian.Uint16(b))) / 32768
	case sample.FormatFloat32LE:
 return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case sample.FormatFloat32BE:
 return math.Float32frombits(binary.BigEndian.Uint32(b))
	case sample.FormatULaw:
 return float32(ulawToLinear16(b[0])) / 32767
	case sample.FormatALaw:
 return float32(alawToLinear16(b[0])) / 32767
	default:
 return 0
	}
}

func encodeOne(f sample.Format, v float32, b []byte) {
	switch f {
	case sample.FormatU8:
 b[0] = byte(v*127 + 128)
	case sample.FormatS16LE:
 binary.LittleEndian.PutUint16(b, uint16(int16(v*32767)))
	case sample.FormatS16BE:
 binary.BigEndian.PutUint16(b, uint16(int16(v*32767)))
	case sample.FormatFloat32LE:
 binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	case sample.FormatFloat32BE:
 binary.BigEndian.PutUint32(b, math.Float32bits(v))
	case sample.FormatULaw:
 b[0] = linear16ToULaw(int16(v * 0x1FFF))
	case sample.FormatALaw:
 b[0] = linear16ToALaw(int16(v * 0xFFF))
	}
}

// ulawToLinear16 and linear16ToULaw implement the standard G.711 mu-law
// companding tables. No repo in the corpus links a G.711 library, and
// the algorithm is a fixed bit-level transform with no meaningful
// third-party abstraction to reach for, so it is implemented directly.
func ulawToLinear16(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F
	sample := (int32(mantissa) << 3) + 0x84
	sample <<= exponent
	sample -= 0x84
	if sign != 0 {
 sample = -sample
	}
	return int16(sample)
}

func linear16ToULaw(pcm int16) byte {
	const bias = 0x84
	const clip = 32635
	sign := byte(0)
	s := int32(pcm)
	if s < 0 {
 sign = 0x80
 s = -s
	}
	if s > clip {
 s = clip
	}
	s += bias
	exponent := byte(7)
	for mask := int32(0x4000); s&mask == 0 && exponent > 0; mask >>= 1 {
 exponent--
	}
	mantissa := byte((s >> (exponent + 3)) & 0x0F)
	return ^(sign | (exponent << 4) | mantissa)
}

func alawToLinear16(a byte) int16 {
	a ^= 0x55
	sign := a & 0x80
	exponent := (a >> 4) & 0x07
	mantissa := a & 0x0F
	var sample int32
	if exponent == 0 {
 sample = (int32(mantissa) << 4) + 8
	} else {
 sample = ((int32(mantissa) << 4) + 0x108) << (exponent - 1)
	}
	if sign == 0 {
 sample = -sample
	}
	return int16(sample)
}

func linear16ToALaw(pcm int16) byte {
	const clip = 32635
	sign := byte(0x80)
	s := int32(pcm)
	if s < 0 {
 sign = 0
 s = -s
	}
	if s > clip {
 s = clip
	}
	var exponent byte
	var mantissa byte
	if s >= 256 {
 exponent = 1
 for mask := int32(0x4000); s&mask == 0 && exponent < 8; mask >>= 1 {
 exponent++
 }
 mantissa = byte((s >> (exponent + 3)) & 0x0F)
	} else {
 exponent = 0
 mantissa = byte(s >> 4)
	}
	return (sign | (exponent << 4) | mantissa) ^ 0x55
}
