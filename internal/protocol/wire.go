package protocol

import (
	"encoding/binary"
	"time"

	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/sample"
)

// AbsentIndex is the wire value meaning "absent/default" for an index
// field: indices are u32, with 0xFFFFFFFF reserved for this sentinel.
const AbsentIndex uint32 = 0xFFFFFFFF

// EncodeSampleSpec renders spec as the wire triple
// (format_tag:u8, channels:u8, rate:u32).
func EncodeSampleSpec(spec sample.Spec) []byte {
	buf := make([]byte, 6)
	buf[0] = byte(spec.Format)
	buf[1] = spec.Channels
	binary.BigEndian.PutUint32(buf[2:], spec.Rate)
	return buf
}

// DecodeSampleSpec is the inverse of EncodeSampleSpec.
func DecodeSampleSpec(buf []byte) (sample.Spec, error) {
	if len(buf) < 6 {
 return sample.Spec{}, errors.New(errors.NewStd("short sample spec")).
 Component("protocol").Category(errors.CategoryProtocol).Build()
	}
	spec := sample.Spec{
 Format: sample.Format(buf[0]),
 Channels: buf[1],
 Rate: binary.BigEndian.Uint32(buf[2:6]),
	}
	if err := spec.Validate(); err != nil {
 return sample.Spec{}, errors.New(err).Component("protocol").Category(errors.CategoryInvalid).Build()
	}
	return spec, nil
}

// EncodeVolume renders v as a per-channel u32 vector.
func EncodeVolume(v sample.CVolume) []byte {
	buf := make([]byte, int(v.Channels)*4)
	for i := range int(v.Channels) {
 binary.BigEndian.PutUint32(buf[i*4:], uint32(v.Values[i]))
	}
	return buf
}

// DecodeVolume is the inverse of EncodeVolume; channels is the expected
// channel count (the wire form carries no count of its own).
func DecodeVolume(buf []byte, channels uint8) (sample.CVolume, error) {
	if len(buf) < int(channels)*4 {
 return sample.CVolume{}, errors.New(errors.NewStd("short volume vector")).
 Component("protocol").Category(errors.CategoryProtocol).Build()
	}
	cv := sample.CVolume{Channels: channels}
	for i := range int(channels) {
 cv.Values[i] = sample.Volume(binary.BigEndian.Uint32(buf[i*4:]))
	}
	return cv, nil
}

// EncodeTimestamp renders t as a (tv_sec:u32, tv_usec:u32) pair, used
// by get-latency replies.
func EncodeTimestamp(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(t.Unix()))
	binary.BigEndian.PutUint32(buf[4:8], uint32(t.Nanosecond()/1000))
	return buf
}

// DecodeTimestamp is the inverse of EncodeTimestamp.
func DecodeTimestamp(buf []byte) (time.Time, error) {
	if len(buf) < 8 {
 return time.Time{}, errors.New(errors.NewStd("short timestamp")).
 Component("protocol").Category(errors.CategoryProtocol).Build()
	}
	sec := binary.BigEndian.Uint32(buf[0:4])
	usec := binary.BigEndian.Uint32(buf[4:8])
	return time.Unix(int64(sec), int64(usec)*1000), nil
}

// EncodeIndex renders idx, mapping the sentinel Invalid constant callers
// use internally onto the wire's AbsentIndex (the two happen to share
// the same bit pattern, 0xFFFFFFFF, but are kept as distinct named
// constants since one is a sndcore concept and the other a wire one).
func EncodeIndex(idx uint32) uint32 { return idx }
