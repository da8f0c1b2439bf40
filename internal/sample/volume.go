package sample

import "math"

// Volume is the linear, saturating gain unit used throughout the mixing
// path. NORM (0x10000) is unity gain; MUTED (0) is silence.
// Values above NORM amplify.
type Volume uint32

const (
	VolumeNorm Volume = 0x10000
	VolumeMuted Volume = 0
	// VolumeMax bounds the range accepted from clients; beyond this the
	// fixed-point multiply in Multiply starts losing precision.
	VolumeMax Volume = 0x10000 * 16
)

// decibelMinInfty is the dB value reported for MUTED.
const decibelMinInfty = -200.0

// Multiply composes two gains: (a*b)/NORM, a fixed-point multiply done
// in uint64 that saturates at the largest Volume instead of wrapping
// when the result does not fit a Volume (unreachable for inputs up to
// VolumeMax, but kept explicit since this value ends up in
// client-supplied CVolume vectors).
func (v Volume) Multiply(o Volume) Volume {
	p := uint64(v) * uint64(o) / uint64(VolumeNorm)
	if p > uint64(^Volume(0)) {
 return ^Volume(0)
	}
	return Volume(p)
}

// FromDB converts a decibel value to linear gain; values at or below
// decibelMinInfty map to MUTED.
func FromDB(db float64) Volume {
	if db <= decibelMinInfty {
 return VolumeMuted
	}
	return Volume(math.Pow(10, db/20) * float64(VolumeNorm))
}

// ToDB is the inverse of FromDB; MUTED maps to decibelMinInfty.
func (v Volume) ToDB() float64 {
	if v == VolumeMuted {
 return decibelMinInfty
	}
	return 20 * math.Log10(float64(v)/float64(VolumeNorm))
}

// CVolume is a per-channel volume vector (Open Question:
// standardized representation; scalar helpers below are "set all
// channels" sugar, not a distinct model).
type CVolume struct {
	Channels uint8
	Values [MaxChannels]Volume
}

// CVolumeNorm returns a vector of n channels all at unity gain.
func CVolumeNorm(n uint8) CVolume {
	cv := CVolume{Channels: n}
	for i := range int(n) {
 cv.Values[i] = VolumeNorm
	}
	return cv
}

// CVolumeMuted returns a vector of n channels, all silent.
func CVolumeMuted(n uint8) CVolume {
	return CVolume{Channels: n}
}

// SetScalar sets every channel of the vector to v — the "scalar volume"
// convenience API layered over the per-channel model.
func (cv *CVolume) SetScalar(v Volume) {
	for i := range int(cv.Channels) {
 cv.Values[i] = v
	}
}

// Max returns the loudest channel, used for VU-style level reporting.
func (cv CVolume) Max() Volume {
	var m Volume
	for i := range int(cv.Channels) {
 if cv.Values[i] > m {
 m = cv.Values[i]
 }
	}
	return m
}

// IsMuted reports whether every channel is at MUTED.
func (cv CVolume) IsMuted() bool {
	for i := range int(cv.Channels) {
 if cv.Values[i] != VolumeMuted {
 return false
 }
	}
	return true
}

// IsNorm reports whether every channel is at unity gain.
func (cv CVolume) IsNorm() bool {
	for i := range int(cv.Channels) {
 if cv.Values[i] != VolumeNorm {
 return false
 }
	}
	return true
}

// Avg returns the arithmetic mean gain across channels — used where a
// single human-friendly number is wanted instead of the full
// per-channel vector. The vector remains canonical; this is read-only
// sugar for display.
func (cv CVolume) Avg() Volume {
	if cv.Channels == 0 {
 return VolumeMuted
	}
	var sum uint64
	for i := range int(cv.Channels) {
 sum += uint64(cv.Values[i])
	}
	return Volume(sum / uint64(cv.Channels))
}

// ToPercent renders Avg as a percentage of NORM, the form a control
// surface displays ("100%", "50%", ...).
func (cv CVolume) ToPercent() int {
	return int(uint64(cv.Avg()) * 100 / uint64(VolumeNorm))
}

// Multiply composes two per-channel vectors channel-wise. Channel counts
// must match; a mismatched call is a programmer error in the caller
// (volumes are always paired with a Spec upstream) so it returns a
// Channels-clamped result rather than panicking.
func (cv CVolume) Multiply(o CVolume) CVolume {
	n := cv.Channels
	if o.Channels < n {
 n = o.Channels
	}
	out := CVolume{Channels: n}
	for i := range int(n) {
 out.Values[i] = cv.Values[i].Multiply(o.Values[i])
	}
	return out
}
