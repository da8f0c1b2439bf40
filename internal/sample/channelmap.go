package sample

import "strings"

// ChannelPosition names a single channel's role in a ChannelMap.
type ChannelPosition int

const (
	ChannelInvalid ChannelPosition = iota - 1
	ChannelMono
	ChannelFrontCenter
	ChannelFrontLeft
	ChannelFrontRight
	ChannelRearCenter
	ChannelRearLeft
	ChannelRearRight
	ChannelLFE
	ChannelFrontLeftOfCenter
	ChannelFrontRightOfCenter
	ChannelSideLeft
	ChannelSideRight
	channelPositionMax
)

var channelPositionNames = map[ChannelPosition]string{
	ChannelMono: "mono",
	ChannelFrontCenter: "front-center",
	ChannelFrontLeft: "front-left",
	ChannelFrontRight: "front-right",
	ChannelRearCenter: "rear-center",
	ChannelRearLeft: "rear-left",
	ChannelRearRight: "rear-right",
	ChannelLFE: "lfe",
	ChannelFrontLeftOfCenter: "front-left-of-center",
	ChannelFrontRightOfCenter: "front-right-of-center",
	ChannelSideLeft: "side-left",
	ChannelSideRight: "side-right",
}

// String renders a channel position the way the registry's CLI text
// listing does.
func (p ChannelPosition) String() string {
	if name, ok := channelPositionNames[p]; ok {
 return name
	}
	return "invalid"
}

// ChannelMap assigns a position to each of up to MaxChannels channels.
type ChannelMap struct {
	Channels uint8
	Map [MaxChannels]ChannelPosition
}

// ChannelMapMono is the 1-channel default map.
func ChannelMapMono() ChannelMap {
	var cm ChannelMap
	cm.Channels = 1
	cm.Map[0] = ChannelMono
	return cm
}

// ChannelMapStereo is the 2-channel default map.
func ChannelMapStereo() ChannelMap {
	var cm ChannelMap
	cm.Channels = 2
	cm.Map[0] = ChannelFrontLeft
	cm.Map[1] = ChannelFrontRight
	return cm
}

// ChannelMapAuto picks the conventional default map for n channels,
// falling back to ChannelInvalid positions for anything beyond stereo
// (those layouts must be specified explicitly —).
func ChannelMapAuto(n uint8) ChannelMap {
	switch n {
	case 1:
 return ChannelMapMono()
	case 2:
 return ChannelMapStereo()
	default:
 cm := ChannelMap{Channels: n}
 for i := range int(n) {
 cm.Map[i] = ChannelInvalid
 }
 return cm
	}
}

// Valid reports whether every assigned channel has a defined position.
func (cm ChannelMap) Valid() bool {
	if cm.Channels == 0 || cm.Channels > MaxChannels {
 return false
	}
	for i := range int(cm.Channels) {
 if cm.Map[i] <= ChannelInvalid || cm.Map[i] >= channelPositionMax {
 return false
 }
	}
	return true
}

// Equal reports whether a and b assign the same position to every
// channel, true iff every position matches up to cm.Channels.
func (cm ChannelMap) Equal(o ChannelMap) bool {
	if cm.Channels != o.Channels {
 return false
	}
	for i := range int(cm.Channels) {
 if cm.Map[i] != o.Map[i] {
 return false
 }
	}
	return true
}

func (cm ChannelMap) String() string {
	var b strings.Builder
	for i := range int(cm.Channels) {
 if i > 0 {
 b.WriteByte(',')
 }
 b.WriteString(cm.Map[i].String())
	}
	return b.String()
}

// ParseFormat maps a wire/config format name to a Format (s16/s16ne/16
// all mean the platform's native s16 endianness, resolved here to
// S16LE since pulsed targets little-endian transports).
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "u8", "8":
 return FormatU8, true
	case "alaw":
 return FormatALaw, true
	case "ulaw":
 return FormatULaw, true
	case "s16le":
 return FormatS16LE, true
	case "s16be":
 return FormatS16BE, true
	case "s16ne", "s16", "16":
 return FormatS16LE, true
	case "float32le", "float32", "float32ne":
 return FormatFloat32LE, true
	case "float32be":
 return FormatFloat32BE, true
	default:
 return 0, false
	}
}
