package httpapi

import (
	"github.com/pulsed/pulsed/internal/sample"
	"github.com/pulsed/pulsed/internal/sndcore"
)

// sinkDTO is the JSON shape of GET /api/v1/sinks.
type sinkDTO struct {
	Index uint32 `json:"index"`
	Name string `json:"name"`
	State string `json:"state"`
	Rate uint32 `json:"rate"`
	Chans uint8 `json:"channels"`
	Volume int `json:"volume_percent"`
	Latency int64 `json:"latency_usec"`
	Inputs int `json:"input_count"`
}

func newSinkDTO(s *sndcore.Sink) sinkDTO {
	spec := s.Spec()
	state := "running"
	if s.State() == sndcore.SinkDisconnected {
 state = "disconnected"
	}
	return sinkDTO{
 Index: s.Index,
 Name: s.Name,
 State: state,
 Rate: spec.Rate,
 Chans: spec.Channels,
 Volume: s.GetVolume(sndcore.VolumeModeAuto).ToPercent(),
 Latency: s.GetLatency(),
 Inputs: len(s.Inputs()),
	}
}

// sourceDTO is the JSON shape of GET /api/v1/sources.
type sourceDTO struct {
	Index uint32 `json:"index"`
	Name string `json:"name"`
	Rate uint32 `json:"rate"`
	Chans uint8 `json:"channels"`
	Monitor bool `json:"is_monitor"`
}

func newSourceDTO(src *sndcore.Source) sourceDTO {
	spec := src.Spec()
	return sourceDTO{Index: src.Index, Name: src.Name, Rate: spec.Rate, Chans: spec.Channels, Monitor: src.IsMonitor()}
}

// clientDTO is the JSON shape of GET /api/v1/clients.
type clientDTO struct {
	Index uint32 `json:"index"`
	Name string `json:"name"`
	ID string `json:"id"`
}

func newClientDTO(c *sndcore.Client) clientDTO {
	return clientDTO{Index: c.Index, Name: c.Name, ID: c.ID}
}

// moduleDTO is the JSON shape of GET /api/v1/modules.
type moduleDTO struct {
	Index uint32 `json:"index"`
	Name string `json:"name"`
	Args string `json:"args"`
}

func newModuleDTO(m *sndcore.Module) moduleDTO {
	return moduleDTO{Index: m.Index, Name: m.Name, Args: m.Args}
}

// volumeRequest is the JSON body of the set-*-volume endpoints: a
// per-channel percent vector (0-150, 100 is unity), matching the wire
// taxonomy's CVolume encoding in spirit without requiring a client to
// know the fixed-point internals.
type volumeRequest struct {
	Percent []int `json:"percent"`
}

func (r volumeRequest) toCVolume() sample.CVolume {
	v := sample.CVolume{Channels: uint8(len(r.Percent))}
	for i, p := range r.Percent {
 if i >= len(v.Values) {
 break
 }
 v.Values[i] = sample.Volume(p * int(sample.VolumeNorm) / 100)
	}
	return v
}

type loadModuleRequest struct {
	Name string `json:"name"`
	Args string `json:"args"`
}

type errorResponse struct {
	Error string `json:"error"`
}
