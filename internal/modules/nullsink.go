// Package modules provides the built-in module types a freshly started
// daemon registers before loading anything from config: a discard sink
// and a silence source, wired through sndcore's ModuleFactory/ModuleImpl.
package modules

import (
	"time"

	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/sample"
	"github.com/pulsed/pulsed/internal/sndcore"
)

const nullSinkRenderInterval = 20 * time.Millisecond

// nullSink periodically renders and discards a sink's mixed output on a
// wall-clock timer, standing in for real hardware playback so attached
// sink-inputs still get drained at a steady rate.
type nullSink struct {
	name string
	spec sample.Spec
	chanMap sample.ChannelMap

	sink *sndcore.Sink
	timer *mainloop.TimeEvent
}

// NullSinkFactory returns the sndcore.ModuleFactory for "module-null-sink".
// Recognized args: sink_name (default "null"), rate, channels.
func NullSinkFactory() sndcore.ModuleFactory {
	return func(args sndcore.ModArgs) (sndcore.ModuleImpl, sndcore.ModuleMeta, error) {
 spec := parseSpecArgs(args)
 name := args.GetDefault("sink_name", "null")
 meta := sndcore.ModuleMeta{
 Author: "pulsed",
 Description: "Discards audio written to it",
 Usage: "sink_name=<name>,rate=<rate>,channels=<channels>",
 Version: "1.0",
 }
 return &nullSink{name: name, spec: spec, chanMap: sample.ChannelMapAuto(spec.Channels)}, meta, nil
	}
}

func (n *nullSink) Init(core *sndcore.Core, m *sndcore.Module) error {
	sink, err := core.CreateSink(n.name, n.spec, n.chanMap, m, nil, nil, false)
	if err != nil {
 return err
	}
	n.sink = sink
	n.timer = core.Loop.NewTime(time.Now().Add(nullSinkRenderInterval), n.render(core))
	return nil
}

func (n *nullSink) render(core *sndcore.Core) mainloop.TimeCallback {
	return func(loop *mainloop.Loop, e *mainloop.TimeEvent, deadline time.Time) {
 nbytes := int(n.spec.UsecToBytes(nullSinkRenderInterval.Microseconds()))
 chunk := n.sink.RenderFull(nbytes, core.Bus)
 chunk.Block.Unref()
 loop.RestartTime(e, deadline.Add(nullSinkRenderInterval))
	}
}

func (n *nullSink) Teardown(core *sndcore.Core, m *sndcore.Module) {
	if n.timer != nil {
 core.Loop.FreeTime(n.timer)
	}
	core.DisconnectSink(n.sink)
}

func parseSpecArgs(args sndcore.ModArgs) sample.Spec {
	spec := sample.Spec{Format: sample.FormatS16LE, Rate: 44100, Channels: 2}
	if r, ok := args.Get("rate"); ok {
 if v, err := parseUint(r); err == nil {
 spec.Rate = uint32(v)
 }
	}
	if ch, ok := args.Get("channels"); ok {
 if v, err := parseUint(ch); err == nil && v > 0 && v <= sample.MaxChannels {
 spec.Channels = uint8(v)
 }
	}
	return spec
}
