package modules

import (
	"time"

	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
	"github.com/pulsed/pulsed/internal/sndcore"
)

const nullSourceCaptureInterval = 20 * time.Millisecond

// nullSource periodically posts a block of silence to its attached
// source-outputs, standing in for real capture hardware: a real device
// and this synthetic one both drive their source solely through Post
// calls on a timer.
type nullSource struct {
	name string
	spec sample.Spec
	chanMap sample.ChannelMap

	src *sndcore.Source
	timer *mainloop.TimeEvent
	stat *memblock.Stat
}

// NullSourceFactory returns the sndcore.ModuleFactory for
// "module-null-source". Recognized args: source_name (default "null"),
// rate, channels.
func NullSourceFactory() sndcore.ModuleFactory {
	return func(args sndcore.ModArgs) (sndcore.ModuleImpl, sndcore.ModuleMeta, error) {
 spec := parseSpecArgs(args)
 name := args.GetDefault("source_name", "null")
 meta := sndcore.ModuleMeta{
 Author: "pulsed",
 Description: "Generates silence",
 Usage: "source_name=<name>,rate=<rate>,channels=<channels>",
 Version: "1.0",
 }
 return &nullSource{name: name, spec: spec, chanMap: sample.ChannelMapAuto(spec.Channels)}, meta, nil
	}
}

func (n *nullSource) Init(core *sndcore.Core, m *sndcore.Module) error {
	src, err := core.CreateSource(n.name, n.spec, n.chanMap, m, false)
	if err != nil {
 return err
	}
	n.src = src
	n.stat = core.Stat
	n.timer = core.Loop.NewTime(time.Now().Add(nullSourceCaptureInterval), n.capture())
	return nil
}

func (n *nullSource) capture() mainloop.TimeCallback {
	return func(loop *mainloop.Loop, e *mainloop.TimeEvent, deadline time.Time) {
 nbytes := int(n.spec.UsecToBytes(nullSourceCaptureInterval.Microseconds()))
 blk := memblock.New(nbytes, n.stat)
 sample.Silence(blk.Data(), n.spec.Format)
 n.src.Post(memblock.Chunk{Block: blk, Index: 0, Length: nbytes})
 loop.RestartTime(e, deadline.Add(nullSourceCaptureInterval))
	}
}

func (n *nullSource) Teardown(core *sndcore.Core, m *sndcore.Module) {
	if n.timer != nil {
 core.Loop.FreeTime(n.timer)
	}
	core.DisconnectSource(n.src)
}
