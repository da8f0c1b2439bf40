package protocol

import (
	"os"

	"github.com/pulsed/pulsed/internal/sample"
	"github.com/pulsed/pulsed/internal/sndcore"
)

const serverVersion = "1.0.0 (pulsed)"

// ServerInfo answers the get-server-info command.
type ServerInfo struct {
	Version string
	DefaultSinkName string
	DefaultSourceName string
	DefaultSampleSpec sample.Spec
	User string
	Hostname string
}

// CreatePlaybackStreamRequest carries every field create-playback-stream
// accepts. SinkName empty means "use the default sink".
type CreatePlaybackStreamRequest struct {
	Name string
	Spec sample.Spec
	ChannelMap sample.ChannelMap
	SinkName string
	Volume sample.CVolume
	Corked bool
	VariableRate bool
	Overrides StreamDefaults // zero fields fall back to the dispatcher's configured defaults
}

// CreateRecordStreamRequest mirrors CreatePlaybackStreamRequest for the
// capture direction.
type CreateRecordStreamRequest struct {
	Name string
	Spec sample.Spec
	ChannelMap sample.ChannelMap
	SourceName string
	Corked bool
	VariableRate bool
}

// LatencyInfo answers get-latency: sink-side and client-side
// latency plus the stream's current queue depth, all in microseconds
// except QueueDepthBytes.
type LatencyInfo struct {
	SinkLatencyUsec int64
	StreamLatencyUsec int64
	QueueDepthBytes int
}

// Dispatcher binds every protocol command to the core
// operations that implement it. It is the one place a concrete
// transport (native/legacy-CLI/legacy-binary, or the SPEC_FULL.md HTTP
// control surface) needs to call into; none of them touch *sndcore.Core
// directly.
type Dispatcher struct {
	Core *sndcore.Core
	defaults StreamDefaults

	playback map[uint32]*PlaybackStream
	record map[uint32]*RecordStream
	upload map[uint32]*UploadStream
	nextUp uint32
}

// NewDispatcher wraps core, using defaults for any create-playback-stream
// / create-record-stream request that doesn't override a sizing field.
func NewDispatcher(core *sndcore.Core, defaults StreamDefaults) *Dispatcher {
	return &Dispatcher{
 Core: core,
 defaults: defaults,
 playback: make(map[uint32]*PlaybackStream),
 record: make(map[uint32]*RecordStream),
 upload: make(map[uint32]*UploadStream),
	}
}

// --- Discovery ---

// GetServerInfo answers get-server-info.
func (d *Dispatcher) GetServerInfo(defaultSpec sample.Spec) ServerInfo {
	info := ServerInfo{Version: serverVersion, DefaultSampleSpec: defaultSpec}
	if sink, err := d.Core.DefaultSink(); err == nil {
 info.DefaultSinkName = sink.Name
	}
	if src, err := d.Core.DefaultSource(); err == nil {
 info.DefaultSourceName = src.Name
	}
	if host, err := os.Hostname(); err == nil {
 info.Hostname = host
	}
	info.User = os.Getenv("USER")
	return info
}

// ListSinks answers "list by kind" for sinks.
func (d *Dispatcher) ListSinks() []*sndcore.Sink { return d.Core.Sinks.Values() }

// ListSources answers "list by kind" for sources.
func (d *Dispatcher) ListSources() []*sndcore.Source { return d.Core.Sources.Values() }

// ListClients answers "list by kind" for clients.
func (d *Dispatcher) ListClients() []*sndcore.Client { return d.Core.Clients.Values() }

// ListModules answers "list by kind" for modules.
func (d *Dispatcher) ListModules() []*sndcore.Module { return d.Core.Modules.Values() }

// GetSinkInfo resolves nameOrIndex (a literal name or a decimal index)
// to a sink.
func (d *Dispatcher) GetSinkInfo(nameOrIndex string) (*sndcore.Sink, error) {
	return d.Core.LookupSink(nameOrIndex, true)
}

// GetSourceInfo mirrors GetSinkInfo for sources.
func (d *Dispatcher) GetSourceInfo(nameOrIndex string) (*sndcore.Source, error) {
	return d.Core.LookupSource(nameOrIndex, true)
}

// --- Stream lifecycle ---

// CreatePlaybackStream implements create-playback-stream:
// resolves the target sink (or the default), sizes the stream queue
// from the dispatcher's defaults overridden per-request, and returns the
// new stream's index plus the initial REQUEST byte count a transport
// should immediately emit.
func (d *Dispatcher) CreatePlaybackStream(req CreatePlaybackStreamRequest, onRequest RequestCallback) (idx uint32, initialRequest int, err error) {
	sink, err := d.resolveSink(req.SinkName)
	if err != nil {
 return 0, 0, err
	}
	maxLength, tlength, prebuf, minreq := d.defaults.resolve(req.Spec, req.Overrides)
	var reported int
	wrap := func(n int) {
 reported = n
 if onRequest != nil {
 onRequest(n)
 }
	}
	ps, err := newPlaybackStream(d.Core, req.Name, req, sink, maxLength, tlength, prebuf, minreq, wrap)
	if err != nil {
 return 0, 0, err
	}
	d.playback[ps.Index] = ps
	return ps.Index, reported, nil
}

// CreateRecordStream implements create-record-stream.
func (d *Dispatcher) CreateRecordStream(req CreateRecordStreamRequest, onPush RecordPushCallback) (uint32, error) {
	src, err := d.resolveSource(req.SourceName)
	if err != nil {
 return 0, err
	}
	rs, err := newRecordStream(d.Core, req.Name, req, src, onPush)
	if err != nil {
 return 0, err
	}
	rs.killed = func() { delete(d.record, rs.Index) }
	d.record[rs.Index] = rs
	return rs.Index, nil
}

// CreateUploadStream implements create-upload-stream: registers an
// in-memory accumulation buffer with no sink attachment.
// lengthHint may be 0 if the client didn't report an expected size.
func (d *Dispatcher) CreateUploadStream(name string, spec sample.Spec, lengthHint int) (uint32, error) {
	if err := spec.Validate(); err != nil {
 return 0, err
	}
	us := newUploadStream(name, spec, lengthHint, d.Core.Stat)
	d.nextUp++
	us.Index = d.nextUp
	d.upload[us.Index] = us
	return us.Index, nil
}

// PushUpload appends uploaded bytes to stream idx.
func (d *Dispatcher) PushUpload(idx uint32, data []byte) error {
	us, ok := d.upload[idx]
	if !ok {
 return sndcore.ErrNoEntity()
	}
	us.Push(data)
	return nil
}

// FinishUploadStream implements finish-upload-stream: commits the
// accumulated bytes into the sample cache under name and discards the
// upload stream.
func (d *Dispatcher) FinishUploadStream(idx uint32, volume sample.CVolume) (cacheIndex uint32, err error) {
	us, ok := d.upload[idx]
	if !ok {
 return 0, sndcore.ErrNoEntity()
	}
	chunk, err := us.finish()
	if err != nil {
 return 0, err
	}
	cacheIndex = d.Core.Cache.Add(us.Name, us.Spec, chunk, volume)
	chunk.Block.Unref()
	delete(d.upload, idx)
	return cacheIndex, nil
}

// DeleteStream implements delete-stream for either a playback or record
// stream index (indices are drawn from the same sink-input/source-output
// address space as every other entity, so a single index uniquely
// identifies one or the other, never both).
func (d *Dispatcher) DeleteStream(idx uint32) error {
	if ps, ok := d.playback[idx]; ok {
 si := ps.SinkInput()
 si.Kill()
 d.Core.RemoveSinkInput(si)
 delete(d.playback, idx)
 return nil
	}
	if rs, ok := d.record[idx]; ok {
 so := rs.SourceOutput()
 so.Kill()
 d.Core.RemoveSourceOutput(so)
 delete(d.record, idx)
 return nil
	}
	if _, ok := d.upload[idx]; ok {
 delete(d.upload, idx)
 return nil
	}
	return sndcore.ErrNoEntity()
}

// --- Stream control ---

func (d *Dispatcher) stream(idx uint32) (*PlaybackStream, error) {
	ps, ok := d.playback[idx]
	if !ok {
 return nil, sndcore.ErrNoEntity()
	}
	return ps, nil
}

// Cork implements cork/uncork for a playback or record stream.
func (d *Dispatcher) Cork(idx uint32, corked bool) error {
	if ps, ok := d.playback[idx]; ok {
 ps.Cork(corked)
 return nil
	}
	if rs, ok := d.record[idx]; ok {
 rs.Cork(corked)
 return nil
	}
	return sndcore.ErrNoEntity()
}

// Flush implements flush for a playback stream.
func (d *Dispatcher) Flush(idx uint32) error {
	ps, err := d.stream(idx)
	if err != nil {
 return err
	}
	ps.Flush()
	return nil
}

// Trigger implements trigger (disable prebuf).
func (d *Dispatcher) Trigger(idx uint32) error {
	ps, err := d.stream(idx)
	if err != nil {
 return err
	}
	ps.Trigger()
	return nil
}

// Prebuf implements prebuf (re-enable).
func (d *Dispatcher) Prebuf(idx uint32) error {
	ps, err := d.stream(idx)
	if err != nil {
 return err
	}
	ps.Prebuf()
	return nil
}

// Drain implements drain: reply when output-queue empty.
func (d *Dispatcher) Drain(idx uint32, cb DrainCallback) error {
	ps, err := d.stream(idx)
	if err != nil {
 return err
	}
	ps.Drain(cb)
	return nil
}

// SetStreamName implements set-name.
func (d *Dispatcher) SetStreamName(idx uint32, name string) error {
	ps, err := d.stream(idx)
	if err != nil {
 return err
	}
	ps.Name = name
	return nil
}

// GetLatency implements get-latency: client-side (queue depth converted
// to usec) + sink-side (the sink's own reported latency) + the queue
// depth in bytes.
func (d *Dispatcher) GetLatency(idx uint32) (LatencyInfo, error) {
	ps, err := d.stream(idx)
	if err != nil {
 return LatencyInfo{}, err
	}
	si := ps.SinkInput()
	streamUsec := si.Spec().BytesToUsec(int64(ps.Queue.Length()))
	var sinkUsec int64
	if sink := si.Sink(); sink != nil {
 sinkUsec = sink.GetLatency()
	}
	return LatencyInfo{SinkLatencyUsec: sinkUsec, StreamLatencyUsec: streamUsec, QueueDepthBytes: ps.Queue.Length()}, nil
}

// --- Sample cache ---

// PlaySample implements play-sample.
func (d *Dispatcher) PlaySample(name, sinkName string, volume sample.CVolume) error {
	sink, err := d.resolveSink(sinkName)
	if err != nil {
 return err
	}
	return d.Core.PlaySample(name, sink, volume)
}

// RemoveSample implements remove-sample.
func (d *Dispatcher) RemoveSample(name string) error {
	if !d.Core.Cache.Remove(name) {
 return sndcore.ErrNoEntity()
	}
	return nil
}

// ListSamples implements list-samples.
func (d *Dispatcher) ListSamples() []*sndcore.CacheEntry { return d.Core.Cache.List() }

// --- Volume ---

// SetSinkVolume implements set-sink-volume.
func (d *Dispatcher) SetSinkVolume(nameOrIndex string, v sample.CVolume) error {
	sink, err := d.Core.LookupSink(nameOrIndex, false)
	if err != nil {
 return err
	}
	sink.SetVolume(sndcore.VolumeModeAuto, v, d.Core.Bus)
	return nil
}

// SetSinkInputVolume implements set-sink-input-volume.
func (d *Dispatcher) SetSinkInputVolume(idx uint32, v sample.CVolume) error {
	si, ok := d.Core.SinkInputs.Get(idx)
	if !ok {
 return sndcore.ErrNoEntity()
	}
	si.SetVolume(v, d.Core.Bus)
	return nil
}

// --- Default-selection ---

// SetDefaultSink implements set-default-sink.
func (d *Dispatcher) SetDefaultSink(name string) error {
	if _, err := d.Core.LookupSink(name, false); err != nil {
 return err
	}
	d.Core.SetDefaultSinkName(name)
	return nil
}

// SetDefaultSource implements set-default-source.
func (d *Dispatcher) SetDefaultSource(name string) error {
	if _, err := d.Core.LookupSource(name, false); err != nil {
 return err
	}
	d.Core.SetDefaultSourceName(name)
	return nil
}

// --- Entity control ---

// KillClient implements kill-client.
func (d *Dispatcher) KillClient(idx uint32) error {
	cl, ok := d.Core.Clients.Get(idx)
	if !ok {
 return sndcore.ErrNoEntity()
	}
	cl.Kill()
	return nil
}

// KillSinkInput implements kill-sink-input.
func (d *Dispatcher) KillSinkInput(idx uint32) error {
	si, ok := d.Core.SinkInputs.Get(idx)
	if !ok {
 return sndcore.ErrNoEntity()
	}
	d.Core.KillSinkInput(si)
	return nil
}

// KillSourceOutput implements kill-source-output.
func (d *Dispatcher) KillSourceOutput(idx uint32) error {
	so, ok := d.Core.SourceOutputs.Get(idx)
	if !ok {
 return sndcore.ErrNoEntity()
	}
	d.Core.KillSourceOutput(so)
	return nil
}

// --- Module control ---

// LoadModule implements load-module.
func (d *Dispatcher) LoadModule(name, args string) (uint32, error) {
	mod, err := d.Core.LoadModuleByName(name, args)
	if err != nil {
 return 0, err
	}
	return mod.Index, nil
}

// UnloadModule implements unload-module.
func (d *Dispatcher) UnloadModule(idx uint32) error {
	mod, ok := d.Core.Modules.Get(idx)
	if !ok {
 return sndcore.ErrNoEntity()
	}
	d.Core.UnloadModule(mod, "client-requested")
	return nil
}

// --- Autoload ---

// AutoloadAdd implements autoload add.
func (d *Dispatcher) AutoloadAdd(name string, kind sndcore.AutoloadKind, moduleName, moduleArgs string) uint32 {
	return d.Core.Autoload.Add(name, kind, moduleName, moduleArgs)
}

// AutoloadRemove implements autoload remove.
func (d *Dispatcher) AutoloadRemove(name string, kind sndcore.AutoloadKind) {
	d.Core.Autoload.Remove(name, kind)
}

// AutoloadList implements autoload list.
func (d *Dispatcher) AutoloadList() []*sndcore.AutoloadEntry { return d.Core.Autoload.List() }

// AutoloadGet implements autoload get-by-name.
func (d *Dispatcher) AutoloadGet(name string, kind sndcore.AutoloadKind) (*sndcore.AutoloadEntry, error) {
	e, ok := d.Core.Autoload.Lookup(name, kind)
	if !ok {
 return nil, sndcore.ErrNoEntity()
	}
	return e, nil
}

// --- Subscription ---

// Subscribe implements subscribe(mask); unsolicited events flow back to
// cb as (facility, op, index).
func (d *Dispatcher) Subscribe(mask sndcore.SubscriptionMask, cb sndcore.SubscriptionCallback) sndcore.Handle {
	return d.Core.Bus.Subscribe(mask, cb)
}

// Unsubscribe releases a handle returned by Subscribe.
func (d *Dispatcher) Unsubscribe(h sndcore.Handle) { d.Core.Bus.Unsubscribe(h) }

// --- helpers ---

func (d *Dispatcher) resolveSink(name string) (*sndcore.Sink, error) {
	if name == "" {
 return d.Core.DefaultSink()
	}
	return d.Core.LookupSink(name, true)
}

func (d *Dispatcher) resolveSource(name string) (*sndcore.Source, error) {
	if name == "" {
 return d.Core.DefaultSource()
	}
	return d.Core.LookupSource(name, true)
}
