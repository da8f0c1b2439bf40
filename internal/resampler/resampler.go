package resampler

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

// skewWarnInterval bounds how often SetInputRate logs a large-skew
// warning: a combined sink under steady clock drift calls SetInputRate
// on every render, and logging each call would flood the log for a
// condition that's only interesting as a trend, not a per-call event.
const skewWarnInterval = 5 * time.Second

// skewWarnThreshold is the fractional rate change (e.g. 0.02 == 2%)
// above which a SetInputRate call is considered a large correction
// worth logging rather than routine clock-skew tracking jitter.
const skewWarnThreshold = 0.02

// Resampler converts memchunks from one sample spec to another: decode
// to float32 (mixing down to mono when channel counts disagree),
// convert sample rate, encode to the target format (replicating mono
// back out to N channels when needed). A Resampler is bound to one
// (input, output) spec pair for its lifetime; SetInputRate lets the
// input rate drift (e.g. a capture device's clock) without rebuilding
// the whole pipeline.
type Resampler struct {
	in, out sample.Spec
	method Method

	trivial *trivialState // only set when the byte-domain fast path applies
	stat *memblock.Stat

	log *slog.Logger
	skewLimiter *rate.Limiter
}

// New builds a resampler from in to out. Channel counts may differ only
// if one side is mono: real N:M channel remapping is out of scope.
func New(in, out sample.Spec, method Method, stat *memblock.Stat) (*Resampler, error) {
	if err := in.Validate(); err != nil {
 return nil, err
	}
	if err := out.Validate(); err != nil {
 return nil, err
	}
	if in.Channels != out.Channels && in.Channels != 1 && out.Channels != 1 {
 return nil, fmt.Errorf("resampler: incompatible channel counts %d -> %d", in.Channels, out.Channels)
	}

	r := &Resampler{in: in, out: out, method: method, stat: stat}

	// The byte-domain fast path applies only when format and channel
	// count both already match and the trivial method was requested
	// explicitly; everything else goes through the float pipeline, with
	// a Trivial request silently upgraded to ZeroOrderHold quality.
	if in.Format == out.Format && in.Channels == out.Channels && method == MethodTrivial {
 r.trivial = &trivialState{}
	} else if method == MethodTrivial {
 r.method = MethodSrcZeroOrderHold
	}
	return r, nil
}

// Method reports the effective method in use (after any Trivial
// upgrade performed by New).
func (r *Resampler) Method() Method { return r.method }

// SetSkewLogger enables "clock skew too large" warnings from
// SetInputRate, rate-limited to at most one per skewWarnInterval so a
// combined sink under continuous drift can't flood the log (
// non-fatal warnings).
func (r *Resampler) SetSkewLogger(log *slog.Logger) {
	r.log = log
	r.skewLimiter = rate.NewLimiter(rate.Every(skewWarnInterval), 1)
}

// SetInputRate changes the input side's rate in place, resetting any
// byte-domain phase accumulator the way trivial_set_input_rate does.
func (r *Resampler) SetInputRate(newRate int) {
	old := r.in.Rate
	r.in.Rate = uint32(newRate)
	if r.trivial != nil {
 r.trivial.reset()
	}
	r.warnOnLargeSkew(old, r.in.Rate)
}

// SetOutputRate changes the output side's rate in place, for a
// source-output requesting a different capture rate than its source
// runs at; mirrors SetInputRate's phase reset and skew warning.
func (r *Resampler) SetOutputRate(newRate int) {
	old := r.out.Rate
	r.out.Rate = uint32(newRate)
	if r.trivial != nil {
 r.trivial.reset()
	}
	r.warnOnLargeSkew(old, r.out.Rate)
}

func (r *Resampler) warnOnLargeSkew(old, next uint32) {
	if r.log == nil || old == 0 {
 return
	}
	delta := float64(int64(next) - int64(old))
	if delta < 0 {
 delta = -delta
	}
	if delta/float64(old) <= skewWarnThreshold {
 return
	}
	if r.skewLimiter != nil && !r.skewLimiter.Allow() {
 return
	}
	r.log.Warn("clock skew correction too large",
 "previous_rate", old, "new_rate", next)
}

// Request returns how many input bytes are needed to produce exactly
// outLength bytes of output.
func (r *Resampler) Request(outLength int) int {
	oFrame := r.out.FrameSize()
	iFrame := r.in.FrameSize()
	if oFrame == 0 {
 return 0
	}
	return ((outLength/oFrame)*int(r.in.Rate)/int(r.out.Rate)) * iFrame
}

// Run converts one chunk from the input spec to the output spec and
// returns an output chunk the caller holds one reference to. On the
// trivial path at equal rates that chunk is a view of the input's own
// block (its refcount incremented); otherwise it is a freshly allocated
// block. An empty result chunk (Length 0) means the input didn't carry
// a full input frame yet.
func (r *Resampler) Run(in memblock.Chunk) memblock.Chunk {
	if in.Length == 0 {
 return memblock.Chunk{}
	}
	iFrame := r.in.FrameSize()
	raw := in.Bytes()
	raw = raw[:len(raw)-len(raw)%iFrame]
	if len(raw) == 0 {
 return memblock.Chunk{}
	}

	if r.trivial != nil {
 if r.in.Rate == r.out.Rate {
 in.Block.Ref()
 return memblock.Chunk{Block: in.Block, Index: in.Index, Length: len(raw)}
 }
 out := r.trivial.run(raw, iFrame, int(r.in.Rate), int(r.out.Rate))
 return chunkFromBytes(out, r.stat)
	}

	mono := decodeToFloat32(r.in.Format, raw, int(r.in.Channels))
	mono = convertRate(mono, int(r.in.Rate), int(r.out.Rate), r.method)
	out := encodeFromFloat32(r.out.Format, mono, int(r.out.Channels))
	return chunkFromBytes(out, r.stat)
}

func chunkFromBytes(data []byte, stat *memblock.Stat) memblock.Chunk {
	if len(data) == 0 {
 return memblock.Chunk{}
	}
	b := memblock.New(len(data), stat)
	copy(b.Data(), data)
	return memblock.Chunk{Block: b, Index: 0, Length: len(data)}
}
