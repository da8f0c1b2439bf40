package resampler

// trivialState is the byte-domain fast path used when input and output
// share both format and channel count, so no float conversion or
// channel mixdown is needed at all, only (possibly) a rate change. It
// is a phase accumulator over frame indices: advance an input-frame
// counter and an output-frame counter in lockstep, picking the input
// frame whose position the output counter has just reached, and
// periodically normalizing both counters against the sample rates to
// avoid unbounded growth.
type trivialState struct {
	iCounter, oCounter uint64
}

// run resamples one chunk of raw frames (frameSize bytes each) from
// iRate to oRate, copying the picked input frame's bytes verbatim into
// the output. iRate and oRate are unchanged between calls on an
// instance; state carries the fractional phase across chunks.
func (t *trivialState) run(in []byte, frameSize, iRate, oRate int) []byte {
	nframes := len(in) / frameSize
	if nframes == 0 {
 return nil
	}

	if iRate == oRate {
 out := make([]byte, len(in))
 copy(out, in)
 t.oCounter += uint64(nframes)
 t.iCounter += uint64(nframes)
 t.normalize(iRate, oRate)
 return out
	}

	capFrames := (nframes+1)*oRate/iRate + 1
	out := make([]byte, 0, capFrames*frameSize)

	for {
 j64 := t.oCounter * uint64(iRate) / uint64(oRate)
 var j uint64
 if j64 > t.iCounter {
 j = j64 - t.iCounter
 }
 if j >= uint64(nframes) {
 break
 }
 out = append(out, in[int(j)*frameSize:(int(j)+1)*frameSize]...)
 t.oCounter++
	}

	t.iCounter += uint64(nframes)
	t.normalize(iRate, oRate)
	return out
}

func (t *trivialState) normalize(iRate, oRate int) {
	for t.iCounter >= uint64(iRate) {
 t.iCounter -= uint64(iRate)
 t.oCounter -= uint64(oRate)
	}
}

// reset clears the phase accumulator, matching trivial_set_input_rate's
// behavior of restarting the counters whenever the input rate changes
// (the original rate's fractional phase has no meaning against a new
// one).
func (t *trivialState) reset() {
	t.iCounter = 0
	t.oCounter = 0
}
