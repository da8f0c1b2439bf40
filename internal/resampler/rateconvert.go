package resampler

// convertRate resamples a mono float32 stream from inRate to outRate,
// choosing an interpolation kernel by method. All three "sinc quality"
// tiers share the cubic kernel: this module has no windowed-sinc table,
// only a continuous interpolation ladder (hold, linear, cubic), so the
// distinction between the three sinc methods collapses to one kernel
// here.
func convertRate(in []float32, inRate, outRate int, method Method) []float32 {
	if inRate == outRate {
 out := make([]float32, len(in))
 copy(out, in)
 return out
	}
	if len(in) == 0 {
 return nil
	}

	outLen := int((int64(len(in))*int64(outRate) + int64(inRate)/2) / int64(inRate))
	out := make([]float32, outLen)
	ratio := float64(inRate) / float64(outRate)

	for i := range out {
 t := float64(i) * ratio
 switch method {
 case MethodSrcZeroOrderHold, MethodTrivial:
 out[i] = sampleHold(in, t)
 case MethodSrcLinear:
 out[i] = sampleLinear(in, t)
 default:
 out[i] = sampleCubic(in, t)
 }
	}
	return out
}

func clampIndex(in []float32, i int) float32 {
	if i < 0 {
 i = 0
	}
	if i >= len(in) {
 i = len(in) - 1
	}
	return in[i]
}

func sampleHold(in []float32, t float64) float32 {
	return clampIndex(in, int(t))
}

func sampleLinear(in []float32, t float64) float32 {
	i0 := int(t)
	frac := float32(t - float64(i0))
	a := clampIndex(in, i0)
	b := clampIndex(in, i0+1)
	return a + (b-a)*frac
}

// sampleCubic is a Catmull-Rom interpolation over the four samples
// straddling t, clamped at the stream boundaries.
func sampleCubic(in []float32, t float64) float32 {
	i1 := int(t)
	frac := float32(t - float64(i1))

	p0 := clampIndex(in, i1-1)
	p1 := clampIndex(in, i1)
	p2 := clampIndex(in, i1+1)
	p3 := clampIndex(in, i1+2)

	a0 := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	a1 := p0 - 2.5*p1 + 2*p2 - 0.5*p3
	a2 := -0.5*p0 + 0.5*p2
	a3 := p1

	f2 := frac * frac
	return a0*frac*f2 + a1*f2 + a2*frac + a3
}
