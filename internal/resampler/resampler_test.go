package resampler

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsed/pulsed/internal/sample"
)

func specS16(rate uint32, ch uint8) sample.Spec {
	return sample.Spec{Format: sample.FormatS16LE, Rate: rate, Channels: ch}
}

func TestNewRejectsIncompatibleChannelCounts(t *testing.T) {
	_, err := New(specS16(44100, 2), specS16(44100, 6), MethodSrcLinear, nil)
	require.Error(t, err)
}

func TestNewAllowsMonoOnEitherSide(t *testing.T) {
	_, err := New(specS16(44100, 1), specS16(44100, 2), MethodSrcLinear, nil)
	require.NoError(t, err)

	_, err = New(specS16(44100, 2), specS16(44100, 1), MethodSrcLinear, nil)
	require.NoError(t, err)
}

func TestNewUpgradesTrivialWhenFormatsDiffer(t *testing.T) {
	r, err := New(specS16(44100, 2), sample.Spec{Format: sample.FormatFloat32LE, Rate: 44100, Channels: 2}, MethodTrivial, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodSrcZeroOrderHold, r.Method())
}

func TestNewKeepsTrivialWhenFormatsAndChannelsMatch(t *testing.T) {
	r, err := New(specS16(44100, 2), specS16(48000, 2), MethodTrivial, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodTrivial, r.Method())
}

func TestRunIdentityRateAndFormatReturnsSameBytes(t *testing.T) {
	r, err := New(specS16(44100, 1), specS16(44100, 1), MethodTrivial, nil)
	require.NoError(t, err)

	in := chunkFromBytes([]byte{1, 0, 2, 0, 3, 0, 4, 0}, nil)
	defer in.Block.Unref()

	out := r.Run(in)
	defer out.Block.Unref()

	assert.Equal(t, in.Bytes(), out.Bytes())
}

func TestRunUpsampleProducesMoreFramesThanInput(t *testing.T) {
	r, err := New(specS16(8000, 1), specS16(16000, 1), MethodSrcLinear, nil)
	require.NoError(t, err)

	frames := 100
	raw := make([]byte, frames*2)
	in := chunkFromBytes(raw, nil)
	defer in.Block.Unref()

	out := r.Run(in)
	defer func() {
 if out.Block != nil {
 out.Block.Unref()
 }
	}()

	outFrames := out.Length / 2
	assert.InDelta(t, frames*2, outFrames, 2, "upsampling 8k->16k should roughly double frame count")
}

func TestRunDownsampleProducesFewerFramesThanInput(t *testing.T) {
	r, err := New(specS16(48000, 1), specS16(16000, 1), MethodSrcLinear, nil)
	require.NoError(t, err)

	frames := 300
	raw := make([]byte, frames*2)
	in := chunkFromBytes(raw, nil)
	defer in.Block.Unref()

	out := r.Run(in)
	defer func() {
 if out.Block != nil {
 out.Block.Unref()
 }
	}()

	outFrames := out.Length / 2
	assert.InDelta(t, frames/3, outFrames, 2, "downsampling 48k->16k should roughly third the frame count")
}

func TestRunPartialFrameAtTailIsDropped(t *testing.T) {
	r, err := New(specS16(44100, 1), specS16(44100, 1), MethodTrivial, nil)
	require.NoError(t, err)

	// 5 whole frames plus 1 dangling byte.
	in := chunkFromBytes([]byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 9}, nil)
	defer in.Block.Unref()

	out := r.Run(in)
	defer out.Block.Unref()

	assert.Equal(t, 10, out.Length)
}

func TestRunEmptyInputReturnsEmptyChunk(t *testing.T) {
	r, err := New(specS16(44100, 1), specS16(44100, 1), MethodTrivial, nil)
	require.NoError(t, err)

	out := r.Run(chunkFromBytes(nil, nil))
	assert.Equal(t, 0, out.Length)
	assert.Nil(t, out.Block)
}

func TestRequestScalesByRateRatio(t *testing.T) {
	r, err := New(specS16(8000, 1), specS16(16000, 1), MethodSrcLinear, nil)
	require.NoError(t, err)

	assert.Equal(t, 1000, r.Request(2000), "half the output bytes should be requested at half the rate")
}

func TestSetInputRateResetsTrivialPhase(t *testing.T) {
	r, err := New(specS16(44100, 1), specS16(48000, 1), MethodTrivial, nil)
	require.NoError(t, err)

	in := chunkFromBytes(make([]byte, 200), nil)
	defer in.Block.Unref()
	out := r.Run(in)
	if out.Block != nil {
 out.Block.Unref()
	}

	r.SetInputRate(44200)
	assert.NotPanics(t, func() {
 out2 := r.Run(in)
 if out2.Block != nil {
 out2.Block.Unref()
 }
	})
}

func TestSetSkewLoggerWarnsOnLargeRateChangeOnly(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	r, err := New(specS16(44100, 1), specS16(44100, 1), MethodTrivial, nil)
	require.NoError(t, err)
	r.SetSkewLogger(log)

	r.SetInputRate(44150) // well under the 2% threshold
	assert.NotContains(t, buf.String(), "clock skew")

	r.SetInputRate(40000) // a large jump, should log
	assert.Contains(t, buf.String(), "clock skew")
}

func TestSetOutputRateAppliesToOutputSide(t *testing.T) {
	r, err := New(specS16(44100, 1), specS16(44100, 1), MethodTrivial, nil)
	require.NoError(t, err)

	r.SetOutputRate(22050)

	frames := 100
	in := chunkFromBytes(make([]byte, frames*2), nil)
	defer in.Block.Unref()
	out := r.Run(in)
	defer func() {
 if out.Block != nil {
 out.Block.Unref()
 }
	}()

	outFrames := out.Length / 2
	assert.InDelta(t, frames/2, outFrames, 2, "halving the output rate should roughly halve frame count")
}
