package protocol

import (
	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/sample"
)

// UploadStream accumulates client-uploaded PCM for create-upload-stream,
// committed to the sample cache by FinishUploadStream.
// Unlike PlaybackStream it is never attached to a sink: it has no
// sink-input and no request-flow accounting, since an upload has no
// real-time deadline to push against.
type UploadStream struct {
	Index uint32
	Name string
	Spec sample.Spec
	Chunk memblock.Chunk

	stat *memblock.Stat
	buf []byte
	length int
}

func newUploadStream(name string, spec sample.Spec, lengthHint int, stat *memblock.Stat) *UploadStream {
	if lengthHint <= 0 {
 lengthHint = spec.FrameSize() * int(spec.Rate) // ~1 second, a reasonable starting capacity
	}
	return &UploadStream{Name: name, Spec: spec, stat: stat, buf: make([]byte, 0, lengthHint)}
}

// Push appends uploaded bytes to the accumulation buffer.
func (u *UploadStream) Push(data []byte) {
	u.buf = append(u.buf, data...)
}

// finish packages the accumulated bytes into a fresh memblock.Chunk for
// SampleCache.Add, failing if nothing was ever uploaded.
func (u *UploadStream) finish() (memblock.Chunk, error) {
	if len(u.buf) == 0 {
 return memblock.Chunk{}, errors.New(errors.NewStd("upload stream has no data")).
 Component("protocol").Category(errors.CategoryInvalid).Build()
	}
	blk := memblock.New(len(u.buf), u.stat)
	copy(blk.Data(), u.buf)
	return memblock.Chunk{Block: blk, Index: 0, Length: len(u.buf)}, nil
}
