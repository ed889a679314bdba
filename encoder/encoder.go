// Package encoder compresses segment PCM into FLAC for upload to
// batch transcription providers. One encoder instance serves one
// segment; frames are written block by block as the segment's samples
// are consumed, then Bytes returns the finished stream.
package encoder

import "time"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder turns int16 sample blocks into a compressed byte stream.
// EncodeTime accumulates only what callers report via AddEncodeTime,
// so the encode cost of a segment can be split across flush cycles.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}
