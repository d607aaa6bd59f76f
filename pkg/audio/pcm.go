package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Format describes the layout of signed 16-bit little-endian interleaved PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Discord is the PCM layout Discord voice expects: 48 kHz interleaved stereo.
var Discord = Format{SampleRate: 48000, Channels: 2}

var errInvalidFormat = errors.New("audio: invalid format")

// String returns e.g. "48000Hz stereo".
func (f Format) String() string {
	switch f.Channels {
	case 1:
		return fmt.Sprintf("%dHz mono", f.SampleRate)
	case 2:
		return fmt.Sprintf("%dHz stereo", f.SampleRate)
	default:
		return fmt.Sprintf("%dHz %dch", f.SampleRate, f.Channels)
	}
}

// FrameBytes is the size in bytes of one sample across all channels.
func (f Format) FrameBytes() int {
	return f.Channels * 2
}

// Duration returns the play time of n bytes of PCM in this format.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := n / f.FrameBytes()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// Convert resamples and remixes pcm from src to dst. Resampling uses linear
// interpolation and happens before the channel conversion so that a mono
// source is never resampled as stereo. A trailing partial frame is dropped.
// When src equals dst the input is returned unchanged.
func Convert(pcm []byte, src, dst Format) ([]byte, error) {
	if !src.valid() || !dst.valid() {
		return nil, fmt.Errorf("audio: convert %s to %s: %w", src, dst, errInvalidFormat)
	}
	if src == dst {
		return pcm, nil
	}

	whole := len(pcm) - len(pcm)%src.FrameBytes()
	samples := decodeSamples(pcm[:whole])
	samples = resample(samples, src.Channels, src.SampleRate, dst.SampleRate)
	samples = remix(samples, src.Channels, dst.Channels)
	return encodeSamples(samples), nil
}

// resample converts interleaved samples with the given channel count from
// srcRate to dstRate.
func resample(in []int16, channels, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(in) == 0 {
		return in
	}
	srcFrames := len(in) / channels
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	out := make([]int16, dstFrames*channels)
	step := float64(srcRate) / float64(dstRate)

	for i := range dstFrames {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		next := idx + 1
		if next >= srcFrames {
			next = srcFrames - 1
		}
		for ch := range channels {
			a := float64(in[idx*channels+ch])
			b := float64(in[next*channels+ch])
			out[i*channels+ch] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// remix changes the channel count of interleaved samples. Sources with more
// channels than the target are averaged down; mono sources are duplicated
// into every output channel.
func remix(in []int16, srcCh, dstCh int) []int16 {
	if srcCh == dstCh {
		return in
	}
	frames := len(in) / srcCh
	out := make([]int16, frames*dstCh)
	for i := range frames {
		var sum int32
		for ch := range srcCh {
			sum += int32(in[i*srcCh+ch])
		}
		v := clamp16(sum / int32(srcCh))
		for ch := range dstCh {
			out[i*dstCh+ch] = v
		}
	}
	return out
}

func clamp16(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}

func decodeSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func encodeSamples(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
