package discord

import (
	"encoding/binary"
	"errors"
	"fmt"

	"layeh.com/gopus"
)

const (
	opusSampleRate = 48000
	opusChannels   = 2

	// opusFrameSamples is the per-channel sample count of one 20 ms frame.
	opusFrameSamples = opusSampleRate / 50

	// opusFrameBytes is the s16le PCM size of one stereo frame (3840 bytes).
	opusFrameBytes = opusFrameSamples * opusChannels * 2

	opusMaxPacket = 4000
)

var errSendStalled = errors.New("discord: voice send stalled")

// frameEncoder turns 20 ms s16le stereo frames into Opus packets. It reuses
// its sample buffer and must not be shared between goroutines.
type frameEncoder struct {
	enc     *gopus.Encoder
	samples []int16
}

func newFrameEncoder() (*frameEncoder, error) {
	enc, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("discord: create opus encoder: %w", err)
	}
	return &frameEncoder{enc: enc, samples: make([]int16, opusFrameSamples*opusChannels)}, nil
}

// encode expects exactly opusFrameBytes of PCM.
func (e *frameEncoder) encode(frame []byte) ([]byte, error) {
	if len(frame) != opusFrameBytes {
		return nil, fmt.Errorf("discord: opus encode: frame is %d bytes, want %d", len(frame), opusFrameBytes)
	}
	for i := range e.samples {
		e.samples[i] = int16(binary.LittleEndian.Uint16(frame[2*i:]))
	}
	packet, err := e.enc.Encode(e.samples, opusFrameSamples, opusMaxPacket)
	if err != nil {
		return nil, fmt.Errorf("discord: opus encode: %w", err)
	}
	return packet, nil
}
