package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// ErrTranscodeFailed is returned by [Transcoder.Transcode] when the input can
// not be decoded or converted.
var ErrTranscodeFailed = errors.New("audio: transcode failed")

// Codec identifies the container or encoding of synthesizer output.
type Codec int

const (
	// CodecUnknown is returned by [Sniff] for data it does not recognise.
	CodecUnknown Codec = iota

	// CodecWAV is RIFF/WAVE with 16-bit PCM samples.
	CodecWAV

	// CodecMP3 is MPEG-1/2 layer III, with or without an ID3v2 tag.
	CodecMP3
)

// String returns the human-readable name of the codec.
func (c Codec) String() string {
	switch c {
	case CodecWAV:
		return "wav"
	case CodecMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// Sniff inspects the leading bytes of data to determine its codec.
func Sniff(data []byte) Codec {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return CodecWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return CodecMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return CodecMP3
	}
	return CodecUnknown
}

// Transcoder decodes synthesizer output and converts it to a fixed PCM
// [Format]. The zero value is not usable; create one with [NewTranscoder].
//
// Transcoder is stateless and safe for concurrent use.
type Transcoder struct {
	target Format
}

// NewTranscoder returns a Transcoder producing PCM in target.
func NewTranscoder(target Format) *Transcoder {
	return &Transcoder{target: target}
}

// Target returns the output format.
func (t *Transcoder) Target() Format {
	return t.target
}

// Transcode decodes data (WAV or MP3) and returns PCM in the target format.
// All failures wrap [ErrTranscodeFailed].
func (t *Transcoder) Transcode(data []byte) ([]byte, error) {
	var (
		pcm []byte
		src Format
		err error
	)
	switch codec := Sniff(data); codec {
	case CodecWAV:
		pcm, src, err = decodeWAV(data)
	case CodecMP3:
		pcm, src, err = decodeMP3(data)
	default:
		return nil, fmt.Errorf("%w: unrecognised input (%d bytes)", ErrTranscodeFailed, len(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscodeFailed, err)
	}

	out, err := Convert(pcm, src, t.target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscodeFailed, err)
	}
	return out, nil
}

// decodeMP3 decodes an MP3 stream. go-mp3 always yields 16-bit stereo.
func decodeMP3(data []byte) ([]byte, Format, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, Format{}, fmt.Errorf("mp3 decoder: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, Format{}, fmt.Errorf("mp3 decode: %w", err)
	}
	return pcm, Format{SampleRate: dec.SampleRate(), Channels: 2}, nil
}

// decodeWAV walks the RIFF chunks of a WAV file and returns its sample data.
// Only 16-bit integer PCM is supported. Streaming servers sometimes write a
// placeholder data size; the data chunk is clamped to the bytes present.
func decodeWAV(data []byte) ([]byte, Format, error) {
	var (
		f           Format
		foundFormat bool
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, Format{}, errors.New("wav: short fmt chunk")
			}
			tag := binary.LittleEndian.Uint16(data[body:])
			bits := binary.LittleEndian.Uint16(data[body+14:])
			if tag != 1 || bits != 16 {
				return nil, Format{}, fmt.Errorf("wav: unsupported encoding (format %d, %d bits)", tag, bits)
			}
			f.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			f.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			foundFormat = true
		case "data":
			if !foundFormat {
				return nil, Format{}, errors.New("wav: data chunk before fmt chunk")
			}
			end := body + size
			if size < 0 || end > len(data) {
				end = len(data)
			}
			return data[body:end], f, nil
		}

		offset = body + size
		if size%2 != 0 {
			offset++
		}
	}
	return nil, Format{}, errors.New("wav: missing data chunk")
}
