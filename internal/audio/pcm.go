// Package audio decodes synthesized speech and plays it on the default output
// device.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"quill/internal/domain"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrMalformedWAV      = errors.New("malformed wav data")
)

// Stream is interleaved signed 16-bit PCM.
type Stream struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Decode interprets raw artifact bytes according to art.Format.
func Decode(art domain.Artifact, data []byte) (Stream, error) {
	switch art.Format {
	case "pcm":
		if art.SampleRate <= 0 || art.Channels <= 0 {
			return Stream{}, fmt.Errorf("%w: pcm without rate or channels", ErrUnsupportedFormat)
		}
		return Stream{Samples: int16s(data), SampleRate: art.SampleRate, Channels: art.Channels}, nil
	case "wav":
		return decodeWAV(data)
	default:
		return Stream{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, art.Format)
	}
}

// decodeWAV reads integer PCM WAV of any common bit depth. Streamed WAV
// (espeak-ng writing to a pipe) carries bogus RIFF and data sizes, so the
// header is not validated against them; the data chunk is read until the
// bytes run out.
func decodeWAV(data []byte) (Stream, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Stream{}, fmt.Errorf("%w: %v", ErrMalformedWAV, err)
	}
	if d.NumChans == 0 || d.SampleRate == 0 || d.BitDepth == 0 {
		return Stream{}, ErrMalformedWAV
	}
	if d.WavAudioFormat != wavFormatPCM {
		return Stream{}, fmt.Errorf("%w: wav format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %v", ErrMalformedWAV, err)
	}
	samples, err := toInt16(buf)
	if err != nil {
		return Stream{}, err
	}
	return Stream{Samples: samples, SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}, nil
}

const wavFormatPCM = 1

// toInt16 scales decoded samples to 16 bits. 8-bit WAV is unsigned.
func toInt16(buf *goaudio.IntBuffer) ([]int16, error) {
	out := make([]int16, len(buf.Data))
	switch depth := buf.SourceBitDepth; depth {
	case 8:
		for i, v := range buf.Data {
			out[i] = int16((v - 128) << 8)
		}
	case 16:
		for i, v := range buf.Data {
			out[i] = int16(v)
		}
	case 24, 32:
		shift := depth - 16
		for i, v := range buf.Data {
			out[i] = int16(v >> shift)
		}
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, depth)
	}
	return out, nil
}

func int16s(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// Convert downmixes to mono or duplicates to the requested channel count and
// resamples linearly to rate. The result is little endian bytes.
func Convert(st Stream, rate, channels int) []byte {
	mono := downmix(st.Samples, st.Channels)
	mono = resample(mono, st.SampleRate, rate)
	out := make([]byte, len(mono)*2*channels)
	i := 0
	for _, s := range mono {
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(out[i:], uint16(s))
			i += 2
		}
	}
	return out
}

func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += int(samples[f*channels+c])
		}
		out[f] = int16(sum / channels)
	}
	return out
}

func resample(in []int16, src, dst int) []int16 {
	if src == dst || src <= 0 || dst <= 0 || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(dst) / int64(src))
	out := make([]int16, n)
	step := float64(src) / float64(dst)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		a := float64(in[j])
		b := a
		if j+1 < len(in) {
			b = float64(in[j+1])
		}
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
