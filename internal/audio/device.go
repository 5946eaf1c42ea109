package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ebitengine/oto/v3"

	"quill/internal/domain"
)

var ErrDeviceClosed = errors.New("audio device closed")

// Device is the process-wide output context. oto allows one context per
// process, so the application opens a Device once and closes it on exit.
type Device struct {
	ctx      *oto.Context
	rate     int
	channels int

	mu     sync.Mutex
	closed bool
}

// OpenDevice initializes the output device at the given sample rate, mono.
func OpenDevice(sampleRate int) (*Device, error) {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready
	return &Device{ctx: ctx, rate: sampleRate, channels: 1}, nil
}

// Close suspends the device. Playbacks opened afterwards fail.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.ctx.Suspend()
}

// Open decodes the artifact and prepares a paused player for it.
func (d *Device) Open(art domain.Artifact) (domain.Playback, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrDeviceClosed
	}
	data, err := os.ReadFile(art.Path)
	if err != nil {
		return nil, err
	}
	st, err := Decode(art, data)
	if err != nil {
		return nil, err
	}
	p := d.ctx.NewPlayer(bytes.NewReader(Convert(st, d.rate, d.channels)))
	return &playback{player: p}, nil
}

type playback struct {
	player *oto.Player
	once   sync.Once
	err    error
}

func (p *playback) Play() { p.player.Play() }

func (p *playback) Playing() bool { return p.player.IsPlaying() }

func (p *playback) Stop() { p.player.Pause() }

// Close releases the player once; later calls return the first result.
func (p *playback) Close() error {
	p.once.Do(func() {
		p.err = p.player.Close()
	})
	return p.err
}
