package narration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/domain"
)

type fakeSynth struct {
	dir   string
	calls atomic.Int32
	err   error
	// finishes only once the context is cancelled and then returns audio anyway
	late bool

	mu   sync.Mutex
	text string
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(ctx context.Context, text, _ string) (domain.Artifact, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.text = text
	f.mu.Unlock()
	if f.late {
		<-ctx.Done()
	}
	if f.err != nil {
		return domain.Artifact{}, f.err
	}
	p := filepath.Join(f.dir, "speech.pcm")
	if err := os.WriteFile(p, []byte{0, 0}, 0o644); err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{Path: p, Format: "pcm", SampleRate: 24000, Channels: 1}, nil
}

func (f *fakeSynth) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

type fakePlayback struct {
	remaining atomic.Int32 // polls left before playback ends; negative plays forever
	played    atomic.Int32
	stops     atomic.Int32
	closes    atomic.Int32
}

func (p *fakePlayback) Play() { p.played.Add(1) }

func (p *fakePlayback) Playing() bool {
	if p.stops.Load() > 0 {
		return false
	}
	r := p.remaining.Load()
	if r < 0 {
		return true
	}
	if r == 0 {
		return false
	}
	p.remaining.Add(-1)
	return true
}

func (p *fakePlayback) Stop() { p.stops.Add(1) }

func (p *fakePlayback) Close() error {
	p.closes.Add(1)
	return nil
}

type fakePlayer struct {
	pb    *fakePlayback
	err   error
	opens atomic.Int32
}

func (f *fakePlayer) Open(domain.Artifact) (domain.Playback, error) {
	f.opens.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.pb, nil
}

func newPlayback(polls int32) *fakePlayback {
	pb := &fakePlayback{}
	pb.remaining.Store(polls)
	return pb
}

func testConfig() Config {
	return Config{MaxChars: 10000, PollInterval: time.Millisecond, Language: "en"}
}

func waitFinished(t *testing.T, s *Session) Finished {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Finished")
		return Finished{}
	}
}

func TestSession_EmptyContent(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	s := New(synth, &fakePlayer{pb: newPlayback(0)}, testConfig(), nil)

	st, err := s.Toggle(context.Background(), "  \n\t ")

	assert.ErrorIs(t, err, ErrNothingToRead)
	assert.Equal(t, Idle, st)
	assert.Equal(t, Idle, s.State())
	assert.Zero(t, synth.calls.Load())
}

func TestSession_NaturalCompletionReleasesOnce(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	pb := newPlayback(3)
	s := New(synth, &fakePlayer{pb: pb}, testConfig(), nil)

	st, err := s.Toggle(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, Speaking, st)

	ev := waitFinished(t, s)
	assert.NoError(t, ev.Err)
	assert.False(t, ev.Stopped)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, int32(1), pb.played.Load())
	assert.Equal(t, int32(1), pb.closes.Load())
	assert.NoFileExists(t, filepath.Join(synth.dir, "speech.pcm"))
}

func TestSession_ToggleWhileSpeakingStopsWithoutNewSynthesis(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	pb := newPlayback(-1)
	s := New(synth, &fakePlayer{pb: pb}, testConfig(), nil)

	_, err := s.Toggle(context.Background(), "a long story")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return pb.played.Load() == 1 }, 2*time.Second, time.Millisecond)

	st, err := s.Toggle(context.Background(), "a long story")
	require.NoError(t, err)
	assert.Equal(t, Idle, st)
	assert.Equal(t, Idle, s.State())

	ev := waitFinished(t, s)
	assert.True(t, ev.Stopped)
	assert.NoError(t, ev.Err)
	assert.Equal(t, int32(1), synth.calls.Load())
	assert.Equal(t, int32(1), pb.closes.Load())
	assert.NoFileExists(t, filepath.Join(synth.dir, "speech.pcm"))
}

func TestSession_StopIsIdempotent(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	pb := newPlayback(-1)
	s := New(synth, &fakePlayer{pb: pb}, testConfig(), nil)

	s.Stop()
	assert.Equal(t, Idle, s.State())

	_, err := s.Toggle(context.Background(), "text")
	require.NoError(t, err)
	s.Stop()
	s.Stop()

	waitFinished(t, s)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, int32(1), pb.closes.Load())
	assert.Equal(t, int32(1), pb.stops.Load())
}

func TestSession_SynthesisFailure(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir(), err: errors.New("quota exceeded")}
	player := &fakePlayer{pb: newPlayback(0)}
	s := New(synth, player, testConfig(), nil)

	_, err := s.Toggle(context.Background(), "text")
	require.NoError(t, err)

	ev := waitFinished(t, s)
	require.Error(t, ev.Err)
	assert.Contains(t, ev.Err.Error(), "quota exceeded")
	assert.Equal(t, Idle, s.State())
	assert.Zero(t, player.opens.Load())
}

func TestSession_PlaybackFailureRemovesArtifact(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	s := New(synth, &fakePlayer{err: errors.New("device busy")}, testConfig(), nil)

	_, err := s.Toggle(context.Background(), "text")
	require.NoError(t, err)

	ev := waitFinished(t, s)
	assert.ErrorContains(t, ev.Err, "device busy")
	assert.Equal(t, Idle, s.State())
	assert.NoFileExists(t, filepath.Join(synth.dir, "speech.pcm"))
}

func TestSession_AudioFinishedAfterStopIsNotPlayed(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{dir: dir, late: true}
	player := &fakePlayer{pb: newPlayback(-1)}
	s := New(synth, player, testConfig(), nil)

	_, err := s.Toggle(context.Background(), "hello")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return synth.calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Stop()

	ev := waitFinished(t, s)
	assert.True(t, ev.Stopped)
	assert.Zero(t, player.opens.Load())
	assert.Zero(t, player.pb.played.Load())
	assert.NoFileExists(t, filepath.Join(dir, "speech.pcm"))
	assert.Equal(t, Idle, s.State())
}

func TestSession_SnapshotIsCapped(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	cfg := testConfig()
	cfg.MaxChars = 4
	s := New(synth, &fakePlayer{pb: newPlayback(0)}, cfg, nil)

	_, err := s.Toggle(context.Background(), "مرحبا بالعالم")
	require.NoError(t, err)
	waitFinished(t, s)

	assert.Equal(t, "مرحب", synth.lastText())
}

func TestSession_CanRestartAfterFinish(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	s := New(synth, &fakePlayer{pb: newPlayback(0)}, testConfig(), nil)

	for i := 0; i < 2; i++ {
		st, err := s.Toggle(context.Background(), "again")
		require.NoError(t, err)
		assert.Equal(t, Speaking, st)
		waitFinished(t, s)
	}
	assert.Equal(t, int32(2), synth.calls.Load())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
	assert.Equal(t, "é", truncateRunes("éa", 1))
}
