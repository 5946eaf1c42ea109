// Package dictation runs continuous speech-to-text capture in the background
// and hands recognized fragments to the control loop over a channel.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"quill/internal/domain"
)

var (
	ErrAlreadyRunning  = errors.New("dictation already running")
	ErrEmptyTranscript = errors.New("no speech recognized")
)

// State is the session run state.
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Config tunes the capture loop.
type Config struct {
	// CaptureWindow bounds a single recording.
	CaptureWindow time.Duration
	Language      string
	// RetryPerSecond caps how often failed attempts are retried.
	RetryPerSecond float64
}

// Session owns one background capture-and-transcribe worker at a time.
// Stop is cooperative: the worker sees the cancelled context at the next call
// boundary, which costs at most one capture window when a collaborator ignores it.
type Session struct {
	recorder    domain.Recorder
	transcriber domain.Transcriber
	cfg         Config
	logger      *slog.Logger

	fragments chan string
	failures  atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle session.
func New(recorder domain.Recorder, transcriber domain.Transcriber, cfg Config, logger *slog.Logger) *Session {
	if cfg.CaptureWindow <= 0 {
		cfg.CaptureWindow = 5 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.RetryPerSecond <= 0 {
		cfg.RetryPerSecond = 4
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		recorder:    recorder,
		transcriber: transcriber,
		cfg:         cfg,
		logger:      logger.With("component", "dictation"),
		fragments:   make(chan string),
	}
}

// Fragments delivers recognized text, each fragment ending in a space. The
// channel is unbuffered and lives as long as the session.
func (s *Session) Fragments() <-chan string { return s.fragments }

// Failures counts capture and transcription attempts that produced nothing.
func (s *Session) Failures() int64 { return s.failures.Load() }

// State reports whether a worker is running.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return Listening
	}
	return Idle
}

// Start spawns the worker. ctx bounds the whole session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.logger.Debug("listening", "transcriber", s.transcriber.Name())
	go s.run(runCtx, done)
	return nil
}

// Stop cancels the worker and waits for it to exit. Stopping an idle session
// does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Debug("stopped", "failures", s.failures.Load())
}

// Toggle starts an idle session or stops a running one and returns the new state.
func (s *Session) Toggle(ctx context.Context) (State, error) {
	if s.State() == Listening {
		s.Stop()
		return Idle, nil
	}
	if err := s.Start(ctx); err != nil {
		return s.State(), err
	}
	return Listening, nil
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.finish(done)
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RetryPerSecond), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		text, err := s.attempt(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			n := s.failures.Add(1)
			s.logger.Debug("attempt failed", "err", err, "failures", n)
			continue
		}
		select {
		case s.fragments <- text + " ":
		case <-ctx.Done():
			return
		}
	}
}

// finish returns the session to Idle when the worker exits on its own, for
// example because the parent context was cancelled. After Stop the fields
// already belong to nobody or to a newer worker and are left alone.
func (s *Session) finish(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.cancel()
	s.cancel, s.done = nil, nil
	s.logger.Debug("worker exited", "failures", s.failures.Load())
}

func (s *Session) attempt(ctx context.Context) (string, error) {
	wav, err := s.recorder.Record(ctx, s.cfg.CaptureWindow)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	text, err := s.transcriber.Transcribe(ctx, wav, s.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
