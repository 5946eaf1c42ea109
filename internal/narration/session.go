// Package narration reads document text aloud on a background worker.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"quill/internal/domain"
)

var (
	ErrNothingToRead = errors.New("no text to read")
)

// State is the session run state.
type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// Finished is emitted once per read-aloud run after its audio resources are released.
// Err is nil on natural completion and on an explicit stop.
type Finished struct {
	Err     error
	Stopped bool
}

// Config tunes synthesis and playback.
type Config struct {
	// MaxChars caps the snapshot handed to the synthesizer.
	MaxChars     int
	PollInterval time.Duration
	Language     string
}

// Session owns at most one synthesize-and-play worker.
type Session struct {
	synth  domain.Synthesizer
	player domain.Player
	cfg    Config
	logger *slog.Logger

	events chan Finished

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle session.
func New(synth domain.Synthesizer, player domain.Player, cfg Config, logger *slog.Logger) *Session {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 10000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		synth:  synth,
		player: player,
		cfg:    cfg,
		logger: logger.With("component", "narration"),
		events: make(chan Finished, 1),
	}
}

// Events delivers one Finished per run.
func (s *Session) Events() <-chan Finished { return s.events }

// State reports whether a worker is running.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return Speaking
	}
	return Idle
}

// Toggle stops a running session, or starts reading content when idle.
// Empty content returns ErrNothingToRead and spawns nothing.
func (s *Session) Toggle(ctx context.Context, content string) (State, error) {
	if s.State() == Speaking {
		s.Stop()
		return Idle, nil
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return Idle, ErrNothingToRead
	}
	text = truncateRunes(text, s.cfg.MaxChars)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return Speaking, nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.logger.Debug("speaking", "chars", len([]rune(text)), "synthesizer", s.synth.Name())
	go s.run(runCtx, text, done)
	return Speaking, nil
}

// Stop ends playback and waits until the worker has released its resources.
// Stopping an idle session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Session) run(ctx context.Context, text string, done chan struct{}) {
	defer close(done)
	err := s.speak(ctx, text)
	stopped := ctx.Err() != nil
	if stopped {
		err = nil
	}
	if err != nil {
		s.logger.Warn("read aloud failed", "err", err)
	}

	s.mu.Lock()
	s.cancel()
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	// A previous notice nobody consumed is replaced by this one.
	select {
	case <-s.events:
	default:
	}
	s.events <- Finished{Err: err, Stopped: stopped}
}

// speak runs one synthesize-play-poll cycle. Every resource it acquires is
// released before it returns.
func (s *Session) speak(ctx context.Context, text string) error {
	art, err := s.synth.Synthesize(ctx, text, s.cfg.Language)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	defer removeArtifact(art, s.logger)
	if ctx.Err() != nil {
		return nil
	}

	pb, err := s.player.Open(art)
	if err != nil {
		return fmt.Errorf("open playback: %w", err)
	}
	defer func() {
		pb.Stop()
		if cerr := pb.Close(); cerr != nil {
			s.logger.Debug("close playback", "err", cerr)
		}
	}()
	if ctx.Err() != nil {
		return nil
	}

	pb.Play()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for pb.Playing() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func removeArtifact(art domain.Artifact, logger *slog.Logger) {
	if art.Path == "" {
		return
	}
	if err := os.Remove(art.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debug("remove artifact", "path", art.Path, "err", err)
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
