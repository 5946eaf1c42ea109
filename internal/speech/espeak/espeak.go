// Package espeak synthesizes speech locally with the espeak-ng command.
package espeak

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"quill/internal/domain"
	"quill/internal/speech"
)

// Config configures the espeak-ng synthesizer.
type Config struct {
	// Binary defaults to espeak-ng.
	Binary string
	// WordsPerMinute is passed as -s when positive.
	WordsPerMinute int
	TempDir        string
}

// Synthesizer runs espeak-ng and stores its WAV output as an artifact.
type Synthesizer struct {
	cfg Config
}

func New(cfg Config) *Synthesizer {
	if cfg.Binary == "" {
		cfg.Binary = "espeak-ng"
	}
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Name() string { return "espeak" }

// Synthesize feeds text on stdin so arbitrary content never reaches the argv.
func (s *Synthesizer) Synthesize(ctx context.Context, text, lang string) (domain.Artifact, error) {
	args := []string{"--stdout", "--stdin"}
	if lang != "" {
		args = append(args, "-v", lang)
	}
	if s.cfg.WordsPerMinute > 0 {
		args = append(args, "-s", strconv.Itoa(s.cfg.WordsPerMinute))
	}
	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...)
	cmd.Stdin = bytes.NewBufferString(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%s: %w: %s", s.cfg.Binary, err, bytes.TrimSpace(stderr.Bytes()))
	}
	path := speech.ArtifactPath(s.cfg.TempDir, "wav")
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return domain.Artifact{}, err
	}
	// rate and channels come from the RIFF header at playback
	return domain.Artifact{Path: path, Format: "wav"}, nil
}
