package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"quill/internal/chunker"
	"quill/internal/domain"
	"quill/internal/speech"
)

// The speech endpoint rejects longer inputs.
const maxSegmentChars = 4096

// pcm responses are 24 kHz mono signed 16-bit little endian.
const pcmSampleRate = 24000

// Client is an OpenAI-compatible speech client. It transcribes captures with
// Whisper and synthesizes narration with the speech endpoint.
type Client struct {
	api             *goopenai.Client
	transcribeModel string
	speechModel     string
	voice           string
	tempDir         string
	maxRetries      int
	chunker         *chunker.SentenceChunker
}

// Config configures the OpenAI-compatible speech client.
type Config struct {
	BaseURL         string
	APIKeyEnv       string
	TranscribeModel string
	SpeechModel     string
	Voice           string
	Timeout         time.Duration
	TempDir         string
}

// NewClient creates a new speech client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = goopenai.Whisper1
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(goopenai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(goopenai.VoiceAlloy)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	apiCfg := goopenai.DefaultConfig(key)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiCfg.HTTPClient = &http.Client{Timeout: t}
	return &Client{
		api:             goopenai.NewClientWithConfig(apiCfg),
		transcribeModel: cfg.TranscribeModel,
		speechModel:     cfg.SpeechModel,
		voice:           cfg.Voice,
		tempDir:         cfg.TempDir,
		maxRetries:      3,
		chunker:         chunker.NewSentenceChunker(maxSegmentChars),
	}, nil
}

// Name returns the identifier of this backend.
func (c *Client) Name() string { return "openai" }

// Transcribe sends one WAV capture to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, wav []byte, lang string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: "capture.wav",
		Reader:   bytes.NewReader(wav),
		Language: lang,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Synthesize renders text as raw PCM into a temp file. Text longer than the
// endpoint limit is split on sentence boundaries and the segments are
// concatenated. The endpoint detects the language itself, so lang is unused.
func (c *Client) Synthesize(ctx context.Context, text, _ string) (domain.Artifact, error) {
	segments := c.chunker.Chunk(text)
	if len(segments) == 0 {
		return domain.Artifact{}, errors.New("nothing to synthesize")
	}
	path := speech.ArtifactPath(c.tempDir, "pcm")
	f, err := os.Create(path)
	if err != nil {
		return domain.Artifact{}, err
	}
	for _, seg := range segments {
		audio, err := c.speakWithRetry(ctx, seg)
		if err == nil {
			_, err = f.Write(audio)
		}
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return domain.Artifact{}, err
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return domain.Artifact{}, err
	}
	return domain.Artifact{Path: path, Format: "pcm", SampleRate: pcmSampleRate, Channels: 1}, nil
}

func (c *Client) speakWithRetry(ctx context.Context, input string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		audio, err := c.speak(ctx, input)
		if err == nil {
			return audio, nil
		}
		if attempt >= c.maxRetries || !retryable(err) {
			return nil, fmt.Errorf("openai speech failed: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
}

func (c *Client) speak(ctx context.Context, input string) ([]byte, error) {
	resp, err := c.api.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(c.speechModel),
		Input:          input,
		Voice:          goopenai.SpeechVoice(c.voice),
		ResponseFormat: goopenai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
