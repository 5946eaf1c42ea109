package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quill/internal/audio"
	"quill/internal/capture/command"
	"quill/internal/config"
	"quill/internal/dictation"
	"quill/internal/document"
	"quill/internal/domain"
	"quill/internal/narration"
	"quill/internal/speech/espeak"
	"quill/internal/speech/openai"
	"quill/internal/tui"
	"quill/internal/watch"
)

// app owns the process-wide resources: the audio device, the two speech
// sessions and the file watcher. Missing speech backends disable the
// feature instead of failing start-up.
type app struct {
	log       *slog.Logger
	store     *document.Store
	device    *audio.Device
	dictation *dictation.Session
	narration *narration.Session
	watcher   *watch.Watcher
}

func newApp(cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	a := &app{log: logger, store: document.NewStore()}

	rec, err := buildRecorder(cfg.Dictation.Recorder)
	if err != nil {
		return nil, err
	}
	tr, err := buildTranscriber(cfg.Dictation.Transcriber)
	if err != nil {
		logger.Warn("dictation disabled", "err", err)
	} else {
		a.dictation = dictation.New(rec, tr, dictation.Config{
			CaptureWindow:  time.Duration(cfg.Dictation.CaptureSecs * float64(time.Second)),
			Language:       cfg.Dictation.Language,
			RetryPerSecond: cfg.Dictation.RetryPerSec,
		}, logger)
	}

	synth, err := buildSynthesizer(cfg.Narration.Synthesizer)
	if err != nil {
		logger.Warn("read aloud disabled", "err", err)
	} else if dev, err := audio.OpenDevice(cfg.Narration.SampleRate); err != nil {
		logger.Warn("read aloud disabled", "err", err)
	} else {
		a.device = dev
		a.narration = narration.New(synth, dev, narration.Config{
			MaxChars:     cfg.Narration.MaxChars,
			PollInterval: time.Duration(cfg.Narration.PollMillis) * time.Millisecond,
			Language:     cfg.Narration.Language,
		}, logger)
	}

	if w, err := watch.New(logger); err != nil {
		logger.Warn("file watching disabled", "err", err)
	} else {
		a.watcher = w
	}
	return a, nil
}

// Deps hands the TUI its collaborators, leaving disabled ones nil.
func (a *app) Deps() tui.Deps {
	d := tui.Deps{Store: a.store, Logger: a.log, Clipboard: tui.SystemClipboard{}}
	if a.dictation != nil {
		d.Dictation = a.dictation
	}
	if a.narration != nil {
		d.Narration = a.narration
	}
	if a.watcher != nil {
		d.Watcher = a.watcher
	}
	return d
}

// Close stops the workers before releasing the device they play on.
func (a *app) Close() {
	if a.dictation != nil {
		a.dictation.Stop()
	}
	if a.narration != nil {
		a.narration.Stop()
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.log.Debug("watcher close", "err", err)
		}
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			a.log.Debug("audio device close", "err", err)
		}
	}
}

func buildRecorder(c config.RecorderConfig) (domain.Recorder, error) {
	switch c.Type {
	case "command", "":
		return command.New(c.Command)
	default:
		return nil, fmt.Errorf("unknown recorder: %s", c.Type)
	}
}

func buildTranscriber(c config.TranscriberConfig) (domain.Transcriber, error) {
	switch c.Type {
	case "openai", "":
		if c.OpenAI == nil {
			return nil, errors.New("openai transcriber config missing")
		}
		return openai.NewClient(openaiConfig(c.OpenAI))
	default:
		return nil, fmt.Errorf("unknown transcriber: %s", c.Type)
	}
}

func buildSynthesizer(c config.SynthesizerConfig) (domain.Synthesizer, error) {
	switch c.Type {
	case "openai", "":
		if c.OpenAI == nil {
			return nil, errors.New("openai synthesizer config missing")
		}
		return openai.NewClient(openaiConfig(c.OpenAI))
	case "espeak":
		ec := espeak.Config{}
		if c.Espeak != nil {
			ec.Binary = c.Espeak.Binary
			ec.WordsPerMinute = c.Espeak.WordsPerMinute
		}
		return espeak.New(ec), nil
	default:
		return nil, fmt.Errorf("unknown synthesizer: %s", c.Type)
	}
}

func openaiConfig(c *config.OpenAIConfig) openai.Config {
	return openai.Config{
		BaseURL:         c.BaseURL,
		APIKeyEnv:       c.APIKeyEnv,
		TranscribeModel: c.TranscribeModel,
		SpeechModel:     c.SpeechModel,
		Voice:           c.Voice,
		Timeout:         time.Duration(c.TimeoutSecs) * time.Second,
	}
}
