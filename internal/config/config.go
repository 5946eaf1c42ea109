package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EditorConfig tunes the text buffer.
type EditorConfig struct {
	UndoLimit int `yaml:"undo_limit" toml:"undo_limit"`
	TabWidth  int `yaml:"tab_width" toml:"tab_width"`
}

// ThemeConfig picks the colour scheme. Background overrides the mode's
// background with a #rrggbb colour.
type ThemeConfig struct {
	Mode       string `yaml:"mode" toml:"mode"`
	Background string `yaml:"background,omitempty" toml:"background,omitempty"`
}

// RecorderConfig selects how microphone audio is captured.
type RecorderConfig struct {
	Type string `yaml:"type" toml:"type"`
	// Command is the argv of the capture program; "{secs}" is replaced by the
	// capture window. Empty means arecord.
	Command []string `yaml:"command,omitempty" toml:"command,omitempty"`
}

// OpenAIConfig holds configuration for the OpenAI-compatible speech API.
type OpenAIConfig struct {
	BaseURL         string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env" toml:"api_key_env"`
	TranscribeModel string `yaml:"transcribe_model" toml:"transcribe_model"`
	SpeechModel     string `yaml:"speech_model" toml:"speech_model"`
	Voice           string `yaml:"voice" toml:"voice"`
	TimeoutSecs     int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// TranscriberConfig selects the speech-to-text implementation.
type TranscriberConfig struct {
	Type   string        `yaml:"type" toml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
}

// EspeakConfig configures the local espeak-ng synthesizer.
type EspeakConfig struct {
	Binary         string `yaml:"binary" toml:"binary"`
	WordsPerMinute int    `yaml:"words_per_minute" toml:"words_per_minute"`
}

// SynthesizerConfig selects the text-to-speech implementation.
type SynthesizerConfig struct {
	Type   string        `yaml:"type" toml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
	Espeak *EspeakConfig `yaml:"espeak,omitempty" toml:"espeak,omitempty"`
}

// DictationConfig configures the capture-and-transcribe loop.
type DictationConfig struct {
	Recorder    RecorderConfig    `yaml:"recorder" toml:"recorder"`
	Transcriber TranscriberConfig `yaml:"transcriber" toml:"transcriber"`
	CaptureSecs float64           `yaml:"capture_secs" toml:"capture_secs"`
	Language    string            `yaml:"language" toml:"language"`
	RetryPerSec float64           `yaml:"retry_per_sec" toml:"retry_per_sec"`
}

// NarrationConfig configures reading the document aloud.
type NarrationConfig struct {
	Synthesizer SynthesizerConfig `yaml:"synthesizer" toml:"synthesizer"`
	MaxChars    int               `yaml:"max_chars" toml:"max_chars"`
	PollMillis  int               `yaml:"poll_millis" toml:"poll_millis"`
	Language    string            `yaml:"language" toml:"language"`
	SampleRate  int               `yaml:"sample_rate" toml:"sample_rate"`
}

// LogConfig points the structured log at a file.
type LogConfig struct {
	File  string `yaml:"file,omitempty" toml:"file,omitempty"`
	Level string `yaml:"level" toml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Editor    EditorConfig    `yaml:"editor" toml:"editor"`
	Theme     ThemeConfig     `yaml:"theme" toml:"theme"`
	Dictation DictationConfig `yaml:"dictation" toml:"dictation"`
	Narration NarrationConfig `yaml:"narration" toml:"narration"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("decode TOML %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode YAML %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./quill.yaml first, then ~/.config/quill/config.yaml.
// If neither exists, it writes defaults to ~/.config/quill/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "quill.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown implementation names and out-of-range values.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Theme.Mode {
	case "dark", "light":
	default:
		errs = append(errs, fmt.Errorf("theme.mode: unknown mode %q", c.Theme.Mode))
	}
	if c.Theme.Background != "" && !hexColor.MatchString(c.Theme.Background) {
		errs = append(errs, fmt.Errorf("theme.background: %q is not #rrggbb", c.Theme.Background))
	}
	switch c.Dictation.Recorder.Type {
	case "command":
		if cmd := c.Dictation.Recorder.Command; len(cmd) > 0 && strings.TrimSpace(cmd[0]) == "" {
			errs = append(errs, errors.New("dictation.recorder.command: program is blank"))
		}
	default:
		errs = append(errs, fmt.Errorf("dictation.recorder.type: unknown recorder %q", c.Dictation.Recorder.Type))
	}
	switch c.Dictation.Transcriber.Type {
	case "openai":
	default:
		errs = append(errs, fmt.Errorf("dictation.transcriber.type: unknown transcriber %q", c.Dictation.Transcriber.Type))
	}
	switch c.Narration.Synthesizer.Type {
	case "openai", "espeak":
	default:
		errs = append(errs, fmt.Errorf("narration.synthesizer.type: unknown synthesizer %q", c.Narration.Synthesizer.Type))
	}
	if c.Dictation.CaptureSecs <= 0 {
		errs = append(errs, fmt.Errorf("dictation.capture_secs: must be positive, got %v", c.Dictation.CaptureSecs))
	}
	if c.Dictation.RetryPerSec <= 0 {
		errs = append(errs, fmt.Errorf("dictation.retry_per_sec: must be positive, got %v", c.Dictation.RetryPerSec))
	}
	if c.Narration.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("narration.max_chars: must be positive, got %d", c.Narration.MaxChars))
	}
	if c.Editor.TabWidth <= 0 || c.Editor.TabWidth > 16 {
		errs = append(errs, fmt.Errorf("editor.tab_width: must be 1-16, got %d", c.Editor.TabWidth))
	}
	return errors.Join(errs...)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "quill", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Editor: EditorConfig{UndoLimit: 100, TabWidth: 4},
		Theme:  ThemeConfig{Mode: "dark"},
		Dictation: DictationConfig{
			Recorder:    RecorderConfig{Type: "command"},
			Transcriber: TranscriberConfig{Type: "openai"},
			CaptureSecs: 5,
			Language:    "en",
			RetryPerSec: 4,
		},
		Narration: NarrationConfig{
			Synthesizer: SynthesizerConfig{Type: "openai"},
			MaxChars:    10000,
			PollMillis:  100,
			Language:    "en",
			SampleRate:  24000,
		},
		Log: LogConfig{Level: "info"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Editor.UndoLimit == 0 {
		cfg.Editor.UndoLimit = 100
	}
	if cfg.Editor.TabWidth == 0 {
		cfg.Editor.TabWidth = 4
	}
	if cfg.Theme.Mode == "" {
		cfg.Theme.Mode = "dark"
	}
	cfg.Theme.Mode = strings.ToLower(cfg.Theme.Mode)

	d := &cfg.Dictation
	if d.Recorder.Type == "" {
		d.Recorder.Type = "command"
	}
	if d.Transcriber.Type == "" {
		d.Transcriber.Type = "openai"
	}
	if d.Transcriber.Type == "openai" {
		if d.Transcriber.OpenAI == nil {
			d.Transcriber.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(d.Transcriber.OpenAI)
	}
	if d.CaptureSecs == 0 {
		d.CaptureSecs = 5
	}
	if d.Language == "" {
		d.Language = "en"
	}
	if d.RetryPerSec == 0 {
		d.RetryPerSec = 4
	}

	n := &cfg.Narration
	if n.Synthesizer.Type == "" {
		n.Synthesizer.Type = "openai"
	}
	switch n.Synthesizer.Type {
	case "openai":
		if n.Synthesizer.OpenAI == nil {
			n.Synthesizer.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(n.Synthesizer.OpenAI)
	case "espeak":
		if n.Synthesizer.Espeak == nil {
			n.Synthesizer.Espeak = &EspeakConfig{}
		}
		if n.Synthesizer.Espeak.Binary == "" {
			n.Synthesizer.Espeak.Binary = "espeak-ng"
		}
	}
	if n.MaxChars == 0 {
		n.MaxChars = 10000
	}
	if n.PollMillis == 0 {
		n.PollMillis = 100
	}
	if n.Language == "" {
		n.Language = "en"
	}
	if n.SampleRate == 0 {
		n.SampleRate = 24000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyOpenAIDefaults(c *OpenAIConfig) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.TranscribeModel == "" {
		c.TranscribeModel = "whisper-1"
	}
	if c.SpeechModel == "" {
		c.SpeechModel = "tts-1"
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 60
	}
}
