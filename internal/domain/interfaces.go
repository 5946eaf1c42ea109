package domain

import (
	"context"
	"time"
)

// Document is a text file loaded into the editor.
type Document struct {
	Path    string
	Content string
}

// Direction is the writing direction of a single line.
type Direction int

const (
	LTR Direction = iota
	RTL
)

func (d Direction) String() string {
	if d == RTL {
		return "RTL"
	}
	return "LTR"
}

// Match is one search hit. Start and End are character offsets into the flat
// document content; ByteStart and ByteEnd address the same span in the UTF-8 string.
type Match struct {
	Start     int
	End       int
	ByteStart int
	ByteEnd   int
}

// Artifact is a synthesized audio file waiting to be played.
type Artifact struct {
	Path string
	// Format is "pcm" (raw signed 16-bit little endian) or "wav".
	Format     string
	SampleRate int
	Channels   int
}

// Recorder captures a bounded stretch of microphone input as WAV bytes.
type Recorder interface {
	Record(ctx context.Context, max time.Duration) ([]byte, error)
}

// Transcriber converts captured speech into text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, wav []byte, lang string) (string, error)
}

// Synthesizer renders text to a playable audio artifact.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, lang string) (Artifact, error)
}

// Player opens artifacts for playback on an audio device.
type Player interface {
	Open(artifact Artifact) (Playback, error)
}

// Playback is a single playing artifact. Close stops playback and releases the
// underlying audio resource.
type Playback interface {
	Play()
	Playing() bool
	Stop()
	Close() error
}

// DocumentStore loads and saves documents.
type DocumentStore interface {
	Load(path string) (Document, error)
	Save(path, content string) error
}
