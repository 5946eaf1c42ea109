package espeak

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), "espeak-ng")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+script), 0o755))
	return p
}

func TestSynthesize_WritesWAVArtifact(t *testing.T) {
	bin := fakeBinary(t, "cat > /dev/null\nprintf 'RIFF-fake'\n")
	dir := t.TempDir()
	s := New(Config{Binary: bin, TempDir: dir, WordsPerMinute: 160})

	art, err := s.Synthesize(context.Background(), "hello", "en")
	require.NoError(t, err)

	assert.Equal(t, "wav", art.Format)
	assert.Equal(t, dir, filepath.Dir(art.Path))
	data, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF-fake", string(data))
}

func TestSynthesize_PassesTextOnStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "stdin.txt")
	bin := fakeBinary(t, "cat > '"+out+"'\nprintf 'RIFF'\n")
	s := New(Config{Binary: bin, TempDir: t.TempDir()})

	_, err := s.Synthesize(context.Background(), "-rf $(danger)", "")
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-rf $(danger)", string(got))
}

func TestSynthesize_CommandFailure(t *testing.T) {
	bin := fakeBinary(t, "echo 'voice not found' >&2\nexit 1\n")
	s := New(Config{Binary: bin, TempDir: t.TempDir()})

	_, err := s.Synthesize(context.Background(), "hello", "xx")

	assert.ErrorContains(t, err, "voice not found")
}

func TestNew_DefaultBinary(t *testing.T) {
	s := New(Config{})

	assert.Equal(t, "espeak-ng", s.cfg.Binary)
	assert.Equal(t, "espeak", s.Name())
}
