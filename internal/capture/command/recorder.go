// Package command captures microphone audio by running an external recorder
// such as arecord or sox and reading WAV data from its stdout.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DurationPlaceholder in Args is replaced by the capture window in whole seconds.
const DurationPlaceholder = "{secs}"

var ErrNoAudio = errors.New("recorder produced no audio")

// DefaultArgs records 16 kHz mono WAV with ALSA's arecord.
var DefaultArgs = []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", "-d", DurationPlaceholder, "-"}

// Recorder runs Args for every capture.
type Recorder struct {
	args []string
}

func New(args []string) (*Recorder, error) {
	if len(args) == 0 {
		args = DefaultArgs
	}
	if strings.TrimSpace(args[0]) == "" {
		return nil, errors.New("recorder command is empty")
	}
	return &Recorder{args: append([]string(nil), args...)}, nil
}

// Record runs the recorder for at most max and returns its stdout. The process
// is killed when ctx is cancelled or the window plus a grace period elapses.
func (r *Recorder) Record(ctx context.Context, max time.Duration) ([]byte, error) {
	secs := int(math.Ceil(max.Seconds()))
	if secs < 1 {
		secs = 1
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(secs)*time.Second+2*time.Second)
	defer cancel()

	args := make([]string, len(r.args))
	for i, a := range r.args {
		args[i] = strings.ReplaceAll(a, DurationPlaceholder, strconv.Itoa(secs))
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 500 * time.Millisecond
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", args[0], err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, ErrNoAudio
	}
	return stdout.Bytes(), nil
}
