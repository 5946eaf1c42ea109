// Package speech holds helpers shared by the speech backends.
package speech

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ArtifactPath returns a fresh temp file path for synthesized audio. An empty
// dir means the system temp directory.
func ArtifactPath(dir, ext string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "quill-speech-"+uuid.NewString()+"."+ext)
}
