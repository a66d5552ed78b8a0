package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteAudioFile drops a small placeholder recording at the target path and
// returns it. Wizard tests only need the file to exist; content is ignored.
func WriteAudioFile(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("RIFF placeholder audio"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
