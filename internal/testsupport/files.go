package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteImage writes a dummy image file of the given size under dir and
// returns its absolute path. Parent directories are created as needed.
func WriteImage(t testing.TB, dir, name string, size int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
