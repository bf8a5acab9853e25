package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, including parents, filled with size bytes. A size
// <= 0 writes a single byte so the file is never empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'f'}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTree creates every relative path in files under root and returns root.
func WriteTree(t testing.TB, root string, files map[string]int64) string {
	t.Helper()

	for rel, size := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), size)
	}
	return root
}
