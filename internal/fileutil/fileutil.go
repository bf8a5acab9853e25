package fileutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

const hashChunkSize = 256 * 1024

// HashFile returns the hex SHA256 digest of the file at path. The context is
// checked between chunks so large files do not delay cancellation.
func HashFile(ctx context.Context, path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// IsHidden reports whether a file or directory name is a dot-file.
func IsHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}
