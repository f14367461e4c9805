package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DefaultHashChunkSize is the read size used when none is configured
const DefaultHashChunkSize = 4096

// Hasher computes content fingerprints by streaming files through a SHA-256
// digest in fixed-size chunks, never holding a whole file in memory.
type Hasher struct {
	chunkSize int
}

// NewHasher creates a hasher reading in chunks of chunkSize bytes
func NewHasher(chunkSize int) *Hasher {
	if chunkSize <= 0 {
		chunkSize = DefaultHashChunkSize
	}
	return &Hasher{chunkSize: chunkSize}
}

// ChunkSize returns the configured read size
func (h *Hasher) ChunkSize() int {
	return h.chunkSize
}

// HashFile computes the hex SHA-256 fingerprint of the file's full byte
// stream. Failures to open or a mid-read error are returned to the caller;
// callers that must not fail log the cause and carry an empty fingerprint.
func (h *Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	digest := sha256.New()
	buf := make([]byte, h.chunkSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("failed to read file: %w", readErr)
		}
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}
