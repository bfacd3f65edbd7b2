package normalize

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileHash computes the hex-encoded SHA-256 of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BytesHash computes the hex-encoded SHA-256 of data.
func BytesHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LineHash identifies a claim line by (claim id, code, line number).
func LineHash(lineNum int, values ...string) string {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(lineNum))
	h.Write(buf)
	for _, v := range values {
		h.Write([]byte(strings.TrimSpace(v)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
