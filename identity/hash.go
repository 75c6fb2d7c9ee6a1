// Package identity computes content hashes, tracks canonical instances in a
// hash index and measures token-set similarity between generated texts.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// HashBytes returns the hex-encoded SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashText returns the hex-encoded SHA-256 of the UTF-8 bytes of text.
func HashText(text string) string {
	return HashBytes([]byte(text))
}

// SampleKey identifies a generated sample by (prompt, response, producer).
// Fields are length-prefixed so that shifting text between fields changes the key.
func SampleKey(prompt, response, producer string) string {
	h := sha256.New()
	for _, field := range []string{prompt, response, producer} {
		fmt.Fprintf(h, "%d:", len(field))
		io.WriteString(h, field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashFile hashes the file content. When prefixBytes > 0 only the first
// prefixBytes bytes are hashed.
func HashFile(path string, prefixBytes int64) (string, error) {
	f, err := openWithRetry(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var src io.Reader = f
	if prefixBytes > 0 {
		src = io.LimitReader(f, prefixBytes)
	}

	h := sha256.New()
	if _, err := io.Copy(h, src); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// openWithRetry retries once after a short delay, for files locked by an
// editor mid-save.
func openWithRetry(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if os.IsNotExist(err) || os.IsPermission(err) {
		return nil, err
	}
	time.Sleep(50 * time.Millisecond)
	return os.Open(path)
}
