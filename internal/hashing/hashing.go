// Package hashing computes the content digest used as the cache and
// remote lookup key. The digest is MD5: 128-bit, fast, and accepted by
// the reputation service as a resource identifier. It is a correlation
// key, not a security proof.
package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ComputeDigest streams r through the digest. Memory stays bounded
// regardless of input size.
func ComputeDigest(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read content stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeFileDigest opens the file at path and digests its contents.
func ComputeFileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	digest, err := ComputeDigest(file)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return digest, nil
}
