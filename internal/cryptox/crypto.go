// Package cryptox holds the small cryptographic helpers used by the server:
// keyed fingerprints for refresh-token lookup and random byte generation.
package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprinter computes deterministic keyed digests of refresh tokens.
//
// The digest is HMAC-SHA256 over the full token string, hex encoded. It is
// stable for a given key and token, which makes it usable as an exact-match
// lookup key, and it cannot be reversed or recomputed without the key.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a Fingerprinter bound to key. The key slice is copied.
func NewFingerprinter(key []byte) *Fingerprinter {
	k := make([]byte, len(key))
	copy(k, key)
	return &Fingerprinter{key: k}
}

// Fingerprint returns the hex-encoded HMAC-SHA256 of token.
func (f *Fingerprinter) Fingerprint(token string) string {
	mac := hmac.New(sha256.New, f.key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateRandByteArray returns size bytes from crypto/rand.
// It panics if the system random source fails.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString returns a hex string encoding size random bytes, so the
// result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
