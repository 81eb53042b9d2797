package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrEmptySecret is returned when the hasher is constructed without a key.
var ErrEmptySecret = errors.New("hash: secret must not be empty")

// Hash is a deterministic keyed one-way digest over a value.
//
// The same (secret, value) pair always yields the same output, which is what
// allows stored hashes to be used as equality predicates in queries.
type Hash interface {
	Hash(value string) (string, error)
}

// HMACSHA256 implements Hash using HMAC-SHA256 with a server-held secret.
type HMACSHA256 struct {
	secret []byte
}

// NewHMACSHA256 creates a new hasher keyed by secret. The secret must be
// stable across restarts or all outstanding hashed values become
// unverifiable.
func NewHMACSHA256(secret string) (*HMACSHA256, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &HMACSHA256{secret: []byte(secret)}, nil
}

// Hash returns the hex-encoded HMAC-SHA256 digest of value.
func (s *HMACSHA256) Hash(value string) (string, error) {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)), nil
}
