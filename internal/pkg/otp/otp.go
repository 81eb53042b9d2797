package otp

import (
	"crypto/rand"
	"math/big"
)

// DefaultLength is the number of digits generated when none is configured.
const DefaultLength = 6

// Generator produces one-time password codes.
type Generator interface {
	// Generate returns a new code of the generator's configured length.
	Generate() (string, error)
}

// Numeric implements Generator with uniformly random decimal digits.
type Numeric struct {
	length int
}

// NewNumeric constructs a Numeric generator. A non-positive length falls back
// to DefaultLength.
func NewNumeric(length int) *Numeric {
	if length < 1 {
		length = DefaultLength
	}
	return &Numeric{length: length}
}

var ten = big.NewInt(10)

// Generate returns a code of exactly the configured length. Each digit is an
// independent draw from crypto/rand, not a general-purpose PRNG.
func (g *Numeric) Generate() (string, error) {
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = '0' + byte(n.Int64())
	}
	return string(buf), nil
}
