// Package util provides utility functions for the home-sampling service.
package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2; suitable for identifiers, not for secrets.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[mrand.IntN(16)])
	}

	return builder.String()
}

// GenerateOTPCode generates a cryptographically random numeric verification
// code of the given digit count, zero-padded.
func GenerateOTPCode(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("digit count must be positive, got %d", digits)
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to draw random code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// GenerateUploadID generates a unique identifier for stored upload files.
func GenerateUploadID() string {
	return GenerateRandomID("f_", 32)
}
