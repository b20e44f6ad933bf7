package utils

import (
	"crypto/rand"
	"fmt"
)

const alphaNumTable = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandAlphaNum generates a random alphanumeric string of the given length
func RandAlphaNum(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid length: %d", length)
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	// rejection sampling keeps the distribution uniform, 248 = 4 * 62
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= 248 {
				continue
			}
			out = append(out, alphaNumTable[int(b)%len(alphaNumTable)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
