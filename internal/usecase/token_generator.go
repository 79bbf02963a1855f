package usecase

import (
	"crypto/rand"
	"fmt"
	"io"

	"tagpay/internal/domain"
)

// tokenAlphabet avoids ambiguous characters like O/0, I/1, l.
const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateToken creates a secure, random, human-readable token of n characters.
func generateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: token length must be positive", domain.ErrInvalidArgument)
	}
	buffer := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = tokenAlphabet[int(buffer[i])%len(tokenAlphabet)]
	}
	return string(buffer), nil
}
