package auth

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
)

// generateOTP produces a short numeric one-time code with the configured
// number of digits, e.g. 4 digits yields a value in [1000, 9999]. The
// leading digit is never zero so the code survives numeric round-trips in
// clients.
func (s *Service) generateOTP() (string, error) {
	digits := s.config.Auth.OTPDigits
	if digits < 4 {
		digits = 4
	}

	low := int64(math.Pow10(digits - 1))
	span := int64(math.Pow10(digits)) - low

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("failed to generate one-time code: %w", err)
	}

	return fmt.Sprintf("%d", low+n.Int64()), nil
}
