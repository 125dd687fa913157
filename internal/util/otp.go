package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	relayOTPMin = 100000
	relayOTPMax = 999999
)

// GenerateNumericOTP returns digits independent decimal digits. Used for the
// email reset code, which is hashed before storage.
func GenerateNumericOTP(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	var builder strings.Builder
	builder.Grow(digits)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}
	return builder.String(), nil
}

// GenerateRelayOTP draws a uniform integer in [100000, 999999], so the code
// always has exactly six digits and never a leading zero.
//
// Relay codes are short-lived, single-use and read aloud or typed by a human.
// They are a convenience check, not a security control: the 900000-value space
// is small enough to guess online without rate limiting, so anything relying
// on them must also enforce expiry, single use and request throttling.
func GenerateRelayOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(relayOTPMax-relayOTPMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+relayOTPMin), nil
}
