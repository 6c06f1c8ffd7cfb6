package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// NewNumericCode returns an n-digit code for email verification / password
// reset, without a leading zero (matches the 100000..999999 range for n=6).
func NewNumericCode(n int) (string, error) {
	if n < 1 {
		n = 6
	}
	lo := pow10(n - 1)
	span := pow10(n) - lo
	v, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", lo+v.Int64()), nil
}

func pow10(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}

// NewReferralCode returns an 8-char uppercase hex code.
func NewReferralCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
