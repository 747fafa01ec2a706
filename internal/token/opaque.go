package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	opaqueTokenBytes = 32
	otpDigits        = 6
)

// NewOpaqueToken returns a random plaintext for the recipient and the hash
// that is persisted in its place.
func NewOpaqueToken() (plain, hash string, err error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate opaque token: %w", err)
	}
	plain = hex.EncodeToString(buf)
	return plain, Hash(plain), nil
}

func Hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// Matches compares a presented plaintext with a stored hash in constant time.
func Matches(presented string, storedHash *string) bool {
	if storedHash == nil || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(presented)), []byte(*storedHash)) == 1
}

// NewNumericOTP returns a six digit code.
func NewNumericOTP() (string, error) {
	digits := make([]byte, otpDigits)
	ten := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
