// Package otp implements HOTP (RFC 4226) and TOTP (RFC 6238) code
// generation. The package has no state and performs no I/O.
package otp

import (
	"crypto/hmac"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pquerna/otp"

	keeper "github.com/fmitra/otpkeeper"
)

const maxDigits = 10

// ParseAlgorithm returns the HMAC algorithm for a name such as "SHA1".
func ParseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	}

	return otp.AlgorithmSHA1, keeper.ErrInvalidField(
		fmt.Sprintf("unsupported algorithm %s", name),
	)
}

// DecodeSecret decodes a base32 shared secret. Whitespace, lower case
// and missing padding are tolerated.
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(secret), ""))
	s = strings.TrimRight(s, "=")
	if s == "" {
		return nil, keeper.ErrInvalidToken("secret is empty")
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil {
		return nil, keeper.ErrInvalidToken("secret is not valid base32")
	}
	if len(key) == 0 {
		return nil, keeper.ErrInvalidToken("secret is empty")
	}

	return key, nil
}

// IsValidSecret reports whether a candidate decodes to a non empty key.
func IsValidSecret(candidate string) bool {
	_, err := DecodeSecret(candidate)
	return err == nil
}

// HOTP computes the code for a raw key and counter.
func HOTP(key []byte, counter uint64, digits int, algorithm otp.Algorithm) string {
	if digits <= 0 || digits > maxDigits {
		digits = DefaultDigits
	}

	msg := make([]byte, 8)
	binary.BigEndian.PutUint64(msg, counter)

	mac := hmac.New(algorithm.Hash, key)
	_, _ = mac.Write(msg)
	sum := mac.Sum(nil)

	// Dynamic truncation, the low nibble of the last byte is the offset.
	offset := sum[len(sum)-1] & 0x0f
	value := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, value%mod)
}

// GenerateHOTP computes the code for a base32 secret and counter.
func GenerateHOTP(secret string, counter uint64, options ...ConfigOption) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}

	o := NewOptions(options...)
	return HOTP(key, counter, o.Digits, o.Algorithm), nil
}

// GenerateTOTP computes the code for a base32 secret at a unix time.
func GenerateTOTP(secret string, unixTime int64, options ...ConfigOption) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}

	o := NewOptions(options...)
	return HOTP(key, Counter(unixTime, o.Period), o.Digits, o.Algorithm), nil
}

// Counter returns the TOTP counter of the window containing unixTime.
func Counter(unixTime int64, period int) uint64 {
	if period <= 0 {
		period = DefaultPeriod
	}
	if unixTime < 0 {
		return 0
	}

	return uint64(unixTime) / uint64(period)
}

// TimeRemaining returns the seconds left in the window containing
// unixTime, from period down to 1.
func TimeRemaining(unixTime int64, period int) int {
	if period <= 0 {
		period = DefaultPeriod
	}

	rem := unixTime % int64(period)
	if rem < 0 {
		rem += int64(period)
	}

	return period - int(rem)
}
