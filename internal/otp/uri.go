package otp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pquerna/otp"

	keeper "github.com/fmitra/otpkeeper"
)

const uriScheme = "otpauth"

// Payload is the content of a scanned otpauth:// QR code.
type Payload struct {
	Username string
	Provider string
	Secret   string
}

// ParseURI reads an otpauth:// URI whose path is [issuer:]username.
// An issuer query parameter takes precedence over the label prefix.
// See https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func ParseURI(uri string) (*Payload, error) {
	uri = strings.TrimSpace(uri)
	u, err := url.Parse(uri)
	if err != nil || !strings.EqualFold(u.Scheme, uriScheme) {
		return nil, keeper.ErrInvalidToken("payload is not an otpauth URI")
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, keeper.ErrInvalidToken("payload is not an otpauth URI")
	}

	secret := key.Secret()
	if !IsValidSecret(secret) {
		return nil, keeper.ErrInvalidToken("payload secret is not valid")
	}

	return &Payload{
		Username: key.AccountName(),
		Provider: key.Issuer(),
		Secret:   secret,
	}, nil
}

// KeyURI builds the otpauth://totp URI of an account.
func KeyURI(provider, username, secret string, options ...ConfigOption) string {
	o := NewOptions(options...)

	label := url.PathEscape(username)
	if provider != "" {
		label = fmt.Sprintf("%s:%s", url.PathEscape(provider), label)
	}

	query := url.Values{}
	query.Set("secret", secret)
	if provider != "" {
		query.Set("issuer", provider)
	}
	query.Set("algorithm", o.Algorithm.String())
	query.Set("digits", strconv.Itoa(o.Digits))
	query.Set("period", strconv.Itoa(o.Period))

	return fmt.Sprintf("%s://totp/%s?%s", uriScheme, label, query.Encode())
}
