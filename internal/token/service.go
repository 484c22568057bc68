// Package token issues the session tokens returned after the unlock
// password is verified.
package token

import (
	"context"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-kit/kit/log"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/entropy"
)

// service is an implementation of keeper.TokenService.
type service struct {
	logger      log.Logger
	tokenExpiry time.Duration
	entropy     ulid.MonotonicReader
	secret      []byte
	issuer      string
	randBytes   func(length int) ([]byte, error)
}

// Create creates a new, unsigned unlock token.
func (s *service) Create(ctx context.Context) (*keeper.Token, error) {
	tokenID, err := entropy.ID(s.entropy)
	if err != nil {
		return nil, errors.Wrap(err, "cannot generate unique token ID")
	}

	now := time.Now()
	token := keeper.Token{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(s.tokenExpiry).Unix(),
			IssuedAt:  now.Unix(),
			Id:        tokenID,
			Issuer:    s.issuer,
		},
	}

	return &token, nil
}

// Sign creates a signed JWT token string from a token struct.
func (s *service) Sign(ctx context.Context, token *keeper.Token) (string, error) {
	jwtUnsigned := jwt.NewWithClaims(jwt.SigningMethodHS512, token)
	jwtSigned, err := jwtUnsigned.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign JWT token")
	}

	return jwtSigned, nil
}

// Validate checks that a JWT token is signed by us, unexpired and
// issued by us. On success it will return the unpacked Token struct.
func (s *service) Validate(ctx context.Context, signedToken string) (*keeper.Token, error) {
	if !strings.HasPrefix(signedToken, "Bearer ") {
		return nil, keeper.ErrInvalidToken("bearer token expected")
	}

	tokenParser := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}

		return s.secret, nil
	}

	signedToken = strings.TrimPrefix(signedToken, "Bearer ")

	var token keeper.Token
	unpackedToken, err := jwt.ParseWithClaims(signedToken, &token, tokenParser)
	if err != nil {
		return nil, errors.Wrap(keeper.ErrInvalidToken("token is invalid"), err.Error())
	}
	if !unpackedToken.Valid {
		return nil, keeper.ErrInvalidToken("token is invalid")
	}

	if token.Issuer != s.issuer {
		return nil, keeper.ErrInvalidToken("token issuer is invalid")
	}

	return &token, nil
}
