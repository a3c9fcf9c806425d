package jwt

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
)

// TokenClaims is the subset of access-token claims the client cares about.
// The client never verifies signatures; that is the server's job. It only
// decodes the envelope to schedule refreshes ahead of expiry.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Decode parses an access token without verifying its signature and returns
// the claims. A token that is not a three-part JWT, or whose exp claim is
// missing or non-numeric, fails closed with ErrMalformedToken. Expiry is
// never defaulted.
func Decode(token string) (*TokenClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, apperrors.ErrMalformedToken
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedToken, err.Error())
	}

	if claims.ExpiresAt == nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedToken, "missing exp claim")
	}

	out := &TokenClaims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// Expiry returns the exp claim of an access token as wall-clock time.
func Expiry(token string) (time.Time, error) {
	claims, err := Decode(token)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt, nil
}
