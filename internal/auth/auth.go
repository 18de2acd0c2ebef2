// Package auth verifies bearer tokens issued by the identity provider and
// turns them into a per-request Identity.
//
// Verification is delegated to signed JWTs: the backend never talks to the
// provider at request time. A token is checked once per request for its
// signature, expiry, issuer and audience; the subject becomes the owner id
// used to scope history records.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoToken is returned when the request carries no bearer token.
	ErrNoToken = errors.New("no token provided")

	// ErrInvalidToken is returned when a token fails verification
	// (bad signature, expired, wrong issuer or audience, missing subject).
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrAnonymous is returned when an anonymous sign-in reaches an endpoint
	// that requires a verified account.
	ErrAnonymous = errors.New("anonymous identity not permitted")
)

// State is the authentication state of a request.
type State int

const (
	Unauthenticated State = iota
	Anonymous
	Verified
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Verified:
		return "verified"
	default:
		return "unauthenticated"
	}
}

// Identity is the outcome of verifying a request's token. Subject is empty
// only when State is Unauthenticated.
type Identity struct {
	State   State
	Subject string
}

// Verifier checks a raw token and reports who it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header value.
// Anything other than "Bearer <token>" yields ErrNoToken.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
