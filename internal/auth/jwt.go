package auth

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-premium-backend/internal/config"
)

// anonymousProvider is the sign_in_provider value of an anonymous session.
const anonymousProvider = "anonymous"

// Claims is the subset of identity-provider claims the backend reads.
type Claims struct {
	jwt.RegisteredClaims
	Firebase struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

// JWTVerifier verifies signed JWTs against a static key or key set.
type JWTVerifier struct {
	key    any
	keys   *rsaKeySet
	method string
	opts   []jwt.ParserOption
}

// rsaKeySet holds the provider's current signing keys. Keys loaded with a
// key id are selected by the token's kid header; a token whose kid is
// absent or unknown is tried against every key.
type rsaKeySet struct {
	byKID map[string]*rsa.PublicKey
	all   []*rsa.PublicKey
}

func (ks *rsaKeySet) add(kid string, k *rsa.PublicKey) {
	if kid != "" {
		ks.byKID[kid] = k
	}
	ks.all = append(ks.all, k)
}

func (ks *rsaKeySet) lookup(t *jwt.Token) any {
	if kid, _ := t.Header["kid"].(string); kid != "" {
		if k, ok := ks.byKID[kid]; ok {
			return k
		}
	}
	if len(ks.all) == 1 {
		return ks.all[0]
	}
	set := jwt.VerificationKeySet{Keys: make([]jwt.VerificationKey, 0, len(ks.all))}
	for _, k := range ks.all {
		set.Keys = append(set.Keys, k)
	}
	return set
}

// Option tweaks a JWTVerifier.
type Option func(*JWTVerifier)

// WithIssuer requires the iss claim to equal iss.
func WithIssuer(iss string) Option {
	return func(v *JWTVerifier) {
		if iss != "" {
			v.opts = append(v.opts, jwt.WithIssuer(iss))
		}
	}
}

// WithAudience requires aud to contain audience.
func WithAudience(audience string) Option {
	return func(v *JWTVerifier) {
		if audience != "" {
			v.opts = append(v.opts, jwt.WithAudience(audience))
		}
	}
}

// WithLeeway tolerates clock skew when checking exp/nbf/iat.
func WithLeeway(d time.Duration) Option {
	return func(v *JWTVerifier) { v.opts = append(v.opts, jwt.WithLeeway(d)) }
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte, opts ...Option) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty HMAC secret")
	}
	return newVerifier(secret, jwt.SigningMethodHS256.Alg(), opts), nil
}

// NewRSAVerifier verifies RS256 tokens. pemBytes is either a PEM bundle of
// PKIX public keys, PKCS#1 public keys or X.509 certificates (a "kid" PEM
// header names a block), or a JSON object mapping key ids to PEM
// certificates as published by the identity provider.
func NewRSAVerifier(pemBytes []byte, opts ...Option) (*JWTVerifier, error) {
	keys, err := parseRSAKeys(pemBytes)
	if err != nil {
		return nil, err
	}
	v := newVerifier(nil, jwt.SigningMethodRS256.Alg(), opts)
	v.keys = keys
	return v, nil
}

// NewVerifier builds a verifier from configuration. A public key file takes
// precedence over the shared secret.
func NewVerifier(cfg config.AuthConfig) (*JWTVerifier, error) {
	opts := []Option{WithIssuer(cfg.Issuer), WithAudience(cfg.Audience), WithLeeway(30 * time.Second)}
	if cfg.PublicKeyFile != "" {
		b, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("auth: read public key: %w", err)
		}
		return NewRSAVerifier(b, opts...)
	}
	return NewHMACVerifier([]byte(cfg.HMACSecret), opts...)
}

func newVerifier(key any, method string, opts []Option) *JWTVerifier {
	v := &JWTVerifier{
		key:    key,
		method: method,
		opts: []jwt.ParserOption{
			jwt.WithValidMethods([]string{method}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		},
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify parses and validates token. Failures wrap ErrInvalidToken.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if v.keys != nil {
			return v.keys.lookup(t), nil
		}
		return v.key, nil
	}, v.opts...)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if claims.Firebase.SignInProvider == anonymousProvider {
		return Identity{State: Anonymous, Subject: claims.Subject}, nil
	}
	return Identity{State: Verified, Subject: claims.Subject}, nil
}

func parseRSAKeys(raw []byte) (*rsaKeySet, error) {
	ks := &rsaKeySet{byKID: map[string]*rsa.PublicKey{}}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var certs map[string]string
		if err := json.Unmarshal(trimmed, &certs); err != nil {
			return nil, fmt.Errorf("auth: parse key set: %w", err)
		}
		for kid, p := range certs {
			k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(p))
			if err != nil {
				return nil, fmt.Errorf("auth: parse public key %q: %w", kid, err)
			}
			ks.add(kid, k)
		}
	} else {
		for rest := raw; ; {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				break
			}
			k, err := jwt.ParseRSAPublicKeyFromPEM(pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: block.Bytes}))
			if err != nil {
				return nil, fmt.Errorf("auth: parse public key %d: %w", len(ks.all)+1, err)
			}
			ks.add(block.Headers["kid"], k)
		}
	}

	if len(ks.all) == 0 {
		return nil, errors.New("auth: parse public key: no RSA keys found")
	}
	return ks, nil
}
