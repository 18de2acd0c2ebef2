package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-premium-backend/internal/config"
)

var secret = []byte("test-secret")

const (
	testIssuer   = "https://securetoken.example.com/insuransure"
	testAudience = "insuransure"
)

func claims(sub string, exp time.Duration) *Claims {
	now := time.Now()
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
	}}
	c.Firebase.SignInProvider = "password"
	return c
}

func signHS(t *testing.T, c jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	require.NoError(t, err)
	return s
}

func hmacVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewHMACVerifier(secret, WithIssuer(testIssuer), WithAudience(testAudience))
	require.NoError(t, err)
	return v
}

func TestJWTVerifier_HMAC_Verified(t *testing.T) {
	id, err := hmacVerifier(t).Verify(context.Background(), signHS(t, claims("alice", time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, Identity{State: Verified, Subject: "alice"}, id)
}

func TestJWTVerifier_Anonymous(t *testing.T) {
	c := claims("anon-1", time.Hour)
	c.Firebase.SignInProvider = "anonymous"
	id, err := hmacVerifier(t).Verify(context.Background(), signHS(t, c))
	require.NoError(t, err)
	assert.Equal(t, Anonymous, id.State)
	assert.Equal(t, "anon-1", id.Subject)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := hmacVerifier(t)

	wrongIss := claims("alice", time.Hour)
	wrongIss.Issuer = "https://evil.example.com"

	wrongAud := claims("alice", time.Hour)
	wrongAud.Audience = jwt.ClaimStrings{"someone-else"}

	noExp := claims("alice", time.Hour)
	noExp.ExpiresAt = nil

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims("alice", time.Hour)).SignedString([]byte("other"))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      signHS(t, claims("alice", -time.Hour)),
		"wrong issuer": signHS(t, wrongIss),
		"wrong aud":    signHS(t, wrongAud),
		"no subject":   signHS(t, claims("", time.Hour)),
		"no exp":       signHS(t, noExp),
		"other secret": otherKey,
		"garbage":      "not.a.jwt",
		"alg none":     unsigned(t),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func unsigned(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims("alice", time.Hour)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}

func rsaPEM(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestJWTVerifier_RSA(t *testing.T) {
	key, pub := rsaPEM(t)
	v, err := NewRSAVerifier(pub, WithIssuer(testIssuer), WithAudience(testAudience))
	require.NoError(t, err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims("bob", time.Hour)).SignedString(key)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "bob", id.Subject)

	// An HS256 token must not be accepted by an RS256 verifier.
	_, err = v.Verify(context.Background(), signHS(t, claims("bob", time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func signRS(t *testing.T, key *rsa.PrivateKey, kid string, c jwt.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTVerifier_RSA_RotatedBundle(t *testing.T) {
	key1, pub1 := rsaPEM(t)
	key2, pub2 := rsaPEM(t)
	other, _ := rsaPEM(t)

	v, err := NewRSAVerifier(append(pub1, pub2...))
	require.NoError(t, err)

	for name, key := range map[string]*rsa.PrivateKey{"first": key1, "second": key2} {
		id, err := v.Verify(context.Background(), signRS(t, key, "", claims("erin", time.Hour)))
		require.NoError(t, err, name)
		assert.Equal(t, Identity{State: Verified, Subject: "erin"}, id, name)
	}

	_, err = v.Verify(context.Background(), signRS(t, other, "", claims("erin", time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func certPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func TestJWTVerifier_RSA_KeyIDSelectsCertificate(t *testing.T) {
	key1, _ := rsaPEM(t)
	key2, _ := rsaPEM(t)
	set, err := json.Marshal(map[string]string{"kid-1": certPEM(t, key1), "kid-2": certPEM(t, key2)})
	require.NoError(t, err)

	v, err := NewRSAVerifier(set, WithIssuer(testIssuer), WithAudience(testAudience))
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), signRS(t, key2, "kid-2", claims("frank", time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "frank", id.Subject)

	id, err = v.Verify(context.Background(), signRS(t, key1, "kid-1", claims("gina", time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "gina", id.Subject)

	// A known kid pins the key: a token claiming kid-1 but signed by key2 fails.
	_, err = v.Verify(context.Background(), signRS(t, key2, "kid-1", claims("frank", time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// An unknown kid falls back to trying every key.
	_, err = v.Verify(context.Background(), signRS(t, key1, "kid-9", claims("gina", time.Hour)))
	assert.NoError(t, err)
}

func TestNewRSAVerifier_BadKeySet(t *testing.T) {
	_, err := NewRSAVerifier([]byte(`{"kid-1":"not a pem"}`))
	assert.Error(t, err)
}

func TestNewRSAVerifier_BadPEM(t *testing.T) {
	_, err := NewRSAVerifier([]byte("nope"))
	assert.Error(t, err)
}

func TestNewHMACVerifier_EmptySecret(t *testing.T) {
	_, err := NewHMACVerifier(nil)
	assert.Error(t, err)
}

func TestNewVerifier_FromConfig(t *testing.T) {
	v, err := NewVerifier(config.AuthConfig{HMACSecret: string(secret), Issuer: testIssuer, Audience: testAudience})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), signHS(t, claims("carol", time.Hour)))
	require.NoError(t, err)

	key, pub := rsaPEM(t)
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pub, 0o600))

	v, err = NewVerifier(config.AuthConfig{PublicKeyFile: path, HMACSecret: "ignored"})
	require.NoError(t, err)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims("dave", time.Hour)).SignedString(key)
	require.NoError(t, err)
	id, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "dave", id.Subject)

	_, err = NewVerifier(config.AuthConfig{PublicKeyFile: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)
}
