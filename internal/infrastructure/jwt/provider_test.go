package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nexus-wa-bridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeys generates an RSA key pair and writes both halves as PEM into a temp dir.
func writeKeys(t *testing.T) (privPath, pubPath string, key *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))
	return privPath, pubPath, key
}

func TestProvider_SignVerify(t *testing.T) {
	privPath, pubPath, _ := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPrivateKeyPath: privPath, JWTPublicKeyPath: pubPath, JWTExpiry: time.Hour})
	require.NoError(t, err)

	signed, err := p.Sign("case-manager", "verify")
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "case-manager", claims.Subject)
	assert.Equal(t, "verify", claims.Scope)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestProvider_VerifyOnly(t *testing.T) {
	_, pubPath, _ := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPublicKeyPath: pubPath, JWTExpiry: time.Hour})
	require.NoError(t, err)

	_, err = p.Sign("case-manager", "verify")
	assert.ErrorContains(t, err, "no private key")
}

func TestProvider_RejectsForeignIssuer(t *testing.T) {
	_, pubPath, key := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPublicKeyPath: pubPath})
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestNewProvider_MissingPublicKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPublicKeyPath: filepath.Join(t.TempDir(), "missing.pem")})
	assert.ErrorContains(t, err, "read public key")
}
