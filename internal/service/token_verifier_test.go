package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"venue_control/internal/remote"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "venue-test"

type certsFixture struct {
	key     *rsa.PrivateKey
	fetches int32
	status  int32
	clock   time.Time
	v       *FirebaseVerifier
}

func selfSignedPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func newCertsFixture(t *testing.T) *certsFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &certsFixture{key: key, status: http.StatusOK, clock: time.Now()}
	certs := map[string]string{"kid-1": selfSignedPEM(t, key)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.fetches, 1)
		if code := int(atomic.LoadInt32(&f.status)); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_ = json.NewEncoder(w).Encode(certs)
	}))
	t.Cleanup(srv.Close)

	f.v = NewFirebaseVerifier(srv.Client(), srv.URL, testProject)
	f.v.now = func() time.Time { return f.clock }
	return f
}

func (f *certsFixture) sign(t *testing.T, kid string, mutate func(*jwt.RegisteredClaims)) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "uid-1",
		Audience:  jwt.ClaimStrings{testProject},
		Issuer:    "https://securetoken.google.com/" + testProject,
		IssuedAt:  jwt.NewNumericDate(f.clock.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(f.clock.Add(time.Hour)),
	}
	if mutate != nil {
		mutate(&claims)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return s
}

func TestFirebaseVerifier_ValidTokenAndCache(t *testing.T) {
	f := newCertsFixture(t)

	uid, err := f.v.Verify(context.Background(), f.sign(t, "kid-1", nil))
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	_, err = f.v.Verify(context.Background(), f.sign(t, "kid-1", nil))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.fetches))

	f.clock = f.clock.Add(certsTTL)
	_, err = f.v.Verify(context.Background(), f.sign(t, "kid-1", nil))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.fetches))
}

func TestFirebaseVerifier_RejectsBadClaims(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*jwt.RegisteredClaims)
	}{
		{"expired", func(c *jwt.RegisteredClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)) }},
		{"no expiry", func(c *jwt.RegisteredClaims) { c.ExpiresAt = nil }},
		{"wrong audience", func(c *jwt.RegisteredClaims) { c.Audience = jwt.ClaimStrings{"other"} }},
		{"wrong issuer", func(c *jwt.RegisteredClaims) { c.Issuer = "https://evil.example" }},
		{"issued in the future", func(c *jwt.RegisteredClaims) { c.IssuedAt = jwt.NewNumericDate(time.Now().Add(time.Hour)) }},
		{"empty subject", func(c *jwt.RegisteredClaims) { c.Subject = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCertsFixture(t)

			_, err := f.v.Verify(context.Background(), f.sign(t, "kid-1", tt.mutate))

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken))
			assert.True(t, remote.IsPermanent(err))
			assert.False(t, remote.IsTransient(err))
		})
	}
}

func TestFirebaseVerifier_RejectsHMACToken(t *testing.T) {
	f := newCertsFixture(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "uid-1"})
	tok.Header["kid"] = "kid-1"
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = f.v.Verify(context.Background(), s)

	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestFirebaseVerifier_UnknownKidRefetchIsRateLimited(t *testing.T) {
	f := newCertsFixture(t)
	_, err := f.v.Verify(context.Background(), f.sign(t, "kid-1", nil))
	require.NoError(t, err)

	_, err = f.v.Verify(context.Background(), f.sign(t, "rotated", nil))
	assert.True(t, remote.IsPermanent(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.fetches), "refetch too soon after the last one")

	f.clock = f.clock.Add(minCertsRefetch)
	_, err = f.v.Verify(context.Background(), f.sign(t, "rotated", nil))
	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.fetches))
}

func TestFirebaseVerifier_CertFetchFailureIsRetryable(t *testing.T) {
	f := newCertsFixture(t)
	atomic.StoreInt32(&f.status, http.StatusServiceUnavailable)

	_, err := f.v.Verify(context.Background(), f.sign(t, "kid-1", nil))

	require.Error(t, err)
	assert.False(t, remote.IsPermanent(err))
	assert.True(t, remote.IsTransient(err))
	assert.False(t, errors.Is(err, ErrInvalidToken))
}

func TestFirebaseVerifier_ThroughExecutorTurnsOutagesInto503(t *testing.T) {
	f := newCertsFixture(t)
	atomic.StoreInt32(&f.status, http.StatusBadGateway)
	svc := NewIdentityService(IdentityConfig{}, nil, nil, f.v, quickExec(), nil, nil)

	_, err := svc.VerifyToken(context.Background(), "Bearer "+f.sign(t, "kid-1", nil))

	requireAppError(t, err, http.StatusServiceUnavailable, "Token verification failed due to network/SSL")
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.fetches))
}
