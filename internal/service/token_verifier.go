package service

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"venue_control/internal/remote"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier resolves an ID token to the uid it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (string, error)
}

const (
	certsTTL        = time.Hour
	minCertsRefetch = time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

// FirebaseVerifier checks RS256 ID tokens against the published signing
// certificates of a project. Certificates are cached for certsTTL and
// refetched, at most once a minute, when a token names an unknown key.
type FirebaseVerifier struct {
	client    *http.Client
	certsURL  string
	projectID string
	now       func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

func NewFirebaseVerifier(client *http.Client, certsURL, projectID string) *FirebaseVerifier {
	return &FirebaseVerifier{client: client, certsURL: certsURL, projectID: projectID, now: time.Now}
}

// Verify returns the token subject. Fetch failures are returned as they are
// so the executor can classify them; every other rejection is permanent.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	var fetchErr error
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		key, err := v.key(ctx, kid)
		if err != nil && !remote.IsPermanent(err) {
			fetchErr = err
		}
		return key, err
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if fetchErr != nil {
		return "", fmt.Errorf("fetch signing certificates: %w", fetchErr)
	}
	if err != nil {
		return "", remote.Permanent(fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}
	if claims.Subject == "" {
		return "", remote.Permanent(fmt.Errorf("%w: empty subject", ErrInvalidToken))
	}
	return claims.Subject, nil
}

func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	age := v.now().Sub(v.fetched)
	_, known := v.keys[kid]
	if v.keys == nil || age >= certsTTL || (!known && age >= minCertsRefetch) {
		if err := v.refresh(ctx); err != nil {
			return nil, err
		}
	}
	key, ok := v.keys[kid]
	if !ok {
		return nil, remote.Permanent(fmt.Errorf("unknown signing key %q", kid))
	}
	return key, nil
}

// refresh downloads the kid -> PEM certificate map. Callers hold mu.
func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	res := remote.Get(v.client, v.certsURL)(ctx)
	switch res.Kind {
	case remote.KindRemoteError:
		return remote.Permanent(errors.New(res.Message))
	case remote.KindFailure:
		return res.Err
	}

	var pems map[string]string
	if err := json.Unmarshal(res.Body, &pems); err != nil {
		return remote.Permanent(fmt.Errorf("decode certificates: %w", err))
	}
	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return remote.Permanent(fmt.Errorf("parse certificate %q: %w", kid, err))
		}
		keys[kid] = key
	}
	v.keys = keys
	v.fetched = v.now()
	return nil
}
