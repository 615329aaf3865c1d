package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"venue_control/internal/logger"
	"venue_control/internal/models"
	"venue_control/internal/remote"
	"venue_control/internal/repository"
)

// IdentityConfig points at the identity provider REST endpoints.
type IdentityConfig struct {
	APIKey     string
	SignInURL  string
	SignUpURL  string
	RefreshURL string
}

type SignUpInput struct {
	Email       string
	Password    string
	Name        string
	AccessToken string
}

// RefreshResult keeps the camelCase field names clients already use.
type RefreshResult struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type IdentityService struct {
	cfg      IdentityConfig
	tree     repository.TreeStore
	tokens   repository.AccessTokens
	verifier TokenVerifier
	exec     *remote.Executor
	client   *http.Client
	log      *logger.Logger
}

func NewIdentityService(cfg IdentityConfig, tree repository.TreeStore, tokens repository.AccessTokens, verifier TokenVerifier, exec *remote.Executor, client *http.Client, log *logger.Logger) *IdentityService {
	if log == nil {
		log = logger.Nop()
	}
	return &IdentityService{cfg: cfg, tree: tree, tokens: tokens, verifier: verifier, exec: exec, client: client, log: log}
}

func (s *IdentityService) withKey(endpoint string) string {
	return endpoint + "?key=" + url.QueryEscape(s.cfg.APIKey)
}

// Login exchanges email and password for the provider's token response.
func (s *IdentityService) Login(ctx context.Context, email, password string) (map[string]any, error) {
	payload := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	body, err := s.exec.Execute(ctx, "identity.sign_in", remote.PostJSON(s.client, s.withKey(s.cfg.SignInURL), payload, nil))
	if err != nil {
		return nil, fromRemote(err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, newAppError(http.StatusBadGateway, "Unexpected identity response", err)
	}
	return out, nil
}

// SignUp creates the account only for holders of a valid license token, then
// seeds the user record.
func (s *IdentityService) SignUp(ctx context.Context, in SignUpInput) (string, error) {
	accessKey := strings.TrimSpace(in.AccessToken)
	ok, err := s.tokens.Exists(ctx, accessKey)
	if err != nil {
		s.log.Errorw("signup_token_lookup_failed", "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to validate access token", err)
	}
	if !ok {
		return "", newAppError(http.StatusForbidden, "Invalid Access Token", nil)
	}

	payload := map[string]any{"email": in.Email, "password": in.Password, "displayName": in.Name, "returnSecureToken": true}
	body, err := s.exec.Execute(ctx, "identity.sign_up", remote.PostJSON(s.client, s.withKey(s.cfg.SignUpURL), payload, nil))
	if err != nil {
		s.log.Errorw("signup_failed", "email", in.Email, "err", err)
		return "", fromRemote(err)
	}
	var created struct {
		LocalID string `json:"localId"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.LocalID == "" {
		return "", newAppError(http.StatusBadGateway, "Unexpected identity response", err)
	}

	record := map[string]any{
		models.KeyEmail:          in.Email,
		models.KeyName:           in.Name,
		models.KeyVerifiedAccess: true,
		models.KeyAccessKey:      accessKey,
		models.KeyVenues:         map[string]any{},
	}
	if err := s.tree.Update(ctx, repository.JoinPath(usersRoot, created.LocalID), record); err != nil {
		s.log.Errorw("signup_record_write_failed", "uid", created.LocalID, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to create user record", err)
	}
	s.log.Infow("user_signed_up", "uid", created.LocalID)
	return created.LocalID, nil
}

func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return RefreshResult{}, newAppError(http.StatusBadRequest, "Missing refresh token", nil)
	}
	payload := map[string]any{"grant_type": "refresh_token", "refresh_token": refreshToken}
	body, err := s.exec.Execute(ctx, "identity.refresh", remote.PostJSON(s.client, s.withKey(s.cfg.RefreshURL), payload, nil))
	if err != nil {
		return RefreshResult{}, fromRemote(err)
	}
	var data struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &data); err != nil || data.IDToken == "" {
		return RefreshResult{}, newAppError(http.StatusBadGateway, "Unexpected refresh response", err)
	}
	return RefreshResult{IDToken: data.IDToken, RefreshToken: data.RefreshToken, ExpiresIn: data.ExpiresIn}, nil
}

// VerifyToken resolves an Authorization header value to a uid. Exhausted
// network retries surface as 503 so clients can tell them from a bad token.
func (s *IdentityService) VerifyToken(ctx context.Context, header string) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer "))
	if token == "" {
		return "", newAppError(http.StatusUnauthorized, "Missing token", nil)
	}
	var uid string
	_, err := s.exec.Execute(ctx, "identity.verify", func(ctx context.Context) remote.Result {
		id, err := s.verifier.Verify(ctx, token)
		if err != nil {
			return remote.Failure(err)
		}
		uid = id
		return remote.OK(nil)
	})
	if err != nil {
		if remote.IsUnavailable(err) {
			return "", newAppError(http.StatusServiceUnavailable, "Token verification failed due to network/SSL", err)
		}
		return "", newAppError(http.StatusUnauthorized, "Invalid or expired token", err)
	}
	return uid, nil
}
