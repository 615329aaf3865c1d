package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"venue_control/internal/logger"
	"venue_control/internal/models"
	"venue_control/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenTTL = time.Hour

// Domain errors for admin flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrAdminNotFound   = errors.New("admin not found")
	ErrNoSigningKey    = errors.New("admin signing key not configured")
)

// AdminService signs admins in and manages license access tokens.
type AdminService struct {
	admins     repository.Admins
	tokens     repository.AccessTokens
	signingKey []byte
	log        *logger.Logger
}

func NewAdminService(admins repository.Admins, tokens repository.AccessTokens, signingKey string, log *logger.Logger) *AdminService {
	if log == nil {
		log = logger.Nop()
	}
	return &AdminService{admins: admins, tokens: tokens, signingKey: []byte(signingKey), log: log}
}

// Bootstrap creates the configured admin if it does not exist yet. An empty
// password disables it.
func (s *AdminService) Bootstrap(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil
	}
	existing, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	id, err := s.admins.Create(ctx, username, hash)
	if err != nil {
		return err
	}
	s.log.Infow("admin_bootstrapped", "username", username, "id", id)
	return nil
}

// AdminClaims defines admin session JWT claims.
type AdminClaims struct {
	jwt.RegisteredClaims
	AdminID int `json:"admin_id"`
}

// SignIn validates credentials and returns a session JWT.
func (s *AdminService) SignIn(ctx context.Context, username, password string) (string, error) {
	a, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", ErrAdminNotFound
	}
	if err := verifyPassword(a.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}
	return s.issueToken(a.ID)
}

// ParseToken parses a session JWT and returns the admin ID.
func (s *AdminService) ParseToken(accessToken string) (int, error) {
	if len(s.signingKey) == 0 {
		return 0, ErrNoSigningKey
	}
	token, err := jwt.ParseWithClaims(accessToken, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}
	return claims.AdminID, nil
}

func (s *AdminService) ListAccessTokens(ctx context.Context) ([]models.AccessToken, error) {
	return s.tokens.List(ctx)
}

// AddAccessToken stores token, or a generated one when token is empty.
func (s *AdminService) AddAccessToken(ctx context.Context, token string) (models.AccessToken, error) {
	at, err := s.tokens.Add(ctx, token)
	if err != nil {
		return models.AccessToken{}, err
	}
	s.log.Infow("access_token_added", "token", at.Token)
	return at, nil
}

func (s *AdminService) DeleteAccessToken(ctx context.Context, token string) (bool, error) {
	removed, err := s.tokens.Delete(ctx, token)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Infow("access_token_deleted", "token", token)
	}
	return removed, nil
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// helper: issue a signed JWT for an admin
func (s *AdminService) issueToken(adminID int) (string, error) {
	if len(s.signingKey) == 0 {
		return "", ErrNoSigningKey
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		AdminID: adminID,
	})
	return token.SignedString(s.signingKey)
}
