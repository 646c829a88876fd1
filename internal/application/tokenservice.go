package application

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
)

// sessionClaims is the signed payload of a session token.
type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService authenticates the single configured operator and issues and
// verifies stateless HS256 session tokens.
type TokenService struct {
	credential model.Credential
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewTokenService creates a TokenService for the given credential. Tokens
// expire model.SessionTokenTTL after issue.
func NewTokenService(credential model.Credential, logger *slog.Logger) *TokenService {
	return &TokenService{
		credential: credential,
		ttl:        model.SessionTokenTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Authenticate reports whether username and password match the configured
// credential. The bcrypt comparison runs even on a username mismatch.
func (s *TokenService) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.credential.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.credential.PasswordHash), []byte(password))
	return userOK && passErr == nil
}

// Issue signs a token for username valid for the configured TTL.
func (s *TokenService) Issue(username string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.credential.SigningSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode validates a token and returns its payload. ok is false for any
// failure: bad signature, wrong algorithm, malformed input or expiry.
func (s *TokenService) Decode(token string) (model.SessionToken, bool) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.credential.SigningSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.Debug("session token rejected", "error", err)
		return model.SessionToken{}, false
	}
	if claims.Username == "" {
		s.logger.Debug("session token rejected", "error", "missing username claim")
		return model.SessionToken{}, false
	}

	session := model.SessionToken{Username: claims.Username}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, true
}

// Verify returns the username carried by a valid token.
func (s *TokenService) Verify(token string) (string, bool) {
	session, ok := s.Decode(token)
	if !ok {
		return "", false
	}
	return session.Username, true
}
