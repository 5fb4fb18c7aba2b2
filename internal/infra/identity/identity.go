// Package identity answers "who is signed in" for the engine.
//
// Supabase signs its access tokens with the project's JWT secret (HS256)
// and carries the user UUID in the "sub" claim. Session keeps the latest
// token in the local store and re-validates it on every question, so an
// expired token quietly turns the device back into an anonymous one.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hellobible/hellobible/internal/domain"
)

// SessionKey is the local store key holding the current session.
const SessionKey = "auth_session"

// Claims is the subset of a Supabase access token we read.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type storedSession struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

// Session is a domain.IdentityProvider backed by a stored access token.
type Session struct {
	store  domain.LocalStore
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSession creates a session provider. issuer may be empty.
func NewSession(store domain.LocalStore, secret []byte, issuer string) *Session {
	return &Session{store: store, secret: secret, issuer: issuer, now: time.Now}
}

// Login validates token and stores it as the current session.
func (s *Session) Login(ctx context.Context, token string) (string, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(storedSession{AccessToken: token, UserID: claims.Subject})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Set(ctx, SessionKey, string(data)); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return claims.Subject, nil
}

// Logout forgets the stored session.
func (s *Session) Logout(ctx context.Context) error {
	return s.store.Remove(ctx, SessionKey)
}

// Validate checks signature, expiry, issuer and that sub is a UUID.
func (s *Session) Validate(token string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, domain.ErrAuthDisabled
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject %q is not a user id", domain.ErrInvalidToken, claims.Subject)
	}
	return claims, nil
}

// IsAuthenticated reports whether a valid session is stored.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.UserID(ctx)
	return ok
}

// UserID returns the signed-in user's id.
func (s *Session) UserID(ctx context.Context) (string, bool) {
	raw, version, err := s.store.Get(ctx, SessionKey)
	if err != nil {
		log.Printf("[identity] read session: %v", err)
		return "", false
	}
	if version == 0 {
		return "", false
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("[identity] corrupt session, ignoring: %v", err)
		return "", false
	}
	claims, err := s.Validate(stored.AccessToken)
	if err != nil {
		if !errors.Is(err, domain.ErrAuthDisabled) {
			log.Printf("[identity] stored token rejected: %v", err)
		}
		return "", false
	}
	return claims.Subject, true
}

// Anonymous is the provider used when sign-in is not configured.
type Anonymous struct{}

func (Anonymous) IsAuthenticated(context.Context) bool { return false }
func (Anonymous) UserID(context.Context) (string, bool) { return "", false }
