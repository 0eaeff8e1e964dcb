// Package session persists the signed-in Identity in the namespaced client-state store.
package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"ecoquest/internal/models"
)

// Namespace is the fixed client-state key holding the Identity
const Namespace = "ecoquest_user"

const issuer = "ecoquest-web"

// ErrRoleChange is returned when saving an identity whose role differs from the stored one
var ErrRoleChange = errors.New("a different role is already signed in; log out first")

// StateStore is the key/value backend (repository.StateRepository in production)
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}

// Store signs identities and keeps them in a StateStore
type Store struct {
	state StateStore
	key   []byte
	ttl   time.Duration
	now   func() time.Time
}

type identityClaims struct {
	jwt.RegisteredClaims
	Identity models.Identity `json:"identity"`
}

// NewStore derives the signing key from secret and returns a store whose entries live for ttl
func NewStore(state StateStore, secret string, ttl time.Duration) (*Store, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(Namespace), []byte("identity-signing"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return &Store{state: state, key: key, ttl: ttl, now: time.Now}, nil
}

// Scope returns the view of the store for one browser session. An empty
// sessionID addresses the bare namespace (used by the CLI).
func (s *Store) Scope(sessionID string) *Scope {
	key := Namespace
	if sessionID != "" {
		key = Namespace + ":" + sessionID
	}
	return &Scope{store: s, key: key}
}

// Scope reads and writes the Identity of a single browser session
type Scope struct {
	store *Store
	key   string
}

// Key returns the client-state key this scope writes to
func (sc *Scope) Key() string {
	return sc.key
}

// SaveIdentity persists identity, replacing any stored identity of the same role
func (sc *Scope) SaveIdentity(ctx context.Context, identity models.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	current, err := sc.GetIdentity(ctx)
	if err != nil {
		return err
	}
	if current != nil && current.Role != identity.Role {
		return ErrRoleChange
	}

	now := sc.store.now()
	expiresAt := now.Add(sc.store.ttl)
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.SubjectID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Identity: identity,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sc.store.key)
	if err != nil {
		return fmt.Errorf("failed to sign identity: %w", err)
	}

	return sc.store.state.Set(ctx, sc.key, token, expiresAt)
}

// GetIdentity returns the stored identity, or nil when nothing valid is stored.
// Corrupt, expired and tampered entries read as nil; the error is only set when
// the backing store itself fails.
func (sc *Scope) GetIdentity(ctx context.Context) (*models.Identity, error) {
	raw, found, err := sc.store.state.Get(ctx, sc.key)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return nil, nil
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sc.store.now),
	)
	claims := &identityClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return sc.store.key, nil
	})
	if err != nil || !token.Valid {
		log.Printf("Discarding unreadable session entry %s: %v", sc.key, err)
		return nil, nil
	}

	if err := claims.Identity.Validate(); err != nil {
		log.Printf("Discarding invalid identity in %s: %v", sc.key, err)
		return nil, nil
	}

	identity := claims.Identity
	return &identity, nil
}

// Clear removes the stored identity
func (sc *Scope) Clear(ctx context.Context) error {
	return sc.store.state.Delete(ctx, sc.key)
}
