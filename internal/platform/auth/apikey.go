package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Machine clients (transcription pipelines, dictation appliances, batch
// importers) authenticate with API keys instead of OIDC logins. Only a
// SHA-256 digest of each key is stored; the raw secret is shown once, at
// mint time. A key carries role grants so RequireRole treats its traffic
// like any signed-in staff member.

const (
	// keyPrefix marks raw medscribe keys so they can be told apart from
	// JWTs in an Authorization header.
	keyPrefix = "msk1_"

	keySecretBytes = 16

	KeyStatusActive  = "active"
	KeyStatusRevoked = "revoked"
)

var (
	ErrKeyNotFound = errors.New("api key not found")
	ErrKeyRevoked  = errors.New("api key revoked")
	ErrKeyExpired  = errors.New("api key expired")
	ErrInvalidKey  = errors.New("invalid api key")

	// ErrAdminGrant rejects minting admin-capable machine credentials. A
	// leaked key must never be able to mint further keys.
	ErrAdminGrant = errors.New("admin role cannot be granted to an api key")
)

type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	ClientID   string     `json:"client_id,omitempty"`
	Digest     string     `json:"-"`
	Prefix     string     `json:"prefix"`
	Roles      []string   `json:"roles"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Usable reports whether the key may still authenticate requests.
func (k *APIKey) Usable() error {
	if k.Status == KeyStatusRevoked {
		return ErrKeyRevoked
	}
	if k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt) {
		return ErrKeyExpired
	}
	return nil
}

type APIKeyStore interface {
	Create(ctx context.Context, key *APIKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*APIKey, error)
	GetByDigest(ctx context.Context, digest string) (*APIKey, error)
	List(ctx context.Context, limit, offset int) ([]*APIKey, int, error)
	Update(ctx context.Context, key *APIKey) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MintSpec describes a key to be created.
type MintSpec struct {
	Name      string
	ClientID  string
	Roles     []string
	ExpiresAt *time.Time
}

type APIKeyManager struct {
	keys APIKeyStore
}

func NewAPIKeyManager(keys APIKeyStore) *APIKeyManager {
	return &APIKeyManager{keys: keys}
}

// Mint creates a key and returns it together with the raw secret. The
// secret is not recoverable afterwards.
func (m *APIKeyManager) Mint(ctx context.Context, spec MintSpec) (*APIKey, string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, "", fmt.Errorf("api key name is required")
	}
	for _, r := range spec.Roles {
		if r == "admin" {
			return nil, "", ErrAdminGrant
		}
	}

	raw, err := newRawKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	key := &APIKey{
		ID:        uuid.New(),
		Name:      spec.Name,
		ClientID:  spec.ClientID,
		Digest:    digest(raw),
		Prefix:    raw[:len(keyPrefix)+4],
		Roles:     spec.Roles,
		Status:    KeyStatusActive,
		ExpiresAt: spec.ExpiresAt,
	}
	if err := m.keys.Create(ctx, key); err != nil {
		return nil, "", fmt.Errorf("store api key: %w", err)
	}
	return key, raw, nil
}

// Validate resolves a raw key to its record, rejecting revoked and expired
// keys. On success the key's last-used timestamp is touched best-effort.
func (m *APIKeyManager) Validate(ctx context.Context, raw string) (*APIKey, error) {
	if !strings.HasPrefix(raw, keyPrefix) {
		return nil, ErrInvalidKey
	}
	key, err := m.keys.GetByDigest(ctx, digest(raw))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("look up api key: %w", err)
	}
	if err := key.Usable(); err != nil {
		return nil, err
	}
	now := time.Now()
	key.LastUsedAt = &now
	_ = m.keys.Update(ctx, key)
	return key, nil
}

func (m *APIKeyManager) Get(ctx context.Context, id uuid.UUID) (*APIKey, error) {
	return m.keys.GetByID(ctx, id)
}

func (m *APIKeyManager) List(ctx context.Context, limit, offset int) ([]*APIKey, int, error) {
	return m.keys.List(ctx, limit, offset)
}

// Revoke is idempotent: revoking an already-revoked key is a no-op.
func (m *APIKeyManager) Revoke(ctx context.Context, id uuid.UUID) error {
	key, err := m.keys.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if key.Status == KeyStatusRevoked {
		return nil
	}
	now := time.Now()
	key.Status = KeyStatusRevoked
	key.RevokedAt = &now
	return m.keys.Update(ctx, key)
}

// Rotate revokes the key and mints a replacement with the same name, client
// and role grants.
func (m *APIKeyManager) Rotate(ctx context.Context, id uuid.UUID) (*APIKey, string, error) {
	old, err := m.keys.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := m.Revoke(ctx, id); err != nil {
		return nil, "", err
	}
	return m.Mint(ctx, MintSpec{
		Name:      old.Name,
		ClientID:  old.ClientID,
		Roles:     old.Roles,
		ExpiresAt: old.ExpiresAt,
	})
}

func newRawKey() (string, error) {
	buf := make([]byte, keySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// APIKeyMiddleware authenticates requests that carry a key in X-API-Key or
// as a Bearer credential with the medscribe prefix. Requests without a key
// pass through untouched so JWT auth can handle them.
func APIKeyMiddleware(manager *APIKeyManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := apiKeyFromRequest(c)
			if !ok {
				return next(c)
			}
			key, err := manager.Validate(c.Request().Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, ErrInvalidKey),
					errors.Is(err, ErrKeyRevoked),
					errors.Is(err, ErrKeyExpired):
					return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
				default:
					return echo.NewHTTPError(http.StatusInternalServerError, "api key validation failed")
				}
			}

			c.Set("api_key_id", key.ID.String())
			c.SetRequest(c.Request().WithContext(
				withIdentity(c.Request().Context(), "api-key:"+key.ID.String(), key.Roles)))
			return next(c)
		}
	}
}

func apiKeyFromRequest(c echo.Context) (string, bool) {
	if v := c.Request().Header.Get("X-API-Key"); v != "" {
		return v, true
	}
	const bearer = "Bearer "
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > len(bearer) && strings.EqualFold(h[:len(bearer)], bearer) &&
		strings.HasPrefix(h[len(bearer):], keyPrefix) {
		return h[len(bearer):], true
	}
	return "", false
}

// MemoryAPIKeyStore backs tests and local development. Listings come back
// newest first, matching the Postgres store.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*APIKey
}

func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{keys: make(map[uuid.UUID]*APIKey)}
}

func (s *MemoryAPIKeyStore) Create(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	key.CreatedAt = now
	key.UpdatedAt = now
	s.keys[key.ID] = cloneKey(key)
	return nil
}

func (s *MemoryAPIKeyStore) GetByID(_ context.Context, id uuid.UUID) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return cloneKey(key), nil
}

func (s *MemoryAPIKeyStore) GetByDigest(_ context.Context, d string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.keys {
		if key.Digest == d {
			return cloneKey(key), nil
		}
	}
	return nil, ErrKeyNotFound
}

func (s *MemoryAPIKeyStore) List(_ context.Context, limit, offset int) ([]*APIKey, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		all = append(all, cloneKey(key))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []*APIKey{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *MemoryAPIKeyStore) Update(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.ID]; !ok {
		return ErrKeyNotFound
	}
	key.UpdatedAt = time.Now()
	s.keys[key.ID] = cloneKey(key)
	return nil
}

func (s *MemoryAPIKeyStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return ErrKeyNotFound
	}
	delete(s.keys, id)
	return nil
}

func cloneKey(k *APIKey) *APIKey {
	dup := *k
	dup.Roles = append([]string(nil), k.Roles...)
	return &dup
}
