package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeIdP stands in for the hospital identity provider: a JWKS endpoint
// plus an OIDC discovery document pointing at it.
type fakeIdP struct {
	jwks      *httptest.Server
	discovery *httptest.Server
	fetches   atomic.Int64
}

func newFakeIdP(t *testing.T, keys ...JWKSKey) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{}

	idp.jwks = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idp.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(JWKSResponse{Keys: keys})
	}))
	t.Cleanup(idp.jwks.Close)

	idp.discovery = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 "https://login.medscribe.example",
			"authorization_endpoint": "https://login.medscribe.example/authorize",
			"token_endpoint":         "https://login.medscribe.example/token",
			"userinfo_endpoint":      "https://login.medscribe.example/userinfo",
			"jwks_uri":               idp.jwks.URL,
			"scopes_supported":       []string{"openid", "profile"},
		})
	}))
	t.Cleanup(idp.discovery.Close)
	return idp
}

func signingKey(t *testing.T, kid string) (*rsa.PrivateKey, JWKSKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return priv, JWKSKey{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.PublicKey.E)).Bytes()),
	}
}

func TestOIDCDiscovery(t *testing.T) {
	_, jwk := signingKey(t, "hospital-idp-1")
	idp := newFakeIdP(t, jwk)

	provider, err := NewOIDCProvider(idp.discovery.URL)
	if err != nil {
		t.Fatalf("discovery: %v", err)
	}

	if provider.TokenEndpoint != "https://login.medscribe.example/token" {
		t.Errorf("token endpoint = %s", provider.TokenEndpoint)
	}
	if provider.JWKSURI != idp.jwks.URL {
		t.Errorf("jwks_uri = %s, want %s", provider.JWKSURI, idp.jwks.URL)
	}
	if !provider.SupportsScope("openid") || provider.SupportsScope("fhir") {
		t.Errorf("scope support wrong: %v", provider.ScopesSupported)
	}
	if provider.JWKSKeyFunc() == nil {
		t.Error("provider should expose a keyfunc")
	}
}

func TestOIDCDiscovery_Failures(t *testing.T) {
	t.Run("issuer returns 404", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		if _, err := NewOIDCProvider(srv.URL); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("issuer unreachable", func(t *testing.T) {
		if _, err := NewOIDCProvider("http://127.0.0.1:1"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("document without jwks_uri", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"issuer": "x", "token_endpoint": "y"})
		}))
		defer srv.Close()
		if _, err := NewOIDCProvider(srv.URL); err == nil {
			t.Error("expected error")
		}
	})
}

func TestJWKSCache_FetchAndReuse(t *testing.T) {
	priv, jwk := signingKey(t, "cache-key")
	idp := newFakeIdP(t, jwk)

	cache := NewJWKSCache(idp.jwks.URL, 10*time.Minute)

	key, err := cache.GetKey("cache-key")
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if key.N.Cmp(priv.PublicKey.N) != 0 || key.E != priv.PublicKey.E {
		t.Error("fetched key does not match the signing key")
	}

	if _, err := cache.GetKey("cache-key"); err != nil {
		t.Fatalf("cache hit: %v", err)
	}
	if n := idp.fetches.Load(); n != 1 {
		t.Errorf("JWKS fetched %d times within TTL, want 1", n)
	}
}

func TestJWKSCache_RefetchesAfterTTL(t *testing.T) {
	_, jwk := signingKey(t, "ttl-key")
	idp := newFakeIdP(t, jwk)

	cache := NewJWKSCache(idp.jwks.URL, time.Millisecond)
	if _, err := cache.GetKey("ttl-key"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := cache.GetKey("ttl-key"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if n := idp.fetches.Load(); n < 2 {
		t.Errorf("expected a refetch after TTL expiry, got %d fetches", n)
	}
}

func TestJWKSCache_PicksUpRotatedKey(t *testing.T) {
	_, jwk1 := signingKey(t, "rotation-old")
	priv2, jwk2 := signingKey(t, "rotation-new")

	var rotated atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys := []JWKSKey{jwk1}
		if rotated.Load() {
			keys = append(keys, jwk2)
		}
		json.NewEncoder(w).Encode(JWKSResponse{Keys: keys})
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, time.Millisecond)
	if _, err := cache.GetKey("rotation-old"); err != nil {
		t.Fatalf("pre-rotation fetch: %v", err)
	}

	rotated.Store(true)
	time.Sleep(5 * time.Millisecond)

	key, err := cache.GetKey("rotation-new")
	if err != nil {
		t.Fatalf("post-rotation fetch: %v", err)
	}
	if key.N.Cmp(priv2.PublicKey.N) != 0 {
		t.Error("rotated key does not match")
	}
}

func TestJWKSCache_UnknownKid(t *testing.T) {
	_, jwk := signingKey(t, "known")
	idp := newFakeIdP(t, jwk)

	cache := NewJWKSCache(idp.jwks.URL, 10*time.Minute)
	if _, err := cache.GetKey("unknown"); err == nil {
		t.Error("expected error for unknown kid")
	}
}

func TestJWKSCache_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, 10*time.Minute)
	if _, err := cache.GetKey("any"); err == nil {
		t.Error("expected error when the JWKS endpoint is down")
	}
}

func TestParseRSAPublicKey(t *testing.T) {
	priv, jwk := signingKey(t, "parse")

	pub, err := parseRSAPublicKey(jwk)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pub.N.Cmp(priv.PublicKey.N) != 0 || pub.E != priv.PublicKey.E {
		t.Error("parsed key differs from source")
	}

	bad := []struct {
		name string
		jwk  JWKSKey
	}{
		{"garbage modulus", JWKSKey{Kty: "RSA", N: "!!not-base64!!", E: "AQAB"}},
		{"garbage exponent", JWKSKey{Kty: "RSA", N: jwk.N, E: "!!not-base64!!"}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseRSAPublicKey(tc.jwk); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestJwksKeyFunc_RequiresKid(t *testing.T) {
	_, jwk := signingKey(t, "some-key")
	idp := newFakeIdP(t, jwk)

	keyFunc := jwksKeyFunc(idp.jwks.URL)
	_, err := keyFunc(&jwt.Token{Header: map[string]interface{}{}})
	if err == nil {
		t.Fatal("expected error for token without kid")
	}
	if !strings.Contains(err.Error(), "kid") {
		t.Errorf("error should mention the missing kid: %v", err)
	}
}
