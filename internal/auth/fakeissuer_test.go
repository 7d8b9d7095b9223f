package auth_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testClientID = "bmsync-test"

// fakeIssuer is a minimal OpenID Connect issuer: discovery, JWKS and a
// token endpoint that accepts one authorization code and any refresh token.
type fakeIssuer struct {
	t         *testing.T
	srv       *httptest.Server
	key       *rsa.PrivateKey
	code      string
	refreshes atomic.Int32
	verifiers atomic.Int32
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	f := &fakeIssuer{t: t, key: key, code: "good-code"}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", f.discovery)
	mux.HandleFunc("/jwks", f.jwks)
	mux.HandleFunc("/token", f.token)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIssuer) URL() string { return f.srv.URL }

func (f *fakeIssuer) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"issuer":                                f.srv.URL,
		"authorization_endpoint":                f.srv.URL + "/authorize",
		"token_endpoint":                        f.srv.URL + "/token",
		"jwks_uri":                              f.srv.URL + "/jwks",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (f *fakeIssuer) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := f.key.PublicKey
	writeJSON(w, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test",
			"alg": "RS256",
			"use": "sig",
			"n":   b64(pub.N.Bytes()),
			"e":   b64(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (f *fakeIssuer) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != f.code {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{"error": "invalid_grant"})
			return
		}
		if r.PostForm.Get("code_verifier") != "" {
			f.verifiers.Add(1)
		}
	case "refresh_token":
		f.refreshes.Add(1)
	default:
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	idToken := f.sign(map[string]any{
		"sub":     "user-123",
		"email":   "ada@example.com",
		"name":    "Ada",
		"picture": "https://example.com/ada.png",
	}, testClientID)

	writeJSON(w, map[string]any{
		"access_token":  "access",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": "refresh",
		"id_token":      idToken,
	})
}

// sign builds an RS256 JWT for audience aud with standard claims added.
func (f *fakeIssuer) sign(claims map[string]any, aud string) string {
	f.t.Helper()
	now := time.Now()
	claims["iss"] = f.srv.URL
	claims["aud"] = aud
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(time.Hour).Unix()

	header, _ := json.Marshal(map[string]string{"alg": "RS256", "kid": "test", "typ": "JWT"})
	payload, err := json.Marshal(claims)
	if err != nil {
		f.t.Fatal(err)
	}

	input := b64(header) + "." + b64(payload)
	sum := sha256.Sum256([]byte(input))
	sig, err := rsa.SignPKCS1v15(rand.Reader, f.key, crypto.SHA256, sum[:])
	if err != nil {
		f.t.Fatal(err)
	}
	return input + "." + b64(sig)
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
