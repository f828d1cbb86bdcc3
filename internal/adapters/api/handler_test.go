package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"keygate/internal/adapters/idp/mock"
	"keygate/internal/adapters/store/memory"
	appauth "keygate/internal/application/auth"
	"keygate/internal/config"
	"keygate/internal/infrastructure/crypto"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTIssuer:        "https://auth.local",
			JWTAudience:      "api://default",
			JWTKid:           "test-kid",
			AzpDefault:       "spa-web",
			IDPName:          "cognito",
			AccessTokenTTL:   900 * time.Second,
			SessionTTL:       1800 * time.Second,
			RefreshThreshold: 1800 * time.Second,
			CipherSessionTTL: 300 * time.Second,
			StateTTL:         600 * time.Second,
		},
		Service: config.ServiceConfig{
			TokenTTL:      300 * time.Second,
			ClientIDs:     map[string]string{"bff": "bff-client"},
			ClientSecrets: map[string]string{"bff": "bff-secret"},
		},
	}

	signer, err := crypto.NewEphemeralSigner(cfg.Auth.JWTKid)
	if err != nil {
		t.Fatalf("NewEphemeralSigner: %v", err)
	}
	gateway := mock.New(mock.Account{
		Username: "demo", Password: "demo-password-1", Email: "demo@example.com", Confirmed: true,
	})
	service := appauth.NewService(cfg, memory.NewSessionStore(), memory.NewCipherSessionStore(),
		memory.NewStateStore(cfg.Auth.StateTTL), gateway, signer, crypto.NewCipherExchange())

	r := gin.New()
	NewHandler(service).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login",
		gin.H{"username": "demo", "password": "demo-password-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp appauth.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SID == "" || resp.AccessToken == "" || resp.ExpiresIn != 900 {
		t.Errorf("resp = %+v", resp)
	}

	cookies := w.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == "sid" && c.Value == resp.SID && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Errorf("sid cookie not set: %v", cookies)
	}
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login",
		gin.H{"username": "demo", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{"password": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing username: status = %d, want 400", w.Code)
	}
}

func TestRefreshEndpointWithCookie(t *testing.T) {
	r := newTestRouter(t)

	login := doJSON(t, r, http.MethodPost, "/api/v1/auth/login",
		gin.H{"username": "demo", "password": "demo-password-1"})
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d", login.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp appauth.TokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" {
		t.Errorf("no access token in refresh response")
	}
}

func TestRefreshEndpointWithoutSession(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/refresh", gin.H{})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	r := newTestRouter(t)

	login := doJSON(t, r, http.MethodPost, "/api/v1/auth/login",
		gin.H{"username": "demo", "password": "demo-password-1"})
	var loginResp appauth.LoginResponse
	if err := json.Unmarshal(login.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var principal appauth.Principal
	if err := json.Unmarshal(w.Body.Bytes(), &principal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if principal.Subject != "demo" || principal.SID != loginResp.SID {
		t.Errorf("principal = %+v", principal)
	}

	// No header, wrong scheme, garbage token: all 401.
	for _, header := range []string{"", "Basic abc", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestJWKSEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &jwks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jwks.Keys) != 1 || jwks.Keys[0]["alg"] != "ES256" || jwks.Keys[0]["use"] != "sig" {
		t.Errorf("jwks = %+v", jwks)
	}
}

func TestServiceTokenEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/svc/token", gin.H{
		"client_id": "bff-client", "client_secret": "bff-secret", "sub_spn": "spn:bff",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/svc/token", gin.H{
		"client_id": "bff-client", "client_secret": "wrong", "sub_spn": "spn:bff",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad secret: status = %d, want 401", w.Code)
	}
}

func TestCipherSessionEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp appauth.CipherSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SID == "" || resp.ServerPublicKeyJWK.Kty != "EC" || resp.ServerPublicKeyJWK.Use != "enc" {
		t.Errorf("resp = %+v", resp)
	}
}
