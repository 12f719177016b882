package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
)

func newAuthRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t, time.Minute)
	mw := Middleware{Service: svc}
	handler := NewHandler(nil, svc, mw)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}

func postJSON(t *testing.T, router http.Handler, target string, body map[string]any) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope httpx.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec, envelope
}

func loginTokens(t *testing.T, router http.Handler) tokenPairDTO {
	t.Helper()
	rec, envelope := postJSON(t, router, "/auth/login", map[string]any{
		"email":    "admin@aksara.local",
		"password": "rahasia123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var data struct {
		Tokens tokenPairDTO `json:"tokens"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	if data.Tokens.AccessToken == "" || data.Tokens.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", data.Tokens)
	}
	return data.Tokens
}

func TestLoginEndpoint(t *testing.T) {
	router := newAuthRouter(t)
	loginTokens(t, router)
}

func TestLoginEndpointWrongPassword(t *testing.T) {
	router := newAuthRouter(t)
	rec, envelope := postJSON(t, router, "/auth/login", map[string]any{
		"email":    "admin@aksara.local",
		"password": "salahsemua",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if envelope.Success {
		t.Fatalf("expected failure envelope")
	}
}

func TestLoginEndpointValidatesPayload(t *testing.T) {
	router := newAuthRouter(t)
	rec, _ := postJSON(t, router, "/auth/login", map[string]any{
		"email":    "bukan-email",
		"password": "pendek",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRefreshEndpointRotates(t *testing.T) {
	router := newAuthRouter(t)
	tokens := loginTokens(t, router)

	rec, envelope := postJSON(t, router, "/auth/refresh-token", map[string]any{
		"refreshToken": tokens.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", rec.Code)
	}
	raw, _ := json.Marshal(envelope.Data)
	var rotated tokenPairDTO
	if err := json.Unmarshal(raw, &rotated); err != nil {
		t.Fatalf("decode rotated pair: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatalf("refresh token did not rotate")
	}

	// The old token was consumed.
	rec, _ = postJSON(t, router, "/auth/refresh-token", map[string]any{
		"refreshToken": tokens.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", rec.Code)
	}
}

func TestProfileRequiresBearerToken(t *testing.T) {
	router := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer token-palsu")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", rec.Code)
	}
}

func TestProfileEndpoint(t *testing.T) {
	router := newAuthRouter(t)
	tokens := loginTokens(t, router)

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope httpx.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	raw, _ := json.Marshal(envelope.Data)
	var account accountDTO
	if err := json.Unmarshal(raw, &account); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if account.Email != "admin@aksara.local" || account.RoleID != 2 {
		t.Fatalf("unexpected account: %+v", account)
	}
}
