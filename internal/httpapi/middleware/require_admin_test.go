package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireAdmin_AllowsAdminKey_BlocksPublicKey(t *testing.T) {
	keys := Keys{
		Public: []string{"pub_key"},
		Admin:  []string{"adm_key"},
	}

	// Admin key via bearer -> 200
	reqAdm := httptest.NewRequest(http.MethodGet, "/admin", nil)
	reqAdm.Header.Set("Authorization", "Bearer adm_key")
	recAdm := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler).ServeHTTP(recAdm, reqAdm)
	if recAdm.Code != http.StatusOK {
		t.Fatalf("admin key should pass; got %d", recAdm.Code)
	}

	// Public key -> 403
	reqPub := httptest.NewRequest(http.MethodGet, "/admin", nil)
	reqPub.Header.Set("X-API-Key", "pub_key")
	recPub := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler).ServeHTTP(recPub, reqPub)
	if recPub.Code != http.StatusForbidden {
		t.Fatalf("public key should be forbidden; got %d", recPub.Code)
	}

	// Missing key -> 401
	reqNone := httptest.NewRequest(http.MethodGet, "/admin", nil)
	recNone := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler).ServeHTTP(recNone, reqNone)
	if recNone.Code != http.StatusUnauthorized {
		t.Fatalf("missing key should be 401; got %d", recNone.Code)
	}
}

func TestRequireAny(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}
	for key, want := range map[string]int{
		"pub_key": http.StatusOK,
		"adm_key": http.StatusOK,
		"nope":    http.StatusUnauthorized,
		"":        http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		RequireAny(keys)(okHandler).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("key %q: want %d got %d", key, want, rec.Code)
		}
	}

	// no keys configured -> open
	rec := httptest.NewRecorder()
	RequireAny(Keys{})(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("dev mode should pass; got %d", rec.Code)
	}
}

func TestRequireAny_QueryKeyOnlyForWebsocket(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}}

	plain := httptest.NewRequest(http.MethodGet, "/api/status?api_key=pub_key", nil)
	rec := httptest.NewRecorder()
	RequireAny(keys)(okHandler).ServeHTTP(rec, plain)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("query key on plain request should be ignored; got %d", rec.Code)
	}

	ws := httptest.NewRequest(http.MethodGet, "/api/ws?api_key=pub_key", nil)
	ws.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	RequireAny(keys)(okHandler).ServeHTTP(rec, ws)
	if rec.Code != http.StatusOK {
		t.Fatalf("query key on websocket upgrade should pass; got %d", rec.Code)
	}
}

func TestRequireAdmin_PublicKeysOnlyClosesAdminRoutes(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}}
	for _, key := range []string{"", "pub_key"} {
		req := httptest.NewRequest(http.MethodPut, "/api/notifications", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		RequireAdmin(keys)(okHandler).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("key %q: want 403 with no admin keys configured, got %d", key, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	RequireAdmin(Keys{})(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/check", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("dev mode should pass; got %d", rec.Code)
	}
}
