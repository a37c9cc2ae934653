package publish

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calloway/fixport/internal/docstore"
	"github.com/calloway/fixport/internal/testutil"
)

func newTestHandler(t *testing.T, cfg Config) (*Handler, *countingStore) {
	t.Helper()
	store := &countingStore{Store: docstore.NewMemory()}
	svc := NewService(store, testutil.DiscardLogger())
	return NewHandler(svc, cfg, testutil.DiscardLogger()), store
}

func publishBody(t *testing.T, fix map[string]any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"fix": fix, "source": "builder"})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(raw)
}

func doRequest(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHandlerPublishOK(t *testing.T) {
	h, store := newTestHandler(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/", publishBody(t, validFix("fix-a")))
	req.Header.Set(DefaultIdentityHeader, "alice@example.com")

	rec := doRequest(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		OK     bool   `json:"ok"`
		Result Result `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Result.Slug != "fix-a" || resp.Result.Replaced {
		t.Errorf("resp = %+v", resp)
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
}

func TestHandlerBadJSON(t *testing.T) {
	h, store := newTestHandler(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	rec := doRequest(h, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestHandlerMissingFix(t *testing.T) {
	h, _ := newTestHandler(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"source":"builder"}`))

	rec := doRequest(h, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerValidationFailureNeverWrites(t *testing.T) {
	h, store := newTestHandler(t, Config{})
	bad := validFix("fix-a")
	bad["severity"] = "Catastrophic"
	req := httptest.NewRequest(http.MethodPost, "/", publishBody(t, bad))

	rec := doRequest(h, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Code   string   `json:"code"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "validation" || len(resp.Issues) == 0 {
		t.Errorf("resp = %+v", resp)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestHandlerRequireIdentity(t *testing.T) {
	h, store := newTestHandler(t, Config{RequireIdentity: true})

	req := httptest.NewRequest(http.MethodPost, "/", publishBody(t, validFix("fix-a")))
	rec := doRequest(h, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}

	req = httptest.NewRequest(http.MethodPost, "/", publishBody(t, validFix("fix-a")))
	req.Header.Set(DefaultIdentityHeader, "alice@example.com")
	if rec := doRequest(h, req); rec.Code != http.StatusOK {
		t.Errorf("status with identity = %d, want 200", rec.Code)
	}
}

func TestHandlerAllowedUsers(t *testing.T) {
	h, _ := newTestHandler(t, Config{
		RequireIdentity: true,
		AllowedUsers:    []string{"alice@example.com"},
	})

	req := httptest.NewRequest(http.MethodPost, "/", publishBody(t, validFix("fix-a")))
	req.Header.Set(DefaultIdentityHeader, "mallory@example.com")
	if rec := doRequest(h, req); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", publishBody(t, validFix("fix-a")))
	req.Header.Set(DefaultIdentityHeader, "Alice@Example.com")
	if rec := doRequest(h, req); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (case-insensitive match)", rec.Code)
	}
}

func TestHandlerConflictMapsTo409(t *testing.T) {
	store := docstore.NewMemory()
	racing := &racingStore{Memory: store, svc: NewService(store, testutil.DiscardLogger())}
	h := NewHandler(NewService(racing, testutil.DiscardLogger()), Config{}, testutil.DiscardLogger())

	req := httptest.NewRequest(http.MethodPost, "/", publishBody(t, validFix("fix-a")))
	rec := doRequest(h, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "conflict" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestHandlerStatus(t *testing.T) {
	h, store := newTestHandler(t, Config{
		Path:            "/publish",
		RequireIdentity: true,
		AllowedUsers:    []string{"alice@example.com"},
	})

	// The status check answers 200 even without an identity: it reports
	// configuration, it does not gate.
	rec := doRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Service         string `json:"service"`
		Path            string `json:"path"`
		RequireIdentity bool   `json:"requireIdentity"`
		Restricted      bool   `json:"restricted"`
		Identity        string `json:"identity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Service != "fixport-publish" || resp.Path != "/publish" {
		t.Errorf("resp = %+v", resp)
	}
	if !resp.RequireIdentity || !resp.Restricted {
		t.Errorf("gating flags = %+v", resp)
	}
	if resp.Identity != "" {
		t.Errorf("identity = %q, want empty", resp.Identity)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultIdentityHeader, "alice@example.com")
	rec = doRequest(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with identity = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Identity != "alice@example.com" {
		t.Errorf("identity = %q", resp.Identity)
	}
}

func TestHandlerCORS(t *testing.T) {
	t.Run("empty allow-list reflects any origin", func(t *testing.T) {
		h, _ := newTestHandler(t, Config{})
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://portal.example.com")

		rec := doRequest(h, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.com" {
			t.Errorf("allow-origin = %q", got)
		}
	})

	t.Run("listed origin allowed, others not", func(t *testing.T) {
		h, _ := newTestHandler(t, Config{AllowedOrigins: []string{"https://portal.example.com"}})

		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://portal.example.com")
		rec := doRequest(h, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.com" {
			t.Errorf("allow-origin = %q", got)
		}

		req = httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = doRequest(h, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("allow-origin = %q, want empty", got)
		}
		// Caches must not reuse an allowed-origin response here.
		if got := rec.Header().Get("Vary"); got != "Origin" {
			t.Errorf("Vary = %q, want Origin", got)
		}
	})
}
