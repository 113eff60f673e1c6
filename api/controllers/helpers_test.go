package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/amaiabotanic/storefront/api/middleware"
	"github.com/amaiabotanic/storefront/internal/cart"
	"github.com/amaiabotanic/storefront/internal/catalog"
	"github.com/amaiabotanic/storefront/internal/checkout"
	"github.com/amaiabotanic/storefront/internal/notifications"
)

type harness struct {
	sessions *cart.Sessions
	catalog  *catalog.CachedClient
	feeds    *notifications.Feeds
	registry *checkout.Registry
	shipping checkout.ShippingPolicy
}

func newHarness(t *testing.T, gateway checkout.Gateway) *harness {
	t.Helper()
	feeds := notifications.NewFeeds()
	if gateway == nil {
		gateway = checkout.NewSimulatedGateway(checkout.WithDelay(0))
	}
	registry := checkout.NewRegistry(checkout.Params{Gateway: gateway}, func(sessionID string) checkout.Notifier {
		return feeds.For(sessionID)
	})
	sessions := cart.NewSessions(cart.NewMemoryStorage(),
		cart.WithEndHook(registry.Forget),
		cart.WithEndHook(feeds.Remove),
	)
	t.Cleanup(func() { _ = sessions.Close() })
	return &harness{
		sessions: sessions,
		catalog:  catalog.NewCachedClient(catalog.NewMockClient()),
		feeds:    feeds,
		registry: registry,
		shipping: checkout.DefaultShippingPolicy(),
	}
}

func (h *harness) addItem(t *testing.T, sessionID, handle string, qty int) {
	t.Helper()
	body := map[string]any{"handle": handle, "quantity": qty}
	resp := serve(CartAddItem(h.sessions, h.catalog, h.feeds, h.shipping, nil), newJSONRequest(t, http.MethodPost, "/api/v1/cart/items", body, sessionID))
	if resp.Code != http.StatusCreated {
		t.Fatalf("add %s: expected 201 got %d: %s", handle, resp.Code, resp.Body.String())
	}
}

func newJSONRequest(t *testing.T, method, target string, body any, sessionID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if sessionID != "" {
		req = req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
	}
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, url.PathEscape(value))
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return envelope
}
