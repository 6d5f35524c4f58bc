package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoniarena/sokoni/internal/listings"
	"github.com/sokoniarena/sokoni/internal/model"
)

func price(v float64) *float64 { return &v }

func newTestServer() (*Server, *listings.MemoryFetcher) {
	fetcher := listings.NewMemoryFetcher([]model.Listing{
		{ID: "e1", Type: model.ListingEvent, Title: "Jazz Night", Category: "Music & Concerts", Price: price(1500)},
		{ID: "s1", Type: model.ListingService, Title: "Plumbing", Category: "Home Services", Rating: 4.5},
	})
	hook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return New(Options{Listings: fetcher, EmailHook: hook}), fetcher
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer()
	rec, body := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestListings(t *testing.T) {
	s, _ := newTestServer()

	rec, body := get(t, s.Handler(), "/api/listings?type=events&q=jazz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "grid", body["state"])
	assert.Equal(t, "Showing 1 events", body["summary"])
	cards := body["cards"].([]any)
	require.Len(t, cards, 1)
	assert.Equal(t, "KES 1,500", cards[0].(map[string]any)["price"])

	rec, body = get(t, s.Handler(), "/api/listings?type=service&category=Technology")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "empty", body["state"])
	assert.Equal(t, "No services found matching your criteria.", body["message"])

	rec, body = get(t, s.Handler(), "/api/listings?type=service&sort=rating")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Showing 1 services", body["summary"])
}

func TestListings_BadRequests(t *testing.T) {
	s, _ := newTestServer()

	rec, _ := get(t, s.Handler(), "/api/listings?type=product")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, s.Handler(), "/api/listings?type=events&sort=rating")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListings_FetchError(t *testing.T) {
	s, fetcher := newTestServer()
	fetcher.SetError(errors.New("offline"))

	rec, body := get(t, s.Handler(), "/api/listings")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "error", body["state"])
	assert.Equal(t, "Error loading events: offline", body["message"])
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/send-email", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec, _ = get(t, s.Handler(), "/auth/callback")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
