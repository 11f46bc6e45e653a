package scripthub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/auth"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
)

// fakeAPI is a minimal licensing API: a refresh endpoint that rotates pairs
// and a licenses endpoint that checks the bearer token.
type fakeAPI struct {
	jwt *auth.JWTService

	mu           sync.Mutex
	refreshCalls int32
	validToken   string
	refreshToken string
}

func newFakeAPI(t *testing.T, clk clock.Clock) *fakeAPI {
	t.Helper()

	api := &fakeAPI{jwt: auth.NewJWTService("test-secret", 15, 7, 5, clk)}
	pair, err := api.jwt.Generate("usr_1", "sess_1")
	require.NoError(t, err)
	api.validToken = pair.AccessToken
	api.refreshToken = pair.RefreshToken
	return api
}

func (a *fakeAPI) issuedPair(t *testing.T) *auth.TokenPair {
	t.Helper()

	a.mu.Lock()
	defer a.mu.Unlock()
	return &auth.TokenPair{AccessToken: a.validToken, RefreshToken: a.refreshToken}
}

func (a *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&a.refreshCalls, 1)

		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if req.RefreshToken != a.refreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]any{
				"success": false,
				"error":   map[string]string{"type": "session_expired", "message": "refresh token replay"},
			})
			return
		}

		pair, err := a.jwt.Generate("usr_1", "sess_1")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		a.validToken = pair.AccessToken
		a.refreshToken = pair.RefreshToken

		writeJSON(w, map[string]any{
			"success": true,
			"data": map[string]any{
				"access_token":  pair.AccessToken,
				"refresh_token": pair.RefreshToken,
				"expires_in":    pair.ExpiresIn,
			},
		})
	})
	mux.HandleFunc("GET /api/v1/users/me/licenses", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		a.mu.Lock()
		valid := token == a.validToken
		a.mu.Unlock()
		if !valid {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]any{
				"success": false,
				"error":   map[string]string{"type": "token_invalid", "message": "token no longer honored"},
			})
			return
		}

		writeJSON(w, map[string]any{
			"success": true,
			"data": map[string]any{
				"licenses": []map[string]any{{"id": "lic_1", "is_trial": false, "is_active": true}},
			},
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_FreshTokenSkipsRenewal(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	api := newFakeAPI(t, clk)
	server := httptest.NewServer(api.handler(t))
	defer server.Close()

	client := NewClient(server.URL, nil, WithClock(clk), WithRenewalWindow(5))
	require.NoError(t, client.SetTokens(context.Background(),
		api.issuedPair(t).AccessToken, api.issuedPair(t).RefreshToken))

	licenses, err := client.MyLicenses(context.Background())
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	assert.Equal(t, "lic_1", licenses[0].ID)
	assert.Zero(t, atomic.LoadInt32(&api.refreshCalls))
}

func TestClient_ConcurrentCallsShareOneRenewal(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	api := newFakeAPI(t, clk)
	server := httptest.NewServer(api.handler(t))
	defer server.Close()

	client := NewClient(server.URL, nil, WithClock(clk), WithRenewalWindow(5))
	require.NoError(t, client.SetTokens(context.Background(),
		api.issuedPair(t).AccessToken, api.issuedPair(t).RefreshToken))

	// Inside the renewal window: 15m expiry minus 5m window, with 1m to spare.
	clk.Advance(11 * time.Minute)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.MyLicenses(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.refreshCalls),
		"concurrent expiring calls must share one renewal")
}

func TestClient_RetriesOnceAfterUnauthorized(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	api := newFakeAPI(t, clk)
	server := httptest.NewServer(api.handler(t))
	defer server.Close()

	client := NewClient(server.URL, nil, WithClock(clk), WithRenewalWindow(5))
	require.NoError(t, client.SetTokens(context.Background(),
		api.issuedPair(t).AccessToken, api.issuedPair(t).RefreshToken))

	// The server rotates its accepted token out from under the client, so the
	// next call gets a 401 despite the token's claimed expiry.
	api.mu.Lock()
	api.validToken = "rotated-away"
	api.mu.Unlock()

	licenses, err := client.MyLicenses(context.Background())
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.refreshCalls))
}

func TestClient_FailedRenewalTearsSessionDown(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	api := newFakeAPI(t, clk)
	server := httptest.NewServer(api.handler(t))
	defer server.Close()

	store := &memoryTokenStore{}
	client := NewClient(server.URL, store, WithClock(clk), WithRenewalWindow(5))
	require.NoError(t, client.SetTokens(context.Background(),
		api.issuedPair(t).AccessToken, "stale-refresh-token"))

	clk.Advance(20 * time.Minute)

	_, err := client.MyLicenses(context.Background())
	require.Error(t, err)

	stored, loadErr := store.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Nil(t, stored, "failed renewal must clear the persisted pair")

	_, err = client.MyLicenses(context.Background())
	require.Error(t, err, "session is unusable after a failed renewal")
}
