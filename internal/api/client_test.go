package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck/flashdeck-cli/internal/auth"
	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, serverURL string) (*Client, *auth.Manager, auth.ExpiryBus) {
	t.Helper()
	bus := auth.NewExpiryBus(testLogger())
	t.Cleanup(func() { bus.Close() })
	manager := auth.NewManager(storage.NewMemoryStore(), bus, testLogger())
	client := NewClient(serverURL, 5*time.Second, manager, testLogger())
	return client, manager, bus
}

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(models.Me{ID: 1, Email: "a@b.com"})
	}))
	defer server.Close()

	client, manager, _ := newTestClient(t, server.URL)
	require.NoError(t, manager.SetTokens("access-1", "refresh-1"))

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(1), me.ID)
	assert.Equal(t, "Bearer access-1", gotAuth)
}

// A 401 triggers exactly one refresh followed by one retry carrying the new
// access token.
func TestClientRefreshAndRetry(t *testing.T) {
	var meCalls, refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
			return
		}
		json.NewEncoder(w).Encode(models.Me{ID: 1, Email: "a@b.com"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh_token"])
		json.NewEncoder(w).Encode(models.Token{
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			TokenType:    "bearer",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, manager, _ := newTestClient(t, server.URL)
	require.NoError(t, manager.SetTokens("stale-access", "refresh-1"))

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(1), me.ID)

	assert.Equal(t, int32(2), meCalls.Load(), "original call plus one retry")
	assert.Equal(t, int32(1), refreshCalls.Load())

	access, refresh := manager.Tokens()
	assert.Equal(t, "access-2", access)
	assert.Equal(t, "refresh-2", refresh)
}

// When the refresh itself is declined there is no retry, the caller gets a
// 401, and exactly one expiry event goes out on the bus.
func TestClientFailedRefreshSignalsExpiry(t *testing.T) {
	var meCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		meCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid refresh token"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, manager, bus := newTestClient(t, server.URL)
	require.NoError(t, manager.SetTokens("stale-access", "stale-refresh"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	_, err = client.Me(ctx)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, int32(1), meCalls.Load(), "no retry when the refresh fails")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Could not validate credentials", apiErr.Detail,
		"the original 401 detail is surfaced, not a synthetic one")

	select {
	case msg := <-events:
		event, err := auth.DecodeExpiredEvent(msg)
		require.NoError(t, err)
		assert.Equal(t, "token refresh failed", event.Reason)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("expected an expiry event on the bus")
	}

	select {
	case msg := <-events:
		t.Fatalf("unexpected second expiry event: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}

// Without a stored refresh token the guard gives up immediately.
func TestClientNoRefreshTokenFailsFast(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, _, _ := newTestClient(t, server.URL)

	_, err := client.Me(context.Background())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestClientErrorDetailExtraction(t *testing.T) {
	t.Run("json detail string", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"detail": "This deck is private"})
		}))
		defer server.Close()

		client, manager, _ := newTestClient(t, server.URL)
		require.NoError(t, manager.SetTokens("a", "r"))

		_, err := client.GetDeck(context.Background(), 5)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Equal(t, "This deck is private", apiErr.Detail)
	})

	t.Run("plain text body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream exploded\n")
		}))
		defer server.Close()

		client, manager, _ := newTestClient(t, server.URL)
		require.NoError(t, manager.SetTokens("a", "r"))

		_, err := client.GetDeck(context.Background(), 5)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "upstream exploded", apiErr.Detail)
	})
}

func TestLoginSendsPasswordGrantForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "a@b.com", r.PostFormValue("username"))
		assert.Equal(t, "hunter22", r.PostFormValue("password"))
		assert.Equal(t, "password", r.PostFormValue("grant_type"))
		json.NewEncoder(w).Encode(models.Token{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"})
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server.URL)
	token, err := client.Login(context.Background(), "a@b.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "a", token.AccessToken)
}

// SubmitAnswer must sanitize the free-text answer and carry the session id
// in the query string.
func TestSubmitAnswerSanitizesAndTargetsSession(t *testing.T) {
	var got models.TestAnswerSubmit
	var gotSession string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.URL.Query().Get("session_id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, manager, _ := newTestClient(t, server.URL)
	require.NoError(t, manager.SetTokens("a", "r"))

	seconds := 4
	err := client.SubmitAnswer(context.Background(), "sess-9", models.TestAnswerSubmit{
		CardID:     3,
		UserAnswer: `it's "fine" -- really`,
		TimeTaken:  &seconds,
	})
	require.NoError(t, err)

	assert.Equal(t, "sess-9", gotSession)
	assert.Equal(t, uint(3), got.CardID)
	assert.Equal(t, "it’s ”fine” — really", got.UserAnswer)
	require.NotNil(t, got.TimeTaken)
	assert.Equal(t, 4, *got.TimeTaken)
}

func TestStartTestClampsBudget(t *testing.T) {
	var got models.TestSessionCreate
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(models.TestSessionStarted{SessionID: "sess-1"})
	}))
	defer server.Close()

	client, manager, _ := newTestClient(t, server.URL)
	require.NoError(t, manager.SetTokens("a", "r"))

	started, err := client.StartTest(context.Background(), models.TestSessionCreate{DeckID: 1, PerCardSeconds: 1})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", started.SessionID)
	assert.Equal(t, models.MinPerCardSeconds, got.PerCardSeconds)
}
