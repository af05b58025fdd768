package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
)

type fakeAuthAPI struct {
	loginCalls    int
	registerCalls int
	logoutCalls   int
	loginErr      error
	registerErr   error
	logoutErr     error
	token         models.Token
}

func (f *fakeAuthAPI) Login(_ context.Context, _, _ string) (*models.Token, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	token := f.token
	return &token, nil
}

func (f *fakeAuthAPI) Register(_ context.Context, _ models.Credentials) error {
	f.registerCalls++
	return f.registerErr
}

func (f *fakeAuthAPI) Refresh(_ context.Context, _ string) (*models.Token, error) {
	return nil, errors.New("not used")
}

func (f *fakeAuthAPI) Logout(_ context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func newTestManager(t *testing.T) (*Manager, ExpiryBus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewExpiryBus(logger)
	t.Cleanup(func() { bus.Close() })
	return NewManager(storage.NewMemoryStore(), bus, logger), bus
}

func TestManagerTokenLifecycle(t *testing.T) {
	manager, _ := newTestManager(t)

	assert.False(t, manager.IsAuthenticated())

	require.NoError(t, manager.SetTokens("a1", "r1"))
	assert.True(t, manager.IsAuthenticated())
	access, refresh := manager.Tokens()
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)

	// A refresh that returns only an access token keeps the stored refresh
	// token.
	require.NoError(t, manager.SetTokens("a2", ""))
	access, refresh = manager.Tokens()
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh)

	require.NoError(t, manager.Clear())
	assert.False(t, manager.IsAuthenticated())
}

func TestManagerLogin(t *testing.T) {
	manager, _ := newTestManager(t)
	api := &fakeAuthAPI{token: models.Token{AccessToken: "a", RefreshToken: "r"}}

	require.NoError(t, manager.Login(context.Background(), api, "a@b.com", "pw"))
	assert.True(t, manager.IsAuthenticated())

	t.Run("failed login stores nothing", func(t *testing.T) {
		manager, _ := newTestManager(t)
		api := &fakeAuthAPI{loginErr: errors.New("bad credentials")}
		require.Error(t, manager.Login(context.Background(), api, "a@b.com", "pw"))
		assert.False(t, manager.IsAuthenticated())
	})
}

// Register creates the account and then logs in with the same credentials.
func TestManagerRegisterAutoLogin(t *testing.T) {
	manager, _ := newTestManager(t)
	api := &fakeAuthAPI{token: models.Token{AccessToken: "a", RefreshToken: "r"}}

	creds := models.Credentials{Email: "a@b.com", Password: "longpassword"}
	require.NoError(t, manager.Register(context.Background(), api, creds))
	assert.Equal(t, 1, api.registerCalls)
	assert.Equal(t, 1, api.loginCalls)
	assert.True(t, manager.IsAuthenticated())

	t.Run("failed registration skips login", func(t *testing.T) {
		manager, _ := newTestManager(t)
		api := &fakeAuthAPI{registerErr: errors.New("email taken")}
		require.Error(t, manager.Register(context.Background(), api, creds))
		assert.Equal(t, 0, api.loginCalls)
	})
}

// Local state clears even when the server-side logout fails.
func TestManagerLogoutAlwaysClears(t *testing.T) {
	manager, _ := newTestManager(t)
	require.NoError(t, manager.SetTokens("a", "r"))

	api := &fakeAuthAPI{logoutErr: errors.New("server unreachable")}
	require.NoError(t, manager.Logout(context.Background(), api))
	assert.Equal(t, 1, api.logoutCalls)
	assert.False(t, manager.IsAuthenticated())
}

func TestNotifyExpiredReachesSubscribers(t *testing.T) {
	manager, bus := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	manager.NotifyExpired(ctx, "refresh declined")

	select {
	case msg := <-events:
		event, err := DecodeExpiredEvent(msg)
		require.NoError(t, err)
		assert.Equal(t, "refresh declined", event.Reason)
		assert.WithinDuration(t, time.Now(), event.Timestamp, 5*time.Second)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("expected expiry event")
	}
}
