package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token available")
)

// AuthAPI is the slice of the backend surface the manager orchestrates.
// The HTTP client implements it; tests substitute a fake.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.Token, error)
	Register(ctx context.Context, creds models.Credentials) error
	Refresh(ctx context.Context, refreshToken string) (*models.Token, error)
	Logout(ctx context.Context) error
}

// Manager owns client-side authentication state: the persisted token pair
// and the process-wide expiry signal. It is constructed once at startup and
// passed by reference; there is no package-level singleton.
type Manager struct {
	store  storage.Store
	bus    ExpiryBus
	logger *slog.Logger
}

func NewManager(store storage.Store, bus ExpiryBus, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// Tokens reads the persisted pair fresh from the store. Either value may be
// empty when the user is logged out.
func (m *Manager) Tokens() (access, refresh string) {
	access, _, _ = m.store.Get(storage.KeyAccessToken)
	refresh, _, _ = m.store.Get(storage.KeyRefreshToken)
	return access, refresh
}

// IsAuthenticated reports whether both tokens are present locally. It says
// nothing about server-side validity.
func (m *Manager) IsAuthenticated() bool {
	access, refresh := m.Tokens()
	return access != "" && refresh != ""
}

// SetTokens persists a token pair. Empty fields keep the stored value, since
// some servers return only a fresh access token on refresh.
func (m *Manager) SetTokens(access, refresh string) error {
	if access != "" {
		if err := m.store.Set(storage.KeyAccessToken, access); err != nil {
			return fmt.Errorf("failed to persist access token: %w", err)
		}
	}
	if refresh != "" {
		if err := m.store.Set(storage.KeyRefreshToken, refresh); err != nil {
			return fmt.Errorf("failed to persist refresh token: %w", err)
		}
	}
	return nil
}

// Clear drops both tokens.
func (m *Manager) Clear() error {
	if err := m.store.Delete(storage.KeyAccessToken); err != nil {
		return err
	}
	return m.store.Delete(storage.KeyRefreshToken)
}

// NotifyExpired broadcasts the process-wide expiry signal.
func (m *Manager) NotifyExpired(ctx context.Context, reason string) {
	if err := m.bus.PublishExpired(ctx, reason); err != nil {
		m.logger.Error("Failed to broadcast auth expiry", "error", err)
	}
}

// Bus exposes the expiry bus for subscribers (the CLI shell).
func (m *Manager) Bus() ExpiryBus {
	return m.bus
}

// Login authenticates against the backend and persists the returned pair.
func (m *Manager) Login(ctx context.Context, api AuthAPI, email, password string) error {
	token, err := api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := m.SetTokens(token.AccessToken, token.RefreshToken); err != nil {
		return err
	}
	m.logger.Info("Logged in", "email", email)
	return nil
}

// Register creates the account, then logs in with the same credentials.
func (m *Manager) Register(ctx context.Context, api AuthAPI, creds models.Credentials) error {
	if err := api.Register(ctx, creds); err != nil {
		return err
	}
	return m.Login(ctx, api, creds.Email, creds.Password)
}

// Logout invalidates the server session best-effort and always clears local
// state.
func (m *Manager) Logout(ctx context.Context, api AuthAPI) error {
	if err := api.Logout(ctx); err != nil {
		m.logger.Warn("Server-side logout failed", "error", err)
	}
	return m.Clear()
}
