package cli

import (
	"context"
	"fmt"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

func (a *App) readCredentials() (string, string, error) {
	email, err := a.prompt("Email: ")
	if err != nil {
		return "", "", err
	}
	password, err := a.prompt("Password: ")
	if err != nil {
		return "", "", err
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password are required")
	}
	return email, password, nil
}

func (a *App) cmdRegister(ctx context.Context, _ []string) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}

	creds := models.Credentials{Email: email, Password: password}
	if err := a.auth.Register(ctx, a.client, creds); err != nil {
		return friendly(err)
	}
	a.printf("Registered and signed in as %s\n", email)
	return nil
}

func (a *App) cmdLogin(ctx context.Context, _ []string) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}

	if err := a.auth.Login(ctx, a.client, email, password); err != nil {
		return friendly(err)
	}
	a.printf("Signed in as %s\n", email)
	return nil
}

func (a *App) cmdLogout(ctx context.Context) error {
	if err := a.auth.Logout(ctx, a.client); err != nil {
		return friendly(err)
	}
	a.printf("Signed out\n")
	return nil
}

func (a *App) cmdWhoami(ctx context.Context) error {
	if !a.auth.IsAuthenticated() {
		return fmt.Errorf("not signed in")
	}
	me, err := a.client.Me(ctx)
	if err != nil {
		return friendly(err)
	}
	a.printf("%s (user %d)\n", me.Email, me.ID)
	return nil
}
