package api

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/ideafeed/ideafeed-cli/internal/state"
	"github.com/rs/zerolog/log"
)

// Login authenticates with email and password, storing the returned
// credential pair on success.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.obtainTokens(ctx, "/api/login", body)
}

// Register creates an account and stores the returned credential pair.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.obtainTokens(ctx, "/api/register", body)
}

// LoginWithGoogle exchanges a Google ID token for a credential pair.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) error {
	body := map[string]string{"idToken": idToken}
	return c.obtainTokens(ctx, "/api/login_with_google", body)
}

func (c *Client) obtainTokens(ctx context.Context, path string, body any) error {
	var pair state.Tokens
	err := c.postJSON(ctx, path, body, &pair, SkipAuth())
	if err != nil {
		return err
	}
	if pair.AccessToken == "" {
		return fmt.Errorf("login response carried no access token")
	}

	if err := c.store.SetTokens(pair); err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}
	c.notifyAuthChange()
	return nil
}

// Logout clears the stored credential pair, notifies observers, and
// sends the navigator to the login page.
func (c *Client) Logout() error {
	if err := c.store.ClearTokens(); err != nil {
		return fmt.Errorf("clearing tokens: %w", err)
	}
	c.notifyAuthChange()
	c.navigator.Navigate(loginURL("/"))
	return nil
}

// Me fetches the authenticated account.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.getJSON(ctx, "/api/me", &user)
	return user, err
}

// AccessTokenExpiry reports when the held access token expires, parsed
// from its exp claim without signature verification (the server remains
// the authority; this is informational only). Returns false when no
// token is held or the token carries no expiry.
func (c *Client) AccessTokenExpiry() (time.Time, bool) {
	tokens := c.store.Tokens()
	if tokens == nil || tokens.AccessToken == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(tokens.AccessToken, &claims)
	if err != nil {
		log.Debug().Err(err).Msg("access token is not a parseable JWT")
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
