package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/api/apitest"
	"github.com/ideafeed/ideafeed-cli/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStoresPair(t *testing.T) {
	tests := []struct {
		name  string
		login func(c *api.Client) error
	}{
		{
			name: "password",
			login: func(c *api.Client) error {
				return c.Login(context.Background(), "a@b.c", "pw")
			},
		},
		{
			name: "register",
			login: func(c *api.Client) error {
				return c.Register(context.Background(), "Ada", "a@b.c", "pw")
			},
		},
		{
			name: "google",
			login: func(c *api.Client) error {
				return c.LoginWithGoogle(context.Background(), "google-id-token")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := apitest.NewServer(t)
			c, store, _ := newTestClient(t, s)

			require.False(t, c.IsAuthenticated())
			require.NoError(t, tc.login(c))

			tokens := store.Tokens()
			require.NotNil(t, tokens)
			assert.Equal(t, "access-1", tokens.AccessToken)
			assert.Equal(t, "refresh-1", tokens.RefreshToken)
			assert.True(t, c.IsAuthenticated())
		})
	}
}

func TestLogout(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, nav := newTestClient(t, s)
	seedSession(t, store)

	require.NoError(t, c.Logout())

	assert.Nil(t, store.Tokens())
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, []string{"/login?next=%2F"}, nav.Paths(),
		"logout lands on the login page exactly once")
}

func TestAccessTokenExpiry(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)

	_, ok := c.AccessTokenExpiry()
	assert.False(t, ok, "no token held")

	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	require.NoError(t, store.SetTokens(state.Tokens{AccessToken: signed, RefreshToken: "r"}))

	got, ok := c.AccessTokenExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp), "expiry should round-trip through the exp claim")
}

func TestAccessTokenExpiryOpaqueToken(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)

	require.NoError(t, store.SetTokens(state.Tokens{AccessToken: "not-a-jwt"}))

	_, ok := c.AccessTokenExpiry()
	assert.False(t, ok)
}
