package authflow_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/api/apitest"
	"github.com/ideafeed/ideafeed-cli/internal/authflow"
	"github.com/ideafeed/ideafeed-cli/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*api.Client, *state.Store, *apitest.Server) {
	t.Helper()

	s := apitest.NewServer(t)
	store, err := state.New("")
	require.NoError(t, err)

	return api.New(s.URL(), store, api.WithNavigator(&apitest.Navigator{})), store, s
}

func postCallback(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginCompletesOnCallback(t *testing.T) {
	client, store, _ := newClient(t)

	urls := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- authflow.Login(context.Background(), client, authflow.Options{
			Timeout: 10 * time.Second,
			Prompt:  func(callbackURL string) { urls <- callbackURL },
		})
	}()

	callbackURL := <-urls
	resp := postCallback(t, callbackURL, `{"id_token":"google-token"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, <-done)
	assert.True(t, client.IsAuthenticated())

	tokens := store.Tokens()
	require.NotNil(t, tokens)
	assert.Equal(t, "access-1", tokens.AccessToken)
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	client, _, _ := newClient(t)

	urls := make(chan string, 1)
	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		done <- authflow.Login(ctx, client, authflow.Options{
			Timeout: 10 * time.Second,
			Prompt:  func(callbackURL string) { urls <- callbackURL },
		})
	}()

	callbackURL := <-urls
	resp := postCallback(t, callbackURL, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, client.IsAuthenticated(), "a rejected callback must not sign in")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLoginTimeout(t *testing.T) {
	client, _, _ := newClient(t)

	err := authflow.Login(context.Background(), client, authflow.Options{
		Timeout: 20 * time.Millisecond,
		Prompt:  func(string) {},
	})
	assert.ErrorIs(t, err, authflow.ErrFlowTimeout)
}

func TestLoginContextCancellation(t *testing.T) {
	client, _, _ := newClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := authflow.Login(ctx, client, authflow.Options{
		Timeout: 10 * time.Second,
		Prompt:  func(string) {},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
