package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/api/apitest"
	"github.com/ideafeed/ideafeed-cli/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()

	s := apitest.NewServer(t)
	store, err := state.New("")
	require.NoError(t, err)
	require.NoError(t, store.SetTokens(state.Tokens{
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
	}))

	return api.New(s.URL(), store, api.WithNavigator(&apitest.Navigator{})), s
}

func TestDispatchUnknownCommand(t *testing.T) {
	client, _ := testClient(t)

	err := dispatch(context.Background(), client, []string{"frobnicate"})
	assert.ErrorContains(t, err, "unknown command")
}

func TestDispatchRequiresCommand(t *testing.T) {
	client, _ := testClient(t)

	err := dispatch(context.Background(), client, nil)
	assert.Error(t, err)
}

func TestDispatchFeedShow(t *testing.T) {
	client, s := testClient(t)

	s.Handle("GET /api/feeds/f1", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, api.Feed{
			ID:     "f1",
			Status: "complete",
			Suggestions: []api.Suggestion{
				{ID: "s1", Kind: "article", Text: "Write about onboarding"},
			},
		})
	})

	err := dispatch(context.Background(), client, []string{"feed-show", "f1"})
	assert.NoError(t, err)
}

func TestDispatchCommandFlagValidation(t *testing.T) {
	client, _ := testClient(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "login without flags", args: []string{"login"}},
		{name: "feed-start without product", args: []string{"feed-start"}},
		{name: "article-save without edits", args: []string{"article-save", "a1"}},
		{name: "meme-image without output", args: []string{"meme-image", "m1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dispatch(context.Background(), client, tt.args)
			assert.Error(t, err)
		})
	}
}

func TestFormatLimit(t *testing.T) {
	assert.Equal(t, "unlimited", formatLimit(-1))
	assert.Equal(t, "0", formatLimit(0))
	assert.Equal(t, "25", formatLimit(25))
}
