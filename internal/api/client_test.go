package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/api/apitest"
	"github.com/ideafeed/ideafeed-cli/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient wires a client to the mock server with a memory-only
// store and a recording navigator.
func newTestClient(t *testing.T, s *apitest.Server, opts ...api.Option) (*api.Client, *state.Store, *apitest.Navigator) {
	t.Helper()

	store, err := state.New("")
	require.NoError(t, err)

	nav := &apitest.Navigator{}
	opts = append([]api.Option{api.WithNavigator(nav)}, opts...)

	return api.New(s.URL(), store, opts...), store, nav
}

// seedSession provisions the store with the credential pair the mock
// server considers valid at startup.
func seedSession(t *testing.T, store *state.Store) {
	t.Helper()
	require.NoError(t, store.SetTokens(state.Tokens{
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
	}))
}

func TestDoAttachesBearerAndGuestID(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	seedSession(t, store)

	var authorization, guestID string
	s.Handle("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		guestID = r.Header.Get("X-Guest-Id")
		apitest.WriteJSON(w, api.User{ID: "u1", Email: "a@b.c"})
	})

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	assert.Equal(t, "Bearer access-0", authorization)
	assert.Equal(t, store.GuestID(), guestID)
}

func TestDoSkipAuthOmitsAuthorization(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	seedSession(t, store)

	var authorization, guestID string
	s.Handle("GET /api/plans", func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		guestID = r.Header.Get("X-Guest-Id")
		apitest.WriteJSON(w, []api.Plan{{ID: "free"}})
	})

	plans, err := c.Plans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)

	assert.Empty(t, authorization, "plan catalog requests must not carry credentials")
	assert.Equal(t, store.GuestID(), guestID, "the guest id rides along even without auth")
}

func TestDoConcurrent401sShareOneRefresh(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	seedSession(t, store)

	s.HandleAuthed("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, api.User{ID: "u1"})
	})

	// invalidate the access token and slow the refresh endpoint down
	// so every in-flight 401 piles onto the same exchange
	s.ExpireAccess()
	s.SetRefreshDelay(50 * time.Millisecond)

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Me(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), s.RefreshRequests.Load(),
		"concurrent 401s must share a single refresh exchange")

	tokens := store.Tokens()
	require.NotNil(t, tokens)
	assert.Equal(t, "access-1", tokens.AccessToken)
	assert.Equal(t, "refresh-1", tokens.RefreshToken)
}

func TestDoRetriesExactlyOnce(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, nav := newTestClient(t, s)
	seedSession(t, store)

	// the route rejects every request, including the retried one
	var hits atomic.Int32
	s.Handle("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, api.ErrAuthExpired)

	assert.Equal(t, int32(2), hits.Load(), "one original request plus one retry")
	assert.Equal(t, int32(1), s.RefreshRequests.Load())
	assert.Nil(t, store.Tokens(), "a 401 after a successful refresh forces logout")
	assert.Equal(t, []string{"/login?next=%2Fapi%2Fme"}, nav.Paths())
}

func TestDoRefreshFailureForcesLogout(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, nav := newTestClient(t, s)
	seedSession(t, store)

	s.HandleAuthed("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, api.User{ID: "u1"})
	})
	s.ExpireAccess()
	s.SetRefreshStatus(http.StatusUnauthorized)

	var notified atomic.Int32
	unsubscribe := c.Subscribe(func() { notified.Add(1) })
	defer unsubscribe()

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, api.ErrAuthExpired)

	assert.Nil(t, store.Tokens())
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, int32(1), notified.Load(), "observers hear about the forced logout once")
	assert.Equal(t, []string{"/login?next=%2Fapi%2Fme"}, nav.Paths())
}

func TestDoLoggedOut401SkipsRefresh(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, nav := newTestClient(t, s)

	s.HandleAuthed("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, api.User{ID: "u1"})
	})

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, api.ErrAuthExpired)

	assert.Equal(t, int32(0), s.RefreshRequests.Load(),
		"no refresh token, no refresh attempt")
	assert.Nil(t, store.Tokens())
	assert.Equal(t, []string{"/login?next=%2Fapi%2Fme"}, nav.Paths())
}

func TestDoRefreshRecoversFromRefreshTokenOnly(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	require.NoError(t, store.SetTokens(state.Tokens{RefreshToken: "refresh-0"}))

	var lastAuthorization string
	s.HandleAuthed("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		lastAuthorization = r.Header.Get("Authorization")
		apitest.WriteJSON(w, api.User{ID: "u1"})
	})

	assert.False(t, c.IsAuthenticated(), "a bare refresh token is not an authenticated session")

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, int32(1), s.RefreshRequests.Load())
	assert.Equal(t, "Bearer access-1", lastAuthorization,
		"the retried request carries the refreshed access token")
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := apitest.NewServer(t)
	c, _, _ := newTestClient(t, s)

	var notified atomic.Int32
	unsubscribe := c.Subscribe(func() { notified.Add(1) })

	require.NoError(t, c.Login(context.Background(), "a@b.c", "pw"))
	assert.Equal(t, int32(1), notified.Load())

	unsubscribe()

	require.NoError(t, c.Logout())
	assert.Equal(t, int32(1), notified.Load(), "unsubscribed observers stay silent")
}

func TestSubscribeObserverPanicIsContained(t *testing.T) {
	s := apitest.NewServer(t)
	c, _, _ := newTestClient(t, s)

	c.Subscribe(func() { panic("observer bug") })

	var notified atomic.Int32
	c.Subscribe(func() { notified.Add(1) })

	require.NoError(t, c.Login(context.Background(), "a@b.c", "pw"))
	assert.Equal(t, int32(1), notified.Load(), "a panicking observer must not starve the rest")
}

func TestDoAbsoluteURLBypassesBase(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	seedSession(t, store)

	var hits atomic.Int32
	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer external.Close()

	resp, err := c.Get(context.Background(), external.URL+"/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDoErrorEnvelope(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	seedSession(t, store)

	s.Handle("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteError(w, http.StatusInternalServerError, "database on fire")
	})

	_, err := c.Products(context.Background())

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database on fire", apiErr.Message)
}

func TestGetFeedSendsGuestIDQuery(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	seedSession(t, store)

	var guestQuery string
	s.Handle("GET /api/feeds/f1", func(w http.ResponseWriter, r *http.Request) {
		guestQuery = r.URL.Query().Get("guest_id")
		apitest.WriteJSON(w, api.Feed{ID: "f1", Status: "complete"})
	})

	feed, err := c.GetFeed(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "complete", feed.Status)
	assert.Equal(t, store.GuestID(), guestQuery)
}

func TestDoCancelledContext(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s)
	seedSession(t, store)

	s.Handle("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, api.User{ID: "u1"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Me(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
