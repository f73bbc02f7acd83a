package api_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/api/apitest"
	"github.com/ideafeed/ideafeed-cli/internal/config"
	"github.com/ideafeed/ideafeed-cli/internal/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolls shrinks every watch interval so the tests run in
// milliseconds rather than minutes.
func fastPolls() api.Option {
	return api.WithPollConfig(config.PollConfig{
		FeedIntervalMillis:    1,
		ArticleIntervalMillis: 1,
		MemeIntervalMillis:    1,
		SlopIntervalMillis:    1,
	})
}

func TestGenerateArticlePollsUntilReady(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s, fastPolls())
	seedSession(t, store)

	s.Handle("POST /api/articles", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, map[string]string{"article_id": "a1", "status": "generating"})
	})

	var fetches atomic.Int32
	s.Handle("GET /api/articles/a1", func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) < 3 {
			apitest.WriteJSON(w, api.Article{ID: "a1", Status: "generating"})
			return
		}
		apitest.WriteJSON(w, api.Article{
			ID:        "a1",
			Title:     "Launch notes",
			ContentMD: "# Launch notes",
			Status:    "ready",
		})
	})

	var snapshots []poll.Snapshot[api.Article]
	observe := func(snap poll.Snapshot[api.Article]) {
		snapshots = append(snapshots, snap)
	}

	article, err := c.GenerateArticle(context.Background(), "sugg-1", observe)
	require.NoError(t, err)

	assert.Equal(t, "Launch notes", article.Title)
	assert.Equal(t, int32(3), fetches.Load())

	require.NotEmpty(t, snapshots)
	assert.True(t, snapshots[0].Loading)
	last := snapshots[len(snapshots)-1]
	assert.False(t, last.Loading)
	assert.Equal(t, poll.StatusReady, last.Status)
}

func TestGenerateMemeQuotaStopsBeforePolling(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, nav := newTestClient(t, s, fastPolls())
	seedSession(t, store)

	s.Handle("POST /api/memes", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteError(w, http.StatusPaymentRequired, "daily limit reached")
	})

	var statusFetches atomic.Int32
	s.Handle("GET /api/memes/{id}", func(w http.ResponseWriter, r *http.Request) {
		statusFetches.Add(1)
		apitest.WriteJSON(w, api.Meme{Status: "generating"})
	})

	_, err := c.GenerateMeme(context.Background(), "sugg-1", nil)

	var quota *api.QuotaError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, "daily limit reached", quota.Reason)

	assert.Equal(t, int32(0), statusFetches.Load(), "a quota refusal must not start a poll")
	assert.Equal(t, []string{"/pricing?reason=daily+limit+reached"}, nav.Paths())
}

func TestWatchFeedPartialReadyIsTerminal(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s, fastPolls())
	seedSession(t, store)

	var fetches atomic.Int32
	s.Handle("GET /api/feeds/f1", func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) < 2 {
			apitest.WriteJSON(w, api.Feed{ID: "f1", Status: "running"})
			return
		}
		apitest.WriteJSON(w, api.Feed{
			ID:      "f1",
			Status:  "partial_ready",
			Partial: true,
		})
	})

	feed, err := c.WatchFeed(context.Background(), "f1", nil)
	require.NoError(t, err)

	assert.Equal(t, "partial_ready", feed.Status)
	assert.True(t, feed.Partial)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestWatchSlopFailureCarriesServerMessage(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s, fastPolls())
	seedSession(t, store)

	s.Handle("GET /api/slops/s1", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, api.Slop{ID: "s1", Status: "failed", Error: "render exploded"})
	})

	_, err := c.WatchSlop(context.Background(), "s1", nil)

	var failed *poll.FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "render exploded", failed.Message)
}

func TestWatchMemeCancellation(t *testing.T) {
	s := apitest.NewServer(t)
	c, store, _ := newTestClient(t, s, fastPolls())
	seedSession(t, store)

	s.Handle("GET /api/memes/m1", func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, api.Meme{ID: "m1", Status: "generating"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.WatchMeme(ctx, "m1", nil)
	require.ErrorIs(t, err, context.Canceled)
}
