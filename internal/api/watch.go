package api

import (
	"context"
	"time"

	"github.com/ideafeed/ideafeed-cli/internal/config"
	"github.com/ideafeed/ideafeed-cli/internal/poll"
)

// Per-resource polling defaults. Generation times differ by medium:
// memes render in a couple of minutes, videos can take most of twenty.
const (
	feedPollInterval    = 2 * time.Second
	articlePollInterval = 1500 * time.Millisecond
	articlePollAttempts = 600 // ~15 minutes
	memePollInterval    = 1500 * time.Millisecond
	memePollAttempts    = 400 // ~10 minutes
	slopPollInterval    = 2 * time.Second
	slopPollAttempts    = 600 // ~20 minutes
)

type watchIntervals struct {
	feed    time.Duration
	article time.Duration
	meme    time.Duration
	slop    time.Duration
}

func defaultWatchIntervals() watchIntervals {
	return watchIntervals{
		feed:    feedPollInterval,
		article: articlePollInterval,
		meme:    memePollInterval,
		slop:    slopPollInterval,
	}
}

// WithPollConfig applies interval overrides from configuration. Zero
// values keep the per-resource defaults.
func WithPollConfig(cfg config.PollConfig) Option {
	return func(c *Client) {
		if cfg.FeedIntervalMillis > 0 {
			c.intervals.feed = time.Duration(cfg.FeedIntervalMillis) * time.Millisecond
		}
		if cfg.ArticleIntervalMillis > 0 {
			c.intervals.article = time.Duration(cfg.ArticleIntervalMillis) * time.Millisecond
		}
		if cfg.MemeIntervalMillis > 0 {
			c.intervals.meme = time.Duration(cfg.MemeIntervalMillis) * time.Millisecond
		}
		if cfg.SlopIntervalMillis > 0 {
			c.intervals.slop = time.Duration(cfg.SlopIntervalMillis) * time.Millisecond
		}
	}
}

// feedTerminal stops the feed watch once generation is past the active
// states. Feeds settle into partial_ready, complete or failed; unlike
// the item generators there is no attempt ceiling, so the watch runs
// until then or until ctx is cancelled.
func feedTerminal(s poll.Status) bool {
	return s != poll.StatusQueued && s != poll.StatusRunning
}

// WatchFeed polls a feed until generation settles. Observe, when
// non-nil, sees every intermediate snapshot.
func (c *Client) WatchFeed(ctx context.Context, feedID string, observe poll.Observer[Feed]) (Feed, error) {
	cfg := poll.Config{
		Interval: c.intervals.feed,
		Terminal: feedTerminal,
	}
	snap, err := poll.Wait(ctx, cfg, feedID, func(ctx context.Context) (Feed, error) {
		return c.GetFeed(ctx, feedID)
	}, observe)
	return snap.Result, err
}

// WatchArticle polls an article until it is ready or failed.
func (c *Client) WatchArticle(ctx context.Context, articleID string, observe poll.Observer[Article]) (Article, error) {
	cfg := poll.Config{
		Interval:    c.intervals.article,
		MaxAttempts: articlePollAttempts,
	}
	snap, err := poll.Wait(ctx, cfg, articleID, func(ctx context.Context) (Article, error) {
		return c.GetArticle(ctx, articleID)
	}, observe)
	return snap.Result, err
}

// WatchMeme polls a meme until it is ready or failed.
func (c *Client) WatchMeme(ctx context.Context, memeID string, observe poll.Observer[Meme]) (Meme, error) {
	cfg := poll.Config{
		Interval:    c.intervals.meme,
		MaxAttempts: memePollAttempts,
	}
	snap, err := poll.Wait(ctx, cfg, memeID, func(ctx context.Context) (Meme, error) {
		return c.GetMeme(ctx, memeID)
	}, observe)
	return snap.Result, err
}

// WatchSlop polls a video generation until it is ready or failed.
func (c *Client) WatchSlop(ctx context.Context, slopID string, observe poll.Observer[Slop]) (Slop, error) {
	cfg := poll.Config{
		Interval:    c.intervals.slop,
		MaxAttempts: slopPollAttempts,
	}
	snap, err := poll.Wait(ctx, cfg, slopID, func(ctx context.Context) (Slop, error) {
		return c.GetSlop(ctx, slopID)
	}, observe)
	return snap.Result, err
}

// GenerateArticle submits article generation for a suggestion and
// watches it to completion. A quota refusal returns before any polling
// begins.
func (c *Client) GenerateArticle(ctx context.Context, suggestionID string, observe poll.Observer[Article]) (Article, error) {
	articleID, err := c.CreateArticle(ctx, suggestionID)
	if err != nil {
		return Article{}, err
	}
	return c.WatchArticle(ctx, articleID, observe)
}

// GenerateMeme submits meme generation for a suggestion and watches it
// to completion.
func (c *Client) GenerateMeme(ctx context.Context, suggestionID string, observe poll.Observer[Meme]) (Meme, error) {
	memeID, err := c.CreateMeme(ctx, suggestionID)
	if err != nil {
		return Meme{}, err
	}
	return c.WatchMeme(ctx, memeID, observe)
}

// GenerateSlop submits video generation for a suggestion and watches it
// to completion.
func (c *Client) GenerateSlop(ctx context.Context, suggestionID string, observe poll.Observer[Slop]) (Slop, error) {
	slopID, err := c.CreateSlop(ctx, suggestionID)
	if err != nil {
		return Slop{}, err
	}
	return c.WatchSlop(ctx, slopID, observe)
}
