package api

import "github.com/ideafeed/ideafeed-cli/internal/poll"

// User is the authenticated account, as returned by /api/me.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	CreatedOn string `json:"created_on"`
}

// PlanLimits are the per-plan usage ceilings. -1 means unlimited.
type PlanLimits struct {
	ProductsPerUser          int `json:"products_per_user"`
	ContentGenerationsPerDay int `json:"content_generations_per_day"`
	ArticlesPerDay           int `json:"articles_per_day"`
	GuestVisibilityCutoff    int `json:"guest_visibility_cutoff"`
}

// Plan is a public catalog entry from /api/plans.
type Plan struct {
	ID            string     `json:"id"`
	PriceUSD      int        `json:"price_usd"`
	StripePriceID string     `json:"stripe_price_id"`
	Limits        PlanLimits `json:"limits"`
}

// Limits is the current account's plan and ceilings from /api/me/limits.
type Limits struct {
	PlanID string     `json:"plan_id"`
	Limits PlanLimits `json:"limits"`
}

// Product is a tracked product whose feeds are generated.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	CreatedOn   string       `json:"created_on"`
	UpdatedOn   string       `json:"updated_on,omitempty"`
	LatestFeed  *FeedSummary `json:"latest_feed,omitempty"`
}

// FeedSummary is the abbreviated feed record in product listings.
type FeedSummary struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CreatedOn   string `json:"created_on"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// SuggestionMeta carries optional per-suggestion generation pointers.
type SuggestionMeta struct {
	Description string `json:"description,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ArticleID   string `json:"article_id,omitempty"`
	MemeID      string `json:"meme_id,omitempty"`
	SlopID      string `json:"slop_id,omitempty"`
}

// Suggestion is one generated content idea inside a feed.
type Suggestion struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	SourceType string          `json:"source_type"`
	Text       string          `json:"text"`
	Rank       float64         `json:"rank"`
	Meta       *SuggestionMeta `json:"meta,omitempty"`
}

// FeedStep is a named pipeline stage of a feed generation run.
type FeedStep struct {
	StepName string `json:"step_name"`
	Status   string `json:"status"`
}

// FeedProduct is the product summary embedded in a feed response.
type FeedProduct struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Feed is a generation run (the server calls it a report) and its
// suggestions. Guests may receive a partial view.
type Feed struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Partial     bool         `json:"partial"`
	Product     *FeedProduct `json:"product,omitempty"`
	Suggestions []Suggestion `json:"suggestions"`
	Steps       []FeedStep   `json:"steps"`
}

// JobStatus reports the feed's generation progress for polling.
func (f Feed) JobStatus() poll.Status { return poll.Status(f.Status) }

// JobError is always empty for feeds: failure detail is carried in the
// step list rather than a top-level message.
func (f Feed) JobError() string { return "" }

// Article is a generated long-form piece tied to a suggestion.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ContentHTML string `json:"content_html"`
	ContentMD   string `json:"content_md"`
	Status      string `json:"status"`
	Error       string `json:"error"`
}

func (a Article) JobStatus() poll.Status { return poll.Status(a.Status) }
func (a Article) JobError() string       { return a.Error }

// Meme is a generated image concept tied to a suggestion.
type Meme struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Concept string `json:"concept"`
	Error   string `json:"error"`
}

func (m Meme) JobStatus() poll.Status { return poll.Status(m.Status) }
func (m Meme) JobError() string       { return m.Error }

// Slop is a generated short-form video tied to a suggestion.
type Slop struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Concept string `json:"concept"`
	Error   string `json:"error"`
}

func (s Slop) JobStatus() poll.Status { return poll.Status(s.Status) }
func (s Slop) JobError() string       { return s.Error }

// ArticleEdit is the writable subset of an article.
type ArticleEdit struct {
	Title     string  `json:"title,omitempty"`
	ContentMD *string `json:"content_md,omitempty"`
}

// CheckoutResult is returned by the billing endpoints. URL is empty
// when an existing subscription was switched in place.
type CheckoutResult struct {
	URL     string `json:"url"`
	Success string `json:"success,omitempty"`
}
