// Package api implements the authenticated Ideafeed API client. It owns
// the credential pair, attaches bearer tokens and the guest identifier
// to outgoing requests, recovers from expired access tokens with a
// single coordinated refresh-and-retry, and exposes typed wrappers for
// every endpoint the CLI consumes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ideafeed/ideafeed-cli/internal/cache"
	"github.com/ideafeed/ideafeed-cli/internal/state"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	refreshPath     = "/api/token/refresh"
	guestIDHeader   = "X-Guest-Id"
	catalogCacheTTL = 5 * time.Minute
)

// TokenStore holds the credential pair and guest identifier. Implemented
// by *state.Store; tests substitute in-memory fakes.
type TokenStore interface {
	Tokens() *state.Tokens
	SetTokens(state.Tokens) error
	ClearTokens() error
	GuestID() string
}

// Client mediates every HTTP call to the Ideafeed API.
//
// The credential pair is the only state mutated concurrently: any
// in-flight request can trigger a refresh. Refreshes are de-duplicated
// through a singleflight group, so no matter how many requests hit 401
// simultaneously, at most one refresh call is outstanding and every
// waiter retries against the pair it produced.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	navigator  Navigator

	refreshGroup singleflight.Group
	intervals    watchIntervals

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSubID   int

	planCache  *cache.Memory[[]Plan]
	limitCache *cache.Memory[Limits]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The default has a
// 30 second timeout and whatever transport main has installed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNavigator replaces the navigation side-effect sink.
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

// New creates a client for the API at baseURL. A trailing slash on
// baseURL is ignored.
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:       store,
		navigator:   LogNavigator{},
		intervals:   defaultWatchIntervals(),
		subscribers: make(map[int]func()),
		planCache:   cache.NewMemory[[]Plan](catalogCacheTTL, 8),
		limitCache:  cache.NewMemory[Limits](catalogCacheTTL, 8),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsAuthenticated reports whether a non-empty access token is held.
// This is a local check only; the token may be stale relative to the
// server.
func (c *Client) IsAuthenticated() bool {
	tokens := c.store.Tokens()
	return tokens != nil && tokens.AccessToken != ""
}

// Subscribe registers an observer invoked after every credential set or
// clear (login, refresh, logout). The returned function unregisters it;
// callers own that lifecycle.
func (c *Client) Subscribe(cb func()) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = cb

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Client) notifyAuthChange() {
	c.subMu.Lock()
	cbs := make([]func(), 0, len(c.subscribers))
	for _, cb := range c.subscribers {
		cbs = append(cbs, cb)
	}
	c.subMu.Unlock()

	for _, cb := range cbs {
		invokeObserver(cb)
	}
}

func invokeObserver(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("recover", r).Msg("auth change observer panicked")
		}
	}()
	cb()
}

type requestOptions struct {
	skipAuth bool
	retry    bool
	query    url.Values
	headers  http.Header
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

// SkipAuth suppresses the Authorization header. Used by the login and
// registration endpoints, and by callers managing their own auth.
func SkipAuth() RequestOption {
	return func(ro *requestOptions) { ro.skipAuth = true }
}

// WithQuery appends a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(ro *requestOptions) {
		if ro.query == nil {
			ro.query = url.Values{}
		}
		ro.query.Set(key, value)
	}
}

// WithHeader sets a request header, overriding any default.
func WithHeader(key, value string) RequestOption {
	return func(ro *requestOptions) {
		if ro.headers == nil {
			ro.headers = http.Header{}
		}
		ro.headers.Set(key, value)
	}
}

func retryMarker() RequestOption {
	return func(ro *requestOptions) { ro.retry = true }
}

// Do issues a request to baseURL+path (or an absolute URL passed
// directly). A struct or map body is serialized as JSON with the
// default application/json content type; an io.Reader body is streamed
// as-is with headers left untouched so multipart writers keep their
// boundary.
//
// On 401, and only when this call is not itself a retry, the refresh
// protocol runs and the identical request is re-issued exactly once.
// When refresh is impossible or fails, the credential pair is cleared
// and the navigator is pointed at the login page; the original 401
// response is still returned so callers can observe the failure.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*http.Response, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	resp, err := c.execute(ctx, method, path, body, ro)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// 401 handling: refresh once and retry the original request
	if !ro.retry && c.hasRefreshToken() {
		if refreshErr := c.refresh(ctx); refreshErr == nil {
			drainAndClose(resp)
			return c.Do(ctx, method, path, body, append(opts, retryMarker())...)
		}
		// fall through to forced logout
	}

	c.authExpired(path, ro)
	return resp, nil
}

// execute performs a single HTTP exchange with auth and guest headers
// attached.
func (c *Client) execute(ctx context.Context, method, path string, body any, ro requestOptions) (*http.Response, error) {
	target := path
	if !strings.HasPrefix(target, "http") {
		target = c.baseURL + path
	}
	if len(ro.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + ro.query.Encode()
	}

	reader, isStream, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if !isStream {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range ro.headers {
		req.Header[key] = values
	}

	if !ro.skipAuth {
		if tokens := c.store.Tokens(); tokens != nil && tokens.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		}
	}

	if req.Header.Get(guestIDHeader) == "" {
		if guestID := c.store.GuestID(); guestID != "" {
			req.Header.Set(guestIDHeader, guestID)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func encodeBody(body any) (io.Reader, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case io.Reader:
		return b, true, nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, false, fmt.Errorf("encoding request body: %w", err)
		}
		return bytes.NewReader(raw), false, nil
	}
}

func (c *Client) hasRefreshToken() bool {
	tokens := c.store.Tokens()
	return tokens != nil && tokens.RefreshToken != ""
}

// refresh exchanges the refresh token for a new credential pair. All
// concurrent callers share a single in-flight exchange.
func (c *Client) refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		tokens := c.store.Tokens()
		if tokens == nil || tokens.RefreshToken == "" {
			return nil, ErrNoRefreshToken
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, nil)
		if err != nil {
			return nil, fmt.Errorf("creating refresh request: %w", err)
		}
		// the refresh endpoint authenticates with the refresh token,
		// not the access token
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
		defer drainAndClose(resp)

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
		}

		var pair state.Tokens
		if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
		if pair.AccessToken == "" {
			return nil, fmt.Errorf("%w: empty access token", ErrRefreshFailed)
		}

		if err := c.store.SetTokens(pair); err != nil {
			return nil, fmt.Errorf("storing refreshed tokens: %w", err)
		}

		log.Ctx(ctx).Debug().Msg("access token refreshed")
		c.notifyAuthChange()
		return nil, nil
	})
	return err
}

// authExpired applies the forced-logout side effects of an
// unrecoverable 401: credentials are cleared and the navigator is sent
// to the login page with the interrupted path as the return target. The
// navigation is skipped for unauthenticated requests, which mirrors the
// web client's guard against redirect loops on the login page itself.
func (c *Client) authExpired(path string, ro requestOptions) {
	if c.store.Tokens() != nil {
		if err := c.store.ClearTokens(); err != nil {
			log.Warn().Err(err).Msg("clearing expired credentials failed")
		}
		c.notifyAuthChange()
	}

	if !ro.skipAuth {
		c.navigator.Navigate(loginURL(path))
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

// Post issues a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*http.Response, error) {
	if body == nil {
		body = struct{}{}
	}
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*http.Response, error) {
	if body == nil {
		body = struct{}{}
	}
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*http.Response, error) {
	if body == nil {
		body = struct{}{}
	}
	return c.Do(ctx, http.MethodPatch, path, body, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// getJSON fetches path and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	resp, err := c.Get(ctx, path, opts...)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// postJSON posts body to path and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	resp, err := c.Post(ctx, path, body, opts...)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// putJSON puts body to path and decodes the response into out.
func (c *Client) putJSON(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	resp, err := c.Put(ctx, path, body, opts...)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// decodeResponse maps non-success statuses to the error taxonomy and
// decodes success bodies into out. The response body is always closed.
func decodeResponse(resp *http.Response, out any) error {
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// readBytes fetches path and returns the raw body, for binary payloads
// (meme images, videos).
func (c *Client) readBytes(ctx context.Context, path string, opts ...RequestOption) ([]byte, error) {
	resp, err := c.Get(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return raw, nil
}

// drainAndClose consumes the remaining body so the underlying
// connection can be reused.
func drainAndClose(resp *http.Response) {
	if resp.Body != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
	}
}
