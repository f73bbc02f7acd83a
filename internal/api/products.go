package api

import (
	"context"
	"net/url"
)

// Products lists the current user's (or guest's) products with their
// latest feed summary. Logged-in requests carrying a guest id cause the
// server to merge guest-owned items into the account first.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.getJSON(ctx, "/api/products", &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// CreateProduct registers a product to generate feeds for.
func (c *Client) CreateProduct(ctx context.Context, name, description string) (Product, error) {
	body := map[string]string{"name": name, "description": description}
	var product Product
	err := c.postJSON(ctx, "/api/products", body, &product)
	return product, err
}

// ProductFeeds lists all generation runs for a product, newest first.
func (c *Client) ProductFeeds(ctx context.Context, productID string) ([]FeedSummary, error) {
	var out struct {
		Feeds []FeedSummary `json:"feeds"`
	}
	err := c.getJSON(ctx, "/api/products/"+url.PathEscape(productID)+"/feeds", &out)
	if err != nil {
		return nil, err
	}
	return out.Feeds, nil
}

// InitiateFeed starts a new generation run for an existing product and
// returns the feed id to poll. A quota refusal surfaces as *QuotaError
// after the navigator has been pointed at the pricing page.
func (c *Client) InitiateFeed(ctx context.Context, productID string) (string, error) {
	var out struct {
		ReportID string `json:"report_id"`
	}
	err := c.postJSON(ctx, "/api/products/"+url.PathEscape(productID)+"/feeds/initiate", nil, &out)
	if err != nil {
		return "", c.quotaRedirect(err)
	}
	return out.ReportID, nil
}

// InitiateGuestFeed starts a generation run for a brand new product,
// the unauthenticated "try it" flow. The server may answer with an
// existing feed id and a login prompt when this guest already used its
// allowance.
func (c *Client) InitiateGuestFeed(ctx context.Context, productName, productDescription string) (feedID string, promptLogin bool, err error) {
	body := map[string]string{
		"product_name":        productName,
		"product_description": productDescription,
		"guest_id":            c.store.GuestID(),
	}
	var out struct {
		ReportID    string `json:"report_id"`
		PromptLogin bool   `json:"prompt_login"`
	}
	if err := c.postJSON(ctx, "/api/feeds/initiate", body, &out); err != nil {
		return "", false, c.quotaRedirect(err)
	}
	return out.ReportID, out.PromptLogin, nil
}

// GetFeed fetches a feed and its suggestions. The guest id rides along
// as a query parameter so guest-owned feeds resolve ownership.
func (c *Client) GetFeed(ctx context.Context, feedID string) (Feed, error) {
	var feed Feed
	err := c.getJSON(ctx, "/api/feeds/"+url.PathEscape(feedID), &feed,
		WithQuery("guest_id", c.store.GuestID()))
	return feed, err
}
