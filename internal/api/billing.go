package api

import "context"

// CreateCheckout starts a subscription checkout for a plan. The result
// carries the payment page URL, or a success message when an existing
// subscription was switched in place.
func (c *Client) CreateCheckout(ctx context.Context, planID string) (CheckoutResult, error) {
	var result CheckoutResult
	err := c.postJSON(ctx, "/api/billing/checkout", map[string]string{"plan_id": planID}, &result)
	return result, err
}

// CreatePortal opens a billing management session for the current
// subscriber.
func (c *Client) CreatePortal(ctx context.Context) (CheckoutResult, error) {
	var result CheckoutResult
	err := c.postJSON(ctx, "/api/billing/portal", nil, &result)
	return result, err
}
