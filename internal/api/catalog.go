package api

import "context"

// Plans fetches the public plan catalog. The result is cached briefly:
// the catalog only changes on deploys.
func (c *Client) Plans(ctx context.Context) ([]Plan, error) {
	if cached, ok, _ := c.planCache.Get(ctx, "plans"); ok {
		return cached, nil
	}

	var plans []Plan
	if err := c.getJSON(ctx, "/api/plans", &plans, SkipAuth()); err != nil {
		return nil, err
	}

	_ = c.planCache.Set(ctx, "plans", plans)
	return plans, nil
}

// MyLimits fetches the authenticated account's plan and usage ceilings,
// cached briefly per process.
func (c *Client) MyLimits(ctx context.Context) (Limits, error) {
	if cached, ok, _ := c.limitCache.Get(ctx, "limits"); ok {
		return cached, nil
	}

	var limits Limits
	if err := c.getJSON(ctx, "/api/me/limits", &limits); err != nil {
		return Limits{}, err
	}

	_ = c.limitCache.Set(ctx, "limits", limits)
	return limits, nil
}
