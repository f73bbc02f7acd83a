package cache

import "context"

// ResponseCache holds decoded API responses that change rarely (plan
// catalog, account limits) so repeated CLI invocations inside one
// process don't re-fetch them.
type ResponseCache[T any] interface {
	// Get retrieves a cached response.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a response.
	Set(ctx context.Context, key string, value T) error

	// Invalidate removes a cached response.
	Invalidate(ctx context.Context, key string) error
}
