package cfimages

import (
	"context"
	"net/http"
)

// GetStats fetches the account's image usage snapshot.
func (c *Client) GetStats(ctx context.Context) (*Response[UsageStats], error) {
	return do[UsageStats](ctx, c, http.MethodGet, "/v1/stats", "", nil)
}
