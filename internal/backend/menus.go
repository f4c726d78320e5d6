package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"taskconsole/internal/access"
)

// AccessibleModulesAndMenus fetches the permission tree for an
// (applicationId, userId) pair. Transient failures (transport errors, 5xx)
// are retried with exponential backoff; 4xx answers are final.
func (c *Client) AccessibleModulesAndMenus(ctx context.Context, applicationID, userID int64) ([]access.Module, error) {
	query := url.Values{}
	query.Set("applicationId", strconv.FormatInt(applicationID, 10))
	query.Set("userId", strconv.FormatInt(userID, 10))

	var tree []access.Module
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		data, err := c.do(ctx, http.MethodGet, c.transversalURL, "GetAccessibleModulesAndMenus", query, nil)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok && apiErr.Status < http.StatusInternalServerError {
				return err
			}
			return retry.RetryableError(err)
		}
		tree = nil
		if err := json.Unmarshal(data, &tree); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("failed to fetch accessible modules and menus",
			zap.Int64("applicationId", applicationID),
			zap.Int64("userId", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return tree, nil
}
