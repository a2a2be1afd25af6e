package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
)

// Repository reachability states reported by CheckConnection.
const (
	StatusOK          = "ok"
	StatusNotFound    = "not found"
	StatusRateLimited = "rate limited"
)

// CheckConnection reports the upstream quota and whether each repository's
// branches can be listed. It never fails; problems end up in the report.
func (c *Client) CheckConnection(ctx context.Context, repos []string) schema.ConnectionReport {
	report := schema.ConnectionReport{
		Provider:     c.source.Name(),
		Repositories: make(map[string]string, len(repos)),
	}

	err := c.call(ctx, "rate_limit", func(ctx context.Context) error {
		info, err := c.source.RateLimit(ctx)
		if err != nil {
			return err
		}
		if info.Limit > 0 {
			report.RateLimit = &info
			c.metrics.RateLimitRemaining.Set(float64(info.Remaining))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("rate limit lookup failed", zap.Error(err))
	}

	for _, repo := range repos {
		var branches []string
		err := c.call(ctx, "list_branches", func(ctx context.Context) error {
			var err error
			branches, err = c.source.ListBranches(ctx, repo)
			return err
		})
		report.Repositories[repo] = connectionStatus(len(branches), err)
	}
	return report
}

func connectionStatus(branches int, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("%s (%d branches)", StatusOK, branches)
	case errors.Is(err, contract.ErrNotFound):
		return StatusNotFound
	case contract.IsRateLimit(err):
		return StatusRateLimited
	default:
		return "error: " + err.Error()
	}
}
