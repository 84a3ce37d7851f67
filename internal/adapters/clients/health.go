package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/jsamuelsen/session-relay/internal/ports"
)

const rateLimitCheckName = "backend-rate-limit"

var _ ports.AdvisoryChecker = (*RateLimitBreaker)(nil)

// Name implements ports.HealthChecker.
func (b *RateLimitBreaker) Name() string {
	return rateLimitCheckName
}

// Check fails while a rate-limit window is open. The relay can still serve
// session status, so the failure only degrades readiness.
func (b *RateLimitBreaker) Check(context.Context) error {
	if resetAt, active := b.ResetAt(); active {
		return fmt.Errorf("%w until %s", errRateLimitWindow, resetAt.UTC().Format(time.RFC3339))
	}

	return nil
}

// Advisory implements ports.AdvisoryChecker.
func (b *RateLimitBreaker) Advisory() bool {
	return true
}
