package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how often EditWithRetry re-runs an edit that lost a race.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// EditWithRetry runs svc.Edit, re-reading state and trying again with exponential
// backoff only while the failure is ErrConcurrentModification. Every other error
// is returned immediately. Once attempts are exhausted the last conflict is returned.
func EditWithRetry(ctx context.Context, svc DocumentService, in EditInput, p RetryPolicy) (*EditResult, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
		b.MaxInterval = 20 * p.InitialInterval
	}

	return backoff.Retry(ctx, func() (*EditResult, error) {
		res, err := svc.Edit(ctx, in)
		if err != nil && !errors.Is(err, ErrConcurrentModification) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(attempts)))
}
