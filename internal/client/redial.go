package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const defaultMaxRedials = 5

// redial re-opens the connection on an exponential backoff schedule. This is
// opt-in behavior gated by SessionConfig.Reconnect; Open itself stays a
// single-attempt call.
func (s *Session) redial(ctx context.Context) error {
	op := func() (struct{}, error) {
		if err := s.conn.Open(ctx); err != nil {
			s.log.Debug("redial attempt failed", "error", err)
			return struct{}{}, err
		}

		return struct{}{}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond

	maxTries := s.cfg.MaxRedials
	if maxTries == 0 {
		maxTries = defaultMaxRedials
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(maxTries))
	return err
}
