// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectorize

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// maxRetryDelay caps the doubling so a long retry budget never sleeps for minutes.
const maxRetryDelay = 10 * time.Second

// backoff retries a failed embedding batch with doubling delays.
type backoff struct {
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// delay returns the wait after the given failed attempt (1-based).
func (b backoff) delay(attempt int) time.Duration {
	d := b.baseDelay
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

// retry runs op until it succeeds, attempts run out or ctx is done.
// Context errors returned by op end the loop at once: they mean another
// batch already failed or the caller gave up, not that the model is flaky.
func (b backoff) retry(ctx context.Context, batch string, op func(context.Context) error) error {
	if b.attempts < 1 {
		return ErrInvalidMaxAttempts
	}

	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = op(ctx); err == nil {
			if attempt > 1 {
				b.logger.Info("batch embedded after retry", "batch", batch, "attempt", attempt)
			}
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == b.attempts {
			break
		}

		wait := b.delay(attempt)
		b.logger.Warn("batch embedding failed, retrying",
			"batch", batch, "attempt", attempt, "of", b.attempts, "wait", wait, "err", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
