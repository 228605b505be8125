package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/googleapi"
)

const (
	retryAttempts  = 3
	retryBaseDelay = time.Second
)

// retryStatus lists the server responses worth retrying. Anything
// else, including other 4xx codes, fails immediately.
var retryStatus = map[int]bool{
	429: true,
	500: true,
	503: true,
}

// withRetry runs fn up to retryAttempts times with linear back-off
// (base, 2*base, ...), retrying only transient API errors.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !transient(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if attempt == retryAttempts {
			break
		}

		delay := time.Duration(attempt) * retryBaseDelay
		slog.Warn("transient error, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", op, retryAttempts, err)
}

func transient(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && retryStatus[gerr.Code]
}
