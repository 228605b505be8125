package drive

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/googleapi"
)

func apiError(code int) error {
	return &googleapi.Error{Code: code, Message: "server says no"}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error // returned in order; nil means success
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "succeeds first try",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "recovers from 503",
			errs:      []error{apiError(503), nil},
			wantCalls: 2,
		},
		{
			name:      "recovers from 429 then 500",
			errs:      []error{apiError(429), apiError(500), nil},
			wantCalls: 3,
		},
		{
			name:      "gives up after three transient failures",
			errs:      []error{apiError(500), apiError(500), apiError(500)},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:      "404 is not retried",
			errs:      []error{apiError(404)},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "plain error is not retried",
			errs:      []error{errors.New("boom")},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := withRetry(context.Background(), "op", func() error {
				err := tt.errs[calls]
				calls++
				return err
			})

			if calls != tt.wantCalls {
				t.Errorf("fn called %d times, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("withRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := withRetry(ctx, "op", func() error {
		calls++
		cancel() // cancel before the back-off sleep
		return apiError(503)
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestTransient(t *testing.T) {
	if transient(apiError(400)) {
		t.Error("400 classified as transient")
	}
	if !transient(apiError(429)) {
		t.Error("429 not classified as transient")
	}
	wrapped := errors.Join(errors.New("context"), apiError(500))
	if !transient(wrapped) {
		t.Error("wrapped 500 not classified as transient")
	}
}
