package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-agent/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}
}

func TestRetry_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &OracleError{Op: "chat", StatusCode: 503, Retryable: true, Err: errors.New("busy")}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context) (string, error) {
		calls++
		return "", &OracleError{Op: "chat", StatusCode: 400, Err: errors.New("bad request")}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	var retried []int
	policy := fastPolicy(2)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) { retried = append(retried, attempt) }

	_, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, &OracleError{Op: "chat", StatusCode: 429, Retryable: true, Err: errors.New("slow down")}
	})

	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_CancelledContextIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour, BackoffMultiplier: 1}

	_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
		cancel()
		return 0, &OracleError{Op: "chat", Retryable: true, Err: errors.New("timeout")}
	})

	assert.True(t, entity.IsFatal(err))
}

func TestRetryPolicy_DelayCapped(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 3 * time.Second, BackoffMultiplier: 2}

	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 3*time.Second, p.Delay(5))
}

func TestClassifyStatus(t *testing.T) {
	assert.True(t, entity.IsFatal(ClassifyStatus("chat", 401, errors.New("unauthorized"))))
	assert.True(t, IsRetryable(ClassifyStatus("chat", 503, errors.New("unavailable"))))
	assert.True(t, IsRetryable(ClassifyStatus("chat", 429, errors.New("rate limited"))))

	err := ClassifyStatus("chat", 400, errors.New("bad"))
	assert.False(t, IsRetryable(err))
	assert.False(t, entity.IsFatal(err))
}

func TestClassifyTransport(t *testing.T) {
	ctx := context.Background()

	assert.True(t, IsRetryable(ClassifyTransport(ctx, "chat", context.DeadlineExceeded)))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.True(t, entity.IsFatal(ClassifyTransport(cancelled, "chat", errors.New("whatever"))))

	err := ClassifyTransport(ctx, "chat", errors.New("opaque"))
	assert.False(t, entity.IsFatal(err))
	assert.False(t, IsRetryable(err))
}
