package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRecoverableError(t *testing.T) {
	err := NewRecoverableError(errors.New("test error"))
	assert.True(t, IsRecoverable(err))
	assert.False(t, IsRecoverable(errors.New("test error")))
	assert.False(t, IsRecoverable(nil))
	assert.False(t, IsRecoverable(NewNonRecoverableError(errors.New("connection refused"))))
}

func TestRecoverableHeuristics(t *testing.T) {
	assert.True(t, IsRecoverable(context.DeadlineExceeded))
	assert.False(t, IsRecoverable(context.Canceled))
	assert.True(t, IsRecoverable(driver.ErrBadConn))
	assert.True(t, IsRecoverable(errors.New("SQLITE_BUSY: database is locked")))
	assert.True(t, IsRecoverable(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRecoverable(errors.New("duplicate key value")))
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewRecoverableError(errors.New("test error"))
	}, WithMaxRetries(3), WithBaseWait(time.Millisecond*5))
	assert.Error(t, err)
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, 4, count)
}

func TestRetryZeroMaxRetries(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewRecoverableError(errors.New("test error"))
	}, WithMaxRetries(0), WithBaseWait(time.Millisecond*5))
	assert.Error(t, err)
	assert.Equal(t, 1, count) // Should still try once even with 0 retries
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	count := 0
	err := Do(context.Background(), func() error {
		count++
		return errors.New("constraint violation")
	}, WithMaxRetries(5), WithBaseWait(time.Millisecond))
	require.Error(t, err)
	require.Equal(t, 1, count)
}

func TestRetryEventuallySucceeds(t *testing.T) {
	count := 0
	var retried []int
	err := Do(context.Background(), func() error {
		count++
		if count < 3 {
			return NewRecoverableError(errors.New("busy"))
		}
		return nil
	},
		WithMaxRetries(5),
		WithBaseWait(time.Millisecond),
		WithJitter(true),
		WithOnRetry(func(attempt int, err error) { retried = append(retried, attempt) }),
	)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.Equal(t, []int{1, 2}, retried)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	err := Do(ctx, func() error {
		count++
		cancel()
		return NewRecoverableError(errors.New("test error"))
	}, WithMaxRetries(10), WithBaseWait(time.Hour))
	require.Error(t, err)
	require.Equal(t, 1, count)
}

func TestDelayIsCapped(t *testing.T) {
	o := options{baseWait: time.Second, maxWait: 3 * time.Second}
	require.Equal(t, time.Second, o.delay(0))
	require.Equal(t, 2*time.Second, o.delay(1))
	require.Equal(t, 3*time.Second, o.delay(2))
	require.Equal(t, 3*time.Second, o.delay(10))
}
