package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestRetryDoStopsOnFirstSuccess(t *testing.T) {
	calls := 0
	p := RetryPolicy{Attempts: 5, Sleep: func(time.Duration) {}}
	err := p.Do(func() error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, calls, 2)
}

func TestRetryDoReturnsLastError(t *testing.T) {
	calls := 0
	var slept []time.Duration
	p := RetryPolicy{Attempts: 3, Delay: 250 * time.Millisecond, Sleep: func(d time.Duration) { slept = append(slept, d) }}
	err := p.Do(func() error {
		calls++
		return errors.New("still failing")
	})
	assert.Equal(t, err.Error(), "still failing")
	assert.Equal(t, calls, 3)
	// No sleep before the first attempt.
	assert.Equal(t, slept, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond})
}

func TestRetryDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	p := RetryPolicy{}
	_ = p.Do(func() error { calls++; return nil })
	assert.Equal(t, calls, 1)
}
