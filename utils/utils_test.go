package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(4)
	require.NoError(t, err)

	// 4 random bytes encode to 8 hex chars
	assert.Len(t, code, 8)
	assert.Equal(t, strings.ToUpper(code), code)

	other, err := GenerateCode(4)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestGrantReference(t *testing.T) {
	reference, err := GrantReference("req-123")
	require.NoError(t, err)

	parts := strings.Split(reference, "-")
	require.GreaterOrEqual(t, len(parts), 3)
	assert.True(t, strings.HasPrefix(reference, "req-123-"))

	other, err := GrantReference("req-123")
	require.NoError(t, err)
	assert.NotEqual(t, reference, other)
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	breaker := NewCircuitBreaker("test")

	for i := 0; i < 10; i++ {
		_, err := breaker.Execute(context.Background(), func() (interface{}, error) {
			return "ok", nil
		})
		require.NoError(t, err)
	}
}

func TestCircuitBreaker_TripsOpen(t *testing.T) {
	breaker := NewCircuitBreakerWithSettings("test", BreakerSettings{
		MaxRequests:  2,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
	})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		breaker.Execute(context.Background(), func() (interface{}, error) {
			return nil, boom
		})
	}

	_, err := breaker.Execute(context.Background(), func() (interface{}, error) {
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	breaker := NewCircuitBreakerWithSettings("test", BreakerSettings{
		MaxRequests:  2,
		Interval:     time.Minute,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
	})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		breaker.Execute(context.Background(), func() (interface{}, error) {
			return nil, boom
		})
	}

	_, err := breaker.Execute(context.Background(), func() (interface{}, error) {
		return "ok", nil
	})
	require.ErrorIs(t, err, ErrBreakerOpen)

	// wait out the open window, the next probe should go through
	time.Sleep(80 * time.Millisecond)

	result, err := breaker.Execute(context.Background(), func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
