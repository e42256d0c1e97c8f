package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"reward-system/internal/status"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimLock_AcquireAndRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := NewClaimLock(db, 30*time.Second)

	mock.Regexp().ExpectSetNX("claim:lock:user-1:reward-1", `\d+`, 30*time.Second).SetVal(true)
	mock.ExpectDel("claim:lock:user-1:reward-1").SetVal(1)

	release, err := lock.Acquire(context.Background(), "user-1", "reward-1")
	require.NoError(t, err)
	require.NotNil(t, release)

	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimLock_Contention(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := NewClaimLock(db, 30*time.Second)

	mock.Regexp().ExpectSetNX("claim:lock:user-1:reward-1", `\d+`, 30*time.Second).SetVal(false)

	release, err := lock.Acquire(context.Background(), "user-1", "reward-1")
	assert.ErrorIs(t, err, status.ErrClaimInFlight)
	assert.Nil(t, release)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// a Redis outage must not block submits, the storage constraints still hold
func TestClaimLock_DegradesOnRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := NewClaimLock(db, 30*time.Second)

	mock.Regexp().ExpectSetNX("claim:lock:user-1:reward-1", `\d+`, 30*time.Second).
		SetErr(errors.New("connection refused"))

	release, err := lock.Acquire(context.Background(), "user-1", "reward-1")
	require.NoError(t, err)
	require.NotNil(t, release)

	release()
}

func TestClaimLock_NilClientIsNoop(t *testing.T) {
	lock := NewClaimLock(nil, 0)

	release, err := lock.Acquire(context.Background(), "user-1", "reward-1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
}

func TestNewClaimLock_DefaultTTL(t *testing.T) {
	lock := NewClaimLock(nil, 0)
	assert.Equal(t, 30*time.Second, lock.TTL)
}
