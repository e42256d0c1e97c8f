package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_ActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	event := Event{
		ID:        "event-1",
		Title:     "Spring Campaign",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		IsActive:  true,
	}

	assert.True(t, event.ActiveAt(now))

	// boundaries are inclusive
	assert.True(t, event.ActiveAt(event.StartTime))
	assert.True(t, event.ActiveAt(event.EndTime))

	assert.False(t, event.ActiveAt(event.StartTime.Add(-time.Second)))
	assert.False(t, event.ActiveAt(event.EndTime.Add(time.Second)))
}

func TestEvent_ActiveAt_Disabled(t *testing.T) {
	now := time.Now()

	event := Event{
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		IsActive:  false,
	}

	assert.False(t, event.ActiveAt(now))
}

func TestEvent_ActiveAt_BadWindow(t *testing.T) {
	now := time.Now()

	// zero window
	assert.False(t, Event{IsActive: true}.ActiveAt(now))

	// inverted window
	inverted := Event{
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(-time.Hour),
		IsActive:  true,
	}
	assert.False(t, inverted.ActiveAt(now))
}

func TestReward_Remaining(t *testing.T) {
	reward := Reward{Quantity: 10, Claimed: 3}
	assert.Equal(t, 7, reward.Remaining())

	drained := Reward{Quantity: 5, Claimed: 5}
	assert.Equal(t, 0, drained.Remaining())

	// overclaim never reports negative availability
	over := Reward{Quantity: 5, Claimed: 6}
	assert.Equal(t, 0, over.Remaining())
}

func TestRewardRequest_Approve(t *testing.T) {
	now := time.Now()
	request := RewardRequest{
		ID:       "req-1",
		UserID:   "user-1",
		RewardID: "reward-1",
		Status:   StatusPending,
	}

	err := request.Approve(now)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, request.Status)
	require.NotNil(t, request.ApprovedAt)
	assert.Equal(t, now, *request.ApprovedAt)
	assert.True(t, request.Terminal())
}

func TestRewardRequest_Reject(t *testing.T) {
	now := time.Now()
	request := RewardRequest{Status: StatusPending}

	err := request.Reject(ReasonQuotaExhausted, now)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, request.Status)
	assert.Equal(t, ReasonQuotaExhausted, request.RejectionReason)
	require.NotNil(t, request.RejectedAt)
	assert.True(t, request.Terminal())
}

func TestRewardRequest_TerminalStatesAreImmutable(t *testing.T) {
	now := time.Now()

	approved := RewardRequest{Status: StatusApproved}
	assert.ErrorIs(t, approved.Approve(now), ErrNotPending)
	assert.ErrorIs(t, approved.Reject("any", now), ErrNotPending)
	assert.Equal(t, StatusApproved, approved.Status)

	rejected := RewardRequest{Status: StatusRejected, RejectionReason: ReasonEventLimit}
	assert.ErrorIs(t, rejected.Approve(now), ErrNotPending)
	assert.ErrorIs(t, rejected.Reject("other", now), ErrNotPending)
	assert.Equal(t, ReasonEventLimit, rejected.RejectionReason)
}

func TestRewardRequest_Unwind(t *testing.T) {
	now := time.Now()

	request := RewardRequest{Status: StatusPending}
	require.NoError(t, request.Approve(now))

	request.Unwind()
	assert.Equal(t, StatusPending, request.Status)
	assert.Nil(t, request.ApprovedAt)

	// an unwound request can still reach a recorded terminal state
	require.NoError(t, request.Reject(ReasonEventLimit, now))

	// rejected requests are untouched
	request.Unwind()
	assert.Equal(t, StatusRejected, request.Status)
	assert.NotNil(t, request.RejectedAt)
}

func TestReward_AmountPrecision(t *testing.T) {
	reward := Reward{Amount: decimal.RequireFromString("19.99")}

	total := reward.Amount.Mul(decimal.NewFromInt(3))
	assert.True(t, total.Equal(decimal.RequireFromString("59.97")))
}
