package models

import (
	"errors"
	"time"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Rejection reasons recorded on the request when an admission rule fails.
const (
	ReasonDuplicatePending = "duplicate pending request"
	ReasonAlreadyGranted   = "reward already granted"
	ReasonEventLimit       = "one reward per event already granted"
	ReasonEventNotActive   = "event not active"
	ReasonQuotaExhausted   = "quota exhausted"
	ReasonDeliveryFailed   = "delivery failed"
	ReasonRewardNotFound   = "reward not found"
	ReasonEventNotFound    = "event not found"
)

// ErrNotPending is returned by a transition attempted on a terminal request.
var ErrNotPending = errors.New("reward request is not pending")

type RewardRequest struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	RewardID        string        `json:"reward_id"`
	EventID         string        `json:"event_id"`
	Status          RequestStatus `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Approve transitions the request to its approved terminal state.
// Only a pending request may transition.
func (r *RewardRequest) Approve(now time.Time) error {
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusApproved
	r.ApprovedAt = &now
	return nil
}

// Reject transitions the request to its rejected terminal state with a reason.
func (r *RewardRequest) Reject(reason string, now time.Time) error {
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusRejected
	r.RejectionReason = reason
	r.RejectedAt = &now
	return nil
}

// Unwind reverts an in-memory approval that could not be persisted, returning
// the request to pending so it can still reach a recorded terminal state. It
// is a no-op on anything but an approved request.
func (r *RewardRequest) Unwind() {
	if r.Status != StatusApproved {
		return
	}
	r.Status = StatusPending
	r.ApprovedAt = nil
}

// Terminal reports whether the request reached a final state.
func (r *RewardRequest) Terminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}
