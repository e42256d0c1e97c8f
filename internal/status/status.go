package status

import "errors"

var (
	ErrEventNotFound   = errors.New("catalog: event not found")
	ErrRewardNotFound  = errors.New("catalog: reward not found")
	ErrRequestNotFound = errors.New("request: reward request not found")

	// ErrAlreadyProcessed is returned by approve/reject on a non-pending request.
	ErrAlreadyProcessed = errors.New("request: already processed")

	// ErrDuplicateRequest surfaces a unique-index violation on insert: the user
	// already holds a pending or approved request for the pair.
	ErrDuplicateRequest = errors.New("request: duplicate claim")

	ErrQuotaExhausted = errors.New("quota: exhausted")
	ErrDeliveryFailed = errors.New("delivery: grant failed")

	// ErrClaimInFlight means another submit for the same (user, reward) holds the claim lock.
	ErrClaimInFlight = errors.New("claim: another request in flight")

	// ErrRewardReferenced blocks deleting a reward that has recorded requests.
	ErrRewardReferenced = errors.New("catalog: reward has existing requests")
)
