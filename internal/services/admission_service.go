package services

import (
	"reward-system/models"
)

// AdmissionService evaluates the dedup rules for a new claim against the
// user's prior requests. The evaluation itself is racy by nature, so the
// reward_requests partial unique indexes are the concurrent backstop; this
// service exists to give a turned-away claim its precise reason.
type AdmissionService struct{}

func NewAdmissionService() *AdmissionService {
	return &AdmissionService{}
}

// Check applies the admission rules in order, first failure wins:
//
//  1. a pending request for the same reward
//  2. an approved request for the same reward
//  3. an approved request for a sibling reward of the same event
//
// It returns the rejection reason, or "" when the claim is admissible.
func (s *AdmissionService) Check(rewardID, eventID string, prior []models.RewardRequest) string {
	for _, request := range prior {
		if request.RewardID == rewardID && request.Status == models.StatusPending {
			return models.ReasonDuplicatePending
		}
	}

	for _, request := range prior {
		if request.RewardID == rewardID && request.Status == models.StatusApproved {
			return models.ReasonAlreadyGranted
		}
	}

	for _, request := range prior {
		if request.EventID == eventID && request.Status == models.StatusApproved {
			return models.ReasonEventLimit
		}
	}

	return ""
}
