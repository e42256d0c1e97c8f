package services

import (
	"fmt"

	"reward-system/models"

	pubnub "github.com/pubnub/go"
)

// NotifyService pushes claim outcomes to the per-user channel the clients
// subscribe to. Publishing is best effort: a lost notification never affects
// the recorded decision.
type NotifyService struct {
	PubNub *pubnub.PubNub
}

func NewNotifyService(pn *pubnub.PubNub) *NotifyService {
	return &NotifyService{PubNub: pn}
}

func (s *NotifyService) ClaimResolved(request *models.RewardRequest) {
	if s.PubNub == nil {
		return
	}

	channel := fmt.Sprintf("user-%s", request.UserID)

	message := map[string]any{
		"type":       "claim_resolved",
		"request_id": request.ID,
		"reward_id":  request.RewardID,
		"status":     string(request.Status),
	}
	if request.Status == models.StatusRejected {
		message["reason"] = request.RejectionReason
	}

	s.PubNub.Publish().
		Channel(channel).
		Message(message).
		Execute()
}
