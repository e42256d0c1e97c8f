package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reward-system/internal/services/wallet"
	"reward-system/internal/status"
	"reward-system/models"
	"reward-system/utils"
)

// The engine depends on small interfaces so the decision flow can be tested
// against in-memory fakes, without a database or a wallet provider behind it.
type (
	requestStore interface {
		Insert(ctx context.Context, request *models.RewardRequest) error
		Update(ctx context.Context, request *models.RewardRequest) error
		Get(ctx context.Context, id string) (*models.RewardRequest, error)
		ListByUser(ctx context.Context, userID string) ([]models.RewardRequest, error)
		List(ctx context.Context, filter Filter) ([]models.RewardRequest, error)
	}

	quotaLedger interface {
		TryReserve(ctx context.Context, rewardID string) error
		Release(ctx context.Context, rewardID string) error
	}

	catalog interface {
		GetEvent(id string) (*models.Event, error)
		GetReward(id string) (*models.Reward, error)
	}

	deliverer interface {
		Deliver(ctx context.Context, g *wallet.GrantRequest) error
	}

	locker interface {
		Acquire(ctx context.Context, userID, rewardID string) (func(), error)
	}

	notifier interface {
		ClaimResolved(request *models.RewardRequest)
	}

	outcomeTracker interface {
		TrackClaimOutcome(status, reason string)
		TrackDelivery(outcome string, duration time.Duration)
	}
)

// RequestService is the reward request engine. Every submitted claim leaves
// exactly one persisted request behind and every persisted request ends in
// exactly one terminal state, so the table doubles as the audit trail.
type RequestService struct {
	store     requestStore
	ledger    quotaLedger
	catalog   catalog
	admission *AdmissionService
	wallet    deliverer
	lock      locker
	notify    notifier
	monitor   outcomeTracker

	breaker         *utils.CircuitBreaker
	deliveryTimeout time.Duration

	now func() time.Time
}

func NewRequestService(
	store requestStore,
	ledger quotaLedger,
	catalogService catalog,
	walletProvider deliverer,
	lock locker,
	notify notifier,
	monitor outcomeTracker,
	deliveryTimeout time.Duration,
) *RequestService {
	if deliveryTimeout <= 0 {
		deliveryTimeout = 10 * time.Second
	}

	return &RequestService{
		store:           store,
		ledger:          ledger,
		catalog:         catalogService,
		admission:       NewAdmissionService(),
		wallet:          walletProvider,
		lock:            lock,
		notify:          notify,
		monitor:         monitor,
		breaker:         utils.NewCircuitBreaker("wallet-grant"),
		deliveryTimeout: deliveryTimeout,
		now:             time.Now,
	}
}

// SetMonitor wires outcome and delivery metrics into the engine. Left unset,
// the engine records nothing.
func (s *RequestService) SetMonitor(monitor outcomeTracker) {
	s.monitor = monitor
}

// Submit runs one claim end to end and returns the decided request. The claim
// is persisted as pending before any rule runs, so even a claim for an unknown
// reward leaves a rejected record behind.
func (s *RequestService) Submit(ctx context.Context, userID, rewardID string) (*models.RewardRequest, error) {
	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, userID, rewardID)
		if err != nil {
			if errors.Is(err, status.ErrClaimInFlight) {
				// A lost lock means a concurrent submit for the same pair is
				// mid flight. That attempt is still recorded, same as a
				// unique-index conflict on insert.
				return s.recordTurnedAway(ctx, userID, rewardID)
			}
			return nil, err
		}
		defer release()
	}

	request := &models.RewardRequest{
		UserID:   userID,
		RewardID: rewardID,
		Status:   models.StatusPending,
	}

	if err := s.store.Insert(ctx, request); err != nil {
		if errors.Is(err, status.ErrDuplicateRequest) {
			return s.recordTurnedAway(ctx, userID, rewardID)
		}
		return nil, err
	}

	return s.process(ctx, request)
}

// process decides a freshly persisted pending request. Ordering matters:
// catalog and window checks run before the quota reservation so a turned-away
// claim never touches the ledger, and the reservation is released if the
// delivery after it fails.
func (s *RequestService) process(ctx context.Context, request *models.RewardRequest) (*models.RewardRequest, error) {
	reward, err := s.catalog.GetReward(request.RewardID)
	if err != nil {
		return s.reject(ctx, request, models.ReasonRewardNotFound)
	}
	request.EventID = reward.EventID

	event, err := s.catalog.GetEvent(reward.EventID)
	if err != nil {
		return s.reject(ctx, request, models.ReasonEventNotFound)
	}

	if !event.ActiveAt(s.now()) {
		return s.reject(ctx, request, models.ReasonEventNotActive)
	}

	prior, err := s.store.ListByUser(ctx, request.UserID)
	if err != nil {
		return nil, err
	}
	if reason := s.admission.Check(request.RewardID, request.EventID, excludeRequest(prior, request.ID)); reason != "" {
		return s.reject(ctx, request, reason)
	}

	if err := s.ledger.TryReserve(ctx, request.RewardID); err != nil {
		switch {
		case errors.Is(err, status.ErrQuotaExhausted):
			return s.reject(ctx, request, models.ReasonQuotaExhausted)
		case errors.Is(err, status.ErrRewardNotFound):
			return s.reject(ctx, request, models.ReasonRewardNotFound)
		default:
			return nil, err
		}
	}

	return s.settle(ctx, request, reward)
}

// settle holds a quota reservation. It delivers the reward and approves the
// request, or releases the reservation and rejects.
func (s *RequestService) settle(ctx context.Context, request *models.RewardRequest, reward *models.Reward) (*models.RewardRequest, error) {
	if err := s.deliver(ctx, request, reward); err != nil {
		if releaseErr := s.ledger.Release(ctx, request.RewardID); releaseErr != nil {
			slog.Error("quota release after failed delivery", "request_id", request.ID, "error", releaseErr)
		}
		return s.reject(ctx, request, models.ReasonDeliveryFailed)
	}

	if err := request.Approve(s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, request); err != nil {
		if errors.Is(err, status.ErrDuplicateRequest) {
			// Lost the one-grant-per-event race after the wallet was already
			// credited. Compensate the quota and record the rejection; the
			// grant itself needs a manual reversal.
			if releaseErr := s.ledger.Release(ctx, request.RewardID); releaseErr != nil {
				slog.Error("quota release after lost grant race", "request_id", request.ID, "error", releaseErr)
			}
			slog.Error("wallet grant needs manual reversal, event grant limit hit after delivery",
				"request_id", request.ID, "user_id", request.UserID, "reward_id", request.RewardID)

			request.Unwind()
			return s.reject(ctx, request, models.ReasonEventLimit)
		}
		return nil, err
	}

	s.resolved(request)
	return request, nil
}

func (s *RequestService) deliver(ctx context.Context, request *models.RewardRequest, reward *models.Reward) error {
	reference, err := utils.GrantReference(request.ID)
	if err != nil {
		return err
	}

	start := s.now()

	_, err = s.breaker.Execute(ctx, func() (interface{}, error) {
		grantCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
		defer cancel()

		return nil, s.wallet.Deliver(grantCtx, &wallet.GrantRequest{
			RequestID: request.ID,
			UserID:    request.UserID,
			Reference: reference,
			Amount:    reward.Amount,
			Memo:      fmt.Sprintf("reward %s", reward.Name),
		})
	})

	if s.monitor != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		s.monitor.TrackDelivery(outcome, time.Since(start))
	}

	return err
}

// recordTurnedAway handles the insert that hit a unique index: the user
// already holds a live request for this reward. The attempt is still recorded,
// saved directly in its rejected state since rejected rows sit outside the
// indexes.
func (s *RequestService) recordTurnedAway(ctx context.Context, userID, rewardID string) (*models.RewardRequest, error) {
	prior, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	eventID := ""
	if reward, err := s.catalog.GetReward(rewardID); err == nil {
		eventID = reward.EventID
	}

	reason := s.admission.Check(rewardID, eventID, prior)
	if reason == "" {
		// index fired but the listing no longer shows why, keep the generic reason
		reason = models.ReasonDuplicatePending
	}

	now := s.now()
	request := &models.RewardRequest{
		UserID:          userID,
		RewardID:        rewardID,
		EventID:         eventID,
		Status:          models.StatusRejected,
		RejectionReason: reason,
		RejectedAt:      &now,
	}

	if err := s.store.Insert(ctx, request); err != nil {
		return nil, err
	}

	s.resolved(request)
	return request, nil
}

// Approve resolves a pending request by admin decision. It runs the same
// reserve, deliver, approve tail as a submit so an admin approval cannot
// sidestep the quota or the delivery.
func (s *RequestService) Approve(ctx context.Context, requestID string) (*models.RewardRequest, error) {
	request, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Terminal() {
		return nil, status.ErrAlreadyProcessed
	}

	reward, err := s.catalog.GetReward(request.RewardID)
	if err != nil {
		return s.reject(ctx, request, models.ReasonRewardNotFound)
	}
	if request.EventID == "" {
		request.EventID = reward.EventID
	}

	if err := s.ledger.TryReserve(ctx, request.RewardID); err != nil {
		switch {
		case errors.Is(err, status.ErrQuotaExhausted):
			return s.reject(ctx, request, models.ReasonQuotaExhausted)
		case errors.Is(err, status.ErrRewardNotFound):
			return s.reject(ctx, request, models.ReasonRewardNotFound)
		default:
			return nil, err
		}
	}

	return s.settle(ctx, request, reward)
}

// Reject resolves a pending request by admin decision with a free-form reason.
func (s *RequestService) Reject(ctx context.Context, requestID, reason string) (*models.RewardRequest, error) {
	request, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Terminal() {
		return nil, status.ErrAlreadyProcessed
	}

	return s.reject(ctx, request, reason)
}

func (s *RequestService) Get(ctx context.Context, requestID string) (*models.RewardRequest, error) {
	return s.store.Get(ctx, requestID)
}

func (s *RequestService) ListByUser(ctx context.Context, userID string) ([]models.RewardRequest, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *RequestService) List(ctx context.Context, filter Filter) ([]models.RewardRequest, error) {
	return s.store.List(ctx, filter)
}

func (s *RequestService) ListPending(ctx context.Context) ([]models.RewardRequest, error) {
	return s.store.List(ctx, Filter{Status: models.StatusPending})
}

func (s *RequestService) reject(ctx context.Context, request *models.RewardRequest, reason string) (*models.RewardRequest, error) {
	if err := request.Reject(reason, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, request); err != nil {
		return nil, err
	}

	s.resolved(request)
	return request, nil
}

func (s *RequestService) resolved(request *models.RewardRequest) {
	if s.notify != nil {
		s.notify.ClaimResolved(request)
	}
	if s.monitor != nil {
		s.monitor.TrackClaimOutcome(string(request.Status), request.RejectionReason)
	}

	slog.Info("reward request resolved",
		"request_id", request.ID,
		"user_id", request.UserID,
		"reward_id", request.RewardID,
		"status", request.Status,
		"reason", request.RejectionReason,
	)
}

func excludeRequest(requests []models.RewardRequest, id string) []models.RewardRequest {
	filtered := make([]models.RewardRequest, 0, len(requests))
	for _, request := range requests {
		if request.ID == id {
			continue
		}
		filtered = append(filtered, request)
	}
	return filtered
}
