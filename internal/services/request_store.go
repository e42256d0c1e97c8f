package services

import (
	"context"
	"fmt"
	"strings"

	"reward-system/internal/status"
	"reward-system/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// Filter narrows a request listing. Zero values mean "any".
type Filter struct {
	Status  models.RequestStatus
	EventID string
	UserID  string
}

// RequestStore persists reward requests. The engine is the only writer of the
// status column; everything else reads.
type RequestStore struct {
	app core.App
}

func NewRequestStore(app core.App) *RequestStore {
	return &RequestStore{app: app}
}

func (s *RequestStore) Insert(_ context.Context, request *models.RewardRequest) error {
	collection, err := s.app.FindCollectionByNameOrId("reward_requests")
	if err != nil {
		return fmt.Errorf("request store: %w", err)
	}

	record := core.NewRecord(collection)
	applyRequest(record, request)

	if err := s.app.Save(record); err != nil {
		if isUniqueViolation(err) {
			return status.ErrDuplicateRequest
		}
		return fmt.Errorf("request store: insert: %w", err)
	}

	request.ID = record.Id
	request.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *RequestStore) Update(_ context.Context, request *models.RewardRequest) error {
	record, err := s.app.FindRecordById("reward_requests", request.ID)
	if err != nil {
		return status.ErrRequestNotFound
	}

	applyRequest(record, request)

	if err := s.app.Save(record); err != nil {
		if isUniqueViolation(err) {
			return status.ErrDuplicateRequest
		}
		return fmt.Errorf("request store: update: %w", err)
	}

	return nil
}

func (s *RequestStore) Get(_ context.Context, id string) (*models.RewardRequest, error) {
	record, err := s.app.FindRecordById("reward_requests", id)
	if err != nil {
		return nil, status.ErrRequestNotFound
	}

	request := requestFromRecord(record)
	return &request, nil
}

func (s *RequestStore) ListByUser(_ context.Context, userID string) ([]models.RewardRequest, error) {
	records, err := s.app.FindRecordsByFilter(
		"reward_requests",
		"user_id = {:userId}",
		"-created",
		0,
		0,
		dbx.Params{"userId": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("request store: list by user: %w", err)
	}

	return requestsFromRecords(records), nil
}

func (s *RequestStore) List(_ context.Context, filter Filter) ([]models.RewardRequest, error) {
	exprs := []string{"id != ''"}
	params := dbx.Params{}

	if filter.Status != "" {
		exprs = append(exprs, "status = {:status}")
		params["status"] = string(filter.Status)
	}
	if filter.UserID != "" {
		exprs = append(exprs, "user_id = {:userId}")
		params["userId"] = filter.UserID
	}
	if filter.EventID != "" {
		exprs = append(exprs, "event_id = {:eventId}")
		params["eventId"] = filter.EventID
	}

	records, err := s.app.FindRecordsByFilter(
		"reward_requests",
		strings.Join(exprs, " && "),
		"-created",
		0,
		0,
		params,
	)
	if err != nil {
		return nil, fmt.Errorf("request store: list: %w", err)
	}

	return requestsFromRecords(records), nil
}

func applyRequest(record *core.Record, request *models.RewardRequest) {
	record.Set("user_id", request.UserID)
	record.Set("reward_id", request.RewardID)
	record.Set("event_id", request.EventID)
	record.Set("status", string(request.Status))
	record.Set("rejection_reason", request.RejectionReason)
	if request.ApprovedAt != nil {
		record.Set("approved_at", *request.ApprovedAt)
	}
	if request.RejectedAt != nil {
		record.Set("rejected_at", *request.RejectedAt)
	}
}

func requestFromRecord(record *core.Record) models.RewardRequest {
	request := models.RewardRequest{
		ID:              record.Id,
		UserID:          record.GetString("user_id"),
		RewardID:        record.GetString("reward_id"),
		EventID:         record.GetString("event_id"),
		Status:          models.RequestStatus(record.GetString("status")),
		RejectionReason: record.GetString("rejection_reason"),
		CreatedAt:       record.GetDateTime("created").Time(),
	}

	if t := record.GetDateTime("approved_at").Time(); !t.IsZero() {
		approvedAt := t
		request.ApprovedAt = &approvedAt
	}
	if t := record.GetDateTime("rejected_at").Time(); !t.IsZero() {
		rejectedAt := t
		request.RejectedAt = &rejectedAt
	}

	return request
}

func requestsFromRecords(records []*core.Record) []models.RewardRequest {
	requests := make([]models.RewardRequest, 0, len(records))
	for _, record := range records {
		requests = append(requests, requestFromRecord(record))
	}
	return requests
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
