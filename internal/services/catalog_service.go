package services

import (
	"errors"
	"fmt"
	"time"

	"reward-system/internal/status"
	"reward-system/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// CatalogService is the read/write surface over the event and reward
// collections. The request engine only uses its lookups; the admin CRUD
// routes use the rest.
type CatalogService struct {
	app core.App
}

func NewCatalogService(app core.App) *CatalogService {
	return &CatalogService{app: app}
}

func (s *CatalogService) GetEvent(id string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, status.ErrEventNotFound
	}

	event := eventFromRecord(record)
	return &event, nil
}

func (s *CatalogService) GetReward(id string) (*models.Reward, error) {
	record, err := s.app.FindRecordById("rewards", id)
	if err != nil {
		return nil, status.ErrRewardNotFound
	}

	reward := rewardFromRecord(record)
	return &reward, nil
}

func (s *CatalogService) ListEvents() ([]models.Event, error) {
	records, err := s.app.FindRecordsByFilter("events", "id != ''", "-created", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: list events: %w", err)
	}

	events := make([]models.Event, 0, len(records))
	for _, record := range records {
		events = append(events, eventFromRecord(record))
	}
	return events, nil
}

// ListActiveEvents returns events whose window contains now and whose admin
// toggle is on.
func (s *CatalogService) ListActiveEvents(now time.Time) ([]models.Event, error) {
	events, err := s.ListEvents()
	if err != nil {
		return nil, err
	}

	active := events[:0]
	for _, event := range events {
		if event.ActiveAt(now) {
			active = append(active, event)
		}
	}
	return active, nil
}

func (s *CatalogService) CreateEvent(event *models.Event) (*models.Event, error) {
	if !event.StartTime.Before(event.EndTime) {
		return nil, errors.New("catalog: start time must be before end time")
	}

	collection, err := s.app.FindCollectionByNameOrId("events")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("title", event.Title)
	record.Set("description", event.Description)
	record.Set("start_at", event.StartTime)
	record.Set("end_at", event.EndTime)
	record.Set("is_active", event.IsActive)

	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("catalog: create event: %w", err)
	}

	created := eventFromRecord(record)
	return &created, nil
}

func (s *CatalogService) UpdateEvent(id string, event *models.Event) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, status.ErrEventNotFound
	}

	if !event.StartTime.Before(event.EndTime) {
		return nil, errors.New("catalog: start time must be before end time")
	}

	record.Set("title", event.Title)
	record.Set("description", event.Description)
	record.Set("start_at", event.StartTime)
	record.Set("end_at", event.EndTime)
	record.Set("is_active", event.IsActive)

	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("catalog: update event: %w", err)
	}

	updated := eventFromRecord(record)
	return &updated, nil
}

func (s *CatalogService) DeleteEvent(id string) error {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return status.ErrEventNotFound
	}

	return s.app.Delete(record)
}

func (s *CatalogService) CreateReward(reward *models.Reward) (*models.Reward, error) {
	// owning event must exist
	if _, err := s.GetEvent(reward.EventID); err != nil {
		return nil, err
	}

	collection, err := s.app.FindCollectionByNameOrId("rewards")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("name", reward.Name)
	record.Set("description", reward.Description)
	record.Set("event_id", reward.EventID)
	record.Set("quantity", reward.Quantity)
	record.Set("claimed", 0)
	record.Set("amount", reward.Amount.InexactFloat64())

	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("catalog: create reward: %w", err)
	}

	created := rewardFromRecord(record)
	return &created, nil
}

func (s *CatalogService) UpdateReward(id string, reward *models.Reward) (*models.Reward, error) {
	record, err := s.app.FindRecordById("rewards", id)
	if err != nil {
		return nil, status.ErrRewardNotFound
	}

	record.Set("name", reward.Name)
	record.Set("description", reward.Description)
	record.Set("quantity", reward.Quantity)
	record.Set("amount", reward.Amount.InexactFloat64())

	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("catalog: update reward: %w", err)
	}

	updated := rewardFromRecord(record)
	return &updated, nil
}

func (s *CatalogService) ListRewards() ([]models.Reward, error) {
	records, err := s.app.FindRecordsByFilter("rewards", "id != ''", "-created", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: list rewards: %w", err)
	}

	rewards := make([]models.Reward, 0, len(records))
	for _, record := range records {
		rewards = append(rewards, rewardFromRecord(record))
	}
	return rewards, nil
}

func (s *CatalogService) ListRewardsByEvent(eventID string) ([]models.Reward, error) {
	records, err := s.app.FindRecordsByFilter(
		"rewards",
		"event_id = {:eventId}",
		"-created",
		0,
		0,
		dbx.Params{"eventId": eventID},
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: list rewards by event: %w", err)
	}

	rewards := make([]models.Reward, 0, len(records))
	for _, record := range records {
		rewards = append(rewards, rewardFromRecord(record))
	}
	return rewards, nil
}

// DeleteReward refuses to delete a reward any request references: the request
// table is the audit trail and must stay resolvable.
func (s *CatalogService) DeleteReward(id string) error {
	record, err := s.app.FindRecordById("rewards", id)
	if err != nil {
		return status.ErrRewardNotFound
	}

	existing, err := s.app.FindFirstRecordByFilter(
		"reward_requests",
		"reward_id = {:rewardId}",
		dbx.Params{"rewardId": id},
	)
	if err == nil && existing != nil {
		return status.ErrRewardReferenced
	}

	return s.app.Delete(record)
}

func eventFromRecord(record *core.Record) models.Event {
	return models.Event{
		ID:          record.Id,
		Title:       record.GetString("title"),
		Description: record.GetString("description"),
		StartTime:   record.GetDateTime("start_at").Time(),
		EndTime:     record.GetDateTime("end_at").Time(),
		IsActive:    record.GetBool("is_active"),
	}
}

func rewardFromRecord(record *core.Record) models.Reward {
	return models.Reward{
		ID:          record.Id,
		Name:        record.GetString("name"),
		Description: record.GetString("description"),
		EventID:     record.GetString("event_id"),
		Quantity:    record.GetInt("quantity"),
		Claimed:     record.GetInt("claimed"),
		Amount:      decimal.NewFromFloat(record.GetFloat("amount")),
	}
}
