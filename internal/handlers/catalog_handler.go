package handlers

import (
	"errors"
	"net/http"
	"time"

	"reward-system/internal/status"
	"reward-system/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// catalogStore is the slice of CatalogService these handlers use.
type catalogStore interface {
	GetEvent(id string) (*models.Event, error)
	ListEvents() ([]models.Event, error)
	ListActiveEvents(now time.Time) ([]models.Event, error)
	CreateEvent(event *models.Event) (*models.Event, error)
	UpdateEvent(id string, event *models.Event) (*models.Event, error)
	DeleteEvent(id string) error
	ListRewards() ([]models.Reward, error)
	ListRewardsByEvent(eventID string) ([]models.Reward, error)
	CreateReward(reward *models.Reward) (*models.Reward, error)
	UpdateReward(id string, reward *models.Reward) (*models.Reward, error)
	DeleteReward(id string) error
}

type CatalogHandler struct {
	app            *pocketbase.PocketBase
	catalogService catalogStore
}

func NewCatalogHandler(app *pocketbase.PocketBase, catalogService catalogStore) *CatalogHandler {
	return &CatalogHandler{
		app:            app,
		catalogService: catalogService,
	}
}

type eventPayload struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsActive    bool      `json:"is_active"`
}

type rewardPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	EventID     string  `json:"event_id"`
	Quantity    int     `json:"quantity"`
	Amount      float64 `json:"amount"`
}

// GetEvents - List all events
func (h *CatalogHandler) GetEvents(e *core.RequestEvent) error {
	events, err := h.catalogService.ListEvents()
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"events": events, "total": len(events)})
}

// GetActiveEvents - List events currently inside their claim window
func (h *CatalogHandler) GetActiveEvents(e *core.RequestEvent) error {
	events, err := h.catalogService.ListActiveEvents(time.Now())
	if err != nil {
		return apis.NewBadRequestError("Failed to list active events", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"events": events, "total": len(events)})
}

// GetEvent - Get one event with its rewards
func (h *CatalogHandler) GetEvent(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("id")

	event, err := h.catalogService.GetEvent(eventID)
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	rewards, err := h.catalogService.ListRewardsByEvent(eventID)
	if err != nil {
		return apis.NewBadRequestError("Failed to list event rewards", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"event": event, "rewards": rewards})
}

// CreateEvent - Create an event (admin)
func (h *CatalogHandler) CreateEvent(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req eventPayload
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Title == "" {
		return apis.NewBadRequestError("Title is required", nil)
	}

	event, err := h.catalogService.CreateEvent(&models.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return apis.NewBadRequestError("Failed to create event: "+err.Error(), err)
	}

	return e.JSON(http.StatusCreated, event)
}

// UpdateEvent - Update an event (admin)
func (h *CatalogHandler) UpdateEvent(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req eventPayload
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	event, err := h.catalogService.UpdateEvent(e.Request.PathValue("id"), &models.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsActive:    req.IsActive,
	})
	if err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return apis.NewNotFoundError("Event not found", err)
		}
		return apis.NewBadRequestError("Failed to update event: "+err.Error(), err)
	}

	return e.JSON(http.StatusOK, event)
}

// DeleteEvent - Delete an event (admin)
func (h *CatalogHandler) DeleteEvent(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	if err := h.catalogService.DeleteEvent(e.Request.PathValue("id")); err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return apis.NewNotFoundError("Event not found", err)
		}
		return apis.NewBadRequestError("Failed to delete event", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Event deleted"})
}

// GetRewards - List all rewards
func (h *CatalogHandler) GetRewards(e *core.RequestEvent) error {
	rewards, err := h.catalogService.ListRewards()
	if err != nil {
		return apis.NewBadRequestError("Failed to list rewards", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"rewards": rewards, "total": len(rewards)})
}

// CreateReward - Create a reward under an event (admin)
func (h *CatalogHandler) CreateReward(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req rewardPayload
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Name == "" || req.EventID == "" {
		return apis.NewBadRequestError("Name and event ID are required", nil)
	}
	if req.Quantity < 0 {
		return apis.NewBadRequestError("Quantity cannot be negative", nil)
	}

	reward, err := h.catalogService.CreateReward(&models.Reward{
		Name:        req.Name,
		Description: req.Description,
		EventID:     req.EventID,
		Quantity:    req.Quantity,
		Amount:      decimal.NewFromFloat(req.Amount),
	})
	if err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return apis.NewNotFoundError("Event not found", err)
		}
		return apis.NewBadRequestError("Failed to create reward: "+err.Error(), err)
	}

	return e.JSON(http.StatusCreated, reward)
}

// UpdateReward - Update a reward (admin)
func (h *CatalogHandler) UpdateReward(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req rewardPayload
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Quantity < 0 {
		return apis.NewBadRequestError("Quantity cannot be negative", nil)
	}

	reward, err := h.catalogService.UpdateReward(e.Request.PathValue("id"), &models.Reward{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		Amount:      decimal.NewFromFloat(req.Amount),
	})
	if err != nil {
		if errors.Is(err, status.ErrRewardNotFound) {
			return apis.NewNotFoundError("Reward not found", err)
		}
		return apis.NewBadRequestError("Failed to update reward: "+err.Error(), err)
	}

	return e.JSON(http.StatusOK, reward)
}

// DeleteReward - Delete a reward with no recorded requests (admin)
func (h *CatalogHandler) DeleteReward(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	if err := h.catalogService.DeleteReward(e.Request.PathValue("id")); err != nil {
		switch {
		case errors.Is(err, status.ErrRewardNotFound):
			return apis.NewNotFoundError("Reward not found", err)
		case errors.Is(err, status.ErrRewardReferenced):
			return apis.NewApiError(http.StatusConflict, "Reward has recorded requests and cannot be deleted", err)
		}
		return apis.NewBadRequestError("Failed to delete reward", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Reward deleted"})
}
