package handlers

import (
	"errors"
	"net/http"

	"reward-system/internal/services"
	"reward-system/internal/status"
	"reward-system/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type RequestHandler struct {
	app            *pocketbase.PocketBase
	requestService *services.RequestService
}

func NewRequestHandler(app *pocketbase.PocketBase, requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{
		app:            app,
		requestService: requestService,
	}
}

// SubmitRequest - Submit a reward claim for the authenticated user
func (h *RequestHandler) SubmitRequest(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		RewardID string `json:"reward_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.RewardID == "" {
		return apis.NewBadRequestError("Reward ID is required", nil)
	}

	request, err := h.requestService.Submit(e.Request.Context(), e.Auth.Id, req.RewardID)
	if err != nil {
		return apis.NewBadRequestError("Failed to submit request: "+err.Error(), err)
	}

	// A rejected claim is still a successfully decided request; the decision
	// travels in the body, not the status code.
	return e.JSON(http.StatusOK, request)
}

// ApproveRequest - Resolve a pending request as approved (staff action)
func (h *RequestHandler) ApproveRequest(e *core.RequestEvent) error {
	if err := requireStaff(e); err != nil {
		return err
	}

	requestID := e.Request.PathValue("id")

	request, err := h.requestService.Approve(e.Request.Context(), requestID)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrRequestNotFound):
			return apis.NewNotFoundError("Request not found", err)
		case errors.Is(err, status.ErrAlreadyProcessed):
			return apis.NewBadRequestError("Request already processed", err)
		}
		return apis.NewBadRequestError("Failed to approve request: "+err.Error(), err)
	}

	return e.JSON(http.StatusOK, request)
}

// RejectRequest - Resolve a pending request as rejected (staff action)
func (h *RequestHandler) RejectRequest(e *core.RequestEvent) error {
	if err := requireStaff(e); err != nil {
		return err
	}

	requestID := e.Request.PathValue("id")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Reason == "" {
		req.Reason = "rejected by admin"
	}

	request, err := h.requestService.Reject(e.Request.Context(), requestID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrRequestNotFound):
			return apis.NewNotFoundError("Request not found", err)
		case errors.Is(err, status.ErrAlreadyProcessed):
			return apis.NewBadRequestError("Request already processed", err)
		}
		return apis.NewBadRequestError("Failed to reject request: "+err.Error(), err)
	}

	return e.JSON(http.StatusOK, request)
}

// GetUserRequests - List one user's requests. Users see their own history,
// staff can see anyone's.
func (h *RequestHandler) GetUserRequests(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	userID := e.Request.PathValue("userId")
	if userID != e.Auth.Id && !isStaff(e) {
		return apis.NewForbiddenError("Cannot view another user's requests", nil)
	}

	requests, err := h.requestService.ListByUser(e.Request.Context(), userID)
	if err != nil {
		return apis.NewBadRequestError("Failed to list requests", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"requests": requests,
		"total":    len(requests),
	})
}

// GetAllRequests - List requests across users with optional filters (staff)
func (h *RequestHandler) GetAllRequests(e *core.RequestEvent) error {
	if err := requireStaff(e); err != nil {
		return err
	}

	query := e.Request.URL.Query()
	filter := services.Filter{
		Status:  models.RequestStatus(query.Get("status")),
		EventID: query.Get("event_id"),
		UserID:  query.Get("user_id"),
	}

	requests, err := h.requestService.List(e.Request.Context(), filter)
	if err != nil {
		return apis.NewBadRequestError("Failed to list requests", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"requests": requests,
		"total":    len(requests),
	})
}

// GetPendingRequests - List requests awaiting an admin decision (staff)
func (h *RequestHandler) GetPendingRequests(e *core.RequestEvent) error {
	if err := requireStaff(e); err != nil {
		return err
	}

	requests, err := h.requestService.ListPending(e.Request.Context())
	if err != nil {
		return apis.NewBadRequestError("Failed to list pending requests", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"requests": requests,
		"total":    len(requests),
	})
}

func requireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if e.Auth.GetString("role") != "admin" {
		return apis.NewForbiddenError("Admin access required", nil)
	}
	return nil
}

// requireStaff admits admins and auditors. Auditors can review and resolve
// requests; catalog changes stay admin only.
func requireStaff(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if !isStaff(e) {
		return apis.NewForbiddenError("Staff access required", nil)
	}
	return nil
}

func isStaff(e *core.RequestEvent) bool {
	role := e.Auth.GetString("role")
	return role == "admin" || role == "auditor"
}
