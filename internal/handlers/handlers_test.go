package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"reward-system/internal/services"
	"reward-system/internal/services/wallet"
	"reward-system/internal/status"
	"reward-system/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestEvent(method, target, body string) (*core.RequestEvent, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()

	event := &core.RequestEvent{}
	event.Request = req
	event.Response = rec

	return event, rec
}

func authRecord(role string) *core.Record {
	collection := core.NewAuthCollection("users")
	collection.Fields.Add(&core.SelectField{
		Name:      "role",
		Values:    []string{"user", "admin", "auditor"},
		MaxSelect: 1,
	})

	record := core.NewRecord(collection)
	record.Set("role", role)
	return record
}

func assertApiError(t *testing.T, err error, wantStatus int) {
	t.Helper()

	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, wantStatus, apiErr.Status)
}

// ---------------------------------------------------------------------------
// request handler

type memStore struct {
	mu  sync.Mutex
	seq int
	m   map[string]*models.RewardRequest
}

func newMemStore() *memStore {
	return &memStore{m: map[string]*models.RewardRequest{}}
}

func (s *memStore) Insert(_ context.Context, request *models.RewardRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	request.ID = fmt.Sprintf("req-%d", s.seq)
	request.CreatedAt = time.Now()
	clone := *request
	s.m[request.ID] = &clone
	return nil
}

func (s *memStore) Update(_ context.Context, request *models.RewardRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[request.ID]; !ok {
		return status.ErrRequestNotFound
	}
	clone := *request
	s.m[request.ID] = &clone
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.RewardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.m[id]
	if !ok {
		return nil, status.ErrRequestNotFound
	}
	clone := *request
	return &clone, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string) ([]models.RewardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.RewardRequest{}
	for _, request := range s.m {
		if request.UserID == userID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (s *memStore) List(_ context.Context, filter services.Filter) ([]models.RewardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.RewardRequest{}
	for _, request := range s.m {
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		out = append(out, *request)
	}
	return out, nil
}

type memLedger struct{}

func (memLedger) TryReserve(_ context.Context, _ string) error { return nil }
func (memLedger) Release(_ context.Context, _ string) error    { return nil }

type memCatalog struct{}

func (memCatalog) GetEvent(id string) (*models.Event, error) {
	now := time.Now()
	return &models.Event{
		ID:        id,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		IsActive:  true,
	}, nil
}

func (memCatalog) GetReward(id string) (*models.Reward, error) {
	return &models.Reward{ID: id, Name: "Bonus", EventID: "event-1", Quantity: 10}, nil
}

type memDeliverer struct{}

func (memDeliverer) Deliver(_ context.Context, _ *wallet.GrantRequest) error { return nil }

func newRequestHandlerFixture(t *testing.T) (*RequestHandler, *memStore, *models.RewardRequest) {
	t.Helper()

	store := newMemStore()
	pending := &models.RewardRequest{
		UserID:   "user-1",
		RewardID: "reward-1",
		EventID:  "event-1",
		Status:   models.StatusPending,
	}
	require.NoError(t, store.Insert(context.Background(), pending))

	service := services.NewRequestService(store, memLedger{}, memCatalog{}, memDeliverer{}, nil, nil, nil, time.Second)

	return NewRequestHandler(nil, service), store, pending
}

func TestApproveRequest_AuditorAllowed(t *testing.T) {
	handler, store, pending := newRequestHandlerFixture(t)

	event, rec := newRequestEvent(http.MethodPost, "/api/rewards/approve/"+pending.ID, "")
	event.Request.SetPathValue("id", pending.ID)
	event.Auth = authRecord("auditor")

	require.NoError(t, handler.ApproveRequest(event))
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestRejectRequest_AuditorAllowed(t *testing.T) {
	handler, store, pending := newRequestHandlerFixture(t)

	event, rec := newRequestEvent(http.MethodPost, "/api/rewards/reject/"+pending.ID, `{"reason":"failed manual review"}`)
	event.Request.SetPathValue("id", pending.ID)
	event.Auth = authRecord("auditor")

	require.NoError(t, handler.RejectRequest(event))
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, "failed manual review", stored.RejectionReason)
}

func TestApproveRequest_MemberForbidden(t *testing.T) {
	handler, store, pending := newRequestHandlerFixture(t)

	event, _ := newRequestEvent(http.MethodPost, "/api/rewards/approve/"+pending.ID, "")
	event.Request.SetPathValue("id", pending.ID)
	event.Auth = authRecord("user")

	assertApiError(t, handler.ApproveRequest(event), http.StatusForbidden)

	stored, err := store.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestApproveRequest_Unauthenticated(t *testing.T) {
	handler, _, pending := newRequestHandlerFixture(t)

	event, _ := newRequestEvent(http.MethodPost, "/api/rewards/approve/"+pending.ID, "")
	event.Request.SetPathValue("id", pending.ID)

	assertApiError(t, handler.ApproveRequest(event), http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// catalog handler

type stubCatalog struct {
	deleteRewardErr error
}

func (c *stubCatalog) GetEvent(string) (*models.Event, error) {
	return nil, status.ErrEventNotFound
}

func (c *stubCatalog) ListEvents() ([]models.Event, error) { return nil, nil }

func (c *stubCatalog) ListActiveEvents(time.Time) ([]models.Event, error) { return nil, nil }

func (c *stubCatalog) CreateEvent(*models.Event) (*models.Event, error) { return nil, nil }

func (c *stubCatalog) UpdateEvent(string, *models.Event) (*models.Event, error) { return nil, nil }

func (c *stubCatalog) DeleteEvent(string) error { return nil }

func (c *stubCatalog) ListRewards() ([]models.Reward, error) { return nil, nil }

func (c *stubCatalog) ListRewardsByEvent(string) ([]models.Reward, error) { return nil, nil }

func (c *stubCatalog) CreateReward(*models.Reward) (*models.Reward, error) { return nil, nil }

func (c *stubCatalog) UpdateReward(string, *models.Reward) (*models.Reward, error) { return nil, nil }

func (c *stubCatalog) DeleteReward(string) error { return c.deleteRewardErr }

// a reward with recorded requests must answer 409, not 400
func TestDeleteReward_ReferencedConflict(t *testing.T) {
	handler := NewCatalogHandler(nil, &stubCatalog{deleteRewardErr: status.ErrRewardReferenced})

	event, _ := newRequestEvent(http.MethodDelete, "/api/rewards/reward-1", "")
	event.Request.SetPathValue("id", "reward-1")
	event.Auth = authRecord("admin")

	assertApiError(t, handler.DeleteReward(event), http.StatusConflict)
}

func TestDeleteReward_AuditorForbidden(t *testing.T) {
	handler := NewCatalogHandler(nil, &stubCatalog{})

	event, _ := newRequestEvent(http.MethodDelete, "/api/rewards/reward-1", "")
	event.Request.SetPathValue("id", "reward-1")
	event.Auth = authRecord("auditor")

	assertApiError(t, handler.DeleteReward(event), http.StatusForbidden)
}
