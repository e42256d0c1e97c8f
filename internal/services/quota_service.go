package services

import (
	"context"
	"fmt"
	"log/slog"

	"reward-system/internal/status"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// QuotaService is the quota ledger. Reservation is a single conditional
// UPDATE so the availability check and the increment are one indivisible
// statement; there is no separate read-then-write step anywhere on this path.
type QuotaService struct {
	app core.App
}

func NewQuotaService(app core.App) *QuotaService {
	return &QuotaService{app: app}
}

// TryReserve claims one unit of the reward's quota. It returns
// status.ErrQuotaExhausted when no units remain and status.ErrRewardNotFound
// for an unknown reward; in both cases nothing was changed.
func (s *QuotaService) TryReserve(ctx context.Context, rewardID string) error {
	res, err := s.app.DB().
		NewQuery("UPDATE rewards SET claimed = claimed + 1 WHERE id = {:id} AND claimed < quantity").
		Bind(dbx.Params{"id": rewardID}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("quota: reserve: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("quota: reserve rows: %w", err)
	}

	if rows == 0 {
		// no row matched: the reward is either missing or fully claimed
		if _, err := s.app.FindRecordById("rewards", rewardID); err != nil {
			return status.ErrRewardNotFound
		}
		return status.ErrQuotaExhausted
	}

	return nil
}

// Release returns one previously reserved unit. Used to compensate a
// reservation when a later step of the same claim fails.
func (s *QuotaService) Release(ctx context.Context, rewardID string) error {
	res, err := s.app.DB().
		NewQuery("UPDATE rewards SET claimed = claimed - 1 WHERE id = {:id} AND claimed > 0").
		Bind(dbx.Params{"id": rewardID}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("quota: release: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("quota: release rows: %w", err)
	}

	if rows == 0 {
		// a release without a matching reservation indicates a bug upstream
		slog.Warn("quota: release matched no row", "reward_id", rewardID)
	}

	return nil
}
