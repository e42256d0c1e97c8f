package models

import (
	"github.com/shopspring/decimal"
)

type Reward struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	EventID     string          `json:"event_id"`
	Quantity    int             `json:"quantity"` // total quota
	Claimed     int             `json:"claimed"`  // never exceeds Quantity
	Amount      decimal.Decimal `json:"amount"`   // point value granted on delivery
}

// Remaining returns the number of units still available for reservation.
func (r Reward) Remaining() int {
	if r.Claimed >= r.Quantity {
		return 0
	}
	return r.Quantity - r.Claimed
}
