// Package slots tracks which (shop, date, time) slots are taken.
package slots

import (
	"context"
	"time"

	"salonq/models"
)

// Ticket is proof of a successful claim.
type Ticket struct {
	Key       models.SlotKey `json:"key"`
	Token     string         `json:"token"`
	ClaimedAt time.Time      `json:"claimedAt"`
}

// Registry hands out slots. Claim must be linearizable per key: of any set of
// concurrent claims for one key exactly one wins, the rest get *models.SlotTakenError.
// Release is idempotent.
type Registry interface {
	Claim(ctx context.Context, key models.SlotKey) (Ticket, error)
	Release(ctx context.Context, key models.SlotKey) error
	Taken(ctx context.Context, key models.SlotKey) (bool, error)
}

// expiry is the instant after which a claim on key no longer needs to be remembered.
func expiry(key models.SlotKey, retention time.Duration) time.Time {
	day, err := key.Day()
	if err != nil {
		return time.Now().Add(retention)
	}
	return day.AddDate(0, 0, 1).Add(retention)
}
