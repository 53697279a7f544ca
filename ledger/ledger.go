// Package ledger is the authoritative store of bookings and their status.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"salonq/models"
)

type Ledger interface {
	// Append stores b as a new pending booking and returns the stored record.
	Append(ctx context.Context, b models.Booking) (models.Booking, error)
	// Transition moves a booking along the lifecycle graph.
	Transition(ctx context.Context, id string, to models.BookingStatus) (models.Booking, error)
	Get(ctx context.Context, id string) (models.Booking, error)
	// QueryQueue returns the non-terminal bookings of a shop for one day in queue order.
	QueryQueue(ctx context.Context, shopID, date string) ([]models.Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Booking, error)
}

// prepare validates a new booking and fills in the fields the ledger owns.
func prepare(b models.Booking, now time.Time) (models.Booking, error) {
	switch {
	case b.ShopID == "":
		return b, &models.ValidationError{Field: "shopId", Reason: "missing shop reference"}
	case b.Service.ID == "":
		return b, &models.ValidationError{Field: "serviceId", Reason: "missing service reference"}
	case b.CustomerID == "":
		return b, &models.ValidationError{Field: "customerId", Reason: "missing customer"}
	case b.Payment.Amount <= 0:
		return b, &models.ValidationError{Field: "advanceAmount", Reason: "must be positive"}
	case !models.ValidDate(b.Date):
		return b, &models.ValidationError{Field: "appointmentDate", Reason: "want YYYY-MM-DD"}
	}
	minute, err := models.SlotMinute(b.TimeSlot)
	if err != nil {
		return b, &models.ValidationError{Field: "timeSlot", Reason: err.Error()}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.SlotMinute = minute
	b.Status = models.StatusPending
	b.Version = 1
	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

func checkTarget(to models.BookingStatus) error {
	if !to.Valid() {
		return &models.ValidationError{Field: "status", Reason: "unknown status " + string(to)}
	}
	return nil
}

func sortQueue(bs []models.Booking) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].Less(bs[j]) })
}
