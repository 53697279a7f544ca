// Package queue turns booking requests into slot claims and ledger writes, and tells
// every watcher of a shop about the result.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"salonq/ledger"
	"salonq/models"
	"salonq/slots"
)

// Directory resolves the shops and services a booking refers to.
type Directory interface {
	Shop(ctx context.Context, id string) (models.Shop, error)
	Service(ctx context.Context, id string) (models.Service, error)
}

// Publisher receives one event per committed mutation.
type Publisher interface {
	Publish(ev models.Event)
}

type Options struct {
	// CustomerMayCancel lets a customer cancel their own booking while it is pending.
	CustomerMayCancel bool
	// MutationTimeout bounds how long a started mutation may run after the caller
	// has gone away.
	MutationTimeout time.Duration
}

type BookingRequest struct {
	ShopID        string  `json:"shopId"`
	ServiceID     string  `json:"serviceId"`
	Date          string  `json:"appointmentDate"`
	TimeSlot      string  `json:"timeSlot"`
	AdvanceAmount float64 `json:"advanceAmount"`
}

type Coordinator struct {
	registry  slots.Registry
	ledger    ledger.Ledger
	directory Directory
	publisher Publisher
	opts      Options
}

func NewCoordinator(reg slots.Registry, led ledger.Ledger, dir Directory, pub Publisher, opts Options) *Coordinator {
	if opts.MutationTimeout <= 0 {
		opts.MutationTimeout = 10 * time.Second
	}
	return &Coordinator{
		registry:  reg,
		ledger:    led,
		directory: dir,
		publisher: pub,
		opts:      opts,
	}
}

// detach keeps a mutation alive when the caller cancels, bounded by MutationTimeout.
func (c *Coordinator) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.opts.MutationTimeout)
}

// CreateBooking claims the requested slot for customer and records a pending booking.
// If the ledger write fails the slot is released again before the error is returned.
func (c *Coordinator) CreateBooking(ctx context.Context, customer models.Principal, req BookingRequest) (models.Booking, error) {
	if customer.UserID == "" {
		return models.Booking{}, &models.ValidationError{Field: "customerId", Reason: "missing customer"}
	}
	if req.ShopID == "" {
		return models.Booking{}, &models.ValidationError{Field: "shopId", Reason: "missing shop reference"}
	}
	if req.ServiceID == "" {
		return models.Booking{}, &models.ValidationError{Field: "serviceId", Reason: "missing service reference"}
	}
	if req.AdvanceAmount <= 0 {
		return models.Booking{}, &models.ValidationError{Field: "advanceAmount", Reason: "must be positive"}
	}
	if !models.ValidDate(req.Date) {
		return models.Booking{}, &models.ValidationError{Field: "appointmentDate", Reason: "want YYYY-MM-DD"}
	}

	shop, err := c.directory.Shop(ctx, req.ShopID)
	if err != nil {
		return models.Booking{}, err
	}
	svc, err := c.directory.Service(ctx, req.ServiceID)
	if err != nil {
		return models.Booking{}, err
	}
	if svc.ShopID != shop.ID {
		return models.Booking{}, &models.ValidationError{Field: "serviceId", Reason: "service is not offered by this shop"}
	}
	if len(shop.SlotLabels) > 0 && !shop.HasSlot(req.TimeSlot) {
		return models.Booking{}, &models.ValidationError{Field: "timeSlot", Reason: fmt.Sprintf("%q is not a slot of this shop", req.TimeSlot)}
	}
	if _, err := models.SlotMinute(req.TimeSlot); err != nil {
		return models.Booking{}, &models.ValidationError{Field: "timeSlot", Reason: err.Error()}
	}

	b := models.Booking{
		ShopID:     shop.ID,
		Service:    svc.Snapshot(),
		CustomerID: customer.UserID,
		Date:       req.Date,
		TimeSlot:   req.TimeSlot,
		Payment:    models.Payment{Amount: req.AdvanceAmount},
	}
	key := b.Key()

	mctx, cancel := c.detach(ctx)
	defer cancel()

	if _, err := c.registry.Claim(mctx, key); err != nil {
		return models.Booking{}, err
	}

	stored, err := c.ledger.Append(mctx, b)
	if err != nil {
		if rerr := c.registry.Release(mctx, key); rerr != nil {
			log.Printf("queue: release of %s after failed append: %v", key, rerr)
		}
		return models.Booking{}, err
	}

	// stored is the version-1 record; a transition that lands before this publish
	// goes out as version 2 and the hub orders the pair.
	c.publisher.Publish(models.Event{Type: models.EventCreated, ShopID: stored.ShopID, Booking: &stored})
	return stored, nil
}

// UpdateStatus moves a booking along its lifecycle on behalf of actor. Only the owner
// of the booking's shop may do so, except that a customer may cancel their own
// pending booking when the policy allows it.
func (c *Coordinator) UpdateStatus(ctx context.Context, bookingID string, actor models.Principal, to models.BookingStatus) (models.Booking, error) {
	if !to.Valid() {
		return models.Booking{}, &models.ValidationError{Field: "status", Reason: "unknown status " + string(to)}
	}
	current, err := c.ledger.Get(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if err := c.authorize(ctx, current, actor, to); err != nil {
		return models.Booking{}, err
	}

	mctx, cancel := c.detach(ctx)
	defer cancel()

	updated, err := c.ledger.Transition(mctx, bookingID, to)
	if err != nil {
		return models.Booking{}, err
	}
	if updated.Status == models.StatusCancelled {
		if err := c.registry.Release(mctx, updated.Key()); err != nil {
			log.Printf("queue: release of %s after cancelling %s: %v", updated.Key(), updated.ID, err)
		}
	}
	c.publisher.Publish(models.Event{Type: models.EventUpdated, ShopID: updated.ShopID, Booking: &updated})
	return updated, nil
}

func (c *Coordinator) authorize(ctx context.Context, b models.Booking, actor models.Principal, to models.BookingStatus) error {
	shop, err := c.directory.Shop(ctx, b.ShopID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.AuthorizationError{ActorID: actor.UserID, ShopID: b.ShopID}
		}
		return err
	}
	if actor.UserID != "" && shop.OwnerID == actor.UserID {
		return nil
	}
	if c.opts.CustomerMayCancel &&
		to == models.StatusCancelled &&
		b.Status == models.StatusPending &&
		actor.UserID != "" && b.CustomerID == actor.UserID {
		return nil
	}
	return &models.AuthorizationError{ActorID: actor.UserID, ShopID: b.ShopID}
}

// QueryQueue returns the live queue of a shop for one day.
func (c *Coordinator) QueryQueue(ctx context.Context, shopID, date string) ([]models.Booking, error) {
	if !models.ValidDate(date) {
		return nil, &models.ValidationError{Field: "date", Reason: "want YYYY-MM-DD"}
	}
	return c.ledger.QueryQueue(ctx, shopID, date)
}

// Get returns one booking if actor is its customer or the owner of its shop.
func (c *Coordinator) Get(ctx context.Context, bookingID string, actor models.Principal) (models.Booking, error) {
	b, err := c.ledger.Get(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if b.CustomerID == actor.UserID {
		return b, nil
	}
	shop, err := c.directory.Shop(ctx, b.ShopID)
	if err != nil {
		return models.Booking{}, err
	}
	if shop.OwnerID != actor.UserID {
		return models.Booking{}, &models.AuthorizationError{ActorID: actor.UserID, ShopID: b.ShopID}
	}
	return b, nil
}

func (c *Coordinator) CustomerBookings(ctx context.Context, customerID string) ([]models.Booking, error) {
	return c.ledger.ListByCustomer(ctx, customerID)
}

// AvailableSlots lists the shop's slot labels for date that no live booking holds.
func (c *Coordinator) AvailableSlots(ctx context.Context, shopID, date string) ([]string, error) {
	shop, err := c.directory.Shop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	live, err := c.QueryQueue(ctx, shopID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[int]bool, len(live))
	for _, b := range live {
		taken[b.SlotMinute] = true
	}
	free := make([]string, 0, len(shop.SlotLabels))
	for _, label := range shop.SlotLabels {
		if m, err := models.SlotMinute(label); err == nil && !taken[m] {
			free = append(free, label)
		}
	}
	return free, nil
}
