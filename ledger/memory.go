package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"salonq/models"
)

type record struct {
	mu sync.Mutex
	b  models.Booking
}

// Memory keeps bookings in process. The map lock only guards membership;
// each record carries its own lock so transitions on different bookings never wait
// on each other.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]*record
	byShopDay  map[string][]*record
	byCustomer map[string][]*record
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]*record),
		byShopDay:  make(map[string][]*record),
		byCustomer: make(map[string][]*record),
		now:        time.Now,
	}
}

func shopDay(shopID, date string) string { return shopID + "|" + date }

func (m *Memory) Append(ctx context.Context, b models.Booking) (models.Booking, error) {
	b, err := prepare(b, m.now())
	if err != nil {
		return models.Booking{}, err
	}
	r := &record{b: b}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[b.ID]; dup {
		return models.Booking{}, &models.ValidationError{Field: "id", Reason: "duplicate booking id"}
	}
	m.byID[b.ID] = r
	k := shopDay(b.ShopID, b.Date)
	m.byShopDay[k] = append(m.byShopDay[k], r)
	m.byCustomer[b.CustomerID] = append(m.byCustomer[b.CustomerID], r)
	return b, nil
}

func (m *Memory) lookup(id string) (*record, error) {
	m.mu.RLock()
	r, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &models.NotFoundError{Kind: "booking", ID: id}
	}
	return r, nil
}

func (m *Memory) Transition(ctx context.Context, id string, to models.BookingStatus) (models.Booking, error) {
	if err := checkTarget(to); err != nil {
		return models.Booking{}, err
	}
	r, err := m.lookup(id)
	if err != nil {
		return models.Booking{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !models.CanTransition(r.b.Status, to) {
		return models.Booking{}, &models.InvalidTransitionError{From: r.b.Status, To: to}
	}
	r.b.Status = to
	r.b.Version++
	r.b.UpdatedAt = m.now()
	return r.b, nil
}

func (m *Memory) Get(ctx context.Context, id string) (models.Booking, error) {
	r, err := m.lookup(id)
	if err != nil {
		return models.Booking{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.b, nil
}

func (m *Memory) QueryQueue(ctx context.Context, shopID, date string) ([]models.Booking, error) {
	m.mu.RLock()
	recs := append([]*record(nil), m.byShopDay[shopDay(shopID, date)]...)
	m.mu.RUnlock()

	out := make([]models.Booking, 0, len(recs))
	for _, r := range recs {
		r.mu.Lock()
		b := r.b
		r.mu.Unlock()
		if !b.Status.Terminal() {
			out = append(out, b)
		}
	}
	sortQueue(out)
	return out, nil
}

func (m *Memory) ListByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	m.mu.RLock()
	recs := append([]*record(nil), m.byCustomer[customerID]...)
	m.mu.RUnlock()

	out := make([]models.Booking, 0, len(recs))
	for _, r := range recs {
		r.mu.Lock()
		out = append(out, r.b)
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
