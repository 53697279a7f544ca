package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusInChair   BookingStatus = "in-chair"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// transitions is the forward-only lifecycle graph. completed and cancelled are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending: {StatusInChair, StatusCancelled},
	StatusInChair: {StatusCompleted, StatusCancelled},
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInChair, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Predecessors returns the statuses from which to may be reached.
func Predecessors(to BookingStatus) []BookingStatus {
	var out []BookingStatus
	for from, nexts := range transitions {
		for _, n := range nexts {
			if n == to {
				out = append(out, from)
			}
		}
	}
	return out
}

// ServiceSnapshot freezes the service as it was when the booking was made,
// so editing or deleting the service later leaves history intact.
type ServiceSnapshot struct {
	ID              string  `json:"_id" bson:"id"`
	Name            string  `json:"name" bson:"name"`
	Price           float64 `json:"price" bson:"price"`
	DurationMinutes int     `json:"durationMinutes" bson:"durationMinutes"`
}

type Payment struct {
	Amount float64 `json:"amount" bson:"amount"`
}

type Booking struct {
	ID         string          `json:"_id" bson:"id"`
	ShopID     string          `json:"shopId" bson:"shopId"`
	Service    ServiceSnapshot `json:"serviceId" bson:"service"`
	CustomerID string          `json:"customerId" bson:"customerId"`
	Date       string          `json:"appointmentDate" bson:"date"`
	TimeSlot   string          `json:"timeSlot" bson:"timeSlot"`
	SlotMinute int             `json:"-" bson:"slotMinute"`
	Payment    Payment         `json:"payment" bson:"payment"`
	Status     BookingStatus   `json:"status" bson:"status"`
	Version    int64           `json:"version" bson:"version"`
	CreatedAt  time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// Key returns the slot the booking occupies.
// Key is the slot the booking holds. Labels that fail to parse are kept verbatim.
func (b Booking) Key() SlotKey {
	t, err := CanonicalSlot(b.TimeSlot)
	if err != nil {
		t = b.TimeSlot
	}
	return SlotKey{ShopID: b.ShopID, Date: b.Date, Time: t}
}

// Less orders bookings the way the live queue renders them.
func (b Booking) Less(o Booking) bool {
	if b.SlotMinute != o.SlotMinute {
		return b.SlotMinute < o.SlotMinute
	}
	if !b.CreatedAt.Equal(o.CreatedAt) {
		return b.CreatedAt.Before(o.CreatedAt)
	}
	return b.ID < o.ID
}
