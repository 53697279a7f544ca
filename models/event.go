package models

type EventType string

const (
	EventCreated  EventType = "created"
	EventUpdated  EventType = "updated"
	EventSnapshot EventType = "snapshot"
)

// Event is what dashboards receive over their shop topic.
type Event struct {
	Type     EventType `json:"type"`
	ShopID   string    `json:"shopId"`
	Booking  *Booking  `json:"booking,omitempty"`
	Bookings []Booking `json:"bookings,omitempty"`
}
