package models

import "time"

type Shop struct {
	ID         string    `json:"_id" bson:"id"`
	OwnerID    string    `json:"ownerId" bson:"ownerId"`
	Name       string    `json:"name" bson:"name"`
	Address    string    `json:"address" bson:"address"`
	Banner     string    `json:"banner,omitempty" bson:"banner,omitempty"`
	SlotLabels []string  `json:"slotLabels,omitempty" bson:"slotLabels,omitempty"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasSlot reports whether label is one of the shop's bookable slots.
func (s Shop) HasSlot(label string) bool {
	for _, l := range s.SlotLabels {
		if l == label {
			return true
		}
	}
	return false
}

type Service struct {
	ID              string    `json:"_id" bson:"id"`
	ShopID          string    `json:"shopId" bson:"shopId"`
	Name            string    `json:"name" bson:"name"`
	Price           float64   `json:"price" bson:"price"`
	DurationMinutes int       `json:"durationMinutes" bson:"durationMinutes"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}

func (s Service) Snapshot() ServiceSnapshot {
	return ServiceSnapshot{
		ID:              s.ID,
		Name:            s.Name,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
	}
}
