package models

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// SlotKey is the unit of booking contention.
type SlotKey struct {
	ShopID string `json:"shopId" bson:"shopId"`
	Date   string `json:"date" bson:"date"`
	Time   string `json:"time" bson:"time"`
}

func (k SlotKey) String() string {
	return k.ShopID + "|" + k.Date + "|" + k.Time
}

// Day parses the key's calendar date.
func (k SlotKey) Day() (time.Time, error) {
	return time.Parse(DateLayout, k.Date)
}

var slotLayouts = []string{"15:04", "3:04 PM", "03:04 PM", "3:04PM"}

// SlotMinute converts a slot label ("10:00", "10:30 AM") to minutes after midnight.
func SlotMinute(label string) (int, error) {
	l := strings.ToUpper(strings.TrimSpace(label))
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, l); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised slot label %q", label)
}

// SlotTime formats minutes after midnight as the canonical "HH:MM" used in slot keys.
func SlotTime(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// CanonicalSlot rewrites a slot label in its "HH:MM" form, so "10:00 AM" and "10:00"
// contend for the same key.
func CanonicalSlot(label string) (string, error) {
	m, err := SlotMinute(label)
	if err != nil {
		return "", err
	}
	return SlotTime(m), nil
}

// ValidDate reports whether d is a YYYY-MM-DD calendar date.
func ValidDate(d string) bool {
	_, err := time.Parse(DateLayout, d)
	return err == nil
}
