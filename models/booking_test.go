package models

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{StatusPending, StatusInChair}:   true,
		{StatusPending, StatusCancelled}: true,
		{StatusInChair, StatusCompleted}: true,
		{StatusInChair, StatusCancelled}: true,
	}
	all := []BookingStatus{StatusPending, StatusInChair, StatusCompleted, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			got := CanTransition(from, to)
			if got != allowed[[2]BookingStatus{from, to}] {
				t.Errorf("CanTransition(%s, %s) = %v", from, to, got)
			}
		}
	}
}

func TestPredecessors(t *testing.T) {
	preds := Predecessors(StatusCancelled)
	if len(preds) != 2 {
		t.Fatalf("expected 2 predecessors of cancelled, got %v", preds)
	}
	if len(Predecessors(StatusPending)) != 0 {
		t.Fatal("pending must have no predecessors")
	}
}

func TestSlotMinute(t *testing.T) {
	cases := map[string]int{
		"10:00":    600,
		"09:30":    570,
		"10:30 AM": 630,
		"12:00 PM": 720,
		"1:30 pm":  810,
	}
	for label, want := range cases {
		got, err := SlotMinute(label)
		if err != nil {
			t.Fatalf("SlotMinute(%q): %v", label, err)
		}
		if got != want {
			t.Errorf("SlotMinute(%q) = %d, want %d", label, got, want)
		}
	}
	if _, err := SlotMinute("noon"); err == nil {
		t.Error("expected error for unparseable label")
	}
}

func TestBookingKeyIsCanonical(t *testing.T) {
	a := Booking{ShopID: "s1", Date: "2026-03-02", TimeSlot: "10:00"}
	b := Booking{ShopID: "s1", Date: "2026-03-02", TimeSlot: "10:00 am"}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %v vs %v", a.Key(), b.Key())
	}
	if got := b.Key().Time; got != "10:00" {
		t.Errorf("key time = %q, want 10:00", got)
	}
	c := Booking{ShopID: "s1", Date: "2026-03-02", TimeSlot: "1:30 PM"}
	if got := c.Key().Time; got != "13:30" {
		t.Errorf("key time = %q, want 13:30", got)
	}
}

func TestBookingLess(t *testing.T) {
	now := time.Now()
	a := Booking{ID: "a", SlotMinute: 600, CreatedAt: now}
	b := Booking{ID: "b", SlotMinute: 630, CreatedAt: now.Add(-time.Hour)}
	c := Booking{ID: "c", SlotMinute: 600, CreatedAt: now.Add(time.Second)}
	if !a.Less(b) || !a.Less(c) || b.Less(c) {
		t.Fatal("queue order must be slot time, then creation time")
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = &SlotTakenError{Key: SlotKey{ShopID: "s", Date: "2026-01-01", Time: "10:00"}}
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatal("SlotTakenError should match ErrSlotTaken")
	}
	err = &InvalidTransitionError{From: StatusCompleted, To: StatusPending}
	if !errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
		t.Fatal("InvalidTransitionError matched the wrong sentinel")
	}
	var nf *NotFoundError
	if !errors.As(&NotFoundError{Kind: "booking", ID: "x"}, &nf) {
		t.Fatal("errors.As failed")
	}
}
