package broadcast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"salonq/models"
)

func bookingEvent(typ models.EventType, shopID, id string, version int64, status models.BookingStatus) models.Event {
	return models.Event{
		Type:   typ,
		ShopID: shopID,
		Booking: &models.Booking{
			ID:        id,
			ShopID:    shopID,
			Status:    status,
			Version:   version,
			CreatedAt: time.Now(),
		},
	}
}

func created(shopID, id string) models.Event {
	return bookingEvent(models.EventCreated, shopID, id, 1, models.StatusPending)
}

func recv(t *testing.T, s *Subscription) models.Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return models.Event{}
}

func expectNone(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		if ok {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func expectClosed(t *testing.T, s *Subscription) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-s.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription was not closed")
		}
	}
}

func TestPublishReachesOnlyTheShop(t *testing.T) {
	h := NewHub(8)
	s1 := h.Subscribe(context.Background(), "S1")
	s2 := h.Subscribe(context.Background(), "S2")
	defer s1.Close()
	defer s2.Close()

	h.Publish(created("S1", "b1"))

	ev := recv(t, s1)
	if ev.Type != models.EventCreated || ev.Booking.ID != "b1" {
		t.Fatalf("got %+v", ev)
	}
	expectNone(t, s1)
	expectNone(t, s2)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := NewHub(8)
	h.Publish(created("S1", "b1"))

	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()
	expectNone(t, s)
}

func TestPerShopOrder(t *testing.T) {
	h := NewHub(64)
	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()

	for i := 0; i < 20; i++ {
		h.Publish(created("S1", fmt.Sprintf("b%02d", i)))
	}
	for i := 0; i < 20; i++ {
		want := fmt.Sprintf("b%02d", i)
		if got := recv(t, s).Booking.ID; got != want {
			t.Fatalf("event %d: got %s, want %s", i, got, want)
		}
	}
}

func TestUpdateHeldUntilCreate(t *testing.T) {
	h := NewHub(8)
	h.holdFor = time.Hour
	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()

	h.Publish(bookingEvent(models.EventUpdated, "S1", "b1", 2, models.StatusInChair))
	expectNone(t, s)

	h.Publish(created("S1", "b1"))
	if ev := recv(t, s); ev.Booking.Version != 1 {
		t.Fatalf("first event version %d, want 1", ev.Booking.Version)
	}
	if ev := recv(t, s); ev.Booking.Version != 2 || ev.Type != models.EventUpdated {
		t.Fatalf("second event %+v", ev)
	}
}

func TestHeldEventReleasedAfterTimeout(t *testing.T) {
	h := NewHub(8)
	h.holdFor = 20 * time.Millisecond
	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()

	h.Publish(bookingEvent(models.EventUpdated, "S1", "b1", 2, models.StatusInChair))
	if ev := recv(t, s); ev.Booking.Version != 2 {
		t.Fatalf("got version %d", ev.Booking.Version)
	}

	// the predecessor arriving late is stale now
	h.Publish(created("S1", "b1"))
	expectNone(t, s)
}

func TestDuplicateVersionDropped(t *testing.T) {
	h := NewHub(8)
	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()

	ev := created("S1", "b1")
	h.Publish(ev)
	h.Inject(ev)
	recv(t, s)
	expectNone(t, s)
}

func TestBookingFromBeforeStartPassesThrough(t *testing.T) {
	h := NewHub(8)
	h.holdFor = time.Hour
	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()

	ev := bookingEvent(models.EventUpdated, "S1", "old", 3, models.StatusInChair)
	ev.Booking.CreatedAt = h.started.Add(-time.Hour)
	h.Publish(ev)
	if got := recv(t, s); got.Booking.ID != "old" {
		t.Fatalf("got %+v", got)
	}
}

func TestUnversionedEventsPassThrough(t *testing.T) {
	h := NewHub(8)
	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()

	h.Publish(models.Event{Type: models.EventSnapshot, ShopID: "S1"})
	h.Publish(models.Event{Type: models.EventSnapshot, ShopID: "S1"})
	recv(t, s)
	recv(t, s)
}

func TestVersionMarksPrunedAfterRetention(t *testing.T) {
	h := NewHub(8)
	h.SetRetention(24 * time.Hour)
	s := h.Subscribe(context.Background(), "S1")
	defer s.Close()

	old := created("S1", "old")
	old.Booking.Date = "2026-10-01"
	today := created("S1", "today")
	today.Booking.Date = "2026-10-17"
	h.Publish(old)
	h.Publish(today)
	recv(t, s)
	recv(t, s)

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	if n := h.PruneVersions(now); n != 1 {
		t.Fatalf("pruned %d marks, want 1", n)
	}
	h.mu.Lock()
	_, oldKept := h.versions["old"]
	_, todayKept := h.versions["today"]
	h.mu.Unlock()
	if oldKept || !todayKept {
		t.Fatalf("old kept=%v today kept=%v", oldKept, todayKept)
	}

	// The live booking still gates its next version.
	h.Publish(bookingEvent(models.EventUpdated, "S1", "today", 1, models.StatusPending))
	expectNone(t, s)
	h.Publish(bookingEvent(models.EventUpdated, "S1", "today", 2, models.StatusInChair))
	if ev := recv(t, s); ev.Booking.Version != 2 {
		t.Fatalf("got v%d", ev.Booking.Version)
	}
}

func TestContextCancelUnsubscribes(t *testing.T) {
	h := NewHub(8)
	ctx, cancel := context.WithCancel(context.Background())
	s := h.Subscribe(ctx, "S1")
	if n := h.SubscriberCount("S1"); n != 1 {
		t.Fatalf("count = %d", n)
	}

	cancel()
	expectClosed(t, s)
	if n := h.SubscriberCount("S1"); n != 0 {
		t.Fatalf("count after cancel = %d", n)
	}

	h.Publish(created("S1", "b1"))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub(8)
	s := h.Subscribe(context.Background(), "S1")
	other := h.Subscribe(context.Background(), "S1")
	defer other.Close()

	h.Unsubscribe(s)
	h.Unsubscribe(s)
	s.Close()
	s.Close()

	if n := h.SubscriberCount("S1"); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	h.Publish(created("S1", "b1"))
	recv(t, other)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := NewHub(1)
	slow := h.Subscribe(context.Background(), "S1")

	for i := 0; i < 5; i++ {
		h.Publish(created("S1", fmt.Sprintf("b%d", i)))
	}

	expectClosed(t, slow)
	deadline := time.Now().Add(time.Second)
	for h.SubscriberCount("S1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow subscriber still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	slow.Close()
}

func TestStop(t *testing.T) {
	h := NewHub(8)
	s := h.Subscribe(context.Background(), "S1")
	h.Stop()
	expectClosed(t, s)
	s.Close()

	late := h.Subscribe(context.Background(), "S1")
	expectClosed(t, late)
	late.Close()
	h.Publish(created("S1", "b1"))
}
