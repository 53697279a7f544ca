package tickets

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"salonq/models"
)

var booking = models.Booking{
	ID:       "b1",
	ShopID:   "S1",
	Date:     "2026-10-17",
	TimeSlot: "10:30",
	Service:  models.ServiceSnapshot{Name: "Beard Trim"},
	Payment:  models.Payment{Amount: 50},
}

func TestPayloadRoundTrip(t *testing.T) {
	s := NewSigner([]byte("k"))
	id, shop, err := s.Verify(s.Payload(booking))
	if err != nil {
		t.Fatal(err)
	}
	if id != "b1" || shop != "S1" {
		t.Fatalf("got %s %s", id, shop)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := NewSigner([]byte("k"))
	payload := s.Payload(booking)

	bad := []string{
		"",
		"b1|S1|2026-10-17",
		strings.Replace(payload, "S1", "S2", 1),
		NewSigner([]byte("other")).Payload(booking),
	}
	for _, p := range bad {
		if _, _, err := s.Verify(p); !errors.Is(err, ErrBadPass) {
			t.Fatalf("%q accepted: %v", p, err)
		}
	}
}

func TestQRCodeAndPDF(t *testing.T) {
	s := NewSigner([]byte("k"))
	png, err := s.QRCode(booking, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("not a png")
	}
	pdf, err := s.PassPDF(booking, models.Shop{Name: "Urban Fade Studio"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("not a pdf")
	}
}
