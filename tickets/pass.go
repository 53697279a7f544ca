// Package tickets issues and checks the check-in passes customers show at the shop.
package tickets

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"salonq/models"
)

var ErrBadPass = errors.New("invalid check-in pass")

// Signer signs pass payloads of the form bookingID|shopID|date|HMAC.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Payload returns the signed string encoded in a booking's QR code.
func (s *Signer) Payload(b models.Booking) string {
	data := fmt.Sprintf("%s|%s|%s", b.ID, b.ShopID, b.Date)
	return data + "|" + s.sign(data)
}

// Verify checks payload's signature and returns the booking and shop it names.
func (s *Signer) Verify(payload string) (bookingID, shopID string, err error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return "", "", ErrBadPass
	}
	data := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(parts[3]), []byte(s.sign(data))) {
		return "", "", ErrBadPass
	}
	return parts[0], parts[1], nil
}

// QRCode renders the pass as a PNG.
func (s *Signer) QRCode(b models.Booking, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(s.Payload(b), qrcode.Medium, size)
}

// PassPDF renders a printable pass with the booking details and its QR code.
func (s *Signer) PassPDF(b models.Booking, shop models.Shop) ([]byte, error) {
	qrPNG, err := s.QRCode(b, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Booking Pass")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Shop: %s", shop.Name))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Service: %s", b.Service.Name))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("When: %s at %s", b.Date, b.TimeSlot))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Advance paid: %.2f", b.Payment.Amount))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Booking: %s", b.ID))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
