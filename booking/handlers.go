// Package booking exposes the booking queue over HTTP.
package booking

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"salonq/models"
	"salonq/queue"
	"salonq/reports"
	"salonq/tickets"
	"salonq/utils"
)

// ShopLookup finds the shop a printout is for.
type ShopLookup interface {
	Shop(ctx context.Context, id string) (models.Shop, error)
}

type Handlers struct {
	coord  *queue.Coordinator
	shops  ShopLookup
	passes *tickets.Signer
	today  func() string
}

func NewHandlers(coord *queue.Coordinator, shops ShopLookup, passes *tickets.Signer) *Handlers {
	return &Handlers{
		coord:  coord,
		shops:  shops,
		passes: passes,
		today:  func() string { return time.Now().Format(models.DateLayout) },
	}
}

func (h *Handlers) dateParam(r *http.Request) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return h.today()
}

// POST /api/bookings
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, _ := utils.PrincipalFromContext(r.Context())
	var req queue.BookingRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	b, err := h.coord.CreateBooking(r.Context(), p, req)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, b)
}

// PUT /api/bookings/:id/status
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := utils.PrincipalFromContext(r.Context())
	var body struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	b, err := h.coord.UpdateStatus(r.Context(), ps.ByName("id"), p, body.Status)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// GET /api/bookings/:id
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := utils.PrincipalFromContext(r.Context())
	b, err := h.coord.Get(r.Context(), ps.ByName("id"), p)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// GET /api/bookings
func (h *Handlers) Mine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.coord.CustomerBookings(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	utils.RespondWithJSON(w, http.StatusOK, bookings)
}

// GET /api/queue?shopId=&date=
func (h *Handlers) Queue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	shopID := r.URL.Query().Get("shopId")
	if shopID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "shopId is required")
		return
	}
	bookings, err := h.coord.QueryQueue(r.Context(), shopID, h.dateParam(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	utils.RespondWithJSON(w, http.StatusOK, bookings)
}

// GET /api/queue.pdf?shopId=&date=
func (h *Handlers) QueuePDF(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	shopID := r.URL.Query().Get("shopId")
	shop, err := h.shops.Shop(r.Context(), shopID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	if shop.OwnerID != utils.GetUserIDFromRequest(r) {
		utils.RespondWithDomainError(w, &models.AuthorizationError{ActorID: utils.GetUserIDFromRequest(r), ShopID: shopID})
		return
	}
	date := h.dateParam(r)
	bookings, err := h.coord.QueryQueue(r.Context(), shopID, date)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := reports.QueueSheet(&buf, shop, date, bookings); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=queue-"+date+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GET /api/slots/:shopId?date=
func (h *Handlers) AvailableSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	free, err := h.coord.AvailableSlots(r.Context(), ps.ByName("shopId"), h.dateParam(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"available": free})
}

// GET /api/bookings/:id/qr
func (h *Handlers) QRCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := utils.PrincipalFromContext(r.Context())
	b, err := h.coord.Get(r.Context(), ps.ByName("id"), p)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	png, err := h.passes.QRCode(b, 256)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// GET /api/bookings/:id/pass
func (h *Handlers) Pass(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _ := utils.PrincipalFromContext(r.Context())
	b, err := h.coord.Get(r.Context(), ps.ByName("id"), p)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	shop, err := h.shops.Shop(r.Context(), b.ShopID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	pdf, err := h.passes.PassPDF(b, shop)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=booking-"+b.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// POST /api/checkin
//
// The shop owner scans a customer's pass; a valid pending booking moves to in-chair.
func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, _ := utils.PrincipalFromContext(r.Context())
	var body struct {
		Code string `json:"code"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	bookingID, _, err := h.passes.Verify(body.Code)
	if err != nil {
		utils.RespondWithDomainError(w, &models.ValidationError{Field: "code", Reason: err.Error()})
		return
	}
	b, err := h.coord.UpdateStatus(r.Context(), bookingID, p, models.StatusInChair)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}
