package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"salonq/booking"
	"salonq/broadcast"
	"salonq/directory"
	"salonq/idempotency"
	"salonq/ledger"
	"salonq/middleware"
	"salonq/models"
	"salonq/queue"
	"salonq/ratelim"
	"salonq/slots"
	"salonq/tickets"
)

var secret = []byte("routes-test")

func token(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{UserID: userID, Role: string(role)}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	hub := broadcast.NewHub(16)
	catalog := directory.NewCatalog(directory.NewMemory(), []string{"10:00", "10:30", "11:00"})
	coord := queue.NewCoordinator(slots.NewMemory(48*time.Hour), ledger.NewMemory(), catalog, hub, queue.Options{})
	auth := middleware.NewAuth(secret)

	srv := httptest.NewServer(New(Deps{
		Auth:     auth,
		Limiter:  ratelim.NewRateLimiter(100),
		Replay:   idempotency.NewGuard(idempotency.NewMemory(), time.Hour),
		Shops:    directory.NewHandlers(catalog),
		Bookings: booking.NewHandlers(coord, catalog, tickets.NewSigner(secret)),
		Socket:   broadcast.NewWSHandler(hub, coord.QueryQueue, auth.ValidateJWT),
	}))
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return srv
}

func call(t *testing.T, srv *httptest.Server, tok, method, path string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, srv.URL+path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestHealthAndAuth(t *testing.T) {
	srv := newServer(t)
	if code := call(t, srv, "", http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
	if code := call(t, srv, "", http.MethodPost, "/api/bookings", map[string]any{}, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous booking: %d", code)
	}
	cust := token(t, "alice", models.RoleCustomer)
	if code := call(t, srv, cust, http.MethodPost, "/api/shops", map[string]any{"name": "x", "address": "y"}, nil); code != http.StatusForbidden {
		t.Fatalf("customer creating shop: %d", code)
	}
}

func readEvent(t *testing.T, ws *websocket.Conn) models.Event {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.Event
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read ws: %v", err)
	}
	return ev
}

func TestDashboardFlow(t *testing.T) {
	srv := newServer(t)
	ownerTok := token(t, "owner1", models.RoleShopOwner)
	custTok := token(t, "alice", models.RoleCustomer)

	var shop models.Shop
	if code := call(t, srv, ownerTok, http.MethodPost, "/api/shops", map[string]any{"name": "Urban Fade Studio", "address": "123 Main St"}, &shop); code != http.StatusCreated {
		t.Fatalf("create shop: %d", code)
	}
	var svc models.Service
	if code := call(t, srv, ownerTok, http.MethodPost, "/api/services", map[string]any{"name": "Premium Fade", "price": 350, "durationMinutes": 30}, &svc); code != http.StatusCreated {
		t.Fatalf("add service: %d", code)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + ownerTok
	if _, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token=bad", nil); err == nil {
		t.Fatal("dial with bad token succeeded")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status: %d", resp.StatusCode)
	}
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"action": "join", "shopId": shop.ID, "date": "2026-10-17"}); err != nil {
		t.Fatal(err)
	}
	snap := readEvent(t, ws)
	if snap.Type != models.EventSnapshot || len(snap.Bookings) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}

	var b models.Booking
	code := call(t, srv, custTok, http.MethodPost, "/api/bookings", map[string]any{
		"shopId": shop.ID, "serviceId": svc.ID, "appointmentDate": "2026-10-17", "timeSlot": "10:30", "advanceAmount": 50,
	}, &b)
	if code != http.StatusCreated {
		t.Fatalf("book: %d", code)
	}
	created := readEvent(t, ws)
	if created.Type != models.EventCreated || created.Booking == nil || created.Booking.ID != b.ID {
		t.Fatalf("created = %+v", created)
	}

	if code := call(t, srv, ownerTok, http.MethodPut, "/api/bookings/"+b.ID+"/status", map[string]string{"status": "in-chair"}, nil); code != http.StatusOK {
		t.Fatalf("in-chair: %d", code)
	}
	updated := readEvent(t, ws)
	if updated.Type != models.EventUpdated || updated.Booking.Status != models.StatusInChair || updated.Booking.Version != 2 {
		t.Fatalf("updated = %+v", updated)
	}

	var free struct {
		Available []string `json:"available"`
	}
	call(t, srv, "", http.MethodGet, "/api/slots/"+shop.ID+"?date=2026-10-17", nil, &free)
	if len(free.Available) != 2 {
		t.Fatalf("available = %v", free.Available)
	}

	if err := ws.WriteJSON(map[string]string{"action": "leave", "shopId": shop.ID}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	call(t, srv, custTok, http.MethodPost, "/api/bookings", map[string]any{
		"shopId": shop.ID, "serviceId": svc.ID, "appointmentDate": "2026-10-17", "timeSlot": "11:00", "advanceAmount": 50,
	}, nil)
	ws.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var ev models.Event
	if err := ws.ReadJSON(&ev); err == nil {
		t.Fatalf("event after leave: %+v", ev)
	}
}
