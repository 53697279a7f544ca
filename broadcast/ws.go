package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"salonq/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// origin policy is enforced by the CORS layer
		return true
	},
}

// SnapshotFunc returns the live queue a dashboard renders on join.
type SnapshotFunc func(ctx context.Context, shopID, date string) ([]models.Booking, error)

// VerifyFunc turns a bearer token into the caller's identity.
type VerifyFunc func(token string) (models.Principal, error)

type inboundPayload struct {
	Action string `json:"action"` // "join", "leave"
	ShopID string `json:"shopId"`
	Date   string `json:"date,omitempty"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type WSHandler struct {
	hub      *Hub
	snapshot SnapshotFunc
	verify   VerifyFunc
	today    func() string
}

func NewWSHandler(hub *Hub, snapshot SnapshotFunc, verify VerifyFunc) *WSHandler {
	return &WSHandler{
		hub:      hub,
		snapshot: snapshot,
		verify:   verify,
		today:    func() string { return time.Now().Format(models.DateLayout) },
	}
}

// conn is one dashboard connection. It may watch several shops at once.
type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]*Subscription
}

// Serve upgrades GET /ws?token=... and speaks the join/leave protocol.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := h.verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		ws:     ws,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*Subscription),
	}
	log.Printf("ws: %s connected", p.UserID)

	go c.writePump()
	h.readPump(c)
	log.Printf("ws: %s disconnected", p.UserID)
}

func (h *WSHandler) readPump(c *conn) {
	defer func() {
		c.cancel()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(4096)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var in inboundPayload
		if err := json.Unmarshal(raw, &in); err != nil {
			c.push(errorPayload{Type: "error", Message: "invalid payload"})
			continue
		}
		switch in.Action {
		case "join":
			h.join(c, in)
		case "leave":
			c.leave(in.ShopID)
		default:
			c.push(errorPayload{Type: "error", Message: "unknown action " + in.Action})
		}
	}
}

// join subscribes first and snapshots second, so nothing committed in between is
// missed. The overlap may repeat a booking, which clients render idempotently.
func (h *WSHandler) join(c *conn, in inboundPayload) {
	if in.ShopID == "" {
		c.push(errorPayload{Type: "error", Message: "shopId required"})
		return
	}
	date := in.Date
	if date == "" {
		date = h.today()
	}

	c.mu.Lock()
	if _, ok := c.subs[in.ShopID]; !ok {
		sub := h.hub.Subscribe(c.ctx, in.ShopID)
		c.subs[in.ShopID] = sub
		go c.forward(sub)
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	bookings, err := h.snapshot(ctx, in.ShopID, date)
	if err != nil {
		log.Printf("ws: snapshot for shop %s: %v", in.ShopID, err)
		c.push(errorPayload{Type: "error", Message: "snapshot unavailable"})
		return
	}
	c.push(models.Event{Type: models.EventSnapshot, ShopID: in.ShopID, Bookings: bookings})
}

func (c *conn) leave(shopID string) {
	c.mu.Lock()
	sub := c.subs[shopID]
	delete(c.subs, shopID)
	c.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// forward copies one subscription onto the socket. If the hub dropped the
// subscription for being slow the whole connection is closed so the client
// reconnects and re-snapshots.
func (c *conn) forward(sub *Subscription) {
	for ev := range sub.Events() {
		c.push(ev)
	}
	c.mu.Lock()
	current := c.subs[sub.ShopID] == sub
	c.mu.Unlock()
	if current {
		c.cancel()
	}
}

func (c *conn) push(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ws: marshal: %v", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		log.Println("ws: send buffer full, closing connection")
		c.cancel()
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case <-c.ctx.Done():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}
