package routes

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"salonq/booking"
	"salonq/broadcast"
	"salonq/directory"
	"salonq/idempotency"
	"salonq/middleware"
	"salonq/ratelim"
)

// Deps are the handlers and guards the routes are built from.
type Deps struct {
	Auth     *middleware.Auth
	Limiter  *ratelim.RateLimiter
	Replay   *idempotency.Guard
	Shops    *directory.Handlers
	Bookings *booking.Handlers
	Socket   *broadcast.WSHandler
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddShopRoutes(router *httprouter.Router, d Deps) {
	auth := d.Auth.Authenticate
	router.GET("/api/shops", d.Shops.ListShops)
	router.POST("/api/shops", auth(directory.RequireOwner(d.Shops.CreateShop)))
	router.GET("/api/shops/owner/my-shop", auth(directory.RequireOwner(d.Shops.MyShop)))
	router.PUT("/api/shops/:shopId", auth(directory.RequireOwner(d.Shops.UpdateShop)))

	router.GET("/api/services/:shopId", d.Shops.ListServices)
	router.POST("/api/services", auth(directory.RequireOwner(d.Shops.AddService)))
	router.PUT("/api/services/:serviceId", auth(directory.RequireOwner(d.Shops.UpdateService)))
	router.DELETE("/api/services/:serviceId", auth(directory.RequireOwner(d.Shops.DeleteService)))
}

func AddBookingRoutes(router *httprouter.Router, d Deps) {
	auth := d.Auth.Authenticate
	limit := d.Limiter.Limit
	router.POST("/api/bookings", auth(limit(d.Replay.Wrap(d.Bookings.Create))))
	router.GET("/api/bookings", auth(d.Bookings.Mine))
	router.GET("/api/bookings/:id", auth(d.Bookings.Get))
	router.PUT("/api/bookings/:id/status", auth(limit(d.Bookings.UpdateStatus)))
	router.GET("/api/bookings/:id/qr", auth(d.Bookings.QRCode))
	router.GET("/api/bookings/:id/pass", auth(d.Bookings.Pass))
	router.POST("/api/checkin", auth(directory.RequireOwner(limit(d.Bookings.CheckIn))))

	router.GET("/api/queue", auth(d.Bookings.Queue))
	router.GET("/api/queue.pdf", auth(directory.RequireOwner(d.Bookings.QueuePDF)))
	router.GET("/api/slots/:shopId", d.Bookings.AvailableSlots)
}

func AddSocketRoutes(router *httprouter.Router, d Deps) {
	router.GET("/ws", d.Socket.Serve)
}

// New builds the router with every route registered.
func New(d Deps) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)
	AddShopRoutes(router, d)
	AddBookingRoutes(router, d)
	AddSocketRoutes(router, d)
	return router
}
