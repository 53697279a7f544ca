package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"salonq/booking"
	"salonq/broadcast"
	"salonq/config"
	"salonq/db"
	"salonq/directory"
	"salonq/idempotency"
	"salonq/ledger"
	"salonq/middleware"
	"salonq/queue"
	"salonq/ratelim"
	"salonq/routes"
	"salonq/slots"
	"salonq/tickets"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

type stores struct {
	ledger    ledger.Ledger
	directory directory.Store
	replays   idempotency.Store
	registry  slots.Registry
	sweeper   *slots.Memory
	redis     redisConn
	mongo     *mongo.Client
}

type redisConn interface {
	Close() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, *broadcast.RedisRelay, *broadcast.Hub, error) {
	s := &stores{}
	hub := broadcast.NewHub(cfg.SubscriberBuffer)
	hub.SetRetention(cfg.SlotRetention)

	if cfg.MongoURI != "" {
		client, colls, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, nil, err
		}
		s.mongo = client
		l := ledger.NewMongo(colls.Bookings)
		if err := l.EnsureIndexes(ctx); err != nil {
			return nil, nil, nil, err
		}
		d := directory.NewMongo(colls.Shops, colls.Services)
		if err := d.EnsureIndexes(ctx); err != nil {
			return nil, nil, nil, err
		}
		r := idempotency.NewMongo(colls.Replays)
		if err := r.EnsureIndexes(ctx); err != nil {
			return nil, nil, nil, err
		}
		s.ledger, s.directory, s.replays = l, d, r
	} else {
		log.Println("MONGO_URI not set; bookings and shops are kept in memory")
		s.ledger, s.directory, s.replays = ledger.NewMemory(), directory.NewMemory(), idempotency.NewMemory()
	}

	var relay *broadcast.RedisRelay
	if cfg.RedisAddr != "" {
		conn, err := db.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		s.redis = conn
		s.registry = slots.NewRedis(conn, cfg.SlotRetention)
		relay = broadcast.NewRedisRelay(conn, hub)
	} else {
		log.Println("REDIS_ADDR not set; slot registry is in memory and events stay local")
		mem := slots.NewMemory(cfg.SlotRetention)
		s.registry, s.sweeper = mem, mem
	}
	return s, relay, hub, nil
}

func (s *stores) close() {
	if s.redis != nil {
		s.redis.Close()
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.mongo.Disconnect(ctx); err != nil {
			log.Printf("mongo disconnect: %v", err)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, relay, hub, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer st.close()

	catalog := directory.NewCatalog(st.directory, cfg.SlotLabels)
	coord := queue.NewCoordinator(st.registry, st.ledger, catalog, hub, queue.Options{
		CustomerMayCancel: cfg.CustomerMayCancel,
		MutationTimeout:   cfg.MutationTimeout,
	})
	auth := middleware.NewAuth(cfg.JwtSecret)
	limiter := ratelim.NewRateLimiter(cfg.BookingRatePerMin)

	router := routes.New(routes.Deps{
		Auth:     auth,
		Limiter:  limiter,
		Replay:   idempotency.NewGuard(st.replays, 24*time.Hour),
		Shops:    directory.NewHandlers(catalog),
		Bookings: booking.NewHandlers(coord, catalog, tickets.NewSigner(cfg.PassSecret)),
		Socket:   broadcast.NewWSHandler(hub, coord.QueryQueue, auth.ValidateJWT),
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		log.Println("🛑 Closing dashboard subscriptions...")
		hub.Stop()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutdown signal received; shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	if st.sweeper != nil {
		g.Go(func() error {
			st.sweeper.RunSweeper(gctx, time.Hour)
			return nil
		})
	}
	g.Go(func() error { return hub.RunPruner(gctx, time.Hour) })
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Cleanup()
				if mem, ok := st.replays.(*idempotency.Memory); ok {
					mem.Prune()
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ %v", err)
		st.close()
		os.Exit(1)
	}
	log.Println("✅ Server stopped cleanly")
}
