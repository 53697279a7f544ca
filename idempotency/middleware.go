package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"salonq/utils"
)

const Header = "Idempotency-Key"

// settleTimeout bounds the write that completes or forgets a reservation. That
// write outlives the request: a client that hangs up after the handler ran must
// still get the stored response on retry.
const settleTimeout = 5 * time.Second

type Guard struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewGuard(store Store, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{store: store, ttl: ttl, now: time.Now}
}

func computeRequestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter wraps http.ResponseWriter to capture status and body.
type captureWriter struct {
	http.ResponseWriter
	status      int
	buf         bytes.Buffer
	wroteHeader bool
}

func (c *captureWriter) WriteHeader(status int) {
	if !c.wroteHeader {
		c.status = status
		c.wroteHeader = true
		c.ResponseWriter.WriteHeader(status)
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Wrap makes next safe to retry. Without the header requests pass through.
// A reused key with a different body is rejected with 409, a key whose first
// request is still running with 409 as well, and a completed key replays the
// stored response. Server errors are not stored so the client may retry.
func (g *Guard) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get(Header)
		if key == "" {
			next(w, r, ps)
			return
		}

		// Limit body size to 1 MB
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		userID := utils.GetUserIDFromRequest(r)
		scoped := userID + ":" + key
		now := g.now()
		rec := Record{
			Key:         scoped,
			RequestHash: computeRequestHash(r, body, userID),
			CreatedAt:   now,
			ExpiresAt:   now.Add(g.ttl),
		}

		ctx := r.Context()
		existing, err := g.store.Reserve(ctx, rec)
		if err != nil {
			log.Printf("idempotency reserve %s: %v", scoped, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}
		if existing != nil {
			switch {
			case existing.RequestHash != rec.RequestHash:
				utils.RespondWithError(w, http.StatusConflict, "idempotency-key reused with a different request")
			case existing.Response == nil:
				utils.RespondWithError(w, http.StatusConflict, "a request with this idempotency-key is still in progress")
			default:
				resp := existing.Response
				w.Header().Set("Content-Type", resp.ContentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(resp.Status)
				w.Write(resp.Body)
			}
			return
		}

		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next(cw, r, ps)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
		defer cancel()
		if cw.status >= http.StatusInternalServerError {
			if err := g.store.Forget(ctx, scoped); err != nil {
				log.Printf("idempotency forget %s: %v", scoped, err)
			}
			return
		}
		resp := Response{Status: cw.status, ContentType: w.Header().Get("Content-Type"), Body: cw.buf.Bytes()}
		if err := g.store.Complete(ctx, scoped, resp); err != nil {
			log.Printf("idempotency complete %s: %v", scoped, err)
		}
	}
}
