package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"salonq/models"
	"salonq/utils"
)

func TestLimitPerPrincipal(t *testing.T) {
	rl := NewRateLimiter(2)
	h := rl.Limit(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})

	call := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
		req = req.WithContext(utils.WithPrincipal(req.Context(), models.Principal{UserID: userID, Role: models.RoleCustomer}))
		rec := httptest.NewRecorder()
		h(rec, req, nil)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("alice"); code != http.StatusOK {
			t.Fatalf("request %d: %d", i, code)
		}
	}
	if code := call("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d", code)
	}
	if code := call("bob"); code != http.StatusOK {
		t.Fatalf("other caller throttled: %d", code)
	}
}

func TestCleanupForgetsIdleCallers(t *testing.T) {
	rl := NewRateLimiter(5)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.getLimiter("user:alice")

	now = now.Add(11 * time.Minute)
	rl.getLimiter("user:bob")
	if n := rl.Cleanup(); n != 1 {
		t.Fatalf("removed %d", n)
	}
	if _, ok := rl.visitors["user:bob"]; !ok {
		t.Fatal("active caller removed")
	}
}
