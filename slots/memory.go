package slots

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"salonq/models"
)

const shardCount = 64

type shard struct {
	mu    sync.Mutex
	taken map[models.SlotKey]Ticket
}

// Memory is an in-process Registry. Keys are spread over independently locked
// shards so claims on unrelated slots rarely contend.
type Memory struct {
	shards    [shardCount]*shard
	retention time.Duration
	now       func() time.Time
}

func NewMemory(retention time.Duration) *Memory {
	m := &Memory{retention: retention, now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{taken: make(map[models.SlotKey]Ticket)}
	}
	return m
}

func (m *Memory) shardFor(key models.SlotKey) *shard {
	return m.shards[xxhash.Sum64String(key.String())%shardCount]
}

func (m *Memory) Claim(ctx context.Context, key models.SlotKey) (Ticket, error) {
	if err := ctx.Err(); err != nil {
		return Ticket{}, err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.taken[key]; ok {
		return Ticket{}, &models.SlotTakenError{Key: key}
	}
	t := Ticket{Key: key, Token: uuid.NewString(), ClaimedAt: m.now()}
	s.taken[key] = t
	return t, nil
}

func (m *Memory) Release(_ context.Context, key models.SlotKey) error {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.taken, key)
	s.mu.Unlock()
	return nil
}

func (m *Memory) Taken(_ context.Context, key models.SlotKey) (bool, error) {
	s := m.shardFor(key)
	s.mu.Lock()
	_, ok := s.taken[key]
	s.mu.Unlock()
	return ok, nil
}

// Sweep drops claims whose day ended more than the retention window ago.
func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k := range s.taken {
			if now.After(expiry(k, m.retention)) {
				delete(s.taken, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Printf("slots: swept %d expired claims", n)
			}
		}
	}
}
