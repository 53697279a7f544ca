// Package idempotency replays the first response to a mutating request when the
// client retries it with the same Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Response struct {
	Status      int    `bson:"status"`
	ContentType string `bson:"contentType"`
	Body        []byte `bson:"body"`
}

type Record struct {
	Key         string    `bson:"key"`
	RequestHash string    `bson:"requestHash"`
	Response    *Response `bson:"response,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

// Store persists records. Reserve returns (nil, nil) when rec was stored fresh and
// the existing record when the key is already known.
type Store interface {
	Reserve(ctx context.Context, rec Record) (*Record, error)
	Complete(ctx context.Context, key string, resp Response) error
	Forget(ctx context.Context, key string) error
}

type Memory struct {
	mu   sync.Mutex
	recs map[string]Record
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[string]Record), now: time.Now}
}

func (m *Memory) Reserve(_ context.Context, rec Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.recs[rec.Key]; ok && old.ExpiresAt.After(m.now()) {
		return &old, nil
	}
	m.recs[rec.Key] = rec
	return nil, nil
}

func (m *Memory) Complete(_ context.Context, key string, resp Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil
	}
	rec.Response = &resp
	m.recs[key] = rec
	return nil
}

func (m *Memory) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.recs, key)
	m.mu.Unlock()
	return nil
}

// Prune drops expired records and reports how many went.
func (m *Memory) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, rec := range m.recs {
		if !rec.ExpiresAt.After(now) {
			delete(m.recs, k)
			n++
		}
	}
	return n
}

// Mongo keeps records in a collection with a TTL index on expiresAt.
type Mongo struct {
	coll *mongo.Collection
}

func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll}
}

// EnsureIndexes creates the necessary indexes (unique key + TTL).
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	idxs := []mongo.IndexModel{
		{
			Keys:    bson.M{"key": 1},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.M{"expiresAt": 1},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}
	_, err := m.coll.Indexes().CreateMany(ctx, idxs)
	return err
}

func (m *Mongo) Reserve(ctx context.Context, rec Record) (*Record, error) {
	_, err := m.coll.InsertOne(ctx, rec)
	if err == nil {
		return nil, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	var existing Record
	if err := m.coll.FindOne(ctx, bson.M{"key": rec.Key}).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// expired between insert and lookup
			return m.Reserve(ctx, rec)
		}
		return nil, err
	}
	return &existing, nil
}

func (m *Mongo) Complete(ctx context.Context, key string, resp Response) error {
	_, err := m.coll.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"response": resp}})
	return err
}

func (m *Mongo) Forget(ctx context.Context, key string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"key": key})
	return err
}
