package broadcast

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"salonq/models"
)

const channelPrefix = "salonq:shop:"

type envelope struct {
	Origin string       `json:"origin"`
	Event  models.Event `json:"event"`
}

// RedisRelay mirrors hub traffic across instances through redis pub/sub. Events this
// instance publishes go out on salonq:shop:<id>; events from other instances are
// injected into the local hub, whose version gate discards duplicates.
type RedisRelay struct {
	conn   redis.UniversalClient
	hub    *Hub
	origin string
	out    chan models.Event
}

func NewRedisRelay(conn redis.UniversalClient, hub *Hub) *RedisRelay {
	r := &RedisRelay{
		conn:   conn,
		hub:    hub,
		origin: uuid.NewString(),
		out:    make(chan models.Event, 1024),
	}
	hub.SetForwarder(r)
	return r
}

// Forward queues ev for redis without blocking the publisher.
func (r *RedisRelay) Forward(ev models.Event) {
	select {
	case r.out <- ev:
	default:
		log.Printf("relay: outbound queue full, event for shop %s not relayed", ev.ShopID)
	}
}

// Run pumps events both ways until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.conn.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	in := sub.Channel()

	log.Println("[Relay] Listening for shop events...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.out:
			data, err := json.Marshal(envelope{Origin: r.origin, Event: ev})
			if err != nil {
				log.Printf("relay: marshal: %v", err)
				continue
			}
			if err := r.conn.Publish(ctx, channelPrefix+ev.ShopID, data).Err(); err != nil {
				log.Printf("relay: publish: %v", err)
			}
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("relay: bad payload on %s: %v", msg.Channel, err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.hub.Inject(env.Event)
		}
	}
}
