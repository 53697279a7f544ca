// Package db opens the backing stores named in the configuration.
package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collections used by the booking queue.
type Collections struct {
	Shops    *mongo.Collection
	Services *mongo.Collection
	Bookings *mongo.Collection
	Replays  *mongo.Collection
}

// ConnectMongo dials uri and checks the primary is reachable.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Client, Collections, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, Collections{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, Collections{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	d := client.Database(database)
	log.Printf("connected to MongoDB database %q", database)
	return client, Collections{
		Shops:    d.Collection("shops"),
		Services: d.Collection("services"),
		Bookings: d.Collection("bookings"),
		Replays:  d.Collection("idempotency"),
	}, nil
}

// ConnectRedis dials addr and pings it once.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	log.Printf("connected to redis at %s", addr)
	return conn, nil
}
