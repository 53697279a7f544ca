package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"salonq/models"
)

// bookingDoc is the stored form. Active mirrors !Status.Terminal() so a partial
// unique index can back up slot uniqueness at the database level.
type bookingDoc struct {
	models.Booking `bson:",inline"`
	Active         bool `bson:"active"`
}

type Mongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll, now: time.Now}
}

// EnsureIndexes creates the id, queue and active-slot indexes.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	idxs := []mongo.IndexModel{
		{
			Keys:    bson.M{"id": 1},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "shopId", Value: 1}, {Key: "date", Value: 1}, {Key: "active", Value: 1}, {Key: "slotMinute", Value: 1}},
			Options: options.Index().SetName("queue"),
		},
		{
			Keys: bson.D{{Key: "shopId", Value: 1}, {Key: "date", Value: 1}, {Key: "slotMinute", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}).
				SetName("unique_active_slot_minute"),
		},
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("by_customer"),
		},
	}
	_, err := m.coll.Indexes().CreateMany(ctx, idxs)
	return err
}

func (m *Mongo) Append(ctx context.Context, b models.Booking) (models.Booking, error) {
	b, err := prepare(b, m.now())
	if err != nil {
		return models.Booking{}, err
	}
	if _, err := m.coll.InsertOne(ctx, bookingDoc{Booking: b, Active: true}); err != nil {
		if isDuplicateKeyError(err) {
			return models.Booking{}, &models.SlotTakenError{Key: b.Key()}
		}
		return models.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return b, nil
}

// Transition is a compare-and-swap on the stored status: the update only matches
// while the booking sits in one of the target's predecessor states.
func (m *Mongo) Transition(ctx context.Context, id string, to models.BookingStatus) (models.Booking, error) {
	if err := checkTarget(to); err != nil {
		return models.Booking{}, err
	}
	preds := models.Predecessors(to)
	if len(preds) == 0 {
		return m.rejectTransition(ctx, id, to)
	}
	filter := bson.M{"id": id, "status": bson.M{"$in": preds}}
	update := bson.M{
		"$set": bson.M{"status": to, "active": !to.Terminal(), "updatedAt": m.now()},
		"$inc": bson.M{"version": 1},
	}
	var doc bookingDoc
	err := m.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.Booking, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Booking{}, fmt.Errorf("transition booking %s: %w", id, err)
	}
	return m.rejectTransition(ctx, id, to)
}

// rejectTransition reports why a transition to `to` did not apply.
func (m *Mongo) rejectTransition(ctx context.Context, id string, to models.BookingStatus) (models.Booking, error) {
	current, err := m.Get(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	return models.Booking{}, &models.InvalidTransitionError{From: current.Status, To: to}
}

func (m *Mongo) Get(ctx context.Context, id string) (models.Booking, error) {
	var doc bookingDoc
	err := m.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Booking{}, &models.NotFoundError{Kind: "booking", ID: id}
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("get booking %s: %w", id, err)
	}
	return doc.Booking, nil
}

func (m *Mongo) QueryQueue(ctx context.Context, shopID, date string) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "slotMinute", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "id", Value: 1},
	})
	return m.find(ctx, bson.M{"shopId": shopID, "date": date, "active": true}, opts)
}

func (m *Mongo) ListByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return m.find(ctx, bson.M{"customerId": customerID}, opts)
}

func (m *Mongo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Booking, error) {
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	out := make([]models.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Booking)
	}
	return out, nil
}

func isDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
