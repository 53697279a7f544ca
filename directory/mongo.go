package directory

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"salonq/models"
)

type Mongo struct {
	shops    *mongo.Collection
	services *mongo.Collection
}

func NewMongo(shops, services *mongo.Collection) *Mongo {
	return &Mongo{shops: shops, services: services}
}

func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	if _, err := m.shops.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"id": 1}, Options: options.Index().SetUnique(true).SetName("unique_id")},
		{Keys: bson.M{"ownerId": 1}, Options: options.Index().SetUnique(true).SetName("unique_owner")},
	}); err != nil {
		return fmt.Errorf("shop indexes: %w", err)
	}
	if _, err := m.services.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"id": 1}, Options: options.Index().SetUnique(true).SetName("unique_id")},
		{Keys: bson.M{"shopId": 1}, Options: options.Index().SetName("by_shop")},
	}); err != nil {
		return fmt.Errorf("service indexes: %w", err)
	}
	return nil
}

func (m *Mongo) InsertShop(ctx context.Context, s models.Shop) error {
	if _, err := m.shops.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errOwnerHasShop
		}
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}

func (m *Mongo) SaveShop(ctx context.Context, s models.Shop) error {
	res, err := m.shops.ReplaceOne(ctx, bson.M{"id": s.ID}, s)
	if err != nil {
		return fmt.Errorf("save shop: %w", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Kind: "shop", ID: s.ID}
	}
	return nil
}

func (m *Mongo) GetShop(ctx context.Context, id string) (models.Shop, error) {
	var s models.Shop
	err := m.shops.FindOne(ctx, bson.M{"id": id}).Decode(&s)
	return s, notFound(err, "shop", id)
}

func (m *Mongo) GetShopByOwner(ctx context.Context, ownerID string) (models.Shop, error) {
	var s models.Shop
	err := m.shops.FindOne(ctx, bson.M{"ownerId": ownerID}).Decode(&s)
	return s, notFound(err, "shop of owner", ownerID)
}

func (m *Mongo) ListShops(ctx context.Context) ([]models.Shop, error) {
	cur, err := m.shops.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer cur.Close(ctx)
	shops := []models.Shop{}
	if err := cur.All(ctx, &shops); err != nil {
		return nil, fmt.Errorf("decode shops: %w", err)
	}
	return shops, nil
}

func (m *Mongo) InsertService(ctx context.Context, s models.Service) error {
	if _, err := m.services.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

func (m *Mongo) SaveService(ctx context.Context, s models.Service) error {
	res, err := m.services.ReplaceOne(ctx, bson.M{"id": s.ID}, s)
	if err != nil {
		return fmt.Errorf("save service: %w", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Kind: "service", ID: s.ID}
	}
	return nil
}

func (m *Mongo) GetService(ctx context.Context, id string) (models.Service, error) {
	var s models.Service
	err := m.services.FindOne(ctx, bson.M{"id": id}).Decode(&s)
	return s, notFound(err, "service", id)
}

func (m *Mongo) ListServices(ctx context.Context, shopID string) ([]models.Service, error) {
	cur, err := m.services.Find(ctx, bson.M{"shopId": shopID}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer cur.Close(ctx)
	services := []models.Service{}
	if err := cur.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return services, nil
}

func (m *Mongo) DeleteService(ctx context.Context, id string) error {
	if _, err := m.services.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return fmt.Errorf("find %s %s: %w", kind, id, err)
	}
	return nil
}
