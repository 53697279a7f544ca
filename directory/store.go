// Package directory holds shops and the services they offer.
package directory

import (
	"context"

	"salonq/models"
)

// Store persists shops and services. It performs no authorization.
type Store interface {
	InsertShop(ctx context.Context, s models.Shop) error
	SaveShop(ctx context.Context, s models.Shop) error
	GetShop(ctx context.Context, id string) (models.Shop, error)
	GetShopByOwner(ctx context.Context, ownerID string) (models.Shop, error)
	ListShops(ctx context.Context) ([]models.Shop, error)

	InsertService(ctx context.Context, s models.Service) error
	SaveService(ctx context.Context, s models.Service) error
	GetService(ctx context.Context, id string) (models.Service, error)
	ListServices(ctx context.Context, shopID string) ([]models.Service, error)
	DeleteService(ctx context.Context, id string) error
}

var errOwnerHasShop = &models.ValidationError{Field: "ownerId", Reason: "owner already has a shop"}
