package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"salonq/models"
)

type ShopInput struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Banner     string   `json:"banner,omitempty"`
	SlotLabels []string `json:"slotLabels,omitempty"`
}

type ServiceInput struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
}

// Catalog enforces ownership and validation on top of a Store.
type Catalog struct {
	store        Store
	defaultSlots []string
	now          func() time.Time
}

func NewCatalog(store Store, defaultSlots []string) *Catalog {
	return &Catalog{store: store, defaultSlots: defaultSlots, now: time.Now}
}

func (c *Catalog) Shop(ctx context.Context, id string) (models.Shop, error) {
	return c.store.GetShop(ctx, id)
}

func (c *Catalog) ShopByOwner(ctx context.Context, ownerID string) (models.Shop, error) {
	return c.store.GetShopByOwner(ctx, ownerID)
}

func (c *Catalog) ListShops(ctx context.Context) ([]models.Shop, error) {
	return c.store.ListShops(ctx)
}

func (c *Catalog) Service(ctx context.Context, id string) (models.Service, error) {
	return c.store.GetService(ctx, id)
}

func (c *Catalog) ListServices(ctx context.Context, shopID string) ([]models.Service, error) {
	if _, err := c.store.GetShop(ctx, shopID); err != nil {
		return nil, err
	}
	return c.store.ListServices(ctx, shopID)
}

func (c *Catalog) CreateShop(ctx context.Context, owner models.Principal, in ShopInput) (models.Shop, error) {
	if owner.Role != models.RoleShopOwner {
		return models.Shop{}, &models.AuthorizationError{ActorID: owner.UserID}
	}
	if err := validateShop(in); err != nil {
		return models.Shop{}, err
	}
	now := c.now()
	s := models.Shop{
		ID:         uuid.NewString(),
		OwnerID:    owner.UserID,
		Name:       strings.TrimSpace(in.Name),
		Address:    strings.TrimSpace(in.Address),
		Banner:     in.Banner,
		SlotLabels: in.SlotLabels,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(s.SlotLabels) == 0 {
		s.SlotLabels = append([]string(nil), c.defaultSlots...)
	}
	if err := c.store.InsertShop(ctx, s); err != nil {
		return models.Shop{}, err
	}
	return s, nil
}

func (c *Catalog) UpdateShop(ctx context.Context, actorID, shopID string, in ShopInput) (models.Shop, error) {
	s, err := c.ownedShop(ctx, actorID, shopID)
	if err != nil {
		return models.Shop{}, err
	}
	if err := validateShop(in); err != nil {
		return models.Shop{}, err
	}
	s.Name = strings.TrimSpace(in.Name)
	s.Address = strings.TrimSpace(in.Address)
	s.Banner = in.Banner
	if len(in.SlotLabels) > 0 {
		s.SlotLabels = in.SlotLabels
	}
	s.UpdatedAt = c.now()
	if err := c.store.SaveShop(ctx, s); err != nil {
		return models.Shop{}, err
	}
	return s, nil
}

// AddService adds a service to the shop owned by actorID.
func (c *Catalog) AddService(ctx context.Context, actorID string, in ServiceInput) (models.Service, error) {
	shop, err := c.store.GetShopByOwner(ctx, actorID)
	if err != nil {
		return models.Service{}, err
	}
	if err := validateService(in); err != nil {
		return models.Service{}, err
	}
	svc := models.Service{
		ID:              uuid.NewString(),
		ShopID:          shop.ID,
		Name:            strings.TrimSpace(in.Name),
		Price:           in.Price,
		DurationMinutes: in.DurationMinutes,
		CreatedAt:       c.now(),
	}
	if err := c.store.InsertService(ctx, svc); err != nil {
		return models.Service{}, err
	}
	return svc, nil
}

func (c *Catalog) UpdateService(ctx context.Context, actorID, serviceID string, in ServiceInput) (models.Service, error) {
	svc, err := c.ownedService(ctx, actorID, serviceID)
	if err != nil {
		return models.Service{}, err
	}
	if err := validateService(in); err != nil {
		return models.Service{}, err
	}
	svc.Name = strings.TrimSpace(in.Name)
	svc.Price = in.Price
	svc.DurationMinutes = in.DurationMinutes
	if err := c.store.SaveService(ctx, svc); err != nil {
		return models.Service{}, err
	}
	return svc, nil
}

// DeleteService removes a service. Bookings keep their own snapshot of it.
func (c *Catalog) DeleteService(ctx context.Context, actorID, serviceID string) error {
	if _, err := c.ownedService(ctx, actorID, serviceID); err != nil {
		return err
	}
	return c.store.DeleteService(ctx, serviceID)
}

func (c *Catalog) ownedShop(ctx context.Context, actorID, shopID string) (models.Shop, error) {
	s, err := c.store.GetShop(ctx, shopID)
	if err != nil {
		return models.Shop{}, err
	}
	if s.OwnerID != actorID {
		return models.Shop{}, &models.AuthorizationError{ActorID: actorID, ShopID: shopID}
	}
	return s, nil
}

func (c *Catalog) ownedService(ctx context.Context, actorID, serviceID string) (models.Service, error) {
	svc, err := c.store.GetService(ctx, serviceID)
	if err != nil {
		return models.Service{}, err
	}
	if _, err := c.ownedShop(ctx, actorID, svc.ShopID); err != nil {
		return models.Service{}, err
	}
	return svc, nil
}

func validateShop(in ShopInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &models.ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(in.Address) == "" {
		return &models.ValidationError{Field: "address", Reason: "required"}
	}
	// Two labels naming the same minute would share one slot key.
	seen := make(map[int]string, len(in.SlotLabels))
	for _, l := range in.SlotLabels {
		m, err := models.SlotMinute(l)
		if err != nil {
			return &models.ValidationError{Field: "slotLabels", Reason: err.Error()}
		}
		if prev, dup := seen[m]; dup {
			return &models.ValidationError{Field: "slotLabels", Reason: fmt.Sprintf("%q and %q name the same time", prev, l)}
		}
		seen[m] = l
	}
	return nil
}

func validateService(in ServiceInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return &models.ValidationError{Field: "name", Reason: "required"}
	case in.Price <= 0:
		return &models.ValidationError{Field: "price", Reason: "must be positive"}
	case in.DurationMinutes <= 0:
		return &models.ValidationError{Field: "durationMinutes", Reason: "must be positive"}
	}
	return nil
}
