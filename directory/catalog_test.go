package directory

import (
	"context"
	"errors"
	"testing"

	"salonq/models"
)

var (
	owner    = models.Principal{UserID: "owner1", Role: models.RoleShopOwner}
	intruder = models.Principal{UserID: "owner2", Role: models.RoleShopOwner}
	customer = models.Principal{UserID: "cust1", Role: models.RoleCustomer}
)

func newCatalog() *Catalog {
	return NewCatalog(NewMemory(), []string{"10:00", "10:30"})
}

func TestCreateShopOnePerOwner(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()
	shop, err := c.CreateShop(ctx, owner, ShopInput{Name: "Urban Fade Studio", Address: "123 Main St"})
	if err != nil {
		t.Fatal(err)
	}
	if len(shop.SlotLabels) != 2 {
		t.Fatalf("default slot labels not applied: %v", shop.SlotLabels)
	}
	if _, err := c.CreateShop(ctx, owner, ShopInput{Name: "Second", Address: "x"}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("second shop for same owner: %v", err)
	}
	if _, err := c.CreateShop(ctx, customer, ShopInput{Name: "Nope", Address: "x"}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("customer creating shop: %v", err)
	}
	mine, err := c.ShopByOwner(ctx, owner.UserID)
	if err != nil || mine.ID != shop.ID {
		t.Fatalf("my-shop lookup: %+v %v", mine, err)
	}
}

func TestCreateShopValidatesSlotLabels(t *testing.T) {
	c := newCatalog()
	_, err := c.CreateShop(context.Background(), owner, ShopInput{
		Name: "A", Address: "B", SlotLabels: []string{"10:00", "10:00"},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("duplicate labels: %v", err)
	}
}

func TestShopLabelsMustNameDistinctMinutes(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()
	_, err := c.CreateShop(ctx, owner, ShopInput{
		Name: "A", Address: "B", SlotLabels: []string{"10:00", "10:00 AM"},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("10:00 and 10:00 AM accepted together: %v", err)
	}

	shop, err := c.CreateShop(ctx, owner, ShopInput{Name: "A", Address: "B", SlotLabels: []string{"10:00", "10:30"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.UpdateShop(ctx, owner.UserID, shop.ID, ShopInput{
		Name: "A", Address: "B", SlotLabels: []string{"10:30", "10:30 AM"},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("colliding relabel accepted: %v", err)
	}
}

func TestOnlyOwnerEditsShopAndServices(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()
	shop, _ := c.CreateShop(ctx, owner, ShopInput{Name: "A", Address: "B"})
	c.CreateShop(ctx, intruder, ShopInput{Name: "C", Address: "D"})

	if _, err := c.UpdateShop(ctx, intruder.UserID, shop.ID, ShopInput{Name: "Mine now", Address: "B"}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("intruder update: %v", err)
	}
	svc, err := c.AddService(ctx, owner.UserID, ServiceInput{Name: "Premium Fade", Price: 350, DurationMinutes: 30})
	if err != nil {
		t.Fatal(err)
	}
	if svc.ShopID != shop.ID {
		t.Fatalf("service attached to %s, want %s", svc.ShopID, shop.ID)
	}
	if _, err := c.UpdateService(ctx, intruder.UserID, svc.ID, ServiceInput{Name: "x", Price: 1, DurationMinutes: 1}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("intruder service update: %v", err)
	}
	if err := c.DeleteService(ctx, intruder.UserID, svc.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("intruder delete: %v", err)
	}
	if err := c.DeleteService(ctx, owner.UserID, svc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Service(ctx, svc.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("deleted service still visible: %v", err)
	}
}

func TestServiceValidation(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()
	c.CreateShop(ctx, owner, ShopInput{Name: "A", Address: "B"})
	bad := []ServiceInput{
		{Name: "", Price: 10, DurationMinutes: 10},
		{Name: "Cut", Price: 0, DurationMinutes: 10},
		{Name: "Cut", Price: 10, DurationMinutes: -1},
	}
	for _, in := range bad {
		if _, err := c.AddService(ctx, owner.UserID, in); !errors.Is(err, models.ErrValidation) {
			t.Errorf("%+v: want ValidationError, got %v", in, err)
		}
	}
	if _, err := c.AddService(ctx, "no-shop-owner", ServiceInput{Name: "Cut", Price: 1, DurationMinutes: 1}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("owner without shop: %v", err)
	}
}
