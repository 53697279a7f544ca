package directory

import (
	"context"
	"sort"
	"sync"

	"salonq/models"
)

type Memory struct {
	mu       sync.RWMutex
	shops    map[string]models.Shop
	byOwner  map[string]string
	services map[string]models.Service
}

func NewMemory() *Memory {
	return &Memory{
		shops:    make(map[string]models.Shop),
		byOwner:  make(map[string]string),
		services: make(map[string]models.Service),
	}
}

func (m *Memory) InsertShop(_ context.Context, s models.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byOwner[s.OwnerID]; ok {
		return errOwnerHasShop
	}
	m.shops[s.ID] = s
	m.byOwner[s.OwnerID] = s.ID
	return nil
}

func (m *Memory) SaveShop(_ context.Context, s models.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shops[s.ID]; !ok {
		return &models.NotFoundError{Kind: "shop", ID: s.ID}
	}
	m.shops[s.ID] = s
	return nil
}

func (m *Memory) GetShop(_ context.Context, id string) (models.Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shops[id]
	if !ok {
		return models.Shop{}, &models.NotFoundError{Kind: "shop", ID: id}
	}
	return s, nil
}

func (m *Memory) GetShopByOwner(_ context.Context, ownerID string) (models.Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byOwner[ownerID]
	if !ok {
		return models.Shop{}, &models.NotFoundError{Kind: "shop of owner", ID: ownerID}
	}
	return m.shops[id], nil
}

func (m *Memory) ListShops(_ context.Context) ([]models.Shop, error) {
	m.mu.RLock()
	out := make([]models.Shop, 0, len(m.shops))
	for _, s := range m.shops {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) InsertService(_ context.Context, s models.Service) error {
	m.mu.Lock()
	m.services[s.ID] = s
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveService(_ context.Context, s models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[s.ID]; !ok {
		return &models.NotFoundError{Kind: "service", ID: s.ID}
	}
	m.services[s.ID] = s
	return nil
}

func (m *Memory) GetService(_ context.Context, id string) (models.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return models.Service{}, &models.NotFoundError{Kind: "service", ID: id}
	}
	return s, nil
}

func (m *Memory) ListServices(_ context.Context, shopID string) ([]models.Service, error) {
	m.mu.RLock()
	out := []models.Service{}
	for _, s := range m.services {
		if s.ShopID == shopID {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteService(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.services, id)
	m.mu.Unlock()
	return nil
}
