package cache

import (
	"context"
	"time"

	"salonpos/backend/internal/domain"
)

// CatalogCache is a read-through cache for the service and product
// catalogs, which the front desk lists on every screen. Report and
// dashboard aggregations never go through it: derived numbers are always
// computed fresh from the stores.
type CatalogCache interface {
	GetServices(ctx context.Context) ([]domain.SalonService, bool, error)
	SetServices(ctx context.Context, services []domain.SalonService, ttl time.Duration) error
	GetProducts(ctx context.Context) ([]domain.Product, bool, error)
	SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetServices(_ context.Context) ([]domain.SalonService, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetServices(_ context.Context, _ []domain.SalonService, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) GetProducts(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetProducts(_ context.Context, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
