package repository

import (
	"context"

	"telegram-pix-commerce/internal/domain/model"
)

// ProductRepository is the port for the tenant product catalog source.
type ProductRepository interface {
	// ListByTenant returns the active products of one tenant.
	// Returns domain.ErrNotFound when the tenant has no products.
	ListByTenant(ctx context.Context, tenantID int64) ([]*model.Product, error)
}
