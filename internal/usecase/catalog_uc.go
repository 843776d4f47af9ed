// File: internal/usecase/catalog_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

type CatalogUseCase interface {
	// Load takes a snapshot of one tenant's active products grouped by
	// offering type. Returns domain.ErrNotFound when the tenant has none or
	// the catalog is unreadable; callers treat that as an empty catalog, so
	// a broken catalog never stops a tenant from coming up.
	Load(ctx context.Context, tenantID int64) (*model.GroupedCatalog, error)
}

type catalogUC struct {
	products repository.ProductRepository
	log      *zerolog.Logger
}

func NewCatalogUseCase(products repository.ProductRepository, logger *zerolog.Logger) *catalogUC {
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &catalogUC{products: products, log: &l}
}

func (u *catalogUC) Load(ctx context.Context, tenantID int64) (*model.GroupedCatalog, error) {
	items, err := u.products.ListByTenant(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Err(err).Int64("tenant_id", tenantID).Msg("catalog unreadable, reporting as empty")
		}
		return nil, fmt.Errorf("list products for tenant %d: %w", tenantID, domain.ErrNotFound)
	}
	cat := model.NewGroupedCatalog(tenantID, items)
	u.log.Info().Int64("tenant_id", tenantID).Int("products", cat.Len()).Msg("catalog loaded")
	return cat, nil
}
