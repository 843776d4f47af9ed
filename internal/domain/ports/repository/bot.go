package repository

import (
	"context"

	"telegram-pix-commerce/internal/domain/model"
)

// BotRepository is the port for the tenant registry (bots collection).
type BotRepository interface {
	// ListActive returns the tenant configurations with status "active",
	// welcome text included ("" when unset, callers fall back to a default).
	ListActive(ctx context.Context) ([]*model.TenantConfig, error)
}
