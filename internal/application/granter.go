// File: internal/application/granter.go
package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/adapter"
)

var _ adapter.AccessGranter = (*InviteGranter)(nil)

// InviteGranter turns an approved payment into the product's deliverable:
// a single-use invite link for channel/supergroup offerings, the content
// itself for single ones.
type InviteGranter struct {
	tenant    *model.TenantConfig
	transport adapter.Transport
}

func NewInviteGranter(tenant *model.TenantConfig, transport adapter.Transport) *InviteGranter {
	return &InviteGranter{tenant: tenant, transport: transport}
}

func (g *InviteGranter) Grant(ctx context.Context, chatID int64, product *model.Product) (adapter.GrantPayload, error) {
	switch product.Type {
	case model.OfferingSingle:
		return adapter.GrantPayload{
			Type:    product.Type,
			Content: product.Content,
			Preview: product.PreviewContent,
		}, nil
	default:
		target := g.tenant.GroupTarget
		if id, err := strconv.ParseInt(product.Content, 10, 64); err == nil && id != 0 {
			target = id
		}
		link, err := g.transport.CreateInviteLink(ctx, target, adapter.InviteOptions{
			Name:      "VIP Member - " + time.Now().UTC().Format(time.RFC3339),
			SingleUse: true,
		})
		if err != nil {
			return adapter.GrantPayload{}, fmt.Errorf("create invite link: %w", err)
		}
		return adapter.GrantPayload{Type: product.Type, InviteLink: link}, nil
	}
}
