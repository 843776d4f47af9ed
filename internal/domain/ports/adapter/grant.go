package adapter

import (
	"context"

	"telegram-pix-commerce/internal/domain/model"
)

// GrantPayload is the deliverable produced for an approved payment: an invite
// link for channel/supergroup offerings, direct content for single ones.
type GrantPayload struct {
	Type       model.OfferingType
	InviteLink string
	Content    string
	Preview    string
}

// AccessGranter produces the grant for a product. Implementations talk to the
// transport collaborator (invite-link creation) and so may fail transiently.
type AccessGranter interface {
	Grant(ctx context.Context, chatID int64, product *model.Product) (GrantPayload, error)
}
