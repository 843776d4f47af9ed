package adapter

import (
	"context"
	"time"
)

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// InviteOptions controls invite-link creation for channel/supergroup grants.
type InviteOptions struct {
	Name      string
	SingleUse bool
	ExpireAt  *time.Time // nil = never expires
}

// Transport is the messaging collaborator one tenant's controller renders
// through. Implementations wrap the Telegram Bot API.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, rows [][]InlineButton) (messageID int, err error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, rows [][]InlineButton) error
	EditMessageCaption(ctx context.Context, chatID int64, messageID int, caption string, rows [][]InlineButton) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string, rows [][]InlineButton) (messageID int, err error)
	CreateInviteLink(ctx context.Context, targetChatID int64, opts InviteOptions) (string, error)
}
