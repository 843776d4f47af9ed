package repository

import "telegram-pix-commerce/internal/domain/model"

// SessionStore holds per-chat conversation state. Implementations are only
// touched from the goroutine that owns that chat's event stream, so they need
// no cross-chat transactional guarantees.
type SessionStore interface {
	Get(chatID int64) (*model.Session, bool)
	Put(chatID int64, s *model.Session)
	Clear(chatID int64)
}
