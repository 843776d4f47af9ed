package repository

import (
	"context"
	"time"

	"telegram-pix-commerce/internal/domain/model"
)

// PaymentRepository is the ledger port over the payments collection.
type PaymentRepository interface {
	// Save inserts a new payment row and fills in the generated ledger id.
	Save(ctx context.Context, p *model.PaymentRequest) error

	// FindLatest returns the newest payment for a subscriber/tenant/product
	// tuple by creation time descending. domain.ErrNotFound when none exist.
	FindLatest(ctx context.Context, subscriberID, tenantID, productID int64) (*model.PaymentRequest, error)

	// ListApproved returns every approved payment for the tuple, newest first.
	ListApproved(ctx context.Context, subscriberID, tenantID, productID int64) ([]*model.PaymentRequest, error)

	// Activate sets status and the expiration timestamp, but only when
	// expire_in is still unset (first-activation-wins). Reports whether this
	// call performed the activation.
	Activate(ctx context.Context, ledgerID int64, status model.PaymentStatus, expireAt *time.Time) (bool, error)

	// UpdateStatus records the latest provider-reported status.
	UpdateStatus(ctx context.Context, ledgerID int64, status model.PaymentStatus) error

	// ListPendingOlderThan returns pending payments created before the cutoff,
	// oldest first, capped at limit. Used by the reconciler.
	ListPendingOlderThan(ctx context.Context, tenantID int64, cutoff time.Time, limit int) ([]*model.PaymentRequest, error)
}
