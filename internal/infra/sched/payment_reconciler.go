// File: internal/infra/sched/payment_reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/application"
	"telegram-pix-commerce/internal/domain/ports/repository"
	"telegram-pix-commerce/internal/usecase"
)

var _ application.Worker = (*PaymentReconciler)(nil)

// PaymentReconciler periodically scans one tenant's stale pending charges and
// tries to finalize them through the orchestrator. This covers buyers who paid
// but never pressed the verify button, and crashes mid-confirmation.
type PaymentReconciler struct {
	tenantID   int64
	orch       usecase.PaymentOrchestrator
	payments   repository.PaymentRepository
	notifier   application.ApprovalNotifier
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	log        *zerolog.Logger
}

const reconcileBatch = 200

func NewPaymentReconciler(tenantID int64, orch usecase.PaymentOrchestrator, payments repository.PaymentRepository, notifier application.ApprovalNotifier, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Int64("tenant_id", tenantID).Logger()
	return &PaymentReconciler{
		tenantID:   tenantID,
		orch:       orch,
		payments:   payments,
		notifier:   notifier,
		interval:   interval,
		staleAfter: staleAfter,
		log:        &l,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, w.tenantID, cutoff, reconcileBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending failed")
		return
	}
	for _, p := range pending {
		res, err := w.orch.CheckAndGrant(ctx, p.SubscriberID, p.ChatID, p.ProductID)
		if err != nil {
			w.log.Warn().Err(err).Int64("ledger_id", p.ID).Msg("reconcile check failed")
			continue
		}
		if res.Outcome != usecase.GrantApproved {
			continue
		}
		w.log.Info().Int64("ledger_id", p.ID).Int64("chat_id", p.ChatID).Msg("payment reconciled")
		if w.notifier != nil {
			if err := w.notifier.NotifyApproved(ctx, p.ChatID, res); err != nil {
				w.log.Warn().Err(err).Int64("chat_id", p.ChatID).Msg("approval notification failed")
			}
		}
	}
}
