// File: internal/infra/db/postgres/postgres_payment_repo.go
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/repository"
	"telegram-pix-commerce/internal/infra/security"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

// paymentRepo persists the charge ledger. Buyer emails are encrypted at rest
// when an EncryptionService is configured; rows written before encryption was
// enabled decrypt-fail and are returned as stored.
type paymentRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewPaymentRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *paymentRepo {
	return &paymentRepo{pool: pool, enc: enc}
}

const paymentColumns = `id, payment_id, telegram_id, chat_id, bot_id, product_id, COALESCE(email,''), transaction_amount, payment_status, COALESCE(redeem_code,''), expire_in, created_at`

func (r *paymentRepo) Save(ctx context.Context, p *model.PaymentRequest) error {
	if p == nil || p.GatewayID == 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO payments (payment_id, telegram_id, chat_id, bot_id, product_id, email, transaction_amount, payment_status, redeem_code, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id;`

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	email := p.BuyerEmail
	if r.enc != nil && email != "" {
		ct, err := r.enc.Encrypt(email)
		if err != nil {
			return domain.ErrOperationFailed
		}
		email = ct
	}

	err := r.pool.QueryRow(ctx, q,
		p.GatewayID, p.SubscriberID, p.ChatID, p.TenantID, p.ProductID,
		email, p.Amount, p.Status, p.RedeemCode, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// duplicate payment_id: the charge is already recorded
			return domain.ErrInvalidArgument
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindLatest(ctx context.Context, subscriberID, tenantID, productID int64) (*model.PaymentRequest, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE telegram_id=$1 AND bot_id=$2 AND product_id=$3 ORDER BY created_at DESC LIMIT 1;`
	row := r.pool.QueryRow(ctx, q, subscriberID, tenantID, productID)
	p, err := r.scan(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) ListApproved(ctx context.Context, subscriberID, tenantID, productID int64) ([]*model.PaymentRequest, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE telegram_id=$1 AND bot_id=$2 AND product_id=$3 AND payment_status='approved' ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, q, subscriberID, tenantID, productID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *paymentRepo) Activate(ctx context.Context, ledgerID int64, status model.PaymentStatus, expireAt *time.Time) (bool, error) {
	// Guarded on expire_in and status so a re-check after approval is a
	// no-op: the first activation wins and the expiry is never recomputed.
	const q = `
UPDATE payments SET payment_status=$2, expire_in=$3
WHERE id=$1 AND expire_in IS NULL AND payment_status <> 'approved';`

	tag, err := r.pool.Exec(ctx, q, ledgerID, status, expireAt)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, ledgerID int64, status model.PaymentStatus) error {
	const q = `UPDATE payments SET payment_status=$2 WHERE id=$1;`
	if _, err := r.pool.Exec(ctx, q, ledgerID, status); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tenantID int64, cutoff time.Time, limit int) ([]*model.PaymentRequest, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE bot_id=$1 AND payment_status='pending' AND created_at < $2 ORDER BY created_at ASC LIMIT $3;`
	rows, err := r.pool.Query(ctx, q, tenantID, cutoff, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *paymentRepo) scan(row pgx.Row) (*model.PaymentRequest, error) {
	p := &model.PaymentRequest{}
	var status string
	err := row.Scan(&p.ID, &p.GatewayID, &p.SubscriberID, &p.ChatID, &p.TenantID, &p.ProductID,
		&p.BuyerEmail, &p.Amount, &status, &p.RedeemCode, &p.ExpireAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.ParsePaymentStatus(status)
	if r.enc != nil && p.BuyerEmail != "" {
		if plain, err := r.enc.Decrypt(p.BuyerEmail); err == nil {
			p.BuyerEmail = plain
		}
	}
	return p, nil
}

func (r *paymentRepo) scanAll(rows pgx.Rows) ([]*model.PaymentRequest, error) {
	var out []*model.PaymentRequest
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
