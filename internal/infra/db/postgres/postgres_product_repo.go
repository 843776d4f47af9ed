// File: internal/infra/db/postgres/postgres_product_repo.go
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/repository"
)

var _ repository.ProductRepository = (*productRepo)(nil)

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

func (r *productRepo) ListByTenant(ctx context.Context, tenantID int64) ([]*model.Product, error) {
	const q = `
SELECT id, name, COALESCE(description,''), price, bot_id, is_active, type, COALESCE(preview_content,''), COALESCE(content,''), COALESCE(period,0)
FROM products
WHERE bot_id=$1 AND is_active=true
ORDER BY id;`

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Product
	for rows.Next() {
		p := &model.Product{}
		var typ string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.TenantID, &p.Active, &typ, &p.PreviewContent, &p.Content, &p.PeriodMonths); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		t, ok := model.ParseOfferingType(typ)
		if !ok {
			// Unknown categories are skipped, not fatal; the rest of the
			// catalog still loads.
			continue
		}
		p.Type = t
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}
