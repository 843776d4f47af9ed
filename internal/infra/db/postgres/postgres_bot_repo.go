// File: internal/infra/db/postgres/postgres_bot_repo.go
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/repository"
)

var _ repository.BotRepository = (*botRepo)(nil)

// botRepo reads the tenant registry: one row per operator bot.
type botRepo struct{ pool *pgxpool.Pool }

func NewBotRepo(pool *pgxpool.Pool) *botRepo {
	return &botRepo{pool: pool}
}

func (r *botRepo) ListActive(ctx context.Context) ([]*model.TenantConfig, error) {
	const q = `
SELECT id, bot_token, COALESCE(bot_id_group,0), COALESCE(welcome_message,''), COALESCE(gateway_token,'')
FROM bots
WHERE status='active'
ORDER BY id;`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.TenantConfig
	for rows.Next() {
		t := &model.TenantConfig{}
		if err := rows.Scan(&t.ID, &t.Token, &t.GroupTarget, &t.WelcomeMessage, &t.GatewayToken); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}
