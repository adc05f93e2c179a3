package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// IntegrationRepositoryPG implements domain.IntegrationRepository backed by PostgreSQL.
type IntegrationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewIntegrationRepository creates a new IntegrationRepositoryPG.
func NewIntegrationRepository(pool *pgxpool.Pool) *IntegrationRepositoryPG {
	return &IntegrationRepositoryPG{pool: pool}
}

// ListEnabled returns the user's enabled integrations.
func (r *IntegrationRepositoryPG) ListEnabled(ctx context.Context, userID string) ([]domain.Integration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, kind, enabled, config, created_at FROM integrations WHERE user_id = $1 AND enabled ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []domain.Integration
	for rows.Next() {
		var in domain.Integration
		if err := rows.Scan(&in.ID, &in.UserID, &in.Kind, &in.Enabled, &in.Config, &in.CreatedAt); err != nil {
			return nil, err
		}
		integrations = append(integrations, in)
	}
	return integrations, rows.Err()
}
