package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// SnippetRepositoryPG implements domain.SnippetRepository backed by PostgreSQL.
type SnippetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSnippetRepository creates a new SnippetRepositoryPG.
func NewSnippetRepository(pool *pgxpool.Pool) *SnippetRepositoryPG {
	return &SnippetRepositoryPG{pool: pool}
}

const snippetColumns = `id, user_id, kind, source, content, iso_year, iso_week, week_start, week_end, created_at`

// Create inserts a snippet or reflection record.
func (r *SnippetRepositoryPG) Create(ctx context.Context, snippet *domain.Snippet) error {
	query := `
INSERT INTO snippets (id, user_id, kind, source, content, iso_year, iso_week, week_start, week_end, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := r.pool.Exec(ctx, query,
		snippet.ID,
		snippet.UserID,
		snippet.Kind,
		snippet.Source,
		snippet.Content,
		snippet.ISOYear,
		snippet.ISOWeek,
		snippet.WeekStart,
		snippet.WeekEnd,
		snippet.CreatedAt,
	)
	return err
}

// ListWeek returns the user's snippets for one ISO week, oldest first.
func (r *SnippetRepositoryPG) ListWeek(ctx context.Context, userID string, isoYear, isoWeek int) ([]domain.Snippet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE user_id = $1 AND iso_year = $2 AND iso_week = $3 ORDER BY created_at`,
		userID, isoYear, isoWeek)
	if err != nil {
		return nil, err
	}
	return collectSnippets(rows)
}

// ListRange returns the user's snippets whose week overlaps [from, to].
func (r *SnippetRepositoryPG) ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Snippet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE user_id = $1 AND week_start <= $3 AND week_end >= $2 ORDER BY week_start, created_at`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectSnippets(rows)
}

// ListByUser returns the user's most recent snippets.
func (r *SnippetRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Snippet, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return collectSnippets(rows)
}

// HasReflection reports whether a generated reflection exists for the ISO week.
func (r *SnippetRepositoryPG) HasReflection(ctx context.Context, userID string, isoYear, isoWeek int) (bool, error) {
	query := `
SELECT EXISTS (
  SELECT 1 FROM snippets
  WHERE user_id = $1 AND iso_year = $2 AND iso_week = $3 AND kind = $4
);
`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, isoYear, isoWeek, domain.SnippetKindReflection).Scan(&exists)
	return exists, err
}

func collectSnippets(rows pgx.Rows) ([]domain.Snippet, error) {
	defer rows.Close()
	var snippets []domain.Snippet
	for rows.Next() {
		var s domain.Snippet
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Kind,
			&s.Source,
			&s.Content,
			&s.ISOYear,
			&s.ISOWeek,
			&s.WeekStart,
			&s.WeekEnd,
			&s.CreatedAt,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		snippets = append(snippets, s)
	}
	return snippets, rows.Err()
}
