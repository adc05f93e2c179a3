package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// OperationRepositoryPG implements domain.OperationRepository backed by PostgreSQL.
type OperationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewOperationRepository creates a new operation repository.
func NewOperationRepository(pool *pgxpool.Pool) *OperationRepositoryPG {
	return &OperationRepositoryPG{pool: pool}
}

const operationColumns = `id, user_id, operation_type, status, progress, input_data, result_data, error_message, estimated_duration, metadata, created_at, started_at, completed_at`

// Create inserts a new queued operation record.
func (r *OperationRepositoryPG) Create(ctx context.Context, op *domain.AsyncOperation) error {
	query := `
INSERT INTO operations (id, user_id, operation_type, status, progress, input_data, estimated_duration, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	meta, err := json.Marshal(op.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = r.pool.Exec(ctx, query,
		op.ID,
		op.UserID,
		op.Type,
		op.Status,
		op.Progress,
		nullableBytes(op.InputData),
		op.EstimatedDuration,
		meta,
		op.CreatedAt,
	)
	return err
}

// GetByID fetches an operation by its identifier.
func (r *OperationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.AsyncOperation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+operationColumns+` FROM operations WHERE id = $1`, id)
	return scanOperation(row)
}

// ListByUser returns the user's most recent operations.
func (r *OperationRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AsyncOperation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []domain.AsyncOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	return ops, rows.Err()
}

// MarkProcessing transitions a queued operation into processing. Terminal
// operations are left untouched and reported via domain.ErrOperationTerminal
// so redelivered callbacks stay no-ops.
func (r *OperationRepositoryPG) MarkProcessing(ctx context.Context, id string, startedAt time.Time) (*domain.AsyncOperation, error) {
	query := `
UPDATE operations
SET status = $2, progress = 0, started_at = $3
WHERE id = $1 AND status NOT IN ($4, $5)
RETURNING ` + operationColumns + `;
`
	row := r.pool.QueryRow(ctx, query, id, domain.OperationProcessing, startedAt,
		domain.OperationCompleted, domain.OperationFailed)
	op, err := scanOperation(row)
	if err == nil {
		return op, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	// Either missing or already terminal; disambiguate.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Status.Terminal() {
		return existing, domain.ErrOperationTerminal
	}
	return nil, domain.ErrNotFound
}

// UpdateProgress persists a progress value and the current-step annotation.
// Progress never decreases once written.
func (r *OperationRepositoryPG) UpdateProgress(ctx context.Context, id string, progress int, currentStep string) error {
	query := `
UPDATE operations
SET progress = GREATEST(progress, $2),
    metadata = jsonb_set(COALESCE(metadata, '{}'::jsonb), '{current_step}', to_jsonb($3::text))
WHERE id = $1 AND status = $4;
`
	_, err := r.pool.Exec(ctx, query, id, progress, currentStep, domain.OperationProcessing)
	return err
}

// Complete records the terminal success state with its result payload.
func (r *OperationRepositoryPG) Complete(ctx context.Context, id string, result json.RawMessage, completedAt time.Time) error {
	query := `
UPDATE operations
SET status = $2, progress = 100, result_data = $3, error_message = '', completed_at = $4
WHERE id = $1 AND status = $5;
`
	_, err := r.pool.Exec(ctx, query, id, domain.OperationCompleted, nullableBytes(result), completedAt, domain.OperationProcessing)
	return err
}

// Fail records the terminal failure state with its error message.
func (r *OperationRepositoryPG) Fail(ctx context.Context, id string, errorMessage string, completedAt time.Time) error {
	query := `
UPDATE operations
SET status = $2, result_data = NULL, error_message = $3, completed_at = $4
WHERE id = $1 AND status NOT IN ($5, $6);
`
	_, err := r.pool.Exec(ctx, query, id, domain.OperationFailed, errorMessage, completedAt,
		domain.OperationCompleted, domain.OperationFailed)
	return err
}

// HasInFlight reports whether userID has a queued or processing operation of opType.
func (r *OperationRepositoryPG) HasInFlight(ctx context.Context, userID string, opType domain.OperationType) (bool, error) {
	query := `
SELECT EXISTS (
  SELECT 1 FROM operations
  WHERE user_id = $1 AND operation_type = $2 AND status IN ($3, $4)
);
`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, opType, domain.OperationQueued, domain.OperationProcessing).Scan(&exists)
	return exists, err
}

func scanOperation(row pgx.Row) (*domain.AsyncOperation, error) {
	var (
		op   domain.AsyncOperation
		meta []byte
	)
	if err := row.Scan(
		&op.ID,
		&op.UserID,
		&op.Type,
		&op.Status,
		&op.Progress,
		&op.InputData,
		&op.ResultData,
		&op.ErrorMessage,
		&op.EstimatedDuration,
		&meta,
		&op.CreatedAt,
		&op.StartedAt,
		&op.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &op.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &op, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
