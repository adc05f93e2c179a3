package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	ProviderLLM = "llm"
)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// Store reads and writes provider credentials kept in the database, used
// when the corresponding environment variable is not set.
type Store struct {
	pool Querier
}

func NewStore(pool Querier) *Store {
	return &Store{pool: pool}
}

func (s *Store) LLMAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderLLM)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	const q = `
		SELECT access_token
		FROM integration_credentials
		WHERE provider = $1
	`
	var token string
	if err := s.pool.QueryRow(ctx, q, provider).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetLLMAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("llm api key is required")
	}
	return s.upsert(ctx, ProviderLLM, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	const q = `
		INSERT INTO integration_credentials (provider, access_token, props, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (provider)
		DO UPDATE SET access_token = EXCLUDED.access_token, props = EXCLUDED.props, updated_at = NOW()
	`
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, q, provider, token, raw)
	return err
}
