package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

const userColumns = `id, email, display_name, role_title, locale, country, career_plan, career_plan_generated_at,
auto_generate, preferred_day, preferred_hour, timezone, include_integrations, notify_on_generation,
created_at, updated_at`

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListAutoGenerate returns users whose automatic generation is enabled.
// auto_generate is nullable; an untouched profile defaults to enabled.
func (r *UserRepositoryPG) ListAutoGenerate(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE COALESCE(auto_generate, TRUE) ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdatePreferences persists validated reflection preferences.
func (r *UserRepositoryPG) UpdatePreferences(ctx context.Context, userID string, prefs domain.ReflectionPreferences) error {
	query := `
UPDATE users
SET auto_generate = $2,
    preferred_day = $3,
    preferred_hour = $4,
    timezone = $5,
    include_integrations = $6,
    notify_on_generation = $7,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query,
		userID,
		prefs.AutoGenerate,
		prefs.PreferredDay,
		prefs.PreferredHour,
		prefs.Timezone,
		prefs.IncludeIntegrations,
		prefs.NotifyOnGeneration,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateCareerPlan writes a generated career plan onto the user profile.
func (r *UserRepositoryPG) UpdateCareerPlan(ctx context.Context, userID, plan string, generatedAt time.Time) error {
	query := `
UPDATE users
SET career_plan = $2, career_plan_generated_at = $3, updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, userID, plan, generatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user          domain.User
		careerPlan    *string
		autoGenerate  *bool
		preferredDay  *string
		preferredHour *int
		timezone      *string
		notify        *bool
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.RoleTitle,
		&user.Locale,
		&user.Country,
		&careerPlan,
		&user.CareerPlanGeneratedAt,
		&autoGenerate,
		&preferredDay,
		&preferredHour,
		&timezone,
		&user.Preferences.IncludeIntegrations,
		&notify,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if careerPlan != nil {
		user.CareerPlan = *careerPlan
	}
	defaults := domain.DefaultPreferences()
	user.Preferences.AutoGenerate = defaults.AutoGenerate
	if autoGenerate != nil {
		user.Preferences.AutoGenerate = *autoGenerate
	}
	user.Preferences.NotifyOnGeneration = defaults.NotifyOnGeneration
	if notify != nil {
		user.Preferences.NotifyOnGeneration = *notify
	}
	if preferredDay != nil {
		user.Preferences.PreferredDay = *preferredDay
	}
	if preferredHour != nil {
		user.Preferences.PreferredHour = *preferredHour
	} else {
		user.Preferences.PreferredHour = -1
	}
	if timezone != nil {
		user.Preferences.Timezone = *timezone
	}
	// Day, hour and timezone stay unset here; callers apply Normalize so the
	// scheduler can substitute a country-aware timezone default first.
	return &user, nil
}
