// Package scheduler decides, once per hour, which users should have a weekly
// reflection generated right now, and enqueues one tracked operation per due
// user without ever double-firing inside the same ISO week.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/jobs"
)

// ReflectionEstimateSeconds is the advisory duration stored on scheduled
// reflection operations so pollers can render a time-remaining estimate.
const ReflectionEstimateSeconds = 60

// ScanStats summarizes one scheduler pass.
type ScanStats struct {
	Scanned  int
	Enqueued int
	Skipped  int
	Failed   int
}

// CheckerOptions wires the scheduler's collaborators.
type CheckerOptions struct {
	Users      domain.UserRepository
	Snippets   domain.SnippetRepository
	Operations domain.OperationRepository
	Processor  jobs.Processor
	Logger     infra.Logger
}

// Checker holds the hourly due-user scan. It carries no mutable state of its
// own; all dedup checks go through the stores, so two instances cannot drift.
type Checker struct {
	users    domain.UserRepository
	snippets domain.SnippetRepository
	ops      domain.OperationRepository
	proc     jobs.Processor
	logger   infra.Logger
}

// NewChecker creates a scheduler checker.
func NewChecker(opts CheckerOptions) *Checker {
	return &Checker{
		users:    opts.Users,
		snippets: opts.Snippets,
		ops:      opts.Operations,
		proc:     opts.Processor,
		logger:   opts.Logger,
	}
}

// Scan walks every auto-generate user and enqueues a weekly reflection for
// each one whose local day and hour match their preference and who has
// neither an in-flight operation nor an existing reflection for the current
// ISO week. One user failing never aborts the rest of the scan.
func (c *Checker) Scan(ctx context.Context, now time.Time) (ScanStats, error) {
	users, err := c.users.ListAutoGenerate(ctx)
	if err != nil {
		return ScanStats{}, fmt.Errorf("list auto-generate users: %w", err)
	}

	stats := ScanStats{Scanned: len(users)}
	for i := range users {
		user := &users[i]
		enqueued, err := c.checkUser(ctx, user, now)
		switch {
		case err != nil:
			stats.Failed++
			c.logger.Error().Err(err).
				Str("user_id", user.ID).
				Msg("scheduler: user check failed")
		case enqueued:
			stats.Enqueued++
		default:
			stats.Skipped++
		}
	}

	c.logger.Info().
		Int("scanned", stats.Scanned).
		Int("enqueued", stats.Enqueued).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("scheduler: scan finished")
	return stats, nil
}

func (c *Checker) checkUser(ctx context.Context, user *domain.User, now time.Time) (bool, error) {
	prefs := c.effectivePreferences(user)

	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		return false, fmt.Errorf("%w: timezone %q", domain.ErrInvalidPreferences, prefs.Timezone)
	}
	// Convert before comparing: the preference names the user's local day
	// and hour, not the server's.
	local := now.In(loc)

	preferredDay, ok := prefs.PreferredWeekday()
	if !ok {
		return false, fmt.Errorf("%w: preferred_day %q", domain.ErrInvalidPreferences, prefs.PreferredDay)
	}
	if local.Weekday() != preferredDay || local.Hour() != prefs.PreferredHour {
		return false, nil
	}

	if err := c.assertNotDuplicate(ctx, user.ID, local); err != nil {
		if errors.Is(err, domain.ErrAlreadyInFlight) || errors.Is(err, domain.ErrAlreadyGenerated) {
			c.logger.Debug().
				Str("user_id", user.ID).
				Str("reason", err.Error()).
				Msg("scheduler: user skipped")
			return false, nil
		}
		return false, err
	}

	_, err = c.enqueueReflection(ctx, user, prefs, local, domain.TriggerScheduled)
	if err != nil {
		return false, err
	}
	return true, nil
}

// TriggerUser is the manual entry point. It bypasses the due-time check but
// keeps both dedup checks, so operational testing cannot double-generate.
func (c *Checker) TriggerUser(ctx context.Context, userID, triggerType string) (*domain.AsyncOperation, error) {
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs := c.effectivePreferences(user)

	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q", domain.ErrInvalidPreferences, prefs.Timezone)
	}
	local := time.Now().In(loc)

	if err := c.assertNotDuplicate(ctx, user.ID, local); err != nil {
		return nil, err
	}
	if triggerType == "" {
		triggerType = domain.TriggerManual
	}
	return c.enqueueReflection(ctx, user, prefs, local, triggerType)
}

// assertNotDuplicate enforces both dedup rules: no concurrent run, and at
// most one generated reflection per (user, ISO year, ISO week).
func (c *Checker) assertNotDuplicate(ctx context.Context, userID string, local time.Time) error {
	inFlight, err := c.ops.HasInFlight(ctx, userID, domain.OperationWeeklyReflection)
	if err != nil {
		return fmt.Errorf("check in-flight: %w", err)
	}
	if inFlight {
		return domain.ErrAlreadyInFlight
	}

	year, week := domain.WeekOf(local)
	exists, err := c.snippets.HasReflection(ctx, userID, year, week)
	if err != nil {
		return fmt.Errorf("check existing reflection: %w", err)
	}
	if exists {
		return domain.ErrAlreadyGenerated
	}
	return nil
}

func (c *Checker) enqueueReflection(ctx context.Context, user *domain.User, prefs domain.ReflectionPreferences, local time.Time, triggerType string) (*domain.AsyncOperation, error) {
	input := jsoncfg.NewReflectionInput(local, prefs.IncludeIntegrations, user.Locale)
	meta := domain.OperationMetadata{
		TriggerType:   triggerType,
		Timezone:      prefs.Timezone,
		PreferredTime: fmt.Sprintf("%s %02d:00", prefs.PreferredDay, prefs.PreferredHour),
		Locale:        user.Locale,
	}

	op := domain.NewOperation(user.ID, domain.OperationWeeklyReflection, jsoncfg.MustMarshal(input), ReflectionEstimateSeconds, meta)
	if err := c.ops.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("create operation: %w", err)
	}

	req := domain.JobRequest{
		Type:        domain.OperationWeeklyReflection,
		UserID:      user.ID,
		OperationID: op.ID,
		Input:       op.InputData,
		Meta:        meta,
	}
	if err := c.proc.Enqueue(ctx, req); err != nil {
		return nil, fmt.Errorf("enqueue reflection: %w", err)
	}

	c.logger.Info().
		Str("user_id", user.ID).
		Str("operation_id", op.ID).
		Str("trigger", triggerType).
		Msg("scheduler: reflection enqueued")
	return op, nil
}

// effectivePreferences fills unset fields, preferring a timezone derived from
// the user's country before falling back to the documented default.
func (c *Checker) effectivePreferences(user *domain.User) domain.ReflectionPreferences {
	prefs := user.Preferences
	if prefs.Timezone == "" {
		prefs.Timezone = geoip.TimezoneForCountry(user.Country)
	}
	return prefs.Normalize()
}
