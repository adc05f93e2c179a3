package domain

import (
	"fmt"
	"time"
)

// User captures the slice of the profile this service reads and writes.
type User struct {
	ID                    string
	Email                 string
	DisplayName           string
	RoleTitle             string
	Locale                string
	Country               string
	CareerPlan            string
	CareerPlanGeneratedAt *time.Time
	Preferences           ReflectionPreferences
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Preference defaults applied whenever a user never touched their settings.
const (
	DefaultPreferredDay  = "friday"
	DefaultPreferredHour = 14
	DefaultTimezone      = "America/New_York"
)

var preferredDays = map[string]time.Weekday{
	"sunday": time.Sunday,
	"monday": time.Monday,
	"friday": time.Friday,
}

// ReflectionPreferences controls when and how automatic weekly reflections run.
type ReflectionPreferences struct {
	AutoGenerate        bool
	PreferredDay        string
	PreferredHour       int
	Timezone            string
	IncludeIntegrations []string
	NotifyOnGeneration  bool
}

// DefaultPreferences returns the documented defaults for an untouched profile.
func DefaultPreferences() ReflectionPreferences {
	return ReflectionPreferences{
		AutoGenerate:       true,
		PreferredDay:       DefaultPreferredDay,
		PreferredHour:      DefaultPreferredHour,
		Timezone:           DefaultTimezone,
		NotifyOnGeneration: true,
	}
}

// Normalize fills unset fields with defaults and returns the effective
// preferences the scheduler works against.
func (p ReflectionPreferences) Normalize() ReflectionPreferences {
	if p.PreferredDay == "" {
		p.PreferredDay = DefaultPreferredDay
	}
	if p.PreferredHour < 0 || p.PreferredHour > 23 {
		p.PreferredHour = DefaultPreferredHour
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	return p
}

// Validate rejects preferences the scheduler could not act on.
func (p ReflectionPreferences) Validate() error {
	if _, ok := preferredDays[p.PreferredDay]; !ok {
		return fmt.Errorf("%w: preferred_day %q", ErrInvalidPreferences, p.PreferredDay)
	}
	if p.PreferredHour < 0 || p.PreferredHour > 23 {
		return fmt.Errorf("%w: preferred_hour %d out of range", ErrInvalidPreferences, p.PreferredHour)
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q", ErrInvalidPreferences, p.Timezone)
	}
	return nil
}

// PreferredWeekday maps the stored day name onto time.Weekday.
func (p ReflectionPreferences) PreferredWeekday() (time.Weekday, bool) {
	day, ok := preferredDays[p.PreferredDay]
	return day, ok
}

// PreferencesPatch carries a partial preferences update; nil fields are untouched.
type PreferencesPatch struct {
	AutoGenerate        *bool
	PreferredDay        *string
	PreferredHour       *int
	Timezone            *string
	IncludeIntegrations *[]string
	NotifyOnGeneration  *bool
}

// Apply overlays the patch onto p and returns the result.
func (patch PreferencesPatch) Apply(p ReflectionPreferences) ReflectionPreferences {
	if patch.AutoGenerate != nil {
		p.AutoGenerate = *patch.AutoGenerate
	}
	if patch.PreferredDay != nil {
		p.PreferredDay = *patch.PreferredDay
	}
	if patch.PreferredHour != nil {
		p.PreferredHour = *patch.PreferredHour
	}
	if patch.Timezone != nil {
		p.Timezone = *patch.Timezone
	}
	if patch.IncludeIntegrations != nil {
		p.IncludeIntegrations = *patch.IncludeIntegrations
	}
	if patch.NotifyOnGeneration != nil {
		p.NotifyOnGeneration = *patch.NotifyOnGeneration
	}
	return p
}
