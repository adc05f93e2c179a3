package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/adapter/repo"
	"server/internal/domain"
)

func main() {
	var (
		idFlag     string
		dayFlag    string
		hourFlag   int
		tzFlag     string
		autoFlag   string
		notifyFlag string
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&dayFlag, "day", "", "preferred day (sunday, monday or friday)")
	flag.IntVar(&hourFlag, "hour", -1, "preferred hour in the user's timezone (0-23)")
	flag.StringVar(&tzFlag, "tz", "", "IANA timezone name")
	flag.StringVar(&autoFlag, "auto", "", "enable or disable automatic generation (true/false)")
	flag.StringVar(&notifyFlag, "notify", "", "enable or disable generation notifications (true/false)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	users := repo.NewUserRepository(pool)

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user: %w", err))
	}

	patch := domain.PreferencesPatch{}
	if dayFlag != "" {
		day := strings.ToLower(strings.TrimSpace(dayFlag))
		patch.PreferredDay = &day
	}
	if hourFlag >= 0 {
		patch.PreferredHour = &hourFlag
	}
	if tzFlag != "" {
		tz := strings.TrimSpace(tzFlag)
		patch.Timezone = &tz
	}
	if autoFlag != "" {
		patch.AutoGenerate = parseBoolFlag("auto", autoFlag)
	}
	if notifyFlag != "" {
		patch.NotifyOnGeneration = parseBoolFlag("notify", notifyFlag)
	}

	prefs := patch.Apply(user.Preferences.Normalize())
	if err := prefs.Validate(); err != nil {
		exitWithError(err)
	}

	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()
	if err := users.UpdatePreferences(updateCtx, userID, prefs); err != nil {
		exitWithError(fmt.Errorf("failed to update preferences: %w", err))
	}

	fmt.Printf("User %s (%s) preferences updated\n", user.ID, user.Email)
	fmt.Printf("auto_generate=%t\n", prefs.AutoGenerate)
	fmt.Printf("preferred_day=%s\n", prefs.PreferredDay)
	fmt.Printf("preferred_hour=%d\n", prefs.PreferredHour)
	fmt.Printf("timezone=%s\n", prefs.Timezone)
	fmt.Printf("notify_on_generation=%t\n", prefs.NotifyOnGeneration)
}

func parseBoolFlag(name, value string) *bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	exitWithError(fmt.Errorf("-%s must be true or false", name))
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
