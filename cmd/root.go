package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Employee attendance tracking driven by face matching",
	Long: `Face Attendance records employee check-ins and check-outs from camera
snapshots. Each snapshot is matched against the enrolled roster; a match
flips the employee's session for the day: no open session checks in, an
open session checks out.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// connectStores opens the PostgreSQL pool, runs migrations and builds the
// repositories shared by most commands.
func connectStores(cfg *config.Config) (*postgres.Pool, *postgres.IdentityRepository, *postgres.SessionRepository, error) {
	if cfg.Database.URL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Connect(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return pool, postgres.NewIdentityRepository(pool), postgres.NewSessionRepository(pool), nil
}

// loadTimezone resolves the configured day-partition timezone.
func loadTimezone(cfg *config.Config) (*time.Location, error) {
	tz := cfg.Attendance.Timezone
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", tz, err)
	}
	return loc, nil
}
