package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/legacy"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// legacyTimeLayout is how the legacy system stores date + time of day.
const legacyTimeLayout = "2006-01-02 15:04:05"

var importLegacyCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Import roster and attendance from the legacy PHP system",
	Long: `Import from the legacy MySQL database (LEGACY_DATABASE_DSN).
The legacy face_data column is a content hash and cannot be compared, so
employees are re-enrolled by re-extracting features from their stored
photos; employees whose photo is missing are skipped. The attendance log
is then replayed into sessions.`,
	RunE: runImportLegacy,
}

func init() {
	rootCmd.AddCommand(importLegacyCmd)

	importLegacyCmd.Flags().String("photos-dir", "face_photos", "Directory holding the legacy photo files")
	importLegacyCmd.Flags().Bool("skip-attendance", false, "Import only the roster, not the attendance log")
}

func runImportLegacy(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Legacy.DSN == "" {
		return errors.New("LEGACY_DATABASE_DSN environment variable is required")
	}

	pool, identityRepo, sessionRepo, err := connectStores(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	legacyPool, err := legacy.NewPool(cfg.Legacy.DSN)
	if err != nil {
		return fmt.Errorf("connecting to legacy database: %w", err)
	}
	defer legacyPool.Close()

	loc, err := loadTimezone(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	employees, err := legacyPool.Employees(ctx)
	if err != nil {
		return err
	}
	imported := importEmployees(ctx, identityRepo, employees, mustGetString(cmd, "photos-dir"))
	fmt.Printf("\nImported %d of %d employees\n", imported, len(employees))

	if mustGetBool(cmd, "skip-attendance") {
		return nil
	}

	rows, err := legacyPool.Attendance(ctx)
	if err != nil {
		return err
	}
	replayed := replayAttendance(ctx, sessionRepo, rows, loc)
	fmt.Printf("\nReplayed %d of %d attendance records\n", replayed, len(rows))
	return nil
}

// importEmployees re-enrolls legacy employees, extracting a fresh feature
// from each stored photo. Returns the number of employees imported.
func importEmployees(
	ctx context.Context, store database.IdentityStore, employees []legacy.Employee, photosDir string,
) int {
	bar := progressbar.NewOptions(len(employees),
		progressbar.OptionSetDescription("Importing employees"),
		progressbar.OptionShowCount(),
	)

	imported := 0
	for _, employee := range employees {
		bar.Add(1)

		path := filepath.Join(photosDir, filepath.Base(employee.PhotoURL))
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("\nWarning: %s: photo %s not readable, skipping\n", employee.EmployeeID, path)
			continue
		}

		feat, err := feature.Extract(data)
		if err != nil {
			fmt.Printf("\nWarning: %s: %v, skipping\n", employee.EmployeeID, err)
			continue
		}

		_, err = store.Enroll(ctx, database.Identity{
			IdentityID:  employee.EmployeeID,
			DisplayName: employee.Name,
			Department:  employee.Department,
			Feature:     feat,
			PhotoPath:   path,
		})
		switch {
		case err == nil:
			imported++
		case errors.Is(err, attendance.ErrDuplicateIdentity):
			// Already imported on a previous run.
		default:
			fmt.Printf("\nWarning: %s: %v, skipping\n", employee.EmployeeID, err)
		}
	}
	return imported
}

// replayAttendance recreates legacy attendance rows as sessions. Rows for
// employees that were not imported are skipped.
func replayAttendance(
	ctx context.Context, sessions database.SessionStore, rows []legacy.AttendanceRow, loc *time.Location,
) int {
	bar := progressbar.NewOptions(len(rows),
		progressbar.OptionSetDescription("Replaying attendance"),
		progressbar.OptionShowCount(),
	)

	replayed := 0
	for _, row := range rows {
		bar.Add(1)

		checkIn, err := time.ParseInLocation(legacyTimeLayout, row.Date+" "+row.TimeIn, loc)
		if err != nil {
			fmt.Printf("\nWarning: %s on %s: %v, skipping\n", row.EmployeeID, row.Date, err)
			continue
		}

		session, err := sessions.Create(ctx, row.EmployeeID, row.Date, checkIn)
		if err != nil {
			fmt.Printf("\nWarning: %s on %s: %v, skipping\n", row.EmployeeID, row.Date, err)
			continue
		}

		if row.TimeOut != nil {
			checkOut, err := time.ParseInLocation(legacyTimeLayout, row.Date+" "+*row.TimeOut, loc)
			if err == nil {
				_, err = sessions.Close(ctx, session.ID, checkOut)
			}
			if err != nil {
				fmt.Printf("\nWarning: %s on %s: closing session: %v\n", row.EmployeeID, row.Date, err)
				continue
			}
		}
		replayed++
	}
	return replayed
}
