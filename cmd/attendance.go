package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show the attendance ledger for a day",
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Day to show (YYYY-MM-DD, defaults to today)")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, identityRepo, sessionRepo, err := connectStores(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	loc, err := loadTimezone(cfg)
	if err != nil {
		return err
	}

	ledger := attendance.NewLedger(identityRepo, sessionRepo, loc)

	day := mustGetString(cmd, "date")
	if day == "" {
		day = ledger.Today()
	}

	sessions, total, err := ledger.ListByDay(context.Background(), day)
	if err != nil {
		return fmt.Errorf("listing attendance for %s: %w", day, err)
	}

	fmt.Printf("%-16s %-10s %s\n", "ID", "CHECK-IN", "CHECK-OUT")
	for _, session := range sessions {
		checkOut := "-"
		if session.CheckOut != nil {
			checkOut = session.CheckOut.In(loc).Format("15:04:05")
		}
		fmt.Printf("%-16s %-10s %s\n",
			session.IdentityID,
			session.CheckIn.In(loc).Format("15:04:05"),
			checkOut,
		)
	}
	fmt.Printf("\n%d sessions, %d identities present on %s\n", len(sessions), total, day)
	return nil
}
