package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/photostore"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance web server",
	Long: `Start the Face Attendance web server.
The server exposes the enrollment, presence and ledger endpoints consumed
by the capture kiosk and the reception dashboard.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// initFeatureIndex builds the in-memory HNSW index over the enrolled roster.
func initFeatureIndex(ctx context.Context, matcher *attendance.Matcher) {
	fmt.Printf("Building in-memory HNSW index for face matching...\n")
	if err := matcher.EnableIndex(ctx); err != nil {
		fmt.Printf("Warning: Failed to build feature index: %v\n", err)
		fmt.Printf("Matching will use PostgreSQL queries (slower)\n")
	} else {
		fmt.Printf("Feature index built with %d identities (in-memory only)\n", matcher.IndexCount())
	}
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, identityRepo, sessionRepo, err := connectStores(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	loc, err := loadTimezone(cfg)
	if err != nil {
		return err
	}

	matcher, err := attendance.NewMatcher(identityRepo, attendance.MatcherConfig{
		Threshold:      cfg.Matcher.Threshold,
		Metric:         attendance.Metric(cfg.Matcher.Metric),
		CandidateLimit: cfg.Matcher.CandidateLimit,
	})
	if err != nil {
		return fmt.Errorf("configuring matcher: %w", err)
	}

	initFeatureIndex(context.Background(), matcher)

	ledger := attendance.NewLedger(identityRepo, sessionRepo, loc)
	coordinator := attendance.NewCoordinator(matcher, ledger,
		time.Duration(cfg.Matcher.TimeoutSeconds)*time.Second)

	photos, err := photostore.New(cfg.Photos.Dir)
	if err != nil {
		return fmt.Errorf("preparing photo directory: %w", err)
	}

	port, host := resolveServeHostPort(cmd)

	server := web.NewServer(cfg, port, host, web.Deps{
		Identities:  identityRepo,
		Matcher:     matcher,
		Ledger:      ledger,
		Coordinator: coordinator,
		Photos:      photos,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
