package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List enrolled identities",
	RunE:  runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
}

func runIdentities(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, identityRepo, _, err := connectStores(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	identities, err := identityRepo.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	fmt.Printf("%-16s %-28s %-20s %s\n", "ID", "NAME", "DEPARTMENT", "ENROLLED")
	for _, identity := range identities {
		fmt.Printf("%-16s %-28s %-20s %s\n",
			identity.IdentityID,
			identity.DisplayName,
			identity.Department,
			identity.EnrolledAt.Format("2006-01-02 15:04"),
		)
	}
	fmt.Printf("\n%d identities enrolled\n", len(identities))
	return nil
}
