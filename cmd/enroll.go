package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/kozaktomas/face-attendance/internal/photostore"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll employees from snapshot photos",
	Long: `Enroll a single employee from a photo, or a whole directory of photos.
In directory mode each image file becomes one identity: the file name
without extension is the identity ID and, with underscores replaced by
spaces, the display name.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Identity ID (e.g. emp042)")
	enrollCmd.Flags().String("name", "", "Display name")
	enrollCmd.Flags().String("department", "", "Department")
	enrollCmd.Flags().String("photo", "", "Path to the snapshot photo")
	enrollCmd.Flags().String("dir", "", "Directory of photos to enroll in batch")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, identityRepo, _, err := connectStores(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	photos, err := photostore.New(cfg.Photos.Dir)
	if err != nil {
		return fmt.Errorf("preparing photo directory: %w", err)
	}

	ctx := context.Background()

	if dir := mustGetString(cmd, "dir"); dir != "" {
		return enrollDirectory(ctx, identityRepo, photos, dir)
	}

	id := mustGetString(cmd, "id")
	name := mustGetString(cmd, "name")
	photoPath := mustGetString(cmd, "photo")
	if id == "" || name == "" || photoPath == "" {
		return errors.New("--id, --name and --photo are required (or use --dir)")
	}

	identity, err := enrollFromFile(ctx, identityRepo, photos, id, name, mustGetString(cmd, "department"), photoPath)
	if err != nil {
		return err
	}

	fmt.Printf("Enrolled %s (%s)\n", identity.DisplayName, identity.IdentityID)
	return nil
}

// enrollFromFile extracts a feature from a photo file and enrolls the identity.
func enrollFromFile(
	ctx context.Context,
	store database.IdentityStore,
	photos *photostore.Store,
	id, name, department, path string,
) (database.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return database.Identity{}, fmt.Errorf("reading photo %s: %w", path, err)
	}

	feat, err := feature.Extract(data)
	if err != nil {
		return database.Identity{}, fmt.Errorf("extracting feature from %s: %w", path, err)
	}

	stored, err := photos.Save(id, data)
	if err != nil {
		return database.Identity{}, err
	}

	enrolled, err := store.Enroll(ctx, database.Identity{
		IdentityID:  id,
		DisplayName: name,
		Department:  department,
		Feature:     feat,
		PhotoPath:   stored,
	})
	if err != nil {
		_ = photos.Remove(stored)
		return database.Identity{}, err
	}
	return enrolled, nil
}

// enrollDirectory enrolls every image file in a directory.
func enrollDirectory(ctx context.Context, store database.IdentityStore, photos *photostore.Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no image files found in %s", dir)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
	)

	enrolled, skipped := 0, 0
	for _, name := range files {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		id := strings.ToLower(base)
		displayName := strings.ReplaceAll(base, "_", " ")

		_, err := enrollFromFile(ctx, store, photos, id, displayName, "", filepath.Join(dir, name))
		switch {
		case err == nil:
			enrolled++
		case errors.Is(err, attendance.ErrDuplicateIdentity):
			skipped++
		default:
			fmt.Printf("\nWarning: %s: %v\n", name, err)
			skipped++
		}
		bar.Add(1)
	}

	fmt.Printf("\nEnrolled %d identities, skipped %d\n", enrolled, skipped)
	return nil
}
