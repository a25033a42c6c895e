package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crittrail/crittrail/git"
	"github.com/crittrail/crittrail/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the snapshot store",
	Long: `Create the SQLite snapshot store that save and compare operate on.

Examples:
  # Create .crittrail.db at the repository root
  crittrail init

  # Recreate the store, discarding all stored snapshots
  crittrail init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Recreate the store, discarding existing snapshots")
}

func runInit(cmd *cobra.Command, args []string) error {
	repo, _ := git.Open(repoPath)
	path, err := storePath(repo)
	if err != nil {
		return err
	}

	if err := store.Init(path, force); err != nil {
		if errors.Is(err, store.ErrStoreExists) {
			return fmt.Errorf("%s already exists. Use --force to recreate", path)
		}
		return err
	}

	fmt.Printf("✓ Created %s\n", path)
	return nil
}
