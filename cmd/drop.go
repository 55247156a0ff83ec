package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	dropForce bool
	dropAll   bool
)

// dropCmd removes one stored match, or the whole database file.
var dropCmd = &cobra.Command{
	Use:   "drop [match-prefix]",
	Short: "Delete a stored match or the whole database",
	Long: `Delete the stored rows of one match, found by match id or demo hash prefix.
With --all the SQLite database file itself is removed. Re-parse your demos afterwards to rebuild.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().BoolVar(&dropAll, "all", false, "delete the whole database file")
}

func runDrop(_ *cobra.Command, args []string) error {
	if dropAll {
		return dropDatabase()
	}
	if len(args) == 0 {
		return errors.New("drop: a match prefix or --all is required")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := findMatch(db, args[0])
	if err != nil || m == nil {
		return err
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will delete match %s (%s).\n", m.MatchID, m.MapName)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if _, err := db.DeleteMatch(m.MatchID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	logger.Info("Dropped match", slog.String("match_id", m.MatchID))
	fmt.Fprintf(os.Stdout, "Deleted match: %s\n", m.MatchID)
	return nil
}

func dropDatabase() error {
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", cfg.DB)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(cfg.DB); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	// WAL side files
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(cfg.DB + suffix)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", cfg.DB)
	return nil
}
