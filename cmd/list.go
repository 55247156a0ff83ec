package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/report"
	"github.com/pable/go-cs-demostats/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored matches",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func openDB() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DB), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// findMatch resolves a match id or demo hash prefix. It prints a notice and
// returns nil when nothing matches.
func findMatch(db *storage.DB, prefix string) (*model.MatchSummary, error) {
	m, err := db.GetMatchByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("query match: %w", err)
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "No match found with prefix %q\n", prefix)
	}
	return m, nil
}

func runList(_ *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.ListMatches()
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'csdemostats parse <demo.dem>' to add one.")
		return nil
	}

	report.PrintMatchList(os.Stdout, matches)
	return nil
}
