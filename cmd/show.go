package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/report"
	"github.com/pable/go-cs-demostats/internal/storage"
)

var showPlayerID uint64

var showCmd = &cobra.Command{
	Use:   "show <match-prefix>",
	Short: "Show stored match stats by match id or demo hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Uint64Var(&showPlayerID, "player", 0, "highlight player SteamID64")
}

func runShow(_ *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return showMatch(db, args[0], showPlayerID)
}

func showMatch(db *storage.DB, prefix string, playerID uint64) error {
	m, err := findMatch(db, prefix)
	if err != nil || m == nil {
		return err
	}

	players, err := db.GetPlayers(m.MatchID)
	if err != nil {
		return fmt.Errorf("get players: %w", err)
	}
	flashes, err := db.GetFlashes(m.MatchID)
	if err != nil {
		return fmt.Errorf("get flashes: %w", err)
	}
	weapons, err := db.GetWeapons(m.MatchID)
	if err != nil {
		return fmt.Errorf("get weapons: %w", err)
	}

	report.PrintSummaryHeader(os.Stdout, *m)
	report.PrintPlayerTable(os.Stdout, players, playerID)
	report.PrintFlashTable(os.Stdout, flashes)
	report.PrintWeaponTable(os.Stdout, weapons, playerID)
	return nil
}
