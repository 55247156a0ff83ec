package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/report"
	"github.com/pable/go-cs-demostats/internal/storage"
)

var roundsKillRound int

// roundsCmd lists the rounds of a match, and the kill feed of one round.
var roundsCmd = &cobra.Command{
	Use:   "rounds <match-prefix>",
	Short: "Round by round results of one match",
	Args:  cobra.ExactArgs(1),
	RunE:  runRounds,
}

func init() {
	roundsCmd.Flags().IntVar(&roundsKillRound, "kills", -1, "print the kill feed of this round (0 = all rounds)")
}

func runRounds(_ *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return showRounds(db, args[0], roundsKillRound)
}

func showRounds(db *storage.DB, prefix string, killRound int) error {
	m, err := findMatch(db, prefix)
	if err != nil || m == nil {
		return err
	}

	rounds, err := db.GetRounds(m.MatchID)
	if err != nil {
		return fmt.Errorf("get rounds: %w", err)
	}
	if len(rounds) == 0 {
		fmt.Fprintf(os.Stderr, "No rounds recorded for match %s\n", m.MatchID)
		return nil
	}

	report.PrintSummaryHeader(os.Stdout, *m)
	report.PrintRoundTable(os.Stdout, rounds)

	if killRound >= 0 {
		kills, err := db.GetKills(m.MatchID)
		if err != nil {
			return fmt.Errorf("get kills: %w", err)
		}
		fmt.Fprintln(os.Stdout)
		report.PrintKillFeed(os.Stdout, kills, killRound)
	}
	return nil
}
