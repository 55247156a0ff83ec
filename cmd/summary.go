package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about all matches stored in the database:
total match count, processing date range, map breakdown and the most active players.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func summaryTable() *tablewriter.Table {
	return tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

func runSummary(_ *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalMatches == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'csdemostats parse <demo.dem>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Matches stored : %s\n", humanize.Comma(int64(ov.TotalMatches)))
	fmt.Fprintf(os.Stdout, "  Processed      : %s → %s\n", ov.EarliestRun, ov.LatestRun)
	fmt.Fprintf(os.Stdout, "  Unique maps    : %d\n", ov.UniqueMaps)
	fmt.Fprintf(os.Stdout, "  Players seen   : %s\n", humanize.Comma(int64(ov.UniquePlayers)))
	fmt.Fprintf(os.Stdout, "  Total rounds   : %s\n", humanize.Comma(int64(ov.TotalRounds)))

	maps, err := db.GetMapStats()
	if err != nil {
		return fmt.Errorf("get map stats: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Maps ---\n\n")
	mt := summaryTable()
	mt.Header("MAP", "MATCHES", "CT WINS", "T WINS", "CT WIN%")
	for _, m := range maps {
		total := m.CTWins + m.TWins
		ctPct := 0.0
		if total > 0 {
			ctPct = 100.0 * float64(m.CTWins) / float64(total)
		}
		mt.Append(
			m.MapName,
			strconv.Itoa(m.Matches),
			strconv.Itoa(m.CTWins),
			strconv.Itoa(m.TWins),
			fmt.Sprintf("%.0f%%", ctPct),
		)
	}
	mt.Render()

	players, err := db.GetActivePlayers(10)
	if err != nil {
		return fmt.Errorf("get active players: %w", err)
	}
	if len(players) == 0 {
		return nil
	}
	fmt.Fprintf(os.Stdout, "\n--- Most Active Players ---\n\n")
	pt := summaryTable()
	pt.Header("NAME", "STEAM ID", "MATCHES", "K/D", "ADR")
	for _, p := range players {
		kd := float64(p.Kills)
		if p.Deaths > 0 {
			kd = float64(p.Kills) / float64(p.Deaths)
		}
		adr := 0.0
		if p.Rounds > 0 {
			adr = float64(p.Damage) / float64(p.Rounds)
		}
		pt.Append(
			p.Name,
			strconv.FormatUint(p.SteamID, 10),
			strconv.Itoa(p.Matches),
			fmt.Sprintf("%.2f", kd),
			fmt.Sprintf("%.1f", adr),
		)
	}
	pt.Render()
	return nil
}
