package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the stats database",
	Long: `Run an arbitrary SQL query against the stats database and print results as a table.

Schema overview:
  matches(match_id, demo_hash, map_name, server_name, tick_rate, rounds_played,
    ct_score, t_score, winner, valve_match_id, engine, processed_at)
  rounds(match_id, round_number, winner_side, end_reason, reason_code,
    ct_score_after, t_score_after, bomb_planted, bomb_defused, start_tick, end_tick)
  kills(match_id, round_number, tick, seq, attacker_steam_id, victim_steam_id,
    assister_steam_id, weapon, hit_group, headshot, wallbang, through_smoke, ...)
  player_matches(match_id, steam_id, name, team, bot, kills, deaths, assists,
    headshots, flash_assists, damage, trade_kills, traded_deaths, rounds_played,
    mvps, score, adr)
  weapon_stats(match_id, steam_id, weapon, kills, headshots, damage, shots, hits)
  flash_stats, damage_stats, clutch_stats, multikill_stats, first_blood_stats,
  chat_messages, voice_stats

Note: steam ids are stored as TEXT. Use quotes: WHERE steam_id = '76561198031906602'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(_ *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return printQuery(db, strings.Join(args, " "))
}

func printQuery(db *storage.DB, query string) error {
	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
