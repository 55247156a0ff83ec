package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/metrics"
	"github.com/pable/go-cs-demostats/internal/output"
	"github.com/pable/go-cs-demostats/internal/pipeline"
	"github.com/pable/go-cs-demostats/internal/report"
	"github.com/pable/go-cs-demostats/internal/steam"
	"github.com/pable/go-cs-demostats/internal/storage"
)

var (
	playerSteamID  uint64
	parseShareCode string
	parseNoDB      bool
	parseQuiet     bool
)

var (
	cOK   = color.New(color.FgGreen, color.Bold)
	cFail = color.New(color.FgRed, color.Bold)
)

var parseCmd = &cobra.Command{
	Use:   "parse <demo.dem> [more.dem ...]",
	Short: "Parse CS2 demo files and store their statistics",
	Long: `Parse one or more CS2 demos (.dem, .dem.bz2 or .dem.zst) and store the
resulting record sets in the database and/or as JSON tables.

Re-parsing a demo replaces its previous records: the match id is derived
from the demo contents, so the same file always maps to the same match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	flags := parseCmd.Flags()
	flags.String("engine", "native", "event source: native or demoinfocs")
	flags.Int("workers", 4, "demos processed in parallel")
	flags.String("out", "", "also write JSON tables under this directory")
	flags.String("metrics-file", "", "write prometheus textfile metrics here when done")
	flags.Duration("timeout", 0, "stop starting new demos after this long (0 = no limit)")
	flags.Uint64Var(&playerSteamID, "player", 0, "focus player SteamID64")
	flags.StringVar(&parseShareCode, "sharecode", "", "match share code; stamps the Valve match id (single demo only)")
	flags.BoolVar(&parseNoDB, "no-db", false, "do not write to the database")
	flags.BoolVarP(&parseQuiet, "quiet", "q", false, "do not print match tables")

	mustBind(v, "parse.engine", flags.Lookup("engine"))
	mustBind(v, "parse.workers", flags.Lookup("workers"))
	mustBind(v, "parse.out", flags.Lookup("out"))
	mustBind(v, "parse.metrics_file", flags.Lookup("metrics-file"))
	mustBind(v, "parse.timeout", flags.Lookup("timeout"))
}

func runParse(cmd *cobra.Command, args []string) error {
	opts := pipeline.Options{Engine: cfg.Parse.Engine}
	if parseShareCode != "" {
		if len(args) > 1 {
			return fmt.Errorf("--sharecode applies to a single demo, got %d", len(args))
		}
		sc, err := steam.Decode(parseShareCode)
		if err != nil {
			return err
		}
		opts.ValveMatchID = sc.MatchID
	}

	var db *storage.DB
	if !parseNoDB {
		var err error
		if db, err = openDB(); err != nil {
			return err
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if cfg.Parse.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Parse.Timeout)
		defer cancel()
	}

	collector := metrics.New()
	env := pipeline.Env{Logger: logger, Metrics: collector}
	started := time.Now()

	sink := func(res pipeline.Result) error {
		processedAt := time.Now()
		if db != nil {
			if err := db.SaveRecordSet(res.Records, processedAt); err != nil {
				return fmt.Errorf("store: %w", err)
			}
		}
		if cfg.Parse.OutDir != "" {
			if _, err := output.WriteDir(cfg.Parse.OutDir, res.Records, processedAt); err != nil {
				return err
			}
		}
		return nil
	}

	batch := pipeline.RunBatch(ctx, args, cfg.Parse.Workers, opts, env, sink)

	for _, res := range batch.Succeeded {
		cOK.Fprint(os.Stdout, "OK   ")
		fmt.Fprintf(os.Stdout, "%s  %s  %s  %d rounds  %s events  %s in %s\n",
			res.Records.Match.MatchID[:12], filepath.Base(res.Path), res.Records.Match.MapName,
			res.Records.Match.RoundsPlayed, humanize.Comma(int64(res.Events)),
			humanize.Bytes(uint64(res.Bytes)), res.Duration.Round(time.Millisecond))
		if !parseQuiet && len(batch.Succeeded) == 1 {
			report.PrintRecordSet(os.Stdout, res.Records, playerSteamID)
		}
	}
	for _, f := range batch.Failed {
		cFail.Fprint(os.Stdout, "FAIL ")
		fmt.Fprintf(os.Stdout, "%s  %v\n", filepath.Base(f.Path), f.Err)
	}

	if len(args) > 1 {
		fmt.Fprintf(os.Stdout, "\n%d ok, %d failed in %s\n", len(batch.Succeeded), len(batch.Failed),
			time.Since(started).Round(time.Millisecond))
	}

	if cfg.Parse.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.Parse.MetricsFile); err != nil {
			return err
		}
	}

	if len(batch.Failed) > 0 {
		return fmt.Errorf("%d of %d demos failed", len(batch.Failed), len(args))
	}
	return nil
}
