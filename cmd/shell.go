package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cGreeting.Println("csdemostats shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("csdemostats")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if done := shellExec(db, line); done {
			return nil
		}
	}
	return scanner.Err()
}

// shellExec runs one shell line and reports whether the session should end.
func shellExec(db *storage.DB, line string) bool {
	tokens := strings.Fields(line)
	cmd, args := tokens[0], tokens[1:]

	var err error
	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		shellHelp()
	case "list":
		err = runList(nil, nil)
	case "summary":
		err = runSummary(nil, nil)
	case "show":
		if len(args) == 0 {
			cError.Fprintln(os.Stderr, "usage: show <match-prefix> [--player <steamid64>]")
			return false
		}
		var playerID uint64
		for i := 1; i+1 < len(args); i++ {
			if args[i] == "--player" {
				playerID, _ = strconv.ParseUint(args[i+1], 10, 64)
			}
		}
		err = showMatch(db, args[0], playerID)
	case "rounds":
		if len(args) == 0 {
			cError.Fprintln(os.Stderr, "usage: rounds <match-prefix> [<round>]")
			return false
		}
		killRound := -1
		if len(args) > 1 {
			if killRound, err = strconv.Atoi(args[1]); err != nil {
				cError.Fprintf(os.Stderr, "invalid round %q\n", args[1])
				return false
			}
		}
		err = showRounds(db, args[0], killRound)
	case "chat":
		if len(args) == 0 {
			cError.Fprintln(os.Stderr, "usage: chat <match-prefix>")
			return false
		}
		err = showChat(db, args[0])
	case "sql":
		// keep the query text as typed
		query := strings.TrimSpace(strings.TrimPrefix(line, cmd))
		if query == "" {
			cError.Fprintln(os.Stderr, "usage: sql <query>")
			return false
		}
		err = printQuery(db, query)
	default:
		cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
	}
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return false
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored matches"},
		{"summary", "database overview"},
		{"show <match-prefix>", "show a match's stats"},
		{"show <match-prefix> --player <id>", "same, highlighting one player"},
		{"rounds <match-prefix> [<round>]", "round results, plus the kill feed of one round"},
		{"chat <match-prefix>", "chat log of a match"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}
