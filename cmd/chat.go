package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/report"
	"github.com/pable/go-cs-demostats/internal/storage"
)

var chatCmd = &cobra.Command{
	Use:   "chat <match-prefix>",
	Short: "Print the chat log of one match",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func runChat(_ *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return showChat(db, args[0])
}

func showChat(db *storage.DB, prefix string) error {
	m, err := findMatch(db, prefix)
	if err != nil || m == nil {
		return err
	}
	chat, err := db.GetChat(m.MatchID)
	if err != nil {
		return fmt.Errorf("get chat: %w", err)
	}
	if len(chat) == 0 {
		fmt.Fprintln(os.Stdout, "(no chat)")
		return nil
	}
	report.PrintChat(os.Stdout, chat)
	return nil
}
