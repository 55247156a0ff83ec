package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/steam"
)

var shareCodeCmd = &cobra.Command{
	Use:   "sharecode <CSGO-xxxxx-xxxxx-xxxxx-xxxxx-xxxxx>",
	Short: "Decode a match share code",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		sc, err := steam.Decode(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Match ID       : %d\n", sc.MatchID)
		fmt.Fprintf(os.Stdout, "Reservation ID : %d\n", sc.ReservationID)
		fmt.Fprintf(os.Stdout, "TV port        : %d\n", sc.TVPort)
		return nil
	},
}
