package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"volume-surge-alerts/internal/app"
)

var (
	rankStart int
	rankEnd   int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the ranked selection window without streaming",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rankStart < 0 || rankEnd < 0 {
			return fmt.Errorf("--start and --end must not be negative")
		}

		opts := app.RankOptions{
			Start: rankStart,
			End:   rankEnd,
		}

		return getApp().Rank(cmd.Context(), opts)
	},
}

func init() {
	rankCmd.Flags().IntVar(&rankStart, "start", 0, "First rank of the window (defaults to config)")
	rankCmd.Flags().IntVar(&rankEnd, "end", 0, "Last rank of the window (defaults to config)")
}
