package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"volume-surge-alerts/internal/app"
)

var (
	simulateSymbol   string
	simulateVolume   float64
	simulateBaseline float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次放量判定并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateVolume <= 0 || simulateBaseline <= 0 {
			return errors.New("--volume 与 --baseline 必须大于 0")
		}

		opts := app.SimulateOptions{
			Symbol:   simulateSymbol,
			Volume:   simulateVolume,
			Baseline: simulateBaseline,
		}

		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "BTCUSDT", "合约符号")
	simulateCmd.Flags().Float64Var(&simulateVolume, "volume", 0, "最近一分钟成交量")
	simulateCmd.Flags().Float64Var(&simulateBaseline, "baseline", 0, "每分钟基线成交量")
}
