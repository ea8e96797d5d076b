package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"broadcast-tracker/internal/storage"
)

var (
	simulatePriceBcast float64
	simulateCurrent    float64
	simulateOffset     string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-verification",
	Short: "模拟一次延迟验证并计算 variance/won",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePriceBcast <= 0 || simulateCurrent < 0 {
			return errors.New("--price-bcast 必须大于 0，--current 不能为负")
		}

		priceBcast := decimal.NewFromFloat(simulatePriceBcast)
		current := decimal.NewFromFloat(simulateCurrent)
		return getApp().SimulateVerification(cmd.Context(), priceBcast, current, storage.Offset(simulateOffset))
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePriceBcast, "price-bcast", 0, "广播时价格")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "当前价格")
	simulateCmd.Flags().StringVar(&simulateOffset, "offset", "5m", "验证偏移 (30s/1m/5m)")
}
