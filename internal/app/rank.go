package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"volume-surge-alerts/internal/market"
)

// Rank fetches the futures universe once and prints the ranked selection
// window without opening any stream.
func (a *App) Rank(ctx context.Context, opts RankOptions) error {
	binance := a.newFetcher()

	universe, err := binance.FetchUniverse(ctx)
	if err != nil {
		return fmt.Errorf("fetch universe: %w", err)
	}

	start := opts.Start
	end := opts.End
	if start == 0 && end == 0 {
		start = a.Config.Selection.RankStart
		end = a.Config.Selection.RankEnd
	}
	rng := market.NormalizeRange(start, end)

	selected := market.SelectRanked(universe, rng, market.SelectorOptions{
		QuoteAsset:     a.Config.Selection.QuoteAsset,
		ExcludedPrefix: a.Config.Selection.ExcludedPrefix,
	})
	if len(selected) == 0 {
		fmt.Printf("排名区间 [%d, %d] 内没有符合条件的合约\n", rng.Start, rng.End)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSYMBOL\tCHANGE%\tPRICE")
	for i, t := range selected {
		fmt.Fprintf(w, "%d\t%s\t%+.2f\t%s\n",
			rng.Start+i,
			market.DisplayName(t.Symbol, a.Config.Selection.QuoteAsset),
			t.ChangePct,
			formatPrice(t.LastPrice),
		)
	}
	return w.Flush()
}

func formatPrice(price float64) string {
	if price >= 1 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.6f", price)
}
