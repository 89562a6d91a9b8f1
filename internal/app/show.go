package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"volume-surge-alerts/internal/market"
)

// Show prints the most recent audited alerts from the database.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("database.dsn not configured; nothing to show")
	}
	defer closeStore()

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	records, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("没有已记录的放量告警")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSYMBOL\tRATIO\tTIER\tPRICE\tVOLUME")
	for _, r := range records {
		tier := r.Tier
		if tier == string(market.TierHigh) {
			tier = "HIGH"
		}
		fmt.Fprintf(w, "%s\t%s\t%sx\t%s\t%s\t%s\n",
			r.EmittedAt.Local().Format("01-02 15:04:05"),
			r.Symbol,
			r.Ratio.StringFixed(2),
			tier,
			r.Price.String(),
			r.Volume.StringFixed(2),
		)
	}
	return w.Flush()
}
