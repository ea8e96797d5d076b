package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"broadcast-tracker/internal/storage"
)

// Show prints recent broadcast records.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show broadcasts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentBroadcasts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no broadcasts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tToken\tUser\tPrice\t30s%\t1m%\t5m%\tWon")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.TokenSymbol,
			rec.Username,
			rec.BuyTokenPriceBcast.String(),
			formatOutcomeVariance(rec.Outcome30s),
			formatOutcomeVariance(rec.Outcome1m),
			formatOutcomeVariance(rec.Outcome5m),
			formatWon(rec),
		)
	}

	writer.Flush()
	return nil
}

func formatOutcomeVariance(outcome storage.Outcome) string {
	if !outcome.Set() {
		return "-"
	}
	return outcome.VariancePct.StringFixed(2)
}

// formatWon summarizes which offsets cleared the win threshold.
func formatWon(rec storage.BroadcastRecord) string {
	result := ""
	for _, offset := range storage.AllOffsets {
		outcome := rec.OutcomeAt(offset)
		if outcome.Set() && *outcome.Won {
			if result != "" {
				result += ","
			}
			result += string(offset)
		}
	}
	if result == "" {
		return "-"
	}
	return result
}
