package app

import (
	"context"
	"errors"
	"time"

	"broadcast-tracker/internal/verification"
)

// Reverify re-runs the delayed checks for broadcasts whose outcome columns
// are still null, typically after a crash or restart lost the in-flight
// timers.
func (a *App) Reverify(ctx context.Context, opts ReverifyOptions) error {
	olderThan := opts.OlderThan
	if olderThan <= 0 {
		// All offsets have fired by 5m after acceptance; anything older with
		// null outcomes was lost, not pending.
		olderThan = 5 * time.Minute
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn 未配置，无法补验")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListPendingOutcomes(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("没有待补验的 broadcast")
		return nil
	}

	if opts.DryRun {
		a.Logger.Warn().Msg("补验 dry-run：不会写入数据库")
		for _, rec := range records {
			pending := rec.PendingOffsets()
			a.Logger.Info().
				Str("broadcast_id", rec.BroadcastID).
				Str("token", rec.TokenSymbol).
				Int("pending_offsets", len(pending)).
				Msg("待补验")
		}
		return nil
	}

	client := a.newClient()
	verifier := verification.NewScheduler(client, store, nil, a.winThreshold(), nil, a.Logger)
	defer verifier.Close()

	processed := 0
	failed := 0
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job := verification.Job{
			BroadcastID: rec.BroadcastID,
			TokenID:     rec.BuyTokenID,
			TokenSymbol: rec.TokenSymbol,
			PriceBcast:  rec.BuyTokenPriceBcast,
			AcceptedAt:  rec.CreatedAt,
		}

		for _, offset := range rec.PendingOffsets() {
			if err := verifier.RunOffset(ctx, job, offset); err != nil {
				failed++
				a.Logger.Error().Err(err).
					Str("broadcast_id", rec.BroadcastID).
					Str("offset", string(offset)).
					Msg("补验失败")
				continue
			}
			processed++
		}
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("补验完成")
	if failed > 0 {
		return errors.New("部分 outcome 补验失败，请检查日志")
	}
	return nil
}
