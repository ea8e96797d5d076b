package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"broadcast-tracker/internal/fetcher"
	"broadcast-tracker/internal/storage"
	"broadcast-tracker/internal/storage/memory"
	"broadcast-tracker/internal/verification"
)

// SimulateVerification 通过给定的广播价/当前价模拟一次验证流程。
func (a *App) SimulateVerification(ctx context.Context, priceBcast, current decimal.Decimal, offset storage.Offset) error {
	if offset.Delay() <= 0 {
		return errors.New("offset 不合法，支持 30s/1m/5m")
	}

	notifier := a.newNotifier()

	sink := memory.NewBroadcastStore()
	rec := storage.BroadcastRecord{
		BroadcastID:        "simulated",
		CreatedAt:          time.Now().UTC(),
		Username:           "simulated-user",
		BuyTokenID:         "simulated-token",
		TokenSymbol:        "SIM",
		BuyTokenPriceBcast: priceBcast,
		HasBuyToken:        true,
	}
	if err := sink.InsertBroadcast(ctx, rec); err != nil {
		return err
	}

	tokens := &staticTokenFetcher{price: current}
	verifier := verification.NewScheduler(tokens, sink, notifier, a.winThreshold(), a.Config.Alerting.Channels, a.Logger)
	defer verifier.Close()

	job := verification.Job{
		BroadcastID: rec.BroadcastID,
		TokenID:     rec.BuyTokenID,
		TokenSymbol: rec.TokenSymbol,
		PriceBcast:  priceBcast,
		AcceptedAt:  rec.CreatedAt,
	}
	if err := verifier.RunOffset(ctx, job, offset); err != nil {
		return err
	}

	stored, ok := sink.Get(rec.BroadcastID)
	if !ok {
		return errors.New("模拟记录丢失")
	}
	outcome := stored.OutcomeAt(offset)
	if !outcome.Set() {
		return errors.New("模拟结束但 outcome 未写入")
	}

	a.Logger.Info().
		Str("offset", string(offset)).
		Str("variance_pct", outcome.VariancePct.String()).
		Bool("won", *outcome.Won).
		Msg("模拟验证完成")
	return nil
}

type staticTokenFetcher struct {
	price decimal.Decimal
}

func (s *staticTokenFetcher) FetchToken(ctx context.Context, tokenID string) (*fetcher.TokenData, error) {
	return &fetcher.TokenData{Symbol: "SIM", Price: s.price.String()}, nil
}

var _ fetcher.TokenFetcher = (*staticTokenFetcher)(nil)
