package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"broadcast-tracker/internal/alerting"
	"broadcast-tracker/internal/config"
	"broadcast-tracker/internal/dedup"
	"broadcast-tracker/internal/enrich"
	"broadcast-tracker/internal/fetcher"
	"broadcast-tracker/internal/scheduler"
	"broadcast-tracker/internal/storage"
	"broadcast-tracker/internal/verification"
)

// Service orchestrates feed polling, deduplication, enrichment,
// persistence, and verification scheduling.
type Service struct {
	scheduler *scheduler.Scheduler
	feed      fetcher.FeedFetcher
	dedup     *dedup.Store
	enricher  *enrich.Enricher
	store     storage.BroadcastStore
	verifier  *verification.Scheduler
	notifier  alerting.Notifier
	logger    zerolog.Logger

	pageSize int
	alertsOn bool
	channels []string
}

// New constructs the ingestion service.
func New(cfg *config.Config, sched *scheduler.Scheduler, feed fetcher.FeedFetcher, dedupStore *dedup.Store, enricher *enrich.Enricher, store storage.BroadcastStore, verifier *verification.Scheduler, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		feed:      feed,
		dedup:     dedupStore,
		enricher:  enricher,
		store:     store,
		verifier:  verifier,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		pageSize:  cfg.Feed.PageSize,
		alertsOn:  cfg.Alerting.Enabled,
		channels:  cfg.Alerting.Channels,
	}
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.Poll)
}

// Poll performs one fetch-and-process pass over the feed. The feed is
// always re-requested from the top of its window; deduplication, not
// cursor tracking, prevents repeated processing.
func (s *Service) Poll(ctx context.Context) error {
	page, err := s.feed.FetchFeedPage(ctx, "", s.pageSize)
	if err != nil {
		return fmt.Errorf("fetch feed page: %w", err)
	}

	for _, bcast := range page.Broadcasts {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.processBroadcast(ctx, bcast)
	}
	return nil
}

// processBroadcast handles one feed entry end to end. Errors are contained
// here: no single broadcast's failure may halt the loop or starve the
// others.
func (s *Service) processBroadcast(ctx context.Context, bcast fetcher.Broadcast) {
	if bcast.ID == "" || s.dedup.Seen(bcast.ID) {
		return
	}
	s.dedup.MarkSeen(bcast.ID)

	rec := s.enricher.Enrich(ctx, bcast)

	if err := s.store.InsertBroadcast(ctx, rec); err != nil {
		// Best effort: verification is still scheduled so a later reverify
		// pass has something to repair against.
		s.logger.Error().Err(err).
			Str("broadcast_id", bcast.ID).
			Msg("failed to persist broadcast")
	}

	s.logger.Info().
		Str("broadcast_id", bcast.ID).
		Str("token", rec.TokenSymbol).
		Str("username", rec.Username).
		Str("price_bcast", rec.BuyTokenPriceBcast.String()).
		Msg("new broadcast recorded")

	if s.alertsOn && s.notifier != nil {
		note := alerting.Notification{
			Kind:          alerting.KindNewBroadcast,
			BroadcastID:   rec.BroadcastID,
			TokenID:       rec.BuyTokenID,
			TokenSymbol:   rec.TokenSymbol,
			Username:      rec.Username,
			PriceBcast:    rec.BuyTokenPriceBcast,
			MCapBcast:     rec.BuyTokenMCapBcast,
			Amount:        rec.BuyTokenAmount,
			Liquidity:     rec.TokenLiquidity,
			Volume24H:     rec.TokenVolume24H,
			UserVerified:  rec.UserIsVerified,
			FollowerCount: rec.UserFollowerCount,
			Channels:      s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).
				Str("broadcast_id", bcast.ID).
				Msg("failed to dispatch broadcast notification")
		}
	}

	// Hand off after enrichment and persistence; the loop does not wait
	// for the delayed tasks.
	s.verifier.Schedule(verification.Job{
		BroadcastID: rec.BroadcastID,
		TokenID:     rec.BuyTokenID,
		TokenSymbol: rec.TokenSymbol,
		PriceBcast:  rec.BuyTokenPriceBcast,
		AcceptedAt:  time.Now().UTC(),
	})
}
