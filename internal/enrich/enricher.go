// Package enrich converts raw feed broadcasts into persisted records by
// gathering token and actor attributes through the fetch client.
package enrich

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"broadcast-tracker/internal/fetcher"
	"broadcast-tracker/internal/storage"
)

// Enricher flattens a broadcast plus its auxiliary lookups into one record.
type Enricher struct {
	tokens   fetcher.TokenFetcher
	profiles fetcher.ProfileFetcher
	logger   zerolog.Logger
}

// New constructs an enricher.
func New(tokens fetcher.TokenFetcher, profiles fetcher.ProfileFetcher, logger zerolog.Logger) *Enricher {
	return &Enricher{
		tokens:   tokens,
		profiles: profiles,
		logger:   logger.With().Str("component", "enricher").Logger(),
	}
}

// Enrich issues the token and profile lookups concurrently and builds the
// record. A failed lookup degrades to defaults rather than aborting: a
// broadcast is recorded even when its enrichment data could not be obtained.
func (e *Enricher) Enrich(ctx context.Context, bcast fetcher.Broadcast) storage.BroadcastRecord {
	var (
		wg      sync.WaitGroup
		token   *fetcher.TokenData
		profile *fetcher.ProfileData
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		data, err := e.tokens.FetchToken(ctx, bcast.BuyTokenID)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("broadcast_id", bcast.ID).
				Str("token_id", bcast.BuyTokenID).
				Msg("token lookup degraded to defaults")
			return
		}
		token = data
	}()
	go func() {
		defer wg.Done()
		data, err := e.profiles.FetchProfile(ctx, bcast.Profile.Username)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("broadcast_id", bcast.ID).
				Str("username", bcast.Profile.Username).
				Msg("profile lookup degraded to defaults")
			return
		}
		profile = data
	}()
	wg.Wait()

	return buildRecord(bcast, token, profile)
}

func buildRecord(bcast fetcher.Broadcast, token *fetcher.TokenData, profile *fetcher.ProfileData) storage.BroadcastRecord {
	rec := storage.BroadcastRecord{
		BroadcastID: bcast.ID,
		CreatedAt:   bcast.CreatedAt,
		UserID:      bcast.Profile.ID,
		Username:    bcast.Profile.Username,

		BuyTokenID:         bcast.BuyTokenID,
		BuyTokenAmount:     parseDecimal(bcast.BuyTokenAmount),
		BuyTokenPriceBcast: parseDecimal(bcast.BuyTokenPrice),
		BuyTokenMCapBcast:  parseDecimal(bcast.BuyTokenMCap),
		HasBuyToken:        bcast.BuyTokenID != "",

		SellTokenID:         bcast.SellTokenID,
		SellTokenAmount:     parseDecimal(bcast.SellTokenAmount),
		SellTokenPriceBcast: parseDecimal(bcast.SellTokenPrice),
		SellTokenMCapBcast:  parseDecimal(bcast.SellTokenMCap),
		HasSellToken:        bcast.SellTokenID != "",

		UserVisibility:    "PUBLIC",
		UserVisiblePublic: true,
	}

	if token != nil {
		rec.TokenName = token.Name
		rec.TokenSymbol = token.Symbol
		rec.TokenPrice = parseDecimal(token.Price)
		rec.TokenSupply = parseDecimal(token.Supply)
		rec.TokenChain = token.Chain
		rec.TokenLiquidity = parseDecimal(token.Liquidity)
		rec.TokenHasLiquidity = rec.TokenLiquidity.IsPositive()
		rec.TokenVerified = token.Verified
		rec.TokenJupVerified = token.JupVerified
		rec.TokenFreezable = token.Freezable
		rec.TokenTwitter = token.Twitter
		rec.TokenHasTwitter = token.Twitter != ""
		rec.TokenTelegram = token.Telegram
		rec.TokenHasTelegram = token.Telegram != ""
		rec.TokenWebsite = token.Website
		rec.TokenHasWebsite = token.Website != ""
		rec.TokenDiscord = token.Discord
		rec.TokenHasDiscord = token.Discord != ""
		rec.TokenVolume24H = parseDecimal(token.Volume24H)
		rec.TokenVolume6H = parseDecimal(token.Volume6H)
		rec.TokenVolume1H = parseDecimal(token.Volume1H)
		rec.TokenVolume5Min = parseDecimal(token.Volume5Min)
		rec.TokenBuyCount24H = token.BuyCount24H
		rec.TokenSellCount24H = token.SellCount24H
		rec.TokenBuyCount6H = token.BuyCount6H
		rec.TokenSellCount6H = token.SellCount6H
		rec.TokenBuyCount1H = token.BuyCount1H
		rec.TokenSellCount1H = token.SellCount1H
		rec.TokenBuyCount5Min = token.BuyCount5Min
		rec.TokenSellCount5Min = token.SellCount5Min
		rec.TokenTop10Holders = parseDecimal(token.Top10HolderPercent)
	}

	if profile != nil {
		rec.UserTwitterUsername = profile.TwitterUsername
		rec.UserHasTwitter = profile.TwitterUsername != ""
		rec.UserIsVerified = profile.IsVerified
		rec.UserFollowerCount = profile.FollowerCount
		rec.UserFolloweeCount = profile.FolloweeCount
		if profile.MutualFollowersV2 != nil {
			rec.UserMutualFollowerCount = profile.MutualFollowersV2.TotalCount
		}
		if profile.Visibility != "" {
			rec.UserVisibility = profile.Visibility
		}
		rec.UserVisiblePublic = rec.UserVisibility == "PUBLIC"
		if profile.WeeklyLeaderboardStanding != nil {
			rec.UserWeeklyRank = profile.WeeklyLeaderboardStanding.Rank
			rec.UserWeeklyValue = decimal.NewFromFloat(profile.WeeklyLeaderboardStanding.Value)
		}
		rec.UserSubscriberCount = profile.SubscriberCountV2
		rec.UserHasSubscribers = profile.SubscriberCountV2 > 0
	}

	return rec
}

// parseDecimal degrades malformed or absent numeric strings to zero.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
