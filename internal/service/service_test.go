package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broadcast-tracker/internal/config"
	"broadcast-tracker/internal/dedup"
	"broadcast-tracker/internal/enrich"
	"broadcast-tracker/internal/fetcher"
	"broadcast-tracker/internal/storage/memory"
	"broadcast-tracker/internal/verification"
)

type stubFeed struct {
	page fetcher.FeedPage
	err  error
}

func (s *stubFeed) FetchFeedPage(context.Context, string, int) (fetcher.FeedPage, error) {
	return s.page, s.err
}

type stubTokens struct {
	err error
}

func (s *stubTokens) FetchToken(context.Context, string) (*fetcher.TokenData, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fetcher.TokenData{Symbol: "ALF", Price: "0.5"}, nil
}

type stubProfiles struct {
	err error
}

func (s *stubProfiles) FetchProfile(context.Context, string) (*fetcher.ProfileData, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fetcher.ProfileData{IsVerified: true, FollowerCount: 10}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Feed: config.FeedConfig{PageSize: 10},
	}
}

func feedBroadcast(id string) fetcher.Broadcast {
	return fetcher.Broadcast{
		ID:            id,
		BuyTokenID:    "t1",
		BuyTokenPrice: "0.5",
		CreatedAt:     time.Now().UTC(),
		Profile:       fetcher.BroadcastProfile{ID: "p1", Username: "alice"},
	}
}

func newTestService(t *testing.T, feed fetcher.FeedFetcher, profiles fetcher.ProfileFetcher) (*Service, *memory.BroadcastStore, *verification.Scheduler) {
	t.Helper()

	store := memory.NewBroadcastStore()
	tokens := &stubTokens{}
	enricher := enrich.New(tokens, profiles, zerolog.Nop())
	verifier := verification.NewScheduler(tokens, store, nil, decimal.NewFromInt(25), nil, zerolog.Nop())

	svc := New(testConfig(), nil, feed, dedup.NewStore(), enricher, store, verifier, nil, zerolog.Nop())
	return svc, store, verifier
}

func TestPollDeduplicatesRepeatedBroadcasts(t *testing.T) {
	ctx := context.Background()
	feed := &stubFeed{page: fetcher.FeedPage{Broadcasts: []fetcher.Broadcast{
		feedBroadcast("b1"),
		feedBroadcast("b2"),
	}}}

	svc, store, verifier := newTestService(t, feed, &stubProfiles{})
	defer verifier.Close()

	require.NoError(t, svc.Poll(ctx))
	// The feed window has not advanced; the same entries come back.
	require.NoError(t, svc.Poll(ctx))

	count, err := store.CountBroadcasts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rec, ok := store.Get("b1")
	require.True(t, ok)
	assert.Equal(t, "ALF", rec.TokenSymbol)
	assert.True(t, rec.UserIsVerified)
}

func TestPollSkipsEmptyIDs(t *testing.T) {
	ctx := context.Background()
	feed := &stubFeed{page: fetcher.FeedPage{Broadcasts: []fetcher.Broadcast{
		feedBroadcast(""),
		feedBroadcast("b1"),
	}}}

	svc, store, verifier := newTestService(t, feed, &stubProfiles{})
	defer verifier.Close()

	require.NoError(t, svc.Poll(ctx))

	count, err := store.CountBroadcasts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPollPersistsDespiteDegradedEnrichment(t *testing.T) {
	ctx := context.Background()
	feed := &stubFeed{page: fetcher.FeedPage{Broadcasts: []fetcher.Broadcast{
		feedBroadcast("b1"),
	}}}

	svc, store, verifier := newTestService(t, feed, &stubProfiles{err: errors.New("profile down")})
	defer verifier.Close()

	require.NoError(t, svc.Poll(ctx))

	rec, ok := store.Get("b1")
	require.True(t, ok)
	assert.Equal(t, "ALF", rec.TokenSymbol)
	assert.False(t, rec.UserIsVerified)
	assert.Equal(t, "PUBLIC", rec.UserVisibility)
}

func TestPollSurfacesFeedError(t *testing.T) {
	feed := &stubFeed{err: errors.New("upstream down")}

	svc, _, verifier := newTestService(t, feed, &stubProfiles{})
	defer verifier.Close()

	err := svc.Poll(context.Background())
	require.Error(t, err)
}
