package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broadcast-tracker/internal/fetcher"
	"broadcast-tracker/internal/storage"
	"broadcast-tracker/internal/storage/memory"
)

type priceFetcher struct {
	mu    sync.Mutex
	price string
	token bool
}

func newPriceFetcher(price string) *priceFetcher {
	return &priceFetcher{price: price, token: true}
}

func (p *priceFetcher) setPrice(price string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.price = price
}

func (p *priceFetcher) FetchToken(context.Context, string) (*fetcher.TokenData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.token {
		return nil, nil
	}
	return &fetcher.TokenData{Symbol: "ALF", Price: p.price}, nil
}

func seedRecord(t *testing.T, store *memory.BroadcastStore, id string, priceBcast decimal.Decimal) Job {
	t.Helper()
	rec := storage.BroadcastRecord{
		BroadcastID:        id,
		CreatedAt:          time.Now().UTC(),
		BuyTokenID:         "t1",
		TokenSymbol:        "ALF",
		BuyTokenPriceBcast: priceBcast,
		HasBuyToken:        true,
	}
	require.NoError(t, store.InsertBroadcast(context.Background(), rec))
	return Job{
		BroadcastID: id,
		TokenID:     rec.BuyTokenID,
		TokenSymbol: rec.TokenSymbol,
		PriceBcast:  priceBcast,
		AcceptedAt:  rec.CreatedAt,
	}
}

func TestVariance(t *testing.T) {
	v := Variance(decimal.NewFromInt(130), decimal.NewFromInt(100))
	assert.True(t, v.Equal(decimal.NewFromInt(30)), "100 -> 130 应为 +30%%, 实际 %s", v)

	v = Variance(decimal.NewFromInt(75), decimal.NewFromInt(100))
	assert.True(t, v.Equal(decimal.NewFromInt(-25)))

	v = Variance(decimal.NewFromInt(10), decimal.Zero)
	assert.True(t, v.IsZero(), "零广播价应得到零 variance")

	v = Variance(decimal.Zero, decimal.NewFromInt(10))
	assert.True(t, v.IsZero(), "零当前价应得到零 variance")
}

func TestRunOffsetProgression(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBroadcastStore()
	tokens := newPriceFetcher("10")

	sched := NewScheduler(tokens, store, nil, decimal.NewFromInt(25), nil, zerolog.Nop())
	defer sched.Close()

	job := seedRecord(t, store, "b1", decimal.NewFromInt(10))

	// At 30s the price has not moved.
	require.NoError(t, sched.RunOffset(ctx, job, storage.Offset30s))

	rec, ok := store.Get("b1")
	require.True(t, ok)
	require.True(t, rec.Outcome30s.Set())
	assert.True(t, rec.Outcome30s.VariancePct.IsZero())
	assert.False(t, *rec.Outcome30s.Won)

	// By 5m the price climbed 30%, past the 25% threshold.
	tokens.setPrice("13")
	require.NoError(t, sched.RunOffset(ctx, job, storage.Offset5m))

	rec, ok = store.Get("b1")
	require.True(t, ok)
	require.True(t, rec.Outcome5m.Set())
	assert.True(t, rec.Outcome5m.VariancePct.Equal(decimal.NewFromInt(30)))
	assert.True(t, *rec.Outcome5m.Won)

	// The earlier outcome is untouched.
	assert.True(t, rec.Outcome30s.VariancePct.IsZero())
	assert.False(t, *rec.Outcome30s.Won)
	assert.False(t, rec.Outcome1m.Set())
}

func TestRunOffsetMissingToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBroadcastStore()
	tokens := newPriceFetcher("10")
	tokens.token = false

	sched := NewScheduler(tokens, store, nil, decimal.NewFromInt(25), nil, zerolog.Nop())
	defer sched.Close()

	job := seedRecord(t, store, "b1", decimal.NewFromInt(10))

	// A vanished token still settles the offset, with zero variance.
	require.NoError(t, sched.RunOffset(ctx, job, storage.Offset1m))

	rec, ok := store.Get("b1")
	require.True(t, ok)
	require.True(t, rec.Outcome1m.Set())
	assert.True(t, rec.Outcome1m.VariancePct.IsZero())
	assert.False(t, *rec.Outcome1m.Won)
}

func TestRunOffsetUnparsablePrice(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBroadcastStore()
	tokens := newPriceFetcher("not-a-number")

	sched := NewScheduler(tokens, store, nil, decimal.NewFromInt(25), nil, zerolog.Nop())
	defer sched.Close()

	job := seedRecord(t, store, "b1", decimal.NewFromInt(10))

	require.NoError(t, sched.RunOffset(ctx, job, storage.Offset30s))

	rec, ok := store.Get("b1")
	require.True(t, ok)
	require.True(t, rec.Outcome30s.Set())
	assert.True(t, rec.Outcome30s.VariancePct.IsZero())
	assert.False(t, *rec.Outcome30s.Won)
}

func TestScheduleFiresAllOffsets(t *testing.T) {
	store := memory.NewBroadcastStore()
	tokens := newPriceFetcher("13")

	sched := NewScheduler(tokens, store, nil, decimal.NewFromInt(25), nil, zerolog.Nop())
	defer sched.Close()

	job := seedRecord(t, store, "b1", decimal.NewFromInt(10))
	// Backdate acceptance so all delays are due immediately.
	job.AcceptedAt = time.Now().UTC().Add(-10 * time.Minute)

	tasks := sched.Schedule(job)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		select {
		case <-task.Done():
		case <-time.After(5 * time.Second):
			t.Fatalf("offset %s 任务未按时完成", task.Offset)
		}
	}

	rec, ok := store.Get("b1")
	require.True(t, ok)
	for _, offset := range storage.AllOffsets {
		outcome := rec.OutcomeAt(offset)
		require.True(t, outcome.Set(), "offset %s 应已写入", offset)
		assert.True(t, *outcome.Won)
	}
}

func TestCloseAbandonsPendingTasks(t *testing.T) {
	store := memory.NewBroadcastStore()
	tokens := newPriceFetcher("13")

	sched := NewScheduler(tokens, store, nil, decimal.NewFromInt(25), nil, zerolog.Nop())

	job := seedRecord(t, store, "b1", decimal.NewFromInt(10))
	// Leave the delays in the future so nothing fires before Close.
	tasks := sched.Schedule(job)
	sched.Close()

	for _, task := range tasks {
		<-task.Done()
	}

	rec, ok := store.Get("b1")
	require.True(t, ok)
	for _, offset := range storage.AllOffsets {
		assert.False(t, rec.OutcomeAt(offset).Set(), "被放弃的 offset %s 不应写入", offset)
	}
}
