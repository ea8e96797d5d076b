// Package verification re-examines each accepted broadcast's market price
// at fixed future offsets and records the outcome.
package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"broadcast-tracker/internal/alerting"
	"broadcast-tracker/internal/fetcher"
	"broadcast-tracker/internal/storage"
)

// Job describes one accepted broadcast to verify.
type Job struct {
	BroadcastID string
	TokenID     string
	TokenSymbol string
	PriceBcast  decimal.Decimal
	AcceptedAt  time.Time
}

// Task is a handle on one scheduled offset check. Cancellation abandons the
// check; its outcome fields then stay null permanently.
type Task struct {
	Offset storage.Offset
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel abandons the task if it has not fired yet.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the task has fired or been abandoned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Scheduler arranges the three delayed re-evaluations per accepted
// broadcast and writes results back through the persistence sink.
type Scheduler struct {
	tokens    fetcher.TokenFetcher
	store     storage.BroadcastStore
	notifier  alerting.Notifier
	threshold decimal.Decimal
	channels  []string
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler constructs a verification scheduler. The notifier may be nil.
func NewScheduler(tokens fetcher.TokenFetcher, store storage.BroadcastStore, notifier alerting.Notifier, thresholdPct decimal.Decimal, channels []string, logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tokens:    tokens,
		store:     store,
		notifier:  notifier,
		threshold: thresholdPct,
		channels:  channels,
		logger:    logger.With().Str("component", "verification").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Schedule arranges one independent delayed task per offset. Delays are
// measured from the job's acceptance time, not from each other, and the
// tasks may complete in any order. The call never blocks on the tasks.
func (s *Scheduler) Schedule(job Job) []*Task {
	tasks := make([]*Task, 0, len(storage.AllOffsets))
	for _, offset := range storage.AllOffsets {
		delay := job.AcceptedAt.Add(offset.Delay()).Sub(time.Now().UTC())
		if delay < 0 {
			delay = 0
		}

		taskCtx, taskCancel := context.WithCancel(s.ctx)
		task := &Task{Offset: offset, cancel: taskCancel, done: make(chan struct{})}
		tasks = append(tasks, task)

		s.wg.Add(1)
		go s.runAfter(taskCtx, task, job, offset, delay)
	}
	return tasks
}

func (s *Scheduler) runAfter(ctx context.Context, task *Task, job Job, offset storage.Offset, delay time.Duration) {
	defer s.wg.Done()
	defer close(task.done)
	defer task.cancel()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.logger.Debug().
			Str("broadcast_id", job.BroadcastID).
			Str("offset", string(offset)).
			Msg("verification task abandoned")
		return
	case <-timer.C:
	}

	if err := s.RunOffset(ctx, job, offset); err != nil {
		s.logger.Error().Err(err).
			Str("broadcast_id", job.BroadcastID).
			Str("offset", string(offset)).
			Msg("verification task failed; outcome stays null")
	}
}

// RunOffset executes one offset check immediately: fetch the current price,
// compute the variance, record the outcome. Exposed for reverification and
// simulation.
func (s *Scheduler) RunOffset(ctx context.Context, job Job, offset storage.Offset) error {
	token, err := s.tokens.FetchToken(ctx, job.TokenID)
	if err != nil {
		return fmt.Errorf("fetch current price: %w", err)
	}

	current := decimal.Zero
	if token != nil {
		if parsed, parseErr := decimal.NewFromString(token.Price); parseErr == nil {
			current = parsed
		}
	}

	variance := Variance(current, job.PriceBcast)
	won := variance.GreaterThan(s.threshold)

	if err := s.store.UpdateOutcome(ctx, job.BroadcastID, offset, variance, won); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	s.logger.Info().
		Str("broadcast_id", job.BroadcastID).
		Str("offset", string(offset)).
		Str("variance_pct", variance.String()).
		Bool("won", won).
		Msg("outcome recorded")

	if s.notifier != nil {
		note := alerting.Notification{
			Kind:        alerting.KindVerificationUpdate,
			BroadcastID: job.BroadcastID,
			TokenID:     job.TokenID,
			TokenSymbol: job.TokenSymbol,
			Offset:      offset,
			VariancePct: variance,
			Won:         won,
			Channels:    s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).
				Str("broadcast_id", job.BroadcastID).
				Msg("failed to dispatch verification notification")
		}
	}

	return nil
}

// Close abandons all not-yet-fired tasks and waits for in-flight ones.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}

// Variance returns the percentage price change between broadcast time and
// now. A zero price on either side yields zero: a vanished token or an
// unreadable quote is an unknown, not a 100% loss.
func Variance(current, priceBcast decimal.Decimal) decimal.Decimal {
	if priceBcast.IsZero() || current.IsZero() {
		return decimal.Zero
	}
	return current.Sub(priceBcast).Div(priceBcast).Mul(decimal.NewFromInt(100))
}
