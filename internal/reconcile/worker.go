package reconcile

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
)

// Intents is the part of the payment ledger the worker reads and updates.
type Intents interface {
	CapturedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PaymentIntent, error)
	ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	RecordFailure(ctx context.Context, id uuid.UUID, reason string) error
}

// Completer finishes a captured intent. *booking.Service implements it.
type Completer interface {
	Complete(ctx context.Context, in domain.PaymentIntent) (*domain.Booking, error)
	ConfirmFlow(ctx context.Context, b *domain.Booking)
}

type Options struct {
	// Grace is how long a CAPTURED intent is left to the callback path before
	// the worker picks it up.
	Grace     time.Duration
	IntentTTL time.Duration
	Batch     int
	Retries   int
	Backoff   time.Duration
}

type Result struct {
	Completed int
	Failed    int
	Expired   int64
}

type Worker struct {
	intents   Intents
	completer Completer
	logger    observability.Logger
	opts      Options
	now       func() time.Time
}

func NewWorker(intents Intents, completer Completer, logger observability.Logger, opts Options) *Worker {
	if opts.Batch <= 0 {
		opts.Batch = 50
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &Worker{intents: intents, completer: completer, logger: logger, opts: opts, now: time.Now}
}

func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.WithError(err).Error("reconcile pass failed")
				continue
			}
			if res.Completed+res.Failed > 0 || res.Expired > 0 {
				w.logger.WithField("completed", res.Completed).
					WithField("failed", res.Failed).
					WithField("expired", res.Expired).
					Info("reconcile pass finished")
			}
		}
	}
}

// RunOnce completes stranded captured intents and expires abandoned ones.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	now := w.now()

	stranded, err := w.intents.CapturedBefore(ctx, now.Add(-w.opts.Grace), w.opts.Batch)
	if err != nil {
		return res, err
	}
	for _, in := range stranded {
		if err := w.completeWithRetry(ctx, in); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			observability.ReconcileAttempts.WithLabelValues("failed").Inc()
			w.logger.WithField("intent_id", in.ID).WithError(err).Error("failed to complete captured intent after retries")
			if rerr := w.intents.RecordFailure(ctx, in.ID, err.Error()); rerr != nil {
				w.logger.WithField("intent_id", in.ID).WithError(rerr).Warn("failed to record reconcile failure")
			}
			continue
		}
		res.Completed++
		observability.ReconcileAttempts.WithLabelValues("completed").Inc()
	}

	if w.opts.IntentTTL > 0 {
		n, err := w.intents.ExpireCreatedBefore(ctx, now.Add(-w.opts.IntentTTL))
		if err != nil {
			return res, err
		}
		res.Expired = n
		if n > 0 {
			observability.ReconcileAttempts.WithLabelValues("expired").Add(float64(n))
		}
	}
	return res, nil
}

func (w *Worker) completeWithRetry(ctx context.Context, in domain.PaymentIntent) error {
	var lastErr error
	for i := 0; i < w.opts.Retries; i++ {
		b, err := w.completer.Complete(ctx, in)
		if err == nil {
			w.completer.ConfirmFlow(ctx, b)
			return nil
		}
		lastErr = err
		if i == w.opts.Retries-1 {
			break
		}
		backoff := w.opts.Backoff * time.Duration(1<<i)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Wrapf(lastErr, "after %d attempts", w.opts.Retries)
}
