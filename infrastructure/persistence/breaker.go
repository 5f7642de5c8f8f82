package persistence

import (
	"context"
	"time"

	"priomatrix-backend/application/ports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerAdapter wraps a sync adapter with a circuit breaker. When the
// backing store keeps failing, the breaker opens and commits fail fast as
// transient failures instead of piling up retries against a dead store.
type BreakerAdapter struct {
	inner   ports.SyncAdapter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewBreakerAdapter wraps inner with a circuit breaker
func NewBreakerAdapter(inner ports.SyncAdapter, logger *zap.Logger) *BreakerAdapter {
	settings := gobreaker.Settings{
		Name:        "persistence",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("persistence circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerAdapter{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// SaveCommit routes the commit through the breaker. An open breaker reads
// as a transient failure so the caller keeps its bounded-retry semantics.
func (b *BreakerAdapter) SaveCommit(ctx context.Context, commit ports.CardCommit) (ports.SaveResult, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		result, err := b.inner.SaveCommit(ctx, commit)
		if err != nil {
			return nil, err
		}
		if result.Status == ports.SaveTransientFailure {
			// Count transient failures against the breaker without
			// losing the result for the caller.
			return result, errTransient{result: result}
		}
		return result, nil
	})
	if err != nil {
		var transient errTransient
		if asTransient(err, &transient) {
			return transient.result, nil
		}
		return ports.SaveResult{Status: ports.SaveTransientFailure, Err: err}, nil
	}
	return out.(ports.SaveResult), nil
}

// PutCard routes a full card write through the breaker
func (b *BreakerAdapter) PutCard(ctx context.Context, snapshot ports.CardSnapshot) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.PutCard(ctx, snapshot)
	})
	return err
}

// DeleteCard routes a card delete through the breaker
func (b *BreakerAdapter) DeleteCard(ctx context.Context, projectID, cardID string) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.DeleteCard(ctx, projectID, cardID)
	})
	return err
}

type errTransient struct {
	result ports.SaveResult
}

func (e errTransient) Error() string {
	if e.result.Err != nil {
		return e.result.Err.Error()
	}
	return "transient persistence failure"
}

func asTransient(err error, target *errTransient) bool {
	t, ok := err.(errTransient)
	if ok {
		*target = t
	}
	return ok
}
