package repository

import (
	"context"
	"errors"
	"time"

	"eventstorming-sync-server/internal/domain"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

type breakerRepository struct {
	next BoardRepository
	cb   *gobreaker.CircuitBreaker
}

// WithCircuitBreaker stops calling next while it keeps failing. A missing
// board or a duplicate id is an answer, not a failure.
func WithCircuitBreaker(next BoardRepository, cfg BreakerConfig, logger *zap.Logger) BoardRepository {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBoardNotFound) || errors.Is(err, ErrBoardExists)
		},
	})

	return &breakerRepository{next: next, cb: cb}
}

func (r *breakerRepository) Create(ctx context.Context, board *domain.Board) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.next.Create(ctx, board)
	})
	return err
}

func (r *breakerRepository) Get(ctx context.Context, id string) (*domain.Board, error) {
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.next.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.Board), nil
}

func (r *breakerRepository) List(ctx context.Context) ([]domain.BoardSummary, error) {
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.next.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.BoardSummary), nil
}

func (r *breakerRepository) Replace(ctx context.Context, id string, board *domain.Board) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.next.Replace(ctx, id, board)
	})
	return err
}
