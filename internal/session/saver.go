package session

import (
	"context"
	"sync/atomic"
	"time"

	"eventstorming-sync-server/internal/domain"

	"go.uber.org/zap"
)

const DefaultSaveInterval = 2 * time.Second

type BoardStore interface {
	ReplaceBoard(ctx context.Context, b *domain.Board) error
}

// Saver writes the session's document to the store whenever it has local
// changes, at most once per interval and never two saves at a time.
type Saver struct {
	session  *Session
	store    BoardStore
	interval time.Duration
	logger   *zap.Logger

	inFlight atomic.Bool
}

func NewSaver(session *Session, store BoardStore, interval time.Duration, logger *zap.Logger) *Saver {
	if interval <= 0 {
		interval = DefaultSaveInterval
	}
	return &Saver{
		session:  session,
		store:    store,
		interval: interval,
		logger:   logger.Named("saver"),
	}
}

// Run saves on every tick until ctx ends, then makes one last attempt so
// changes made just before shutdown are not lost.
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.SaveNow(flushCtx)
			cancel()
			return
		case <-ticker.C:
			s.SaveNow(ctx)
		}
	}
}

// SaveNow stores the document if it is dirty and no other save is running.
// saved reports whether a write happened.
func (s *Saver) SaveNow(ctx context.Context) (saved bool, err error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false, nil
	}
	defer s.inFlight.Store(false)

	snapshot, revision, dirty := s.session.Unsaved()
	if !dirty {
		return false, nil
	}

	if err := s.store.ReplaceBoard(ctx, snapshot); err != nil {
		s.logger.Warn("failed to save board", zap.String("board_id", snapshot.ID), zap.Error(err))
		return false, err
	}

	s.session.MarkSaved(snapshot.ID, revision)
	s.logger.Debug("board saved", zap.String("board_id", snapshot.ID), zap.Uint64("revision", revision))
	return true, nil
}
