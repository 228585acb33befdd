package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventstorming-sync-server/internal/domain"
)

type memoryEntry struct {
	board      *domain.Board
	seq        uint64
	lastAccess time.Time
}

// MemoryBoardRepository keeps boards in process memory. With a non-zero
// expiration, a board nobody read or wrote for that long is evicted by Sweep.
type MemoryBoardRepository struct {
	mu         sync.RWMutex
	boards     map[string]*memoryEntry
	seq        uint64
	expiration time.Duration
	now        func() time.Time
}

func NewMemoryBoardRepository(expiration time.Duration) *MemoryBoardRepository {
	return &MemoryBoardRepository{
		boards:     make(map[string]*memoryEntry),
		expiration: expiration,
		now:        time.Now,
	}
}

func (r *MemoryBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.boards[board.ID]; exists {
		return ErrBoardExists
	}

	r.seq++
	r.boards[board.ID] = &memoryEntry{
		board:      board.Clone(),
		seq:        r.seq,
		lastAccess: r.now(),
	}
	return nil
}

func (r *MemoryBoardRepository) Get(ctx context.Context, id string) (*domain.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(id)
	if !ok {
		return nil, ErrBoardNotFound
	}
	e.lastAccess = r.now()
	return e.board.Clone(), nil
}

// List returns the summaries in creation order.
func (r *MemoryBoardRepository) List(ctx context.Context) ([]domain.BoardSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*memoryEntry, 0, len(r.boards))
	for id := range r.boards {
		if e, ok := r.live(id); ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	summaries := make([]domain.BoardSummary, len(entries))
	for i, e := range entries {
		summaries[i] = e.board.Summary()
	}
	return summaries, nil
}

func (r *MemoryBoardRepository) Replace(ctx context.Context, id string, board *domain.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(id)
	if !ok {
		return ErrBoardNotFound
	}

	next := board.Clone()
	next.ID = id
	e.board = next
	e.lastAccess = r.now()
	return nil
}

// Sweep evicts expired boards and returns how many went.
func (r *MemoryBoardRepository) Sweep() int {
	if r.expiration <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id := range r.boards {
		if _, ok := r.live(id); !ok {
			delete(r.boards, id)
			evicted++
		}
	}
	return evicted
}

// RunJanitor sweeps on every tick until ctx ends.
func (r *MemoryBoardRepository) RunJanitor(ctx context.Context, interval time.Duration) {
	if r.expiration <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// live must be called with mu held.
func (r *MemoryBoardRepository) live(id string) (*memoryEntry, bool) {
	e, ok := r.boards[id]
	if !ok {
		return nil, false
	}
	if r.expiration > 0 && r.now().Sub(e.lastAccess) > r.expiration {
		return nil, false
	}
	return e, true
}
