package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventstorming-sync-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBoard(id, name string) *domain.Board {
	return &domain.Board{
		ID:          id,
		Name:        name,
		Notes:       []domain.Note{{ID: "n1", Text: "Order placed", Width: 120, Height: 120}},
		Connections: []domain.Connection{},
	}
}

func TestMemoryBoardRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBoardRepository(0)

	require.NoError(t, repo.Create(ctx, newBoard("b1", "Checkout")))
	assert.ErrorIs(t, repo.Create(ctx, newBoard("b1", "again")), ErrBoardExists)

	got, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Checkout", got.Name)
	assert.Len(t, got.Notes, 1)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestMemoryBoardRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBoardRepository(0)

	b := newBoard("b1", "Checkout")
	require.NoError(t, repo.Create(ctx, b))
	b.Notes[0].Text = "mutated by caller"

	got, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	got.Notes[0].Text = "mutated by reader"

	again, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Order placed", again.Notes[0].Text)
}

func TestMemoryBoardRepository_ListInCreationOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBoardRepository(0)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Create(ctx, newBoard(id, "board "+id)))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.BoardSummary{
		{ID: "c", Name: "board c"},
		{ID: "a", Name: "board a"},
		{ID: "b", Name: "board b"},
	}, list)
}

func TestMemoryBoardRepository_ReplaceMissing(t *testing.T) {
	repo := NewMemoryBoardRepository(0)
	err := repo.Replace(context.Background(), "missing", newBoard("missing", "x"))
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

// Two clients save their own snapshots one after the other; the second
// overwrites the first entirely.
func TestMemoryBoardRepository_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBoardRepository(0)
	require.NoError(t, repo.Create(ctx, &domain.Board{ID: "b1", Name: "Checkout"}))

	first := &domain.Board{
		Name:  "Checkout",
		Notes: []domain.Note{{ID: "n1", Text: "from A"}},
	}
	second := &domain.Board{
		Name:  "Checkout v2",
		Notes: []domain.Note{{ID: "n2", Text: "from B"}},
	}

	require.NoError(t, repo.Replace(ctx, "b1", first))
	require.NoError(t, repo.Replace(ctx, "b1", second))

	got, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
	assert.Equal(t, "Checkout v2", got.Name)
	assert.Equal(t, []domain.Note{{ID: "n2", Text: "from B"}}, got.Notes)
}

func TestMemoryBoardRepository_SlidingExpiration(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryBoardRepository(time.Hour)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Create(ctx, newBoard("b1", "kept")))
	require.NoError(t, repo.Create(ctx, newBoard("b2", "dropped")))

	now = now.Add(50 * time.Minute)
	_, err := repo.Get(ctx, "b1")
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	_, err = repo.Get(ctx, "b2")
	assert.ErrorIs(t, err, ErrBoardNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.BoardSummary{{ID: "b1", Name: "kept"}}, list)

	assert.Equal(t, 1, repo.Sweep())
	assert.Equal(t, 0, repo.Sweep())
}

type failingRepo struct {
	BoardRepository
	err   error
	calls int
}

func (f *failingRepo) Get(ctx context.Context, id string) (*domain.Board, error) {
	f.calls++
	return nil, f.err
}

func TestCircuitBreaker_OpensOnFailures(t *testing.T) {
	inner := &failingRepo{err: errors.New("couchdb unreachable")}
	cfg := DefaultBreakerConfig("boards-test")
	cfg.Timeout = time.Minute
	repo := WithCircuitBreaker(inner, cfg, zap.NewNop())

	for i := 0; i < int(cfg.MinRequests); i++ {
		_, err := repo.Get(context.Background(), "b1")
		require.Error(t, err)
	}
	calls := inner.calls

	_, err := repo.Get(context.Background(), "b1")
	require.Error(t, err)
	assert.Equal(t, calls, inner.calls)
}

func TestCircuitBreaker_NotFoundIsNotAFailure(t *testing.T) {
	inner := &failingRepo{err: ErrBoardNotFound}
	repo := WithCircuitBreaker(inner, DefaultBreakerConfig("boards-test"), zap.NewNop())

	for i := 0; i < 20; i++ {
		_, err := repo.Get(context.Background(), "b1")
		assert.ErrorIs(t, err, ErrBoardNotFound)
	}
	assert.Equal(t, 20, inner.calls)
}
