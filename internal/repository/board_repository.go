package repository

import (
	"context"
	"errors"

	"eventstorming-sync-server/internal/domain"
)

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrBoardExists   = errors.New("board already exists")
)

// BoardRepository stores the last saved snapshot of each board. Replace is
// a whole-board overwrite; the last writer wins and nothing is merged.
type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	Get(ctx context.Context, id string) (*domain.Board, error)
	List(ctx context.Context) ([]domain.BoardSummary, error)
	Replace(ctx context.Context, id string, board *domain.Board) error
}
