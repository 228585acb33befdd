package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/internal/metrics"
	"eventstorming-sync-server/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidBoard = errors.New("invalid board")

type BoardService struct {
	repo      repository.BoardRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *metrics.Collector
}

func NewBoardService(repo repository.BoardRepository, logger *zap.Logger, collector *metrics.Collector) *BoardService {
	return &BoardService{
		repo:      repo,
		validator: validator.New(),
		logger:    logger.Named("boards"),
		metrics:   collector,
	}
}

// Create stores an empty board under a fresh id.
func (s *BoardService) Create(ctx context.Context, req *domain.CreateBoardRequest) (*domain.Board, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}

	board := &domain.Board{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Notes:       []domain.Note{},
		Connections: []domain.Connection{},
	}

	err := s.repo.Create(ctx, board)
	s.record("create", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("board created", zap.String("board_id", board.ID), zap.String("name", board.Name))
	return board, nil
}

func (s *BoardService) Get(ctx context.Context, id string) (*domain.Board, error) {
	board, err := s.repo.Get(ctx, id)
	s.record("get", err)
	return board, err
}

func (s *BoardService) List(ctx context.Context) ([]domain.BoardSummary, error) {
	boards, err := s.repo.List(ctx)
	s.record("list", err)
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// Replace overwrites the whole stored board with the client's snapshot.
func (s *BoardService) Replace(ctx context.Context, id string, req *domain.UpdateBoardRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}

	board := &domain.Board{
		ID:          id,
		Name:        req.Name,
		Notes:       req.Notes,
		Connections: req.Connections,
	}

	err := s.repo.Replace(ctx, id, board)
	s.record("replace", err)
	if err != nil {
		return err
	}

	s.logger.Debug("board saved",
		zap.String("board_id", id),
		zap.Int("notes", len(board.Notes)),
		zap.Int("connections", len(board.Connections)),
	)
	return nil
}

func (s *BoardService) record(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrBoardNotFound):
		result = "not_found"
	default:
		result = "error"
		s.logger.Error("repository operation failed", zap.String("op", op), zap.Error(err))
	}
	s.metrics.RepositoryOps.WithLabelValues(op, result).Inc()
}
