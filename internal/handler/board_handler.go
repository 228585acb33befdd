package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/internal/repository"
	"eventstorming-sync-server/internal/service"
	"eventstorming-sync-server/pkg/response"

	"github.com/gorilla/mux"
	"github.com/sony/gobreaker"
)

type BoardHandler struct {
	boardService *service.BoardService
}

func NewBoardHandler(boardService *service.BoardService) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
	}
}

func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	board, err := h.boardService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, board)
}

func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	boards, err := h.boardService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, boards)
}

func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["id"]

	board, err := h.boardService.Get(r.Context(), boardID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, board)
}

// Replace overwrites the stored board with the request body.
func (h *BoardHandler) Replace(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["id"]

	var req domain.UpdateBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.boardService.Replace(r.Context(), boardID, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrBoardNotFound):
		response.NotFound(w, "board not found")
	case errors.Is(err, service.ErrInvalidBoard):
		response.BadRequest(w, err.Error())
	case errors.Is(err, repository.ErrBoardExists):
		response.Error(w, http.StatusConflict, "board already exists")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		response.ServiceUnavailable(w, "board storage unavailable")
	default:
		response.InternalError(w, err.Error())
	}
}
