package handler

import (
	"net/http"

	"eventstorming-sync-server/internal/service"
	"eventstorming-sync-server/pkg/response"

	"github.com/gorilla/mux"
)

type PresenceHandler struct {
	collab *service.CollaborationService
}

func NewPresenceHandler(collab *service.CollaborationService) *PresenceHandler {
	return &PresenceHandler{collab: collab}
}

// Participants lists who is currently joined to the board.
func (h *PresenceHandler) Participants(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.collab.Members(mux.Vars(r)["id"]))
}
