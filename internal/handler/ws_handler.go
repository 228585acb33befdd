package handler

import (
	"errors"
	"fmt"
	"net/http"

	"eventstorming-sync-server/internal/service"
	"eventstorming-sync-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	manager  *websocket.Manager
	upgrader ws.Upgrader
	logger   *zap.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, readBufferSize, writeBufferSize int, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.Named("ws"),
	}
}

// HandleConnection upgrades the request and starts the connection's pumps.
// The connection id is also the participant id for every board it joins.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	clientID := uuid.New().String()
	client := websocket.NewClient(clientID, conn, h.manager)

	if err := h.manager.Register(client); err != nil {
		msg := ws.FormatCloseMessage(ws.CloseTryAgainLater, err.Error())
		conn.WriteMessage(ws.CloseMessage, msg)
		conn.Close()
		return
	}

	h.logger.Debug("connection upgraded", zap.String("connection_id", clientID), zap.String("remote_addr", r.RemoteAddr))

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler routes inbound messages to the collaboration
// service. A returned error is sent back to the client as an error message.
type WebSocketMessageHandler struct {
	collab  *service.CollaborationService
	manager *websocket.Manager
}

func NewWebSocketMessageHandler(collab *service.CollaborationService, manager *websocket.Manager) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		collab:  collab,
		manager: manager,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch {
	case msg.Type == websocket.TypeJoinBoard:
		return h.handleJoin(client, msg)

	case msg.Type == websocket.TypeLeaveBoard:
		return h.handleLeave(client, msg)

	case msg.Type == websocket.TypePing:
		return h.handlePing(client)

	case websocket.IsBoardEvent(msg.Type):
		return h.collab.Relay(client.ID, msg)

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (h *WebSocketMessageHandler) HandleDisconnect(client *websocket.Client) {
	h.collab.Disconnect(client.ID)
}

func (h *WebSocketMessageHandler) handleJoin(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.JoinBoardPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return errors.New("invalid join_board payload")
	}
	return h.collab.Join(client.ID, &payload)
}

func (h *WebSocketMessageHandler) handleLeave(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.LeaveBoardPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return errors.New("invalid leave_board payload")
	}
	return h.collab.Leave(client.ID, payload.BoardID)
}

func (h *WebSocketMessageHandler) handlePing(client *websocket.Client) error {
	pongMsg, err := websocket.NewMessage(websocket.TypePong, nil)
	if err != nil {
		return err
	}
	return h.manager.SendToClient(client.ID, pongMsg)
}
