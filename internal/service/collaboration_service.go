package service

import (
	"errors"
	"fmt"
	"strconv"

	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/internal/metrics"
	"eventstorming-sync-server/internal/presence"
	"eventstorming-sync-server/internal/websocket"

	"go.uber.org/zap"
)

var (
	ErrBoardIDRequired = errors.New("board_id is required")
	ErrNotJoined       = errors.New("not joined to board")
)

const anonymousUser = "Anonymous"

// Broadcaster queues messages on open connections.
type Broadcaster interface {
	SendToClient(clientID string, message *websocket.Message) error
	BroadcastTo(clientIDs []string, message *websocket.Message) error
}

// CollaborationService runs the live side of a board: who is joined, and
// relaying each participant's command events to everybody else on the
// board. It never looks inside a command.
type CollaborationService struct {
	registry *presence.Registry
	hub      Broadcaster
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewCollaborationService(registry *presence.Registry, hub Broadcaster, logger *zap.Logger, collector *metrics.Collector) *CollaborationService {
	return &CollaborationService{
		registry: registry,
		hub:      hub,
		logger:   logger.Named("collab"),
		metrics:  collector,
	}
}

// Join records the connection on the board, sends it the member list and
// then tells the others. The member list is queued before the connection
// becomes visible to broadcasts, so it is the first thing the joiner reads.
func (s *CollaborationService) Join(connectionID string, req *websocket.JoinBoardPayload) error {
	if req.BoardID == "" {
		return ErrBoardIDRequired
	}
	userName := req.UserName
	if userName == "" {
		userName = anonymousUser
	}

	p := domain.Participant{BoardID: req.BoardID, ConnectionID: connectionID, UserName: userName}

	var sendErr error
	others := s.registry.Join(p, func(members []domain.Participant) {
		msg, err := websocket.NewMessage(websocket.TypeConnectedUsers, &websocket.ConnectedUsersPayload{
			BoardID: req.BoardID,
			Users:   members,
		})
		if err != nil {
			sendErr = err
			return
		}
		sendErr = s.hub.SendToClient(connectionID, msg)
	})
	if sendErr != nil {
		return fmt.Errorf("failed to send member list: %w", sendErr)
	}

	s.logger.Info("participant joined",
		zap.String("board_id", req.BoardID),
		zap.String("connection_id", connectionID),
		zap.String("user_name", userName),
		zap.Int("others", len(others)),
	)
	s.recordPresence()

	joined, err := websocket.NewMessage(websocket.TypeUserJoinedBoard, &websocket.UserJoinedBoardPayload{
		BoardID:      req.BoardID,
		ConnectionID: connectionID,
		UserName:     userName,
	})
	if err != nil {
		return err
	}
	return s.hub.BroadcastTo(connectionIDs(others), joined)
}

// Leave removes the connection from the board and tells whoever remains.
func (s *CollaborationService) Leave(connectionID, boardID string) error {
	if boardID == "" {
		return ErrBoardIDRequired
	}

	remaining, ok := s.registry.Leave(boardID, connectionID)
	if !ok {
		s.logger.Debug("leave for board not joined",
			zap.String("board_id", boardID),
			zap.String("connection_id", connectionID),
		)
		return nil
	}

	s.logger.Info("participant left",
		zap.String("board_id", boardID),
		zap.String("connection_id", connectionID),
	)
	s.recordPresence()
	return s.notifyLeft(boardID, connectionID, remaining)
}

// Disconnect is Leave for every board the connection was on.
func (s *CollaborationService) Disconnect(connectionID string) {
	left := s.registry.RemoveConnection(connectionID)
	if len(left) == 0 {
		return
	}
	s.recordPresence()

	for boardID, remaining := range left {
		s.logger.Info("participant disconnected",
			zap.String("board_id", boardID),
			zap.String("connection_id", connectionID),
		)
		if err := s.notifyLeft(boardID, connectionID, remaining); err != nil {
			s.logger.Warn("failed to notify leave", zap.String("board_id", boardID), zap.Error(err))
		}
	}
}

// Relay forwards a board command event to every other participant of its
// board. The sender must have joined that board.
func (s *CollaborationService) Relay(connectionID string, msg *websocket.Message) error {
	var header websocket.BoardEventHeader
	if err := msg.UnmarshalPayload(&header); err != nil {
		s.metrics.EventsRejected.WithLabelValues("malformed").Inc()
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	if header.BoardID == "" {
		s.metrics.EventsRejected.WithLabelValues("no_board").Inc()
		return ErrBoardIDRequired
	}
	if !s.registry.IsMember(header.BoardID, connectionID) {
		s.metrics.EventsRejected.WithLabelValues("not_joined").Inc()
		return fmt.Errorf("%w %s", ErrNotJoined, header.BoardID)
	}

	others := s.registry.Others(header.BoardID, connectionID)
	if err := s.hub.BroadcastTo(connectionIDs(others), msg); err != nil {
		return err
	}

	s.metrics.EventsRelayed.WithLabelValues(string(msg.Type), strconv.FormatBool(header.IsUndo)).Inc()
	s.logger.Debug("event relayed",
		zap.String("board_id", header.BoardID),
		zap.String("connection_id", connectionID),
		zap.String("type", string(msg.Type)),
		zap.Bool("is_undo", header.IsUndo),
		zap.Int("receivers", len(others)),
	)
	return nil
}

func (s *CollaborationService) Members(boardID string) []domain.Participant {
	return s.registry.Members(boardID)
}

func (s *CollaborationService) notifyLeft(boardID, connectionID string, remaining []domain.Participant) error {
	msg, err := websocket.NewMessage(websocket.TypeUserLeftBoard, &websocket.UserLeftBoardPayload{
		BoardID:      boardID,
		ConnectionID: connectionID,
	})
	if err != nil {
		return err
	}
	return s.hub.BroadcastTo(connectionIDs(remaining), msg)
}

func (s *CollaborationService) recordPresence() {
	s.metrics.SetPresence(s.registry.Stats())
}

func connectionIDs(ps []domain.Participant) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ConnectionID
	}
	return ids
}
