package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eventstorming-sync-server/internal/board"
	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/internal/websocket"

	"go.uber.org/zap"
)

var (
	ErrNotJoined      = errors.New("not joined to a board")
	ErrUnsavedChanges = errors.New("board has unsaved changes")
)

type Status int

const (
	StatusUnbound Status = iota
	StatusJoining
	StatusJoined
	StatusLeft
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusUnbound:
		return "unbound"
	case StatusJoining:
		return "joining"
	case StatusJoined:
		return "joined"
	case StatusLeft:
		return "left"
	case StatusDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type ChangeKind string

const (
	ChangeBoard   ChangeKind = "board"
	ChangeMembers ChangeKind = "members"
	ChangeStatus  ChangeKind = "status"
)

// Change tells the presentation layer what to redraw.
type Change struct {
	Kind   ChangeKind
	Remote bool
}

// Sender is the outbound half of the channel to the hub.
type Sender interface {
	Send(msg *websocket.Message) error
}

type BoardLoader interface {
	GetBoard(ctx context.Context, id string) (*domain.Board, error)
}

// Session is one participant's view of one board at a time: the local
// document, its undo history and the channel to everybody else. Local
// commands are applied first and then broadcast; remote ones are applied
// as they arrive and never touch the history.
type Session struct {
	mu sync.Mutex

	sender Sender
	loader BoardLoader
	logger *zap.Logger

	status   Status
	boardID  string
	userName string
	state    *board.State
	history  *board.History
	members  []domain.Participant

	onChange func(Change)
}

func New(sender Sender, loader BoardLoader, logger *zap.Logger) *Session {
	state := board.NewState(nil)
	return &Session{
		sender:  sender,
		loader:  loader,
		logger:  logger.Named("session"),
		state:   state,
		history: board.NewHistory(state),
	}
}

// OnChange registers fn to run after every change. fn runs without the
// session lock held and may call back into the session.
func (s *Session) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Join loads the stored board and announces this participant on it. A
// previously joined board is left first. Join fails with ErrUnsavedChanges
// while the current document is dirty; save it before switching.
func (s *Session) Join(ctx context.Context, boardID, userName string) error {
	if s.dirty() {
		return ErrUnsavedChanges
	}

	b, err := s.loader.GetBoard(ctx, boardID)
	if err != nil {
		return fmt.Errorf("failed to load board %s: %w", boardID, err)
	}

	s.mu.Lock()
	if s.boardID != "" && s.state.Dirty() {
		s.mu.Unlock()
		return ErrUnsavedChanges
	}
	if s.boardID != "" && s.status != StatusLeft && s.boardID != boardID {
		s.sendLocked(websocket.TypeLeaveBoard, &websocket.LeaveBoardPayload{BoardID: s.boardID})
	}

	s.boardID = boardID
	s.userName = userName
	s.state.Load(b)
	s.history.Reset()
	s.members = nil
	s.status = StatusJoining
	s.sendLocked(websocket.TypeJoinBoard, &websocket.JoinBoardPayload{BoardID: boardID, UserName: userName})
	notify := s.onChange
	s.mu.Unlock()

	s.logger.Info("joining board", zap.String("board_id", boardID), zap.String("user_name", userName))
	emit(notify, Change{Kind: ChangeBoard}, Change{Kind: ChangeStatus})
	return nil
}

// Leave stops receiving events for the board and drops the undo history.
// The document stays readable and unsaved changes can still be saved.
func (s *Session) Leave() {
	s.mu.Lock()
	if s.boardID == "" || s.status == StatusLeft {
		s.mu.Unlock()
		return
	}
	s.sendLocked(websocket.TypeLeaveBoard, &websocket.LeaveBoardPayload{BoardID: s.boardID})
	s.history.Reset()
	s.members = nil
	s.status = StatusLeft
	notify := s.onChange
	s.mu.Unlock()

	emit(notify, Change{Kind: ChangeStatus}, Change{Kind: ChangeMembers})
}

// Execute applies cmd locally, records it for undo and broadcasts it.
func (s *Session) Execute(cmd board.Command) error {
	s.mu.Lock()
	if !s.bound() {
		s.mu.Unlock()
		return ErrNotJoined
	}
	s.history.Execute(cmd)
	s.broadcastLocked(cmd, false)
	notify := s.onChange
	s.mu.Unlock()

	emit(notify, Change{Kind: ChangeBoard})
	return nil
}

// Undo reverts the last local command and broadcasts the revert. It
// reports false when there was nothing to undo.
func (s *Session) Undo() bool {
	return s.step(s.history.Undo, true)
}

func (s *Session) Redo() bool {
	return s.step(s.history.Redo, false)
}

func (s *Session) step(op func() (board.Command, bool), isUndo bool) bool {
	s.mu.Lock()
	if !s.bound() {
		s.mu.Unlock()
		return false
	}
	cmd, ok := op()
	if ok {
		s.broadcastLocked(cmd, isUndo)
	}
	notify := s.onChange
	s.mu.Unlock()

	if ok {
		emit(notify, Change{Kind: ChangeBoard})
	}
	return ok
}

// HandleMessage applies one message received from the hub.
func (s *Session) HandleMessage(msg *websocket.Message) {
	if websocket.IsBoardEvent(msg.Type) {
		s.applyRemote(msg)
		return
	}

	switch msg.Type {
	case websocket.TypeConnectedUsers:
		var p websocket.ConnectedUsersPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			s.logger.Warn("invalid connected_users payload", zap.Error(err))
			return
		}
		s.updateMembers(p.BoardID, func([]domain.Participant) []domain.Participant {
			return p.Users
		}, true)

	case websocket.TypeUserJoinedBoard:
		var p websocket.UserJoinedBoardPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			s.logger.Warn("invalid user_joined_board payload", zap.Error(err))
			return
		}
		s.updateMembers(p.BoardID, func(members []domain.Participant) []domain.Participant {
			joined := domain.Participant{BoardID: p.BoardID, ConnectionID: p.ConnectionID, UserName: p.UserName}
			for _, m := range members {
				if m.Same(joined) {
					return members
				}
			}
			return append(members, joined)
		}, false)

	case websocket.TypeUserLeftBoard:
		var p websocket.UserLeftBoardPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			s.logger.Warn("invalid user_left_board payload", zap.Error(err))
			return
		}
		s.updateMembers(p.BoardID, func(members []domain.Participant) []domain.Participant {
			out := members[:0]
			for _, m := range members {
				if m.ConnectionID != p.ConnectionID {
					out = append(out, m)
				}
			}
			return out
		}, false)

	case websocket.TypeError:
		var p websocket.ErrorPayload
		msg.UnmarshalPayload(&p)
		s.logger.Warn("hub reported an error", zap.String("message", p.Message))

	case websocket.TypePong:

	default:
		s.logger.Debug("ignoring message", zap.String("type", string(msg.Type)))
	}
}

// HandleConnected runs on every (re)connect. A board that was joined or
// being joined is announced again, since the hub forgets a connection when
// it drops.
func (s *Session) HandleConnected() {
	s.mu.Lock()
	if s.boardID == "" || s.status == StatusLeft || s.status == StatusUnbound {
		s.mu.Unlock()
		return
	}
	s.status = StatusJoining
	boardID := s.boardID
	s.sendLocked(websocket.TypeJoinBoard, &websocket.JoinBoardPayload{BoardID: boardID, UserName: s.userName})
	notify := s.onChange
	s.mu.Unlock()

	s.logger.Info("rejoining board", zap.String("board_id", boardID))
	emit(notify, Change{Kind: ChangeStatus})
}

func (s *Session) HandleDisconnected() {
	s.mu.Lock()
	if s.status != StatusJoined && s.status != StatusJoining {
		s.mu.Unlock()
		return
	}
	s.status = StatusDisconnected
	s.members = nil
	notify := s.onChange
	s.mu.Unlock()

	emit(notify, Change{Kind: ChangeStatus}, Change{Kind: ChangeMembers})
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) BoardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardID
}

// State returns a copy of the current document.
func (s *Session) State() *domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// View runs fn with the live document under the session lock. fn must not
// keep the state or call back into the session.
func (s *Session) View(fn func(state *board.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

func (s *Session) Members() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Participant{}, s.members...)
}

// HistoryDepth returns the sizes of the undo and redo stacks.
func (s *Session) HistoryDepth() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Depth()
}

// Unsaved returns the document to save and the revision it was taken at.
// dirty is false when the stored copy is already current.
func (s *Session) Unsaved() (snapshot *domain.Board, revision uint64, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boardID == "" || !s.state.Dirty() {
		return nil, 0, false
	}
	return s.state.Snapshot(), s.state.Revision(), true
}

// MarkSaved records that the document as of revision is stored.
func (s *Session) MarkSaved(boardID string, revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if boardID != s.boardID {
		return
	}
	s.state.MarkSaved(revision)
}

func (s *Session) applyRemote(msg *websocket.Message) {
	cmd, header, err := board.Decode(msg)
	if err != nil {
		s.logger.Warn("dropping undecodable event", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	s.mu.Lock()
	if header.BoardID != s.boardID || !s.bound() {
		s.mu.Unlock()
		s.logger.Debug("dropping event for another board", zap.String("board_id", header.BoardID))
		return
	}
	board.ApplyRemote(s.state, cmd, header.IsUndo)
	notify := s.onChange
	s.mu.Unlock()

	emit(notify, Change{Kind: ChangeBoard, Remote: true})
}

func (s *Session) updateMembers(boardID string, fn func([]domain.Participant) []domain.Participant, snapshot bool) {
	s.mu.Lock()
	if boardID != s.boardID || s.status == StatusLeft {
		s.mu.Unlock()
		return
	}
	s.members = fn(s.members)
	changes := []Change{{Kind: ChangeMembers, Remote: true}}
	if snapshot && s.status != StatusJoined {
		s.status = StatusJoined
		changes = append(changes, Change{Kind: ChangeStatus})
	}
	notify := s.onChange
	s.mu.Unlock()

	emit(notify, changes...)
}

func (s *Session) dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardID != "" && s.state.Dirty()
}

// bound must be called with mu held.
func (s *Session) bound() bool {
	return s.boardID != "" && s.status != StatusLeft && s.status != StatusUnbound
}

func (s *Session) broadcastLocked(cmd board.Command, isUndo bool) {
	msg, err := board.Encode(s.boardID, cmd, isUndo)
	if err != nil {
		s.logger.Error("failed to encode command", zap.Error(err))
		return
	}
	s.deliverLocked(msg)
}

func (s *Session) sendLocked(msgType websocket.MessageType, payload interface{}) {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		s.logger.Error("failed to build message", zap.String("type", string(msgType)), zap.Error(err))
		return
	}
	s.deliverLocked(msg)
}

// deliverLocked never reports failure upwards; a lost event is logged and
// the sender carries on.
func (s *Session) deliverLocked(msg *websocket.Message) {
	if err := s.sender.Send(msg); err != nil {
		s.logger.Warn("message not sent",
			zap.String("board_id", s.boardID),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
	}
}

func emit(fn func(Change), changes ...Change) {
	if fn == nil {
		return
	}
	for _, c := range changes {
		fn(c)
	}
}
