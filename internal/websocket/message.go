package websocket

import (
	"encoding/json"
	"time"

	"eventstorming-sync-server/internal/domain"
)

type MessageType string

const (
	TypeJoinBoard       MessageType = "join_board"
	TypeLeaveBoard      MessageType = "leave_board"
	TypeConnectedUsers  MessageType = "connected_users"
	TypeUserJoinedBoard MessageType = "user_joined_board"
	TypeUserLeftBoard   MessageType = "user_left_board"
	TypeError           MessageType = "error"
	TypePing            MessageType = "ping"
	TypePong            MessageType = "pong"

	// One type per board command.
	TypeBoardNameUpdated  MessageType = "board_name_updated"
	TypeNoteCreated       MessageType = "note_created"
	TypeNoteTextEdited    MessageType = "note_text_edited"
	TypeNoteResized       MessageType = "note_resized"
	TypeNotesMoved        MessageType = "notes_moved"
	TypeConnectionCreated MessageType = "connection_created"
	TypeNotesDeleted      MessageType = "notes_deleted"
	TypePasted            MessageType = "pasted"
)

var boardEventTypes = map[MessageType]bool{
	TypeBoardNameUpdated:  true,
	TypeNoteCreated:       true,
	TypeNoteTextEdited:    true,
	TypeNoteResized:       true,
	TypeNotesMoved:        true,
	TypeConnectionCreated: true,
	TypeNotesDeleted:      true,
	TypePasted:            true,
}

// IsBoardEvent reports whether t carries a board command relayed between
// participants.
func IsBoardEvent(t MessageType) bool {
	return boardEventTypes[t]
}

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type JoinBoardPayload struct {
	BoardID  string `json:"board_id"`
	UserName string `json:"user_name"`
}

type LeaveBoardPayload struct {
	BoardID string `json:"board_id"`
}

type ConnectedUsersPayload struct {
	BoardID string               `json:"board_id"`
	Users   []domain.Participant `json:"users"`
}

type UserJoinedBoardPayload struct {
	BoardID      string `json:"board_id"`
	ConnectionID string `json:"connection_id"`
	UserName     string `json:"user_name"`
}

type UserLeftBoardPayload struct {
	BoardID      string `json:"board_id"`
	ConnectionID string `json:"connection_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// BoardEventHeader is the part every board command payload shares. The
// server routes on it without looking at the rest.
type BoardEventHeader struct {
	BoardID string `json:"board_id"`
	IsUndo  bool   `json:"is_undo"`
}

type BoardNameUpdatedPayload struct {
	BoardEventHeader
	NewName string `json:"new_name"`
	OldName string `json:"old_name"`
}

type NoteCreatedPayload struct {
	BoardEventHeader
	Note domain.Note `json:"note"`
}

type NoteTextEditedPayload struct {
	BoardEventHeader
	NoteID   string `json:"note_id"`
	ToText   string `json:"to_text"`
	FromText string `json:"from_text"`
}

type NoteResizedPayload struct {
	BoardEventHeader
	NoteID string          `json:"note_id"`
	From   domain.NoteSize `json:"from"`
	To     domain.NoteSize `json:"to"`
}

type NotesMovedPayload struct {
	BoardEventHeader
	From []domain.NoteMove `json:"from"`
	To   []domain.NoteMove `json:"to"`
}

type ConnectionCreatedPayload struct {
	BoardEventHeader
	Connection domain.Connection `json:"connection"`
}

type NotesDeletedPayload struct {
	BoardEventHeader
	Notes       []domain.Note       `json:"notes"`
	Connections []domain.Connection `json:"connections"`
}

type PastedPayload struct {
	BoardEventHeader
	Notes       []domain.Note       `json:"notes"`
	Connections []domain.Connection `json:"connections"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
