package board

import (
	"errors"
	"fmt"

	"eventstorming-sync-server/internal/websocket"
)

var ErrUnknownEvent = errors.New("unknown board event")

// Encode wraps cmd into the wire message broadcast to the other participants
// of boardID.
func Encode(boardID string, cmd Command, isUndo bool) (*websocket.Message, error) {
	h := websocket.BoardEventHeader{BoardID: boardID, IsUndo: isUndo}

	switch c := cmd.(type) {
	case RenameBoard:
		return websocket.NewMessage(websocket.TypeBoardNameUpdated, &websocket.BoardNameUpdatedPayload{
			BoardEventHeader: h, NewName: c.NewName, OldName: c.OldName,
		})
	case CreateNote:
		return websocket.NewMessage(websocket.TypeNoteCreated, &websocket.NoteCreatedPayload{
			BoardEventHeader: h, Note: c.Note,
		})
	case EditNoteText:
		return websocket.NewMessage(websocket.TypeNoteTextEdited, &websocket.NoteTextEditedPayload{
			BoardEventHeader: h, NoteID: c.NoteID, ToText: c.ToText, FromText: c.FromText,
		})
	case ResizeNote:
		return websocket.NewMessage(websocket.TypeNoteResized, &websocket.NoteResizedPayload{
			BoardEventHeader: h, NoteID: c.NoteID, From: c.From, To: c.To,
		})
	case MoveNotes:
		return websocket.NewMessage(websocket.TypeNotesMoved, &websocket.NotesMovedPayload{
			BoardEventHeader: h, From: c.From, To: c.To,
		})
	case CreateConnection:
		return websocket.NewMessage(websocket.TypeConnectionCreated, &websocket.ConnectionCreatedPayload{
			BoardEventHeader: h, Connection: c.Connection,
		})
	case DeleteNotes:
		return websocket.NewMessage(websocket.TypeNotesDeleted, &websocket.NotesDeletedPayload{
			BoardEventHeader: h, Notes: c.Notes, Connections: c.Connections,
		})
	case Paste:
		return websocket.NewMessage(websocket.TypePasted, &websocket.PastedPayload{
			BoardEventHeader: h, Notes: c.Notes, Connections: c.Connections,
		})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, cmd)
	}
}

// Decode rebuilds the command carried by a board event message.
func Decode(msg *websocket.Message) (Command, websocket.BoardEventHeader, error) {
	switch msg.Type {
	case websocket.TypeBoardNameUpdated:
		var p websocket.BoardNameUpdatedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return RenameBoard{OldName: p.OldName, NewName: p.NewName}, p.BoardEventHeader, nil

	case websocket.TypeNoteCreated:
		var p websocket.NoteCreatedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return CreateNote{Note: p.Note}, p.BoardEventHeader, nil

	case websocket.TypeNoteTextEdited:
		var p websocket.NoteTextEditedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return EditNoteText{NoteID: p.NoteID, FromText: p.FromText, ToText: p.ToText}, p.BoardEventHeader, nil

	case websocket.TypeNoteResized:
		var p websocket.NoteResizedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return ResizeNote{NoteID: p.NoteID, From: p.From, To: p.To}, p.BoardEventHeader, nil

	case websocket.TypeNotesMoved:
		var p websocket.NotesMovedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return NewMoveNotes(p.From, p.To), p.BoardEventHeader, nil

	case websocket.TypeConnectionCreated:
		var p websocket.ConnectionCreatedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return CreateConnection{Connection: p.Connection}, p.BoardEventHeader, nil

	case websocket.TypeNotesDeleted:
		var p websocket.NotesDeletedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return NewDeleteNotes(p.Notes, p.Connections), p.BoardEventHeader, nil

	case websocket.TypePasted:
		var p websocket.PastedPayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			return nil, p.BoardEventHeader, err
		}
		return Paste{Notes: p.Notes, Connections: p.Connections}, p.BoardEventHeader, nil
	}

	return nil, websocket.BoardEventHeader{}, fmt.Errorf("%w: %s", ErrUnknownEvent, msg.Type)
}
