package board

import (
	"eventstorming-sync-server/internal/domain"
)

// Command is a reversible change to a State. The set of variants is closed:
// only the types in this file implement it.
//
// Apply and Revert must tolerate at-least-once delivery. Inserts happen only
// when absent, removals only when present, and edits of a missing note do
// nothing.
type Command interface {
	Apply(s *State)
	Revert(s *State)
	isCommand()
}

type RenameBoard struct {
	OldName string
	NewName string
}

func (RenameBoard) isCommand() {}

func (c RenameBoard) Apply(s *State)  { s.Name = c.NewName }
func (c RenameBoard) Revert(s *State) { s.Name = c.OldName }

type CreateNote struct {
	Note domain.Note
}

func (CreateNote) isCommand() {}

func (c CreateNote) Apply(s *State)  { s.insertNote(c.Note) }
func (c CreateNote) Revert(s *State) { s.removeNote(c.Note.ID) }

type EditNoteText struct {
	NoteID   string
	FromText string
	ToText   string
}

func (EditNoteText) isCommand() {}

func (c EditNoteText) Apply(s *State) {
	s.updateNote(c.NoteID, func(n *domain.Note) { n.Text = c.ToText })
}

func (c EditNoteText) Revert(s *State) {
	s.updateNote(c.NoteID, func(n *domain.Note) { n.Text = c.FromText })
}

type ResizeNote struct {
	NoteID string
	From   domain.NoteSize
	To     domain.NoteSize
}

func (ResizeNote) isCommand() {}

func (c ResizeNote) Apply(s *State)  { s.updateNote(c.NoteID, setSize(c.To)) }
func (c ResizeNote) Revert(s *State) { s.updateNote(c.NoteID, setSize(c.From)) }

func setSize(sz domain.NoteSize) func(n *domain.Note) {
	return func(n *domain.Note) {
		n.X = sz.X
		n.Y = sz.Y
		n.Width = sz.Width
		n.Height = sz.Height
	}
}

// MoveNotes moves several notes as one user action.
type MoveNotes struct {
	From []domain.NoteMove
	To   []domain.NoteMove
}

func NewMoveNotes(from, to []domain.NoteMove) MoveNotes {
	return MoveNotes{
		From: append([]domain.NoteMove{}, from...),
		To:   append([]domain.NoteMove{}, to...),
	}
}

func (MoveNotes) isCommand() {}

func (c MoveNotes) Apply(s *State)  { moveAll(s, c.To) }
func (c MoveNotes) Revert(s *State) { moveAll(s, c.From) }

func moveAll(s *State, moves []domain.NoteMove) {
	for _, m := range moves {
		pos := m.Coordinates
		s.updateNote(m.NoteID, func(n *domain.Note) {
			n.X = pos.X
			n.Y = pos.Y
		})
	}
}

type CreateConnection struct {
	Connection domain.Connection
}

func (CreateConnection) isCommand() {}

func (c CreateConnection) Apply(s *State)  { s.insertConnection(c.Connection) }
func (c CreateConnection) Revert(s *State) { s.removeConnection(c.Connection) }

// DeleteNotes removes notes together with the connections the caller
// gathered for them.
type DeleteNotes struct {
	Notes       []domain.Note
	Connections []domain.Connection
}

func NewDeleteNotes(notes []domain.Note, conns []domain.Connection) DeleteNotes {
	return DeleteNotes{
		Notes:       append([]domain.Note{}, notes...),
		Connections: append([]domain.Connection{}, conns...),
	}
}

func (DeleteNotes) isCommand() {}

func (c DeleteNotes) Apply(s *State) {
	for _, conn := range c.Connections {
		s.removeConnection(conn)
	}
	for _, n := range c.Notes {
		s.removeNote(n.ID)
	}
}

func (c DeleteNotes) Revert(s *State) {
	for _, n := range c.Notes {
		s.insertNote(n)
	}
	for _, conn := range c.Connections {
		s.insertConnection(conn)
	}
}

// Paste inserts notes and connections whose ids were already remapped by
// the caller. Pasted notes end up selected.
type Paste struct {
	Notes       []domain.Note
	Connections []domain.Connection
}

func (Paste) isCommand() {}

func (c Paste) Apply(s *State) {
	for _, n := range c.Notes {
		s.insertNote(n)
	}
	for _, conn := range c.Connections {
		s.insertConnection(conn)
	}
	for _, n := range c.Notes {
		if _, ok := s.Note(n.ID); ok {
			s.selection.SelectNote(n.ID)
		}
	}
}

func (c Paste) Revert(s *State) {
	for _, conn := range c.Connections {
		s.removeConnection(conn)
	}
	for _, n := range c.Notes {
		s.removeNote(n.ID)
	}
}

// ApplyRemote plays a command received from another participant. Remote
// commands never enter the local history.
func ApplyRemote(s *State, cmd Command, isUndo bool) {
	if isUndo {
		cmd.Revert(s)
		return
	}
	cmd.Apply(s)
}
