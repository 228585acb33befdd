package board

import (
	"eventstorming-sync-server/internal/domain"
)

// State is one client's mutable copy of a board. Commands are the only
// writers. It is not safe for concurrent use; the owning session serializes
// access.
type State struct {
	ID          string
	Name        string
	notes       []domain.Note
	connections []domain.Connection
	selection   *Selection

	revision uint64
	saved    uint64
}

func NewState(b *domain.Board) *State {
	s := &State{selection: NewSelection()}
	if b != nil {
		s.Load(b)
	}
	return s
}

// Load replaces the whole content with a snapshot and drops selection.
// The loaded content counts as saved.
func (s *State) Load(b *domain.Board) {
	s.ID = b.ID
	s.Name = b.Name
	s.notes = append([]domain.Note{}, b.Notes...)
	s.connections = append([]domain.Connection{}, b.Connections...)
	s.selection.Clear()
	s.saved = s.revision
}

// Snapshot returns the storable form of the board. Selection is never part of it.
func (s *State) Snapshot() *domain.Board {
	return &domain.Board{
		ID:          s.ID,
		Name:        s.Name,
		Notes:       append([]domain.Note{}, s.notes...),
		Connections: append([]domain.Connection{}, s.connections...),
	}
}

func (s *State) Notes() []domain.Note {
	return append([]domain.Note{}, s.notes...)
}

func (s *State) Connections() []domain.Connection {
	return append([]domain.Connection{}, s.connections...)
}

func (s *State) Note(id string) (domain.Note, bool) {
	if i := s.noteIndex(id); i >= 0 {
		return s.notes[i], true
	}
	return domain.Note{}, false
}

func (s *State) HasConnection(c domain.Connection) bool {
	return s.connectionIndex(c) >= 0
}

// Drawable reports whether both endpoints of c exist. Connections left
// dangling by an undo race stay in the state but are not drawable.
func (s *State) Drawable(c domain.Connection) bool {
	return s.noteIndex(c.FromNoteID) >= 0 && s.noteIndex(c.ToNoteID) >= 0
}

func (s *State) Selection() *Selection {
	return s.selection
}

// MarkDirty records a local change that the next save has to carry.
func (s *State) MarkDirty() {
	s.revision++
}

func (s *State) Dirty() bool {
	return s.revision != s.saved
}

// Revision identifies the content a save started from.
func (s *State) Revision() uint64 {
	return s.revision
}

// MarkSaved clears the dirty flag if nothing changed since rev was taken.
func (s *State) MarkSaved(rev uint64) {
	if rev > s.saved {
		s.saved = rev
	}
}

func (s *State) noteIndex(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) connectionIndex(c domain.Connection) int {
	for i := range s.connections {
		if s.connections[i] == c {
			return i
		}
	}
	return -1
}

func (s *State) insertNote(n domain.Note) bool {
	if s.noteIndex(n.ID) >= 0 {
		return false
	}
	s.notes = append(s.notes, n)
	return true
}

func (s *State) removeNote(id string) bool {
	i := s.noteIndex(id)
	if i < 0 {
		return false
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	s.selection.DeselectNote(id)
	return true
}

func (s *State) updateNote(id string, fn func(n *domain.Note)) bool {
	i := s.noteIndex(id)
	if i < 0 {
		return false
	}
	fn(&s.notes[i])
	return true
}

func (s *State) insertConnection(c domain.Connection) bool {
	if s.connectionIndex(c) >= 0 {
		return false
	}
	s.connections = append(s.connections, c)
	return true
}

func (s *State) removeConnection(c domain.Connection) bool {
	i := s.connectionIndex(c)
	if i < 0 {
		return false
	}
	s.connections = append(s.connections[:i], s.connections[i+1:]...)
	s.selection.DeselectConnection(c)
	return true
}
