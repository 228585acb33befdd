package board

import "eventstorming-sync-server/internal/domain"

// Selection is the local, never-serialized "selected" annotation over notes
// and connections.
type Selection struct {
	notes       map[string]struct{}
	connections map[domain.Connection]struct{}
}

func NewSelection() *Selection {
	return &Selection{
		notes:       make(map[string]struct{}),
		connections: make(map[domain.Connection]struct{}),
	}
}

func (s *Selection) SelectNote(id string)   { s.notes[id] = struct{}{} }
func (s *Selection) DeselectNote(id string) { delete(s.notes, id) }

func (s *Selection) NoteSelected(id string) bool {
	_, ok := s.notes[id]
	return ok
}

func (s *Selection) SelectConnection(c domain.Connection)   { s.connections[c] = struct{}{} }
func (s *Selection) DeselectConnection(c domain.Connection) { delete(s.connections, c) }

func (s *Selection) ConnectionSelected(c domain.Connection) bool {
	_, ok := s.connections[c]
	return ok
}

func (s *Selection) Clear() {
	clear(s.notes)
	clear(s.connections)
}

func (s *Selection) Len() int {
	return len(s.notes) + len(s.connections)
}
