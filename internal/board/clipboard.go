package board

import (
	"math"
	"strings"

	"eventstorming-sync-server/internal/domain"

	"github.com/google/uuid"
)

// CopySelection returns the selected notes and the connections running
// between two selected notes.
func CopySelection(s *State) ([]domain.Note, []domain.Connection) {
	var notes []domain.Note
	for _, n := range s.notes {
		if s.selection.NoteSelected(n.ID) {
			notes = append(notes, n)
		}
	}

	var conns []domain.Connection
	for _, c := range s.connections {
		if s.selection.NoteSelected(c.FromNoteID) && s.selection.NoteSelected(c.ToNoteID) {
			conns = append(conns, c)
		}
	}
	return notes, conns
}

// NewPaste builds a Paste of copied content placed with its top-left corner
// at the given point. Every note gets a fresh id and connections follow the
// remap; a connection whose endpoint was not copied is dropped.
func NewPaste(notes []domain.Note, conns []domain.Connection, at domain.Coordinates) Paste {
	if len(notes) == 0 {
		return Paste{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	for _, n := range notes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
	}

	ids := make(map[string]string, len(notes))
	out := Paste{Notes: make([]domain.Note, 0, len(notes))}
	for _, n := range notes {
		id := uuid.New().String()
		ids[n.ID] = id

		n.ID = id
		n.X = at.X + (n.X - minX)
		n.Y = at.Y + (n.Y - minY)
		out.Notes = append(out.Notes, n)
	}

	for _, c := range conns {
		from, okFrom := ids[c.FromNoteID]
		to, okTo := ids[c.ToNoteID]
		if !okFrom || !okTo {
			continue
		}
		out.Connections = append(out.Connections, domain.Connection{FromNoteID: from, ToNoteID: to})
	}
	return out
}

// NewNote places a note of the given type at (x, y) with the type's default
// size, colour and label.
func NewNote(t domain.NoteType, x, y float64) domain.Note {
	w, h := domain.DefaultSize(t)
	label := string(t)
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return domain.Note{
		ID:     uuid.New().String(),
		Text:   label,
		X:      x,
		Y:      y,
		Width:  w,
		Height: h,
		Color:  domain.DefaultColor(t),
		Type:   t,
	}
}
