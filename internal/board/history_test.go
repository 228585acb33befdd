package board

import (
	"testing"

	"eventstorming-sync-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_UndoRedo(t *testing.T) {
	for name, cmd := range commandCases() {
		t.Run(name, func(t *testing.T) {
			s := NewState(sampleBoard())
			h := NewHistory(s)

			h.Execute(cmd)
			executed := s.Snapshot()

			undone, ok := h.Undo()
			require.True(t, ok)
			assert.Equal(t, cmd, undone)
			assertSameBoard(t, sampleBoard(), s.Snapshot())

			redone, ok := h.Redo()
			require.True(t, ok)
			assert.Equal(t, cmd, redone)
			assertSameBoard(t, executed, s.Snapshot())
		})
	}
}

func TestHistory_EmptyStacksAreNoops(t *testing.T) {
	s := NewState(sampleBoard())
	h := NewHistory(s)

	_, ok := h.Undo()
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)
	assert.False(t, s.Dirty())
	assertSameBoard(t, sampleBoard(), s.Snapshot())
}

func TestHistory_ExecuteClearsRedo(t *testing.T) {
	s := NewState(sampleBoard())
	h := NewHistory(s)

	h.Execute(EditNoteText{NoteID: "n1", FromText: "Order Placed", ToText: "A"})
	h.Undo()
	require.True(t, h.CanRedo())

	h.Execute(EditNoteText{NoteID: "n1", FromText: "Order Placed", ToText: "B"})

	_, ok := h.Redo()
	assert.False(t, ok)
	n1, _ := s.Note("n1")
	assert.Equal(t, "B", n1.Text)
}

func TestHistory_MoveThenUndoRestoresPosition(t *testing.T) {
	s := NewState(sampleBoard())
	h := NewHistory(s)

	h.Execute(NewMoveNotes(
		[]domain.NoteMove{{NoteID: "n1", Coordinates: domain.Coordinates{X: 0, Y: 0}}},
		[]domain.NoteMove{{NoteID: "n1", Coordinates: domain.Coordinates{X: 50, Y: 50}}},
	))
	n1, _ := s.Note("n1")
	assert.Equal(t, domain.Coordinates{X: 50, Y: 50}, domain.Coordinates{X: n1.X, Y: n1.Y})

	h.Undo()
	n1, _ = s.Note("n1")
	assert.Equal(t, domain.Coordinates{X: 0, Y: 0}, domain.Coordinates{X: n1.X, Y: n1.Y})
}

func TestHistory_MarksDirty(t *testing.T) {
	s := NewState(sampleBoard())
	h := NewHistory(s)
	require.False(t, s.Dirty())

	h.Execute(RenameBoard{OldName: "Checkout", NewName: "Other"})
	assert.True(t, s.Dirty())

	rev := s.Revision()
	h.Undo()
	s.MarkSaved(rev)
	assert.True(t, s.Dirty(), "change after the save started keeps the state dirty")

	s.MarkSaved(s.Revision())
	assert.False(t, s.Dirty())
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory(NewState(sampleBoard()))
	h.Execute(RenameBoard{OldName: "Checkout", NewName: "Other"})
	h.Execute(RenameBoard{OldName: "Other", NewName: "Third"})
	h.Undo()

	undo, redo := h.Depth()
	assert.Equal(t, 1, undo)
	assert.Equal(t, 1, redo)

	h.Reset()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}
