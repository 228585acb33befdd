package domain

type NoteType string

const (
	NoteTypeEvent          NoteType = "event"
	NoteTypeCommand        NoteType = "command"
	NoteTypeAggregate      NoteType = "aggregate"
	NoteTypeUser           NoteType = "user"
	NoteTypePolicy         NoteType = "policy"
	NoteTypeReadModel      NoteType = "readModel"
	NoteTypeExternalSystem NoteType = "externalSystem"
	NoteTypeConcern        NoteType = "concern"
)

// Interactive resize refuses to go below these. Programmatic commands ignore them.
const (
	MinNoteWidth  = 50.0
	MinNoteHeight = 30.0
)

var noteColors = map[NoteType]string{
	NoteTypeEvent:          "#fdb634",
	NoteTypeCommand:        "#61c4fd",
	NoteTypeAggregate:      "#f8fb1d",
	NoteTypeUser:           "#ffffc5",
	NoteTypePolicy:         "#df89df",
	NoteTypeReadModel:      "#90f179",
	NoteTypeExternalSystem: "#f5bee7",
	NoteTypeConcern:        "#f50532",
}

// DefaultColor returns the presentation colour for a note type, white when unknown.
func DefaultColor(t NoteType) string {
	if c, ok := noteColors[t]; ok {
		return c
	}
	return "#ffffff"
}

// DefaultSize returns the width and height a freshly placed note of type t gets.
func DefaultSize(t NoteType) (float64, float64) {
	if t == NoteTypeUser {
		return 60, 60
	}
	return 120, 120
}

type Board struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Notes       []Note       `json:"notes"`
	Connections []Connection `json:"connections"`
}

type Note struct {
	ID     string   `json:"id" validate:"required"`
	Text   string   `json:"text"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Color  string   `json:"color"`
	Type   NoteType `json:"type,omitempty"`
}

// Size returns the note's geometry.
func (n Note) Size() NoteSize {
	return NoteSize{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

type Connection struct {
	FromNoteID string `json:"from_note_id" validate:"required"`
	ToNoteID   string `json:"to_note_id" validate:"required"`
}

type NoteSize struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClampInteractiveSize keeps a size produced by a drag gesture above the
// minimums, holding the previous edge when the gesture would cross them.
func ClampInteractiveSize(prev, next NoteSize) NoteSize {
	if next.Width <= MinNoteWidth {
		next.X = prev.X
		next.Width = prev.Width
	}
	if next.Height <= MinNoteHeight {
		next.Y = prev.Y
		next.Height = prev.Height
	}
	return next
}

type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type NoteMove struct {
	NoteID      string      `json:"note_id"`
	Coordinates Coordinates `json:"coordinates"`
}

type BoardSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateBoardRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type UpdateBoardRequest struct {
	Name        string       `json:"name"`
	Notes       []Note       `json:"notes" validate:"dive"`
	Connections []Connection `json:"connections" validate:"dive"`
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	out := &Board{ID: b.ID, Name: b.Name}
	out.Notes = append([]Note{}, b.Notes...)
	out.Connections = append([]Connection{}, b.Connections...)
	return out
}

// Summary returns the id/name pair listed for the board.
func (b *Board) Summary() BoardSummary {
	return BoardSummary{ID: b.ID, Name: b.Name}
}
