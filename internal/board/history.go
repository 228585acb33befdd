package board

// History is the per-client, per-board undo/redo record of locally
// executed commands. It is discarded when the client leaves the board.
type History struct {
	state *State
	undo  []Command
	redo  []Command
}

func NewHistory(state *State) *History {
	return &History{state: state}
}

// Execute applies cmd, records it for undo and forgets any undone future.
func (h *History) Execute(cmd Command) {
	cmd.Apply(h.state)
	h.undo = append(h.undo, cmd)
	h.redo = nil
	h.state.MarkDirty()
}

// Undo reverts the most recent command and returns it so the caller can
// broadcast it. ok is false when there is nothing to undo.
func (h *History) Undo() (cmd Command, ok bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	cmd = h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	cmd.Revert(h.state)
	h.redo = append(h.redo, cmd)
	h.state.MarkDirty()
	return cmd, true
}

func (h *History) Redo() (cmd Command, ok bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	cmd = h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	cmd.Apply(h.state)
	h.undo = append(h.undo, cmd)
	h.state.MarkDirty()
	return cmd, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}
