package domain

// Participant is one connection's membership in a board's live session.
// Two participants are the same entry when their ConnectionID matches,
// whatever the UserName says.
type Participant struct {
	BoardID      string `json:"board_id"`
	ConnectionID string `json:"connection_id"`
	UserName     string `json:"user_name"`
}

func (p Participant) Same(other Participant) bool {
	return p.ConnectionID == other.ConnectionID
}
