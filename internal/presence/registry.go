package presence

import (
	"sync"

	"eventstorming-sync-server/internal/domain"
)

// Registry maps each board to the participants currently joined to its live
// session. One Registry lives for the whole server process; every method is
// safe for concurrent use. A board's group is created by its first join and
// dropped when its last participant leaves.
type Registry struct {
	mu     sync.RWMutex
	boards map[string]*group
}

type group struct {
	members map[string]domain.Participant
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{
		boards: make(map[string]*group),
	}
}

// Join adds p to its board. A participant whose ConnectionID is already
// present keeps its original entry.
//
// deliver receives the full member list, joiner included, and runs while the
// registry is locked: anything it enqueues for the joiner is ordered before
// any broadcast whose membership snapshot already contains the joiner. It
// must not block or call back into the registry.
//
// Join returns the other members, who should hear about the join.
func (r *Registry) Join(p domain.Participant, deliver func(members []domain.Participant)) []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.boards[p.BoardID]
	if !ok {
		g = &group{members: make(map[string]domain.Participant)}
		r.boards[p.BoardID] = g
	}

	if _, exists := g.members[p.ConnectionID]; !exists {
		g.members[p.ConnectionID] = p
		g.order = append(g.order, p.ConnectionID)
	}

	if deliver != nil {
		deliver(g.list(""))
	}
	return g.list(p.ConnectionID)
}

// Leave removes the connection from the board and returns the remaining
// members. ok is false when the connection was not joined.
func (r *Registry) Leave(boardID, connectionID string) (remaining []domain.Participant, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.remove(boardID, connectionID)
}

// RemoveConnection drops the connection from every board it joined, keyed
// by board id with the members left behind.
func (r *Registry) RemoveConnection(connectionID string) map[string][]domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := make(map[string][]domain.Participant)
	for boardID, g := range r.boards {
		if _, ok := g.members[connectionID]; !ok {
			continue
		}
		remaining, _ := r.remove(boardID, connectionID)
		left[boardID] = remaining
	}
	return left
}

func (r *Registry) remove(boardID, connectionID string) ([]domain.Participant, bool) {
	g, ok := r.boards[boardID]
	if !ok {
		return nil, false
	}
	if _, ok := g.members[connectionID]; !ok {
		return g.list(""), false
	}

	delete(g.members, connectionID)
	for i, id := range g.order {
		if id == connectionID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	if len(g.members) == 0 {
		delete(r.boards, boardID)
		return nil, true
	}
	return g.list(""), true
}

// Members returns a snapshot of the board's participants in join order.
func (r *Registry) Members(boardID string) []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if g, ok := r.boards[boardID]; ok {
		return g.list("")
	}
	return nil
}

// Others returns a snapshot of the board's participants except one connection.
func (r *Registry) Others(boardID, connectionID string) []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if g, ok := r.boards[boardID]; ok {
		return g.list(connectionID)
	}
	return nil
}

func (r *Registry) IsMember(boardID, connectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.boards[boardID]
	if !ok {
		return false
	}
	_, ok = g.members[connectionID]
	return ok
}

// Stats returns the number of live boards and joined participants.
func (r *Registry) Stats() (boards, participants int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.boards {
		participants += len(g.members)
	}
	return len(r.boards), participants
}

func (g *group) list(exclude string) []domain.Participant {
	out := make([]domain.Participant, 0, len(g.order))
	for _, id := range g.order {
		if id == exclude {
			continue
		}
		out = append(out, g.members[id])
	}
	return out
}
