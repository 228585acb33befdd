package presence

import (
	"fmt"
	"sync"
	"testing"

	"eventstorming-sync-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(board, conn, name string) domain.Participant {
	return domain.Participant{BoardID: board, ConnectionID: conn, UserName: name}
}

func TestRegistry_JoinDeliversSnapshotAndReturnsOthers(t *testing.T) {
	r := NewRegistry()
	r.Join(participant("b1", "c1", "alice"), nil)

	var delivered []domain.Participant
	others := r.Join(participant("b1", "c2", "bob"), func(members []domain.Participant) {
		delivered = members
	})

	assert.Equal(t, []domain.Participant{
		participant("b1", "c1", "alice"),
		participant("b1", "c2", "bob"),
	}, delivered)
	assert.Equal(t, []domain.Participant{participant("b1", "c1", "alice")}, others)
}

func TestRegistry_SameConnectionIsOneEntry(t *testing.T) {
	r := NewRegistry()
	r.Join(participant("b1", "c1", "alice"), nil)
	r.Join(participant("b1", "c1", "alice-renamed"), nil)

	members := r.Members("b1")
	require.Len(t, members, 1)
	assert.Equal(t, "alice", members[0].UserName)
}

func TestRegistry_LeaveDropsEmptyGroup(t *testing.T) {
	r := NewRegistry()
	r.Join(participant("b1", "c1", "alice"), nil)
	r.Join(participant("b1", "c2", "bob"), nil)

	remaining, ok := r.Leave("b1", "c1")
	require.True(t, ok)
	assert.Equal(t, []domain.Participant{participant("b1", "c2", "bob")}, remaining)

	_, ok = r.Leave("b1", "c1")
	assert.False(t, ok)

	remaining, ok = r.Leave("b1", "c2")
	require.True(t, ok)
	assert.Empty(t, remaining)

	boards, participants := r.Stats()
	assert.Zero(t, boards)
	assert.Zero(t, participants)
}

func TestRegistry_RemoveConnectionScansAllBoards(t *testing.T) {
	r := NewRegistry()
	r.Join(participant("b1", "c1", "alice"), nil)
	r.Join(participant("b1", "c2", "bob"), nil)
	r.Join(participant("b2", "c1", "alice"), nil)

	left := r.RemoveConnection("c1")

	assert.Len(t, left, 2)
	assert.Equal(t, []domain.Participant{participant("b1", "c2", "bob")}, left["b1"])
	assert.Empty(t, left["b2"])
	assert.False(t, r.IsMember("b1", "c1"))
	assert.Nil(t, r.Members("b2"))
}

func TestRegistry_Others(t *testing.T) {
	r := NewRegistry()
	r.Join(participant("b1", "c1", "alice"), nil)
	r.Join(participant("b1", "c2", "bob"), nil)
	r.Join(participant("b1", "c3", "carol"), nil)

	others := r.Others("b1", "c2")
	assert.Equal(t, []domain.Participant{
		participant("b1", "c1", "alice"),
		participant("b1", "c3", "carol"),
	}, others)
	assert.Nil(t, r.Others("missing", "c1"))
}

func TestRegistry_JoinSnapshotMatchesPriorMembers(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		joiner := participant("b1", fmt.Sprintf("c%d", i), fmt.Sprintf("user%d", i))
		before := r.Members("b1")

		var delivered []domain.Participant
		r.Join(joiner, func(members []domain.Participant) { delivered = members })

		assert.Equal(t, append(before, joiner), delivered)
	}
}

func TestRegistry_ConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			r.Join(participant("b1", conn, conn), nil)
			r.Join(participant("b1", conn, conn), nil)
			if i%2 == 0 {
				r.Leave("b1", conn)
			}
		}(i)
	}
	wg.Wait()

	members := r.Members("b1")
	assert.Len(t, members, 25)

	seen := map[string]bool{}
	for _, m := range members {
		assert.False(t, seen[m.ConnectionID], "duplicate %s", m.ConnectionID)
		seen[m.ConnectionID] = true
	}
}
