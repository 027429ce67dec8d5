package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndLookup(t *testing.T) {
	table := NewTable[string]()

	_, ok := table.Lookup("alice")
	assert.False(t, ok)

	table.Record("alice", "c1", "conn-1")
	conn, ok := table.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-1", conn)
}

func TestLastConnectWins(t *testing.T) {
	table := NewTable[string]()

	for i := 1; i <= 5; i++ {
		table.Record("alice", fmt.Sprintf("c%d", i), fmt.Sprintf("conn-%d", i))
	}

	conn, ok := table.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-5", conn)
	assert.Equal(t, 1, table.Len())
}

func TestRemoveMissingIsNoop(t *testing.T) {
	table := NewTable[string]()
	assert.False(t, table.Remove("ghost", "c1"))
	assert.Empty(t, table.OnlineUserIDs())
}

func TestRemoveMatchingConnection(t *testing.T) {
	table := NewTable[string]()
	table.Record("alice", "c1", "conn-1")

	assert.True(t, table.Remove("alice", "c1"))
	_, ok := table.Lookup("alice")
	assert.False(t, ok)
}

func TestStaleDisconnectKeepsNewerConnection(t *testing.T) {
	table := NewTable[string]()
	table.Record("alice", "c1", "conn-1")
	table.Record("alice", "c2", "conn-2")

	// c1 closes late, after c2 already replaced it.
	assert.False(t, table.Remove("alice", "c1"))

	conn, ok := table.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-2", conn)
	assert.Equal(t, []string{"alice"}, table.OnlineUserIDs())
}

func TestOnlineUserIDsSorted(t *testing.T) {
	table := NewTable[int]()
	table.Record("carol", "c3", 3)
	table.Record("alice", "c1", 1)
	table.Record("bob", "c2", 2)

	assert.Equal(t, []string{"alice", "bob", "carol"}, table.OnlineUserIDs())
}

func TestReset(t *testing.T) {
	table := NewTable[int]()
	table.Record("alice", "c1", 1)
	table.Reset()
	assert.Equal(t, 0, table.Len())
}

func TestConcurrentChurn(t *testing.T) {
	table := NewTable[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i%10)
			conn := fmt.Sprintf("c%d", i)
			table.Record(user, conn, i)
			table.Lookup(user)
			table.OnlineUserIDs()
			table.Remove(user, conn)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, table.Len(), 10)
}
