package bbsnode

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyboard/icyboard/internal/bbsterm"
)

func TestJoinLoginLeaveLifecycle(t *testing.T) {
	table := NewTable(2)

	n, err := table.Join(0, bbsterm.Ansi)
	require.NoError(t, err)
	assert.Equal(t, Waiting, n.Status)

	table.Login(0, "sysop")
	snap := table.Snapshot()
	assert.Equal(t, Active, snap[0].Status)
	assert.Equal(t, "sysop", snap[0].UserAlias)

	table.Leave(0)
	snap = table.Snapshot()
	assert.Equal(t, Offline, snap[0].Status)
	assert.Equal(t, "", snap[0].UserAlias)
}

func TestJoinRejectsOutOfRangeIndex(t *testing.T) {
	table := NewTable(1)
	_, err := table.Join(5, bbsterm.Ansi)
	assert.Error(t, err)
}

// TestBroadcastExcludesSenderAndDoesNotBlock exercises spec.md §4.6/§5's
// delivery guarantee: every other node receives the message, the sender
// does not, and a full inbox never stalls the broadcaster.
func TestBroadcastExcludesSenderAndDoesNotBlock(t *testing.T) {
	table := NewTable(3)
	for i := 0; i < 3; i++ {
		_, err := table.Join(i, bbsterm.Ansi)
		require.NoError(t, err)
	}

	table.Broadcast(0, Broadcast, "hi")

	select {
	case msg := <-table.nodes[1].Inbox():
		assert.Equal(t, "hi", msg.Text)
		assert.Equal(t, 0, msg.From)
	default:
		t.Fatal("node 1 should have received the broadcast")
	}

	select {
	case <-table.nodes[0].Inbox():
		t.Fatal("sender must not receive its own broadcast")
	default:
	}
}

func TestBroadcastDropsOldestWhenInboxFull(t *testing.T) {
	table := NewTable(2)
	_, err := table.Join(1, bbsterm.Ansi)
	require.NoError(t, err)

	for i := 0; i < 32; i++ {
		table.Broadcast(0, Broadcast, fmt.Sprintf("msg%d", i))
	}
	// Must not deadlock or panic; inbox capacity bounds memory regardless of
	// how many broadcasts a slow node misses, and the oldest sixteen are the
	// ones dropped.
	assert.Equal(t, 16, cap(table.nodes[1].inbox))
	require.Len(t, table.nodes[1].inbox, 16)
	msg := <-table.nodes[1].Inbox()
	assert.Equal(t, "msg16", msg.Text)
}

func TestWhosOnRendersEveryNode(t *testing.T) {
	table := NewTable(2)
	_, err := table.Join(0, bbsterm.Ansi)
	require.NoError(t, err)
	table.Login(0, "alice")

	out := table.WhosOn()
	assert.True(t, strings.Contains(out, "alice"))
	assert.True(t, strings.Contains(out, "Active"))
}
