package bbssession

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyboard/icyboard/internal/bbsconfig"
	"github.com/icyboard/icyboard/internal/bbsnode"
	"github.com/icyboard/icyboard/internal/bbsterm"
	"github.com/icyboard/icyboard/internal/bbsuser"
	"github.com/icyboard/icyboard/internal/icylog"
)

func newTestSession(t *testing.T, kbd string) (*Session, *bytes.Buffer) {
	t.Helper()
	users, err := bbsuser.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { users.Close() })

	table := bbsnode.NewTable(1)
	var out bytes.Buffer
	term := bbsterm.New(bbsterm.Ansi, &out, strings.NewReader(kbd))

	loader, err := NewLoader(340, 16)
	require.NoError(t, err)

	log := icylog.New(&bytes.Buffer{}, icylog.LevelCrit)

	sess, err := New(table, 0, bbsconfig.Defaults, users, loader, term, log)
	require.NoError(t, err)
	return sess, &out
}

// TestResolveCommandPrefersExactOverPrefix exercises spec.md §4.6's lookup
// order: an exact keyword match wins even when a prefix match also exists.
func TestResolveCommandPrefersExactOverPrefix(t *testing.T) {
	sess, _ := newTestSession(t, "")
	sess.globalCommands = []Command{
		{Keyword: "D", Action: ActionCallFunc, Func: (*Session).cmdDownload},
		{Keyword: "DOWNLOAD", Action: ActionCallFunc, Func: (*Session).cmdDownload},
	}
	cmd, ok := sess.resolveCommand("D")
	require.True(t, ok)
	assert.Equal(t, "D", cmd.Keyword)
}

// TestResolveCommandFallsBackToLegacyTable covers the legacy single-letter
// fallback once conference and global lists both miss.
func TestResolveCommandFallsBackToLegacyTable(t *testing.T) {
	sess, _ := newTestSession(t, "")
	cmd, ok := sess.resolveCommand("G")
	require.True(t, ok)
	assert.Equal(t, "G", cmd.Keyword)
}

func TestResolveCommandAmbiguousPrefixFails(t *testing.T) {
	sess, _ := newTestSession(t, "")
	sess.globalCommands = []Command{
		{Keyword: "CHAT", Action: ActionCallFunc, Func: (*Session).cmdComment},
		{Keyword: "CHECK", Action: ActionCallFunc, Func: (*Session).cmdComment},
	}
	_, ok := sess.resolveCommand("CH")
	assert.False(t, ok, "an ambiguous prefix must not resolve to either candidate")
}

func TestResolveCommandUnknownWordFails(t *testing.T) {
	sess, _ := newTestSession(t, "")
	_, ok := sess.resolveCommand("ZZZ")
	assert.False(t, ok)
}

// TestSignupThenLoginRoundTrips exercises the new-caller flow followed by a
// fresh session logging the same alias back in with the chosen password.
func TestSignupThenLoginRoundTrips(t *testing.T) {
	sess, out := newTestSession(t, "newguy\r\nswordfish\r\n")
	require.NoError(t, sess.login())
	assert.Equal(t, "newguy", sess.Alias)
	assert.True(t, sess.loggedIn)
	assert.Contains(t, out.String(), "New user")

	rec, err := sess.Users.GetUser("newguy")
	require.NoError(t, err)
	assert.NotEqual(t, "swordfish", rec.Password, "password must be hashed, not stored in clear text")
}

func TestBroadcastMessageIsDeliveredToInbox(t *testing.T) {
	sess, _ := newTestSession(t, "")
	sess.Table.Broadcast(-1, bbsnode.Broadcast, "server restarting")
	msg := <-sess.Node.Inbox()
	assert.Equal(t, bbsnode.Broadcast, msg.Kind)
	assert.Equal(t, "server restarting", msg.Text)
}

func TestMacroResolvesBoardFields(t *testing.T) {
	sess, _ := newTestSession(t, "")
	sess.Board.Name = "Test Board"
	v, ok := sess.Macro("BOARDNAME")
	require.True(t, ok)
	assert.Equal(t, "Test Board", v)

	_, ok = sess.Macro("NOTAMACRO")
	assert.False(t, ok)
}
