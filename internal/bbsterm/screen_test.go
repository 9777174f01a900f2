package bbsterm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClsEmitsModeAppropriateSequence(t *testing.T) {
	cases := []struct {
		mode GraphicsMode
		want string
	}{
		{Ansi, "\x1B[2J\x1B[H"},
		{Avatar, "\x0C"},
		{Ctty, ""},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		term := New(c.mode, &buf, strings.NewReader(""))
		require.NoError(t, term.Cls())
		assert.Equal(t, c.want, buf.String())
	}
}

func TestGotoXYUsesOneBasedRowColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	term := New(Ansi, &buf, strings.NewReader(""))
	require.NoError(t, term.GotoXY(10, 5))
	assert.Equal(t, "\x1B[5;10H", buf.String())
}

func TestMoveCursorDirection(t *testing.T) {
	var buf bytes.Buffer
	term := New(Ansi, &buf, strings.NewReader(""))
	require.NoError(t, term.MoveCursor(3))
	require.NoError(t, term.MoveCursor(-2))
	assert.Equal(t, "\x1B[3C\x1B[2D", buf.String())
}

func TestSetColorBoldsHighForeground(t *testing.T) {
	var buf bytes.Buffer
	term := New(Ansi, &buf, strings.NewReader(""))
	require.NoError(t, term.SetColor(0x1E)) // bg=1, fg=14 (bold cyan)
	assert.Equal(t, "\x1B[0;1;36;41m", buf.String())
}

func TestSetColorAvatarEmitsAttributeByte(t *testing.T) {
	var buf bytes.Buffer
	term := New(Avatar, &buf, strings.NewReader(""))
	require.NoError(t, term.SetColor(0x1E))
	assert.Equal(t, []byte{0x16, 0x01, 0x1E}, buf.Bytes())
}

// TestWritesMirrorIntoBothVirtualScreensRegardlessOfTarget covers spec.md
// §3.5/§6.3's requirement that both observers' screens stay consistent even
// when only one live connection receives the bytes.
func TestWritesMirrorIntoBothVirtualScreensRegardlessOfTarget(t *testing.T) {
	var userConn, sysopConn bytes.Buffer
	term := New(Ansi, &userConn, strings.NewReader(""))
	term.AttachSysop(&sysopConn)

	require.NoError(t, term.writeTo(User, []byte("hello")))

	assert.Equal(t, "hello", userConn.String())
	assert.Equal(t, "", sysopConn.String(), "Sysop-excluded target must not reach the live sysop connection")
	assert.Equal(t, "hello", term.User.Snoop())
	assert.Equal(t, "hello", term.Sysop.Snoop(), "virtual screen mirrors every write regardless of live target")
}

func TestColumnTracksLastLineLength(t *testing.T) {
	var buf bytes.Buffer
	term := New(Ansi, &buf, strings.NewReader(""))
	require.NoError(t, term.Print("abc"))
	assert.Equal(t, 3, term.Column())
	require.NoError(t, term.Print("de\r\nfg"))
	assert.Equal(t, 2, term.Column())
}

func TestReadLineEchoesWhenRequested(t *testing.T) {
	var buf bytes.Buffer
	term := New(Ansi, &buf, strings.NewReader("hello world\n"))
	line, err := term.ReadLine(true)
	require.NoError(t, err)
	assert.Equal(t, "hello world", line)
	assert.Equal(t, "hello world\r\n", buf.String())
}

func TestReadLineNoEchoLeavesConnectionUntouched(t *testing.T) {
	var buf bytes.Buffer
	term := New(Ansi, &buf, strings.NewReader("secret\n"))
	line, err := term.ReadLine(false)
	require.NoError(t, err)
	assert.Equal(t, "secret", line)
	assert.Equal(t, "", buf.String())
}

func TestDetachSysopStopsLiveMirroring(t *testing.T) {
	var userConn, sysopConn bytes.Buffer
	term := New(Ansi, &userConn, strings.NewReader(""))
	term.AttachSysop(&sysopConn)
	term.DetachSysop()

	require.NoError(t, term.Print("x"))
	assert.Equal(t, "", sysopConn.String())
}
