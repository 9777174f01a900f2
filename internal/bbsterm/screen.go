// Package bbsterm renders a PPL session's output onto a real connection
// while mirroring every write into two virtual screens (spec.md §3.5, §6.3):
// one for the caller, one a sysop can attach to mid-session and see the
// exact column/attribute state the caller sees. Terminal implements
// internal/ppl/vm's Host interface, translating PRINT/CLS/ANSIPOS/COLOR
// into the byte sequences appropriate for the session's GraphicsMode.
package bbsterm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

// GraphicsMode selects how Terminal renders cursor/color operations.
// Ansi is the default a fresh session starts in (original_source's
// NodeState.graphics_mode default).
type GraphicsMode int

const (
	Ctty GraphicsMode = iota
	Ansi
	Graphics
	Avatar
	Rip
)

func (m GraphicsMode) String() string {
	switch m {
	case Ctty:
		return "CTTY"
	case Ansi:
		return "ANSI"
	case Graphics:
		return "GRAPHICS"
	case Avatar:
		return "AVATAR"
	case Rip:
		return "RIP"
	default:
		return "UNKNOWN"
	}
}

// TerminalTarget selects which live connection(s) a write reaches; the
// virtual screens always record the write regardless of target, so a sysop
// who attaches mid-session sees a consistent scrollback.
type TerminalTarget int

const (
	User TerminalTarget = iota
	Sysop
	Both
)

// VirtualScreen tracks one observer's view of the session: the cursor
// column after everything written so far (FRESHLINE's Column() source) and
// a bounded scrollback a sysop "snoop" can render.
type VirtualScreen struct {
	mu      sync.Mutex
	col     int
	history bytes.Buffer
}

const maxScrollback = 64 << 10

func (s *VirtualScreen) write(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Write(b)
	if over := s.history.Len() - maxScrollback; over > 0 {
		s.history.Next(over)
	}
	if idx := bytes.LastIndexByte(b, '\n'); idx >= 0 {
		s.col = len(b) - idx - 1
	} else {
		s.col += len(b)
	}
}

// Column reports the 0-based cursor column.
func (s *VirtualScreen) Column() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col
}

// Snoop returns the current scrollback contents, for a sysop SNOOP command.
func (s *VirtualScreen) Snoop() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.String()
}

// Terminal is one node's live connection plus its mirrored screens. It
// implements internal/ppl/vm.Host.
type Terminal struct {
	Mode GraphicsMode

	User  *VirtualScreen
	Sysop *VirtualScreen

	conn      io.Writer
	kbd       *bufio.Reader
	sysopMu   sync.Mutex
	sysopConn io.Writer // nil unless a sysop has attached live
}

// New builds a Terminal over a caller's connection; kbd supplies keyboard
// input (ReadLine/ReadKey), conn the outbound byte stream.
func New(mode GraphicsMode, conn io.Writer, kbd io.Reader) *Terminal {
	return &Terminal{
		Mode:  mode,
		User:  &VirtualScreen{},
		Sysop: &VirtualScreen{},
		conn:  conn,
		kbd:   bufio.NewReader(kbd),
	}
}

// AttachSysop routes subsequent Both/Sysop-targeted writes to w as well,
// used when a sysop issues a local SNOOP/chat-join on this node.
func (t *Terminal) AttachSysop(w io.Writer) {
	t.sysopMu.Lock()
	t.sysopConn = w
	t.sysopMu.Unlock()
}

// DetachSysop stops mirroring to the sysop's live connection (the virtual
// screen keeps recording regardless).
func (t *Terminal) DetachSysop() {
	t.sysopMu.Lock()
	t.sysopConn = nil
	t.sysopMu.Unlock()
}

// writeTo mirrors b into both virtual screens unconditionally, then sends
// it to whichever live connection(s) target selects.
func (t *Terminal) writeTo(target TerminalTarget, b []byte) error {
	t.User.write(b)
	t.Sysop.write(b)

	if target != Sysop {
		if _, err := t.conn.Write(b); err != nil {
			return err
		}
	}
	if target != User {
		t.sysopMu.Lock()
		sc := t.sysopConn
		t.sysopMu.Unlock()
		if sc != nil {
			if _, err := sc.Write(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- internal/ppl/vm.Host ---------------------------------------------

func (t *Terminal) Print(s string) error { return t.writeTo(Both, []byte(s)) }
func (t *Terminal) Newline() error       { return t.writeTo(Both, []byte("\r\n")) }
func (t *Terminal) Column() int          { return t.User.Column() }

func (t *Terminal) ReadLine(echo bool) (string, error) {
	line, err := t.kbd.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err == io.EOF && line != "" {
		err = nil
	}
	if echo {
		t.writeTo(Both, []byte(line))
		t.Newline()
	}
	return line, err
}

func (t *Terminal) ReadKey() (byte, error) { return t.kbd.ReadByte() }

func (t *Terminal) Bell() { t.writeTo(Both, []byte{0x07}) }

func (t *Terminal) Cls() error {
	switch t.Mode {
	case Ansi, Graphics, Rip:
		return t.writeTo(Both, []byte("\x1B[2J\x1B[H"))
	case Avatar:
		return t.writeTo(Both, []byte{0x0C})
	default:
		return nil
	}
}

func (t *Terminal) ClearEOL() error {
	switch t.Mode {
	case Ansi, Graphics, Rip:
		return t.writeTo(Both, []byte("\x1B[K"))
	default:
		return nil
	}
}

// GotoXY implements ANSIPOS: 1-based column/row, matching the opcode's PPL
// argument convention and the original `\x1B[{y};{x}H` sequence.
func (t *Terminal) GotoXY(x, y int) error {
	switch t.Mode {
	case Ansi, Graphics, Rip:
		return t.writeTo(Both, []byte(fmt.Sprintf("\x1B[%d;%dH", y, x)))
	default:
		return nil
	}
}

// MoveCursor implements BACKUP (negative n) / FORWARD (positive n).
func (t *Terminal) MoveCursor(n int) error {
	if n == 0 {
		return nil
	}
	switch t.Mode {
	case Ansi, Graphics, Rip:
		dir, amount := byte('C'), n
		if n < 0 {
			dir, amount = 'D', -n
		}
		return t.writeTo(Both, []byte(fmt.Sprintf("\x1B[%d%c", amount, dir)))
	default:
		return nil
	}
}

// SetColor implements COLOR/DEFCOLOR/@Xhh: attr is a PCBoard color byte,
// low nibble foreground (0-15, 8-15 meaning bold), high nibble background
// (0-7).
func (t *Terminal) SetColor(attr int) error {
	switch t.Mode {
	case Ansi, Graphics, Rip:
		return t.writeTo(Both, []byte(ansiSGR(attr)))
	case Avatar:
		return t.writeTo(Both, []byte{0x16, 0x01, byte(attr)})
	default:
		return nil
	}
}

func ansiSGR(attr int) string {
	fg := attr & 0x0F
	bg := (attr >> 4) & 0x07
	bold := ""
	if fg >= 8 {
		bold = "1;"
		fg -= 8
	}
	return fmt.Sprintf("\x1B[0;%s%d;%dm", bold, 30+fg, 40+bg)
}
