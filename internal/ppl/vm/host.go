package vm

import (
	"bufio"
	"io"
	"strings"
)

// Host is the terminal/session side of the VM: every predefined procedure
// that touches the user's screen or keyboard goes through this interface so
// the VM package itself stays free of terminal/ANSI/session concerns — the
// session runtime (internal/bbsterm, internal/bbssession) supplies the real
// implementation; tests supply an in-memory stub.
type Host interface {
	// Print writes s to the terminal exactly as given (CP437/ANSI bytes
	// already resolved by the caller).
	Print(s string) error
	// Newline emits a CR/LF pair and resets the column tracker.
	Newline() error
	// Column reports the current cursor column (0-based), used by
	// FRESHLINE to decide whether a newline is needed.
	Column() int
	// ReadLine blocks for one line of keyboard input (echoed per echo).
	ReadLine(echo bool) (string, error)
	// ReadKey blocks for a single keystroke.
	ReadKey() (byte, error)
	// Bell sounds the terminal bell (used by SOUND/BEEP).
	Bell()
	// Cls clears the screen.
	Cls() error
	// ClearEOL clears from the cursor to the end of the current line.
	ClearEOL() error
	// GotoXY positions the cursor (1-based, matching ANSIPOS's PPL args).
	GotoXY(x, y int) error
	// MoveCursor shifts the cursor left (negative n) or right (positive n)
	// by n columns, used by BACKUP/FORWARD.
	MoveCursor(n int) error
	// SetColor sets the current display attribute (PCBoard color byte:
	// low nibble foreground, high nibble background).
	SetColor(attr int) error
}

// FileChannel wraps one open FOPEN/FCREATE/FAPPEND file with the line
// buffering FGET/FPUT/FREAD/FWRITE need.
type FileChannel struct {
	f      io.ReadWriteCloser
	r      *bufio.Reader
	eof    bool
	name   string
	access int // 0=read, 1=write/create, 2=append
}

// NewFileChannel wraps an already-opened file handle (the session runtime
// resolves PPL's relative path conventions before opening).
func NewFileChannel(name string, f io.ReadWriteCloser, access int) *FileChannel {
	return &FileChannel{f: f, r: bufio.NewReader(f), name: name, access: access}
}

func (fc *FileChannel) Close() error {
	if fc == nil || fc.f == nil {
		return nil
	}
	return fc.f.Close()
}

// ReadLine implements FGET: one CRLF/LF-terminated line, sans terminator.
func (fc *FileChannel) ReadLine() (string, error) {
	line, err := fc.r.ReadString('\n')
	if err == io.EOF {
		fc.eof = true
		if line == "" {
			return "", io.EOF
		}
		err = nil
	} else if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (fc *FileChannel) WriteLine(s string) error {
	_, err := fc.f.Write([]byte(s + "\r\n"))
	return err
}

func (fc *FileChannel) Write(s string) error {
	_, err := fc.f.Write([]byte(s))
	return err
}

func (fc *FileChannel) EOF() bool { return fc.eof }

// KeyboardBuffer implements KBDSTUFF/KBDSTRING's pushback queue: text queued
// ahead of live keystrokes, drained first by ReadLine/ReadKey.
type KeyboardBuffer struct {
	pending []byte
}

func (k *KeyboardBuffer) Stuff(s string)  { k.pending = append(k.pending, []byte(s)...) }
func (k *KeyboardBuffer) Empty() bool     { return len(k.pending) == 0 }
func (k *KeyboardBuffer) Flush()          { k.pending = nil }

// TakeLine drains a buffered line (up to the first newline, or everything if
// none), returning ok=false if the buffer is empty.
func (k *KeyboardBuffer) TakeLine() (string, bool) {
	if len(k.pending) == 0 {
		return "", false
	}
	if idx := strings.IndexByte(string(k.pending), '\n'); idx >= 0 {
		line := string(k.pending[:idx])
		k.pending = k.pending[idx+1:]
		return line, true
	}
	line := string(k.pending)
	k.pending = nil
	return line, true
}

func (k *KeyboardBuffer) TakeKey() (byte, bool) {
	if len(k.pending) == 0 {
		return 0, false
	}
	b := k.pending[0]
	k.pending = k.pending[1:]
	return b, true
}
