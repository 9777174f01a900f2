// Package icylog is a small leveled, colorized-when-a-TTY logger in the
// go-ethereum "log" tradition: Trace/Debug/Info/Warn/Error/Crit take a
// message plus alternating key/value context pairs. Warn and above resolve
// and print the calling frame (github.com/go-stack/stack) since those are
// the levels worth finding in a scrollback buffer; Trace/Debug/Info stay
// cheap and frame-free.
package icylog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level orders the six severities from most to least chatty.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO ", "WARN ", "ERROR", "CRIT "}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "?????"
}

var levelColor = [...]*color.Color{
	LevelTrace: color.New(color.FgHiBlack),
	LevelDebug: color.New(color.FgBlue),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelCrit:  color.New(color.FgWhite, color.BgRed, color.Bold),
}

// Logger is a minimal leveled sink. The package-level functions below log
// through a shared default instance; cmd/icyboard constructs a separate
// Logger and hands it to bbssession.New for the session's own output.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	color    bool
}

// New builds a Logger writing to w. If w is os.Stdout/os.Stderr and that
// stream is a terminal, output is colorized and wrapped through
// go-colorable so ANSI codes render on Windows consoles too.
func New(w io.Writer, minLevel Level) *Logger {
	useColor := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = colorable.NewColorable(f)
		useColor = true
	}
	return &Logger{out: w, minLevel: minLevel, color: useColor}
}

func (l *Logger) log(level Level, skip int, msg string, ctx ...interface{}) {
	if level < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05")
	levelStr := level.String()
	if l.color {
		levelStr = levelColor[level].Sprint(levelStr)
	}

	var frame string
	if level >= LevelWarn {
		c := stack.Caller(skip)
		frame = fmt.Sprintf(" %v", c)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]%s %s", ts, levelStr, frame, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", ctx[i], ctx[i+1])
	}
	sb.WriteByte('\n')
	l.out.Write([]byte(sb.String()))
}

func (l *Logger) Trace(msg string, ctx ...interface{}) { l.log(LevelTrace, 2, msg, ctx...) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LevelDebug, 2, msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LevelInfo, 2, msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LevelWarn, 2, msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LevelError, 2, msg, ctx...) }
func (l *Logger) Crit(msg string, ctx ...interface{})  { l.log(LevelCrit, 2, msg, ctx...) }

var std = New(os.Stderr, LevelInfo)

// SetDefault replaces the package-level default Logger that the
// package-level Trace..Crit functions write through.
func SetDefault(l *Logger) { std = l }

func Trace(msg string, ctx ...interface{}) { std.log(LevelTrace, 2, msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { std.log(LevelDebug, 2, msg, ctx...) }
func Info(msg string, ctx ...interface{})  { std.log(LevelInfo, 2, msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { std.log(LevelWarn, 2, msg, ctx...) }
func Error(msg string, ctx ...interface{}) { std.log(LevelError, 2, msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { std.log(LevelCrit, 2, msg, ctx...) }
