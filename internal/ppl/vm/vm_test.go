package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyboard/icyboard/internal/ppl/parser"
	"github.com/icyboard/icyboard/internal/ppl/semantic"
	"github.com/icyboard/icyboard/internal/ppl/value"
	"github.com/icyboard/icyboard/internal/ppl/vartable"
)

// memHost is a minimal in-memory Host for driving the VM in tests without a
// real terminal: Print/Newline append to a buffer, ReadLine/ReadKey serve
// from a canned queue of scripted input.
type memHost struct {
	out    strings.Builder
	col    int
	input  []string
	keys   []byte
}

func (h *memHost) Print(s string) error {
	h.out.WriteString(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		h.col = len(s) - idx - 1
	} else {
		h.col += len(s)
	}
	return nil
}

func (h *memHost) Newline() error {
	h.out.WriteString("\r\n")
	h.col = 0
	return nil
}

func (h *memHost) Column() int { return h.col }

func (h *memHost) ReadLine(echo bool) (string, error) {
	if len(h.input) == 0 {
		return "", nil
	}
	line := h.input[0]
	h.input = h.input[1:]
	return line, nil
}

func (h *memHost) ReadKey() (byte, error) {
	if len(h.keys) == 0 {
		return 0, nil
	}
	b := h.keys[0]
	h.keys = h.keys[1:]
	return b, nil
}

func (h *memHost) Bell()                        {}
func (h *memHost) Cls() error                   { return nil }
func (h *memHost) ClearEOL() error              { return nil }
func (h *memHost) GotoXY(x, y int) error        { return nil }
func (h *memHost) MoveCursor(n int) error       { return nil }
func (h *memHost) SetColor(attr int) error      { return nil }

// compileAndRun runs source through the full lexer->parser->semantic->vm
// pipeline and returns the VM (already Run to completion) and its Host.
func compileAndRun(t *testing.T, source string) (*VM, *memHost) {
	t.Helper()
	return compileWithHost(t, source, &memHost{}, nil)
}

// compileWithHost is compileAndRun with a caller-supplied Host and an
// optional configure hook run after the VM is built but before Run, so
// tests can set page length/input queues that must be in place from the
// first instruction.
func compileWithHost(t *testing.T, source string, host *memHost, configure func(*VM)) (*VM, *memHost) {
	t.Helper()
	prog, errs := parser.Parse("test.ppl", source, 340, nil)
	require.Empty(t, errs, "parse errors: %v", errs)

	an := semantic.New(340)
	table, containers := an.Analyze(prog)
	for _, d := range an.Diagnostics {
		if d.IsError {
			t.Fatalf("semantic error: %s", d)
		}
	}

	machine := New(340, table, containers, an.References, prog.Main, host)
	if configure != nil {
		configure(machine)
	}
	require.NoError(t, machine.Run())
	return machine, host
}

func TestHelloWorld(t *testing.T) {
	_, host := compileAndRun(t, `PRINT "Hello, World!"`)
	assert.Equal(t, "Hello, World!", host.out.String())
}

func TestLoopSum(t *testing.T) {
	src := "INTEGER i, s\ns = 0\nFOR i = 1 TO 10\ns = s + i\nNEXT\nPRINTLN s\n"
	_, host := compileAndRun(t, src)
	assert.Equal(t, "55\r\n", host.out.String())
}

func TestUserNamePrintsAndAllocates29Slots(t *testing.T) {
	prog, errs := parser.Parse("test.ppl", "PRINTLN U_NAME\n", 340, nil)
	require.Empty(t, errs)

	an := semantic.New(340)
	table, containers := an.Analyze(prog)

	host := &memHost{}
	machine := New(340, table, containers, an.References, prog.Main, host)
	ok := machine.SetGlobal("U_NAME", value.NewString("Alice Smith"))
	require.True(t, ok, "U_NAME slot must exist once referenced")
	require.NoError(t, machine.Run())

	assert.Equal(t, "Alice Smith\r\n", host.out.String())

	userVarCount := 0
	for _, e := range table.Entries {
		if e.Kind == vartable.UserVariable {
			userVarCount++
		}
	}
	assert.Equal(t, 29, userVarCount)
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := `FCREATE 1, "` + dir + `/t.txt", 1, 0
FPUTLN 1, "abc"
FCLOSE 1
FOPEN 1, "` + dir + `/t.txt", 0, 0
STRING s
FGET 1, s
PRINTLN s
FCLOSE 1
`
	_, host := compileAndRun(t, src)
	assert.Equal(t, "abc\r\n", host.out.String())
}

// TestMorePromptPaginatesAndHonorsNS exercises spec.md §8.3 scenario 5: a
// script prints past the page length, the more-prompt fires once, and a
// scripted "NS" reply lets the rest of the output through without
// prompting again.
func TestMorePromptPaginatesAndHonorsNS(t *testing.T) {
	src := "INTEGER i\nFOR i = 1 TO 30\nPRINTLN \"line\"\nNEXT\n"
	host := &memHost{input: []string{"NS"}}
	_, host = compileWithHost(t, src, host, func(m *VM) { m.SetPageLen(24) })

	want := strings.Repeat("line\r\n", 25) +
		"More? (Y/N/NS)\r\n" +
		strings.Repeat("line\r\n", 5)
	assert.Equal(t, want, host.out.String())
}

// TestMorePromptAbortSilencesFurtherOutput covers the "N" reply: printing
// stops until ResetMoreState is called, matching the session runtime's
// command-boundary reset rather than a per-statement one.
func TestMorePromptAbortSilencesFurtherOutput(t *testing.T) {
	src := "INTEGER i\nFOR i = 1 TO 26\nPRINTLN \"line\"\nNEXT\nPRINTLN \"tail\"\n"
	host := &memHost{input: []string{"N"}}
	machine, host := compileWithHost(t, src, host, func(m *VM) { m.SetPageLen(24) })

	want := strings.Repeat("line\r\n", 25) + "More? (Y/N/NS)\r\n"
	assert.Equal(t, want, host.out.String())

	machine.ResetMoreState()
	require.NoError(t, machine.printNewline())
	assert.Equal(t, want+"\r\n", host.out.String())
}

// TestSortProducesAscendingPermutation exercises spec.md §8.3 scenario 6:
// SORT writes a permutation of the source array's indices into the
// destination array such that the source values read back in ascending
// order through that permutation.
func TestSortProducesAscendingPermutation(t *testing.T) {
	src := `INTEGER arr(4), idx(4)
arr(0) = 5
arr(1) = 3
arr(2) = 4
arr(3) = 1
arr(4) = 2
SORT arr, idx
`
	machine, _ := compileAndRun(t, src)

	arrVal, ok := machine.Global("ARR")
	require.True(t, ok)
	idxVal, ok := machine.Global("IDX")
	require.True(t, ok)
	require.True(t, idxVal.IsArray())

	var got []int64
	for i := 0; i < 5; i++ {
		p, err := idxVal.Index(i)
		require.NoError(t, err)
		v, err := arrVal.Index(int(p.ToInt64()))
		require.NoError(t, err)
		got = append(got, v.ToInt64())
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, got)
}
