// Package vm executes a semantically-resolved PPL program: expression
// evaluation, statement dispatch, the GOSUB return-address stack, file
// channels, keyboard buffering, and @-macro text expansion.
//
// The execution unit is a linearized Instr stream (see linearize.go) rather
// than the byte-offset bytecode spec.md describes: this VM interprets
// resolved ast nodes directly instead of running a separately emitted
// opcode stream, trading strict on-disk-bytecode fidelity for a VM that is
// directly driven by the semantic analyzer's output (see DESIGN.md's C4/C5
// entries for the scope decision). Control flow, call semantics, and value
// behavior otherwise match spec.md §4.5 exactly.
package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/icyboard/icyboard/internal/ppl/ast"
	"github.com/icyboard/icyboard/internal/ppl/semantic"
	"github.com/icyboard/icyboard/internal/ppl/value"
	"github.com/icyboard/icyboard/internal/ppl/vartable"
)

// ErrHalted is returned by Step once the VM has run an END/STOP/fallen off
// the end of the main program.
var ErrHalted = errors.New("vm: halted")

// ErrStackUnderflow is returned when a RETURN executes with no call frame
// left to pop. A RETURN in the main program with no pending GOSUB pops the
// main frame and halts the program instead.
var ErrStackUnderflow = errors.New("vm: call stack underflow")

// RuntimeError wraps a non-fatal runtime fault (spec.md §7: logged, does
// not abort the session).
type RuntimeError struct {
	Msg string
	Err error
}

func (e *RuntimeError) Error() string { return e.Msg }
func (e *RuntimeError) Unwrap() error { return e.Err }

// FatalError aborts the running script entirely.
type FatalError struct{ Msg string }

func (e *FatalError) Error() string { return e.Msg }

const maxFileChannels = 8
const maxCallDepth = 256

// callFrame is one user function/procedure activation. PPL's variable table
// allocates one static slot per parameter/local (not a fresh activation
// record per call), matching PCBoard's non-reentrant execution model — so a
// frame carries only its Program cursor and, for function/procedure
// activations, the Container whose owned slots it is executing over. GOSUB
// targets are always a label within the same body, so the return-address
// stack (gosub) is scoped to the frame rather than global.
type callFrame struct {
	prog  *Program
	pc    int
	cont  *semantic.Container
	gosub []int
}

// VM interprets one compiled PPL script end to end.
type VM struct {
	version int
	table   *vartable.Table
	conts   map[string]*semantic.Container
	refs    map[ast.Node]semantic.Reference

	mainProg *Program
	progs    map[string]*Program   // container name (upper) -> linearized body
	handles  map[int]*semantic.Container // vartable handle slot id -> container

	globals []value.Value // table.Entries[i].Value, 0-based by id-1

	frames    []*callFrame
	host      Host
	files     [maxFileChannels]*FileChannel
	kbd       KeyboardBuffer
	macros    MacroSource

	lineCount  int  // disp_options.num_lines_printed, spec.md §4.5.8
	pageLen    int  // session.page_len; <=0 disables the more-prompt entirely
	autoMore   bool // @AUTOMORE@: answer the more-prompt without waiting on a key
	nonStop    bool // set once the user answers "NS"; suppresses further prompts
	abortPrint bool // set once the user answers "N"; PRINT/PRINTLN become no-ops

	halted bool
}

// New builds a VM ready to run the main body, with every container that
// has a body linearized and indexed by its handle slot id.
func New(version int, table *vartable.Table, containers map[string]*semantic.Container, refs map[ast.Node]semantic.Reference, main []ast.Statement, host Host) *VM {
	vm := &VM{
		version: version,
		table:   table,
		conts:   containers,
		refs:    refs,
		progs:   make(map[string]*Program),
		handles: make(map[int]*semantic.Container),
		host:    host,
		pageLen: 23,
	}
	vm.globals = make([]value.Value, table.Len())
	for i, e := range table.Entries {
		vm.globals[i] = e.Value
	}
	vm.mainProg = linearize(main)
	for name, c := range containers {
		if c.Body != nil {
			vm.progs[name] = linearize(c.Body)
			vm.handles[c.HandleID] = c
		}
	}
	return vm
}

// SetGlobal writes v into the named vartable slot if (and only if) the
// compiled program actually allocated one for it — the session runtime uses
// this to bind the current user's record into whichever U_* slots the
// script ended up referencing before Run starts, without caring which
// subset of the 29 predefined names the script touched.
func (vm *VM) SetGlobal(name string, v value.Value) bool {
	id, err := vm.lookupSlotID(name)
	if err != nil {
		return false
	}
	vm.setSlot(nil, id, v)
	return true
}

// Global reads back the named vartable slot, used by tests and by the
// session runtime to observe script output written into globals.
func (vm *VM) Global(name string) (value.Value, bool) {
	id, err := vm.lookupSlotID(name)
	if err != nil {
		return value.Value{}, false
	}
	return vm.getSlot(nil, id), true
}

// SetPageLen sets the more-prompt's trigger height (session.page_len); the
// session runtime calls this before each run with the user record's page
// length (or the board default when that is not positive).
func (vm *VM) SetPageLen(n int) { vm.pageLen = n }

// ResetMoreState clears the "N" abort-printout flag and the line counter —
// spec.md §4.5.8's "no_change() at the next command boundary". Nothing
// calls it between statements: a single script may legitimately print
// past one page while composing one reply. The session runtime does not
// call it either; it builds a fresh VM for every command it runs.
func (vm *VM) ResetMoreState() {
	vm.abortPrint = false
	vm.lineCount = 0
}

// Run executes the main program to completion (END/STOP or falling off the
// end of the instruction stream).
func (vm *VM) Run() error {
	vm.frames = append(vm.frames, &callFrame{prog: vm.mainProg, pc: 0})
	for {
		err := vm.Step()
		if err == ErrHalted {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Step executes exactly one linearized instruction in the topmost frame.
func (vm *VM) Step() error {
	if vm.halted || len(vm.frames) == 0 {
		return ErrHalted
	}
	fr := vm.frames[len(vm.frames)-1]
	if fr.pc >= len(fr.prog.Instrs) {
		return vm.popFrame()
	}
	instr := fr.prog.Instrs[fr.pc]
	fr.pc++

	switch instr.Op {
	case iNop, iLabel:
		// no-op

	case iLet:
		if err := vm.execLet(instr.Node); err != nil {
			return err
		}

	case iCall:
		if err := vm.execCallNode(instr.Node); err != nil {
			return err
		}

	case iGoto:
		fr.pc = instr.Target

	case iGotoIfFalse:
		cond, err := vm.eval(instr.Node.(ast.Expression))
		if err != nil {
			return err
		}
		if !cond.ToBool() {
			fr.pc = instr.Target
		}

	case iGosub:
		if len(fr.gosub) >= maxCallDepth {
			return &FatalError{Msg: "GOSUB stack overflow"}
		}
		fr.gosub = append(fr.gosub, fr.pc)
		fr.pc = instr.Target

	case iReturn:
		return vm.execReturn(fr, instr.Node)

	case iStop, iEnd:
		vm.halted = true
		return ErrHalted
	}
	return nil
}

// popFrame runs when a frame's instruction stream is exhausted without an
// explicit RETURN (the main program ending, or a procedure/function body
// falling off its last statement).
func (vm *VM) popFrame() error {
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		vm.halted = true
		return ErrHalted
	}
	return nil
}

func (vm *VM) execReturn(fr *callFrame, node ast.Node) error {
	if len(fr.gosub) > 0 {
		// RETURN inside a GOSUB'd label block: resume just after the call.
		fr.pc = fr.gosub[len(fr.gosub)-1]
		fr.gosub = fr.gosub[:len(fr.gosub)-1]
		return nil
	}
	// RETURN from a function/procedure body: pop the call frame.
	if len(vm.frames) == 0 {
		return ErrStackUnderflow
	}
	if rs, ok := node.(*ast.ReturnStmt); ok && rs.Value != nil && fr.cont != nil && fr.cont.IsFunc {
		v, err := vm.eval(rs.Value)
		if err != nil {
			return err
		}
		vm.setSlot(fr, fr.cont.ReturnID, v)
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		vm.halted = true
		return ErrHalted
	}
	return nil
}

func (vm *VM) execLet(node ast.Node) error {
	ls, ok := node.(*ast.LetStmt)
	if !ok {
		if fs, ok := node.(*forStep); ok {
			return vm.execForStep(fs)
		}
		return fmt.Errorf("vm: bad LET node %T", node)
	}
	v, err := vm.eval(ls.Value)
	if err != nil {
		return err
	}
	return vm.assign(ls.Target, v)
}

func (vm *VM) execForStep(fs *forStep) error {
	id, err := vm.lookupSlotID(fs.Var)
	if err != nil {
		return err
	}
	fr := vm.frames[len(vm.frames)-1]
	cur := vm.getSlot(fr, id)
	step := value.NewInteger(1)
	if fs.Step != nil {
		s, err := vm.eval(fs.Step)
		if err != nil {
			return err
		}
		step = s
	}
	vm.setSlot(fr, id, value.Add(cur, step))
	return nil
}

func (vm *VM) assign(target ast.Expression, v value.Value) error {
	switch t := target.(type) {
	case *ast.Ident:
		ref, ok := vm.refs[t]
		if !ok {
			return fmt.Errorf("vm: unresolved assignment target %s", t.Name)
		}
		fr := vm.frames[len(vm.frames)-1]
		vm.setSlot(fr, ref.VarID, v)
		return nil
	case *ast.IndexExpr:
		ref, ok := vm.refs[t]
		if !ok {
			return fmt.Errorf("vm: unresolved indexed target %s", t.Name)
		}
		idx := make([]int, len(t.Args))
		for i, a := range t.Args {
			av, err := vm.eval(a)
			if err != nil {
				return err
			}
			idx[i] = int(av.ToInt64())
		}
		fr := vm.frames[len(vm.frames)-1]
		cur := vm.getSlot(fr, ref.VarID)
		if err := cur.SetIndex(v, idx...); err != nil {
			return &RuntimeError{Msg: err.Error(), Err: err}
		}
		vm.setSlot(fr, ref.VarID, cur)
		return nil
	}
	return fmt.Errorf("vm: unsupported assignment target %T", target)
}

// lookupSlotID resolves a bare name (used by the synthetic FOR-loop nodes,
// which have no semantic.Reference entry) to its vartable slot id by
// scanning the table's entry names — the table already carries every
// parameter/local/global entry the analyzer allocated.
func (vm *VM) lookupSlotID(name string) (int, error) {
	for i, e := range vm.table.Entries {
		if strings.EqualFold(e.Name, name) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("vm: unknown identifier %s", name)
}

func (vm *VM) lookupIdent(name string) (value.Value, error) {
	id, err := vm.lookupSlotID(name)
	if err != nil {
		return value.Value{}, err
	}
	var fr *callFrame
	if len(vm.frames) > 0 {
		fr = vm.frames[len(vm.frames)-1]
	}
	return vm.getSlot(fr, id), nil
}

func (vm *VM) getSlot(fr *callFrame, id int) value.Value {
	_ = fr
	if id < 1 || id > len(vm.globals) {
		return value.Value{}
	}
	return vm.globals[id-1]
}

func (vm *VM) setSlot(fr *callFrame, id int, v value.Value) {
	_ = fr
	if id < 1 {
		return
	}
	if id > len(vm.globals) {
		grown := make([]value.Value, id)
		copy(grown, vm.globals)
		vm.globals = grown
	}
	vm.globals[id-1] = v
}
