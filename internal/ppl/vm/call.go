package vm

import (
	"fmt"

	"github.com/icyboard/icyboard/internal/ppl/ast"
	"github.com/icyboard/icyboard/internal/ppl/semantic"
	"github.com/icyboard/icyboard/internal/ppl/value"
)

// execCallNode runs a statement-position call: a CallStmt (predefined or
// user procedure invoked with PPL's unparenthesized-argument syntax) or an
// ExprStmt wrapping a CallExpr/function call invoked for its side effect,
// its result discarded.
func (vm *VM) execCallNode(node ast.Node) error {
	switch st := node.(type) {
	case *ast.CallStmt:
		ref, ok := vm.refs[st]
		if !ok {
			return fmt.Errorf("vm: unresolved call %s", st.Name)
		}
		return vm.dispatchStatementCall(ref, st.Args)
	case *ast.ExprStmt:
		_, err := vm.eval(st.Expr)
		return err
	}
	return fmt.Errorf("vm: unsupported call node %T", node)
}

func (vm *VM) dispatchStatementCall(ref semantic.Reference, args []ast.Expression) error {
	switch ref.Kind {
	case semantic.RefPredefinedProc:
		return vm.callPredefinedProc(ref, args)
	case semantic.RefPredefinedFunc:
		_, err := vm.callPredefinedFunc(ref, args)
		return err
	case semantic.RefProcedure:
		return vm.callUserProcedure(ref.VarID, args)
	case semantic.RefFunction:
		_, err := vm.callUserFunction(ref.VarID, args)
		return err
	}
	return fmt.Errorf("vm: reference kind %d is not callable", ref.Kind)
}

// runNested pushes fr and drives Step() until fr (and everything pushed on
// top of it) has popped back off, then returns — letting a predefined
// function/procedure synchronously invoke a user routine mid-expression.
func (vm *VM) runNested(fr *callFrame) error {
	vm.frames = append(vm.frames, fr)
	depth := len(vm.frames)
	for len(vm.frames) >= depth {
		err := vm.Step()
		if err == ErrHalted {
			return ErrHalted
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bindArgs evaluates each call argument into its parameter slot, returning
// the by-reference argument expressions so the caller can copy results back
// after the body runs (spec.md's pass_flags by-reference semantics).
func (vm *VM) bindArgs(c *semantic.Container, args []ast.Expression) ([]ast.Expression, error) {
	var byRefArgs []ast.Expression
	for i, id := range c.ParamIDs {
		if i >= len(args) {
			break
		}
		v, err := vm.eval(args[i])
		if err != nil {
			return nil, err
		}
		vm.setSlot(nil, id, v)
		if i < len(c.PassByRef) && c.PassByRef[i] {
			byRefArgs = append(byRefArgs, args[i])
		} else {
			byRefArgs = append(byRefArgs, nil)
		}
	}
	return byRefArgs, nil
}

func (vm *VM) copyBackByRef(c *semantic.Container, byRefArgs []ast.Expression) error {
	for i, id := range c.ParamIDs {
		if i >= len(byRefArgs) || byRefArgs[i] == nil {
			continue
		}
		v := vm.getSlot(nil, id)
		if err := vm.assign(byRefArgs[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) callUserProcedure(handleID int, args []ast.Expression) error {
	c, ok := vm.handles[handleID]
	if !ok {
		return fmt.Errorf("vm: no procedure body for handle %d", handleID)
	}
	byRef, err := vm.bindArgs(c, args)
	if err != nil {
		return err
	}
	prog := vm.progs[upperKey(c.Name)]
	if prog == nil {
		return fmt.Errorf("vm: procedure %s has no compiled body", c.Name)
	}
	if err := vm.runNested(&callFrame{prog: prog, cont: c}); err != nil {
		return err
	}
	return vm.copyBackByRef(c, byRef)
}

func (vm *VM) callUserFunction(handleID int, args []ast.Expression) (value.Value, error) {
	c, ok := vm.handles[handleID]
	if !ok {
		return value.Value{}, fmt.Errorf("vm: no function body for handle %d", handleID)
	}
	byRef, err := vm.bindArgs(c, args)
	if err != nil {
		return value.Value{}, err
	}
	prog := vm.progs[upperKey(c.Name)]
	if prog == nil {
		return value.Value{}, fmt.Errorf("vm: function %s has no compiled body", c.Name)
	}
	if err := vm.runNested(&callFrame{prog: prog, cont: c}); err != nil {
		return value.Value{}, err
	}
	if err := vm.copyBackByRef(c, byRef); err != nil {
		return value.Value{}, err
	}
	return vm.getSlot(nil, c.ReturnID), nil
}

func upperKey(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
