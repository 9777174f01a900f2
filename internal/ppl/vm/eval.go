package vm

import (
	"fmt"

	"github.com/icyboard/icyboard/internal/ppl/ast"
	"github.com/icyboard/icyboard/internal/ppl/semantic"
	"github.com/icyboard/icyboard/internal/ppl/token"
	"github.com/icyboard/icyboard/internal/ppl/value"
)

func (vm *VM) eval(e ast.Expression) (value.Value, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return value.NewInteger(int32(ex.Value)), nil
	case *ast.MoneyLit:
		return value.NewMoney(int32(ex.Cents)), nil
	case *ast.StringLit:
		return value.NewString(ex.Value), nil
	case *ast.Ident:
		return vm.evalIdent(ex)
	case *ast.IndexExpr:
		return vm.evalIndex(ex)
	case *ast.CallExpr:
		return vm.evalCall(ex)
	case *ast.BinaryExpr:
		return vm.evalBinary(ex)
	case *ast.UnaryExpr:
		return vm.evalUnary(ex)
	case *forCond:
		return vm.evalForCond(ex)
	}
	return value.Value{}, fmt.Errorf("vm: cannot evaluate %T", e)
}

func (vm *VM) evalIdent(ex *ast.Ident) (value.Value, error) {
	ref, ok := vm.refs[ex]
	if !ok {
		return vm.lookupIdent(ex.Name)
	}
	switch ref.Kind {
	case semantic.RefVariable:
		fr := vm.topFrame()
		return vm.getSlot(fr, ref.VarID), nil
	case semantic.RefPredefinedFunc:
		return vm.callPredefinedFunc(ref, nil)
	case semantic.RefFunction:
		return vm.callUserFunction(ref.VarID, nil)
	}
	return value.Value{}, fmt.Errorf("vm: %s does not resolve to a value", ex.Name)
}

func (vm *VM) topFrame() *callFrame {
	if len(vm.frames) == 0 {
		return nil
	}
	return vm.frames[len(vm.frames)-1]
}

func (vm *VM) evalIndex(ex *ast.IndexExpr) (value.Value, error) {
	ref, ok := vm.refs[ex]
	if !ok {
		return value.Value{}, fmt.Errorf("vm: unresolved array reference %s", ex.Name)
	}
	fr := vm.topFrame()
	base := vm.getSlot(fr, ref.VarID)
	idx := make([]int, len(ex.Args))
	for i, a := range ex.Args {
		v, err := vm.eval(a)
		if err != nil {
			return value.Value{}, err
		}
		idx[i] = int(v.ToInt64())
	}
	el, err := base.Index(idx...)
	if err != nil {
		return value.Value{}, &RuntimeError{Msg: err.Error(), Err: err}
	}
	return el, nil
}

func (vm *VM) evalCall(ex *ast.CallExpr) (value.Value, error) {
	ref, ok := vm.refs[ex]
	if !ok {
		return value.Value{}, fmt.Errorf("vm: unresolved call %s", ex.Name)
	}
	switch ref.Kind {
	case semantic.RefPredefinedFunc:
		return vm.callPredefinedFunc(ref, ex.Args)
	case semantic.RefFunction:
		return vm.callUserFunction(ref.VarID, ex.Args)
	case semantic.RefProcedure:
		if err := vm.callUserProcedure(ref.VarID, ex.Args); err != nil {
			return value.Value{}, err
		}
		return value.Value{}, nil
	case semantic.RefPredefinedProc:
		if err := vm.callPredefinedProc(ref, ex.Args); err != nil {
			return value.Value{}, err
		}
		return value.Value{}, nil
	}
	return value.Value{}, fmt.Errorf("vm: %s is not callable in expression position", ex.Name)
}

func (vm *VM) evalBinary(ex *ast.BinaryExpr) (value.Value, error) {
	l, err := vm.eval(ex.Left)
	if err != nil {
		return value.Value{}, err
	}
	r, err := vm.eval(ex.Right)
	if err != nil {
		return value.Value{}, err
	}
	switch ex.Op {
	case token.PLUS:
		return value.Add(l, r), nil
	case token.MINUS:
		return value.Sub(l, r), nil
	case token.STAR:
		return value.Mul(l, r), nil
	case token.SLASH:
		v, err := value.Div(l, r)
		if err != nil {
			return value.Value{}, &RuntimeError{Msg: err.Error(), Err: err}
		}
		return v, nil
	case token.PERCENT:
		v, err := value.Mod(l, r)
		if err != nil {
			return value.Value{}, &RuntimeError{Msg: err.Error(), Err: err}
		}
		return v, nil
	case token.CARET:
		return value.Pow(l, r), nil
	case token.AMP:
		return value.And(l, r), nil
	case token.PIPE:
		return value.Or(l, r), nil
	case token.EQ, token.EQEQ:
		return value.NewBoolean(value.Equal(l, r)), nil
	case token.NEQ:
		return value.NewBoolean(!value.Equal(l, r)), nil
	case token.LT:
		return value.NewBoolean(value.Compare(l, r) < 0), nil
	case token.GT:
		return value.NewBoolean(value.Compare(l, r) > 0), nil
	case token.LTE:
		return value.NewBoolean(value.Compare(l, r) <= 0), nil
	case token.GTE:
		return value.NewBoolean(value.Compare(l, r) >= 0), nil
	}
	return value.Value{}, fmt.Errorf("vm: unsupported binary operator %s", ex.Op)
}

func (vm *VM) evalUnary(ex *ast.UnaryExpr) (value.Value, error) {
	v, err := vm.eval(ex.Arg)
	if err != nil {
		return value.Value{}, err
	}
	switch ex.Op {
	case token.MINUS:
		return value.Neg(v), nil
	case token.BANG:
		return value.Not(v), nil
	case token.TILDE:
		return value.BitNot(v), nil
	case token.PLUS:
		return v, nil
	}
	return value.Value{}, fmt.Errorf("vm: unsupported unary operator %s", ex.Op)
}

// evalForCond implements "step >= 0 ? var <= to : var >= to", the PPL FOR
// loop's continuation test (spec.md §4.5's FOR/TO/STEP/NEXT semantics).
func (vm *VM) evalForCond(c *forCond) (value.Value, error) {
	id, err := vm.lookupSlotID(c.Var)
	if err != nil {
		return value.Value{}, err
	}
	cur := vm.getSlot(vm.topFrame(), id)
	to, err := vm.eval(c.To)
	if err != nil {
		return value.Value{}, err
	}
	step := value.NewInteger(1)
	if c.Step != nil {
		s, err := vm.eval(c.Step)
		if err != nil {
			return value.Value{}, err
		}
		step = s
	}
	if step.ToInt64() >= 0 {
		return value.NewBoolean(value.Compare(cur, to) <= 0), nil
	}
	return value.NewBoolean(value.Compare(cur, to) >= 0), nil
}
