package vm

import (
	"strings"

	"github.com/icyboard/icyboard/internal/ppl/ast"
)

// Instr is one linearized execution step. Nested control-flow statements
// (IF/WHILE/FOR) are compiled down to a flat list of instructions addressed
// by index — the Go analogue of spec.md's byte-offset program counter, with
// an instruction index standing in for a byte offset since the VM here
// interprets resolved AST nodes rather than an emitted bytecode stream (see
// DESIGN.md's C5 entry).
type Instr struct {
	Op     InstrOp
	Node   ast.Node // the originating statement/expression, for Call/Let/Return/cond
	Target int      // jump destination instruction index (Goto/GotoIfFalse)
	Label  string    // resolved at patch time, empty afterward
}

type InstrOp int

const (
	iNop InstrOp = iota
	iLet
	iCall
	iGoto
	iGotoIfFalse
	iGosub
	iReturn
	iStop
	iEnd
	iLabel // marker only: indexed into Program.Labels, a no-op when stepped
)

// Program is one container's (or the main script's) linearized body.
type Program struct {
	Instrs []Instr
	Labels map[string]int
}

// linearizer lowers a nested ast.Statement list into a flat Program,
// tracking enclosing loop targets for BREAK/CONTINUE.
type linearizer struct {
	out       []Instr
	loopBreak []int // indices of iGoto placeholders to patch to "after loop"
	loopCont  []int // indices of iGoto placeholders to patch to "loop continue point"
}

func linearize(body []ast.Statement) *Program {
	lz := &linearizer{}
	for _, s := range body {
		lz.stmt(s)
	}
	prog := &Program{Instrs: lz.out, Labels: map[string]int{}}
	for i, instr := range prog.Instrs {
		if instr.Op == iLabel {
			prog.Labels[strings.ToUpper(instr.Label)] = i
		}
	}
	// Patch GOTO/GOSUB targets that reference labels by name (forward refs
	// are common: PPL scripts routinely GOTO a label declared later).
	for i := range prog.Instrs {
		instr := &prog.Instrs[i]
		if (instr.Op == iGoto || instr.Op == iGosub || instr.Op == iGotoIfFalse) && instr.Label != "" {
			if idx, ok := prog.Labels[strings.ToUpper(instr.Label)]; ok {
				instr.Target = idx
			}
			instr.Label = ""
		}
	}
	return prog
}

func (lz *linearizer) emit(i Instr) int {
	lz.out = append(lz.out, i)
	return len(lz.out) - 1
}

func (lz *linearizer) stmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.LabelStmt:
		lz.emit(Instr{Op: iLabel, Label: st.Name})
	case *ast.LetStmt:
		lz.emit(Instr{Op: iLet, Node: st})
	case *ast.CallStmt:
		lz.emit(Instr{Op: iCall, Node: st})
	case *ast.ExprStmt:
		lz.emit(Instr{Op: iCall, Node: st})
	case *ast.GotoStmt:
		lz.emit(Instr{Op: iGoto, Label: st.Label})
	case *ast.GosubStmt:
		lz.emit(Instr{Op: iGosub, Label: st.Label})
	case *ast.ReturnStmt:
		lz.emit(Instr{Op: iReturn, Node: st})
	case *ast.StopStmt:
		lz.emit(Instr{Op: iStop})
	case *ast.EndStmt:
		lz.emit(Instr{Op: iEnd})
	case *ast.BreakStmt:
		idx := lz.emit(Instr{Op: iGoto})
		lz.loopBreak = append(lz.loopBreak, idx)
	case *ast.ContinueStmt:
		idx := lz.emit(Instr{Op: iGoto})
		lz.loopCont = append(lz.loopCont, idx)
	case *ast.IfStmt:
		lz.ifStmt(st)
	case *ast.WhileStmt:
		lz.whileStmt(st)
	case *ast.ForStmt:
		lz.forStmt(st)
	case *ast.VarDecl:
		// Local declarations carry no runtime behavior; their slots were
		// already allocated by the semantic analyzer.
	}
}

func (lz *linearizer) ifStmt(st *ast.IfStmt) {
	// IF cond GOTO elseTarget; then-body; GOTO end; elseTarget: elseif/else chain; end:
	var endJumps []int

	branchFalse := lz.emit(Instr{Op: iGotoIfFalse, Node: st.Cond})
	for _, b := range st.Then {
		lz.stmt(b)
	}
	endJumps = append(endJumps, lz.emit(Instr{Op: iGoto}))
	lz.out[branchFalse].Target = len(lz.out)

	for _, ei := range st.ElseIfs {
		branch := lz.emit(Instr{Op: iGotoIfFalse, Node: ei.Cond})
		for _, b := range ei.Body {
			lz.stmt(b)
		}
		endJumps = append(endJumps, lz.emit(Instr{Op: iGoto}))
		lz.out[branch].Target = len(lz.out)
	}

	for _, b := range st.Else {
		lz.stmt(b)
	}

	end := len(lz.out)
	for _, j := range endJumps {
		lz.out[j].Target = end
	}
}

func (lz *linearizer) whileStmt(st *ast.WhileStmt) {
	checkPos := len(lz.out)
	exitBranch := lz.emit(Instr{Op: iGotoIfFalse, Node: st.Cond})

	savedBreak, savedCont := lz.loopBreak, lz.loopCont
	lz.loopBreak, lz.loopCont = nil, nil

	for _, b := range st.Body {
		lz.stmt(b)
	}

	contTarget := len(lz.out)
	lz.emit(Instr{Op: iGoto, Target: checkPos})
	end := len(lz.out)
	lz.out[exitBranch].Target = end

	for _, idx := range lz.loopBreak {
		lz.out[idx].Target = end
	}
	for _, idx := range lz.loopCont {
		lz.out[idx].Target = contTarget
	}
	lz.loopBreak, lz.loopCont = savedBreak, savedCont
}

// forStmt lowers FOR var = from TO to [STEP step] ... NEXT to an
// initialize/check/body/increment/jump-back sequence. ForCond/ForStep nodes
// are synthesized so the VM's expression evaluator can reuse the ordinary
// BinaryExpr-style comparison without a dedicated FOR-specific opcode.
func (lz *linearizer) forStmt(st *ast.ForStmt) {
	lz.emit(Instr{Op: iLet, Node: &ast.LetStmt{
		Tok:    st.Tok,
		Target: &ast.Ident{Tok: st.Tok, Name: st.Var},
		Value:  st.From,
	}})

	checkPos := len(lz.out)
	cond := &forCond{Var: st.Var, To: st.To, Step: st.Step}
	exitBranch := lz.emit(Instr{Op: iGotoIfFalse, Node: cond})

	savedBreak, savedCont := lz.loopBreak, lz.loopCont
	lz.loopBreak, lz.loopCont = nil, nil

	for _, b := range st.Body {
		lz.stmt(b)
	}

	contTarget := len(lz.out)
	lz.emit(Instr{Op: iLet, Node: &forStep{Var: st.Var, Step: st.Step}})
	lz.emit(Instr{Op: iGoto, Target: checkPos})
	end := len(lz.out)
	lz.out[exitBranch].Target = end

	for _, idx := range lz.loopBreak {
		lz.out[idx].Target = end
	}
	for _, idx := range lz.loopCont {
		lz.out[idx].Target = contTarget
	}
	lz.loopBreak, lz.loopCont = savedBreak, savedCont
}

// forCond is a synthetic AST node (implements ast.Expression) evaluated by
// the VM as "step >= 0 ? var <= to : var >= to".
type forCond struct {
	Var  string
	To   ast.Expression
	Step ast.Expression
}

func (c *forCond) expressionNode()      {}
func (c *forCond) TokenLiteral() string { return "FOR" }
func (c *forCond) String() string       { return "FOR-COND " + c.Var }

// forStep is a synthetic LetStmt-equivalent: var = var + step (step
// defaults to 1 when nil).
type forStep struct {
	Var  string
	Step ast.Expression
}

func (s *forStep) statementNode()      {}
func (s *forStep) TokenLiteral() string { return "FOR" }
func (s *forStep) String() string       { return "FOR-STEP " + s.Var }
