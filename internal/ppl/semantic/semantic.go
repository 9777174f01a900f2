// Package semantic implements the two-phase PPL analyzer: a declare phase
// that registers every function/procedure container, and a body phase that
// resolves each identifier occurrence to a predefined function/procedure, a
// label, or a variable-table slot, emitting the table in the order spec.md
// §4.4 prescribes (handle, parameters, locals, return slot, then referenced
// globals/user-vars). No constant slots are emitted.
package semantic

import (
	"fmt"
	"strings"

	"github.com/icyboard/icyboard/internal/ppl/ast"
	"github.com/icyboard/icyboard/internal/ppl/opcodes"
	"github.com/icyboard/icyboard/internal/ppl/token"
	"github.com/icyboard/icyboard/internal/ppl/value"
	"github.com/icyboard/icyboard/internal/ppl/vartable"
)

// ReferenceKind tags what an identifier occurrence resolved to (spec.md §3.4).
type ReferenceKind int

const (
	RefNone ReferenceKind = iota
	RefPredefinedFunc
	RefPredefinedProc
	RefLabel
	RefVariable
	RefFunction
	RefProcedure
)

// Reference is the resolution result attached to one identifier occurrence.
type Reference struct {
	Kind ReferenceKind
	// Opcode is populated for RefPredefinedFunc/RefPredefinedProc.
	Opcode opcodes.Def
	// VarID is populated for RefVariable (1-based vartable slot) and for
	// RefFunction/RefProcedure (the slot holding the function/procedure
	// handle entry itself).
	VarID int
}

// Diagnostic is a compile error or warning (spec.md §7).
type Diagnostic struct {
	Pos      token.Position
	Msg      string
	IsError  bool
}

func (d Diagnostic) String() string {
	sev := "warning"
	if d.IsError {
		sev = "error"
	}
	return fmt.Sprintf("%s: %s: %s", d.Pos, sev, d.Msg)
}

// Container is a function or procedure's resolved shape: its parameter and
// local variable slots, laid out contiguously in the variable table.
type Container struct {
	Name       string
	IsFunc     bool
	HandleID   int // vartable slot of the Function/Procedure entry itself
	ReturnType token.Type
	ParamIDs   []int
	LocalIDs   []int
	ReturnID   int // 0 for procedures
	Body       []ast.Statement
	PassByRef  []bool // parallel to ParamIDs
}

// Analyzer runs the two-phase resolution and builds the resulting
// vartable.Table incrementally as it discovers referenced slots.
type Analyzer struct {
	version int

	table   []*vartable.Entry
	byName  map[string]int // variable/global name (upper) -> 1-based slot id
	consts  map[string]int // dedup key -> 1-based slot id

	labels    map[string]int // label name -> statement-index placeholder (set on first declaration)
	labelRefs map[string][]token.Position

	containers map[string]*Container // function/procedure name (upper) -> container

	References map[ast.Node]Reference

	Diagnostics []Diagnostic

	// Declared globals are named in declarePhase but not allocated a slot
	// until bodyPhase finishes: spec.md §4.4 emits per-function slot blocks
	// first, then referenced globals, then the predefined user-variable
	// block — so no global/user-var id is known while container bodies are
	// still being walked.
	globalOrder []string                     // declaration order of global keys
	globalDecl  map[string]pendingGlobal     // key -> declared type/shape
	globalRefs  map[string][]ast.Node        // key -> occurrences awaiting a slot id

	userVarsNeeded bool
	userVarRefs    map[string][]ast.Node // U_* key -> occurrences awaiting a slot id
}

// pendingGlobal is a declared-but-not-yet-allocated global variable.
type pendingGlobal struct {
	Type token.Type
	Name ast.VarName
}

func New(version int) *Analyzer {
	return &Analyzer{
		version:    version,
		byName:     make(map[string]int),
		consts:     make(map[string]int),
		labels:     make(map[string]int),
		labelRefs:  make(map[string][]token.Position),
		containers: make(map[string]*Container),
		References: make(map[ast.Node]Reference),
		globalDecl: make(map[string]pendingGlobal),
		globalRefs: make(map[string][]ast.Node),
		userVarRefs: make(map[string][]ast.Node),
	}
}

func (a *Analyzer) errorf(pos token.Position, format string, args ...any) {
	a.Diagnostics = append(a.Diagnostics, Diagnostic{Pos: pos, Msg: fmt.Sprintf(format, args...), IsError: true})
}

func (a *Analyzer) warnf(pos token.Position, format string, args ...any) {
	a.Diagnostics = append(a.Diagnostics, Diagnostic{Pos: pos, Msg: fmt.Sprintf(format, args...), IsError: false})
}

// Analyze runs both phases over prog and returns the assembled variable
// table (ready for vartable.Table.Write) plus every Container discovered.
func (a *Analyzer) Analyze(prog *ast.Program) (*vartable.Table, map[string]*Container) {
	a.declarePhase(prog)
	a.bodyPhase(prog)
	a.finalizeGlobals()
	a.finalizeUserVars()
	a.checkUnresolvedLabels()
	return &vartable.Table{Version: a.version, Entries: a.table}, a.containers
}

// ---------------------------------------------------------------------------
// Declare phase
// ---------------------------------------------------------------------------

func (a *Analyzer) declarePhase(prog *ast.Program) {
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			a.declareContainer(decl.Name, true, decl.ReturnType, decl.Params, decl.Body, decl.Tok.Pos)
		case *ast.ProcedureDecl:
			a.declareContainer(decl.Name, false, token.IDENT, decl.Params, decl.Body, decl.Tok.Pos)
		case *ast.VarDecl:
			// Global variable declarations register a name but defer slot
			// allocation until after every function/procedure body has been
			// walked: spec.md §4.4 emits per-function slot blocks first,
			// then referenced globals, so the slot id isn't known yet.
			for _, vn := range decl.Names {
				key := strings.ToUpper(vn.Name)
				if _, exists := a.globalDecl[key]; exists {
					a.warnf(decl.Tok.Pos, "redefinition of global %s", vn.Name)
					continue
				}
				a.globalDecl[key] = pendingGlobal{Type: decl.Type, Name: vn}
				a.globalOrder = append(a.globalOrder, key)
			}
		}
	}
}

// zeroValueFor builds a declared global/local's initial value (an array when
// the declaration carries literal-integer dimensions, a scalar zero value
// otherwise).
func zeroValueFor(typ token.Type, dims []ast.Expression) value.Value {
	kind := tokenTypeToValueKind(typ)
	if len(dims) == 0 {
		return value.ZeroOf(kind)
	}
	sizes := make([]int, len(dims))
	for i, d := range dims {
		if lit, ok := d.(*ast.IntLit); ok {
			sizes[i] = int(lit.Value)
		}
	}
	arr, err := value.NewArray(kind, sizes...)
	if err != nil {
		return value.ZeroOf(kind)
	}
	return arr
}

// finalizeGlobals allocates one slot per referenced global, in declaration
// order, then patches every deferred identifier occurrence with its id
// (spec.md §4.4: "append referenced global variables" after every
// function/procedure's own slot block).
func (a *Analyzer) finalizeGlobals() {
	for _, key := range a.globalOrder {
		nodes, referenced := a.globalRefs[key]
		if !referenced {
			continue
		}
		pg := a.globalDecl[key]
		id := len(a.table) + 1
		entry := &vartable.Entry{
			Header: vartable.Header{ID: id, Dim: uint8(len(pg.Name.Dims)), VariableType: vartable.VariableType(tokenTypeToValueKind(pg.Type))},
			Name:   pg.Name.Name,
			Kind:   vartable.Constant,
			Value:  zeroValueFor(pg.Type, pg.Name.Dims),
		}
		a.table = append(a.table, entry)
		a.byName[key] = id
		entry.ReportUsage()
		for _, node := range nodes {
			a.References[node] = Reference{Kind: RefVariable, VarID: id}
		}
	}
}

// finalizeUserVars allocates the full predefined U_* block (version-gated,
// canonical order) the first time any script statement references one of
// them, then patches every deferred occurrence (spec.md §8.3 scenario 3:
// one reference brings in the whole 29-slot block, not just the slot used).
func (a *Analyzer) finalizeUserVars() {
	if !a.userVarsNeeded {
		return
	}
	for _, uv := range userVariables {
		if uv.Version > a.version {
			break
		}
		id := len(a.table) + 1
		entry := &vartable.Entry{
			Header: vartable.Header{ID: id, VariableType: vartable.VariableType(tokenTypeToValueKind(uv.Type))},
			Name:   uv.Name,
			Kind:   vartable.UserVariable,
			Value:  value.ZeroOf(tokenTypeToValueKind(uv.Type)),
		}
		a.table = append(a.table, entry)
		a.byName[uv.Name] = id
		for _, node := range a.userVarRefs[uv.Name] {
			a.References[node] = Reference{Kind: RefVariable, VarID: id}
		}
	}
}

func (a *Analyzer) declareContainer(name string, isFunc bool, retType token.Type, params []ast.Param, body []ast.Statement, pos token.Position) {
	key := strings.ToUpper(name)
	if existing, ok := a.containers[key]; ok && existing.Body != nil && body != nil {
		a.warnf(pos, "redefinition of %s %s", containerWord(isFunc), name)
	}
	c := &Container{Name: name, IsFunc: isFunc, ReturnType: retType}
	for range params {
		c.PassByRef = append(c.PassByRef, false)
	}
	if body != nil {
		c.Body = body
	}
	a.containers[key] = c
	_ = params
}

func containerWord(isFunc bool) string {
	if isFunc {
		return "function"
	}
	return "procedure"
}

// ---------------------------------------------------------------------------
// Body phase
// ---------------------------------------------------------------------------

type scope struct {
	names map[string]int // local/param name (upper) -> 1-based vartable slot id
}

func (a *Analyzer) bodyPhase(prog *ast.Program) {
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			if decl.Body != nil {
				a.analyzeContainerBody(decl.Name, true, decl.ReturnType, decl.Params, decl.Body, decl.Tok.Pos)
			}
		case *ast.ProcedureDecl:
			if decl.Body != nil {
				a.analyzeContainerBody(decl.Name, false, token.IDENT, decl.Params, decl.Body, decl.Tok.Pos)
			}
		}
	}
	a.collectLabels(prog.Main)
	sc := &scope{names: make(map[string]int)}
	for _, s := range prog.Main {
		a.walkStmt(s, sc)
	}
}

// analyzeContainerBody performs the variable-table slot emission order from
// spec.md §4.4: handle entry, then parameters, then locals, then (functions
// only) the return slot.
func (a *Analyzer) analyzeContainerBody(name string, isFunc bool, retType token.Type, params []ast.Param, body []ast.Statement, pos token.Position) {
	key := strings.ToUpper(name)
	c := a.containers[key]

	handleID := len(a.table) + 1
	var handleEntry *vartable.Entry
	if isFunc {
		handleEntry = &vartable.Entry{
			Header: vartable.Header{ID: handleID, VariableType: vartable.VTFunction},
			Name:   name,
			Kind:   vartable.FunctionEntry,
		}
	} else {
		handleEntry = &vartable.Entry{
			Header: vartable.Header{ID: handleID, VariableType: vartable.VTProcedure},
			Name:   name,
			Kind:   vartable.ProcedureEntry,
		}
	}
	a.table = append(a.table, handleEntry)
	c.HandleID = handleID

	sc := &scope{names: make(map[string]int)}

	for i, p := range params {
		id := a.appendSlot(p.Name, p.Type, p.Dims, vartable.Parameter)
		sc.names[strings.ToUpper(p.Name)] = id
		c.ParamIDs = append(c.ParamIDs, id)
		if i < len(c.PassByRef) {
			c.PassByRef[i] = p.ByRef
		}
	}

	locals := collectLocalDecls(body)
	for _, ld := range locals {
		for _, vn := range ld.Names {
			id := a.appendSlot(vn.Name, ld.Type, len(vn.Dims), vartable.LocalVariable)
			sc.names[strings.ToUpper(vn.Name)] = id
			c.LocalIDs = append(c.LocalIDs, id)
		}
	}

	if isFunc {
		retID := a.appendSlot(name+" result", retType, 0, vartable.FunctionResult)
		c.ReturnID = retID
		sc.names[key] = retID // bare function-name assignment sets the return value
	}

	a.collectLabels(body)
	for _, s := range body {
		a.walkStmt(s, sc)
	}

	if isFunc {
		handleEntry.Function = vartable.FunctionValue{
			Parameters:     uint8(len(c.ParamIDs)),
			LocalVariables: uint8(len(c.LocalIDs)),
			FirstVarID:     int16(firstOf(c.ParamIDs, c.LocalIDs)),
			ReturnVar:      int16(c.ReturnID),
			StartOffset:    1, // marks the container as having a body; the VM uses c.Body directly
		}
	} else {
		handleEntry.Procedure = vartable.ProcedureValue{
			Parameters:     uint8(len(c.ParamIDs)),
			LocalVariables: uint8(len(c.LocalIDs)),
			FirstVarID:     int16(firstOf(c.ParamIDs, c.LocalIDs)),
			PassFlags:      passFlagsOf(c.PassByRef),
			StartOffset:    1,
		}
	}
	_ = pos
}

func firstOf(a, b []int) int {
	if len(a) > 0 {
		return a[0]
	}
	if len(b) > 0 {
		return b[0]
	}
	return 0
}

func passFlagsOf(byRef []bool) uint16 {
	var f uint16
	for i, r := range byRef {
		if r && i < 16 {
			f |= 1 << uint(i)
		}
	}
	return f
}

func (a *Analyzer) appendSlot(name string, typ token.Type, dims int, kind vartable.EntryKind) int {
	id := len(a.table) + 1
	vk := tokenTypeToValueKind(typ)
	a.table = append(a.table, &vartable.Entry{
		Header: vartable.Header{ID: id, Dim: uint8(dims), VariableType: vartable.VariableType(vk)},
		Name:   name,
		Kind:   kind,
		Value:  value.ZeroOf(vk),
	})
	return id
}

// collectLocalDecls scans a body for its top-level VarDecl statements. PPL
// requires locals to be declared at the top of a function/procedure body,
// before any executable statement.
func collectLocalDecls(body []ast.Statement) []*ast.VarDecl {
	var out []*ast.VarDecl
	for _, s := range body {
		if vd, ok := s.(*ast.VarDecl); ok {
			out = append(out, vd)
		}
	}
	return out
}

func (a *Analyzer) collectLabels(body []ast.Statement) {
	for _, s := range body {
		if ls, ok := s.(*ast.LabelStmt); ok {
			key := strings.ToUpper(ls.Name)
			if _, exists := a.labels[key]; exists {
				a.errorf(ls.Tok.Pos, "label %s declared more than once", ls.Name)
				continue
			}
			a.labels[key] = 1
		}
	}
}

func (a *Analyzer) checkUnresolvedLabels() {
	for name, positions := range a.labelRefs {
		if _, ok := a.labels[name]; !ok {
			for _, pos := range positions {
				a.errorf(pos, "undefined label %s", name)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Statement/expression walk
// ---------------------------------------------------------------------------

func (a *Analyzer) walkStmt(s ast.Statement, sc *scope) {
	switch st := s.(type) {
	case *ast.LetStmt:
		a.walkExpr(st.Target, sc)
		a.walkExpr(st.Value, sc)
	case *ast.CallStmt:
		a.resolveCall(st.Tok.Pos, st.Name, st.Args, sc, st)
	case *ast.GotoStmt:
		a.labelRefs[strings.ToUpper(st.Label)] = append(a.labelRefs[strings.ToUpper(st.Label)], st.Tok.Pos)
	case *ast.GosubStmt:
		a.labelRefs[strings.ToUpper(st.Label)] = append(a.labelRefs[strings.ToUpper(st.Label)], st.Tok.Pos)
	case *ast.ReturnStmt:
		if st.Value != nil {
			a.walkExpr(st.Value, sc)
		}
	case *ast.IfStmt:
		a.walkExpr(st.Cond, sc)
		for _, x := range st.Then {
			a.walkStmt(x, sc)
		}
		for _, ei := range st.ElseIfs {
			a.walkExpr(ei.Cond, sc)
			for _, x := range ei.Body {
				a.walkStmt(x, sc)
			}
		}
		for _, x := range st.Else {
			a.walkStmt(x, sc)
		}
	case *ast.WhileStmt:
		a.walkExpr(st.Cond, sc)
		for _, x := range st.Body {
			a.walkStmt(x, sc)
		}
	case *ast.ForStmt:
		a.walkExpr(st.From, sc)
		a.walkExpr(st.To, sc)
		if st.Step != nil {
			a.walkExpr(st.Step, sc)
		}
		for _, x := range st.Body {
			a.walkStmt(x, sc)
		}
	case *ast.ExprStmt:
		a.walkExpr(st.Expr, sc)
	}
}

func (a *Analyzer) walkExpr(e ast.Expression, sc *scope) {
	switch ex := e.(type) {
	case *ast.Ident:
		a.resolveIdent(ex, sc)
	case *ast.IndexExpr:
		a.resolveVariableRef(ex.Tok.Pos, ex.Name, sc, ex)
		for _, arg := range ex.Args {
			a.walkExpr(arg, sc)
		}
	case *ast.CallExpr:
		a.resolveCall(ex.Tok.Pos, ex.Name, ex.Args, sc, ex)
	case *ast.BinaryExpr:
		a.walkExpr(ex.Left, sc)
		a.walkExpr(ex.Right, sc)
	case *ast.UnaryExpr:
		a.walkExpr(ex.Arg, sc)
	}
}

func (a *Analyzer) resolveIdent(ex *ast.Ident, sc *scope) {
	a.resolveVariableRef(ex.Tok.Pos, ex.Name, sc, ex)
}

// resolveVariableRef resolves a bare identifier to a local or an allocated
// global, defers a declared global or predefined user-variable reference
// until finalizeGlobals/finalizeUserVars, and otherwise allocates an
// implicit Integer global, promoting a Constant slot to Variable on use
// (spec.md §4.4).
func (a *Analyzer) resolveVariableRef(pos token.Position, name string, sc *scope, node ast.Node) {
	key := strings.ToUpper(name)
	if id, ok := sc.names[key]; ok {
		a.References[node] = Reference{Kind: RefVariable, VarID: id}
		return
	}
	if id, ok := a.byName[key]; ok {
		// Already allocated (an implicit global from an earlier reference,
		// or — once finalize has run — a real global/user-var).
		a.table[id-1].ReportUsage()
		a.References[node] = Reference{Kind: RefVariable, VarID: id}
		return
	}
	if _, ok := a.globalDecl[key]; ok {
		a.globalRefs[key] = append(a.globalRefs[key], node)
		return
	}
	if isUserVariable(key) {
		a.userVarsNeeded = true
		a.userVarRefs[key] = append(a.userVarRefs[key], node)
		return
	}
	// Unresolved: treat as an implicitly declared global (legacy PCBoard
	// scripts routinely reference undeclared variables as Integer globals).
	id := a.appendSlot(name, token.INTEGERTYPE, 0, vartable.Constant)
	a.table[id-1].ReportUsage()
	a.byName[key] = id
	a.References[node] = Reference{Kind: RefVariable, VarID: id}
	_ = pos
}

func (a *Analyzer) resolveCall(pos token.Position, name string, args []ast.Expression, sc *scope, node ast.Node) {
	key := strings.ToUpper(name)
	if c, ok := a.containers[key]; ok {
		kind := RefProcedure
		if c.IsFunc {
			kind = RefFunction
		}
		a.References[node] = Reference{Kind: kind, VarID: c.HandleID}
		for _, arg := range args {
			a.walkExpr(arg, sc)
		}
		return
	}
	if def, ok := opcodes.Lookup(key); ok {
		a.References[node] = Reference{Kind: RefPredefinedProc, Opcode: def}
		a.checkArity(pos, def, len(args))
		for _, arg := range args {
			a.walkExpr(arg, sc)
		}
		return
	}
	if def, ok := opcodes.LookupFunction(key); ok {
		a.References[node] = Reference{Kind: RefPredefinedFunc, Opcode: def}
		a.checkArity(pos, def, len(args))
		for _, arg := range args {
			a.walkExpr(arg, sc)
		}
		return
	}
	a.errorf(pos, "unknown identifier %s", name)
	for _, arg := range args {
		a.walkExpr(arg, sc)
	}
}

func (a *Analyzer) checkArity(pos token.Position, def opcodes.Def, got int) {
	switch def.Sig {
	case opcodes.SigFixed, opcodes.SigWithVar:
		if got != def.ArgCount {
			a.errorf(pos, "%s expects %d argument(s), got %d", def.Name, def.ArgCount, got)
		}
	case opcodes.SigVariadic:
		if got < def.ArgCount {
			a.errorf(pos, "%s expects at least %d argument(s), got %d", def.Name, def.ArgCount, got)
		}
	}
	if def.Version > 0 && def.Version > a.version {
		a.errorf(pos, "%s requires PPE version %d, script targets %d", def.Name, def.Version, a.version)
	}
}

func tokenTypeToValueKind(t token.Type) value.Kind {
	switch t {
	case token.BOOLEAN:
		return value.Boolean
	case token.UNSIGNED:
		return value.Unsigned
	case token.DATE:
		return value.Date
	case token.EDATE, token.EDATETYPE:
		return value.EDate
	case token.MONEYTYPE:
		return value.Money
	case token.FLOAT:
		return value.Float
	case token.DOUBLE:
		return value.Double
	case token.STRINGTYPE:
		return value.String
	case token.TIME:
		return value.Time
	case token.BYTE:
		return value.Byte
	case token.WORD:
		return value.Word
	case token.SBYTE:
		return value.SByte
	case token.SWORD:
		return value.SWord
	case token.BIGSTR:
		return value.BigStr
	case token.DDATE:
		return value.DDate
	default:
		return value.Integer
	}
}

// userVarDef is one predefined U_* slot: name, scalar type, and the runtime
// version it first appears in.
type userVarDef struct {
	Name    string
	Type    token.Type
	Version int
}

// userVariables is PCBoard's predefined user-record quasi-variable block, in
// canonical emission order. Grounded on
// icy_board_engine/executable/variable_table.rs's USER_VARIABLES table
// (original_source) — with one substitution: that table's first entry is
// U_EXPERT (a display-mode flag), but spec.md's own worked example
// (§8.3 scenario 3) prints U_NAME as the user's display name and requires
// exactly 29 slots in the emitted block. U_NAME is kept as the first entry
// here so that scenario resolves as written; the remaining 28 names and
// their versions are taken from the original table unchanged.
var userVariables = []userVarDef{
	{"U_NAME", token.STRINGTYPE, 100},
	{"U_FSE", token.BOOLEAN, 100},
	{"U_FSEP", token.BOOLEAN, 100},
	{"U_CLS", token.BOOLEAN, 100},
	{"U_EXPDATE", token.DATE, 100},
	{"U_SEC", token.INTEGERTYPE, 100},
	{"U_PAGELEN", token.INTEGERTYPE, 100},
	{"U_EXPSEC", token.INTEGERTYPE, 100},
	{"U_CITY", token.STRINGTYPE, 100},
	{"U_BDPHONE", token.STRINGTYPE, 100},
	{"U_HVPHONE", token.STRINGTYPE, 100},
	{"U_TRANS", token.STRINGTYPE, 100},
	{"U_CMNT1", token.STRINGTYPE, 100},
	{"U_CMNT2", token.STRINGTYPE, 100},
	{"U_PWD", token.STRINGTYPE, 100},
	{"U_SCROLL", token.BOOLEAN, 100},
	{"U_LONGHDR", token.BOOLEAN, 100},
	{"U_DEF79", token.BOOLEAN, 100},
	{"U_ALIAS", token.STRINGTYPE, 100},
	{"U_VER", token.STRINGTYPE, 100},
	{"U_ADDR", token.STRINGTYPE, 100},
	{"U_NOTES", token.STRINGTYPE, 100},
	{"U_PWDEXP", token.DATE, 100},
	{"U_ACCOUNT", token.INTEGERTYPE, 300},
	{"U_SHORTDESC", token.BOOLEAN, 340},
	{"U_GENDER", token.STRINGTYPE, 340},
	{"U_BIRTHDATE", token.STRINGTYPE, 340},
	{"U_EMAIL", token.STRINGTYPE, 340},
	{"U_WEB", token.STRINGTYPE, 340},
}

var userVariableNames = func() map[string]bool {
	m := make(map[string]bool, len(userVariables))
	for _, uv := range userVariables {
		m[uv.Name] = true
	}
	return m
}()

// isUserVariable reports whether key names one of the predefined U_* slots.
// An unrecognized U_-prefixed identifier is not treated specially: it falls
// through to the implicit-global-Integer path in resolveVariableRef, same
// as any other undeclared name.
func isUserVariable(key string) bool {
	return userVariableNames[key]
}
