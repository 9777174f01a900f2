// Package parser builds an ast.Program from a token stream produced by
// lexer.Preprocessor.
//
// Structure mirrors the teacher's parser: a two-token lookahead (cur/peek),
// expect/expectPeek helpers that record errors without panicking, a
// statement-recovery skipTo, and a Pratt expression parser keyed by a
// token-type precedence table.
package parser

import (
	"fmt"

	"github.com/icyboard/icyboard/internal/ppl/ast"
	"github.com/icyboard/icyboard/internal/ppl/lexer"
	"github.com/icyboard/icyboard/internal/ppl/token"
)

type precedence int

const (
	precLowest precedence = iota
	precOr                // | (logical or)
	precAnd               // &
	precEquality          // = <> ==
	precRelational        // < > <= >=
	precAdditive          // + -
	precMultiplicative    // * / %
	precPower             // ^
	precUnary
	precIndex
)

var infixPrecedence = map[token.Type]precedence{
	token.PIPE:    precOr,
	token.AMP:     precAnd,
	token.EQ:      precEquality,
	token.EQEQ:    precEquality,
	token.NEQ:     precEquality,
	token.LT:      precRelational,
	token.GT:      precRelational,
	token.LTE:     precRelational,
	token.GTE:     precRelational,
	token.PLUS:    precAdditive,
	token.MINUS:   precAdditive,
	token.STAR:    precMultiplicative,
	token.SLASH:   precMultiplicative,
	token.PERCENT: precMultiplicative,
	token.CARET:   precPower,
}

// Error is a compile error with a source position, per spec.md §7.
type Error struct {
	Pos token.Position
	Msg string
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

type Parser struct {
	pp  *lexer.Preprocessor
	cur token.Token
	pk  token.Token

	errors []error
}

// Parse runs the full pipeline: Preprocessor → Parser → *ast.Program.
// Returns partial AST plus any compile errors (spec.md §7): parsing does not
// stop at the first error, it recovers at the next EOL/declaration boundary.
func Parse(filename, source string, version int, readFile lexer.FileReader) (*ast.Program, []error) {
	pp := lexer.NewPreprocessor(filename, source, version, readFile)
	p := &Parser{pp: pp}
	p.advance()
	p.advance()
	prog := p.parseProgram()
	for _, d := range pp.Diagnostics {
		p.errors = append(p.errors, Error{Pos: d.Pos, Msg: d.Msg})
	}
	return prog, p.errors
}

func (p *Parser) advance() {
	p.cur = p.pk
	for {
		t, err := p.pp.Next()
		if err != nil {
			p.errors = append(p.errors, Error{Pos: p.cur.Pos, Msg: err.Error()})
			p.pk = token.Token{Type: token.EOF}
			return
		}
		if t.Type == token.COMMENT {
			continue
		}
		p.pk = t
		return
	}
}

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	p.errors = append(p.errors, Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) curIs(tt token.Type) bool  { return p.cur.Type == tt }
func (p *Parser) peekIs(tt token.Type) bool { return p.pk.Type == tt }

func (p *Parser) expect(tt token.Type) (token.Token, bool) {
	if p.cur.Type != tt {
		p.errorf(p.cur.Pos, "expected %s, got %s %q", tt, p.cur.Type, p.cur.Literal)
		return p.cur, false
	}
	t := p.cur
	p.advance()
	return t, true
}

// skipToEOL recovers from a malformed statement by discarding tokens up to
// the next EOL/EOF.
func (p *Parser) skipToEOL() {
	for !p.curIs(token.EOL) && !p.curIs(token.EOF) {
		p.advance()
	}
	if p.curIs(token.EOL) {
		p.advance()
	}
}

func (p *Parser) skipEOLs() {
	for p.curIs(token.EOL) || p.curIs(token.SEMI) {
		p.advance()
	}
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	p.skipEOLs()
	for !p.curIs(token.EOF) {
		if isTypeKeyword(p.cur.Type) && !p.peekIsCallParen() {
			// Could be a top-level VarDecl or the start of a FUNCTION's
			// return-type... at top level it's always a VarDecl.
			prog.Declarations = append(prog.Declarations, p.parseVarDecl())
			p.skipEOLs()
			continue
		}
		switch p.cur.Type {
		case token.DECLARE:
			prog.Declarations = append(prog.Declarations, p.parseForwardDecl())
		case token.FUNCTION:
			prog.Declarations = append(prog.Declarations, p.parseFunctionDecl())
		case token.PROCEDURE:
			prog.Declarations = append(prog.Declarations, p.parseProcedureDecl())
		default:
			prog.Main = append(prog.Main, p.parseStatement())
		}
		p.skipEOLs()
	}
	return prog
}

func (p *Parser) peekIsCallParen() bool { return p.pk.Type == token.LPAREN }

func isTypeKeyword(tt token.Type) bool {
	switch tt {
	case token.BOOLEAN, token.UNSIGNED, token.DATE, token.EDATE, token.INTEGERTYPE,
		token.MONEYTYPE, token.FLOAT, token.DOUBLE, token.STRINGTYPE, token.TIME,
		token.BYTE, token.WORD, token.SBYTE, token.SWORD, token.BIGSTR, token.DDATE:
		return true
	}
	return false
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	tok := p.cur
	typ := p.cur.Type
	p.advance()
	decl := &ast.VarDecl{Tok: tok, Type: typ}
	for {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		vn := ast.VarName{Name: nameTok.Literal}
		if p.curIs(token.LPAREN) {
			p.advance()
			for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
				vn.Dims = append(vn.Dims, p.parseExpression(precLowest))
				if p.curIs(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.RPAREN)
		}
		decl.Names = append(decl.Names, vn)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return decl
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	p.expect(token.LPAREN)
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		byRef := false
		if p.curIs(token.AMP) {
			byRef = true
			p.advance()
		}
		if !isTypeKeyword(p.cur.Type) {
			p.errorf(p.cur.Pos, "expected parameter type, got %s", p.cur.Type)
			p.advance()
			continue
		}
		typ := p.cur.Type
		p.advance()
		nameTok, _ := p.expect(token.IDENT)
		dims := 0
		if p.curIs(token.LPAREN) {
			p.advance()
			for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
				dims++
				if p.curIs(token.COMMA) {
					p.advance()
				} else {
					break
				}
			}
			p.expect(token.RPAREN)
		}
		params = append(params, ast.Param{Name: nameTok.Literal, Type: typ, ByRef: byRef, Dims: dims})
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) parseForwardDecl() ast.Declaration {
	tok := p.cur
	p.advance() // DECLARE
	switch p.cur.Type {
	case token.FUNCTION:
		p.advance()
		nameTok, _ := p.expect(token.IDENT)
		params := p.parseParamList()
		retType := token.INTEGERTYPE
		if isTypeKeyword(p.cur.Type) {
			retType = p.cur.Type
			p.advance()
		}
		return &ast.FunctionDecl{Tok: tok, Name: nameTok.Literal, Params: params, ReturnType: retType, Forward: true}
	case token.PROCEDURE:
		p.advance()
		nameTok, _ := p.expect(token.IDENT)
		params := p.parseParamList()
		return &ast.ProcedureDecl{Tok: tok, Name: nameTok.Literal, Params: params, Forward: true}
	default:
		p.errorf(p.cur.Pos, "expected FUNCTION or PROCEDURE after DECLARE")
		p.skipToEOL()
		return &ast.ProcedureDecl{Tok: tok, Forward: true}
	}
}

func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	tok := p.cur
	p.advance()
	nameTok, _ := p.expect(token.IDENT)
	params := p.parseParamList()
	retType := token.INTEGERTYPE
	if isTypeKeyword(p.cur.Type) {
		retType = p.cur.Type
		p.advance()
	}
	p.skipEOLs()
	body := p.parseBlockUntil(token.ENDFUNC)
	p.expect(token.ENDFUNC)
	return &ast.FunctionDecl{Tok: tok, Name: nameTok.Literal, Params: params, ReturnType: retType, Body: body}
}

func (p *Parser) parseProcedureDecl() *ast.ProcedureDecl {
	tok := p.cur
	p.advance()
	nameTok, _ := p.expect(token.IDENT)
	params := p.parseParamList()
	p.skipEOLs()
	body := p.parseBlockUntil(token.ENDPROC)
	p.expect(token.ENDPROC)
	return &ast.ProcedureDecl{Tok: tok, Name: nameTok.Literal, Params: params, Body: body}
}

func (p *Parser) parseBlockUntil(terminators ...token.Type) []ast.Statement {
	var body []ast.Statement
	for !p.atAny(terminators...) && !p.curIs(token.EOF) {
		body = append(body, p.parseStatement())
		p.skipEOLs()
	}
	return body
}

func (p *Parser) atAny(types ...token.Type) bool {
	for _, t := range types {
		if p.curIs(t) {
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.LABEL:
		tok := p.cur
		name := p.cur.Literal
		p.advance()
		return &ast.LabelStmt{Tok: tok, Name: name}
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.GOTO:
		tok := p.cur
		p.advance()
		lbl, _ := p.expect(token.IDENT)
		return &ast.GotoStmt{Tok: tok, Label: lbl.Literal}
	case token.GOSUB:
		tok := p.cur
		p.advance()
		lbl, _ := p.expect(token.IDENT)
		return &ast.GosubStmt{Tok: tok, Label: lbl.Literal}
	case token.RETURN:
		tok := p.cur
		p.advance()
		var val ast.Expression
		if !p.curIs(token.EOL) && !p.curIs(token.SEMI) && !p.curIs(token.EOF) {
			val = p.parseExpression(precLowest)
		}
		return &ast.ReturnStmt{Tok: tok, Value: val}
	case token.STOP:
		tok := p.cur
		p.advance()
		return &ast.StopStmt{Tok: tok}
	case token.END:
		tok := p.cur
		p.advance()
		return &ast.EndStmt{Tok: tok}
	case token.BREAK:
		tok := p.cur
		p.advance()
		return &ast.BreakStmt{Tok: tok}
	case token.CONTINUE:
		tok := p.cur
		p.advance()
		return &ast.ContinueStmt{Tok: tok}
	case token.LET:
		tok := p.cur
		p.advance()
		return p.finishLet(tok)
	case token.IDENT:
		return p.parseIdentStatement()
	default:
		if isTypeKeyword(p.cur.Type) {
			return p.parseVarDecl()
		}
		tok := p.cur
		expr := p.parseExpression(precLowest)
		return &ast.ExprStmt{Tok: tok, Expr: expr}
	}
}

// parseIdentStatement disambiguates `IDENT = expr` (LetStmt), `IDENT(args) =
// expr` (indexed LetStmt), and `IDENT arg1, arg2` (CallStmt — a predefined or
// user procedure invoked with unparenthesized arguments, the classic PPL
// statement shape).
func (p *Parser) parseIdentStatement() ast.Statement {
	tok := p.cur
	name := p.cur.Literal
	p.advance()

	if p.curIs(token.EQ) {
		p.advance()
		val := p.parseExpression(precLowest)
		return &ast.LetStmt{Tok: tok, Target: &ast.Ident{Tok: tok, Name: name}, Value: val}
	}

	if p.curIs(token.LPAREN) {
		p.advance()
		var args []ast.Expression
		for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
			args = append(args, p.parseExpression(precLowest))
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
		if p.curIs(token.EQ) {
			p.advance()
			val := p.parseExpression(precLowest)
			return &ast.LetStmt{Tok: tok, Target: &ast.IndexExpr{Tok: tok, Name: name, Args: args}, Value: val}
		}
		return &ast.CallStmt{Tok: tok, Name: name, Args: args}
	}

	// Unparenthesized-argument procedure call: `PRINTLN "x", y`.
	var args []ast.Expression
	if !p.atStatementEnd() {
		args = append(args, p.parseExpression(precLowest))
		for p.curIs(token.COMMA) {
			p.advance()
			args = append(args, p.parseExpression(precLowest))
		}
	}
	return &ast.CallStmt{Tok: tok, Name: name, Args: args}
}

func (p *Parser) atStatementEnd() bool {
	return p.curIs(token.EOL) || p.curIs(token.SEMI) || p.curIs(token.EOF) ||
		p.curIs(token.ENDIF) || p.curIs(token.ELSE) || p.curIs(token.ELSEIF) ||
		p.curIs(token.ENDWHILE) || p.curIs(token.NEXT) || p.curIs(token.ENDFUNC) ||
		p.curIs(token.ENDPROC) || p.curIs(token.COLON)
}

func (p *Parser) finishLet(tok token.Token) ast.Statement {
	target := p.parsePrimaryLValue()
	p.expect(token.EQ)
	val := p.parseExpression(precLowest)
	return &ast.LetStmt{Tok: tok, Target: target, Value: val}
}

func (p *Parser) parsePrimaryLValue() ast.Expression {
	nameTok, _ := p.expect(token.IDENT)
	if p.curIs(token.LPAREN) {
		p.advance()
		var args []ast.Expression
		for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
			args = append(args, p.parseExpression(precLowest))
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
		return &ast.IndexExpr{Tok: nameTok, Name: nameTok.Literal, Args: args}
	}
	return &ast.Ident{Tok: nameTok, Name: nameTok.Literal}
}

func (p *Parser) parseIfStmt() ast.Statement {
	tok := p.cur
	p.advance()
	cond := p.parseExpression(precLowest)
	if !p.curIs(token.THEN) {
		// single-line `IF cond stmt` form
		then := []ast.Statement{p.parseStatement()}
		return &ast.IfStmt{Tok: tok, Cond: cond, Then: then, SingleLine: true}
	}
	p.expect(token.THEN)
	p.skipEOLs()
	stmt := &ast.IfStmt{Tok: tok, Cond: cond}
	stmt.Then = p.parseBlockUntil(token.ELSEIF, token.ELSE, token.ENDIF)
	for p.curIs(token.ELSEIF) {
		p.advance()
		c := p.parseExpression(precLowest)
		p.expect(token.THEN)
		p.skipEOLs()
		body := p.parseBlockUntil(token.ELSEIF, token.ELSE, token.ENDIF)
		stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIf{Cond: c, Body: body})
	}
	if p.curIs(token.ELSE) {
		p.advance()
		p.skipEOLs()
		stmt.Else = p.parseBlockUntil(token.ENDIF)
	}
	p.expect(token.ENDIF)
	return stmt
}

func (p *Parser) parseWhileStmt() ast.Statement {
	tok := p.cur
	p.advance()
	cond := p.parseExpression(precLowest)
	p.skipEOLs()
	body := p.parseBlockUntil(token.ENDWHILE)
	p.expect(token.ENDWHILE)
	return &ast.WhileStmt{Tok: tok, Cond: cond, Body: body}
}

func (p *Parser) parseForStmt() ast.Statement {
	tok := p.cur
	p.advance()
	varTok, _ := p.expect(token.IDENT)
	p.expect(token.EQ)
	from := p.parseExpression(precLowest)
	p.expect(token.TO)
	to := p.parseExpression(precLowest)
	var step ast.Expression
	if p.curIs(token.STEP) {
		p.advance()
		step = p.parseExpression(precLowest)
	}
	if p.curIs(token.COLON) {
		p.advance()
	}
	body := p.parseBlockUntil(token.NEXT)
	p.expect(token.NEXT)
	return &ast.ForStmt{Tok: tok, Var: varTok.Literal, From: from, To: to, Step: step, Body: body}
}

// ---------------------------------------------------------------------------
// Expressions (Pratt)
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression(prec precedence) ast.Expression {
	left := p.parsePrefix()
	for !p.atStatementEnd() && !p.curIs(token.COMMA) && !p.curIs(token.RPAREN) {
		infixPrec, ok := infixPrecedence[p.cur.Type]
		if !ok || infixPrec <= prec {
			break
		}
		left = p.parseInfix(left, infixPrec)
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expression {
	tok := p.cur
	switch tok.Type {
	case token.MINUS, token.BANG, token.TILDE, token.PLUS:
		p.advance()
		arg := p.parseExpression(precUnary)
		return &ast.UnaryExpr{Tok: tok, Op: tok.Type, Arg: arg}
	case token.LPAREN:
		p.advance()
		e := p.parseExpression(precLowest)
		p.expect(token.RPAREN)
		return e
	case token.INTEGER:
		p.advance()
		return &ast.IntLit{Tok: tok, Value: parseIntLiteral(tok.Literal)}
	case token.MONEY:
		p.advance()
		return &ast.MoneyLit{Tok: tok, Cents: parseMoneyLiteral(tok.Literal)}
	case token.STRING:
		p.advance()
		return &ast.StringLit{Tok: tok, Value: tok.Literal}
	case token.IDENT:
		p.advance()
		if p.curIs(token.LPAREN) {
			p.advance()
			var args []ast.Expression
			for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
				args = append(args, p.parseExpression(precLowest))
				if p.curIs(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.RPAREN)
			return &ast.CallExpr{Tok: tok, Name: tok.Literal, Args: args}
		}
		return &ast.Ident{Tok: tok, Name: tok.Literal}
	default:
		p.errorf(tok.Pos, "unexpected token %s %q in expression", tok.Type, tok.Literal)
		p.advance()
		return &ast.IntLit{Tok: tok, Value: 0}
	}
}

func (p *Parser) parseInfix(left ast.Expression, prec precedence) ast.Expression {
	tok := p.cur
	op := p.cur.Type
	p.advance()
	right := p.parseExpression(prec)
	return &ast.BinaryExpr{Tok: tok, Op: op, Left: left, Right: right}
}

func parseIntLiteral(lit string) int64 {
	if lit == "" {
		return 0
	}
	suffix := lit[len(lit)-1]
	base := 10
	digits := lit
	switch suffix {
	case 'h', 'H':
		base, digits = 16, lit[:len(lit)-1]
	case 'o', 'O':
		base, digits = 8, lit[:len(lit)-1]
	case 'b', 'B':
		base, digits = 2, lit[:len(lit)-1]
	case 'd', 'D':
		base, digits = 10, lit[:len(lit)-1]
	}
	var v int64
	for _, c := range digits {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			continue
		}
		if int(d) >= base {
			continue
		}
		v = v*int64(base) + d
	}
	return v
}

func parseMoneyLiteral(lit string) int64 {
	var whole, frac int64
	fracDigits := 0
	inFrac := false
	for _, c := range lit {
		if c == '.' {
			inFrac = true
			continue
		}
		if c < '0' || c > '9' {
			continue
		}
		d := int64(c - '0')
		if inFrac {
			if fracDigits >= 2 {
				continue
			}
			frac = frac*10 + d
			fracDigits++
		} else {
			whole = whole*10 + d
		}
	}
	for fracDigits < 2 {
		frac *= 10
		fracDigits++
	}
	return whole*100 + frac
}
