package syntax

import (
	"strconv"
	"strings"
)

// Parse turns source text into a Program. It returns the first
// *ParseError encountered; it performs no name or type checks, so
// unknown command names parse successfully.
func Parse(src string) (*Program, error) {
	p := newParser(src)
	prog := &Program{}

	p.skipSeparators()
	for p.cur.Type != TokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)

		if err := p.expectSeparator(); err != nil {
			return nil, err
		}
		p.skipSeparators()
	}

	return prog, nil
}

type parser struct {
	lex *Lexer
	cur Token
	buf []Token // lookahead buffer beyond cur

	// noRedirect is positive inside parentheses, brackets, conditions
	// and assignment values, where '>' and '<' are always comparison
	// operators.
	noRedirect int
}

func newParser(src string) *parser {
	p := &parser{lex: NewLexer(src)}
	p.cur = p.lex.NextToken()
	return p
}

func (p *parser) next() {
	if len(p.buf) > 0 {
		p.cur = p.buf[0]
		p.buf = p.buf[1:]
		return
	}
	p.cur = p.lex.NextToken()
}

// peek returns the n-th token after cur (n >= 1).
func (p *parser) peek(n int) Token {
	for len(p.buf) < n {
		p.buf = append(p.buf, p.lex.NextToken())
	}
	return p.buf[n-1]
}

func (p *parser) errExpected(expected string) error {
	found := p.cur.Type.String()
	if p.cur.Type == TokWord || p.cur.Type == TokError {
		found = strconv.Quote(p.cur.Lexeme)
	}
	return &ParseError{Pos: p.cur.Pos, End: p.cur.End, Expected: expected, Found: found}
}

func (p *parser) skipNewlines() {
	for p.cur.Type == TokNewline {
		p.next()
	}
}

func (p *parser) skipSeparators() {
	for p.cur.Type == TokNewline || p.cur.Type == TokSemi {
		p.next()
	}
}

func (p *parser) expectSeparator() error {
	switch p.cur.Type {
	case TokNewline, TokSemi, TokEOF, TokRBrace:
		return nil
	}
	return p.errExpected("end of statement")
}

func (p *parser) parseStatement() (Stmt, error) {
	switch p.cur.Type {
	case TokIf:
		return p.parseIf()
	case TokWhile:
		return p.parseWhile()
	case TokFor:
		return p.parseFor()
	case TokLBrace:
		return p.parseBlock()
	case TokWord:
		if p.peek(1).Type == TokAssign {
			return p.parseAssignment()
		}
	case TokError:
		return nil, p.errExpected("a statement")
	}
	return p.parsePipeline()
}

func (p *parser) parseAssignment() (Stmt, error) {
	name := p.cur
	p.next() // name
	p.next() // '='

	p.noRedirect++
	value, err := p.parseExpr()
	p.noRedirect--
	if err != nil {
		return nil, err
	}
	return &Assignment{Name: name.Lexeme, NamePos: name.Pos, Value: value}, nil
}

func (p *parser) parseIf() (Stmt, error) {
	pos := p.cur.Pos
	p.next()

	p.noRedirect++
	cond, err := p.parseExpr()
	p.noRedirect--
	if err != nil {
		return nil, err
	}

	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt := &If{Cond: cond, Then: then, P: pos}
	if p.cur.Type == TokElse {
		p.next()
		if p.cur.Type == TokIf {
			// else-if chains wrap the nested If in a synthetic block.
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Else = &Block{Stmts: []Stmt{nested}, P: nested.Pos()}
		} else {
			stmt.Else, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
	}
	return stmt, nil
}

func (p *parser) parseWhile() (Stmt, error) {
	pos := p.cur.Pos
	p.next()

	p.noRedirect++
	cond, err := p.parseExpr()
	p.noRedirect--
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body, P: pos}, nil
}

func (p *parser) parseFor() (Stmt, error) {
	pos := p.cur.Pos
	p.next()

	if p.cur.Type != TokWord {
		return nil, p.errExpected("a loop variable name")
	}
	name := p.cur.Lexeme
	p.next()

	if p.cur.Type != TokIn {
		return nil, p.errExpected("'in'")
	}
	p.next()

	p.noRedirect++
	iter, err := p.parseExpr()
	p.noRedirect--
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &For{Var: name, Iter: iter, Body: body, P: pos}, nil
}

func (p *parser) parseBlock() (*Block, error) {
	if p.cur.Type != TokLBrace {
		return nil, p.errExpected("'{'")
	}
	pos := p.cur.Pos
	p.next()
	p.skipSeparators()

	block := &Block{P: pos}
	for p.cur.Type != TokRBrace {
		if p.cur.Type == TokEOF {
			return nil, p.errExpected("'}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)

		if err := p.expectSeparator(); err != nil {
			return nil, err
		}
		p.skipSeparators()
	}
	p.next() // '}'
	return block, nil
}

func (p *parser) parsePipeline() (Stmt, error) {
	pipe := &Pipeline{}
	for {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipe.Stages = append(pipe.Stages, cmd)

		if p.cur.Type != TokPipe {
			break
		}
		p.next()
		p.skipNewlines() // allow a pipe at end of line
	}
	return pipe, nil
}

func (p *parser) parseCommand() (*Command, error) {
	cmd := &Command{}

	if p.cur.Type == TokWord && !p.leadingWordStartsExpr() {
		cmd.Name = p.cur.Lexeme
		cmd.NamePos = p.cur.Pos
		p.next()
	} else {
		// Bare expression stage: `42 | to-upper`. '<' and '>' always
		// compare here; redirects need a named command.
		p.noRedirect++
		expr, err := p.parseExpr()
		p.noRedirect--
		if err != nil {
			return nil, err
		}
		cmd.Expr = expr
	}

	for {
		switch p.cur.Type {
		case TokPipe, TokNewline, TokSemi, TokEOF, TokRBrace:
			return cmd, nil
		case TokGtGt:
			if err := p.parseRedirect(cmd, RedirAppend); err != nil {
				return nil, err
			}
			continue
		case TokGt:
			if p.isRedirect() {
				if err := p.parseRedirect(cmd, RedirOut); err != nil {
					return nil, err
				}
				continue
			}
		case TokLt:
			if p.isRedirect() {
				if err := p.parseRedirect(cmd, RedirIn); err != nil {
					return nil, err
				}
				continue
			}
		case TokError:
			return nil, p.errExpected("an argument")
		}

		if cmd.IsExpr() {
			return nil, p.errExpected("'|' or end of statement")
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cmd.Args = append(cmd.Args, arg)
	}
}

// leadingWordStartsExpr reports whether a word in command position
// begins an expression stage instead: boolean literals, and words
// directly followed by a binary operator that cannot open an argument
// list. '>' and '<' stay ambiguous with redirects and do not count.
func (p *parser) leadingWordStartsExpr() bool {
	if p.cur.Lexeme == "true" || p.cur.Lexeme == "false" {
		return true
	}
	next := p.peek(1)
	switch next.Type {
	case TokAnd, TokOr, TokEq, TokNe, TokLe, TokGe, TokPlus, TokMinus, TokStar:
		return true
	}
	return next.Type == TokWord && next.Lexeme == "/"
}

// isRedirect disambiguates '>' and '<' inside an argument list: the
// token is a redirect only when the next token is a plain word or
// string that itself ends the command. Anything else ('where size >
// 100') reads as a comparison operator.
func (p *parser) isRedirect() bool {
	if p.noRedirect > 0 {
		return false
	}
	target := p.peek(1)
	if target.Type != TokWord && target.Type != TokString {
		return false
	}
	switch p.peek(2).Type {
	case TokPipe, TokNewline, TokSemi, TokEOF, TokRBrace, TokGt, TokGtGt, TokLt:
		return true
	}
	return false
}

func (p *parser) parseRedirect(cmd *Command, kind RedirKind) error {
	pos := p.cur.Pos
	p.next()

	if p.cur.Type != TokWord && p.cur.Type != TokString {
		return p.errExpected("a redirect target")
	}
	cmd.Redirects = append(cmd.Redirects, Redirect{Kind: kind, Target: p.cur.Lexeme, P: pos})
	p.next()
	return nil
}

// Binary operator precedence, loosest first.
var precedences = []map[TokenType]BinOp{
	{TokOr: OpOr},
	{TokAnd: OpAnd},
	{TokEq: OpEq, TokNe: OpNe, TokLt: OpLt, TokLe: OpLe, TokGt: OpGt, TokGe: OpGe},
	{TokPlus: OpAdd, TokMinus: OpSub},
	{TokStar: OpMul, TokSlash: OpDiv},
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseBinary(0)
}

func (p *parser) parseBinary(level int) (Expr, error) {
	if level >= len(precedences) {
		return p.parseUnary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		op, ok := precedences[level][p.cur.Type]
		// The lexer folds a lone '/' into a word because '/' starts
		// paths; between operands it is the division operator.
		if !ok && p.cur.Type == TokWord && p.cur.Lexeme == "/" && level == len(precedences)-1 {
			op, ok = OpDiv, true
		}
		if !ok {
			return left, nil
		}
		// A '>' or '<' that reads as a redirect ends the expression.
		if (p.cur.Type == TokGt || p.cur.Type == TokLt) && p.isRedirect() {
			return left, nil
		}
		pos := p.cur.Pos
		p.next()

		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, X: asOperand(left), Y: asOperand(right), P: pos}
	}
}

// asOperand promotes a bare word used as an operand to a variable
// reference, which is what lets `where size > 100` resolve size
// against the record's fields.
func asOperand(e Expr) Expr {
	if lit, ok := e.(*Literal); ok && lit.Word && lit.Kind == LitStr {
		return &VarRef{Name: lit.Str, P: lit.P}
	}
	return e
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.cur.Type {
	case TokNot:
		pos := p.cur.Pos
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: '!', X: asOperand(x), P: pos}, nil
	case TokMinus:
		pos := p.cur.Pos
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: '-', X: asOperand(x), P: pos}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	// Field access: a word glued to the previous token and starting
	// with '.' is a field chain ($rec.size lexes as VAR then ".size").
	for p.cur.Type == TokWord && strings.HasPrefix(p.cur.Lexeme, ".") && p.adjacent(x) {
		for _, name := range strings.Split(strings.TrimPrefix(p.cur.Lexeme, "."), ".") {
			if name == "" {
				return nil, p.errExpected("a field name")
			}
			x = &FieldAccess{X: x, Name: name, P: p.cur.Pos}
		}
		p.next()
	}
	return x, nil
}

// adjacent reports whether cur starts exactly where the given
// expression's token ended, i.e. with no whitespace in between.
func (p *parser) adjacent(x Expr) bool {
	v, ok := x.(*VarRef)
	if !ok {
		return false
	}
	// VarRef positions point at '$'; the name follows it.
	return p.cur.Pos.Offset == v.P.Offset+1+len(v.Name)
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.cur
	switch tok.Type {
	case TokInt:
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, End: tok.End, Expected: "an integer", Found: strconv.Quote(tok.Lexeme)}
		}
		p.next()
		return &Literal{Kind: LitInt, Int: n, P: tok.Pos}, nil

	case TokFloat:
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, End: tok.End, Expected: "a number", Found: strconv.Quote(tok.Lexeme)}
		}
		p.next()
		return &Literal{Kind: LitFloat, Float: f, P: tok.Pos}, nil

	case TokString:
		p.next()
		return parseStringLit(tok)

	case TokVar:
		p.next()
		return &VarRef{Name: tok.Lexeme, P: tok.Pos}, nil

	case TokWord:
		p.next()
		switch tok.Lexeme {
		case "true":
			return &Literal{Kind: LitBool, Bool: true, P: tok.Pos}, nil
		case "false":
			return &Literal{Kind: LitBool, Bool: false, P: tok.Pos}, nil
		}
		return &Literal{Kind: LitStr, Str: tok.Lexeme, Word: true, P: tok.Pos}, nil

	case TokLParen:
		p.next()
		p.noRedirect++
		x, err := p.parseExpr()
		p.noRedirect--
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokRParen {
			return nil, p.errExpected("')'")
		}
		p.next()
		return asOperand(x), nil

	case TokLBracket:
		return p.parseListLit()

	case TokLBrace:
		return p.parseRecordLit()
	}

	return nil, p.errExpected("an expression")
}

func (p *parser) parseListLit() (Expr, error) {
	pos := p.cur.Pos
	p.next()
	p.noRedirect++
	defer func() { p.noRedirect-- }()

	list := &ListLit{P: pos}
	p.skipNewlines()
	for p.cur.Type != TokRBracket {
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, elem)

		p.skipNewlines()
		if p.cur.Type == TokComma {
			p.next()
			p.skipNewlines()
			continue
		}
		break
	}
	if p.cur.Type != TokRBracket {
		return nil, p.errExpected("']'")
	}
	p.next()
	return list, nil
}

func (p *parser) parseRecordLit() (Expr, error) {
	pos := p.cur.Pos
	p.next()
	p.noRedirect++
	defer func() { p.noRedirect-- }()

	rec := &RecordLit{P: pos}
	p.skipNewlines()
	for p.cur.Type != TokRBrace {
		if p.cur.Type != TokWord && p.cur.Type != TokString {
			return nil, p.errExpected("a field name")
		}
		name := p.cur.Lexeme
		p.next()

		if p.cur.Type != TokColon {
			return nil, p.errExpected("':'")
		}
		p.next()
		p.skipNewlines()

		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, RecordField{Name: name, Val: val})

		p.skipNewlines()
		if p.cur.Type == TokComma {
			p.next()
			p.skipNewlines()
			continue
		}
		break
	}
	if p.cur.Type != TokRBrace {
		return nil, p.errExpected("'}'")
	}
	p.next()
	return rec, nil
}

var unescaper = strings.NewReplacer(
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
	`\\`, `\`,
	`\"`, `"`,
	`\'`, "'",
)

// parseStringLit decodes escapes and, for double-quoted strings,
// splits $name interpolation segments into expression parts.
func parseStringLit(tok Token) (Expr, error) {
	if tok.Quote == '\'' {
		return &Literal{Kind: LitStr, Str: unescaper.Replace(tok.Lexeme), P: tok.Pos}, nil
	}

	raw := tok.Lexeme
	var parts []Expr
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			parts = append(parts, &Literal{Kind: LitStr, Str: sb.String(), P: tok.Pos})
			sb.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '$':
				sb.WriteByte('$')
			default:
				sb.WriteByte(raw[i])
			}
		case c == '$':
			j := i + 1
			for j < len(raw) && (isIdentByte(raw[j])) {
				j++
			}
			if j == i+1 {
				sb.WriteByte('$')
				continue
			}
			flush()
			parts = append(parts, &VarRef{Name: raw[i+1 : j], P: tok.Pos})
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}

	if len(parts) == 0 {
		return &Literal{Kind: LitStr, Str: sb.String(), P: tok.Pos}, nil
	}
	flush()
	return &Interp{Parts: parts, P: tok.Pos}, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
