package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer scans source text left to right, producing one token at a
// time. Newlines are reported as their own tokens so the parser can
// treat them as statement separators.
type Lexer struct {
	src string

	pos    int // byte index of the next rune
	line   int
	column int

	ch    rune // current rune, 0 at end of input
	width int
	done  bool

	// Position of the current rune.
	chLine, chCol, chOff int
}

// NewLexer returns a lexer over src.
func NewLexer(src string) *Lexer {
	l := &Lexer{src: src, line: 1, column: 0}
	l.readRune()
	return l
}

func (l *Lexer) readRune() {
	l.chOff = l.pos
	l.chLine = l.line
	l.chCol = l.column + 1

	if l.pos >= len(l.src) {
		l.ch = 0
		l.width = 0
		l.done = true
		return
	}

	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.ch = r
	l.width = w
	l.pos += w
	if r == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) chPos() Position {
	return Position{Line: l.chLine, Column: l.chCol, Offset: l.chOff}
}

func (l *Lexer) token(tt TokenType, lexeme string, pos Position) Token {
	return Token{Type: tt, Lexeme: lexeme, Pos: pos, End: l.chOff}
}

func isWordStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '/' || r == '~' || r == '.'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		strings.ContainsRune("-_./~", r)
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// NextToken returns the next token, TokEOF at end of input.
func (l *Lexer) NextToken() Token {
	for {
		if l.done {
			return l.token(TokEOF, "", l.chPos())
		}

		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readRune()
			continue
		case l.ch == '#':
			for !l.done && l.ch != '\n' {
				l.readRune()
			}
			continue
		}
		break
	}

	pos := l.chPos()

	switch {
	case l.ch == '\n':
		l.readRune()
		return l.token(TokNewline, "\n", pos)

	case l.ch == '"' || l.ch == '\'':
		return l.lexString(pos)

	case l.ch == '$':
		l.readRune()
		start := l.chOff
		for !l.done && isIdentRune(l.ch) {
			l.readRune()
		}
		name := l.src[start:l.chOff]
		if name == "" {
			return l.token(TokError, "lone '$'", pos)
		}
		return l.token(TokVar, name, pos)

	case unicode.IsDigit(l.ch):
		return l.lexNumber(pos)

	case l.ch == '-':
		// A dash glued to a letter starts a flag-like word (-a,
		// --human); otherwise it is the minus operator.
		next := l.peekRune()
		if unicode.IsLetter(next) || next == '-' {
			return l.lexWord(pos)
		}
		l.readRune()
		return l.token(TokMinus, "-", pos)

	case isWordStart(l.ch):
		return l.lexWord(pos)
	}

	// Operators and punctuation.
	ch := l.ch
	l.readRune()
	two := func(second rune, pair, single TokenType) Token {
		if l.ch == second {
			l.readRune()
			return l.token(pair, string(ch)+string(second), pos)
		}
		return l.token(single, string(ch), pos)
	}

	switch ch {
	case '|':
		return two('|', TokOr, TokPipe)
	case '&':
		if l.ch == '&' {
			l.readRune()
			return l.token(TokAnd, "&&", pos)
		}
		return l.token(TokError, "'&'", pos)
	case '>':
		switch l.ch {
		case '>':
			l.readRune()
			return l.token(TokGtGt, ">>", pos)
		case '=':
			l.readRune()
			return l.token(TokGe, ">=", pos)
		}
		return l.token(TokGt, ">", pos)
	case '<':
		return two('=', TokLe, TokLt)
	case '=':
		return two('=', TokEq, TokAssign)
	case '!':
		return two('=', TokNe, TokNot)
	case '+':
		return l.token(TokPlus, "+", pos)
	case '*':
		return l.token(TokStar, "*", pos)
	case '/':
		return l.token(TokSlash, "/", pos)
	case ',':
		return l.token(TokComma, ",", pos)
	case ':':
		return l.token(TokColon, ":", pos)
	case ';':
		return l.token(TokSemi, ";", pos)
	case '(':
		return l.token(TokLParen, "(", pos)
	case ')':
		return l.token(TokRParen, ")", pos)
	case '[':
		return l.token(TokLBracket, "[", pos)
	case ']':
		return l.token(TokRBracket, "]", pos)
	case '{':
		return l.token(TokLBrace, "{", pos)
	case '}':
		return l.token(TokRBrace, "}", pos)
	}

	return l.token(TokError, "'"+string(ch)+"'", pos)
}

func (l *Lexer) lexWord(pos Position) Token {
	start := l.chOff
	for !l.done && isWordRune(l.ch) {
		l.readRune()
	}
	word := l.src[start:l.chOff]

	if tt, ok := keywords[word]; ok {
		return l.token(tt, word, pos)
	}
	return l.token(TokWord, word, pos)
}

func (l *Lexer) lexNumber(pos Position) Token {
	start := l.chOff
	for !l.done && unicode.IsDigit(l.ch) {
		l.readRune()
	}
	isFloat := false
	if l.ch == '.' && unicode.IsDigit(l.peekRune()) {
		isFloat = true
		l.readRune()
		for !l.done && unicode.IsDigit(l.ch) {
			l.readRune()
		}
	}

	// Digits glued to word runes form a word (e.g. 2fast).
	if !l.done && isWordRune(l.ch) {
		for !l.done && isWordRune(l.ch) {
			l.readRune()
		}
		return l.token(TokWord, l.src[start:l.chOff], pos)
	}

	if isFloat {
		return l.token(TokFloat, l.src[start:l.chOff], pos)
	}
	return l.token(TokInt, l.src[start:l.chOff], pos)
}

func (l *Lexer) lexString(pos Position) Token {
	quote := l.ch
	l.readRune()
	start := l.chOff
	for !l.done && l.ch != quote {
		if l.ch == '\\' {
			l.readRune() // keep the escape for the parser to decode
			if l.done {
				break
			}
		}
		l.readRune()
	}
	if l.done {
		return l.token(TokError, "unterminated string", pos)
	}
	raw := l.src[start:l.chOff]
	l.readRune() // consume closing quote

	tok := l.token(TokString, raw, pos)
	tok.Quote = byte(quote)
	return tok
}

// Incomplete reports whether src ends mid-construct: inside a string,
// or with unclosed braces, brackets or parentheses. The REPL uses this
// to prompt for continuation lines instead of reporting a parse error.
func Incomplete(src string) bool {
	l := NewLexer(src)
	depth := 0
	for {
		tok := l.NextToken()
		switch tok.Type {
		case TokEOF:
			return depth > 0
		case TokError:
			if tok.Lexeme == "unterminated string" {
				return true
			}
		case TokLBrace, TokLBracket, TokLParen:
			depth++
		case TokRBrace, TokRBracket, TokRParen:
			depth--
		}
	}
}
