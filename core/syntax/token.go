// Package syntax turns raw input lines into an abstract syntax tree of
// pipelines, commands, expressions and control constructs. It performs
// no name resolution or type checking.
package syntax

import "fmt"

// TokenType identifies a lexical class.
type TokenType int

const (
	TokEOF TokenType = iota
	TokNewline
	TokWord   // bare word: command names, flag-ish args, paths
	TokInt    // integer literal
	TokFloat  // float literal
	TokString // quoted string, Lexeme holds the raw contents
	TokVar    // $name

	// Keywords.
	TokIf
	TokElse
	TokWhile
	TokFor
	TokIn

	// Operators and punctuation.
	TokPipe      // |
	TokGt        // > (redirect or comparison, parser decides)
	TokGtGt      // >>
	TokLt        // < (redirect or comparison, parser decides)
	TokAssign    // =
	TokEq        // ==
	TokNe        // !=
	TokLe        // <=
	TokGe        // >=
	TokPlus      // +
	TokMinus     // -
	TokStar      // *
	TokSlash     // /
	TokAnd       // &&
	TokOr        // ||
	TokNot       // !
	TokComma     // ,
	TokColon     // :
	TokSemi      // ;
	TokLParen    // (
	TokRParen    // )
	TokLBracket  // [
	TokRBracket  // ]
	TokLBrace    // {
	TokRBrace    // }

	// TokError carries an unrecognized character or an unterminated
	// string; Lexeme holds a description.
	TokError
)

var tokenNames = map[TokenType]string{
	TokEOF:      "end of input",
	TokNewline:  "newline",
	TokWord:     "word",
	TokInt:      "integer",
	TokFloat:    "float",
	TokString:   "string",
	TokVar:      "variable",
	TokIf:       "'if'",
	TokElse:     "'else'",
	TokWhile:    "'while'",
	TokFor:      "'for'",
	TokIn:       "'in'",
	TokPipe:     "'|'",
	TokGt:       "'>'",
	TokGtGt:     "'>>'",
	TokLt:       "'<'",
	TokAssign:   "'='",
	TokEq:       "'=='",
	TokNe:       "'!='",
	TokLe:       "'<='",
	TokGe:       "'>='",
	TokPlus:     "'+'",
	TokMinus:    "'-'",
	TokStar:     "'*'",
	TokSlash:    "'/'",
	TokAnd:      "'&&'",
	TokOr:       "'||'",
	TokNot:      "'!'",
	TokComma:    "','",
	TokColon:    "':'",
	TokSemi:     "';'",
	TokLParen:   "'('",
	TokRParen:   "')'",
	TokLBracket: "'['",
	TokRBracket: "']'",
	TokLBrace:   "'{'",
	TokRBrace:   "'}'",
	TokError:    "invalid input",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(tt))
}

var keywords = map[string]TokenType{
	"if":    TokIf,
	"else":  TokElse,
	"while": TokWhile,
	"for":   TokFor,
	"in":    TokIn,
}

// Position locates a token or node in the source text.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexical unit, consumed by the parser.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    Position
	// End is the byte offset one past the token, used by the parser to
	// detect adjacency and by diagnostics to underline spans.
	End int
	// Quote is the quoting character for TokString ('"' or '\''),
	// controlling whether interpolation applies.
	Quote byte
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %s", t.Type, t.Lexeme, t.Pos)
}
