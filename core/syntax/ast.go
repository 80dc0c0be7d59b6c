package syntax

// Node is implemented by every AST node. Nodes are immutable once
// built; the checker records inferred types in a side table keyed by
// node identity rather than annotating the nodes themselves.
type Node interface {
	Pos() Position
}

// Program is a parsed script or input block: a sequence of statements.
type Program struct {
	Stmts []Stmt
}

// Stmt is a top-level or block-level statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an argument or condition expression.
type Expr interface {
	Node
	exprNode()
}

// Pipeline is an ordered chain of commands connected by '|'. A single
// command is a one-stage pipeline.
type Pipeline struct {
	Stages []*Command
}

func (p *Pipeline) Pos() Position { return p.Stages[0].Pos() }
func (p *Pipeline) stmtNode()     {}

// RedirKind distinguishes the redirect clauses.
type RedirKind int

const (
	RedirOut RedirKind = iota // >
	RedirAppend               // >>
	RedirIn                   // <
)

// Redirect is one redirect clause attached to a command.
type Redirect struct {
	Kind   RedirKind
	Target string
	P      Position
}

// Command is one pipeline stage. Either Name is set (a named command
// with argument expressions) or Expr is set (a bare expression stage
// that emits a single value, as in `42 | to-upper`).
type Command struct {
	Name      string
	NamePos   Position
	Args      []Expr
	Expr      Expr
	Redirects []Redirect
}

func (c *Command) Pos() Position {
	if c.Name == "" && c.Expr != nil {
		return c.Expr.Pos()
	}
	return c.NamePos
}

// IsExpr reports whether the stage is a bare expression.
func (c *Command) IsExpr() bool { return c.Name == "" }

// Assignment binds the value of an expression to a variable in the
// current scope: `name = expr`.
type Assignment struct {
	Name    string
	NamePos Position
	Value   Expr
}

func (a *Assignment) Pos() Position { return a.NamePos }
func (a *Assignment) stmtNode()     {}

// Block is a braced statement sequence introducing a scope.
type Block struct {
	Stmts []Stmt
	P     Position
}

func (b *Block) Pos() Position { return b.P }
func (b *Block) stmtNode()     {}

// If is a conditional with an optional else branch.
type If struct {
	Cond Expr
	Then *Block
	Else *Block // nil when absent
	P    Position
}

func (i *If) Pos() Position { return i.P }
func (i *If) stmtNode()     {}

// While loops while its condition holds.
type While struct {
	Cond Expr
	Body *Block
	P    Position
}

func (w *While) Pos() Position { return w.P }
func (w *While) stmtNode()     {}

// For iterates a stream or list, binding each element.
type For struct {
	Var  string
	Iter Expr
	Body *Block
	P    Position
}

func (f *For) Pos() Position { return f.P }
func (f *For) stmtNode()     {}

// LitKind discriminates literal expressions.
type LitKind int

const (
	LitBool LitKind = iota
	LitInt
	LitFloat
	LitStr
)

// Literal is a primitive literal. Word is set when the literal came
// from a bare word in argument position; the checker may treat a word
// argument specially (field names for get/sort-by) but its type is
// always Str.
type Literal struct {
	Kind  LitKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Word  bool
	P     Position
}

func (l *Literal) Pos() Position { return l.P }
func (l *Literal) exprNode()     {}

// VarRef references a variable: `$name`, or a bare identifier inside
// an operator expression (predicates resolve these against the input
// record's fields).
type VarRef struct {
	Name string
	P    Position
}

func (v *VarRef) Pos() Position { return v.P }
func (v *VarRef) exprNode()     {}

// FieldAccess selects a named field: `$rec.size`.
type FieldAccess struct {
	X    Expr
	Name string
	P    Position
}

func (f *FieldAccess) Pos() Position { return f.P }
func (f *FieldAccess) exprNode()     {}

// BinOp is a binary operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binOpNames = map[BinOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||",
}

func (op BinOp) String() string { return binOpNames[op] }

// Binary applies a binary operator.
type Binary struct {
	Op   BinOp
	X, Y Expr
	P    Position
}

func (b *Binary) Pos() Position { return b.P }
func (b *Binary) exprNode()     {}

// Unary applies '!' or unary '-'.
type Unary struct {
	Op rune // '!' or '-'
	X  Expr
	P  Position
}

func (u *Unary) Pos() Position { return u.P }
func (u *Unary) exprNode()     {}

// ListLit is `[a, b, c]`.
type ListLit struct {
	Elems []Expr
	P     Position
}

func (l *ListLit) Pos() Position { return l.P }
func (l *ListLit) exprNode()     {}

// RecordField is one `name: expr` entry of a record literal.
type RecordField struct {
	Name string
	Val  Expr
}

// RecordLit is `{name: expr, ...}`.
type RecordLit struct {
	Fields []RecordField
	P      Position
}

func (r *RecordLit) Pos() Position { return r.P }
func (r *RecordLit) exprNode()     {}

// Interp is a double-quoted string with embedded $name segments. Parts
// alternate Literal and VarRef nodes; adjacent parts concatenate.
type Interp struct {
	Parts []Expr
	P     Position
}

func (i *Interp) Pos() Position { return i.P }
func (i *Interp) exprNode()     {}
