package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) Stmt {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)
	return prog.Stmts[0]
}

func parsePipe(t *testing.T, src string) *Pipeline {
	t.Helper()
	stmt := parseOne(t, src)
	pipe, ok := stmt.(*Pipeline)
	require.True(t, ok, "expected a pipeline, got %T", stmt)
	return pipe
}

func TestParsePipelineStages(t *testing.T) {
	pipe := parsePipe(t, "ls | where size > 100 | get name")
	require.Len(t, pipe.Stages, 3)

	assert.Equal(t, "ls", pipe.Stages[0].Name)
	assert.Equal(t, "where", pipe.Stages[1].Name)
	assert.Equal(t, "get", pipe.Stages[2].Name)

	require.Len(t, pipe.Stages[1].Args, 1)
	cmp, ok := pipe.Stages[1].Args[0].(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpGt, cmp.Op)

	// Bare words in operand position become variable references so
	// predicates can resolve them against record fields.
	ref, ok := cmp.X.(*VarRef)
	require.True(t, ok)
	assert.Equal(t, "size", ref.Name)

	lit, ok := cmp.Y.(*Literal)
	require.True(t, ok)
	assert.Equal(t, int64(100), lit.Int)
}

func TestParseArgumentsStayWords(t *testing.T) {
	pipe := parsePipe(t, "ls -a /tmp")
	args := pipe.Stages[0].Args
	require.Len(t, args, 2)

	for i, want := range []string{"-a", "/tmp"} {
		lit, ok := args[i].(*Literal)
		require.True(t, ok)
		assert.Equal(t, LitStr, lit.Kind)
		assert.Equal(t, want, lit.Str)
		assert.True(t, lit.Word)
	}
}

func TestParsePipeContinuesAcrossNewline(t *testing.T) {
	pipe := parsePipe(t, "ls |\n  get name")
	assert.Len(t, pipe.Stages, 2)
}

func TestParseRedirectVsComparison(t *testing.T) {
	t.Run("comparison inside arguments", func(t *testing.T) {
		pipe := parsePipe(t, "where size > 100")
		cmd := pipe.Stages[0]
		assert.Empty(t, cmd.Redirects)
		require.Len(t, cmd.Args, 1)
		assert.IsType(t, &Binary{}, cmd.Args[0])
	})

	t.Run("trailing target is a redirect", func(t *testing.T) {
		pipe := parsePipe(t, "sort names.txt > out.txt")
		cmd := pipe.Stages[0]
		require.Len(t, cmd.Redirects, 1)
		assert.Equal(t, RedirOut, cmd.Redirects[0].Kind)
		assert.Equal(t, "out.txt", cmd.Redirects[0].Target)
		require.Len(t, cmd.Args, 1)
	})

	t.Run("comparison and redirect on one command", func(t *testing.T) {
		pipe := parsePipe(t, "where size > 100 > big.txt")
		cmd := pipe.Stages[0]
		require.Len(t, cmd.Args, 1)
		assert.IsType(t, &Binary{}, cmd.Args[0])
		require.Len(t, cmd.Redirects, 1)
		assert.Equal(t, "big.txt", cmd.Redirects[0].Target)
	})

	t.Run("append", func(t *testing.T) {
		pipe := parsePipe(t, "pwd >> log.txt")
		require.Len(t, pipe.Stages[0].Redirects, 1)
		assert.Equal(t, RedirAppend, pipe.Stages[0].Redirects[0].Kind)
	})

	t.Run("input", func(t *testing.T) {
		pipe := parsePipe(t, "wc -l < notes.txt")
		cmd := pipe.Stages[0]
		require.Len(t, cmd.Redirects, 1)
		assert.Equal(t, RedirIn, cmd.Redirects[0].Kind)
		assert.Equal(t, "notes.txt", cmd.Redirects[0].Target)
	})

	t.Run("no redirects inside parentheses", func(t *testing.T) {
		pipe := parsePipe(t, "echo ($x > y)")
		cmd := pipe.Stages[0]
		assert.Empty(t, cmd.Redirects)
		require.Len(t, cmd.Args, 1)
		assert.IsType(t, &Binary{}, cmd.Args[0])
	})
}

func TestParseExpressionStage(t *testing.T) {
	pipe := parsePipe(t, "1 + 2 | to-json")
	require.Len(t, pipe.Stages, 2)
	assert.True(t, pipe.Stages[0].IsExpr())
	assert.IsType(t, &Binary{}, pipe.Stages[0].Expr)
	assert.Equal(t, "to-json", pipe.Stages[1].Name)
}

func TestParseLeadingWordExpressions(t *testing.T) {
	cases := []struct {
		src string
		op  BinOp
	}{
		{"true && false", OpAnd},
		{"false || true", OpOr},
		{"x + 1", OpAdd},
		{"n - 1", OpSub},
		{"n / 2", OpDiv},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			pipe := parsePipe(t, tc.src)
			cmd := pipe.Stages[0]
			require.True(t, cmd.IsExpr(), "parsed as command %q", cmd.Name)
			bin, ok := cmd.Expr.(*Binary)
			require.True(t, ok)
			assert.Equal(t, tc.op, bin.Op)
		})
	}
}

func TestParseExpressionStageNeverRedirects(t *testing.T) {
	pipe := parsePipe(t, `"a" < "b"`)
	cmd := pipe.Stages[0]
	require.True(t, cmd.IsExpr())
	assert.Empty(t, cmd.Redirects)

	cmp, ok := cmd.Expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpLt, cmp.Op)

	pipe = parsePipe(t, `1 + 1 > 2`)
	cmp, ok = pipe.Stages[0].Expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpGt, cmp.Op)
	assert.Empty(t, pipe.Stages[0].Redirects)
}

func TestParsePrecedence(t *testing.T) {
	pipe := parsePipe(t, "1 + 2 * 3")
	add, ok := pipe.Stages[0].Expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAdd, add.Op)

	mul, ok := add.Y.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpMul, mul.Op)

	pipe = parsePipe(t, "$a || $b && $c")
	or, ok := pipe.Stages[0].Expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpOr, or.Op)
	assert.IsType(t, &Binary{}, or.Y)
}

func TestParseParenthesesOverridePrecedence(t *testing.T) {
	pipe := parsePipe(t, "(1 + 2) * 3")
	mul, ok := pipe.Stages[0].Expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpMul, mul.Op)
	assert.IsType(t, &Binary{}, mul.X)
}

func TestParseDivision(t *testing.T) {
	pipe := parsePipe(t, "10 / 2")
	div, ok := pipe.Stages[0].Expr.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpDiv, div.Op)
}

func TestParseUnary(t *testing.T) {
	pipe := parsePipe(t, "!true")
	not, ok := pipe.Stages[0].Expr.(*Unary)
	require.True(t, ok)
	assert.Equal(t, '!', int32(not.Op))

	pipe = parsePipe(t, "-5 + 1")
	add := pipe.Stages[0].Expr.(*Binary)
	neg, ok := add.X.(*Unary)
	require.True(t, ok)
	assert.Equal(t, '-', int32(neg.Op))
}

func TestParseFieldAccess(t *testing.T) {
	pipe := parsePipe(t, "$entry.size + 1")
	add := pipe.Stages[0].Expr.(*Binary)
	fa, ok := add.X.(*FieldAccess)
	require.True(t, ok)
	assert.Equal(t, "size", fa.Name)

	ref, ok := fa.X.(*VarRef)
	require.True(t, ok)
	assert.Equal(t, "entry", ref.Name)
}

func TestParseFieldChain(t *testing.T) {
	pipe := parsePipe(t, "$a.b.c")
	outer, ok := pipe.Stages[0].Expr.(*FieldAccess)
	require.True(t, ok)
	assert.Equal(t, "c", outer.Name)
	inner, ok := outer.X.(*FieldAccess)
	require.True(t, ok)
	assert.Equal(t, "b", inner.Name)
}

func TestParseAssignment(t *testing.T) {
	stmt := parseOne(t, "limit = 100 * 2")
	asn, ok := stmt.(*Assignment)
	require.True(t, ok)
	assert.Equal(t, "limit", asn.Name)
	assert.IsType(t, &Binary{}, asn.Value)
}

func TestParseListLiteral(t *testing.T) {
	pipe := parsePipe(t, "[1, 2, 3]")
	list, ok := pipe.Stages[0].Expr.(*ListLit)
	require.True(t, ok)
	assert.Len(t, list.Elems, 3)
}

func TestParseRecordLiteral(t *testing.T) {
	// At statement head '{' opens a block, so record literals appear
	// in expression position.
	asn, ok := parseOne(t, `x = {name: "a", size: 5}`).(*Assignment)
	require.True(t, ok)
	rec, ok := asn.Value.(*RecordLit)
	require.True(t, ok)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "name", rec.Fields[0].Name)
	assert.Equal(t, "size", rec.Fields[1].Name)
}

func TestParseStringInterpolation(t *testing.T) {
	pipe := parsePipe(t, `"hi $name!"`)
	interp, ok := pipe.Stages[0].Expr.(*Interp)
	require.True(t, ok)
	require.Len(t, interp.Parts, 3)

	assert.Equal(t, "hi ", interp.Parts[0].(*Literal).Str)
	assert.Equal(t, "name", interp.Parts[1].(*VarRef).Name)
	assert.Equal(t, "!", interp.Parts[2].(*Literal).Str)
}

func TestParseSingleQuotesAreLiteral(t *testing.T) {
	pipe := parsePipe(t, `'hi $name'`)
	lit, ok := pipe.Stages[0].Expr.(*Literal)
	require.True(t, ok)
	assert.Equal(t, "hi $name", lit.Str)
}

func TestParseEscapes(t *testing.T) {
	pipe := parsePipe(t, `"a\tb\n\$x"`)
	lit, ok := pipe.Stages[0].Expr.(*Literal)
	require.True(t, ok)
	assert.Equal(t, "a\tb\n$x", lit.Str)
}

func TestParseIfElse(t *testing.T) {
	stmt := parseOne(t, "if $x > 1 { pwd } else if $x > 0 { cd } else { ls }")
	cond, ok := stmt.(*If)
	require.True(t, ok)
	assert.IsType(t, &Binary{}, cond.Cond)
	require.Len(t, cond.Then.Stmts, 1)

	elif, ok := cond.Else.Stmts[0].(*If)
	require.True(t, ok)
	require.NotNil(t, elif.Else)
	assert.Len(t, elif.Else.Stmts, 1)
}

func TestParseWhile(t *testing.T) {
	stmt := parseOne(t, "while $n > 0 {\n  n = $n - 1\n}")
	loop, ok := stmt.(*While)
	require.True(t, ok)
	require.Len(t, loop.Body.Stmts, 1)
	assert.IsType(t, &Assignment{}, loop.Body.Stmts[0])
}

func TestParseFor(t *testing.T) {
	stmt := parseOne(t, "for x in [1, 2] { x }")
	loop, ok := stmt.(*For)
	require.True(t, ok)
	assert.Equal(t, "x", loop.Var)
	assert.IsType(t, &ListLit{}, loop.Iter)
}

func TestParseMultipleStatements(t *testing.T) {
	prog, err := Parse("pwd; ls\ncd /tmp")
	require.NoError(t, err)
	assert.Len(t, prog.Stmts, 3)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty pipe stage", "ls | | get name"},
		{"missing assignment value", "x ="},
		{"missing block", "if $x pwd"},
		{"missing for variable", "for in [1] { }"},
		{"unclosed list", "[1, 2"},
		{"dangling operator", "1 +"},
		{"stray ampersand", "ls & pwd"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.NotEmpty(t, perr.Expected)
			assert.Greater(t, perr.Pos.Line, 0)
		})
	}
}

func TestParseErrorPositions(t *testing.T) {
	_, err := Parse("ls |\nwhere size >")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Pos.Line)
}
