package syntax

import "fmt"

// ParseError reports malformed syntax. It is always local to one
// statement and carries enough position information for the caller to
// underline the offending span.
type ParseError struct {
	Pos      Position
	End      int // byte offset one past the offending token
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}
