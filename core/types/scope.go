package types

// Scope is the type environment: a chain of frames mapping variable
// names to types. The innermost frame shadows outer frames. A frame is
// pushed when the checker enters a block and popped when it leaves, in
// lockstep with the execution engine's variable scopes.
type Scope struct {
	frames []map[string]Type
}

// NewScope returns a scope with a single root frame.
func NewScope() *Scope {
	return &Scope{frames: []map[string]Type{{}}}
}

// Push opens a new innermost frame.
func (s *Scope) Push() {
	s.frames = append(s.frames, map[string]Type{})
}

// Pop discards the innermost frame. The root frame is never popped.
func (s *Scope) Pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Bind adds or overwrites name in the innermost frame.
func (s *Scope) Bind(name string, t Type) {
	s.frames[len(s.frames)-1][name] = t
}

// Assign updates name in the frame where it already resolves, so a
// block body can reassign an outer variable without shadowing it.
// Unknown names bind in the innermost frame.
func (s *Scope) Assign(name string, t Type) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i][name]; ok {
			s.frames[i][name] = t
			return
		}
	}
	s.Bind(name, t)
}

// Resolve searches frames innermost to outermost.
func (s *Scope) Resolve(name string) (Type, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if t, ok := s.frames[i][name]; ok {
			return t, true
		}
	}
	return Type{}, false
}

// Depth returns the number of live frames, for tests asserting the
// push/pop discipline.
func (s *Scope) Depth() int {
	return len(s.frames)
}
