package types

import (
	"fmt"
	"sort"
)

// ErrDuplicateBuiltin is wrapped by Register when a name is claimed twice.
var ErrDuplicateBuiltin = fmt.Errorf("duplicate builtin")

// Registry maps builtin names to their declared signatures, plus the
// configured alias table. It is populated at startup and read-only for
// the rest of the session, so lookups take no lock.
type Registry struct {
	builtins map[string]*Signature
	aliases  map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builtins: make(map[string]*Signature),
		aliases:  make(map[string][]string),
	}
}

// Register adds a builtin signature. Registering the same name twice
// fails with ErrDuplicateBuiltin.
func (r *Registry) Register(sig Signature) error {
	if _, ok := r.builtins[sig.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateBuiltin, sig.Name)
	}
	s := sig
	r.builtins[sig.Name] = &s
	return nil
}

// Unregister removes a builtin, used for config-disabled commands. The
// name then falls back to external resolution like any bare word.
func (r *Registry) Unregister(name string) {
	delete(r.builtins, name)
}

// LookupBuiltin returns the signature registered under name.
func (r *Registry) LookupBuiltin(name string) (*Signature, bool) {
	sig, ok := r.builtins[name]
	return sig, ok
}

// SetAlias installs an alias as pre-split words; the first word is the
// target command, the rest become leading string arguments.
func (r *Registry) SetAlias(name string, words []string) {
	r.aliases[name] = words
}

// LookupAlias returns the expansion words for name.
func (r *Registry) LookupAlias(name string) ([]string, bool) {
	words, ok := r.aliases[name]
	return words, ok
}

// Names returns all registered builtin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
