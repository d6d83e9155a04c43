package constants

import "fmt"

// Scope selects which data directory a history command reads or writes.
type Scope string

const (
	ScopeLocal  Scope = "local"  // <project>/.phsim
	ScopeGlobal Scope = "global" // ~/.phsim
	ScopeBoth   Scope = "both"   // read both, local first; writes go local
)

// ParseScope validates s. The empty string means ScopeLocal.
func ParseScope(s string) (Scope, error) {
	if s == "" {
		return ScopeLocal, nil
	}
	scope := Scope(s)
	if !scope.Valid() {
		return "", fmt.Errorf("invalid scope %q (valid: local, global, both)", s)
	}
	return scope, nil
}

// Valid returns true if the scope is a recognized value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLocal, ScopeGlobal, ScopeBoth:
		return true
	}
	return false
}

// Includes reports whether s covers the single scope target.
func (s Scope) Includes(target Scope) bool {
	return s == target || s == ScopeBoth
}

func (s Scope) String() string {
	return string(s)
}
