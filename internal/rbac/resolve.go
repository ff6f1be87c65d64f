// Package rbac holds the permission resolution rule shared by every
// authorization decision: role grants, per-user grants and per-user denies
// folded into one effective set.
package rbac

import "sort"

// Wildcard is the catalog code that stands for every permission.
const Wildcard = "*"

// Override is a per-user exception to what the user's roles grant.
type Override struct {
	Code    string
	Granted bool
}

// EffectiveSet is the resolved permission set of one user at one point in
// time. The zero value grants nothing.
type EffectiveSet struct {
	codes  map[string]struct{}
	denied map[string]struct{}
}

// Resolve computes (roleGranted ∪ customGrants) − customDenies.
// roleGranted must already be restricted to active roles.
func Resolve(roleGranted []string, overrides []Override) EffectiveSet {
	set := EffectiveSet{
		codes:  make(map[string]struct{}, len(roleGranted)+len(overrides)),
		denied: make(map[string]struct{}),
	}

	for _, code := range roleGranted {
		set.codes[code] = struct{}{}
	}

	for _, o := range overrides {
		if o.Granted {
			set.codes[o.Code] = struct{}{}
		} else {
			set.denied[o.Code] = struct{}{}
		}
	}

	for code := range set.denied {
		delete(set.codes, code)
	}

	return set
}

// Decision is the outcome of evaluating one code against an EffectiveSet.
type Decision int

const (
	// NotGranted means the code is absent and no wildcard applies.
	NotGranted Decision = iota
	// Granted means the code itself is in the effective set.
	Granted
	// GrantedByWildcard means the code is covered only by "*".
	GrantedByWildcard
	// Denied means a per-user deny names this exact code. It beats "*".
	Denied
)

func (d Decision) Allowed() bool {
	return d == Granted || d == GrantedByWildcard
}

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case GrantedByWildcard:
		return "granted_by_wildcard"
	case Denied:
		return "denied"
	default:
		return "not_granted"
	}
}

// Decide evaluates code against the set.
func (s EffectiveSet) Decide(code string) Decision {
	if _, ok := s.denied[code]; ok {
		return Denied
	}
	if _, ok := s.codes[code]; ok {
		return Granted
	}
	if code != "" && s.HasWildcard() {
		return GrantedByWildcard
	}
	return NotGranted
}

// Allows reports whether code is permitted.
func (s EffectiveSet) Allows(code string) bool {
	return s.Decide(code).Allowed()
}

// AllowsAll reports whether every code is permitted.
func (s EffectiveSet) AllowsAll(codes ...string) bool {
	for _, code := range codes {
		if !s.Allows(code) {
			return false
		}
	}
	return true
}

func (s EffectiveSet) HasWildcard() bool {
	_, ok := s.codes[Wildcard]
	return ok
}

// Codes returns the effective codes in ascending order. "*" is reported as
// itself, not expanded against the catalog.
func (s EffectiveSet) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for code := range s.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// DeniedCodes returns the codes blocked by a per-user deny, ascending.
func (s EffectiveSet) DeniedCodes() []string {
	out := make([]string, 0, len(s.denied))
	for code := range s.denied {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func (s EffectiveSet) Len() int {
	return len(s.codes)
}
