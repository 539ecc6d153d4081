package permission

import "strings"

// Wildcard matches any entity or any action depending on its position.
const Wildcard = "*"

// Mode selects how a list of required permissions is combined.
type Mode int

const (
	// ModeAll requires every permission in the list to be granted.
	ModeAll Mode = iota
	// ModeAny requires at least one permission in the list to be granted.
	ModeAny
)

// Has reports whether the granted set satisfies a single required
// permission of the form "entity:action". A grant satisfies the
// requirement when it is the exact string, "entity:*", "*:action",
// or "*:*". Matching is structural: both sides are split on ":" and
// compared per position; there is no prefix or regex matching.
//
// A structurally invalid required string never matches (fail closed).
func Has(granted []string, required string) bool {
	entity, action, ok := split(required)
	if !ok {
		return false
	}

	for _, grant := range granted {
		ge, ga, ok := split(grant)
		if !ok {
			continue
		}
		if (ge == entity || ge == Wildcard) && (ga == action || ga == Wildcard) {
			return true
		}
	}

	return false
}

// HasAll reports whether every permission in required is satisfied.
// An empty required list is satisfied by any grant set.
func HasAll(granted []string, required []string) bool {
	for _, r := range required {
		if !Has(granted, r) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one permission in required is satisfied.
// An empty required list is never satisfied.
func HasAny(granted []string, required []string) bool {
	for _, r := range required {
		if Has(granted, r) {
			return true
		}
	}
	return false
}

// Evaluate applies HasAll or HasAny according to mode.
func Evaluate(granted []string, required []string, mode Mode) bool {
	if mode == ModeAny {
		return HasAny(granted, required)
	}
	return HasAll(granted, required)
}

// Union merges permission lists, dropping duplicates while preserving
// first-seen order. Used to combine role-derived permissions with
// explicit per-membership overrides.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, set := range sets {
		for _, p := range set {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	return out
}

func split(perm string) (entity, action string, ok bool) {
	idx := strings.IndexByte(perm, ':')
	if idx <= 0 || idx == len(perm)-1 {
		return "", "", false
	}
	return perm[:idx], perm[idx+1:], true
}
