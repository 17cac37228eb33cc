// Package versions translates pip-style version specifiers into semver
// constraints and resolves concrete versions from them.
package versions

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrConflictingSpecifiers is the sentinel you can check with errors.Is.
var ErrConflictingSpecifiers = errors.New("conflicting version specifiers")

// ConflictError indicates no candidate satisfied all specifiers.
// The call still returns a best-effort chosen version.
type ConflictError struct {
	Specifiers []string
	Candidates []string
	Chosen     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: no candidate satisfies all specifiers; using %s", ErrConflictingSpecifiers, e.Chosen)
}

func (e *ConflictError) Unwrap() error { return ErrConflictingSpecifiers }

// specRe matches a single pip specifier clause: an operator followed by a
// version that may carry a trailing ".*" wildcard.
var specRe = regexp.MustCompile(`^(===|==|!=|~=|>=|<=|>|<)\s*([vV]?[0-9][0-9A-Za-z.*+!-]*)$`)

// Specifier is one parsed clause such as ">=2.0" or "==2.0.0".
type Specifier struct {
	Op      string
	Version string
}

func (s Specifier) String() string { return s.Op + s.Version }

// ParseSpecifiers splits a comma-separated pip specifier set into clauses.
// An empty input yields an empty (match-anything) set.
func ParseSpecifiers(raw string) ([]Specifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]Specifier, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty clause in specifier set %q", raw)
		}
		m := specRe.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("invalid version specifier %q", part)
		}
		out = append(out, Specifier{Op: m[1], Version: m[2]})
	}
	return out, nil
}

// Constraint converts parsed specifiers into a semver constraint set.
// All clauses are ANDed, matching pip semantics.
func Constraint(specs []Specifier) (*semver.Constraints, error) {
	if len(specs) == 0 {
		return semver.NewConstraint("*")
	}

	clauses := make([]string, 0, len(specs))
	for _, s := range specs {
		clause, err := toSemverClause(s)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return semver.NewConstraint(strings.Join(clauses, ", "))
}

// toSemverClause maps one pip operator onto Masterminds syntax.
//
//	==1.2.3  -> =1.2.3       ==1.2.*  -> 1.2.*
//	~=1.2.3  -> >=1.2.3, ^1.2 (compatible release)
//	===1.2.3 -> =1.2.3 (arbitrary equality degrades to exact match)
func toSemverClause(s Specifier) (string, error) {
	v := strings.TrimPrefix(strings.TrimPrefix(s.Version, "v"), "V")

	switch s.Op {
	case "==", "===":
		if strings.HasSuffix(v, ".*") {
			return v, nil // wildcard match, e.g. "1.2.*"
		}
		return "=" + v, nil
	case "!=", ">", ">=", "<", "<=":
		if strings.HasSuffix(v, ".*") && s.Op != "!=" {
			return "", fmt.Errorf("wildcard version %q only valid with == or !=", s.String())
		}
		return s.Op + strings.TrimSuffix(v, ".*"), nil
	case "~=":
		// ~=X.Y   means >=X.Y, ==X.*
		// ~=X.Y.Z means >=X.Y.Z, ==X.Y.*
		segs := strings.Split(v, ".")
		if len(segs) < 2 {
			return "", fmt.Errorf("compatible-release specifier %q needs at least two segments", s.String())
		}
		prefix := strings.Join(segs[:len(segs)-1], ".")
		return fmt.Sprintf(">=%s, %s.*", v, prefix), nil
	default:
		return "", fmt.Errorf("unsupported operator %q", s.Op)
	}
}

// Pinned reports the exact version when the specifier set pins one
// (a single == or === clause with no wildcard).
func Pinned(specs []Specifier) (string, bool) {
	if len(specs) != 1 {
		return "", false
	}
	s := specs[0]
	if (s.Op == "==" || s.Op == "===") && !strings.HasSuffix(s.Version, ".*") {
		return s.Version, true
	}
	return "", false
}

// MaxSatisfying returns the largest version that satisfies all given
// specifier sets, choosing only from versions explicitly mentioned inside
// the specifier text itself. Partials are normalized (3.10 -> 3.10.0).
// When nothing satisfies every set, it returns the overall max together
// with a *ConflictError.
func MaxSatisfying(specSets []string) (string, error) {
	if len(specSets) == 0 {
		return "", errors.New("no specifiers provided")
	}

	parsed := make([]*semver.Constraints, 0, len(specSets))
	for _, raw := range specSets {
		specs, err := ParseSpecifiers(raw)
		if err != nil {
			return "", err
		}
		c, err := Constraint(specs)
		if err != nil {
			return "", err
		}
		parsed = append(parsed, c)
	}

	candidates := collectCandidates(specSets)
	if len(candidates) == 0 {
		return "", errors.New("no candidate versions found in specifiers")
	}

	filtered := make([]*semver.Version, 0, len(candidates))
	for _, v := range candidates {
		ok := true
		for _, c := range parsed {
			if !c.Check(v) {
				ok = false
				break
			}
		}
		if ok {
			filtered = append(filtered, v)
		}
	}

	pickMax := func(list []*semver.Version) *semver.Version {
		sort.Slice(list, func(i, j int) bool { return list[i].LessThan(list[j]) })
		return list[len(list)-1]
	}

	if len(filtered) > 0 {
		return pickMax(filtered).String(), nil
	}

	choice := pickMax(candidates).String()
	cands := make([]string, len(candidates))
	for i, v := range candidates {
		cands[i] = v.String()
	}
	return choice, &ConflictError{
		Specifiers: specSets,
		Candidates: cands,
		Chosen:     choice,
	}
}

// collectCandidates scans specifier text for version-like tokens, normalizes
// partials to full semver, and synthesizes implied candidates for strict
// comparators (>3 implies 4.0.0 as a candidate, <3 implies 2.0.0).
func collectCandidates(specSets []string) []*semver.Version {
	litRe := regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)
	opRe := regexp.MustCompile(`(>=|<=|>|<|==|~=)\s*(\d+)`)

	seen := make(map[string]struct{})
	out := make([]*semver.Version, 0, 8)

	add := func(s string) {
		v, err := semver.NewVersion(s)
		if err != nil {
			return
		}
		key := v.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}

	normalize := func(maj, min, pat string) string {
		if min == "" {
			min = "0"
		}
		if pat == "" {
			pat = "0"
		}
		return maj + "." + min + "." + pat
	}

	for _, s := range specSets {
		for _, m := range litRe.FindAllStringSubmatch(s, -1) {
			add(normalize(m[1], m[2], m[3]))
		}
		for _, m := range opRe.FindAllStringSubmatch(s, -1) {
			var maj int
			fmt.Sscanf(m[2], "%d", &maj)
			switch m[1] {
			case ">":
				add(fmt.Sprintf("%d.0.0", maj+1))
			case "<":
				if maj > 0 {
					add(fmt.Sprintf("%d.0.0", maj-1))
				}
			}
		}
	}

	return out
}
