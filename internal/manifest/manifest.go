// Package manifest reads dependency manifests in the requirements.txt
// format: one package constraint per line, '#' comments, optional extras
// and environment markers.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/0xa1bed0/pyship/internal/versions"
)

// ErrEmptyManifest is returned when the manifest declares no requirements
// at all. An empty manifest is almost always a broken build context.
var ErrEmptyManifest = errors.New("manifest declares no requirements")

// ParseError points at the exact manifest line that could not be read.
type ParseError struct {
	Line int
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// nameRe accepts PEP 508 project names plus an optional extras group.
var nameRe = regexp.MustCompile(`^([A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?)(\[([A-Za-z0-9._,\s-]+)\])?`)

// Requirement is one declared dependency.
type Requirement struct {
	Name       string
	Extras     []string
	Specifiers []versions.Specifier
	URL        string // direct reference ("name @ url"), mutually exclusive with Specifiers
	Marker     string // raw environment marker, after ';'
	Line       int
	Raw        string
}

// Pinned reports the exact version when the requirement pins one.
func (r Requirement) Pinned() (string, bool) {
	return versions.Pinned(r.Specifiers)
}

// Constraint returns the requirement's specifiers as a semver constraint.
func (r Requirement) Constraint() (string, error) {
	c, err := versions.Constraint(r.Specifiers)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// Manifest is a parsed dependency manifest.
type Manifest struct {
	Requirements []Requirement

	// Options collects pip option lines (-r, -e, --index-url, ...) verbatim.
	// pyship passes the manifest to pip unmodified, so these only need to
	// survive parsing, not interpretation.
	Options []string
}

// Parse reads a requirements.txt style manifest. Line continuations with a
// trailing backslash are joined before parsing.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	pending := ""
	pendingStart := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if i := commentIndex(line); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if pending == "" {
			pendingStart = lineNo
		}
		if strings.HasSuffix(line, "\\") {
			pending += strings.TrimSuffix(line, "\\") + " "
			continue
		}
		full := strings.TrimSpace(pending + line)
		pending = ""

		if strings.HasPrefix(full, "-") {
			m.Options = append(m.Options, full)
			continue
		}

		req, err := parseRequirement(full)
		if err != nil {
			return nil, &ParseError{Line: pendingStart, Raw: full, Err: err}
		}
		req.Line = pendingStart
		m.Requirements = append(m.Requirements, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if pending != "" {
		return nil, &ParseError{Line: pendingStart, Raw: pending, Err: errors.New("dangling line continuation")}
	}

	return m, nil
}

// commentIndex finds the start of a comment. Like pip, '#' only opens a
// comment at the start of the line or after whitespace; a '#' inside a token
// (URL fragments like "pkg @ https://host/a.zip#sha256=...") is literal.
func commentIndex(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t') {
			return i
		}
	}
	return -1
}

func parseRequirement(raw string) (Requirement, error) {
	req := Requirement{Raw: raw}

	rest := raw
	if i := strings.Index(rest, ";"); i >= 0 {
		req.Marker = strings.TrimSpace(rest[i+1:])
		rest = strings.TrimSpace(rest[:i])
	}

	m := nameRe.FindStringSubmatch(rest)
	if m == nil || m[1] == "" {
		return req, errors.New("missing package name")
	}
	req.Name = m[1]
	if m[4] != "" {
		for _, extra := range strings.Split(m[4], ",") {
			extra = strings.TrimSpace(extra)
			if extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
	}

	specPart := strings.TrimSpace(rest[len(m[0]):])

	// PEP 508 direct reference: "name @ url" pins a location, not a version.
	if strings.HasPrefix(specPart, "@") {
		req.URL = strings.TrimSpace(strings.TrimPrefix(specPart, "@"))
		if req.URL == "" {
			return req, errors.New("empty direct reference")
		}
		return req, nil
	}

	specs, err := versions.ParseSpecifiers(specPart)
	if err != nil {
		return req, err
	}
	req.Specifiers = specs

	return req, nil
}

// Validate checks that every requirement's specifiers translate into a
// usable constraint. It does not resolve packages; unresolvable versions
// are pip's job and surface at the dependency-install step.
func (m *Manifest) Validate() error {
	if len(m.Requirements) == 0 && len(m.Options) == 0 {
		return ErrEmptyManifest
	}
	for _, req := range m.Requirements {
		if _, err := versions.Constraint(req.Specifiers); err != nil {
			return &ParseError{Line: req.Line, Raw: req.Raw, Err: err}
		}
	}
	return nil
}

// Names returns the declared package names in manifest order.
func (m *Manifest) Names() []string {
	out := make([]string, 0, len(m.Requirements))
	for _, req := range m.Requirements {
		out = append(out, req.Name)
	}
	return out
}
