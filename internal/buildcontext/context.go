// Package buildcontext validates a project directory against the build
// contract (manifest plus entry script present) and streams it as a Docker
// build context.
package buildcontext

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/0xa1bed0/pyship/internal/fsops"
	"github.com/0xa1bed0/pyship/internal/manifest"
	"github.com/0xa1bed0/pyship/internal/versions"
)

// Sentinel errors let callers attribute a failure to the exact step that
// must report it.
var (
	ErrManifestMissing    = errors.New("dependency manifest not found in build context")
	ErrEntryScriptMissing = errors.New("entry point script not found in build context")
)

// DefaultIgnores are directory and file patterns never shipped to the build.
var DefaultIgnores = []string{".git", "__pycache__", ".venv", "venv", ".mypy_cache", ".pytest_cache"}

// Context is a validated project directory.
type Context struct {
	root string
	ops  fsops.Ops
}

// New builds a Context rooted at dir using the real filesystem.
func New(dir string) (*Context, error) {
	return NewWithOps(dir, fsops.DefaultOps())
}

// NewWithOps is the constructor that allows injecting filesystem
// dependencies for testing.
func NewWithOps(dir string, ops fsops.Ops) (*Context, error) {
	if dir == "" {
		return nil, errors.New("context path should not be empty")
	}
	if ops.Path == nil || ops.OS == nil || ops.Walker == nil {
		return nil, errors.New("build context dependencies cannot be nil")
	}

	abs, err := ops.Path.Abs(dir)
	if err != nil {
		return nil, err
	}

	fi, err := ops.OS.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}
	if !fi.IsDir() {
		return nil, errors.New("build context path is not a directory")
	}

	return &Context{
		root: ops.Path.Clean(abs),
		ops:  ops,
	}, nil
}

// Root returns the absolute context directory.
func (c *Context) Root() string { return c.root }

// HasFile reports whether a plain file exists directly under the root.
func (c *Context) HasFile(name string) (bool, error) {
	fi, err := c.ops.OS.Stat(c.ops.Path.Join(c.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !fi.IsDir(), nil
}

// ReadManifest loads and parses the dependency manifest. A missing file is
// reported as ErrManifestMissing so the manifest-copy step fails before any
// dependency work is attempted.
func (c *Context) ReadManifest(name string) (*manifest.Manifest, error) {
	ok, err := c.HasFile(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrManifestMissing, name)
	}

	data, err := c.ops.OS.ReadFile(c.ops.Path.Join(c.root, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return manifest.Parse(strings.NewReader(string(data)))
}

// VerifyEntryScript confirms the script the recorded entry point references
// exists. Non-script entry points (e.g. "python -m pkg") skip the check.
func (c *Context) VerifyEntryScript(script string) error {
	if script == "" {
		return nil
	}
	ok, err := c.HasFile(script)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryScriptMissing, script)
	}
	return nil
}

var (
	runtimeTxtRe     = regexp.MustCompile(`^python-(\d+\.\d+(?:\.\d+)?)\s*$`)
	requiresPythonRe = regexp.MustCompile(`requires-python\s*=\s*"([^"]+)"`)
)

// PythonVersionHint inspects well-known context files for a Python version
// and returns it as MAJOR.MINOR. Order: .python-version, runtime.txt,
// pyproject.toml requires-python. Absent or unreadable hints simply report
// found=false; the recipe default applies then.
func (c *Context) PythonVersionHint() (string, bool) {
	if v, ok := c.hintFromPythonVersionFile(); ok {
		return v, true
	}
	if v, ok := c.hintFromRuntimeTxt(); ok {
		return v, true
	}
	if v, ok := c.hintFromPyproject(); ok {
		return v, true
	}
	return "", false
}

func (c *Context) hintFromPythonVersionFile() (string, bool) {
	data, err := c.readRootFile(".python-version")
	if err != nil {
		return "", false
	}
	return minorOf(strings.TrimSpace(string(data)))
}

func (c *Context) hintFromRuntimeTxt() (string, bool) {
	data, err := c.readRootFile("runtime.txt")
	if err != nil {
		return "", false
	}
	m := runtimeTxtRe.FindStringSubmatch(strings.TrimSpace(string(data)))
	if m == nil {
		return "", false
	}
	return minorOf(m[1])
}

func (c *Context) hintFromPyproject() (string, bool) {
	data, err := c.readRootFile("pyproject.toml")
	if err != nil {
		return "", false
	}
	m := requiresPythonRe.FindStringSubmatch(string(data))
	if m == nil {
		return "", false
	}
	resolved, err := versions.MaxSatisfying([]string{m[1]})
	if err != nil && !errors.Is(err, versions.ErrConflictingSpecifiers) {
		return "", false
	}
	return minorOf(resolved)
}

func (c *Context) readRootFile(name string) ([]byte, error) {
	ok, err := c.HasFile(name)
	if err != nil || !ok {
		return nil, fs.ErrNotExist
	}
	return c.ops.OS.ReadFile(c.ops.Path.Join(c.root, name))
}

// minorOf trims a version string to MAJOR.MINOR.
func minorOf(v string) (string, bool) {
	segs := strings.Split(strings.TrimSpace(v), ".")
	if len(segs) < 2 {
		return "", false
	}
	for _, seg := range segs[:2] {
		if seg == "" || strings.IndexFunc(seg, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return "", false
		}
	}
	return segs[0] + "." + segs[1], true
}
