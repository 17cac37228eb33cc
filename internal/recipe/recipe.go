// Package recipe models the build procedure for a Python application image
// as explicit configuration plus a deterministic Dockerfile renderer.
package recipe

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultPythonVersion is pinned to a major/minor that the Azure ML SDK
	// family supports. Callers can override it per project.
	DefaultPythonVersion = "3.10"

	DefaultWorkdir      = "/app"
	DefaultManifestName = "requirements.txt"
	DefaultEntryScript  = "main.py"
)

// DefaultToolchainPackages are the OS packages needed to compile native
// extensions during dependency install. Re-derived per project when the
// manifest needs none of them, but installed by default to match the
// historical recipe.
var DefaultToolchainPackages = []string{"gcc", "python3-dev"}

var pythonVersionRe = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// Recipe is the full configuration of the build-and-run procedure. Every
// field that the original recipe hard-coded is an explicit parameter here.
type Recipe struct {
	// PythonVersion selects the base image tag "python:<version>-slim".
	PythonVersion string

	// Workdir is the absolute path all build steps and the entry point
	// run relative to.
	Workdir string

	// ManifestName is the dependency manifest file, copied and installed
	// strictly before the rest of the source tree.
	ManifestName string

	// ToolchainPackages are apt packages installed before any pip work.
	// An empty slice skips the OS install step entirely.
	ToolchainPackages []string

	// EntryPoint is the command recorded as the image CMD. It is never
	// executed during the build.
	EntryPoint []string

	// Env is extra environment baked into the image.
	Env map[string]string
}

// Default returns a Recipe equivalent to the original hard-coded procedure.
func Default() Recipe {
	return Recipe{
		PythonVersion:     DefaultPythonVersion,
		Workdir:           DefaultWorkdir,
		ManifestName:      DefaultManifestName,
		ToolchainPackages: append([]string{}, DefaultToolchainPackages...),
		EntryPoint:        []string{"python", DefaultEntryScript},
	}
}

// Normalize fills zero-valued fields with defaults so partially constructed
// recipes stay usable.
func (r *Recipe) Normalize() {
	if r.PythonVersion == "" {
		r.PythonVersion = DefaultPythonVersion
	}
	if r.Workdir == "" {
		r.Workdir = DefaultWorkdir
	}
	if r.ManifestName == "" {
		r.ManifestName = DefaultManifestName
	}
	if len(r.EntryPoint) == 0 {
		r.EntryPoint = []string{"python", DefaultEntryScript}
	}
}

// Validate rejects configurations the renderer cannot express.
func (r *Recipe) Validate() error {
	if !pythonVersionRe.MatchString(r.PythonVersion) {
		return fmt.Errorf("invalid python version %q: want MAJOR.MINOR or MAJOR.MINOR.PATCH", r.PythonVersion)
	}
	if !strings.HasPrefix(r.Workdir, "/") {
		return fmt.Errorf("workdir %q must be an absolute path", r.Workdir)
	}
	if strings.ContainsAny(r.ManifestName, "/\\") {
		return fmt.Errorf("manifest name %q must be a plain filename", r.ManifestName)
	}
	if len(r.EntryPoint) == 0 {
		return errors.New("entry point command is empty")
	}
	for _, pkg := range r.ToolchainPackages {
		if strings.TrimSpace(pkg) == "" {
			return errors.New("toolchain package names must be non-empty")
		}
	}
	return nil
}

// BaseImage is the pinned base image reference for this recipe.
func (r *Recipe) BaseImage() string {
	return "python:" + r.PythonVersion + "-slim"
}

// EntryScript returns the script argument of a "python <script>" entry
// point, or "" when the entry point has another shape.
func (r *Recipe) EntryScript() string {
	if len(r.EntryPoint) == 2 && (r.EntryPoint[0] == "python" || r.EntryPoint[0] == "python3") {
		return r.EntryPoint[1]
	}
	return ""
}

func sortedEnvKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
