package recipe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/0xa1bed0/pyship/internal/version"
)

type Dockerfile []string

func (df Dockerfile) String() string {
	out := ""
	for _, line := range df {
		out += line + "\n"
	}
	return out
}

// Labels stamped on every produced image for later discovery and cleanup.
const (
	LabelManaged    = "pyship"
	LabelEntrypoint = "pyship.entrypoint"
)

// Render emits the Dockerfile for the recipe. Step order is mandatory:
// dependency install happens strictly before the source copy so that source
// edits never invalidate the dependency layers.
func (r *Recipe) Render() (Dockerfile, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}

	lines := Dockerfile{}

	lines = append(lines, "# ───────────────────────────────────────────")
	lines = append(lines, "# BASE RUNTIME (PINNED)")
	lines = append(lines, fmt.Sprintf("FROM %s", r.BaseImage()))

	if len(r.Env) > 0 {
		lines = append(lines, "", "# ───────────────────────────────────────────")
		lines = append(lines, "# ENVIRONMENT")
		for _, k := range sortedEnvKeys(r.Env) {
			lines = append(lines, fmt.Sprintf("ENV %s=%s", k, r.Env[k]))
		}
	}

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# WORKDIR")
	lines = append(lines, fmt.Sprintf("WORKDIR %s", r.Workdir))

	if len(r.ToolchainPackages) > 0 {
		lines = append(lines, "", "# ───────────────────────────────────────────")
		lines = append(lines, "# OS TOOLCHAIN (native extension builds)")
		lines = append(lines, "RUN "+aptInstallChain(r.ToolchainPackages))
	}

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# DEPENDENCIES (manifest only, keeps this layer cacheable)")
	lines = append(lines, "RUN pip install --upgrade pip")
	lines = append(lines, fmt.Sprintf("COPY %s ./", r.ManifestName))
	lines = append(lines, fmt.Sprintf("RUN pip install --no-cache-dir -r %s", r.ManifestName))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# APPLICATION SOURCE")
	lines = append(lines, "COPY . .")

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# ENTRY POINT (recorded, not executed at build time)")
	lines = append(lines, "CMD "+jsonExec(r.EntryPoint))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# AUDIT LABELS")
	lines = append(lines, fmt.Sprintf("LABEL %s=%s", LabelEntrypoint, quoteLabel(strings.Join(r.EntryPoint, " "))))
	lines = append(lines, fmt.Sprintf("LABEL %s=true", LabelManaged))
	lines = append(lines, fmt.Sprintf("LABEL %s=%d", version.ImageSchemaVersionLabel, version.ImageSchemaVersion))

	return lines, nil
}

func jsonExec(argv []string) string {
	b, _ := json.Marshal(argv)
	return string(b)
}

func quoteLabel(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}
