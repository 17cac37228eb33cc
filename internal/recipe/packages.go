package recipe

import (
	"sort"
	"strings"
)

// aptInstallChain renders the toolchain install as a single layer: update,
// install, then drop the package index so the index never reaches the final
// image. The chain aborts on the first failing command, which fails the
// whole build with no partial layer.
func aptInstallChain(pkgs []string) string {
	names := uniqueSorted(pkgs)

	parts := []string{
		"apt-get update",
		"apt-get install -y --no-install-recommends " + strings.Join(names, " "),
		"rm -rf /var/lib/apt/lists/*",
	}
	return strings.Join(parts, " && \\\n    ")
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
