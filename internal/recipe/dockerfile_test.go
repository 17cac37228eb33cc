package recipe

import (
	"strings"
	"testing"
)

func findLine(t *testing.T, df Dockerfile, prefix string) int {
	t.Helper()
	for i, line := range df {
		if strings.HasPrefix(line, prefix) {
			return i
		}
	}
	t.Fatalf("no line with prefix %q in:\n%s", prefix, df.String())
	return -1
}

func TestRenderDefaultRecipe(t *testing.T) {
	t.Parallel()

	rec := Default()
	df, err := rec.Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := df.String()

	for _, want := range []string{
		"FROM python:3.10-slim",
		"WORKDIR /app",
		"RUN pip install --upgrade pip",
		"COPY requirements.txt ./",
		"RUN pip install --no-cache-dir -r requirements.txt",
		"COPY . .",
		`CMD ["python","main.py"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered Dockerfile missing %q:\n%s", want, out)
		}
	}
}

func TestRenderManifestCopiedBeforeSource(t *testing.T) {
	t.Parallel()

	rec := Default()
	df, err := rec.Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	manifestCopy := findLine(t, df, "COPY requirements.txt")
	install := findLine(t, df, "RUN pip install --no-cache-dir")
	sourceCopy := findLine(t, df, "COPY . .")

	if !(manifestCopy < install && install < sourceCopy) {
		t.Fatalf("expected manifest copy (%d) < install (%d) < source copy (%d)", manifestCopy, install, sourceCopy)
	}
}

func TestRenderToolchainSingleLayer(t *testing.T) {
	t.Parallel()

	rec := Default()
	df, err := rec.Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := df.String()
	if !strings.Contains(out, "apt-get update") {
		t.Fatal("missing apt-get update")
	}
	if !strings.Contains(out, "apt-get install -y --no-install-recommends gcc python3-dev") {
		t.Fatalf("unexpected install line:\n%s", out)
	}
	if !strings.Contains(out, "rm -rf /var/lib/apt/lists/*") {
		t.Fatal("apt lists cleanup missing from the install layer")
	}

	// update, install, and cleanup share a single RUN
	if n := strings.Count(out, "apt-get update"); n != 1 {
		t.Fatalf("apt-get update appears %d times, want 1", n)
	}
	installRun := df[findLine(t, df, "RUN apt-get update")]
	if !strings.Contains(installRun, "&& \\") {
		t.Fatalf("toolchain install is not chained in one layer: %q", installRun)
	}
}

func TestRenderSkipsToolchainWhenEmpty(t *testing.T) {
	t.Parallel()

	rec := Default()
	rec.ToolchainPackages = nil
	df, err := rec.Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(df.String(), "apt-get") {
		t.Fatalf("toolchain step rendered for empty package list:\n%s", df.String())
	}
}

func TestRenderEnvSortedAndQuotedCMD(t *testing.T) {
	t.Parallel()

	rec := Default()
	rec.Env = map[string]string{"ZZZ": "1", "AAA": "2"}
	rec.EntryPoint = []string{"python", "app with space.py"}

	df, err := rec.Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	aaa := findLine(t, df, "ENV AAA=2")
	zzz := findLine(t, df, "ENV ZZZ=1")
	if aaa > zzz {
		t.Fatal("ENV lines not sorted by key")
	}

	if got := df[findLine(t, df, "CMD ")]; got != `CMD ["python","app with space.py"]` {
		t.Fatalf("CMD = %q", got)
	}
}

func TestRenderValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Recipe)
	}{
		{"bad python version", func(r *Recipe) { r.PythonVersion = "three.ten" }},
		{"relative workdir", func(r *Recipe) { r.Workdir = "app" }},
		{"manifest with path", func(r *Recipe) { r.ManifestName = "conf/requirements.txt" }},
		{"blank toolchain package", func(r *Recipe) { r.ToolchainPackages = []string{"gcc", " "} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := Default()
			tc.mutate(&rec)
			if _, err := rec.Render(); err == nil {
				t.Fatal("expected render to fail validation")
			}
		})
	}
}

func TestAptInstallChainDeduplicates(t *testing.T) {
	t.Parallel()

	got := aptInstallChain([]string{"python3-dev", "gcc", "gcc", ""})
	if !strings.Contains(got, "install -y --no-install-recommends gcc python3-dev") {
		t.Fatalf("aptInstallChain = %q", got)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	t.Parallel()

	var rec Recipe
	rec.Normalize()

	if rec.PythonVersion != DefaultPythonVersion {
		t.Errorf("PythonVersion = %q", rec.PythonVersion)
	}
	if rec.Workdir != DefaultWorkdir {
		t.Errorf("Workdir = %q", rec.Workdir)
	}
	if rec.ManifestName != DefaultManifestName {
		t.Errorf("ManifestName = %q", rec.ManifestName)
	}
	if len(rec.EntryPoint) != 2 || rec.EntryPoint[1] != DefaultEntryScript {
		t.Errorf("EntryPoint = %v", rec.EntryPoint)
	}
}

func TestEntryScript(t *testing.T) {
	t.Parallel()

	rec := Default()
	if got := rec.EntryScript(); got != "main.py" {
		t.Fatalf("EntryScript = %q, want main.py", got)
	}

	rec.EntryPoint = []string{"python", "-m", "mypkg"}
	if got := rec.EntryScript(); got != "" {
		t.Fatalf("EntryScript = %q, want empty for module entry points", got)
	}
}
