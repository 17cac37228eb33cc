package buildcontext

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// readTar collects entry names and file contents from an archive.
func readTar(t *testing.T, r io.Reader) (names []string, contents map[string]string) {
	t.Helper()
	contents = map[string]string{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return names, contents
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		names = append(names, hdr.Name)
		if hdr.Typeflag != tar.TypeDir {
			data, err := io.ReadAll(tr)
			if err != nil {
				t.Fatalf("read tar entry %s: %v", hdr.Name, err)
			}
			contents[hdr.Name] = string(data)
		}
	}
}

func TestTarArchivesContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.py", "print('hi')\n")
	writeFile(t, dir, "requirements.txt", "flask==2.0.0\n")
	if err := os.MkdirAll(filepath.Join(dir, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, filepath.Join("pkg", "util.py"), "x = 1\n")

	c := newTestContext(t, dir)
	var buf bytes.Buffer
	if err := c.Tar(&buf, nil); err != nil {
		t.Fatalf("Tar returned error: %v", err)
	}

	names, contents := readTar(t, &buf)
	want := map[string]bool{"main.py": true, "requirements.txt": true, "pkg/": true, "pkg/util.py": true}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected entry %q", n)
		}
		delete(want, n)
	}
	for n := range want {
		t.Errorf("missing entry %q", n)
	}
	if contents["pkg/util.py"] != "x = 1\n" {
		t.Errorf("pkg/util.py content = %q", contents["pkg/util.py"])
	}
}

func TestTarPrunesIgnoredDirsAndPyc(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.py", "pass\n")
	writeFile(t, dir, "main.pyc", "bytecode")
	for _, ig := range []string{".git", "__pycache__", ".venv"} {
		if err := os.MkdirAll(filepath.Join(dir, ig), 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, dir, filepath.Join(ig, "junk"), "junk")
	}

	c := newTestContext(t, dir)
	var buf bytes.Buffer
	if err := c.Tar(&buf, nil); err != nil {
		t.Fatalf("Tar returned error: %v", err)
	}

	names, _ := readTar(t, &buf)
	if len(names) != 1 || names[0] != "main.py" {
		t.Fatalf("entries = %v, want only main.py", names)
	}
}

func TestTarAppendsExtraEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.py", "pass\n")
	// A Dockerfile already in the tree must lose to the generated one: the
	// extra entry comes later in the archive, and later entries win.
	writeFile(t, dir, "Dockerfile", "FROM scratch\n")

	c := newTestContext(t, dir)
	var buf bytes.Buffer
	extra := map[string][]byte{"Dockerfile": []byte("FROM python:3.10-slim\n")}
	if err := c.Tar(&buf, extra); err != nil {
		t.Fatalf("Tar returned error: %v", err)
	}

	tr := tar.NewReader(&buf)
	var last *tar.Header
	var lastData string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		data, _ := io.ReadAll(tr)
		last, lastData = hdr, string(data)
	}

	if last == nil || last.Name != "Dockerfile" {
		t.Fatalf("last entry = %+v, want Dockerfile appended after the tree", last)
	}
	if last.Mode != 0o600 {
		t.Errorf("Dockerfile mode = %o, want 600", last.Mode)
	}
	if lastData != "FROM python:3.10-slim\n" {
		t.Errorf("Dockerfile content = %q", lastData)
	}
}
