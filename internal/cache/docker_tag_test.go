package cache

import (
	"regexp"
	"strings"
	"testing"
)

var tagRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func TestComposeImageTag(t *testing.T) {
	t.Parallel()

	a := CacheKeyDockerfileLines([]string{"FROM python:3.10-slim"})
	b := CacheKeyDockerfileLines([]string{"WORKDIR /app"})

	tag := composeImageTag("mlapp_api", a, b)
	if !strings.HasPrefix(tag, "mlapp_api-") {
		t.Fatalf("tag = %q, want mlapp_api- prefix", tag)
	}
	if len(tag) != len("mlapp_api-")+64 {
		t.Fatalf("tag = %q, want prefix plus 64-char digest", tag)
	}
	if !tagRe.MatchString(tag) {
		t.Fatalf("tag %q is not Docker-safe", tag)
	}

	if tag != composeImageTag("mlapp_api", a, b) {
		t.Fatal("same inputs must compose the same tag")
	}
	if tag == composeImageTag("mlapp_api", b, a) {
		t.Fatal("key order must change the tag")
	}
}

func TestComposeImageTagNoPrefix(t *testing.T) {
	t.Parallel()

	a := CacheKeyDockerfileLines([]string{"x"})
	tag := composeImageTag("", a, a)
	if len(tag) != 64 {
		t.Fatalf("tag = %q, want bare 64-char digest", tag)
	}
}

func TestComposeImageTagLongPrefixTruncated(t *testing.T) {
	t.Parallel()

	a := CacheKeyDockerfileLines([]string{"x"})
	tag := composeImageTag(strings.Repeat("p", 100), a, a)
	if len(tag) > 128 {
		t.Fatalf("tag length %d exceeds the 128-char limit", len(tag))
	}
}

func TestComposePrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want string
	}{
		{"/srv/projects/mlapp/api", "mlapp_api"},
		{"/srv/projects/mlapp/api/main.py", "mlapp_api"},
		{"/mlapp", "mlapp"},
		// Spaces and punctuation are dropped, not replaced.
		{"/srv/My App!/API", "myapp_api"},
		{"", "unknown-project"},
	}
	for _, tc := range cases {
		if got := composePrefix(tc.path); got != tc.want {
			t.Errorf("composePrefix(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestSanitizeTagPrefix(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"MlApp":      "mlapp",
		"..-weird":   "weird",
		"a b/c":      "abc",
		"ok_name-1":  "ok_name-1",
		"!!!":        "",
		"py.project": "py.project",
	}
	for in, want := range cases {
		if got := sanitizeTagPrefix(in); got != want {
			t.Errorf("sanitizeTagPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
