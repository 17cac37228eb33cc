package version

// version is stamped at build time via
// -ldflags "-X github.com/0xa1bed0/pyship/internal/version.version=v1.2.3".
// Untouched binaries report "local".
var version = "local"

func Get() string {
	return version
}
