package buildcontext

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
)

// Tar streams the context directory as a tar archive suitable for a Docker
// build. Ignored directories are pruned whole; extra entries (typically the
// generated Dockerfile) are appended last, so on extraction they win over
// same-named files from the tree.
func (c *Context) Tar(w io.Writer, extra map[string][]byte) error {
	tw := tar.NewWriter(w)

	err := c.ops.Walker.WalkDir(c.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := c.ops.Path.Rel(c.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			hdr := &tar.Header{
				Name:     rel + "/",
				Mode:     0o755,
				Typeflag: tar.TypeDir,
			}
			return tw.WriteHeader(hdr)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil // sockets, symlinks etc. have no place in the image
		}

		hdr := &tar.Header{
			Name:    rel,
			Mode:    int64(info.Mode().Perm()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header %s: %w", rel, err)
		}

		f, err := c.ops.OS.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("archive %s: %w", rel, err)
		}
		return closeErr
	})
	if err != nil {
		return err
	}

	for name, data := range extra {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o600,
			Size: int64(len(data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("write tar entry %s: %w", name, err)
		}
	}

	return tw.Close()
}

func ignored(rel string, isDir bool) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	if !isDir && strings.HasSuffix(base, ".pyc") {
		return true
	}
	if isDir {
		for _, ig := range DefaultIgnores {
			if base == ig {
				return true
			}
		}
	}
	return false
}
