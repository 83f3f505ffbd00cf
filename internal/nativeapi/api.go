// Package nativeapi defines the native capability surface (file system access)
// that node kinds may use, and a local implementation confined to a root
// directory.
package nativeapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ReadDirOptions controls ReadDir.
type ReadDirOptions struct {
	Recursive          bool
	IncludeDirectories bool
	// FilterGlobs keeps only entries whose slash-separated path relative to
	// the listed directory matches at least one pattern.
	FilterGlobs []string
	// Relative returns paths relative to the listed directory.
	Relative bool
}

// API is the native capability surface.
type API interface {
	ReadDir(ctx context.Context, path string, opts ReadDirOptions) ([]string, error)
	ReadTextFile(ctx context.Context, path string) (string, error)
	WriteTextFile(ctx context.Context, path, content string) error
}

// ErrOutsideRoot is returned for paths that escape the configured root.
var ErrOutsideRoot = errors.New("path escapes native api root")

// Local implements API on the local file system.
type Local struct {
	root string
}

// NewLocal returns a Local confined to root. An empty root means the current
// working directory.
func NewLocal(root string) *Local {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err == nil {
		root = abs
	}
	return &Local{root: root}
}

func (l *Local) resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.root, path)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return full, nil
}

// ReadDir implements API. Results are sorted.
func (l *Local) ReadDir(ctx context.Context, path string, opts ReadDirOptions) ([]string, error) {
	dir, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	for _, pattern := range opts.FilterGlobs {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid filter glob %q", pattern)
		}
	}

	var out []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		if d.IsDir() && !opts.Recursive {
			if opts.IncludeDirectories && matches(dir, p, opts.FilterGlobs) {
				out = append(out, l.present(dir, p, opts.Relative))
			}
			return filepath.SkipDir
		}
		if d.IsDir() && !opts.IncludeDirectories {
			return nil
		}
		if matches(dir, p, opts.FilterGlobs) {
			out = append(out, l.present(dir, p, opts.Relative))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}
	sort.Strings(out)
	return out, nil
}

func matches(dir, p string, globs []string) bool {
	if len(globs) == 0 {
		return true
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range globs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (l *Local) present(dir, p string, relative bool) string {
	if !relative {
		return p
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// ReadTextFile implements API.
func (l *Local) ReadTextFile(ctx context.Context, path string) (string, error) {
	full, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(b), nil
}

// WriteTextFile implements API. Parent directories are created as needed.
func (l *Local) WriteTextFile(ctx context.Context, path, content string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
