// Package scan enumerates and reads the source files the fallback engine
// analyzes. It is the filesystem half of the engine's Source contract.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/understory/internal/lang"
)

// skipDirs are directory names never worth descending into.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"__pycache__":  {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"venv":         {},
	".venv":        {},
}

// Options bound a walk.
type Options struct {
	// MaxDepth limits directory nesting below the root (0 means the
	// root's direct entries only).
	MaxDepth int
	// MaxFiles caps the number of files returned.
	MaxFiles int
	// Include, when non-empty, keeps only paths matching at least one
	// doublestar glob (relative to the walk root).
	Include []string
	// Exclude drops paths matching any doublestar glob.
	Exclude []string
	// IgnoreGitignore disables .gitignore handling.
	IgnoreGitignore bool
}

// Walker lists and reads code files from the local filesystem, honoring
// depth and file caps, glob filters, and the project's .gitignore.
type Walker struct {
	opts Options
}

// NewWalker creates a Walker with the given bounds.
func NewWalker(opts Options) *Walker {
	return &Walker{opts: opts}
}

// ReadFile returns the content of one file.
func (w *Walker) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ListFiles walks root and returns supported code files in sorted order.
// Hidden directories and well-known dependency directories are skipped,
// as is anything the project's .gitignore excludes. Unreadable entries
// are skipped rather than failing the walk.
func (w *Walker) ListFiles(ctx context.Context, root string) ([]string, error) {
	var gi *ignore.GitIgnore
	if !w.opts.IgnoreGitignore {
		if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			gi = compiled
		}
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entry: skip, keep walking
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if w.opts.MaxDepth > 0 && strings.Count(rel, "/") >= w.opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if w.opts.MaxFiles > 0 && len(paths) >= w.opts.MaxFiles {
			return fs.SkipAll
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !lang.Supported(path) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !w.matchGlobs(rel) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// matchGlobs applies the include/exclude doublestar filters to a
// root-relative slash path.
func (w *Walker) matchGlobs(rel string) bool {
	if len(w.opts.Include) > 0 {
		matched := false
		for _, pat := range w.opts.Include {
			if ok, err := doublestar.Match(pat, rel); err == nil && ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pat := range w.opts.Exclude {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return false
		}
	}
	return true
}
