// Package loader finds groove files on disk and parses them into
// groove definitions.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches every .yml and .yaml file below the root.
const DefaultPattern = "**/*.{yml,yaml}"

// ErrBadPattern is returned when a discovery pattern cannot be compiled.
var ErrBadPattern = errors.New("loader: invalid file pattern")

// ValidatePattern reports whether pattern is a usable discovery pattern.
// Patterns use forward slashes and support "**" for any depth and brace
// lists such as "{yml,yaml}", which may nest.
func ValidatePattern(pattern string) error {
	if !doublestar.ValidatePattern(normalizePattern(pattern)) {
		return fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	return nil
}

// Discover returns the regular files below root that match pattern, joined
// with root. A root that does not exist yields no files. Paths are returned
// in walk order, each at most once.
//
// Files and directories whose name starts with a dot are skipped unless the
// pattern itself names a dot-prefixed segment, as in ".drafts/*.yaml" or
// "**/.*.yaml".
func Discover(root, pattern string) ([]string, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loader: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loader: %s is not a directory", root)
	}

	normalized := normalizePattern(pattern)
	matches, err := doublestar.Glob(os.DirFS(root), normalized, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("loader: glob %q under %s: %w", pattern, root, err)
	}
	includeHidden := namesHidden(normalized)

	// Overlapping brace alternatives can name the same file twice.
	seen := make(map[string]struct{}, len(matches))
	files := make([]string, 0, len(matches))
	for _, match := range matches {
		if _, dup := seen[match]; dup {
			continue
		}
		if !includeHidden && isHidden(match) {
			continue
		}
		seen[match] = struct{}{}
		files = append(files, filepath.Join(root, filepath.FromSlash(match)))
	}
	return files, nil
}

func normalizePattern(pattern string) string {
	p := filepath.ToSlash(strings.TrimSpace(pattern))
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

// namesHidden reports whether some segment of pattern, or some brace
// alternative at the start of a segment, begins with a literal dot.
func namesHidden(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '.' {
			continue
		}
		if i == 0 {
			return true
		}
		switch pattern[i-1] {
		case '/', '{', ',':
			return true
		}
	}
	return false
}

// isHidden reports whether any segment of the slash-separated path starts
// with a dot.
func isHidden(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
