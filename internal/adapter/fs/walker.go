package fs

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docindex/internal/logging"
	"docindex/internal/port"
)

var _ port.FileWalker = (*Walker)(nil)

// Walker enumerates indexable files below a root using doublestar include and
// exclude globs. Include patterns match case-insensitively.
type Walker struct {
	includes []string
	excludes []string
	logger   *slog.Logger
}

func NewWalker(includes, excludes []string, logger *slog.Logger) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
		logger:   logging.OrDefault(logger),
	}
}

// Walk returns eligible files in lexical order. Entries that cannot be read
// are logged and skipped; only a failure on the root itself is returned.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if path != root && w.excludedDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, port.FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

// Eligible reports whether a single file passes the include and exclude
// patterns. It is used for explicit file lists and watch events, where there
// is no walk root, so the path is matched as given.
func (w *Walker) Eligible(path string) bool {
	p := filepath.ToSlash(path)
	if vol := filepath.VolumeName(path); vol != "" {
		p = strings.TrimPrefix(p, filepath.ToSlash(vol))
	}
	p = strings.TrimLeft(p, "/")
	return w.shouldInclude(p) && !w.shouldExclude(p)
}

// EligibleUnder matches path relative to root, so patterns are not applied
// to the directories above root.
func (w *Walker) EligibleUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return w.Eligible(path)
	}
	return w.Eligible(rel)
}

// excludedDir prunes a directory when a file directly inside it would be excluded.
func (w *Walker) excludedDir(relPath string) bool {
	return w.shouldExclude(relPath) || w.shouldExclude(relPath+"/") || w.shouldExclude(relPath+"/x")
}

func (w *Walker) shouldInclude(path string) bool {
	lower := strings.ToLower(path)
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(strings.ToLower(pattern), lower)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
