package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/sops"
	"github.com/bmatcuk/doublestar/v4"
)

// documentExtensions are the file types considered when expanding globs and
// directories.
var documentExtensions = []string{".json", ".yaml", ".yml"}

// ResolveFiles takes user-provided paths/globs and returns matching SOPS
// documents. Relative patterns are resolved against baseDir.
//
// Literal file paths are returned as given, whatever their content, so that
// a non-SOPS file produces a parse error later instead of being skipped.
// Globs and directories only yield files that carry a sops metadata block.
func ResolveFiles(patterns []string, baseDir string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir)
		if err != nil {
			return nil, err
		}

		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrNoFilesFound, strings.Join(patterns, ", "))
	}

	return files, nil
}

func resolvePattern(pattern string, baseDir string) ([]string, error) {
	absPattern := ExpandHome(pattern)
	if !filepath.IsAbs(absPattern) {
		absPattern = filepath.Join(baseDir, absPattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findDocumentsInDir(absPattern)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		return expandGlob(absPattern, pattern)
	}

	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, pattern)
	}

	return []string{absPattern}, nil
}

func expandGlob(absPattern, pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var filtered []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if isInGitDir(m) {
			continue
		}
		if isSopsFile(m) {
			filtered = append(filtered, m)
		}
	}

	return filtered, nil
}

func findDocumentsInDir(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if isSopsFile(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

func hasDocumentExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range documentExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isSopsFile(path string) bool {
	if !hasDocumentExtension(path) {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return sops.IsSopsDocument(data)
}

func isInGitDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}
