// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreFile is read from the search root when FindOptions names no
// ignore file.
const DefaultIgnoreFile = ".gitignore"

// FindOptions controls which files a search skips.
type FindOptions struct {
	// IgnoreFile is a gitignore style file. Relative paths are resolved
	// against the search root.
	IgnoreFile string
	// IgnoreLines are extra gitignore patterns.
	IgnoreLines []string
}

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. Files and directories matched by the ignore
// rules are skipped, as is every .git directory. Paths are returned in
// lexical order.
func FindFilesByExtension(rootPath string, extension string, opts FindOptions) ([]string, error) {
	if extension == "" {
		return nil, errors.New("extension must not be empty")
	}

	rules, err := compileIgnore(rootPath, opts)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(rootPath, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || rules.MatchesPath(rel) || rules.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), extension) && !rules.MatchesPath(rel) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// ExpandDirectories replaces every directory in paths with the files below
// it ending in extension. Other paths are kept as they are. A directory
// without matching files is an error.
func ExpandDirectories(paths []string, extension string, opts FindOptions) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		found, err := FindFilesByExtension(p, extension, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", p, err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no %s files found in %s", extension, p)
		}
		out = append(out, found...)
	}
	return out, nil
}

func compileIgnore(rootPath string, opts FindOptions) (*ignore.GitIgnore, error) {
	file := opts.IgnoreFile
	explicit := file != ""
	if !explicit {
		file = DefaultIgnoreFile
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(rootPath, file)
	}

	if _, err := os.Stat(file); err != nil {
		if explicit {
			return nil, fmt.Errorf("failed to read ignore file: %w", err)
		}
		return ignore.CompileIgnoreLines(opts.IgnoreLines...), nil
	}

	rules, err := ignore.CompileIgnoreFileAndLines(file, opts.IgnoreLines...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile ignore file %s: %w", file, err)
	}
	return rules, nil
}
