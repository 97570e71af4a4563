// Package ignore selects the files of a directory tree to ingest, using
// gitignore rules read from the tree's root.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultFiles are the ignore files read by Load when none are named.
var DefaultFiles = []string{".gitignore", ".vecfsignore"}

// alwaysIgnored applies even when no ignore file exists.
var alwaysIgnored = []string{".git/"}

// Matcher reports whether a path below the root is excluded.
type Matcher struct {
	root    string
	matcher gitignore.Matcher
}

// Load reads the named ignore files from root. Missing files are skipped;
// nested ignore files are not consulted.
func Load(root string, files ...string) (*Matcher, error) {
	if len(files) == 0 {
		files = DefaultFiles
	}
	var patterns []gitignore.Pattern
	for _, p := range alwaysIgnored {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	for _, name := range files {
		lines, err := readLines(filepath.Join(root, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			patterns = append(patterns, gitignore.ParsePattern(l, nil))
		}
	}
	return &Matcher{root: root, matcher: gitignore.NewMatcher(patterns)}, nil
}

// Ignored reports whether rel, a path relative to the root, is excluded.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return false
	}
	return m.matcher.Match(strings.Split(rel, "/"), isDir)
}

// Walk calls fn for every regular file below the root that is not ignored,
// in lexical order. Ignored directories are not entered.
func (m *Matcher) Walk(fn func(path, rel string) error) error {
	return filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			return err
		}
		if m.Ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(path, rel)
	})
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
