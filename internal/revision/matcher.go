package revision

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/openmined/simlog/internal/utils"
)

const (
	IgnoreFileName = ".simlogignore"
	LockFileName   = ".simlog.lock"
)

// never part of a snapshot
var reservedNames = []string{
	LockFileName,
}

// never hashed, they would collide with the record header or the record itself
var untrackableNames = []string{
	FileName,
	keyID,
	keyParent,
}

// Matcher decides which paths of a working directory are tracked and which are
// excluded from snapshots. Paths are slash separated and relative to the directory.
type Matcher struct {
	patterns []string
	ignore   *gitignore.GitIgnore
}

// NewMatcher builds a matcher from tracked file patterns. A pattern containing glob
// meta characters is matched with doublestar against the path and its base name;
// any other pattern matches when it is a substring of the path.
func NewMatcher(patterns []string) *Matcher {
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	return &Matcher{patterns: clean}
}

// ParsePatterns splits a comma separated pattern list.
func ParsePatterns(list string) []string {
	return strings.Split(list, ",")
}

// LoadIgnoreFile reads the working directory's ignore file when there is one.
func (m *Matcher) LoadIgnoreFile(ignorePath string) error {
	if !utils.FileExists(ignorePath) {
		return nil
	}
	ign, err := gitignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return err
	}
	m.ignore = ign
	return nil
}

// WithIgnoreLines installs gitignore style exclusion lines.
func (m *Matcher) WithIgnoreLines(lines ...string) *Matcher {
	m.ignore = gitignore.CompileIgnoreLines(lines...)
	return m
}

func (m *Matcher) Patterns() []string {
	return m.patterns
}

// Excluded reports whether rel is left out of snapshots entirely.
func (m *Matcher) Excluded(rel string) bool {
	base := path.Base(rel)
	for _, name := range reservedNames {
		if rel == name || base == name {
			return true
		}
	}
	if rel == FileName {
		return false
	}
	return m.ignore != nil && m.ignore.MatchesPath(rel)
}

// Tracked reports whether rel takes part in the revision hash.
func (m *Matcher) Tracked(rel string) bool {
	for _, name := range untrackableNames {
		if rel == name {
			return false
		}
	}
	if m.Excluded(rel) {
		return false
	}

	for _, p := range m.patterns {
		if strings.ContainsAny(p, "*?[{") {
			if ok, _ := doublestar.Match(p, rel); ok {
				return true
			}
			if ok, _ := doublestar.Match(p, path.Base(rel)); ok {
				return true
			}
			continue
		}
		if strings.Contains(rel, p) {
			return true
		}
	}
	return false
}
