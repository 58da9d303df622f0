package watch

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultPatterns are the paths whose changes trigger a re-run.
var DefaultPatterns = []string{
	"**/pom.xml",
	"**/src/**/*.java",
	"**/src/**/*.kt",
	"**/src/main/resources/**",
}

var alwaysIgnored = map[string]struct{}{
	".git":         {},
	"target":       {},
	".idea":        {},
	".mvn":         {},
	"node_modules": {},
}

// Matcher decides which paths below a root are relevant.
type Matcher struct {
	patterns  []string
	gitignore *ignore.GitIgnore
}

// NewMatcher validates patterns and loads root/.gitignore when present.
func NewMatcher(root string, patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.New("invalid watch pattern: " + p)
		}
	}
	m := &Matcher{patterns: append([]string(nil), patterns...)}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err == nil {
		m.gitignore = gi
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	return m, nil
}

// Ignored reports whether a root-relative slash path is excluded.
func (m *Matcher) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if _, ok := alwaysIgnored[part]; ok {
			return true
		}
	}
	if m.gitignore != nil && m.gitignore.MatchesPath(rel) {
		return true
	}
	return false
}

// Relevant reports whether a change to rel should count.
func (m *Matcher) Relevant(rel string) bool {
	rel = filepath.ToSlash(rel)
	if m.Ignored(rel) {
		return false
	}
	base := path.Base(rel)
	if strings.HasSuffix(base, "~") || strings.HasPrefix(base, ".#") || strings.HasSuffix(base, ".swp") {
		return false
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
