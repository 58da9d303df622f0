package core

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"unicode"
)

// SearchMatch is a byte range within one output line.
type SearchMatch struct {
	LineIndex uint64
	Start     int
	End       int
}

// SearchState holds a compiled query, its ordered matches and a cursor.
// The cursor is -1 when there are no matches.
type SearchState struct {
	Query   string
	Live    bool
	pattern *regexp.Regexp
	matches []SearchMatch
	cursor  int
}

// CompilePattern compiles a search query. Queries without upper-case letters
// match case-insensitively.
func CompilePattern(query string) (*regexp.Regexp, error) {
	if query == "" {
		return nil, NewRunError(ErrorPattern, "search", errors.New("empty pattern"))
	}
	expr := query
	if !hasUpper(query) {
		expr = "(?i)" + query
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, NewRunError(ErrorPattern, "search", err)
	}
	return re, nil
}

// ComputeMatches visits each line once in order and returns all non-empty,
// non-overlapping matches ordered by line index and start offset.
func ComputeMatches(lines []OutputLine, re *regexp.Regexp) []SearchMatch {
	if re == nil {
		return nil
	}
	var out []SearchMatch
	for _, line := range lines {
		out = appendLineMatches(out, line, re)
	}
	return out
}

func appendLineMatches(out []SearchMatch, line OutputLine, re *regexp.Regexp) []SearchMatch {
	for _, loc := range re.FindAllStringIndex(line.Text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		out = append(out, SearchMatch{LineIndex: line.Index, Start: loc[0], End: loc[1]})
	}
	return out
}

// NewSearchState compiles query and computes matches over lines.
func NewSearchState(query string, lines []OutputLine, live bool) (*SearchState, error) {
	re, err := CompilePattern(query)
	if err != nil {
		return nil, err
	}
	s := &SearchState{Query: query, Live: live, pattern: re, cursor: -1}
	s.matches = ComputeMatches(lines, re)
	if len(s.matches) > 0 {
		s.cursor = 0
	}
	return s, nil
}

// Matches returns the ordered matches. Callers must not mutate the result.
func (s *SearchState) Matches() []SearchMatch {
	if s == nil {
		return nil
	}
	return s.matches
}

// Cursor returns the current match position, or -1.
func (s *SearchState) Cursor() int {
	if s == nil {
		return -1
	}
	return s.cursor
}

// Current returns the match under the cursor.
func (s *SearchState) Current() (SearchMatch, bool) {
	if s == nil || s.cursor < 0 || s.cursor >= len(s.matches) {
		return SearchMatch{}, false
	}
	return s.matches[s.cursor], true
}

// Next advances the cursor cyclically.
func (s *SearchState) Next() {
	if s == nil || len(s.matches) == 0 {
		return
	}
	s.cursor = (s.cursor + 1) % len(s.matches)
}

// Previous moves the cursor back cyclically.
func (s *SearchState) Previous() {
	if s == nil || len(s.matches) == 0 {
		return
	}
	s.cursor = (s.cursor - 1 + len(s.matches)) % len(s.matches)
}

// Extend scans newly appended lines and adds their matches.
func (s *SearchState) Extend(lines []OutputLine) {
	if s == nil || len(lines) == 0 {
		return
	}
	for _, line := range lines {
		s.matches = appendLineMatches(s.matches, line, s.pattern)
	}
	if s.cursor < 0 && len(s.matches) > 0 {
		s.cursor = 0
	}
}

// Prune drops matches on lines older than first, keeping the cursor on the
// same match when it survives.
func (s *SearchState) Prune(first uint64) {
	if s == nil || len(s.matches) == 0 || s.matches[0].LineIndex >= first {
		return
	}
	drop := sort.Search(len(s.matches), func(i int) bool {
		return s.matches[i].LineIndex >= first
	})
	s.matches = append([]SearchMatch(nil), s.matches[drop:]...)
	s.cursor -= drop
	if s.cursor < 0 {
		s.cursor = 0
	}
	if len(s.matches) == 0 {
		s.cursor = -1
	}
}

// Reset drops all matches but keeps the query.
func (s *SearchState) Reset() {
	if s == nil {
		return
	}
	s.matches = nil
	s.cursor = -1
}

// LineMatches returns the matches on a single line.
func (s *SearchState) LineMatches(index uint64) []SearchMatch {
	if s == nil || len(s.matches) == 0 {
		return nil
	}
	lo := sort.Search(len(s.matches), func(i int) bool {
		return s.matches[i].LineIndex >= index
	})
	hi := lo
	for hi < len(s.matches) && s.matches[hi].LineIndex == index {
		hi++
	}
	return s.matches[lo:hi]
}

// Status renders "n/m" for the status line.
func (s *SearchState) Status() string {
	if s == nil {
		return ""
	}
	if len(s.matches) == 0 {
		return fmt.Sprintf("/%s (no matches)", s.Query)
	}
	return fmt.Sprintf("/%s (%d/%d)", s.Query, s.cursor+1, len(s.matches))
}

func hasUpper(value string) bool {
	for _, r := range value {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
