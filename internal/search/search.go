package search

import (
	"sort"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/csams/mdview/internal/markdown"
)

// SearchState holds the state for search functionality
type SearchState struct {
	query         string
	caseSensitive bool
	minScore      int // Minimum score threshold for matches
}

// Score threshold constants (based on raw fzf scores)
const (
	ScoreThresholdStrict     = 70 // Only high quality matches
	ScoreThresholdNormal     = 50 // Balanced (default)
	ScoreThresholdPermissive = 30 // Include marginal matches
	ScoreThresholdNone       = 0  // Accept all matches
)

// NewSearchState creates a new search state
func NewSearchState() *SearchState {
	return &SearchState{
		caseSensitive: false,
		minScore:      ScoreThresholdNormal, // Default to balanced threshold
	}
}

// SetQuery sets the search query
func (s *SearchState) SetQuery(query string) {
	s.query = query
}

// Query returns the current query
func (s *SearchState) Query() string {
	return s.query
}

// Clear clears the search state
func (s *SearchState) Clear() {
	s.query = ""
}

// SetCaseSensitive toggles case-sensitive matching
func (s *SearchState) SetCaseSensitive(on bool) {
	s.caseSensitive = on
}

// SetMinScore sets the minimum score threshold
func (s *SearchState) SetMinScore(score int) {
	s.minScore = score
}

// GetMinScore returns the current minimum score threshold
func (s *SearchState) GetMinScore() int {
	return s.minScore
}

// MatchResult contains match score and rune positions
type MatchResult struct {
	Score     int
	Positions []int
}

// LinkMatch is a link whose label or URL matched the query
type LinkMatch struct {
	Link  markdown.LinkSpan
	Label string
	Score int
	Field string // "label" or "url"
}

// accepts applies the score threshold to a match
func (s *SearchState) accepts(score int) bool {
	return score >= 0 && (s.minScore == 0 || score >= s.minScore)
}

// matchWithPositions calculates match score and rune positions for highlighting
func (s *SearchState) matchWithPositions(text string) MatchResult {
	if s.query == "" {
		return MatchResult{Score: 0, Positions: nil}
	}

	// Initialize fzf algo if needed
	algo.Init("default")

	searchText := text
	pattern := s.query
	if !s.caseSensitive {
		searchText = strings.ToLower(text)
		pattern = strings.ToLower(s.query)
	}

	chars := util.ToChars([]byte(searchText))
	patternRunes := []rune(pattern)

	slab := util.MakeSlab(16384, 1024)
	result, positions := algo.FuzzyMatchV2(s.caseSensitive, false, true, &chars, patternRunes, true, slab)

	if result.Start < 0 {
		return MatchResult{Score: -1, Positions: nil}
	}

	// fzf returns positions as indices into the Chars array, which already
	// correspond to rune positions, in no particular order
	var matchPositions []int
	if positions != nil {
		matchPositions = make([]int, len(*positions))
		copy(matchPositions, *positions)
		sort.Ints(matchPositions)
	}

	return MatchResult{Score: result.Score, Positions: matchPositions}
}

// MatchText matches the query against the rendered text of a document. The
// returned positions are rune offsets into res.Text.
func (s *SearchState) MatchText(res markdown.ConversionResult) (bool, MatchResult) {
	if s.query == "" {
		return true, MatchResult{Score: 0, Positions: nil}
	}
	result := s.matchWithPositions(res.Text)
	if !s.accepts(result.Score) {
		return false, MatchResult{Score: -1, Positions: nil}
	}
	return true, result
}

// MatchLinks returns the links whose label or URL matches the query, best
// score first. Labels are tried before URLs.
func (s *SearchState) MatchLinks(res markdown.ConversionResult) []LinkMatch {
	var matches []LinkMatch
	for _, link := range res.Links {
		label := runeSlice(res.Text, link.Start, link.End)

		if s.query == "" {
			matches = append(matches, LinkMatch{Link: link, Label: label, Score: 0, Field: "label"})
			continue
		}

		if r := s.matchWithPositions(label); s.accepts(r.Score) {
			matches = append(matches, LinkMatch{Link: link, Label: label, Score: r.Score, Field: "label"})
			continue
		}
		if r := s.matchWithPositions(link.URL); s.accepts(r.Score) {
			matches = append(matches, LinkMatch{Link: link, Label: label, Score: r.Score, Field: "url"})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Highlight turns match positions into style ranges, merging adjacent runes
func Highlight(positions []int, style markdown.Style) []markdown.StyleRange {
	var ranges []markdown.StyleRange
	for _, p := range positions {
		if last := len(ranges) - 1; last >= 0 && ranges[last].End == p {
			ranges[last].End++
			continue
		}
		ranges = append(ranges, markdown.StyleRange{Start: p, End: p + 1, Style: style})
	}
	return ranges
}

// runeSlice returns runes [start, end) of s
func runeSlice(s string, start, end int) string {
	var b strings.Builder
	i := 0
	for _, r := range s {
		if i >= end {
			break
		}
		if i >= start {
			b.WriteRune(r)
		}
		i++
	}
	return b.String()
}
