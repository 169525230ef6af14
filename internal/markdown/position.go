package markdown

import (
	"sort"
	"unicode/utf8"
)

// PositionMap provides bidirectional mapping between source byte offsets and
// converted rune offsets
type PositionMap struct {
	edits []positionEdit
	total int // Rune length of the converted text
}

// positionEdit ties one run to the source it came from
type positionEdit struct {
	origStart      int
	origLen        int
	convertedStart int
	convertedLen   int
	text           string // Empty for placeholders, which have no 1:1 mapping
}

func newPositionMap(runs []Run) *PositionMap {
	pm := &PositionMap{edits: make([]positionEdit, 0, len(runs))}
	for _, r := range runs {
		n := utf8.RuneCountInString(r.Text)
		edit := positionEdit{
			origStart:      r.SourceStart,
			origLen:        r.SourceEnd - r.SourceStart,
			convertedStart: pm.total,
			convertedLen:   n,
		}
		if !r.Placeholder {
			edit.text = r.Text
		}
		pm.edits = append(pm.edits, edit)
		pm.total += n
	}
	return pm
}

// ConvertedToOriginal maps a rune position in the converted text to a byte
// offset in the source. Positions inside an image placeholder map to the
// start of the image markup.
func (pm *PositionMap) ConvertedToOriginal(pos int) int {
	if len(pm.edits) == 0 || pos < 0 {
		return 0
	}
	if pos >= pm.total {
		last := pm.edits[len(pm.edits)-1]
		return last.origStart + last.origLen
	}

	i := sort.Search(len(pm.edits), func(i int) bool {
		return pm.edits[i].convertedStart+pm.edits[i].convertedLen > pos
	})
	edit := pm.edits[i]
	if edit.text == "" {
		return edit.origStart
	}
	return edit.origStart + byteOffset(edit.text, pos-edit.convertedStart)
}

// OriginalToConverted maps a source byte offset to a rune position in the
// converted text. Offsets inside dropped markup map to the next emitted
// position.
func (pm *PositionMap) OriginalToConverted(pos int) int {
	i := sort.Search(len(pm.edits), func(i int) bool {
		return pm.edits[i].origStart+pm.edits[i].origLen > pos
	})
	if i == len(pm.edits) {
		return pm.total
	}
	edit := pm.edits[i]
	if pos <= edit.origStart {
		return edit.convertedStart
	}
	if edit.text == "" {
		return edit.convertedStart
	}
	return edit.convertedStart + utf8.RuneCount([]byte(edit.text[:min(pos-edit.origStart, len(edit.text))]))
}

// MapPositions maps an array of positions from source to converted text
func (pm *PositionMap) MapPositions(positions []int) []int {
	mapped := make([]int, len(positions))
	for i, pos := range positions {
		mapped[i] = pm.OriginalToConverted(pos)
	}
	return mapped
}

// byteOffset returns the byte index of the n-th rune of s
func byteOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}
