package markdown

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Kind tags a syntax tree node
type Kind int

const (
	KindLeaf Kind = iota // Literal source text with no structure of its own
	KindText
	KindMarker // Delimiter token, e.g. "#", "**", "`", "[" or "("
	KindDocument
	KindParagraph
	KindHeading1
	KindHeading2
	KindHeading3
	KindHeading4
	KindHeading5
	KindHeading6
	KindSetext1
	KindSetext2
	KindCodeSpan
	KindStrong
	KindEmphasis
	KindCodeFence
	KindCodeBlock
	KindImage
	KindInlineLink
	KindLinkText
	KindLinkDestination
	KindList
	KindListItem
	KindBlockquote
	KindLinePrefix // Newline and container markers inside a styled block; rendered unstyled
)

var kindNames = [...]string{
	KindLeaf:            "leaf",
	KindText:            "text",
	KindMarker:          "marker",
	KindDocument:        "document",
	KindParagraph:       "paragraph",
	KindHeading1:        "heading1",
	KindHeading2:        "heading2",
	KindHeading3:        "heading3",
	KindHeading4:        "heading4",
	KindHeading5:        "heading5",
	KindHeading6:        "heading6",
	KindSetext1:         "setext1",
	KindSetext2:         "setext2",
	KindCodeSpan:        "code_span",
	KindStrong:          "strong",
	KindEmphasis:        "emphasis",
	KindCodeFence:       "code_fence",
	KindCodeBlock:       "code_block",
	KindImage:           "image",
	KindInlineLink:      "inline_link",
	KindLinkText:        "link_text",
	KindLinkDestination: "link_destination",
	KindList:            "list",
	KindListItem:        "list_item",
	KindBlockquote:      "blockquote",
	KindLinePrefix:      "line_prefix",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Node is one node of the syntax tree. Start and End are byte offsets into
// the source the tree was built from; children are ordered and lie inside
// their parent's range.
type Node struct {
	Kind     Kind
	Children []*Node
	Start    int
	End      int
	// Value overrides the source text where the parser resolved something
	// else, e.g. the mailto: URL of an email autolink.
	Value string
}

// Text returns the source text spanned by the node. Out-of-range offsets are
// clamped rather than trusted.
func (n *Node) Text(source []byte) string {
	start, end := n.Start, n.End
	if start < 0 {
		start = 0
	}
	if end > len(source) {
		end = len(source)
	}
	if start >= end {
		return ""
	}
	return string(source[start:end])
}

// Child returns the first direct child of the given kind.
func (n *Node) Child(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Style is a set of optional text attributes. The zero value means "no
// special style"; zero FontSize and tcell.ColorDefault mean unset.
type Style struct {
	FontSize   int
	Bold       bool
	Italic     bool
	Foreground tcell.Color
	Background tcell.Color
}

// IsZero reports whether no attribute is set.
func (s Style) IsZero() bool {
	return s == Style{}
}

// WithFontSize returns a new style with the given font size.
func (s Style) WithFontSize(size int) Style {
	s.FontSize = size
	return s
}

// WithBold returns a new style with bold set.
func (s Style) WithBold() Style {
	s.Bold = true
	return s
}

// WithItalic returns a new style with italic set.
func (s Style) WithItalic() Style {
	s.Italic = true
	return s
}

// WithForeground returns a new style with the given foreground color.
func (s Style) WithForeground(fg tcell.Color) Style {
	s.Foreground = fg
	return s
}

// WithBackground returns a new style with the given background color.
func (s Style) WithBackground(bg tcell.Color) Style {
	s.Background = bg
	return s
}

// Tcell converts the style for terminal consumers. Font size has no terminal
// equivalent; headings are rendered bold instead.
func (s Style) Tcell() tcell.Style {
	ts := tcell.StyleDefault
	if s.Foreground != tcell.ColorDefault {
		ts = ts.Foreground(s.Foreground)
	}
	if s.Background != tcell.ColorDefault {
		ts = ts.Background(s.Background)
	}
	if s.Bold || s.FontSize > 0 {
		ts = ts.Bold(true)
	}
	if s.Italic {
		ts = ts.Italic(true)
	}
	return ts
}

func (s Style) String() string {
	if s.IsZero() {
		return "-"
	}
	var parts []string
	if s.FontSize > 0 {
		parts = append(parts, fmt.Sprintf("size=%d", s.FontSize))
	}
	if s.Bold {
		parts = append(parts, "bold")
	}
	if s.Italic {
		parts = append(parts, "italic")
	}
	if s.Foreground != tcell.ColorDefault {
		parts = append(parts, fmt.Sprintf("fg=#%06x", s.Foreground.Hex()))
	}
	if s.Background != tcell.ColorDefault {
		parts = append(parts, fmt.Sprintf("bg=#%06x", s.Background.Hex()))
	}
	return strings.Join(parts, " ")
}

// Run is a contiguous piece of output text sharing one style
type Run struct {
	Text  string
	Style Style

	// Source byte range the run was produced from
	SourceStart int
	SourceEnd   int

	// Placeholder marks the space reserved for an inline image
	Placeholder bool
}

// Align positions an inline image inside its placeholder
type Align int

const (
	AlignCenter Align = iota
	AlignTop
	AlignBottom
)

// ImageRef ties an output offset to the image shown there
type ImageRef struct {
	Offset int // Rune position in converted text
	URL    string
	Alt    string
	Width  int
	Height int
	Align  Align
}

// LinkSpan is a hyperlink covering [Start, End) of the converted text
type LinkSpan struct {
	Start int // Rune position in converted text
	End   int // Rune position in converted text
	URL   string
}

// Contains reports whether the rune offset falls inside the span.
func (l LinkSpan) Contains(offset int) bool {
	return offset >= l.Start && offset < l.End
}

// StyleRange represents a range of text with a specific style
type StyleRange struct {
	Start int // Rune position in converted text
	End   int // Rune position in converted text
	Style Style
}
