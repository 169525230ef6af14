package markdown

import (
	"log"
	"unicode/utf8"

	"github.com/csams/mdview/internal/theme"
)

// MarkdownConverter turns a markdown syntax tree into styled runs plus the
// inline image and hyperlink maps a text view needs.
type MarkdownConverter struct {
	theme    theme.Theme
	maxDepth int
	logger   *log.Logger
}

// Option configures a MarkdownConverter
type Option func(*MarkdownConverter)

// WithTheme sets the styling parameters.
func WithTheme(t theme.Theme) Option {
	return func(mc *MarkdownConverter) {
		mc.theme = t
	}
}

// WithMaxDepth bounds tree depth; deeper nodes are skipped.
func WithMaxDepth(depth int) Option {
	return func(mc *MarkdownConverter) {
		if depth > 0 {
			mc.maxDepth = depth
		}
	}
}

// WithLogger reports skipped nodes to l. Without it skips are silent.
func WithLogger(l *log.Logger) Option {
	return func(mc *MarkdownConverter) {
		mc.logger = l
	}
}

// ConversionResult contains the converted text and associated metadata
type ConversionResult struct {
	Text        string
	Runs        []Run
	Images      []ImageRef
	Links       []LinkSpan
	Styles      []StyleRange
	PositionMap *PositionMap
}

// NewMarkdownConverter creates a converter with the default theme
func NewMarkdownConverter(opts ...Option) *MarkdownConverter {
	mc := &MarkdownConverter{
		theme:    theme.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(mc)
	}
	return mc
}

// Convert parses markdown text and renders it.
func (mc *MarkdownConverter) Convert(text string) ConversionResult {
	source := []byte(text)
	return mc.Render(source, parseTree(source, mc.maxDepth))
}

// Render walks an already parsed tree. It never fails: malformed subtrees
// contribute nothing and the walk carries on with their siblings.
func (mc *MarkdownConverter) Render(source []byte, root *Node) ConversionResult {
	b := &runBuilder{source: source}
	mc.walk(b, root, Style{}, 1)
	return b.result()
}

func (mc *MarkdownConverter) walk(b *runBuilder, n *Node, style Style, depth int) {
	if n == nil {
		return
	}
	if depth > mc.maxDepth {
		mc.debugf("skipping %s at %d: depth limit %d reached", n.Kind, n.Start, mc.maxDepth)
		return
	}

	switch n.Kind {
	case KindDocument, KindParagraph, KindList, KindListItem, KindBlockquote:
		mc.walkAll(b, n.Children, style, depth)
	case KindHeading1, KindHeading2, KindHeading3, KindHeading4, KindHeading5, KindHeading6:
		level := int(n.Kind-KindHeading1) + 1
		mc.walkAll(b, trim(n.Children, 1, 0), style.WithFontSize(mc.theme.HeadingSize(level)), depth)
	case KindSetext1, KindSetext2:
		level := int(n.Kind-KindSetext1) + 1
		mc.walkAll(b, trim(n.Children, 0, 1), style.WithFontSize(mc.theme.HeadingSize(level)), depth)
	case KindCodeSpan:
		mc.walkAll(b, trim(n.Children, 1, 1), style.WithBackground(mc.theme.CodeBackground), depth)
	case KindStrong:
		mc.walkAll(b, trim(n.Children, 2, 2), style.WithBold(), depth)
	case KindEmphasis:
		mc.walkAll(b, trim(n.Children, 1, 1), style.WithItalic(), depth)
	case KindCodeFence:
		mc.walkAll(b, trim(n.Children, 1, 1), style.WithBackground(mc.theme.FenceBackground), depth)
	case KindCodeBlock:
		mc.walkAll(b, n.Children, style.WithBackground(mc.theme.FenceBackground), depth)
	case KindImage:
		mc.image(b, n, style)
	case KindInlineLink:
		mc.link(b, n, style, depth)
	case KindLinePrefix:
		b.emit(n.Text(b.source), Style{}, n.Start, n.End, false)
	default:
		b.emit(n.Text(b.source), style, n.Start, n.End, false)
	}
}

func (mc *MarkdownConverter) walkAll(b *runBuilder, nodes []*Node, style Style, depth int) {
	for _, c := range nodes {
		mc.walk(b, c, style, depth+1)
	}
}

// image records the destination of the trailing inline link and reserves a
// placeholder for it.
func (mc *MarkdownConverter) image(b *runBuilder, n *Node, style Style) {
	if len(n.Children) == 0 {
		mc.debugf("skipping image at %d: no children", n.Start)
		return
	}
	target := n.Children[len(n.Children)-1]
	if len(target.Children) <= 2 {
		mc.debugf("skipping image at %d: no destination", n.Start)
		return
	}
	dest := target.Child(KindLinkDestination)
	if dest == nil {
		dest = target.Children[len(target.Children)-2]
	}

	var alt string
	if text := target.Child(KindLinkText); text != nil {
		for _, c := range trim(text.Children, 1, 1) {
			alt += c.Text(b.source)
		}
	}

	b.images = append(b.images, ImageRef{
		Offset: b.offset,
		URL:    nodeValue(b.source, dest),
		Alt:    alt,
		Width:  mc.theme.ImageWidth,
		Height: mc.theme.ImageHeight,
		Align:  AlignCenter,
	})
	b.emit(mc.theme.ImagePlaceholder, style, n.Start, n.End, true)
}

func (mc *MarkdownConverter) link(b *runBuilder, n *Node, style Style, depth int) {
	dest := n.Child(KindLinkDestination)
	if dest == nil {
		mc.debugf("skipping link at %d: no destination", n.Start)
		return
	}
	text := n.Child(KindLinkText)
	if text == nil {
		mc.debugf("skipping link at %d: no link text", n.Start)
		return
	}
	if len(dest.Children) <= 2 {
		mc.debugf("skipping link at %d: destination has %d tokens", n.Start, len(dest.Children))
		return
	}

	start := b.offset
	mc.walkAll(b, trim(text.Children, 1, 1), style.WithForeground(mc.theme.Link), depth)
	if b.offset == start {
		mc.debugf("skipping link at %d: empty label", n.Start)
		return
	}
	b.links = append(b.links, LinkSpan{
		Start: start,
		End:   b.offset,
		URL:   nodeValue(b.source, dest),
	})
}

func nodeValue(source []byte, n *Node) string {
	if n.Value != "" {
		return n.Value
	}
	return n.Text(source)
}

func (mc *MarkdownConverter) debugf(format string, args ...any) {
	if mc.logger != nil {
		mc.logger.Printf(format, args...)
	}
}

// trim drops head nodes from the front and tail nodes from the back.
func trim(nodes []*Node, head, tail int) []*Node {
	if len(nodes) < head+tail {
		return nil
	}
	return nodes[head : len(nodes)-tail]
}

// runBuilder accumulates output during a single walk. offset counts runes
// emitted so far.
type runBuilder struct {
	source []byte
	runs   []Run
	images []ImageRef
	links  []LinkSpan
	offset int
}

func (b *runBuilder) emit(text string, style Style, srcStart, srcEnd int, placeholder bool) {
	if text == "" {
		return
	}
	b.runs = append(b.runs, Run{
		Text:        text,
		Style:       style,
		SourceStart: srcStart,
		SourceEnd:   srcEnd,
		Placeholder: placeholder,
	})
	b.offset += utf8.RuneCountInString(text)
}

func (b *runBuilder) result() ConversionResult {
	text := make([]byte, 0, len(b.source))
	for _, r := range b.runs {
		text = append(text, r.Text...)
	}
	return ConversionResult{
		Text:        string(text),
		Runs:        b.runs,
		Images:      b.images,
		Links:       b.links,
		Styles:      mergeStyles(b.runs),
		PositionMap: newPositionMap(b.runs),
	}
}

// mergeStyles collapses adjacent runs sharing a style into ranges, leaving
// out unstyled text and image placeholders.
func mergeStyles(runs []Run) []StyleRange {
	var styles []StyleRange
	offset := 0
	for _, r := range runs {
		n := utf8.RuneCountInString(r.Text)
		if !r.Style.IsZero() && !r.Placeholder {
			if last := len(styles) - 1; last >= 0 && styles[last].End == offset && styles[last].Style == r.Style {
				styles[last].End += n
			} else {
				styles = append(styles, StyleRange{Start: offset, End: offset + n, Style: r.Style})
			}
		}
		offset += n
	}
	return styles
}

// LinkAt returns the link covering a rune offset of the converted text, the
// lookup a view performs when the text is tapped.
func (r ConversionResult) LinkAt(offset int) (LinkSpan, bool) {
	for _, l := range r.Links {
		if l.Contains(offset) {
			return l, true
		}
		if l.Start > offset {
			break
		}
	}
	return LinkSpan{}, false
}

// ImageAt returns the image whose placeholder sits at a rune offset.
func (r ConversionResult) ImageAt(offset int) (ImageRef, bool) {
	for _, img := range r.Images {
		if img.Offset == offset {
			return img, true
		}
	}
	return ImageRef{}, false
}
