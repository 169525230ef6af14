package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultMaxDepth bounds how deep trees are built and walked.
const DefaultMaxDepth = 256

// Parse parses CommonMark source with goldmark and returns the token-bearing
// tree the converter walks.
func Parse(source []byte) *Node {
	return parseTree(source, DefaultMaxDepth)
}

func parseTree(source []byte, maxDepth int) *Node {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	tb := &treeBuilder{source: source, maxDepth: maxDepth}
	return tb.document(doc)
}

// treeBuilder adapts goldmark's AST into Nodes. Goldmark drops delimiter
// tokens and keeps positions only on text segments and block lines, so spans
// are recovered from those and every gap between children becomes a leaf or
// marker token. Nothing in the source is left unaccounted for.
type treeBuilder struct {
	source   []byte
	maxDepth int
}

func (tb *treeBuilder) document(doc gast.Node) *Node {
	end := len(tb.source)
	children := tb.children(doc, 0, end, 1)
	return &Node{
		Kind:     KindDocument,
		Start:    0,
		End:      end,
		Children: tb.fill(0, end, children, KindLeaf),
	}
}

// children builds the direct children of n in order. lo is the first byte a
// child may claim and hi the bound it must stay under; children that can't be
// placed are dropped and their source ends up in a gap token.
func (tb *treeBuilder) children(n gast.Node, lo, hi, depth int) []*Node {
	var out []*Node
	cur := lo
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		built := tb.build(c, cur, hi, depth)
		if built == nil || built.Start < cur || built.End > hi || built.End < built.Start {
			continue
		}
		out = append(out, built)
		cur = built.End
	}
	return out
}

func (tb *treeBuilder) build(n gast.Node, lo, hi, depth int) *Node {
	if depth > tb.maxDepth {
		return nil
	}

	switch v := n.(type) {
	case *gast.Text:
		return &Node{Kind: KindText, Start: v.Segment.Start, End: v.Segment.Stop}
	case *gast.Paragraph, *gast.TextBlock:
		return tb.paragraph(n, lo, hi, depth)
	case *gast.Heading:
		return tb.heading(v, lo, hi, depth)
	case *gast.FencedCodeBlock:
		return tb.fencedCode(v, lo, hi)
	case *gast.CodeBlock:
		return tb.indentedCode(v)
	case *gast.CodeSpan:
		return tb.codeSpan(v, lo, hi, depth)
	case *gast.Emphasis:
		return tb.emphasis(v, lo, hi, depth)
	case *gast.Link:
		return tb.link(v, lo, hi, depth, false)
	case *gast.Image:
		return tb.link(v, lo, hi, depth, true)
	case *gast.AutoLink:
		return tb.autoLink(v, lo, hi)
	case *gast.List:
		return tb.container(n, KindList, lo, hi, depth)
	case *gast.ListItem:
		return tb.container(n, KindListItem, lo, hi, depth)
	case *gast.Blockquote:
		return tb.container(n, KindBlockquote, lo, hi, depth)
	}
	// Thematic breaks, raw HTML and anything else stay in the gap as literal text
	return nil
}

func (tb *treeBuilder) paragraph(n gast.Node, lo, hi, depth int) *Node {
	children := tb.children(n, lo, hi, depth+1)
	start, end, ok := tb.textSpan(n.Lines())
	if !ok && len(children) == 0 {
		return nil
	}
	if len(children) > 0 {
		if !ok || children[0].Start < start {
			start = children[0].Start
		}
		if last := children[len(children)-1]; !ok || last.End > end {
			end = last.End
		}
	}
	return &Node{
		Kind:     KindParagraph,
		Start:    start,
		End:      end,
		Children: tb.fill(start, end, children, KindLeaf),
	}
}

func (tb *treeBuilder) heading(h *gast.Heading, lo, hi, depth int) *Node {
	contentStart, contentEnd, ok := tb.textSpan(h.Lines())
	if !ok {
		return nil
	}
	children := tb.children(h, lo, hi, depth+1)
	if len(children) > 0 {
		contentStart = min(contentStart, children[0].Start)
		contentEnd = max(contentEnd, children[len(children)-1].End)
	}

	hashStart := tb.atxStart(lo, contentStart)
	if hashStart < 0 {
		return tb.setext(h, contentStart, contentEnd, hi, children)
	}

	kind := KindHeading1 + Kind(h.Level-1)
	if h.Level < 1 || h.Level > 6 {
		kind = KindHeading1
	}
	// Up to three spaces of indent belong to the marker when nothing but
	// spaces precedes it on the line. Container prefixes ("> ", "- ") don't.
	markerStart := hashStart
	for markerStart > lo && tb.source[markerStart-1] == ' ' {
		markerStart--
	}
	if markerStart > lo && tb.source[markerStart-1] != '\n' {
		markerStart = hashStart
	}
	nodes := []*Node{{Kind: KindMarker, Start: markerStart, End: contentStart}}
	nodes = append(nodes, tb.fill(contentStart, contentEnd, children, KindLeaf)...)
	return &Node{Kind: kind, Start: markerStart, End: contentEnd, Children: nodes}
}

// atxStart returns the offset of the "#" run opening an ATX heading whose
// content begins at contentStart, or -1 when no such run precedes it.
func (tb *treeBuilder) atxStart(lo, contentStart int) int {
	p := contentStart
	for p > lo && (tb.source[p-1] == ' ' || tb.source[p-1] == '\t') {
		p--
	}
	n := 0
	for p > lo && tb.source[p-1] == '#' {
		p--
		n++
	}
	if n == 0 || n > 6 {
		return -1
	}
	return p
}

// setext headings carry their underline as the last child. A container
// prefix in front of the underline stays as literal text.
func (tb *treeBuilder) setext(h *gast.Heading, contentStart, contentEnd, hi int, children []*Node) *Node {
	underlineStart := tb.nextLine(contentEnd, hi)
	if underlineStart >= hi {
		return nil
	}
	q := skipIndent(tb.source, underlineStart, hi)
	if q >= hi || (tb.source[q] != '=' && tb.source[q] != '-') {
		return nil
	}
	end := tb.lineEnd(q, hi)

	kind := KindSetext1
	if h.Level == 2 {
		kind = KindSetext2
	}
	nodes := tb.fill(contentStart, contentEnd, children, KindLeaf)
	markerStart := contentEnd
	if bytes.ContainsRune(tb.source[underlineStart:q], '>') {
		nodes = append(nodes, &Node{Kind: KindLinePrefix, Start: contentEnd, End: q})
		markerStart = q
	}
	nodes = append(nodes, &Node{Kind: KindMarker, Start: markerStart, End: end})
	return &Node{Kind: kind, Start: contentStart, End: end, Children: nodes}
}

func (tb *treeBuilder) fencedCode(fc *gast.FencedCodeBlock, lo, hi int) *Node {
	// Opening fence: first line at or after lo starting with ``` or ~~~
	// once container prefixes are skipped
	fenceStart, fenceChar, fenceLen := -1, byte(0), 0
	for p := lo; p < hi; p = tb.nextLine(p, hi) {
		q := skipContainerPrefix(tb.source, p, hi)
		if q < hi && (tb.source[q] == '`' || tb.source[q] == '~') {
			n := runLength(tb.source[q:hi], tb.source[q])
			if n >= 3 {
				fenceStart, fenceChar, fenceLen = q, tb.source[q], n
				break
			}
		}
	}
	if fenceStart < 0 {
		return nil
	}
	openEnd := tb.nextLine(fenceStart, hi)

	body, contentEnd := tb.codeLines(fc.Lines(), openEnd, hi)

	// Closing fence is optional; an unclosed block gets an empty closing token.
	closeStart, end := contentEnd, contentEnd
	if contentEnd < hi {
		q := skipContainerPrefix(tb.source, contentEnd, hi)
		if q < hi && tb.source[q] == fenceChar && runLength(tb.source[q:hi], fenceChar) >= fenceLen {
			closeStart, end = q, tb.lineEnd(q, hi)
		}
	}
	if closeStart > contentEnd {
		body = append(body, &Node{Kind: KindLinePrefix, Start: contentEnd, End: closeStart})
	}

	// A prefix on the first content line takes the opening line's newline
	// with it so the prefix reads as its own line.
	openMarker := &Node{Kind: KindMarker, Start: fenceStart, End: openEnd}
	if len(body) > 0 && body[0].Kind == KindLinePrefix && body[0].Start == openEnd {
		if lineEnd := tb.lineEnd(fenceStart, hi); lineEnd < openEnd {
			openMarker.End = lineEnd
			body[0].Start = lineEnd
		}
	}

	children := append([]*Node{openMarker}, body...)
	children = append(children, &Node{Kind: KindMarker, Start: closeStart, End: end})
	return &Node{Kind: KindCodeFence, Start: fenceStart, End: end, Children: children}
}

// codeLines turns code block line segments into text tokens. Whatever the
// block parser stripped between them (newlines, container markers, fence
// indent) becomes line prefix tokens. It returns the tokens and the offset
// where the last line ends.
func (tb *treeBuilder) codeLines(lines *text.Segments, from, hi int) ([]*Node, int) {
	var out []*Node
	cur := from
	for i := 0; lines != nil && i < lines.Len(); i++ {
		seg := lines.At(i)
		if seg.Start < cur || seg.Stop > hi || seg.Stop <= seg.Start {
			continue
		}
		if seg.Start > cur {
			out = append(out, &Node{Kind: KindLinePrefix, Start: cur, End: seg.Start})
		}
		out = append(out, &Node{Kind: KindText, Start: seg.Start, End: seg.Stop})
		cur = seg.Stop
	}
	return out, cur
}

func (tb *treeBuilder) indentedCode(cb *gast.CodeBlock) *Node {
	start, _, ok := linesSpan(cb.Lines())
	if !ok {
		return nil
	}
	children, end := tb.codeLines(cb.Lines(), start, len(tb.source))
	if len(children) == 0 {
		return nil
	}
	return &Node{Kind: KindCodeBlock, Start: start, End: end, Children: children}
}

func (tb *treeBuilder) codeSpan(cs *gast.CodeSpan, lo, hi, depth int) *Node {
	children := tb.children(cs, lo, hi, depth+1)
	if len(children) == 0 {
		return nil
	}
	contentStart := children[0].Start
	contentEnd := children[len(children)-1].End

	start := contentStart
	for start > lo && (tb.source[start-1] == ' ' || tb.source[start-1] == '\n') {
		start--
	}
	if start <= lo || tb.source[start-1] != '`' {
		return nil
	}
	for start > lo && tb.source[start-1] == '`' {
		start--
	}

	end := contentEnd
	for end < hi && (tb.source[end] == ' ' || tb.source[end] == '\n') {
		end++
	}
	if end >= hi || tb.source[end] != '`' {
		return nil
	}
	end += runLength(tb.source[end:hi], '`')

	nodes := []*Node{{Kind: KindMarker, Start: start, End: contentStart}}
	nodes = append(nodes, tb.fill(contentStart, contentEnd, children, KindText)...)
	nodes = append(nodes, &Node{Kind: KindMarker, Start: contentEnd, End: end})
	return &Node{Kind: KindCodeSpan, Start: start, End: end, Children: nodes}
}

// emphasis splits its delimiter run into one marker per character, so a
// strong node always opens and closes with two markers.
func (tb *treeBuilder) emphasis(em *gast.Emphasis, lo, hi, depth int) *Node {
	children := tb.children(em, lo, hi, depth+1)
	if len(children) == 0 {
		return nil
	}
	level := em.Level
	contentStart := children[0].Start
	contentEnd := children[len(children)-1].End
	start, end := contentStart-level, contentEnd+level
	if start < lo || end > hi {
		return nil
	}
	delim := tb.source[start]
	if delim != '*' && delim != '_' {
		return nil
	}
	if runLength(tb.source[start:contentStart], delim) != level ||
		runLength(tb.source[contentEnd:end], delim) != level {
		return nil
	}

	kind := KindEmphasis
	if level == 2 {
		kind = KindStrong
	}
	var nodes []*Node
	for i := start; i < contentStart; i++ {
		nodes = append(nodes, &Node{Kind: KindMarker, Start: i, End: i + 1})
	}
	nodes = append(nodes, tb.fill(contentStart, contentEnd, children, KindLeaf)...)
	for i := contentEnd; i < end; i++ {
		nodes = append(nodes, &Node{Kind: KindMarker, Start: i, End: i + 1})
	}
	return &Node{Kind: kind, Start: start, End: end, Children: nodes}
}

// link builds an inline link, or an image when image is set. The shape is
//
//	image:       [marker "!", inline_link]
//	inline_link: [link_text, marker "(", link_destination, (marker title), marker ")"]
//	link_text:   [marker "[", ...label..., marker "]"]
//
// Links with an empty destination collapse the parenthesised part into one
// marker and reference-style links have no destination at all.
func (tb *treeBuilder) link(n gast.Node, lo, hi, depth int, image bool) *Node {
	opener := []byte("[")
	if image {
		opener = []byte("![")
	}

	label := tb.children(n, lo, hi, depth+1)
	var open int
	if len(label) > 0 {
		open = label[0].Start - len(opener)
		if open < lo || !bytes.Equal(tb.source[open:label[0].Start], opener) {
			return nil
		}
	} else {
		i := bytes.Index(tb.source[lo:hi], opener)
		if i < 0 {
			return nil
		}
		open = lo + i
	}

	labelStart := open + len(opener)
	searchFrom := labelStart
	if len(label) > 0 {
		searchFrom = label[len(label)-1].End
	}
	i := bytes.IndexByte(tb.source[searchFrom:hi], ']')
	if i < 0 {
		return nil
	}
	labelEnd := searchFrom + i

	textStart := open
	if image {
		textStart = open + 1
	}
	linkText := &Node{Kind: KindLinkText, Start: textStart, End: labelEnd + 1}
	linkText.Children = append([]*Node{{Kind: KindMarker, Start: textStart, End: labelStart}},
		tb.fill(labelStart, labelEnd, label, KindLeaf)...)
	linkText.Children = append(linkText.Children, &Node{Kind: KindMarker, Start: labelEnd, End: labelEnd + 1})

	inline := &Node{Kind: KindInlineLink, Start: textStart, Children: []*Node{linkText}}
	tail := tb.linkTail(labelEnd+1, hi)
	inline.Children = append(inline.Children, tail.nodes...)
	inline.End = tail.end

	if !image {
		return inline
	}
	return &Node{
		Kind:     KindImage,
		Start:    open,
		End:      inline.End,
		Children: []*Node{{Kind: KindMarker, Start: open, End: open + 1}, inline},
	}
}

type linkTail struct {
	nodes []*Node
	end   int
}

// linkTail scans what follows a link label's closing bracket.
func (tb *treeBuilder) linkTail(p, hi int) linkTail {
	src := tb.source
	if p >= hi || src[p] != '(' {
		// Reference style: [text][ref], [text][] or [text]
		if p < hi && src[p] == '[' {
			if i := bytes.IndexByte(src[p:hi], ']'); i >= 0 {
				return linkTail{nodes: []*Node{{Kind: KindMarker, Start: p, End: p + i + 1}}, end: p + i + 1}
			}
		}
		return linkTail{end: p}
	}

	q := skipSpace(src, p+1, hi)
	var destStart, destEnd int
	if q < hi && src[q] == '<' {
		destStart = q + 1
		i := bytes.IndexByte(src[destStart:hi], '>')
		if i < 0 {
			return linkTail{end: p}
		}
		destEnd = destStart + i
		q = destEnd + 1
	} else {
		destStart = q
		nesting := 0
	scan:
		for q < hi {
			switch c := src[q]; {
			case c == '\\' && q+1 < hi:
				q += 2
				continue
			case c == '(':
				nesting++
			case c == ')':
				if nesting == 0 {
					break scan
				}
				nesting--
			case c == ' ' || c == '\t' || c == '\n' || c < 0x20:
				break scan
			}
			q++
		}
		destEnd = q
	}

	// Optional title, then the closing paren
	q = skipSpace(src, q, hi)
	if q < hi && (src[q] == '"' || src[q] == '\'' || src[q] == '(') {
		closer := src[q]
		if closer == '(' {
			closer = ')'
		}
		q++
		for q < hi && src[q] != closer {
			if src[q] == '\\' {
				q++
			}
			q++
		}
		q = skipSpace(src, q+1, hi)
	}
	if q >= hi || src[q] != ')' {
		return linkTail{end: p}
	}
	end := q + 1

	if destStart == destEnd {
		return linkTail{nodes: []*Node{{Kind: KindMarker, Start: p, End: end}}, end: end}
	}
	nodes := []*Node{
		{Kind: KindMarker, Start: p, End: destStart},
		{Kind: KindLinkDestination, Start: destStart, End: destEnd, Children: tb.tokens(destStart, destEnd)},
	}
	if destEnd < q {
		nodes = append(nodes, &Node{Kind: KindMarker, Start: destEnd, End: q})
	}
	nodes = append(nodes, &Node{Kind: KindMarker, Start: q, End: end})
	return linkTail{nodes: nodes, end: end}
}

// autoLink maps <url> onto the inline link shape: the label and the
// destination share the text between the angle brackets.
func (tb *treeBuilder) autoLink(al *gast.AutoLink, lo, hi int) *Node {
	i := bytes.IndexByte(tb.source[lo:hi], '<')
	if i < 0 {
		return nil
	}
	open := lo + i
	j := bytes.IndexByte(tb.source[open:hi], '>')
	if j < 0 {
		return nil
	}
	closeAt := open + j
	if !bytes.Equal(tb.source[open+1:closeAt], al.Label(tb.source)) {
		return nil
	}
	return &Node{
		Kind:  KindInlineLink,
		Start: open,
		End:   closeAt + 1,
		Children: []*Node{
			{Kind: KindLinkText, Start: open, End: closeAt + 1, Children: []*Node{
				{Kind: KindMarker, Start: open, End: open + 1},
				{Kind: KindText, Start: open + 1, End: closeAt},
				{Kind: KindMarker, Start: closeAt, End: closeAt + 1},
			}},
			{
				Kind:     KindLinkDestination,
				Start:    open + 1,
				End:      closeAt,
				Children: tb.tokens(open+1, closeAt),
				Value:    autoLinkURL(al, tb.source),
			},
			{Kind: KindMarker, Start: closeAt + 1, End: closeAt + 1},
		},
	}
}

// autoLinkURL is the resolved target of an autolink when it differs from
// the text between the brackets, e.g. mailto: for email addresses.
func autoLinkURL(al *gast.AutoLink, source []byte) string {
	url := al.URL(source)
	if bytes.Equal(url, al.Label(source)) {
		return ""
	}
	return string(url)
}

// tokens splits [start, end) into word runs and single punctuation bytes,
// so "http://x" becomes "http", ":", "/", "/", "x".
func (tb *treeBuilder) tokens(start, end int) []*Node {
	var out []*Node
	for p := start; p < end; {
		q := p + 1
		if isWordByte(tb.source[p]) {
			for q < end && isWordByte(tb.source[q]) {
				q++
			}
		}
		out = append(out, &Node{Kind: KindText, Start: p, End: q})
		p = q
	}
	return out
}

// isWordByte treats all non-ASCII bytes as word bytes so runes are never split.
func isWordByte(c byte) bool {
	return c >= 0x80 || c == '_' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// container handles lists, list items and block quotes. Their markers
// ("- ", "1. ", "> ") stay as literal gap text.
func (tb *treeBuilder) container(n gast.Node, kind Kind, lo, hi, depth int) *Node {
	children := tb.children(n, lo, hi, depth+1)
	if len(children) == 0 {
		return nil
	}
	start := tb.lineStart(children[0].Start, lo)
	end := children[len(children)-1].End
	return &Node{
		Kind:     kind,
		Start:    start,
		End:      end,
		Children: tb.fill(start, end, children, KindLeaf),
	}
}

// fill returns children interleaved with gap tokens covering [start, end).
func (tb *treeBuilder) fill(start, end int, children []*Node, gap Kind) []*Node {
	out := make([]*Node, 0, 2*len(children)+1)
	cur := start
	for _, c := range children {
		if c.Start > cur {
			out = append(out, &Node{Kind: gap, Start: cur, End: c.Start})
		}
		out = append(out, c)
		cur = c.End
	}
	if end > cur {
		out = append(out, &Node{Kind: gap, Start: cur, End: end})
	}
	return out
}

func (tb *treeBuilder) lineStart(p, lo int) int {
	for p > lo && tb.source[p-1] != '\n' {
		p--
	}
	return p
}

// lineEnd returns the offset of the newline ending the line containing p, or hi.
func (tb *treeBuilder) lineEnd(p, hi int) int {
	if i := bytes.IndexByte(tb.source[p:hi], '\n'); i >= 0 {
		return p + i
	}
	return hi
}

// nextLine returns the start of the line after the one containing p, or hi.
func (tb *treeBuilder) nextLine(p, hi int) int {
	e := tb.lineEnd(p, hi)
	if e < hi {
		return e + 1
	}
	return hi
}

func linesSpan(lines *text.Segments) (start, end int, ok bool) {
	if lines == nil || lines.Len() == 0 {
		return 0, 0, false
	}
	return lines.At(0).Start, lines.At(lines.Len() - 1).Stop, true
}

// textSpan is linesSpan with trailing whitespace dropped.
func (tb *treeBuilder) textSpan(lines *text.Segments) (start, end int, ok bool) {
	start, end, ok = linesSpan(lines)
	for ok && end > start && isSpace(tb.source[end-1]) {
		end--
	}
	return start, end, ok
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func skipIndent(b []byte, p, hi int) int {
	for p < hi && (b[p] == ' ' || b[p] == '\t' || b[p] == '>') {
		p++
	}
	return p
}

// skipContainerPrefix is skipIndent that also steps over list item markers
// ("- ", "* ", "+ ", "1. ", "1) ").
func skipContainerPrefix(b []byte, p, hi int) int {
	for p < hi {
		switch c := b[p]; {
		case c == ' ' || c == '\t' || c == '>':
			p++
		case (c == '-' || c == '*' || c == '+') && p+1 < hi && (b[p+1] == ' ' || b[p+1] == '\t'):
			p += 2
		case c >= '0' && c <= '9':
			q := p
			for q < hi && q-p < 9 && b[q] >= '0' && b[q] <= '9' {
				q++
			}
			if q+1 >= hi || (b[q] != '.' && b[q] != ')') || (b[q+1] != ' ' && b[q+1] != '\t') {
				return p
			}
			p = q + 2
		default:
			return p
		}
	}
	return p
}

func runLength(b []byte, c byte) int {
	n := 0
	for n < len(b) && b[n] == c {
		n++
	}
	return n
}

func skipSpace(b []byte, p, hi int) int {
	for p < hi && (b[p] == ' ' || b[p] == '\t' || b[p] == '\n') {
		p++
	}
	return p
}
