package theme

import "github.com/gdamore/tcell/v2"

// TokyoNight color palette
var (
	// Background colors
	ColorBg          = tcell.NewRGBColor(0x1a, 0x1b, 0x26) // #1a1b26 - Dark background
	ColorBgDark      = tcell.NewRGBColor(0x16, 0x16, 0x1e) // #16161e - Darker background
	ColorBgHighlight = tcell.NewRGBColor(0x29, 0x2e, 0x42) // #292e42 - Highlighted background

	// Foreground colors
	ColorFg     = tcell.NewRGBColor(0xc0, 0xca, 0xf5) // #c0caf5 - Default text
	ColorFgDark = tcell.NewRGBColor(0x56, 0x5f, 0x89) // #565f89 - Dimmed text

	// Accent colors
	ColorBlue    = tcell.NewRGBColor(0x7a, 0xa2, 0xf7) // #7aa2f7 - Primary blue
	ColorCyan    = tcell.NewRGBColor(0x7d, 0xcf, 0xff) // #7dcfff - Cyan
	ColorGreen   = tcell.NewRGBColor(0x9e, 0xce, 0x6a) // #9ece6a - Green
	ColorMagenta = tcell.NewRGBColor(0xbb, 0x9a, 0xf7) // #bb9af7 - Purple/Magenta
	ColorOrange  = tcell.NewRGBColor(0xff, 0x9e, 0x64) // #ff9e64 - Orange
	ColorRed     = tcell.NewRGBColor(0xf7, 0x76, 0x8e) // #f7768e - Red
	ColorYellow  = tcell.NewRGBColor(0xe0, 0xaf, 0x68) // #e0af68 - Yellow

	// Document-specific color mappings
	ColorLink      = ColorBlue        // Hyperlink text
	ColorCodeSpan  = ColorBgHighlight // Inline code background
	ColorCodeFence = ColorBgDark      // Fenced code block background
	ColorHighlight = ColorYellow      // Search highlights
)

// ObjectReplacement is the placeholder character reserved for inline images.
const ObjectReplacement = "\uFFFC"

// Theme holds the styling parameters applied while converting a document.
type Theme struct {
	// HeadingSizes holds font sizes for heading levels 1 through 6.
	HeadingSizes [6]int

	Link            tcell.Color
	CodeBackground  tcell.Color
	FenceBackground tcell.Color

	// Inline image placeholder geometry.
	ImageWidth       int
	ImageHeight      int
	ImagePlaceholder string
}

// Default returns the stock theme: 24/20 for the first two heading levels,
// TokyoNight accents and a 150x150 image placeholder.
func Default() Theme {
	return Theme{
		HeadingSizes:     [6]int{24, 20, 18, 16, 14, 12},
		Link:             ColorLink,
		CodeBackground:   ColorCodeSpan,
		FenceBackground:  ColorCodeFence,
		ImageWidth:       150,
		ImageHeight:      150,
		ImagePlaceholder: ObjectReplacement,
	}
}

// HeadingSize returns the font size for a heading level, clamping the level
// to the 1..6 range.
func (t Theme) HeadingSize(level int) int {
	if level < 1 {
		level = 1
	}
	if level > len(t.HeadingSizes) {
		level = len(t.HeadingSizes)
	}
	return t.HeadingSizes[level-1]
}
