package pipeline

import (
	"regexp"
	"strings"
)

// Terminal escape sequences stripped from archived text. OSC runs first
// because title sequences may embed bytes the CSI pattern would split.
var (
	// OSC: ESC ] ... terminated by BEL or ST (ESC \). Unterminated
	// sequences at a chunk boundary are still removed to end of match.
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)?`)

	// CSI: cursor movement, erase, SGR, private mode set/reset.
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?=<>]*[@-~]`)

	// Charset switching: ESC ( X / ESC ) X.
	charsetPattern = regexp.MustCompile(`\x1b[()][0-9A-Za-z]`)

	// Remaining two-byte escapes (keypad modes, RIS, ...).
	escMiscPattern = regexp.MustCompile(`\x1b[@-_=><78]?`)
)

// statusPhrasePattern matches recognized transient status lines.
var statusPhrasePattern = regexp.MustCompile(`(?i)^[\s.·…]*(thinking|loading|working|running|waiting)[\s.·…]*$`)

// Normalize strips terminal control sequences and carriage returns from
// raw pane text, drops progress/spinner/box-drawing noise lines, collapses
// runs of three or more blank lines to one, and trims the result. All
// non-escape characters and newlines are preserved verbatim.
func Normalize(raw string) string {
	text := oscPattern.ReplaceAllString(raw, "")
	text = csiPattern.ReplaceAllString(text, "")
	text = charsetPattern.ReplaceAllString(text, "")
	text = escMiscPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r", "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			continue
		}
		if isNoiseLine(line) {
			continue
		}
		if blanks > 0 {
			if blanks >= 3 {
				out = append(out, "")
			} else {
				for i := 0; i < blanks; i++ {
					out = append(out, "")
				}
			}
			blanks = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// isNoiseLine reports whether a non-blank line carries no conversational
// content: spinner glyphs, progress blocks, box-drawing borders, or a
// recognized transient status phrase.
func isNoiseLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if statusPhrasePattern.MatchString(trimmed) {
		return true
	}
	for _, r := range trimmed {
		if !isNoiseRune(r) {
			return false
		}
	}
	return true
}

// isNoiseRune covers braille spinners, box drawing, block/geometric
// progress glyphs, and the punctuation that pads them.
func isNoiseRune(r rune) bool {
	switch {
	case r >= 0x2500 && r <= 0x257F: // box drawing
		return true
	case r >= 0x2580 && r <= 0x259F: // block elements
		return true
	case r >= 0x25A0 && r <= 0x25FF: // geometric shapes
		return true
	case r >= 0x2800 && r <= 0x28FF: // braille spinners
		return true
	case r == ' ' || r == '\t' || r == '.' || r == '·' || r == '…' || r == '*':
		return true
	}
	return false
}
