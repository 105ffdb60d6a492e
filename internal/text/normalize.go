package text

import (
	"strings"
	"unicode"
)

// varietals maps spelling variants found across license texts to a single
// form so that "licence" and "license" compare as the same word.
var varietals = map[string]string{
	"acknowledgement":  "acknowledgment",
	"acknowledgements": "acknowledgments",
	"analogue":         "analog",
	"authorisation":    "authorization",
	"authorised":       "authorized",
	"behaviour":        "behavior",
	"cancelled":        "canceled",
	"catalogue":        "catalog",
	"centre":           "center",
	"colour":           "color",
	"favour":           "favor",
	"labelled":         "labeled",
	"licence":          "license",
	"licenced":         "licensed",
	"licences":         "licenses",
	"licencing":        "licensing",
	"modelling":        "modeling",
	"offence":          "offense",
	"organisation":     "organization",
	"organisations":    "organizations",
	"practise":         "practice",
	"recognised":       "recognized",
	"sublicence":       "sublicense",
	"whilst":           "while",
}

// NormalizeLine folds case, turns every run of non-alphanumeric runes into a
// single space, trims the result, and canonicalizes spelling variants.
// The copyright sign becomes the word "copyright".
//
// NormalizeLine(NormalizeLine(s)) == NormalizeLine(s) for every s.
func NormalizeLine(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pending := false
	for _, r := range s {
		if r == '©' {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("copyright")
			pending = true
			continue
		}
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	out := b.String()
	words := strings.Fields(out)
	replaced := false
	for i, w := range words {
		if v, ok := varietals[w]; ok {
			words[i] = v
			replaced = true
		}
	}
	if !replaced {
		return out
	}
	return strings.Join(words, " ")
}

// splitLines breaks raw text on \n, \r\n and \r. A final line terminator does
// not open an extra empty line.
func splitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// copyrightMarkers are the second words that make a line starting with
// "copyright" a copyright statement rather than license prose.
var copyrightMarkers = map[string]bool{
	"c":     true,
	"yyyy":  true,
	"year":  true,
	"years": true,
}

// isCopyrightLine reports whether a normalized line is a copyright statement.
// Such lines vary per project and are left out of fingerprints.
func isCopyrightLine(line string) bool {
	if strings.Contains(line, "all rights reserved") {
		return true
	}
	first, rest, _ := strings.Cut(line, " ")
	second, _, _ := strings.Cut(rest, " ")
	switch first {
	case "copyright":
		return copyrightMarkers[second] || startsWithDigit(second)
	case "c":
		return startsWithDigit(second)
	}
	return false
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}
