package filter

import (
	"regexp"
	"strconv"
	"strings"
)

// Similarity is the fuzzy edit distance appended to every name term.
const Similarity = "~4"

var (
	queryMeta     = regexp.MustCompile(`[+\-=&|><!(){}\[\]^"~*?:\\/]`)
	similaritySfx = regexp.MustCompile(`~\d*`)
)

// IsNumeric reports whether s parses as a number.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// NameQuery turns free text typed into the name box into a fuzzy
// query-string value: "george eastman" -> "(george~4 AND eastman~4)".
// Numeric input is an id and is kept as is; blank input is the wildcard.
func NameQuery(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Wildcard
	}
	if IsNumeric(text) {
		return text
	}
	words := strings.Fields(queryMeta.ReplaceAllString(text, " "))
	if len(words) == 0 {
		return Wildcard
	}
	for i, w := range words {
		words[i] = w + Similarity
	}
	return "(" + strings.Join(words, " AND ") + ")"
}

// StripNameQuery recovers the text shown in the name box from a stored value.
func StripNameQuery(value string) string {
	if value == Wildcard {
		return ""
	}
	raw := strings.NewReplacer("(", "", ")", "", "*", "").Replace(value)
	raw = similaritySfx.ReplaceAllString(raw, "")
	if IsNumeric(raw) {
		return raw
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(raw, " AND ", " ")), " ")
}
