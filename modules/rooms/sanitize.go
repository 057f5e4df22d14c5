package rooms

import (
	"strings"

	"golang.org/x/net/html"
)

// Sanitize strips every tag from s. Text inside script and style elements
// is dropped; entities in the remaining text are kept as written.
func Sanitize(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Raw())
			}
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if skip > 0 && isRawTextTag(z) {
				skip--
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
