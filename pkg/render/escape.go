package render

import "strings"

// textEscaper escapes text content. Quotes are escaped too so the same
// output is safe inside attribute values written by hand.
var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// attrEscaper additionally encodes whitespace that would otherwise be
// normalized by attribute parsing.
var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

func escapeHTML(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// EscapeHTML escapes s for inclusion in HTML text content.
func EscapeHTML(s string) string { return escapeHTML(s) }
