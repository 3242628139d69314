// Package sanitizer strips markup that trips up tokenizers before link
// extraction.
package sanitizer

import "regexp"

var (
	scriptRegex   = regexp.MustCompile(`(?is)<\s*script[^>]*?>.*?</script>`)
	noscriptRegex = regexp.MustCompile(`(?is)<\s*noscript[^>]*?>.*?</noscript>`)
	// Broken comments such as "<! -- comment -->". Proper "<!--" comments
	// do not match since '-' is not whitespace.
	bangRegex = regexp.MustCompile(`(?s)<!\s.*?>`)
)

// Sanitize removes script and noscript blocks and malformed "<! ...>"
// comments from html. Each block is removed up to its first closing tag.
func Sanitize(html string) string {
	html = scriptRegex.ReplaceAllLiteralString(html, "")
	html = noscriptRegex.ReplaceAllLiteralString(html, "")
	return bangRegex.ReplaceAllLiteralString(html, "")
}
