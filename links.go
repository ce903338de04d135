package dave

import "regexp"

var (
	// inlineLink matches [text](target) and ![alt](target) on a single line.
	// The target may hold one level of balanced parentheses, as in
	// "a (1).csv" or "Foo_(bar)".
	inlineLink = regexp.MustCompile(`!?\[[^\[\]\n]*\]\((?:[^()\n]|\([^()\n]*\))*\)`)

	// linkListItem matches a whole bullet or numbered list line holding a link.
	linkListItem = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+[.)])[ \t]+[^\n]*!?\[[^\[\]\n]*\]\((?:[^()\n]|\([^()\n]*\))*\)[^\n]*(?:\n|$)`)
)

// StripLinks deletes markdown hyperlinks from s, together with any list-item
// line that contains one. Generated files are offered through dedicated
// download blocks, so links the assistant writes would point nowhere.
//
// Removal repeats until nothing matches, which makes StripLinks idempotent
// even for nested bracket syntax. A link whose closing parenthesis has not
// streamed in yet does not match and is left untouched.
func StripLinks(s string) string {
	for {
		out := linkListItem.ReplaceAllString(s, "")
		out = inlineLink.ReplaceAllString(out, "")
		if out == s {
			return out
		}
		s = out
	}
}
