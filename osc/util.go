package osc

import (
	"regexp"
	"strings"
	"sync"
)

////
// Utility and helper functions
////
var (
	bPool = sync.Pool{
		New: func() interface{} {
			b := make([]byte, MaxPacketSize)
			return &b
		},
	}

	patternReplacer = strings.NewReplacer(
		".", `\.`, // Escape all '.' in the pattern
		"(", `\(`, // Escape all '(' in the pattern
		")", `\)`, // Escape all ')' in the pattern
		"*", "[^/]*", // '*' matches zero or more chars within one part
		"{", "(", // Change a '{' to '('
		",", "|", // Change a ',' to '|'
		"}", ")", // Change a '}' to ')'
		"?", "[^/]", // '?' matches a single char within one part
		"!", "^", // '[!...]' negates a character class
	)
)

// getRegEx compiles and returns a regular expression object for the given
// address `pattern`.
func getRegEx(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(patternReplacer.Replace(pattern))
}
