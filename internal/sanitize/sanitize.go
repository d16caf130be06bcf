// Package sanitize strips markup from user-supplied text before it is
// stored. File names and descriptions are echoed back to clients that may
// render them as HTML, so every tag is removed and entities are unescaped
// once to keep plain text readable.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy. Initialized once via sync.Once for
// thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML from input and trims surrounding whitespace.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}

// FolderName cleans a client-chosen upload folder: markup is stripped and
// path traversal segments are dropped so the folder always stays beneath
// the caller's own prefix.
func FolderName(input string) string {
	var parts []string
	for _, p := range strings.Split(Text(input), "/") {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "/")
}
