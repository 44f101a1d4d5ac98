package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// StrictPolicy removes all markup
var StrictPolicy = bluemonday.StrictPolicy()

var (
	replyPrefixes   = []string{"re:", "aw:", "sv:"}
	forwardPrefixes = []string{"fwd:", "fw:", "wg:"}
)

// HTMLToText strips all tags from an HTML body and decodes entities
func HTMLToText(htmlBody string) string {
	text := strings.NewReplacer(
		"<br>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
		"</p>", "\n",
		"</div>", "\n",
	).Replace(htmlBody)

	// bluemonday escapes the text it keeps
	text = html.UnescapeString(StrictPolicy.Sanitize(text))

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// NormalizeSubject removes leading reply and forward prefixes, keeping case
func NormalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for {
		prefix := matchPrefix(subject, replyPrefixes)
		if prefix == "" {
			prefix = matchPrefix(subject, forwardPrefixes)
		}
		if prefix == "" {
			return subject
		}
		subject = strings.TrimSpace(subject[len(prefix):])
	}
}

// IsForwardSubject reports whether any leading prefix of the subject marks a forward
func IsForwardSubject(subject string) bool {
	subject = strings.TrimSpace(subject)
	for {
		if matchPrefix(subject, forwardPrefixes) != "" {
			return true
		}
		prefix := matchPrefix(subject, replyPrefixes)
		if prefix == "" {
			return false
		}
		subject = strings.TrimSpace(subject[len(prefix):])
	}
}

// matchPrefix returns the case-insensitively matching prefix of s, or ""
func matchPrefix(s string, prefixes []string) string {
	lower := strings.ToLower(s)
	for _, prefix := range prefixes {
		if strings.HasPrefix(lower, prefix) {
			return s[:len(prefix)]
		}
	}
	return ""
}
