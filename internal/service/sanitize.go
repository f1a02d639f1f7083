package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy strips every tag from user-supplied free text. Loads and
// messages are shown to other users, so markup is never kept.
var textPolicy = bluemonday.StrictPolicy()

// sanitizeText removes markup and surrounding whitespace. Entities escaped by
// the policy are decoded again because templates escape on output.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
