package bangs

import (
	"net/url"
	"strings"

	"github.com/joss/ducky/internal/domain"
)

// componentFix turns url.QueryEscape output into URI-component encoding:
// spaces become %20 and the sub-delimiters !'()* stay literal. %2F is
// restored to / so path-like arguments (owner/repo) survive templating.
var componentFix = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
	"%2F", "/",
)

// EncodeQuery percent-encodes q for substitution into a URL template.
func EncodeQuery(q string) string {
	return componentFix.Replace(url.QueryEscape(q))
}

// Expand substitutes q into b's URL template.
func Expand(b domain.Bang, q string) string {
	return strings.Replace(b.URLTemplate, domain.Placeholder, EncodeQuery(q), 1)
}

// EncodeComponent percent-encodes q like EncodeQuery but keeps "/" escaped.
func EncodeComponent(q string) string {
	return strings.ReplaceAll(EncodeQuery(q), "/", "%2F")
}
