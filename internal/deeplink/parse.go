// Package deeplink parses tracked link URLs and dispatches deferred and
// direct deep links to registered callbacks.
package deeplink

import (
	"net/url"
	"sort"
	"strings"

	"github.com/LinkForty/linkforty-go/internal/model"
)

// ParsedURL holds the structural parts of a link string.
type ParsedURL struct {
	Pathname    string
	QueryParams map[string]string
}

// Parse splits a URL string into path and decoded query parameters. It
// never fails loudly: malformed input, a missing "://" separator or an
// undecodable percent sequence all yield nil.
func Parse(raw string) *ParsedURL {
	schemeEnd := strings.Index(raw, "://")
	if schemeEnd < 0 {
		return nil
	}
	rest := raw[schemeEnd+3:]

	pathname := "/"
	query := ""
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		tail := rest[slash:]
		// Fragment is stripped before the query is considered.
		if hash := strings.IndexByte(tail, '#'); hash >= 0 {
			tail = tail[:hash]
		}
		if qm := strings.IndexByte(tail, '?'); qm >= 0 {
			pathname, query = tail[:qm], tail[qm+1:]
		} else {
			pathname = tail
		}
	}

	params := make(map[string]string)
	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			if pair == "" {
				continue
			}
			// A pair with no "=" yields an empty-string value.
			key, value, _ := strings.Cut(pair, "=")
			decodedKey, err := url.QueryUnescape(key)
			if err != nil {
				return nil
			}
			decodedValue, err := url.QueryUnescape(value)
			if err != nil {
				return nil
			}
			params[decodedKey] = decodedValue
		}
	}

	return &ParsedURL{Pathname: pathname, QueryParams: params}
}

// PathSegments returns the non-empty segments of a parsed pathname.
func (p *ParsedURL) PathSegments() []string {
	var segments []string
	for _, seg := range strings.Split(p.Pathname, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// ParseDeepLinkURL parses raw into LinkData. When baseURL is non-empty
// and raw is not prefixed by it, no parse is attempted and the result is
// nil. The last non-empty path segment becomes the short code; without
// one the result is nil. Recognized utm_* query keys populate
// UTMParameters, everything else lands in CustomParameters; each group
// is present only when non-empty.
func ParseDeepLinkURL(raw, baseURL string) *model.LinkData {
	if baseURL != "" && !strings.HasPrefix(raw, baseURL) {
		return nil
	}
	parsed := Parse(raw)
	if parsed == nil {
		return nil
	}
	segments := parsed.PathSegments()
	if len(segments) == 0 {
		return nil
	}

	utm := model.UTMParameters{}
	custom := make(map[string]string)
	for key, value := range parsed.QueryParams {
		switch key {
		case "utm_source":
			utm.Source = value
		case "utm_medium":
			utm.Medium = value
		case "utm_campaign":
			utm.Campaign = value
		case "utm_term":
			utm.Term = value
		case "utm_content":
			utm.Content = value
		default:
			custom[key] = value
		}
	}

	data := &model.LinkData{ShortCode: segments[len(segments)-1]}
	if !utm.IsZero() {
		data.UTMParameters = &utm
	}
	if len(custom) > 0 {
		data.CustomParameters = custom
	}
	return data
}

// BuildQueryString percent-encodes params into "k=v" pairs joined by
// "&". Keys are emitted in sorted order so encoded URLs are stable.
func BuildQueryString(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[key]))
	}
	return b.String()
}
