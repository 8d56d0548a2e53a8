package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/umputun/trendmind/pkg/domain"
)

// ErrUnsupportedSource is returned for identifiers that are neither a url nor a handle
var ErrUnsupportedSource = errors.New("unsupported source")

var microblogHosts = []string{"x.com", "twitter.com"}

// Detect returns source type of the identifier: microblog for @handles and x.com or twitter.com urls,
// newsletter for substack.com urls, feed for any other http(s) url
func Detect(identifier string) (domain.SourceType, error) {
	s := strings.TrimSpace(identifier)
	if s == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrUnsupportedSource)
	}
	if strings.HasPrefix(s, "@") && !strings.ContainsAny(s, "/ ") {
		return domain.SourceMicroblog, nil
	}

	raw := s
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw // allow bare hosts like x.com/handle
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, identifier)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch {
	case hostIn(host, microblogHosts...):
		return domain.SourceMicroblog, nil
	case s != raw:
		// bare host without scheme is only accepted for microblog profiles
		return "", fmt.Errorf("%w: %q has no http(s) scheme", ErrUnsupportedSource, identifier)
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, identifier)
	case hostIn(host, "substack.com"):
		return domain.SourceNewsletter, nil
	default:
		return domain.SourceFeed, nil
	}
}

// hostIn checks if host is one of domains or their subdomain
func hostIn(host string, domains ...string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
