package crawl

import (
	"net/url"
	"strings"

	"github.com/fwojciec/siteqa"
	"golang.org/x/net/publicsuffix"
)

// scope decides whether a discovered URL belongs to the crawl.
type scope struct {
	policy siteqa.AllowPolicy
	host   string
	site   string
}

func newScope(startURL string, policy siteqa.AllowPolicy) (*scope, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, siteqa.Errorf(siteqa.EINVALID, "invalid start URL: %v", err)
	}
	if policy == "" {
		policy = siteqa.AllowSameHost
	}
	return &scope{
		policy: policy,
		host:   strings.ToLower(u.Host),
		site:   registrableDomain(u.Hostname()),
	}, nil
}

// allows reports whether rawURL may be followed under the allow policy.
func (s *scope) allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	switch s.policy {
	case siteqa.AllowAny:
		return true
	case siteqa.AllowSameSite:
		return registrableDomain(u.Hostname()) == s.site
	default:
		return strings.EqualFold(u.Host, s.host)
	}
}

// registrableDomain returns eTLD+1 for host, or the host itself when it
// has none (IP addresses, localhost).
func registrableDomain(host string) string {
	host = strings.ToLower(host)
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}
