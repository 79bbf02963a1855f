package normalize

import (
	"net/url"
	"strings"

	"tagpay/internal/domain/model"
)

// Generic accepts an http(s) URL whose host is, or is a subdomain of, an
// allowed domain. A missing scheme defaults to https and http is upgraded.
func (n *Normalizer) Generic(raw string) (string, error) {
	s, u, err := parseWebURL(model.ProviderGeneric, raw)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if !n.domainAllowed(host) {
		return "", fail(model.ProviderGeneric, "domain %s is not an allowed payment domain", host)
	}
	return s, nil
}

// CardLink is the direct-URL variant: no provider detection and no allow
// list, but the input must be a full URL. http is upgraded to https.
func CardLink(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		return "", fail(model.ProviderGeneric, "a full URL is required")
	}
	s, _, err := parseWebURL(model.ProviderGeneric, raw)
	return s, err
}

// parseWebURL returns raw with its scheme rewritten to https, along with the
// parsed form. The rest of the string is left untouched.
func parseWebURL(p model.PaymentProvider, raw string) (string, *url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil, fail(p, "URL is empty")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", nil, fail(p, "malformed URL")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", nil, fail(p, "URL scheme must be http or https")
	}
	if u.Hostname() == "" {
		return "", nil, fail(p, "URL has no host")
	}
	if u.User != nil {
		return "", nil, fail(p, "URL must not carry credentials")
	}
	s = "https" + s[len(u.Scheme):]
	u.Scheme = "https"
	return s, u, nil
}
