package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"tagpay/internal/domain/model"
)

var (
	cashTagChars  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	usernameChars = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	cashAppPath = regexp.MustCompile(`^/\$?([A-Za-z0-9_]+)/?$`)
	payPalPath  = regexp.MustCompile(`^/([A-Za-z0-9_-]+)(/[0-9]+(\.[0-9]{1,2})?[A-Za-z]{0,3})?/?$`)
	venmoPath   = regexp.MustCompile(`^/(u/)?([A-Za-z0-9_-]+)/?$`)
)

// handleRule describes one handle-shaped provider.
type handleRule struct {
	provider model.PaymentProvider
	hosts    []string
	labels   []string
	chars    *regexp.Regexp
	path     *regexp.Regexp
	build    func(handle string) string
}

var (
	cashAppRule = handleRule{
		provider: model.ProviderCashApp,
		hosts:    []string{"cash.app", "www.cash.app"},
		labels:   []string{"cashapp", "cash app"},
		chars:    cashTagChars,
		path:     cashAppPath,
		build:    func(h string) string { return "https://cash.app/$" + h },
	}
	payPalRule = handleRule{
		provider: model.ProviderPayPal,
		hosts:    []string{"paypal.me", "www.paypal.me"},
		labels:   []string{"paypal"},
		chars:    usernameChars,
		path:     payPalPath,
		build:    func(h string) string { return "https://paypal.me/" + h },
	}
	venmoRule = handleRule{
		provider: model.ProviderVenmo,
		hosts:    []string{"venmo.com", "www.venmo.com", "account.venmo.com"},
		labels:   []string{"venmo"},
		chars:    usernameChars,
		path:     venmoPath,
		build:    func(h string) string { return "https://venmo.com/u/" + h },
	}
)

func (n *Normalizer) CashApp(handle string) (string, error) { return normalizeHandle(cashAppRule, handle) }

func (n *Normalizer) PayPal(handle string) (string, error) { return normalizeHandle(payPalRule, handle) }

func (n *Normalizer) Venmo(handle string) (string, error) { return normalizeHandle(venmoRule, handle) }

func normalizeHandle(r handleRule, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fail(r.provider, "handle is empty")
	}
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "http://"):
		return r.passThrough("https://" + s[len("http://"):])
	case strings.HasPrefix(lower, "https://"):
		return r.passThrough(s)
	case strings.Contains(lower, "://"):
		return "", fail(r.provider, "URL scheme must be https")
	}
	for _, h := range r.hosts {
		if strings.HasPrefix(lower, h+"/") {
			return r.passThrough("https://" + s)
		}
	}

	h := stripLabel(s, r.labels)
	h = strings.TrimLeft(h, "@$")
	if h == "" {
		return "", fail(r.provider, "handle is empty")
	}
	if !r.chars.MatchString(h) {
		return "", fail(r.provider, "handle contains invalid characters")
	}
	return r.build(h), nil
}

// passThrough accepts an https URL on one of the provider's own hosts whose
// path names a valid handle, and returns it unchanged.
func (r handleRule) passThrough(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", fail(r.provider, "malformed URL")
	}
	if u.User != nil {
		return "", fail(r.provider, "URL must not carry credentials")
	}
	host := strings.ToLower(u.Hostname())
	known := false
	for _, h := range r.hosts {
		if host == h {
			known = true
			break
		}
	}
	if !known {
		return "", fail(r.provider, "URL host must be %s", r.hosts[0])
	}
	if !r.path.MatchString(u.Path) {
		return "", fail(r.provider, "URL does not name a valid handle")
	}
	return s, nil
}

// stripLabel removes a leading provider word ("venmo: @bob") when it is
// followed by a separator.
func stripLabel(s string, labels []string) string {
	lower := strings.ToLower(s)
	for _, l := range labels {
		if !strings.HasPrefix(lower, l) || len(s) == len(l) {
			continue
		}
		switch s[len(l)] {
		case ' ', ':', '\t', '-', '/':
			return strings.TrimLeft(s[len(l):], " :\t-/")
		}
	}
	return s
}
