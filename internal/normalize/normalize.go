// Package normalize turns free-form payment identifiers into canonical HTTPS
// redirect targets. Everything here is pure: no I/O, no globals.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
)

// Config is injected once at construction.
type Config struct {
	// AllowedDomains limits generic URLs; subdomains of an entry are accepted.
	// Provider detection runs first, so a provider host listed here is still
	// held to that provider's format.
	AllowedDomains []string
	// ServiceDomain is the host serving the Zelle instructions page and profiles.
	ServiceDomain string
}

// Error reports which provider rule rejected the input.
type Error struct {
	Provider model.PaymentProvider
	Reason   string
}

func (e *Error) Error() string { return string(e.Provider) + ": " + e.Reason }

func (e *Error) Unwrap() error { return domain.ErrNormalization }

func fail(p model.PaymentProvider, format string, args ...any) error {
	return &Error{Provider: p, Reason: fmt.Sprintf(format, args...)}
}

// Reason extracts the rule description from a normalization error.
func Reason(err error) string {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Reason
	}
	return ""
}

// Contact carries the activating user's details. Only Zelle uses it, as a
// fallback when the handle itself names no email or phone.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Result is the outcome of the main normalization variant.
type Result struct {
	Provider model.PaymentProvider
	URL      string
}

type Normalizer struct {
	allowed     []string
	serviceHost string
}

func New(cfg Config) (*Normalizer, error) {
	host := strings.ToLower(strings.TrimSpace(cfg.ServiceDomain))
	if host == "" {
		return nil, fmt.Errorf("%w: service domain is required", domain.ErrInvalidArgument)
	}
	allowed := make([]string, 0, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			allowed = append(allowed, d)
		}
	}
	return &Normalizer{allowed: allowed, serviceHost: host}, nil
}

// DetectProvider applies the fixed-priority heuristics: CashApp, PayPal,
// Venmo, Zelle, then Generic.
func DetectProvider(handle string) model.PaymentProvider {
	h := strings.ToLower(strings.TrimSpace(handle))
	switch {
	case strings.Contains(h, "cash.app") || strings.HasPrefix(h, "$"):
		return model.ProviderCashApp
	case strings.Contains(h, "paypal"):
		return model.ProviderPayPal
	case strings.Contains(h, "venmo") || strings.HasPrefix(h, "@"):
		return model.ProviderVenmo
	case strings.Contains(h, "zelle"):
		return model.ProviderZelle
	default:
		return model.ProviderGeneric
	}
}

// Normalize detects the provider and runs its branch.
// Instruction page URLs built here are always routed back to Zelle, whatever
// the embedded email looks like.
func (n *Normalizer) Normalize(handle string, c Contact) (Result, error) {
	p := DetectProvider(handle)
	if n.isZellePage(handle) {
		p = model.ProviderZelle
	}
	u, err := n.NormalizeFor(p, handle, c)
	if err != nil {
		return Result{Provider: p}, err
	}
	return Result{Provider: p, URL: u}, nil
}

// NormalizeFor runs exactly one provider branch.
func (n *Normalizer) NormalizeFor(p model.PaymentProvider, handle string, c Contact) (string, error) {
	switch p {
	case model.ProviderCashApp:
		return n.CashApp(handle)
	case model.ProviderPayPal:
		return n.PayPal(handle)
	case model.ProviderVenmo:
		return n.Venmo(handle)
	case model.ProviderZelle:
		return n.Zelle(handle, c)
	case model.ProviderGeneric:
		return n.Generic(handle)
	default:
		return "", fail(p, "unsupported provider")
	}
}

// ServiceHost is the configured public host of this service.
func (n *Normalizer) ServiceHost() string { return n.serviceHost }

func (n *Normalizer) isZellePage(handle string) bool {
	s := strings.ToLower(strings.TrimSpace(handle))
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, scheme+n.serviceHost+ZellePath+"?") {
			return true
		}
	}
	return false
}

func (n *Normalizer) domainAllowed(host string) bool {
	for _, d := range n.allowed {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
