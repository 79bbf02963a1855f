package normalize

import (
	"net/url"
	"strings"
	"unicode"

	"tagpay/internal/domain/model"
	"tagpay/internal/validation"
)

// ZellePath is served by this service and renders payment instructions.
// Zelle itself has no public payment links.
const ZellePath = "/pay-by-zelle"

const maxZelleName = 100

// ZelleInfo is what the instructions page shows.
type ZelleInfo struct {
	Name  string
	Email string
	Phone string
}

// Zelle resolves an email, US phone or account name, optionally labelled
// "zelle:", to the instructions page. With no identifier in the handle the
// contact's email or phone is used.
func (n *Normalizer) Zelle(handle string, c Contact) (string, error) {
	s := strings.TrimSpace(handle)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		info, err := n.ParseZelleURL(s)
		if err != nil {
			return "", err
		}
		return n.zelleURL(info), nil
	}

	rest := stripLabel(s, []string{"zelle"})
	if strings.EqualFold(rest, "zelle") {
		rest = ""
	}
	info := ZelleInfo{Name: strings.TrimSpace(c.Name)}
	identified := false

	switch {
	case rest == "":
	case strings.Contains(rest, "@"):
		if !validation.IsValidEmail(rest) {
			return "", fail(model.ProviderZelle, "invalid email address")
		}
		info.Email = model.NormalizeEmail(rest)
	case looksLikePhone(rest):
		digits, ok := validation.NormalizeUSPhone(rest)
		if !ok {
			return "", fail(model.ProviderZelle, "phone must be a 10-digit US number")
		}
		info.Phone = digits
	default:
		if !validZelleName(rest) {
			return "", fail(model.ProviderZelle, "invalid account identifier")
		}
		info.Name = rest
		identified = true
	}

	if info.Email == "" && info.Phone == "" {
		if validation.IsValidEmail(c.Email) {
			info.Email = model.NormalizeEmail(c.Email)
		} else if digits, ok := validation.NormalizeUSPhone(c.Phone); ok {
			info.Phone = digits
		}
	}
	if info.Email == "" && info.Phone == "" && !identified {
		return "", fail(model.ProviderZelle, "an email, phone or account identifier is required")
	}
	if info.Name != "" && !validZelleName(info.Name) {
		info.Name = ""
	}
	return n.zelleURL(info), nil
}

// ParseZelleURL reads back an instructions page URL built by this service.
func (n *Normalizer) ParseZelleURL(s string) (ZelleInfo, error) {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ZelleInfo{}, fail(model.ProviderZelle, "malformed URL")
	}
	if !strings.EqualFold(u.Host, n.serviceHost) || u.Path != ZellePath || u.User != nil {
		return ZelleInfo{}, fail(model.ProviderZelle, "Zelle has no payment links; supply an email or phone")
	}
	q := u.Query()
	info := ZelleInfo{Name: q.Get("name"), Email: q.Get("email"), Phone: q.Get("phone")}
	if info.Email != "" && !validation.IsValidEmail(info.Email) {
		return ZelleInfo{}, fail(model.ProviderZelle, "invalid email address")
	}
	if info.Phone != "" {
		digits, ok := validation.NormalizeUSPhone(info.Phone)
		if !ok {
			return ZelleInfo{}, fail(model.ProviderZelle, "phone must be a 10-digit US number")
		}
		info.Phone = digits
	}
	if info.Name != "" && !validZelleName(info.Name) {
		return ZelleInfo{}, fail(model.ProviderZelle, "invalid account identifier")
	}
	if info.Email == "" && info.Phone == "" && info.Name == "" {
		return ZelleInfo{}, fail(model.ProviderZelle, "an email, phone or account identifier is required")
	}
	info.Email = model.NormalizeEmail(info.Email)
	return info, nil
}

func (n *Normalizer) zelleURL(info ZelleInfo) string {
	q := url.Values{}
	if info.Name != "" {
		q.Set("name", info.Name)
	}
	if info.Email != "" {
		q.Set("email", info.Email)
	}
	if info.Phone != "" {
		q.Set("phone", info.Phone)
	}
	u := url.URL{Scheme: "https", Host: n.serviceHost, Path: ZellePath, RawQuery: q.Encode()}
	return u.String()
}

func looksLikePhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')' || r == '+':
		default:
			return false
		}
	}
	return digits > 0
}

func validZelleName(s string) bool {
	if s == "" || len(s) > maxZelleName || validation.SanitizeInput(s) != s {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
