package validation

import (
	"fmt"
	"regexp"
)

const (
	DefaultTokenMinLength = 6
	DefaultTokenMaxLength = 16
)

// TokenRules bounds the accepted token length. Every entry point shares one value.
type TokenRules struct {
	MinLength int `yaml:"min_length"`
	MaxLength int `yaml:"max_length"`
}

func DefaultTokenRules() TokenRules {
	return TokenRules{MinLength: DefaultTokenMinLength, MaxLength: DefaultTokenMaxLength}
}

// TokenValidator checks the fixed token format: ASCII letters and digits only.
type TokenValidator struct {
	rules TokenRules
	re    *regexp.Regexp
}

func NewTokenValidator(rules TokenRules) (*TokenValidator, error) {
	if rules.MinLength <= 0 || rules.MaxLength < rules.MinLength {
		return nil, fmt.Errorf("invalid token bounds %d..%d", rules.MinLength, rules.MaxLength)
	}
	re, err := regexp.Compile(fmt.Sprintf(`^[A-Za-z0-9]{%d,%d}$`, rules.MinLength, rules.MaxLength))
	if err != nil {
		return nil, err
	}
	return &TokenValidator{rules: rules, re: re}, nil
}

// MustTokenValidator panics on invalid rules; meant for tests and defaults.
func MustTokenValidator(rules TokenRules) *TokenValidator {
	v, err := NewTokenValidator(rules)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *TokenValidator) Valid(token string) bool {
	return token != "" && v.re.MatchString(token)
}

func (v *TokenValidator) Rules() TokenRules { return v.rules }
