package validator

import (
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
)

// Policy decides how scheme-less input is treated
type Policy int

const (
	// Strict accepts only absolute http/https URLs
	Strict Policy = iota
	// Lenient retries scheme-less input with "https://" prepended
	Lenient
)

var (
	TagEmpty   = goerr.NewTag("empty_url")
	TagInvalid = goerr.NewTag("invalid_url")
)

type URL struct {
	policy Policy
}

func NewURL(policy Policy) *URL {
	return &URL{policy: policy}
}

// Validate reports whether candidate is an acceptable website URL
func (x *URL) Validate(candidate string) bool {
	_, err := x.Normalize(candidate)
	return err == nil
}

// Normalize returns the URL to send for candidate. The error is tagged model.TagValidation.
func (x *URL) Normalize(candidate string) (string, error) {
	s := strings.TrimSpace(candidate)
	if s == "" {
		return "", goerr.New("website URL is empty",
			goerr.T(model.TagValidation),
			goerr.T(TagEmpty))
	}

	if isWebURL(s) {
		return s, nil
	}

	if x.policy == Lenient && !strings.Contains(s, "://") {
		if prefixed := "https://" + s; isWebURL(prefixed) {
			return prefixed, nil
		}
	}

	return "", goerr.New("website URL must start with http:// or https://",
		goerr.V("url", s),
		goerr.T(model.TagValidation),
		goerr.T(TagInvalid))
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
