package link

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/shrtnr/shrtnr/internal"
)

// ParameterPlaceholder marks the substitution point in a redirect
// template. A template holds at most one.
const ParameterPlaceholder = "{}"

var allowedSchemes = []string{"http", "https", "ftp"}

// ValidateURL checks that a redirect template is a well-formed absolute
// URL. The placeholder is swapped for a literal stand-in first so its
// presence alone never fails validation.
func ValidateURL(template string) error {
	candidate := strings.Replace(template, ParameterPlaceholder, "foo", 1)
	u, err := url.Parse(candidate)
	if err != nil {
		return internal.ErrInvalidURL
	}
	if u.Host == "" || !lo.Contains(allowedSchemes, u.Scheme) {
		return internal.ErrInvalidURL
	}
	return nil
}

func HasPlaceholder(template string) bool {
	return strings.Contains(template, ParameterPlaceholder)
}

// Substitute fills the first placeholder occurrence with parameter.
func Substitute(template, parameter string) string {
	return strings.Replace(template, ParameterPlaceholder, parameter, 1)
}

// ResolvePlaceholder produces the final target for a template.
// Templates without a placeholder pass through untouched. An explicit
// parameter wins over the configured default. A placeholder with
// neither fails with ErrMissingParameter.
func ResolvePlaceholder(template, parameter string, defaultParameter *string) (string, error) {
	if !HasPlaceholder(template) {
		return template, nil
	}
	if parameter != "" {
		return Substitute(template, parameter), nil
	}
	if defaultParameter != nil {
		return Substitute(template, *defaultParameter), nil
	}
	return "", internal.ErrMissingParameter
}
