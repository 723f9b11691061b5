package postal

import (
	"reflect"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	dErrors "postcheck/pkg/domain-errors"
)

// postalCodePattern is four decimal digits, at most one whitespace character,
// then two ASCII letters. Digits and whitespace follow the Unicode definitions
// rather than ASCII, and nothing may trail the letters.
var postalCodePattern = regexp.MustCompile(`^\p{Nd}{4}[\s\v\x1c-\x1f\x85\p{Z}]?[A-Za-z]{2}$`)

var (
	ErrInvalidInputType = dErrors.New(dErrors.CodeInvalidInputType, "postal code must be a string")
	ErrInvalidFormat    = dErrors.New(dErrors.CodeInvalidFormat, "postal code does not match the expected format")
)

// ValidateFormat checks that value is a well-formed postal code and returns
// its four-digit portion, taken from the value as given.
//
// Values of any string kind are accepted; everything else fails with
// ErrInvalidInputType. Letters are matched case-insensitively.
func ValidateFormat(value any) (string, error) {
	s, ok := asString(value)
	if !ok {
		return "", ErrInvalidInputType
	}
	// Casers keep state between calls; one per call keeps this goroutine-safe.
	if !postalCodePattern.MatchString(cases.Upper(language.Und).String(s)) {
		return "", ErrInvalidFormat
	}
	return firstRunes(s, 4), nil
}

func asString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	if s, ok := value.(string); ok {
		return s, true
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.String {
		return "", false
	}
	return v.String(), true
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
