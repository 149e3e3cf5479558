package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepLettersOnly = regexp.MustCompile(`[^\p{L}]+`)
	reWhitespace      = regexp.MustCompile(`\s+`)
	reUnderscores     = regexp.MustCompile(`_+`)

	reValidPhone      = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
	rePhoneSeparators = regexp.MustCompile(`[\s().-]+`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseUnderscores(s string) string {
	s = reUnderscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// NormalizeText collapses internal whitespace and trims the result. Used for
// free-text fields such as booking notes and service descriptions.
func NormalizeText(input string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(input, " "))
}

// NormalizeCityOrCategory lowercases and strips non-letter characters, so
// "Tel Aviv" and "tel-aviv" index identically.
func NormalizeCityOrCategory(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reKeepLettersOnly.ReplaceAllString(s, "_") },
		collapseUnderscores,
	}
	return p.Apply(input)
}

// NormalizeSlice applies strategy to each value, dropping empties and duplicates
// while preserving first-seen order.
func NormalizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}

// NormalizePhone converts an international phone number to E.164. Input must
// already carry a country prefix; anything else normalizes to empty.
func NormalizePhone(phone string) string {
	phone = rePhoneSeparators.ReplaceAllString(strings.TrimSpace(phone), "")
	if !reValidPhone.MatchString(phone) {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ""
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
