// Package phone validates raw text fragments against a configurable
// numbering plan and produces canonical international and local forms.
// Validation is a filter: fragments that do not fit the plan are dropped,
// never stored as invalid records.
package phone

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rendis/biztap/internal/model"
)

// Options control which canonical forms and classifications are produced.
// With Validate off the normalizer is permissive: every fragment is accepted
// as-is with no transformation.
type Options struct {
	Validate             bool
	ConvertInternational bool
	IncludeLocal         bool
	IdentifyType         bool
}

// DefaultOptions enables all normalization steps.
func DefaultOptions() Options {
	return Options{Validate: true, ConvertInternational: true, IncludeLocal: true, IdentifyType: true}
}

// Normalizer is pure: same input and configuration always yield the same
// output, no shared state.
type Normalizer struct {
	plan      Plan
	opts      Options
	candidate *regexp.Regexp
}

func NewNormalizer(plan Plan, opts Options) *Normalizer {
	re := regexp.MustCompile(
		`(?:\+` + regexp.QuoteMeta(plan.CountryCode) + `|` + regexp.QuoteMeta(plan.TrunkPrefix) + `)` +
			`(?:[\s\-.()/]*\d){` + strconv.Itoa(plan.NationalLength) + `}`)
	return &Normalizer{plan: plan, opts: opts, candidate: re}
}

// Normalize parses one raw fragment. The second return value reports
// validity; callers must not store the number when it is false.
func (n *Normalizer) Normalize(raw string) (model.PhoneNumber, bool) {
	if !n.opts.Validate {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.PhoneNumber{}, false
		}
		return model.PhoneNumber{Raw: raw, International: trimmed, Local: trimmed}, true
	}

	digits := stripToDigits(raw)
	if digits == "" || digits == "+" {
		return model.PhoneNumber{}, false
	}

	intl := n.toInternational(digits)

	cc := "+" + n.plan.CountryCode
	if !strings.HasPrefix(intl, cc) || len(intl) != len(cc)+n.plan.NationalLength {
		return model.PhoneNumber{}, false
	}

	subscriber := intl[len(cc):]
	num := model.PhoneNumber{Raw: raw}

	if n.opts.ConvertInternational {
		num.International = intl
	} else {
		num.International = n.plan.TrunkPrefix + subscriber
	}
	if n.opts.IncludeLocal {
		num.Local = n.plan.TrunkPrefix + subscriber
	}
	if n.opts.IdentifyType && len(subscriber) >= 2 {
		prefix := subscriber[:2]
		num.IsMobile = n.plan.isMobilePrefix(prefix)
		if !num.IsMobile {
			num.Region = n.plan.AreaCodes[prefix]
		}
	}

	return num, true
}

// toInternational maps a stripped digit string to +<cc><subscriber> form. A
// leading trunk digit is replaced by the country code; a bare national
// number is prefixed; numbers already carrying '+' pass through.
func (n *Normalizer) toInternational(digits string) string {
	switch {
	case strings.HasPrefix(digits, "+"):
		return digits
	case n.plan.TrunkPrefix != "" && strings.HasPrefix(digits, n.plan.TrunkPrefix):
		return "+" + n.plan.CountryCode + digits[len(n.plan.TrunkPrefix):]
	default:
		return "+" + n.plan.CountryCode + digits
	}
}

// stripToDigits removes everything except digits and a leading '+'.
func stripToDigits(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractCandidates pulls phone-like fragments out of free text. Matches are
// raw: each still has to pass Normalize before being stored.
func (n *Normalizer) ExtractCandidates(text string) []string {
	matches := n.candidate.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}
