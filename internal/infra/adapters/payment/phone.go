package payment

import (
	"regexp"
	"strings"

	"momo-gateway/internal/domain/model"
)

// numberingPlan describes the phone prefixes one network owns in one
// country. Matching is regex-only and never touches the network.
type numberingPlan struct {
	network  model.Provider
	country  string // ISO 3166-1 alpha-2
	dialCode string // without the leading +
	localLen int
	pattern  *regexp.Regexp // anchored, applied to the local part
}

// Plans overlap across providers on purpose: Wave piggybacks on MTN and
// Orange numbers, so a single msisdn may validate for several adapters.
var (
	mtnCIPlan = numberingPlan{
		network:  model.ProviderMTN,
		country:  "CI",
		dialCode: "225",
		localLen: 8,
		pattern:  regexp.MustCompile(`^(07|05|01|47|48|49)\d{6}$`),
	}
	orangeCIPlan = numberingPlan{
		network:  model.ProviderOrange,
		country:  "CI",
		dialCode: "225",
		localLen: 8,
		pattern:  regexp.MustCompile(`^(07|08|09|57|58|59)\d{6}$`),
	}
	waveSNPlan = numberingPlan{
		network:  model.ProviderWave,
		country:  "SN",
		dialCode: "221",
		localLen: 9,
		pattern:  regexp.MustCompile(`^(70|75|76|77|78)\d{7}$`),
	}
)

// normalizeMsisdn strips everything but digits and drops an international
// 00 prefix. The result never carries a +; Match re-adds it.
func normalizeMsisdn(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	return digits
}

// Match tests raw against the plan in either national or E.164 form and
// returns the canonical +<dialCode><local> form. Formatting is idempotent:
// feeding the returned number back yields the same value.
func (p numberingPlan) Match(raw string) (string, bool) {
	digits := normalizeMsisdn(raw)

	var local string
	switch {
	case strings.HasPrefix(digits, p.dialCode) && len(digits) == len(p.dialCode)+p.localLen:
		local = digits[len(p.dialCode):]
	case len(digits) == p.localLen:
		local = digits
	default:
		return "", false
	}
	if !p.pattern.MatchString(local) {
		return "", false
	}
	return "+" + p.dialCode + local, true
}
