// Package phone normalizes patient phone numbers for outbound dialing.
//
// Two formats coexist on purpose: the conversational and synthesis providers
// take E.164 numbers with a leading "+", while the signed relay API takes
// bare digits. Normalize and NormalizeForRelay stay separate functions so the
// two downstream formats never get mixed up.
package phone

import "strings"

var symbolStripper = strings.NewReplacer(
	" ", "",
	"\t", "",
	"-", "",
	"(", "",
	")", "",
	".", "",
)

// Normalize returns raw in "+<country code><number>" form. It strips
// formatting symbols, honors an existing "+" prefix, rewrites the "00"
// international trunk prefix, and otherwise prepends defaultCountryCode.
// It never fails; callers can pass user-typed input directly.
func Normalize(raw, defaultCountryCode string) string {
	cleaned := symbolStripper.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "00") {
		return "+" + cleaned[2:]
	}
	// Numbers longer than a bare local number that already carry the country
	// code only need the plus sign.
	if defaultCountryCode != "" && strings.HasPrefix(cleaned, defaultCountryCode) && len(cleaned) > 10 {
		return "+" + cleaned
	}
	return "+" + defaultCountryCode + cleaned
}

// NormalizeForRelay returns the same number as Normalize but without the
// leading "+", which is the format the signed relay API expects.
func NormalizeForRelay(raw, defaultCountryCode string) string {
	return strings.TrimPrefix(Normalize(raw, defaultCountryCode), "+")
}
