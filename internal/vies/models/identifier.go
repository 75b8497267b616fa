// Package models holds the value types exchanged between the VIES codec,
// transport and batch engine.
package models

import (
	"strings"
	"unicode"
)

// VatIdentifier is a raw VAT string split into its country prefix and number body.
type VatIdentifier struct {
	CountryCode string `json:"country"`
	Number      string `json:"vat_number"`
}

// Parse splits raw into a VatIdentifier: the first two characters upper-cased
// as the country code, the rest with all whitespace removed as the number.
// Parse never fails; malformed input is left for the service to reject.
func Parse(raw string) VatIdentifier {
	raw = strings.TrimSpace(raw)
	runes := []rune(raw)
	split := min(2, len(runes))
	return VatIdentifier{
		CountryCode: strings.ToUpper(string(runes[:split])),
		Number:      stripSpace(string(runes[split:])),
	}
}

// NewVatIdentifier normalizes an already split country/number pair.
func NewVatIdentifier(country, number string) VatIdentifier {
	return VatIdentifier{
		CountryCode: strings.ToUpper(strings.TrimSpace(country)),
		Number:      stripSpace(number),
	}
}

func (v VatIdentifier) String() string {
	return v.CountryCode + v.Number
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
