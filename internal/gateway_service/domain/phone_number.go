package domain

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// PhoneNumber is a parsed phone number. It is immutable once created.
type PhoneNumber struct {
	countryCode    int32
	nationalNumber uint64
	valid          bool
	display        string
	e164           string
}

// NewPhoneNumber captures the parts of a parsed number needed by the gateway.
func NewPhoneNumber(num *phonenumbers.PhoneNumber) PhoneNumber {
	return PhoneNumber{
		countryCode:    num.GetCountryCode(),
		nationalNumber: num.GetNationalNumber(),
		valid:          phonenumbers.IsValidNumber(num),
		display:        phonenumbers.Format(num, phonenumbers.INTERNATIONAL),
		e164:           phonenumbers.Format(num, phonenumbers.E164),
	}
}

func (p PhoneNumber) CountryCode() int32     { return p.countryCode }
func (p PhoneNumber) NationalNumber() uint64 { return p.nationalNumber }

// Valid reports whether the number is valid for its numbering plan. A number
// can be parsed without being valid.
func (p PhoneNumber) Valid() bool { return p.valid }

// Display is the international format, e.g. "+49 176123456".
func (p PhoneNumber) Display() string { return p.display }

// Transport is the provider's destination encoding: E164 digits with the
// leading "+" replaced by "00", e.g. "0049176123456".
func (p PhoneNumber) Transport() string {
	return "00" + strings.TrimPrefix(p.e164, "+")
}

func (p PhoneNumber) String() string { return p.display }
