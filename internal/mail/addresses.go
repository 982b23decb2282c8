package mail

import (
	"net/mail"
	"strings"

	"github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// SplitAddresses breaks a free-form address field on commas, semicolons
// and whitespace, dropping empty entries.
func SplitAddresses(field string) []string {
	return strings.FieldsFunc(field, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\r', '\n':
			return true
		}
		return false
	})
}

// Validator checks a single bare email address.
type Validator interface {
	Validate(address string) error
}

type addressValidator struct{}

// NewAddressValidator returns a syntactic RFC 5322 checker.
func NewAddressValidator() Validator {
	return addressValidator{}
}

func (addressValidator) Validate(address string) error {
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return errorutil.NewInvalidAddress(address)
	}
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return errorutil.NewInvalidAddress(address)
	}
	return nil
}

// ValidateAll runs v over every address. A nil validator accepts everything.
func ValidateAll(v Validator, groups ...[]string) error {
	if v == nil {
		return nil
	}
	for _, group := range groups {
		for _, address := range group {
			if err := v.Validate(address); err != nil {
				return err
			}
		}
	}
	return nil
}
