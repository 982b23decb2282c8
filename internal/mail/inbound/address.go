package inbound

import (
	"net/mail"
	"regexp"
	"strings"
)

var addressToken = regexp.MustCompile(`[\w.+-]+@[\w.-]+`)

// ParseAddress returns the bare address of a From header value.
func ParseAddress(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if list, err := mail.ParseAddressList(value); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].Address)
	}
	cleaned := strings.NewReplacer(",", "", ";", "").Replace(value)
	if addr, err := mail.ParseAddress(cleaned); err == nil {
		return strings.TrimSpace(addr.Address)
	}
	if m := addressToken.FindString(value); m != "" {
		return m
	}
	return ""
}

// ExtractAddresses finds every local@domain token in a header value.
func ExtractAddresses(value string) []string {
	return addressToken.FindAllString(value, -1)
}

// JoinAddresses renders addresses as the comma separated CC field.
func JoinAddresses(addresses []string) string {
	return strings.Join(addresses, ",")
}
