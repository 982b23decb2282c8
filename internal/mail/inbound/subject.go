package inbound

import (
	"regexp"
	"strings"
)

var prefixPattern = regexp.MustCompile(`^\s*([^\s:\[\]()]+)\s*(?:\[\d+\]|\(\d+\))?\s*:\s*`)

// ReplyPrefixes strips reply and forward markers from subjects.
type ReplyPrefixes struct {
	set map[string]struct{}
}

// NewReplyPrefixes builds a matcher over a case-insensitive token list.
func NewReplyPrefixes(tokens []string) *ReplyPrefixes {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = struct{}{}
		}
	}
	return &ReplyPrefixes{set: set}
}

// Strip removes every leading "token:" or "token[n]:" whose token is in
// the list, e.g. "RE: Fwd: Printer" becomes "Printer".
func (p *ReplyPrefixes) Strip(subject string) string {
	for {
		m := prefixPattern.FindStringSubmatchIndex(subject)
		if m == nil {
			return strings.TrimSpace(subject)
		}
		token := strings.ToLower(subject[m[2]:m[3]])
		if _, ok := p.set[token]; !ok {
			return strings.TrimSpace(subject)
		}
		subject = subject[m[1]:]
	}
}

// Normalize strips prefixes, folds case and collapses whitespace so two
// subjects of one conversation compare equal.
func (p *ReplyPrefixes) Normalize(subject string) string {
	return strings.Join(strings.Fields(strings.ToLower(p.Strip(subject))), " ")
}
