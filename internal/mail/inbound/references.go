package inbound

import (
	"regexp"
	"strings"
)

var messageIDPattern = regexp.MustCompile(`<([^<>]+)>`)

// NormalizeMessageID strips angle brackets, quotes and surrounding space.
func NormalizeMessageID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.Trim(value, "<>")
	value = strings.Trim(value, "\"")
	return strings.TrimSpace(value)
}

// NormalizeReferences turns a References header and an In-Reply-To header
// into an ordered, de-duplicated set of bare message ids. Mail clients
// separate references with commas, semicolons, CRLF or spaces; all are
// accepted, and adjacent <id><id> tokens are split as well.
func NormalizeReferences(references, inReplyTo string) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, field := range []string{references, inReplyTo} {
		for _, token := range splitReferenceField(field) {
			matches := messageIDPattern.FindAllStringSubmatch(token, -1)
			if len(matches) == 0 {
				add(NormalizeMessageID(token))
				continue
			}
			for _, m := range matches {
				add(NormalizeMessageID(m[1]))
			}
		}
	}
	return ids
}

func splitReferenceField(field string) []string {
	return strings.FieldsFunc(field, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\r', '\n':
			return true
		}
		return false
	})
}

// ThreadCandidates returns the ids used to find the ticket a message
// belongs to. Without any reference headers the message's own id is used,
// so a redelivered message lands on the ticket it already created.
func ThreadCandidates(messageID, references, inReplyTo string) []string {
	ids := NormalizeReferences(references, "")
	if len(ids) == 0 {
		if own := NormalizeMessageID(messageID); own != "" {
			ids = append(ids, own)
		}
	}
	for _, id := range NormalizeReferences(inReplyTo, "") {
		if !contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
