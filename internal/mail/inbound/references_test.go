package inbound

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessageID(t *testing.T) {
	assert.Equal(t, "abc@example.com", NormalizeMessageID(" <abc@example.com> "))
	assert.Equal(t, "abc@example.com", NormalizeMessageID(`"abc@example.com"`))
	assert.Empty(t, NormalizeMessageID("   "))
}

func TestNormalizeReferences(t *testing.T) {
	tests := []struct {
		name       string
		references string
		inReplyTo  string
		want       []string
	}{
		{"space separated", "<a@x> <b@x>", "", []string{"a@x", "b@x"}},
		{"comma and crlf", "<a@x>,\r\n <b@x>;<c@x>", "", []string{"a@x", "b@x", "c@x"}},
		{"adjacent ids", "<a@x><b@x>", "", []string{"a@x", "b@x"}},
		{"in-reply-to appended once", "<a@x>", "<a@x> <z@x>", []string{"a@x", "z@x"}},
		{"bare ids", "a@x b@x", "", []string{"a@x", "b@x"}},
		{"empty", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeReferences(tt.references, tt.inReplyTo))
		})
	}
}

func TestThreadCandidates(t *testing.T) {
	assert.Equal(t, []string{"own@x"}, ThreadCandidates("<own@x>", "", ""))
	assert.Equal(t, []string{"own@x", "parent@x"}, ThreadCandidates("<own@x>", "", "<parent@x>"))
	assert.Equal(t, []string{"root@x", "parent@x"}, ThreadCandidates("<own@x>", "<root@x> <parent@x>", "<parent@x>"))
	assert.Empty(t, ThreadCandidates("", "", ""))
}

func genMessageID() gopter.Gen {
	return gen.Identifier().Map(func(s string) string { return s + "@mail.example.com" })
}

func TestProperty_ThreadCandidates(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("candidates never repeat", prop.ForAll(
		func(own string, refs []string, reply string) bool {
			ids := ThreadCandidates("<"+own+">", bracketJoin(refs), "<"+reply+">")
			seen := map[string]bool{}
			for _, id := range ids {
				if seen[id] {
					return false
				}
				seen[id] = true
			}
			return true
		},
		genMessageID(), gen.SliceOf(genMessageID()), genMessageID(),
	))

	properties.Property("in-reply-to is always a candidate", prop.ForAll(
		func(own string, refs []string, reply string) bool {
			return contains(ThreadCandidates("<"+own+">", bracketJoin(refs), "<"+reply+">"), reply)
		},
		genMessageID(), gen.SliceOf(genMessageID()), genMessageID(),
	))

	properties.Property("own id is used only without references", prop.ForAll(
		func(own string, refs []string) bool {
			ids := ThreadCandidates("<"+own+">", bracketJoin(refs), "")
			if len(refs) == 0 {
				return len(ids) == 1 && ids[0] == own
			}
			return len(ids) > 0 && ids[0] == refs[0]
		},
		genMessageID(), gen.SliceOf(genMessageID()),
	))

	properties.Property("separator style does not change the result", prop.ForAll(
		func(refs []string) bool {
			spaced := NormalizeReferences(bracketJoin(refs), "")
			commas := NormalizeReferences(strings.ReplaceAll(bracketJoin(refs), " ", ",\r\n"), "")
			return strings.Join(spaced, "|") == strings.Join(commas, "|")
		},
		gen.SliceOf(genMessageID()),
	))

	properties.TestingRun(t)
}

func bracketJoin(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<" + id + ">"
	}
	return strings.Join(parts, " ")
}
