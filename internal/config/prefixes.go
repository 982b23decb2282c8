package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultReplyPrefixes are the reply and forward markers stripped from
// inbound subjects before matching them against ticket titles.
var DefaultReplyPrefixes = []string{
	"re", "fw", "fwd", "was", "ot", "eom", "ab", "ar", "fya", "fysa",
	"fyfg", "fyg", "i", "let", "lsfw", "nim", "nls", "nm", "nmp", "nms",
	"nntr", "nrn", "nrr", "nsfw", "nss", "nt", "nwr", "nws", "ooo", "pnfo",
	"pnsfw", "pyr", "que", "rb", "rlb", "rr", "sfw", "sim", "ssia", "tbf",
	"tsfw", "y/n", "sv", "antw", "vs", "aw", "r", "rif", "odp", "ynt",
	"doorst", "vl", "tr", "wg", "vb", "rv", "enc", "pd", "fs",
}

type replyPrefixFile struct {
	Prefixes []string `yaml:"prefixes"`
}

// LoadReplyPrefixes returns the configured prefix list. An empty path
// yields the built-in defaults.
func LoadReplyPrefixes(path string) ([]string, error) {
	if path == "" {
		return append([]string(nil), DefaultReplyPrefixes...), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reply prefixes: %w", err)
	}
	var file replyPrefixFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse reply prefixes: %w", err)
	}
	out := make([]string, 0, len(file.Prefixes))
	for _, p := range file.Prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("reply prefixes file %s lists no prefixes", path)
	}
	return out, nil
}
