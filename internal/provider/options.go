package provider

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOptions turns "key=value" pairs into Options. Values are typed the
// way a user would expect: true/false, integers, floats, quoted strings, and
// anything else as a bare string. A pair may itself hold several
// comma-separated assignments.
func ParseOptions(pairs []string) (Options, error) {
	out := Options{}
	for _, raw := range pairs {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			kv := strings.SplitN(part, "=", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("invalid option %q (expected key=value)", part)
			}

			key := strings.TrimSpace(kv[0])
			if key == "" {
				return nil, fmt.Errorf("empty key in option %q", part)
			}
			out[key] = parseLiteral(kv[1])
		}
	}
	return out, nil
}

func parseLiteral(s string) any {
	s = strings.TrimSpace(s)

	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}

	if i, err := strconv.Atoi(s); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		if s[0] == '\'' {
			s = `"` + s[1:len(s)-1] + `"`
		}
		if unq, err := strconv.Unquote(s); err == nil {
			return unq
		}
	}

	return s
}

// Merge returns a copy of base overlaid with override.
func (o Options) Merge(override Options) Options {
	out := make(Options, len(o)+len(override))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
