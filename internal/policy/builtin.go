package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

const (
	LengthName    = "length"
	NonEmptyName  = "non_empty"
	NoSecretsName = "no_secrets"
	AuditName     = "audit"

	DefaultMaxLength = 4000
)

// AuditRecorder persists one summary per enforcement.
type AuditRecorder interface {
	Record(ctx context.Context, trace orchestrator.Trace, policies []string) error
}

type lengthOptions struct {
	MaxLength int `mapstructure:"max_length"`
}

// Length fails outputs longer than the max_length option (DefaultMaxLength
// when unset), counted in characters. Strings are measured as they are, any
// other value by its JSON form.
func Length() Policy {
	return Policy{
		Name: LengthName,
		Check: func(data any, _ string, opts provider.Options) (bool, error) {
			cfg := lengthOptions{MaxLength: DefaultMaxLength}
			if err := decodeOptions(opts, &cfg); err != nil {
				return false, err
			}
			if cfg.MaxLength <= 0 {
				cfg.MaxLength = DefaultMaxLength
			}

			text, err := serialize(data)
			if err != nil {
				return false, err
			}
			return utf8.RuneCountInString(text) <= cfg.MaxLength, nil
		},
	}
}

// NonEmpty fails nil data, blank strings and empty collections.
func NonEmpty() Policy {
	return Policy{
		Name: NonEmptyName,
		Check: func(data any, _ string, _ provider.Options) (bool, error) {
			if data == nil {
				return false, nil
			}
			if s, ok := data.(string); ok {
				return strings.TrimSpace(s) != "", nil
			}
			switch v := reflect.ValueOf(data); v.Kind() {
			case reflect.Map, reflect.Slice, reflect.Array:
				return v.Len() > 0, nil
			}
			return true, nil
		},
	}
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\\?"?\s*[:=]\s*\\?"?[A-Za-z0-9/+_\-]{8,}`),
}

// NoSecrets fails outputs that look like they carry credentials.
func NoSecrets() Policy {
	return Policy{
		Name: NoSecretsName,
		Check: func(data any, _ string, _ provider.Options) (bool, error) {
			text, err := serialize(data)
			if err != nil {
				return false, err
			}
			for _, re := range secretPatterns {
				if re.MatchString(text) {
					return false, nil
				}
			}
			return true, nil
		},
	}
}

// Audit writes one record per enforcement through rec and always passes.
func Audit(rec AuditRecorder) Policy {
	return Policy{
		Name: AuditName,
		Audit: func(ctx context.Context, trace orchestrator.Trace, applied []string) error {
			return rec.Record(ctx, trace, applied)
		},
	}
}

func serialize(data any) (string, error) {
	if s, ok := data.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("serialize output: %w", err)
	}
	return string(b), nil
}

// decodeOptions accepts loosely typed values, e.g. "100" from the CLI or
// 100.0 from JSON.
func decodeOptions(opts provider.Options, out any) error {
	if len(opts) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(opts)); err != nil {
		return fmt.Errorf("decode policy options: %w", err)
	}
	return nil
}
