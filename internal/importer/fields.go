package importer

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/contentanonymity/backend/internal/models"
)

// NormalizeHeader maps a column name to snake_case: "Website URL",
// "website-url" and "websiteUrl" all become "website_url"
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	runes := []rune(h)

	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-' || r == '_' || r == '.' || r == '/':
			b.WriteByte('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// commonAliases apply to every entity
var commonAliases = map[string]string{
	"id":           "external_id",
	"external_key": "external_id",
	"source_id":    "external_id",
	"tag":          "tags",
	"keywords":     "tags",
	"is_published": "published",
	"is_featured":  "featured",
	"permalink":    "slug",
}

// fields is one row keyed by canonical column name
type fields map[string]interface{}

// canonicalize normalizes every header and resolves aliases. A canonical
// column wins over an alias for the same field.
func canonicalize(values map[string]interface{}, aliases map[string]string) fields {
	out := make(fields, len(values))
	aliased := map[string]bool{}
	for raw, v := range values {
		key := NormalizeHeader(raw)
		if key == "" {
			continue
		}
		target, isAlias := aliases[key]
		if !isAlias {
			target, isAlias = commonAliases[key]
		}
		if isAlias {
			if _, exists := out[target]; exists && !aliased[target] {
				continue
			}
			aliased[target] = true
			out[target] = v
			continue
		}
		delete(aliased, key)
		out[key] = v
	}
	return out
}

func (f fields) text(key string) string {
	return ToString(f[key])
}

// applier copies present columns onto a record, keeping the first error
type applier struct {
	f   fields
	err error
}

func (a *applier) present(key string) (interface{}, bool) {
	if a.err != nil {
		return nil, false
	}
	v, ok := a.f[key]
	return v, ok
}

func (a *applier) fail(key string, err error) {
	if a.err == nil {
		a.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (a *applier) str(key string, dst *string) {
	if v, ok := a.present(key); ok {
		*dst = ToString(v)
	}
}

func (a *applier) boolean(key string, dst *bool) {
	if v, ok := a.present(key); ok {
		b, err := ToBool(v)
		if err != nil {
			a.fail(key, err)
			return
		}
		*dst = b
	}
}

func (a *applier) integer(key string, dst *int, min, max int) {
	if v, ok := a.present(key); ok {
		if ToString(v) == "" {
			return
		}
		n, err := ToInt(v)
		if err != nil {
			a.fail(key, err)
			return
		}
		if n < min || n > max {
			a.fail(key, fmt.Errorf("must be between %d and %d", min, max))
			return
		}
		*dst = n
	}
}

func (a *applier) float(key string, dst *float64, min, max float64) {
	if v, ok := a.present(key); ok {
		if ToString(v) == "" {
			return
		}
		n, err := ToFloat(v)
		if err != nil {
			a.fail(key, err)
			return
		}
		if n < min || n > max {
			a.fail(key, fmt.Errorf("must be between %g and %g", min, max))
			return
		}
		*dst = n
	}
}

func (a *applier) list(key string, dst *models.StringArray) {
	if v, ok := a.present(key); ok {
		*dst = models.StringArray(ToList(v))
	}
}

func (a *applier) tags(dst *models.StringArray) {
	if v, ok := a.present("tags"); ok {
		*dst = models.NormalizeTags(ToList(v))
	}
}

func (a *applier) timestamp(key string, dst **time.Time) {
	if v, ok := a.present(key); ok {
		if ToString(v) == "" {
			*dst = nil
			return
		}
		t, err := ToTime(v)
		if err != nil {
			a.fail(key, err)
			return
		}
		*dst = &t
	}
}

// enum lowercases the value and checks it against the type's Valid method
func enum[E ~string](a *applier, key string, dst *E, valid func(E) bool) {
	if v, ok := a.present(key); ok {
		e := E(strings.ToLower(ToString(v)))
		if e == "" {
			return
		}
		if !valid(e) {
			a.fail(key, fmt.Errorf("invalid value %q", string(e)))
			return
		}
		*dst = e
	}
}
