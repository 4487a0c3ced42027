package manifest

import (
	"fmt"
	"strings"
)

// Validate checks a decoded manifest document and returns every problem
// found, in a stable order: required fields (missing, mistyped, empty),
// then the language value, then the types of optional fields. An empty
// result means the document is well-formed.
func Validate(raw map[string]any) []string {
	var errs []string

	for _, field := range RequiredFields {
		v, ok := raw[field]
		if !ok {
			errs = append(errs, "missing field: "+field)
			continue
		}
		s, ok := v.(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("field %s must be a string", field))
			continue
		}
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Sprintf("field %s must not be empty", field))
		}
	}

	if name, ok := raw["name"].(string); ok && strings.TrimSpace(name) != "" && !ValidName(name) {
		errs = append(errs, fmt.Sprintf("invalid name %q: must be a single directory name", name))
	}

	if lang, ok := raw["language"].(string); ok && strings.TrimSpace(lang) != "" && !IsSupportedLanguage(lang) {
		errs = append(errs, fmt.Sprintf("unsupported language %q: must be one of %s",
			lang, strings.Join(SupportedLanguages, ", ")))
	}

	if v, ok := raw["description"]; ok {
		if _, isStr := v.(string); !isStr {
			errs = append(errs, "field description must be a string")
		}
	}

	if v, ok := raw["dependencies"]; ok && !isStringList(v) {
		errs = append(errs, "field dependencies must be a list of strings")
	}

	return errs
}

// ValidateManifest runs the same checks as Validate against a typed manifest.
func ValidateManifest(m *Manifest) []string {
	raw := map[string]any{
		"name":        m.Name,
		"version":     m.Version,
		"language":    m.Language,
		"entry":       m.Entry,
		"description": m.Description,
	}
	deps := make([]any, len(m.Dependencies))
	for i, d := range m.Dependencies {
		deps[i] = d
	}
	raw["dependencies"] = deps
	return Validate(raw)
}

// ValidName reports whether name can be used as an app directory name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return !strings.HasPrefix(name, ".")
}

// Summary renders a validation result for terminal output.
func Summary(errs []string) string {
	if len(errs) == 0 {
		return "✓ Manifest is valid"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ Manifest has %d error(s):", len(errs))
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e)
	}
	return b.String()
}

func isStringList(v any) bool {
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}
