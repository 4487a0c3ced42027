package manifest

import (
	_ "embed"
	"fmt"
	"strings"
)

// FileName is the manifest file expected at the root of every app directory.
const FileName = "manifest.json"

// DefaultDescription is used when a manifest omits the description field.
const DefaultDescription = "No description"

// Supported runtime languages.
const (
	LanguagePython = "python"
	LanguageLua    = "lua"
)

// SupportedLanguages contains all valid language values, in display order.
var SupportedLanguages = []string{
	LanguagePython,
	LanguageLua,
}

// Required and optional field names, in validation order.
var (
	RequiredFields = []string{"name", "version", "language", "entry"}
	OptionalFields = []string{"description", "dependencies"}
)

//go:embed schema/manifest.schema.json
var schemaBytes []byte

// SchemaJSON returns the JSON Schema describing a manifest document. The
// remote index schema references it for each package record.
func SchemaJSON() []byte {
	out := make([]byte, len(schemaBytes))
	copy(out, schemaBytes)
	return out
}

// Manifest is the typed form of an app's manifest.json.
type Manifest struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Language     string   `json:"language"`
	Entry        string   `json:"entry"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

// ParseError reports a manifest that is not a well-formed JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed manifest: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports every problem found in an otherwise well-formed
// manifest document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid manifest: " + strings.Join(e.Errors, "; ")
}

// IsSupportedLanguage reports whether lang is one of SupportedLanguages.
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// SchemaDescription describes the manifest fields for humans, keyed by
// "required" and "optional".
func SchemaDescription() map[string]map[string]string {
	return map[string]map[string]string{
		"required": {
			"name":     "string",
			"version":  "string",
			"language": "string (" + strings.Join(SupportedLanguages, " or ") + ")",
			"entry":    "string",
		},
		"optional": {
			"description":  "string",
			"dependencies": "list of strings",
		},
	}
}
