package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Parse decodes a manifest document and validates it. Malformed JSON yields
// a *ParseError; a well-formed document that fails validation yields a
// *ValidationError listing every problem found.
func Parse(data []byte) (*Manifest, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return nil, err
	}

	if errs := Validate(raw); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Err: err}
	}
	applyDefaults(&m)
	return &m, nil
}

// Marshal serializes a manifest as indented UTF-8 JSON. HTML escaping is
// disabled so non-ASCII and markup characters are written verbatim.
func Marshal(m *Manifest) ([]byte, error) {
	out := *m
	applyDefaults(&out)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadFile reads and parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadDir reads the manifest.json inside dir.
func LoadDir(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// WriteFile serializes m to path.
func WriteFile(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ValidateFile reads the manifest at path and returns its validation
// errors. The error return is reserved for I/O failures and malformed JSON.
func ValidateFile(path string) (bool, []string, error) {
	data, err := readFile(path)
	if err != nil {
		return false, nil, err
	}
	raw, err := decodeRaw(data)
	if err != nil {
		return false, nil, err
	}
	errs := Validate(raw)
	return len(errs) == 0, errs, nil
}

// Errors extracts the list of validation messages from err. Parse errors
// become a single message; other errors yield nil.
func Errors(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return []string{pe.Error()}
	}
	return nil
}

// decodeRaw unmarshals data into a generic JSON object.
func decodeRaw(data []byte) (map[string]any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	raw, ok := doc.(map[string]any)
	if !ok {
		return nil, &ParseError{Err: errors.New("manifest must be a JSON object")}
	}
	return raw, nil
}

func applyDefaults(m *Manifest) {
	if m.Description == "" {
		m.Description = DefaultDescription
	}
	if m.Dependencies == nil {
		m.Dependencies = []string{}
	}
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
