package scaffold

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/clapp-dev/clapp/internal/manifest"
	"github.com/clapp-dev/clapp/internal/platform"
)

// DefaultVersion is the version written into new manifests.
const DefaultVersion = "1.0.0"

// Data holds the template variables available to scaffold templates.
type Data struct {
	Name        string
	Language    string
	Entry       string
	Description string
	Version     string
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// EntryFile returns the conventional entry file for language.
func EntryFile(lang string) string {
	switch lang {
	case manifest.LanguagePython:
		return "main.py"
	case manifest.LanguageLua:
		return "main.lua"
	default:
		return ""
	}
}

// NewData creates Data with derived fields populated.
func NewData(name, lang string) *Data {
	title := cases.Title(language.English).String(lang)
	return &Data{
		Name:        name,
		Language:    lang,
		Entry:       EntryFile(lang),
		Description: fmt.Sprintf("A new %s application", title),
		Version:     DefaultVersion,
	}
}

// Manifest returns the manifest written for d.
func (d *Data) Manifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name:         d.Name,
		Version:      d.Version,
		Language:     d.Language,
		Entry:        d.Entry,
		Description:  d.Description,
		Dependencies: []string{d.Language},
	}
}

// Generate writes a new app into outputDir. The directory may exist but
// must be empty.
func Generate(data *Data, outputDir string) (*Result, error) {
	if !manifest.ValidName(data.Name) {
		return nil, fmt.Errorf("invalid app name %q", data.Name)
	}
	if !manifest.IsSupportedLanguage(data.Language) {
		return nil, fmt.Errorf("unsupported language %q: must be one of %s",
			data.Language, strings.Join(manifest.SupportedLanguages, ", "))
	}

	templatesDir := path.Join("scaffolds", data.Language)
	entries, err := fs.ReadDir(scaffoldFS, templatesDir)
	if err != nil {
		return nil, fmt.Errorf("template set %q not found: %w", data.Language, err)
	}

	if existing, err := os.ReadDir(outputDir); err == nil && len(existing) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}
	if err := platform.MkdirAll(outputDir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &Result{OutputDir: outputDir}

	m := data.Manifest()
	if err := manifest.WriteFile(filepath.Join(outputDir, manifest.FileName), m); err != nil {
		return nil, err
	}
	result.Files = append(result.Files, manifest.FileName)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		tmplPath := path.Join(templatesDir, entry.Name())
		tmplBytes, err := fs.ReadFile(scaffoldFS, tmplPath)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", tmplPath, err)
		}

		tmpl, err := template.New(entry.Name()).Parse(string(tmplBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", entry.Name(), err)
		}

		outName := strings.TrimSuffix(entry.Name(), ".tmpl")
		outPath := filepath.Join(outputDir, outName)
		if err := os.WriteFile(outPath, buf.Bytes(), platform.FilePerm); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outName, err)
		}
		if outName == data.Entry {
			if err := platform.Chmod(outPath, platform.ExecPerm); err != nil {
				return nil, fmt.Errorf("making %s executable: %w", outName, err)
			}
		}
		result.Files = append(result.Files, outName)
	}

	valid, errs, err := manifest.ValidateFile(filepath.Join(outputDir, manifest.FileName))
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not validate manifest: %v", err))
	case !valid:
		result.Warnings = append(result.Warnings, errs...)
	}
	if _, err := os.Stat(filepath.Join(outputDir, data.Entry)); err != nil {
		result.Warnings = append(result.Warnings, "entry file was not generated: "+data.Entry)
	}

	return result, nil
}
