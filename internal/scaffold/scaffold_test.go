package scaffold

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/clapp-dev/clapp/internal/manifest"
)

func TestNewData(t *testing.T) {
	tests := []struct {
		lang  string
		entry string
		desc  string
	}{
		{"python", "main.py", "A new Python application"},
		{"lua", "main.lua", "A new Lua application"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			d := NewData("demo", tt.lang)
			if d.Entry != tt.entry {
				t.Errorf("Entry = %q, want %q", d.Entry, tt.entry)
			}
			if d.Description != tt.desc {
				t.Errorf("Description = %q, want %q", d.Description, tt.desc)
			}
			if d.Version != DefaultVersion {
				t.Errorf("Version = %q, want %q", d.Version, DefaultVersion)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	for _, lang := range manifest.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			outDir := filepath.Join(t.TempDir(), "demo")
			data := NewData("demo", lang)

			result, err := Generate(data, outDir)
			if err != nil {
				t.Fatalf("Generate() error: %v", err)
			}
			if len(result.Warnings) > 0 {
				t.Errorf("unexpected warnings: %v", result.Warnings)
			}

			want := []string{"README.md", data.Entry, "manifest.json"}
			sort.Strings(want)
			got := append([]string(nil), result.Files...)
			sort.Strings(got)
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("Files = %v, want %v", got, want)
			}

			m, err := manifest.LoadDir(outDir)
			if err != nil {
				t.Fatalf("generated manifest does not load: %v", err)
			}
			if m.Name != "demo" || m.Language != lang || m.Entry != data.Entry {
				t.Errorf("manifest = %+v", m)
			}

			content, err := os.ReadFile(filepath.Join(outDir, data.Entry))
			if err != nil {
				t.Fatalf("reading entry: %v", err)
			}
			if !strings.Contains(string(content), "Hello from demo!") {
				t.Errorf("entry file not rendered:\n%s", content)
			}
		})
	}
}

func TestGenerateRejects(t *testing.T) {
	t.Run("non-empty output", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Generate(NewData("demo", "python"), dir); err == nil {
			t.Fatal("expected error for non-empty directory")
		}
	})

	t.Run("unsupported language", func(t *testing.T) {
		if _, err := Generate(NewData("demo", "ruby"), filepath.Join(t.TempDir(), "x")); err == nil {
			t.Fatal("expected error for unsupported language")
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		if _, err := Generate(NewData("../demo", "lua"), filepath.Join(t.TempDir(), "x")); err == nil {
			t.Fatal("expected error for invalid name")
		}
	})
}
