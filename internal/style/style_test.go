package style

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"style.toml": "class1_color = \"#ff0000\"\nwidth = 1024\n",
		"style.yaml": "class1_color: \"#ff0000\"\nwidth: 1024\n",
		"style.json": `{"class1_color": "#ff0000", "width": 1024}`,
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			theme, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if theme.Class1Color != "#ff0000" || theme.Width != 1024 {
				t.Errorf("overrides not applied: %+v", theme)
			}
			if theme.Class0Color != "#718dbf" || theme.Height != 400 {
				t.Errorf("defaults should survive partial overrides: %+v", theme)
			}
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	theme, err := Load("")
	if err != nil || theme != Default() {
		t.Fatalf("Load(\"\") = %+v, %v", theme, err)
	}
}

func TestLoadRejectsInvalidTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.json")
	if err := os.WriteFile(path, []byte(`{"pct_color": "green", "height": 10}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"pct_color", "height 10"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}
