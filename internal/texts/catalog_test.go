package texts

import (
	"io/fs"
	"os"
	"strings"
	"testing"
	"testing/fstest"
)

func TestEmbeddedLocalesShareKeys(t *testing.T) {
	ru, err := Load("ru")
	if err != nil {
		t.Fatalf("load ru: %v", err)
	}
	en, err := Load("en")
	if err != nil {
		t.Fatalf("load en: %v", err)
	}
	for key := range ru.messages {
		if _, ok := en.messages[key]; !ok {
			t.Errorf("en catalog misses %q", key)
		}
	}
	for key := range en.messages {
		if _, ok := ru.messages[key]; !ok {
			t.Errorf("ru catalog misses %q", key)
		}
	}
}

// Every catalog key must be looked up somewhere in the bot's code.
func TestEmbeddedKeysAreUsed(t *testing.T) {
	en, err := Load("en")
	if err != nil {
		t.Fatalf("load en: %v", err)
	}

	var src strings.Builder
	root := os.DirFS("../..")
	err = fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != "." && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		data, err := fs.ReadFile(root, p)
		if err != nil {
			return err
		}
		src.Write(data)
		return nil
	})
	if err != nil {
		t.Fatalf("read sources: %v", err)
	}

	code := src.String()
	for key := range en.messages {
		if !strings.Contains(code, `"`+key+`"`) {
			t.Errorf("catalog key %q is never looked up", key)
		}
	}
}

func TestCatalogLookup(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/ru.yaml": {Data: []byte("greeting: привет\nnamed: чат %s\nonly_ru: да\n")},
		"locales/de.yaml": {Data: []byte("greeting: hallo\n")},
	}
	c, err := LoadFS(fsys, "DE")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c.T("greeting"); got != "hallo" {
		t.Errorf("greeting = %q", got)
	}
	if got := c.T("only_ru"); got != "да" {
		t.Errorf("fallback = %q", got)
	}
	if got := c.T("named", "X"); got != "чат X" {
		t.Errorf("format = %q", got)
	}
	if got := c.T("missing"); got != "missing" {
		t.Errorf("missing key = %q", got)
	}
	if c.Locale() != "de" || !c.Has("only_ru") || c.Has("missing") {
		t.Errorf("unexpected catalog state")
	}
}

func TestLoadUnknownLocale(t *testing.T) {
	if _, err := Load("xx"); err == nil {
		t.Fatal("expected error for unknown locale")
	}
}
