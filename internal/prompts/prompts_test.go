package prompts

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func writeSet(t *testing.T, dir, lang, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "set_"+lang+".json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource_GetPrompt(t *testing.T) {
	dir := t.TempDir()
	writeSet(t, dir, "en", `{"content":[{"prompt":"one"},{"prompt":"two"},{"prompt":"three"}]}`)

	src := NewFileSource(dir, rand.New(rand.NewSource(1)))

	n, err := src.Count("en")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count: want 3, got %d", n)
	}

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := src.GetPrompt("en")
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		seen[p] = true
	}
	for _, want := range []string{"one", "two", "three"} {
		if !seen[want] {
			t.Fatalf("prompt %q never drawn", want)
		}
	}
}

func TestFileSource_MissingLanguage(t *testing.T) {
	src := NewFileSource(t.TempDir(), rand.New(rand.NewSource(1)))
	if _, err := src.GetPrompt("xx"); !errors.Is(err, ErrNoPrompts) {
		t.Fatalf("want ErrNoPrompts, got %v", err)
	}
}

func TestFileSource_EmptyAndMalformedSets(t *testing.T) {
	dir := t.TempDir()
	writeSet(t, dir, "empty", `{"content":[]}`)
	writeSet(t, dir, "blank", `{"content":[{"prompt":""}]}`)
	writeSet(t, dir, "bad", `not json`)

	src := NewFileSource(dir, rand.New(rand.NewSource(1)))
	for _, lang := range []string{"empty", "blank", "bad"} {
		if _, err := src.GetPrompt(lang); !errors.Is(err, ErrNoPrompts) {
			t.Fatalf("%s: want ErrNoPrompts, got %v", lang, err)
		}
	}
}

func TestFileSource_CachesAfterFirstLoad(t *testing.T) {
	dir := t.TempDir()
	writeSet(t, dir, "en", `{"content":[{"prompt":"cached"}]}`)

	src := NewFileSource(dir, rand.New(rand.NewSource(1)))
	if _, err := src.GetPrompt("en"); err != nil {
		t.Fatalf("first draw: %v", err)
	}

	// The set file can disappear once loaded.
	if err := os.Remove(filepath.Join(dir, "set_en.json")); err != nil {
		t.Fatal(err)
	}
	p, err := src.GetPrompt("en")
	if err != nil {
		t.Fatalf("cached draw: %v", err)
	}
	if p != "cached" {
		t.Fatalf("cached draw: got %q", p)
	}
}
