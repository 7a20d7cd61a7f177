package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"qarag/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.txt")
	content := "Addis Ababa is the capital of Ethiopia.\n\nThe Wolaytta zone is in southern Ethiopia.\n"
	writeFile(t, path, content)

	got, err := NewLoader(nil, nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got != content {
		t.Errorf("expected verbatim text, got %q", got)
	}
}

func TestExtractMissingIsSourceUnavailable(t *testing.T) {
	_, err := NewLoader(nil, nil).Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	writeFile(t, path, "not a pdf")

	_, err := NewLoader(nil, nil).Extract(context.Background(), path)
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable for corrupt pdf, got %v", err)
	}
}

func TestMarkdownText(t *testing.T) {
	src := "# Ethiopia\n\nAddis Ababa is the **capital** of\nEthiopia.\n\n- Wolaytta\n- Sodo\n\n```\ncode line\n```\n"
	got := markdownText([]byte(src))
	want := "Ethiopia\n\nAddis Ababa is the capital of Ethiopia.\n\nWolaytta\n\nSodo\n\ncode line"
	if got != want {
		t.Errorf("markdownText:\n got %q\nwant %q", got, want)
	}
}

func TestExtractDirectoryLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "second")
	writeFile(t, filepath.Join(dir, "a.txt"), "first")
	writeFile(t, filepath.Join(dir, "notes", "c.md"), "# third")
	writeFile(t, filepath.Join(dir, "skip.csv"), "ignored")
	writeFile(t, filepath.Join(dir, ".qarag", "x.txt"), "ignored")

	l := NewLoader(nil, []string{".qarag/**"})
	got, err := l.Extract(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := "first\n\nsecond\n\nthird"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractEmptyDirectory(t *testing.T) {
	_, err := NewLoader(nil, nil).Extract(context.Background(), t.TempDir())
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestWalkerIncludesExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "a.md"), "a")
	writeFile(t, filepath.Join(dir, "docs", "draft", "b.md"), "b")
	writeFile(t, filepath.Join(dir, "c.txt"), "c")

	w := NewWalker([]string{"docs/**/*.md"}, []string{"docs/draft/**"})
	files, err := w.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "docs", "a.md")}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("got %v, want %v", files, want)
	}
}
