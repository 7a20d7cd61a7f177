// Package source extracts raw text from the documents the QA index is
// built from.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qarag/internal/domain"
)

// Loader dispatches on file extension. A directory is expanded with the
// walker and its documents are joined by a blank line so paragraphs of
// adjacent files never merge.
type Loader struct {
	walker *Walker
}

func NewLoader(includes, excludes []string) *Loader {
	return &Loader{walker: NewWalker(includes, excludes)}
}

func (l *Loader) Extract(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return extractFile(ctx, path)
	}

	files, err := l.walker.Walk(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no documents under %s", domain.ErrSourceUnavailable, path)
	}

	parts := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := extractFile(ctx, f)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n"), nil
}

func extractFile(ctx context.Context, path string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = extractPDF(ctx, path)
	case ".md", ".markdown":
		text, err = extractMarkdown(path)
	default:
		text, err = extractText(path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, path, err)
	}
	return text, nil
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
