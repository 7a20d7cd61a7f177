package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"qarag/internal/adapter/chunker"
	"qarag/internal/adapter/memstore"
	"qarag/internal/adapter/source"
	"qarag/internal/domain"
)

func newTestIndexUseCase(t *testing.T, path string) (*IndexUseCase, *countingEmbedder) {
	t.Helper()
	emb := newCountingEmbedder("")
	idx := newTestIndex(emb, memstore.NewMemoryStore())
	return NewIndexUseCase(source.NewLoader(nil, nil), chunker.NewParagraphChunker(500), idx, path, testLogger), emb
}

func TestIndexUseCaseIndexAndRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.txt")
	os.WriteFile(path, []byte("Addis Ababa is the capital of Ethiopia.\n\nWolaytta is in southern Ethiopia."), 0644)

	uc, emb := newTestIndexUseCase(t, path)
	ctx := context.Background()

	res, err := uc.Index(ctx, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != 1 || res.Vectors != 1 {
		t.Errorf("expected a single chunk, got %+v", res.IndexStats)
	}

	res, err = uc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Error("unchanged source should skip the rebuild")
	}
	calls := emb.Calls()

	os.WriteFile(path, []byte("Sodo is the capital of Wolaytta."), 0644)
	res, err = uc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || emb.Calls() == calls {
		t.Error("changed source should rebuild")
	}
	if got := uc.EmbeddingIndex().Chunks()[0].Text; got != "Sodo is the capital of Wolaytta." {
		t.Errorf("index not refreshed, first chunk %q", got)
	}
}

func TestIndexUseCaseForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.txt")
	os.WriteFile(path, []byte("Addis Ababa is the capital of Ethiopia."), 0644)

	uc, emb := newTestIndexUseCase(t, path)
	ctx := context.Background()

	if _, err := uc.Index(ctx, false, nil); err != nil {
		t.Fatal(err)
	}
	calls := emb.Calls()
	res, err := uc.Index(ctx, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Loaded || emb.Calls() == calls {
		t.Error("forced index must rebuild")
	}
}

func TestIndexUseCaseMissingSource(t *testing.T) {
	uc, _ := newTestIndexUseCase(t, filepath.Join(t.TempDir(), "kuye.pdf"))
	if _, err := uc.Index(context.Background(), false, nil); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

type chanWatcher struct {
	ch chan string
}

func (w *chanWatcher) Watch(ctx context.Context, path string) (<-chan string, error) {
	return w.ch, nil
}

func (w *chanWatcher) Close() error { return nil }

func TestIndexUseCaseWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.txt")
	os.WriteFile(path, []byte("first version"), 0644)

	uc, _ := newTestIndexUseCase(t, path)
	if _, err := uc.Index(context.Background(), false, nil); err != nil {
		t.Fatal(err)
	}

	rebuilt := make(chan struct{}, 1)
	uc.EmbeddingIndex().OnRebuild(func() { rebuilt <- struct{}{} })

	w := &chanWatcher{ch: make(chan string)}
	done := make(chan error, 1)
	go func() { done <- uc.Watch(context.Background(), w) }()

	os.WriteFile(path, []byte("second version"), 0644)
	w.ch <- path

	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("index was not rebuilt")
	}

	close(w.ch)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := uc.EmbeddingIndex().Chunks()[0].Text; got != "second version" {
		t.Errorf("unexpected chunk %q", got)
	}
}
