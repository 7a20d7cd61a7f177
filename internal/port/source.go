package port

import "context"

// DocumentSource extracts raw text from a document path.
type DocumentSource interface {
	Extract(ctx context.Context, path string) (string, error)
}

// SourceWatcher reports changes to the source document.
type SourceWatcher interface {
	Watch(ctx context.Context, path string) (<-chan string, error)
	Close() error
}
