package port

import "qarag/internal/domain"

type Chunker interface {
	Chunk(rawText string) []domain.Chunk
}
