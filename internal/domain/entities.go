package domain

import "time"

// Chunk is an immutable unit of retrievable source text.
// Index is its position in the source-ordered chunk sequence.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Hit is one nearest-neighbor result from the index.
type Hit struct {
	ChunkIndex int     `json:"chunk_index"`
	Distance   float32 `json:"distance"`
}

type ScoredChunk struct {
	Chunk    Chunk
	Distance float32
}

// Interaction is one logged question/answer exchange.
type Interaction struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Language  string    `json:"lang"`
	Timestamp time.Time `json:"timestamp"`
}

type FeedbackRating string

const (
	FeedbackGood    FeedbackRating = "good"
	FeedbackBad     FeedbackRating = "bad"
	FeedbackNeutral FeedbackRating = "neutral"
)

func (r FeedbackRating) Valid() bool {
	switch r {
	case FeedbackGood, FeedbackBad, FeedbackNeutral:
		return true
	}
	return false
}

// Feedback is a user rating of an answer. It is kept apart from
// interaction history.
type Feedback struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Rating    FeedbackRating `json:"feedback"`
	Comment   string         `json:"comment,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// IndexSnapshot is the persisted form of an embedding index. Vectors and
// the serialized index are always stored and loaded together.
type IndexSnapshot struct {
	ModelName   string
	Dimension   int
	Fingerprint string
	Vectors     [][]float32
	Index       []byte
}

type IndexStats struct {
	Chunks    int    `json:"chunks"`
	Vectors   int    `json:"vectors"`
	Dimension int    `json:"dimension"`
	Model     string `json:"model"`
	Loaded    bool   `json:"loaded_from_cache"`
}
