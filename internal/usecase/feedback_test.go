package usecase

import (
	"context"
	"errors"
	"testing"

	"qarag/internal/adapter/memstore"
	"qarag/internal/domain"
)

func TestFeedbackSubmit(t *testing.T) {
	st := memstore.NewMemoryStore()
	uc := NewFeedbackUseCase(st)
	ctx := context.Background()

	fb, err := uc.Submit(ctx, FeedbackInput{Question: "q", Answer: "a", Feedback: " Good "})
	if err != nil {
		t.Fatal(err)
	}
	if fb.Rating != domain.FeedbackGood || fb.UserID != "anonymous" || fb.ID == "" {
		t.Errorf("unexpected feedback %+v", fb)
	}

	list, _ := uc.List(ctx)
	if len(list) != 1 {
		t.Errorf("expected 1 stored feedback, got %d", len(list))
	}
	if logged, _ := st.LoadAll(ctx); len(logged) != 0 {
		t.Error("feedback must not enter QA history")
	}
}

func TestFeedbackValidation(t *testing.T) {
	uc := NewFeedbackUseCase(memstore.NewMemoryStore())

	tests := []FeedbackInput{
		{Question: "q", Answer: "a", Feedback: "excellent"},
		{Question: "", Answer: "a", Feedback: "bad"},
		{Question: "q", Answer: " ", Feedback: "neutral"},
	}
	for _, in := range tests {
		if _, err := uc.Submit(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}
