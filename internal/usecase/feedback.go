package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"qarag/internal/domain"
	"qarag/internal/port"
)

// FeedbackUseCase records answer ratings. Feedback is an audit trail of
// its own and never enters QA history.
type FeedbackUseCase struct {
	log   port.FeedbackLog
	now   func() time.Time
	newID func() string
}

func NewFeedbackUseCase(log port.FeedbackLog) *FeedbackUseCase {
	return &FeedbackUseCase{log: log, now: time.Now, newID: uuid.NewString}
}

type FeedbackInput struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Feedback string `json:"feedback"`
	Comment  string `json:"comment"`
}

func (u *FeedbackUseCase) Submit(ctx context.Context, in FeedbackInput) (domain.Feedback, error) {
	rating := domain.FeedbackRating(strings.ToLower(strings.TrimSpace(in.Feedback)))
	if !rating.Valid() {
		return domain.Feedback{}, fmt.Errorf("%w: feedback must be good, bad or neutral", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Question) == "" || strings.TrimSpace(in.Answer) == "" {
		return domain.Feedback{}, fmt.Errorf("%w: question and answer are required", domain.ErrInvalidInput)
	}

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = "anonymous"
	}
	fb := domain.Feedback{
		ID:        u.newID(),
		UserID:    userID,
		Question:  in.Question,
		Answer:    in.Answer,
		Rating:    rating,
		Comment:   in.Comment,
		Timestamp: u.now().UTC(),
	}
	if err := u.log.AppendFeedback(ctx, fb); err != nil {
		return domain.Feedback{}, fmt.Errorf("%w: %v", domain.ErrLogWriteFailure, err)
	}
	return fb, nil
}

func (u *FeedbackUseCase) List(ctx context.Context) ([]domain.Feedback, error) {
	return u.log.ListFeedback(ctx)
}
