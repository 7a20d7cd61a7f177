package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"qarag/internal/domain"
	"qarag/internal/port"
)

// User-visible fixed answers.
const (
	MsgInvalidQuestion   = "Please enter a valid question."
	MsgNoContext         = "Sorry, I couldn't find relevant context to answer this question."
	MsgGenerationFailed  = "Failed to generate answer."
	MsgTranslationFailed = "Sorry, translation is currently unavailable. Please try again in English."
	MsgRetrievalFailed   = "Sorry, the knowledge base could not be searched. Please try again later."
	MsgCancelled         = "Request cancelled."
)

// State names the steps of answering one question.
type State string

const (
	StateReceived           State = "RECEIVED"
	StateTranslatedToPivot  State = "TRANSLATED_TO_PIVOT"
	StateRetrieved          State = "RETRIEVED"
	StatePrompted           State = "PROMPTED"
	StateGenerated          State = "GENERATED"
	StateTranslatedToSource State = "TRANSLATED_TO_SOURCE"
	StateLogged             State = "LOGGED"
	StateDone               State = "DONE"
	StateFailed             State = "FAILED"
)

// Warning is attached to a response that succeeded in a degraded way.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response is the outcome of Answer. Err is set when the request failed;
// Answer then holds the user-visible message for that failure.
type Response struct {
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
	Language string               `json:"lang"`
	Warnings []Warning            `json:"warnings,omitempty"`
	Sources  []domain.ScoredChunk `json:"-"`
	Err      error                `json:"-"`
}

type AnswerOptions struct {
	PivotLanguage      string
	TopK               int
	AllowDegraded      bool
	Generation         port.GenerationParams
	GenerationTimeout  time.Duration
	TranslationTimeout time.Duration
}

// AnswerUseCase runs the per-question state machine:
// RECEIVED, TRANSLATED_TO_PIVOT (non-pivot only), RETRIEVED, PROMPTED,
// GENERATED, TRANSLATED_TO_SOURCE (non-pivot only), LOGGED, DONE.
// Any step may end in FAILED.
type AnswerUseCase struct {
	retriever  port.Retriever
	generator  port.Generator
	translator port.Translator
	history    *History
	prompts    *PromptBuilder
	opts       AnswerOptions
	log        *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewAnswerUseCase(
	retriever port.Retriever,
	generator port.Generator,
	translator port.Translator,
	history *History,
	prompts *PromptBuilder,
	opts AnswerOptions,
	log *slog.Logger,
) *AnswerUseCase {
	if opts.PivotLanguage == "" {
		opts.PivotLanguage = "en"
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	if log == nil {
		log = slog.Default()
	}
	return &AnswerUseCase{
		retriever:  retriever,
		generator:  generator,
		translator: translator,
		history:    history,
		prompts:    prompts,
		opts:       opts,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// NormalizeLanguage trims and lower-cases a language tag. Empty means
// the pivot language.
func NormalizeLanguage(tag, pivot string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return pivot
	}
	return tag
}

type answerRun struct {
	log   *slog.Logger
	state State
	resp  Response
}

func (r *answerRun) to(s State, attrs ...any) {
	r.log.Debug("answer state", append([]any{"from", r.state, "to", s}, attrs...)...)
	r.state = s
}

func (r *answerRun) fail(answer string, err error) Response {
	r.to(StateFailed, "error", err)
	r.resp.Answer = answer
	r.resp.Err = err
	return r.resp
}

func (r *answerRun) warn(kind, msg string) {
	r.resp.Warnings = append(r.resp.Warnings, Warning{Kind: kind, Message: msg})
}

func (u *AnswerUseCase) Answer(ctx context.Context, question, language string) Response {
	lang := NormalizeLanguage(language, u.opts.PivotLanguage)
	run := &answerRun{
		log:   u.log.With("lang", lang),
		state: StateReceived,
		resp:  Response{Question: question, Language: lang},
	}

	if strings.TrimSpace(question) == "" {
		run.resp.Answer = MsgInvalidQuestion
		run.resp.Err = domain.ErrInvalidQuestion
		return run.resp
	}

	pivotQuestion := question
	if lang != u.opts.PivotLanguage {
		translated, err := u.translate(ctx, question, lang, u.opts.PivotLanguage)
		if err != nil {
			if ctx.Err() != nil {
				return run.fail(MsgCancelled, ctx.Err())
			}
			terr := &domain.TranslationError{Stage: domain.StageToPivot, Language: lang, Err: err}
			if !u.opts.AllowDegraded {
				return run.fail(MsgTranslationFailed, terr)
			}
			run.log.Warn("question translation failed, continuing untranslated", "error", err)
			run.warn(domain.ErrorKind(terr), "question was not translated: "+err.Error())
		} else {
			pivotQuestion = translated
		}
		run.to(StateTranslatedToPivot)
	}

	chunks, err := u.retriever.Retrieve(ctx, pivotQuestion, u.opts.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return run.fail(MsgCancelled, ctx.Err())
		}
		return run.fail(MsgRetrievalFailed, err)
	}
	run.resp.Sources = chunks
	run.to(StateRetrieved, "chunks", len(chunks))

	answer := MsgNoContext
	if len(chunks) > 0 {
		prompt, err := u.prompts.Build(chunks, pivotQuestion)
		if err != nil {
			return run.fail(MsgGenerationFailed, fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err))
		}
		run.to(StatePrompted, "prompt_len", len(prompt))

		generated, err := u.generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return run.fail(MsgCancelled, ctx.Err())
			}
			run.log.Error("generation failed", "error", err)
			return run.fail(MsgGenerationFailed, fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err))
		}
		run.to(StateGenerated)
		answer = generated

		if lang != u.opts.PivotLanguage {
			back, err := u.translate(ctx, generated, u.opts.PivotLanguage, lang)
			if err != nil {
				if ctx.Err() != nil {
					return run.fail(MsgCancelled, ctx.Err())
				}
				terr := &domain.TranslationError{Stage: domain.StageToSource, Language: lang, Err: err}
				if !u.opts.AllowDegraded {
					return run.fail(MsgTranslationFailed, terr)
				}
				run.log.Warn("answer translation failed, returning pivot answer", "error", err)
				run.warn(domain.ErrorKind(terr), "answer was not translated: "+err.Error())
			} else {
				answer = back
			}
			run.to(StateTranslatedToSource)
		}
	}
	run.resp.Answer = answer

	// A cancelled request leaves no trace in the log.
	if err := ctx.Err(); err != nil {
		return run.fail(MsgCancelled, err)
	}

	in := domain.Interaction{
		ID:        u.newID(),
		Question:  question,
		Answer:    answer,
		Language:  lang,
		Timestamp: u.now().UTC(),
	}
	if err := u.history.Record(ctx, in); err != nil {
		run.log.Warn("interaction log write failed", "error", err)
		run.warn(domain.ErrorKind(err), "answer was not saved to history")
	} else {
		run.to(StateLogged, "id", in.ID)
	}

	run.to(StateDone)
	return run.resp
}

func (u *AnswerUseCase) generate(ctx context.Context, prompt string) (string, error) {
	if u.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.GenerationTimeout)
		defer cancel()
	}
	return u.generator.Complete(ctx, prompt, u.opts.Generation)
}

func (u *AnswerUseCase) translate(ctx context.Context, text, from, to string) (string, error) {
	if u.opts.TranslationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.TranslationTimeout)
		defer cancel()
	}
	out, err := u.translator.Translate(ctx, text, from, to)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}

// Translate is the standalone translation operation exposed by the API.
func (u *AnswerUseCase) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}
	from = NormalizeLanguage(from, u.opts.PivotLanguage)
	to = NormalizeLanguage(to, u.opts.PivotLanguage)
	if from == to {
		return text, nil
	}
	out, err := u.translate(ctx, text, from, to)
	if err != nil {
		return "", &domain.TranslationError{Stage: domain.StageToSource, Language: to, Err: err}
	}
	return out, nil
}

func (u *AnswerUseCase) History() *History {
	return u.history
}
