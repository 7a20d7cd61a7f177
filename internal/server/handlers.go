package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"qarag/internal/domain"
	"qarag/internal/usecase"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

type answerRequest struct {
	Question string `json:"question"`
	Lang     string `json:"lang"`
}

type answerResponse struct {
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Lang     string            `json:"lang"`
	Warnings []usecase.Warning `json:"warnings,omitempty"`
	Error    *errorBody        `json:"error,omitempty"`
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// StatusFor maps a request failure to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidQuestion), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTranslationFailure),
		errors.Is(err, domain.ErrGenerationFailure),
		errors.Is(err, domain.ErrRetrievalFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newErrorBody(err error) *errorBody {
	body := &errorBody{Kind: domain.ErrorKind(err), Message: err.Error()}
	var terr *domain.TranslationError
	if errors.As(err, &terr) {
		body.Stage = string(terr.Stage)
	}
	return body
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "qarag",
		"message": "Wolaytta-English question answering API",
		"endpoints": []string{
			"GET /api/health",
			"POST /api/qa",
			"GET /api/qa/history",
			"POST /api/qa/feedback",
			"POST /api/translate",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"index":   s.deps.Index.Stats(),
		"history": s.deps.Answers.History().Len(),
	}
	if s.deps.Cache != nil {
		body["cache"] = s.deps.Cache.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, answerResponse{
			Answer: usecase.MsgInvalidQuestion,
			Error:  &errorBody{Kind: "InvalidInput", Message: err.Error()},
		})
		return
	}

	resp := s.deps.Answers.Answer(r.Context(), req.Question, req.Lang)
	out := answerResponse{
		Question: resp.Question,
		Answer:   resp.Answer,
		Lang:     resp.Language,
		Warnings: resp.Warnings,
	}
	if resp.Err != nil {
		out.Error = newErrorBody(resp.Err)
		if StatusFor(resp.Err) >= http.StatusInternalServerError {
			s.log.Warn("answer failed", "kind", out.Error.Kind, "error", resp.Err)
		}
	}
	writeJSON(w, StatusFor(resp.Err), out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "InvalidInput", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items := s.deps.Answers.History().List(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var in usecase.FeedbackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidInput", err.Error())
		return
	}

	fb, err := s.deps.Feedback.Submit(r.Context(), in)
	if err != nil {
		writeError(w, StatusFor(err), domain.ErrorKind(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":   "recorded",
		"feedback": fb,
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidInput", err.Error())
		return
	}

	out, err := s.deps.Answers.Translate(r.Context(), req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		body := newErrorBody(err)
		writeJSON(w, StatusFor(err), map[string]any{"error": body})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translated_text": out})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]any{"error": errorBody{Kind: kind, Message: msg}})
}
