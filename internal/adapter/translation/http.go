package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"qarag/internal/port"
)

// HTTPTranslator calls a translation service exposing
// POST {base}/translate {text, source_lang, target_lang} -> {translated_text}.
type HTTPTranslator struct {
	baseURL string
	client  *http.Client
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
	Error          string `json:"error,omitempty"`
}

func NewHTTPTranslator(baseURL string, timeout time.Duration) (*HTTPTranslator, error) {
	if baseURL == "" {
		return nil, errors.New("translation.base_url is required for the http provider")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPTranslator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

var _ port.Translator = (*HTTPTranslator)(nil)

func (t *HTTPTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	body, err := json.Marshal(translateRequest{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translator returned status %d: %s", resp.StatusCode, preview(data))
	}

	var out translateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("translator error: %s", out.Error)
	}
	if IsErrorMarker(out.TranslatedText) {
		return "", fmt.Errorf("translator returned error marker: %s", preview([]byte(out.TranslatedText)))
	}
	return strings.TrimSpace(out.TranslatedText), nil
}

// Some translation backends report failure inside the payload instead
// of the status code.
var errorPrefixes = []string{"[error]", "error:", "translation error"}

// IsErrorMarker reports whether a translator result is empty or an
// in-band error message.
func IsErrorMarker(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	for _, p := range errorPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func preview(b []byte) string {
	if len(b) > 200 {
		return string(b[:200])
	}
	return string(b)
}

// ErrNoTranslator is returned by Noop for every call.
var ErrNoTranslator = errors.New("no translation provider configured")

// Noop is the "none" provider. Non-pivot questions then go through the
// degradation policy.
type Noop struct{}

func (Noop) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return "", ErrNoTranslator
}
