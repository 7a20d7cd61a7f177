package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTranslateServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.SourceLang != "wo" || req.TargetLang != "en" {
			t.Errorf("unexpected langs %s -> %s", req.SourceLang, req.TargetLang)
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(translateResponse{TranslatedText: reply})
	}))
}

func TestHTTPTranslator(t *testing.T) {
	srv := newTranslateServer(t, " What is the capital of Ethiopia? ", http.StatusOK)
	defer srv.Close()

	tr, err := NewHTTPTranslator(srv.URL+"/", 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := tr.Translate(context.Background(), "Itiyoophiyaa kataamaa?", "wo", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got != "What is the capital of Ethiopia?" {
		t.Errorf("unexpected translation %q", got)
	}
}

func TestHTTPTranslatorFailures(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		status int
	}{
		{"status", "ok", http.StatusServiceUnavailable},
		{"empty", "", http.StatusOK},
		{"marker", "[ERROR] model not loaded", http.StatusOK},
		{"prefix", "Error: timeout", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTranslateServer(t, tt.reply, tt.status)
			defer srv.Close()

			tr, _ := NewHTTPTranslator(srv.URL, 0)
			if _, err := tr.Translate(context.Background(), "x", "wo", "en"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHTTPTranslatorRequiresURL(t *testing.T) {
	if _, err := NewHTTPTranslator("", 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestNoop(t *testing.T) {
	_, err := Noop{}.Translate(context.Background(), "x", "wo", "en")
	if !errors.Is(err, ErrNoTranslator) {
		t.Fatalf("expected ErrNoTranslator, got %v", err)
	}
}

func TestIsErrorMarker(t *testing.T) {
	for s, want := range map[string]bool{
		"":                 true,
		"   ":              true,
		"[Error] x":        true,
		"error: x":         true,
		"Addis Ababa":      false,
		"The error margin": false,
	} {
		if got := IsErrorMarker(s); got != want {
			t.Errorf("IsErrorMarker(%q) = %v, want %v", s, got, want)
		}
	}
}
