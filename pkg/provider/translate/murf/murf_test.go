package murf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/chronos/pkg/provider/translate"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string entries", `{"translations":["Bonjour"]}`, "Bonjour"},
		{"text field", `{"translations":[{"text":"Hola"}]}`, "Hola"},
		{"translatedText field", `{"translations":[{"translatedText":"Hallo"}]}`, "Hallo"},
		{"text wins", `{"translations":[{"text":"Ciao","translatedText":"x"}]}`, "Ciao"},
		{"flat list", `{"translatedTexts":["Olá"]}`, "Olá"},
		{"unknown entry", `{"translations":[42]}`, ""},
		{"short list", `{"translations":[]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.body), 1)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("got %q, want [%q]", got, tt.want)
			}
		})
	}
}

func TestNormalize_NoKnownShape(t *testing.T) {
	if _, err := Normalize([]byte(`{"result":"?"}`), 1); err == nil {
		t.Fatal("expected error for unknown shape")
	}
}

func TestTranslate_NotConfigured(t *testing.T) {
	_, err := New("").Translate(context.Background(), "fr-FR", []string{"Hello"})
	if !errors.Is(err, translate.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestTranslate_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != translateEndpoint {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.TargetLanguage != "de-DE" || len(req.Texts) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"translations":[{"translated_text":"?","text":"Guten Tag"},"Danke"]}`))
	}))
	defer srv.Close()

	got, err := New("k", WithBaseURL(srv.URL)).Translate(context.Background(), "de-DE", []string{"Good day", "Thanks"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got[0] != "Guten Tag" || got[1] != "Danke" {
		t.Errorf("got %q", got)
	}
}

func TestTranslate_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := New("k", WithBaseURL(srv.URL)).Translate(context.Background(), "fr-FR", []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
}
