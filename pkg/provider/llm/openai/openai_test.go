package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/chronos/pkg/provider/llm"
	"github.com/MrWong99/chronos/pkg/types"
)

// TestConvertMessage_System checks that system role is converted correctly.
func TestConvertMessage_System(t *testing.T) {
	param, err := convertMessage(types.Message{Role: types.RoleSystem, Content: "You are Cleopatra."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfSystem == nil {
		t.Fatal("expected OfSystem to be set")
	}
}

// TestConvertMessage_User checks that user role is converted correctly.
func TestConvertMessage_User(t *testing.T) {
	param, err := convertMessage(types.Message{Role: types.RoleUser, Content: "Hello!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfUser == nil {
		t.Fatal("expected OfUser to be set")
	}
}

// TestConvertMessage_AssistantName checks that speaker names are sanitised.
func TestConvertMessage_AssistantName(t *testing.T) {
	param, err := convertMessage(types.Message{Role: types.RoleAssistant, Content: "Indeed.", Name: "Marie Curie"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
	if got := param.OfAssistant.Name.Value; got != "Marie_Curie" {
		t.Errorf("name = %q, want %q", got, "Marie_Curie")
	}
}

// TestConvertMessage_UnknownRole checks that unknown roles return an error.
func TestConvertMessage_UnknownRole(t *testing.T) {
	if _, err := convertMessage(types.Message{Role: "tool", Content: "x"}); err == nil {
		t.Fatal("expected error for unknown role, got nil")
	}
}

func TestModelCapabilities(t *testing.T) {
	tests := []struct {
		model      string
		wantWindow int
	}{
		{"llama-3.3-70b-versatile", 131_072},
		{"mixtral-8x7b-32768", 32_768},
		{"gpt-3.5-turbo", 16_385},
		{"gpt-4", 8_192},
		{"my-custom-model", 128_000},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			caps := modelCapabilities(tt.model)
			if caps.ContextWindow != tt.wantWindow {
				t.Errorf("ContextWindow = %d, want %d", caps.ContextWindow, tt.wantWindow)
			}
			if caps.MaxOutputTokens <= 0 {
				t.Error("expected positive MaxOutputTokens")
			}
		})
	}
}

// TestNew_MissingAPIKey ensures constructor rejects an empty API key.
func TestNew_MissingAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

// TestNew_MissingModel ensures constructor rejects an empty model.
func TestNew_MissingModel(t *testing.T) {
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNewGroq_DefaultModel(t *testing.T) {
	p, err := NewGroq("gsk-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != DefaultGroqModel {
		t.Errorf("model = %q, want %q", p.model, DefaultGroqModel)
	}
}

func TestComplete_SendsProfile(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"I am Ada."}}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", "llama-3.3-70b-versatile", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "You are Ada Lovelace.",
		Messages:     []types.Message{{Role: types.RoleUser, Content: "Who are you?"}},
		Temperature:  0.7,
		MaxTokens:    256,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "I am Ada." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("total tokens = %d, want 7", resp.Usage.TotalTokens)
	}
	if body["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want 0.7", body["temperature"])
	}
	if body["max_tokens"] != float64(256) {
		t.Errorf("max_tokens = %v, want 256", body["max_tokens"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want system + user", len(msgs))
	}
}

func TestComplete_NoRetryOnFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := New("sk-test", "llama-3.3-70b-versatile", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error from failing upstream")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want exactly 1", n)
	}
}
