package completion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/pkg/provider/llm"
	"github.com/MrWong99/chronos/pkg/provider/llm/mock"
	"github.com/MrWong99/chronos/pkg/types"
)

func newTestClient(t *testing.T, p llm.Provider) (*Client, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return New(p, WithMetrics(m), WithProviderName("groq")), reader
}

func requestCount(t *testing.T, reader *sdkmetric.ManualReader, status string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "chronos.provider.requests" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value("status"); ok && v.AsString() == status {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestComplete_NotConfigured(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, nil)
	if c.Configured() {
		t.Error("Configured() = true for nil provider")
	}
	if _, err := c.Complete(context.Background(), "", nil, Conversation); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestComplete_SingleRequestNoRetry(t *testing.T) {
	t.Parallel()
	upstream := errors.New("rate limited")
	p := &mock.Provider{Err: upstream}
	c, reader := newTestClient(t, p)

	_, err := c.Complete(context.Background(), "sys", []types.Message{{Role: types.RoleUser, Content: "hi"}}, Conversation)
	if !errors.Is(err, upstream) {
		t.Fatalf("err = %v, want wrapped upstream error", err)
	}
	if n := len(p.Calls()); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
	if got := requestCount(t, reader, "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
}

func TestComplete_ProfileAndClamp(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{
		Responses:         []string{"Indeed."},
		ModelCapabilities: types.ModelCapabilities{MaxOutputTokens: 1000},
	}
	c, reader := newTestClient(t, p)

	got, err := c.Complete(context.Background(), "sys", []types.Message{{Role: types.RoleUser, Content: "hi"}}, QuizGeneration)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Indeed." {
		t.Errorf("reply = %q", got)
	}
	req := p.Calls()[0].Req
	if req.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want clamped 1000", req.MaxTokens)
	}
	if req.Temperature != 0.2 || req.SystemPrompt != "sys" {
		t.Errorf("request = %+v", req)
	}
	if got := requestCount(t, reader, "ok"); got != 1 {
		t.Errorf("ok requests = %d, want 1", got)
	}
}

func TestRespond_UsesPersonaPrompt(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{Responses: []string{"I think, therefore I am."}}
	c, _ := newTestClient(t, p)

	history := []types.Message{{Role: types.RoleUser, Content: "Who are you?"}}
	if _, err := c.Respond(context.Background(), persona.Request{Figure: "René Descartes", Language: "fr"}, history); err != nil {
		t.Fatal(err)
	}
	req := p.Calls()[0].Req
	if !strings.Contains(req.SystemPrompt, "You are René Descartes") || !strings.Contains(req.SystemPrompt, "French") {
		t.Errorf("system prompt = %q", req.SystemPrompt)
	}
	if req.Temperature != 0.7 || req.MaxTokens != 256 {
		t.Errorf("profile = %v/%d", req.Temperature, req.MaxTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Who are you?" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()
	type gender struct {
		Gender string `json:"gender"`
	}
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"plain", `{"gender":"female"}`, "female", true},
		{"fenced", "```json\n{\"gender\":\"female\"}\n```", "female", true},
		{"bare fence", "```\n{\"gender\":\"female\"}\n```", "female", true},
		{"prose around", `Sure! {"gender":"female"} Hope that helps.`, "female", true},
		{"garbage", "I cannot say.", "fallback", false},
		{"empty", "", "fallback", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := DecodeJSON(tt.text, gender{Gender: "fallback"})
			if d.OK != tt.wantOK || d.Value.Gender != tt.want {
				t.Errorf("DecodeJSON = %+v, want %q ok=%v", d, tt.want, tt.wantOK)
			}
			if !d.OK && d.Err == nil {
				t.Error("failed decode must carry an error")
			}
		})
	}
}

func TestDetectGender(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		reply string
		err   error
		want  types.Gender
	}{
		{"female", `{"gender":"female"}`, nil, types.GenderFemale},
		{"male", `{"gender":"male"}`, nil, types.GenderMale},
		{"malformed", "female, probably", nil, types.GenderMale},
		{"upstream error", "", errors.New("boom"), types.GenderMale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mock.Provider{Responses: []string{tt.reply}, Err: tt.err}
			c, _ := newTestClient(t, p)
			if got := c.DetectGender(context.Background(), "Marie Curie"); got != tt.want {
				t.Errorf("DetectGender = %q, want %q", got, tt.want)
			}
			req := p.Calls()[0].Req
			if req.SystemPrompt != "" || !strings.Contains(req.Messages[0].Content, `"Marie Curie"`) {
				t.Errorf("request = %+v", req)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		reply string
		err   error
		want  Language
	}{
		{"full", `{"code":"hi-IN","name":"Hindi"}`, nil, Language{"hi-IN", "Hindi"}},
		{"missing name", `{"code":"fr-FR"}`, nil, Language{"fr-FR", "English"}},
		{"malformed", "Hindi", nil, DefaultLanguage},
		{"upstream error", "", errors.New("boom"), DefaultLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newTestClient(t, &mock.Provider{Responses: []string{tt.reply}, Err: tt.err})
			if got := c.DetectLanguage(context.Background(), "Mahatma Gandhi"); got != tt.want {
				t.Errorf("DetectLanguage = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToEnglish(t *testing.T) {
	t.Parallel()

	t.Run("english is identity", func(t *testing.T) {
		t.Parallel()
		p := &mock.Provider{}
		c, _ := newTestClient(t, p)
		got, err := c.ToEnglish(context.Background(), "Hello", "en")
		if err != nil || got != "Hello" {
			t.Fatalf("ToEnglish = %q, %v", got, err)
		}
		if len(p.Calls()) != 0 {
			t.Error("english input must not issue a request")
		}
	})

	t.Run("named source", func(t *testing.T) {
		t.Parallel()
		p := &mock.Provider{Responses: []string{"  Hello, friend.  "}}
		c, _ := newTestClient(t, p)
		got, err := c.ToEnglish(context.Background(), "Bonjour, ami.", "fr")
		if err != nil || got != "Hello, friend." {
			t.Fatalf("ToEnglish = %q, %v", got, err)
		}
		if prompt := p.Calls()[0].Req.Messages[0].Content; !strings.Contains(prompt, "Translate the following French text") {
			t.Errorf("prompt = %q", prompt)
		}
	})

	t.Run("auto source", func(t *testing.T) {
		t.Parallel()
		p := &mock.Provider{Responses: []string{"Hi"}}
		c, _ := newTestClient(t, p)
		if _, err := c.ToEnglish(context.Background(), "Hola", persona.LanguageAuto); err != nil {
			t.Fatal(err)
		}
		if prompt := p.Calls()[0].Req.Messages[0].Content; !strings.Contains(prompt, "the source language") {
			t.Errorf("prompt = %q", prompt)
		}
	})
}

func TestWriteDirective(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code, want string
	}{
		{persona.LanguageAuto, "most associated with Confucius"},
		{"", "Write ONLY in English unless the context implies otherwise."},
		{"ja", "Write ONLY in Japanese. All your writing must be in Japanese."},
	}
	for _, tt := range tests {
		if got := WriteDirective("Confucius", tt.code); !strings.Contains(got, tt.want) {
			t.Errorf("WriteDirective(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestSummarise(t *testing.T) {
	t.Parallel()
	msgs := []types.Message{
		{Role: types.RoleUser, Content: "When did you sail?"},
		{Role: types.RoleAssistant, Content: "In 1492."},
	}

	t.Run("parses points and timeline", func(t *testing.T) {
		t.Parallel()
		p := &mock.Provider{Responses: []string{"```json\n{\"points\":[\"Sailed west\"],\"timeline\":[{\"date\":\"1492\",\"event\":\"First voyage\"}]}\n```"}}
		c, _ := newTestClient(t, p)
		s, err := c.Summarise(context.Background(), "Christopher Columbus", msgs, "es")
		if err != nil {
			t.Fatal(err)
		}
		if len(s.Points) != 1 || s.Timeline[0].Date != "1492" {
			t.Errorf("summary = %+v", s)
		}
		prompt := p.Calls()[0].Req.Messages[0].Content
		for _, want := range []string{"user: When did you sail?\nassistant: In 1492.", "Write ONLY in Spanish"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
	})

	t.Run("missing fields are empty", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestClient(t, &mock.Provider{Responses: []string{`{}`}})
		s, err := c.Summarise(context.Background(), "Columbus", msgs, "")
		if err != nil {
			t.Fatal(err)
		}
		if s.Points == nil || s.Timeline == nil {
			t.Error("nil slices in summary")
		}
	})

	t.Run("malformed is an error", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestClient(t, &mock.Provider{Responses: []string{"no json here"}})
		if _, err := c.Summarise(context.Background(), "Columbus", msgs, ""); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty conversation", func(t *testing.T) {
		t.Parallel()
		p := &mock.Provider{}
		c, _ := newTestClient(t, p)
		if _, err := c.Summarise(context.Background(), "Columbus", nil, ""); !errors.Is(err, ErrEmptyConversation) {
			t.Errorf("err = %v", err)
		}
		if len(p.Calls()) != 0 {
			t.Error("empty conversation must not issue a request")
		}
	})
}

func TestRenderSummaryHTML(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

	page, err := RenderSummaryHTML("Ada <Lovelace>", Summary{
		Points:   []string{"Wrote the <first> program"},
		Timeline: []TimelineEntry{{Date: "1843", Event: "Notes published"}},
	}, at)
	if err != nil {
		t.Fatal(err)
	}
	html := string(page)
	for _, want := range []string{
		"<title>Chronos Guru - Ada &lt;Lovelace&gt; Summary</title>",
		"<li>Wrote the &lt;first&gt; program</li>",
		"<td>1843</td><td>Notes published</td>",
		"Saved from Chronos Guru - 2026-03-01 14:30",
		"window.print()",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}

	empty, err := RenderSummaryHTML("Ada", Summary{}, at)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"No key points available.", "No timeline items available."} {
		if !strings.Contains(string(empty), want) {
			t.Errorf("empty page missing %q", want)
		}
	}
}
