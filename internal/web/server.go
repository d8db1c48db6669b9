// Package web exposes chronos over HTTP.
//
// Two surfaces are served. The stateless JSON API under /api mirrors one
// model or voice call per request and leaves all state to the caller. The
// session API keeps a [chat.Session] on the server and drives a browser
// player over a websocket:
//
//	POST   /api/sessions                   create a session
//	GET    /api/sessions/{id}              session snapshot
//	DELETE /api/sessions/{id}              end a session
//	GET    /api/sessions/{id}/summary.html printable summary
//	GET    /api/sessions/{id}/ws           event and command channel
//
// Health probes, Prometheus metrics and an optional static front-end are
// mounted next to them.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/chronos/internal/chat"
	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/internal/health"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/portrait"
	"github.com/MrWong99/chronos/internal/progress"
	"github.com/MrWong99/chronos/internal/speech"
	"github.com/MrWong99/chronos/pkg/provider/translate"
	"github.com/MrWong99/chronos/pkg/provider/tts"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Config holds the dependencies of a [Server].
type Config struct {
	Sessions   *chat.Manager
	Completion *completion.Client
	Progress   *progress.Store

	// TTS and Translator may be nil; the matching endpoints then answer
	// 503 with fallbackToBrowser set.
	TTS        tts.Provider
	TTSName    string
	Translator translate.Provider

	Voices speech.VoiceCatalog

	// Portraits may be nil to disable the lookup.
	Portraits *portrait.Client

	Health  *health.Handler
	Metrics *observe.Metrics

	// StaticDir, when set, is served at /.
	StaticDir string

	// OriginPatterns are the extra origins allowed to open a websocket.
	OriginPatterns []string
}

// Server routes HTTP requests. Create it with [New].
type Server struct {
	cfg    Config
	voices atomic.Pointer[speech.VoiceCatalog]
}

// New returns a server for cfg.
func New(cfg Config) *Server {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Completion == nil {
		cfg.Completion = completion.New(nil)
	}
	if cfg.Health == nil {
		cfg.Health = health.New()
	}
	s := &Server{cfg: cfg}
	s.voices.Store(&cfg.Voices)
	return s
}

// SetVoices swaps the hosted voice catalog of the /api/tts endpoint and of
// every session.
func (s *Server) SetVoices(v speech.VoiceCatalog) {
	s.voices.Store(&v)
	if s.cfg.Sessions != nil {
		s.cfg.Sessions.SetVoices(v)
	}
}

// Handler returns the root handler wrapped in the observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/figure-gender", s.handleFigureGender)
	mux.HandleFunc("POST /api/figure-language", s.handleFigureLanguage)
	mux.HandleFunc("POST /api/quiz", s.handleQuiz)
	mux.HandleFunc("POST /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/summary/export", s.handleSummaryExport)
	mux.HandleFunc("POST /api/reflection", s.handleReflection)
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("POST /api/translate-to-english", s.handleTranslateToEnglish)
	mux.HandleFunc("POST /api/tts", s.handleTTS)
	mux.HandleFunc("POST /api/portrait", s.handlePortrait)
	mux.HandleFunc("GET /api/progress", s.handleGetProgress)
	mux.HandleFunc("DELETE /api/progress", s.handleResetProgress)

	if s.cfg.Sessions != nil {
		mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
		mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
		mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
		mux.HandleFunc("GET /api/sessions/{id}/summary.html", s.handleSessionSummary)
		mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleSessionWS)
	}

	s.cfg.Health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	return observe.Middleware(s.cfg.Metrics)(mux)
}

type errorBody struct {
	Error             string `json:"error"`
	FallbackToBrowser bool   `json:"fallbackToBrowser,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// modelStatus maps a completion error to a response status.
func modelStatus(err error) int {
	if errors.Is(err, completion.ErrNotConfigured) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
