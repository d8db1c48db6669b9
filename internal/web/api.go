package web

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/internal/quiz"
	"github.com/MrWong99/chronos/pkg/provider/translate"
	"github.com/MrWong99/chronos/pkg/provider/tts"
	"github.com/MrWong99/chronos/pkg/types"
)

// wireMessage is a transcript entry as the browser sends it.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Speaker string `json:"speaker,omitempty"`
}

func toHistory(msgs []wireMessage) []types.Message {
	out := make([]types.Message, len(msgs))
	for i, m := range msgs {
		out[i] = types.Message{Role: m.Role, Content: m.Content, Name: m.Speaker}
	}
	return out
}

type chatRequest struct {
	Figure          string        `json:"figure"`
	Messages        []wireMessage `json:"messages"`
	Language        string        `json:"language"`
	MultiFigureMode bool          `json:"multiFigureMode"`
	AllFigures      []string      `json:"allFigures"`
	RespondingTo    string        `json:"respondingTo"`
	DebateContext   string        `json:"debateContext"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Figure) == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "missing figure or messages")
		return
	}
	pr := persona.Request{Figure: req.Figure, Language: req.Language}
	if req.MultiFigureMode {
		pr.Debate = &persona.DebateParams{
			AllFigures:   req.AllFigures,
			RespondingTo: req.RespondingTo,
			Context:      req.DebateContext,
		}
	}
	text, err := s.cfg.Completion.Respond(r.Context(), pr, toHistory(req.Messages))
	if err != nil {
		writeError(w, modelStatus(err), "failed to generate response")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: text})
}

type figureRequest struct {
	Figure string `json:"figure"`
}

func (s *Server) readFigure(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req figureRequest
	if !decode(w, r, &req) {
		return "", false
	}
	figure := strings.TrimSpace(req.Figure)
	if figure == "" {
		writeError(w, http.StatusBadRequest, "missing figure")
		return "", false
	}
	return figure, true
}

func (s *Server) handleFigureGender(w http.ResponseWriter, r *http.Request) {
	figure, ok := s.readFigure(w, r)
	if !ok {
		return
	}
	g := s.cfg.Completion.DetectGender(r.Context(), figure)
	writeJSON(w, http.StatusOK, map[string]string{"gender": string(g)})
}

func (s *Server) handleFigureLanguage(w http.ResponseWriter, r *http.Request) {
	figure, ok := s.readFigure(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Completion.DetectLanguage(r.Context(), figure))
}

type conversationRequest struct {
	Figure   string        `json:"figure"`
	Messages []wireMessage `json:"messages"`
	Language string        `json:"language"`
}

func (s *Server) readConversation(w http.ResponseWriter, r *http.Request) (conversationRequest, bool) {
	var req conversationRequest
	if !decode(w, r, &req) {
		return req, false
	}
	if strings.TrimSpace(req.Figure) == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "missing required parameters")
		return req, false
	}
	return req, true
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readConversation(w, r)
	if !ok {
		return
	}
	qs, err := quiz.Generate(r.Context(), s.cfg.Completion, req.Figure, toHistory(req.Messages))
	if err != nil {
		writeError(w, modelStatus(err), "failed to generate quiz")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]quiz.Question{"questions": qs})
}

func (s *Server) summarise(w http.ResponseWriter, r *http.Request) (string, completion.Summary, bool) {
	req, ok := s.readConversation(w, r)
	if !ok {
		return "", completion.Summary{}, false
	}
	sum, err := s.cfg.Completion.Summarise(r.Context(), req.Figure, toHistory(req.Messages), req.Language)
	if err != nil {
		writeError(w, modelStatus(err), "failed to generate summary")
		return "", completion.Summary{}, false
	}
	return req.Figure, sum, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if _, sum, ok := s.summarise(w, r); ok {
		writeJSON(w, http.StatusOK, sum)
	}
}

func (s *Server) handleSummaryExport(w http.ResponseWriter, r *http.Request) {
	figure, sum, ok := s.summarise(w, r)
	if !ok {
		return
	}
	writeSummaryPage(w, r, figure, sum, time.Now())
}

func writeSummaryPage(w http.ResponseWriter, r *http.Request, figure string, sum completion.Summary, at time.Time) {
	page, err := completion.RenderSummaryHTML(figure, sum, at)
	if err != nil {
		observe.Logger(r.Context()).Error("render summary page", "figure", figure, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to render summary")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

type reflectionRequest struct {
	Figure   string             `json:"figure"`
	Score    int                `json:"score"`
	Total    int                `json:"total"`
	Wrong    []quiz.WrongAnswer `json:"wrong"`
	Language string             `json:"language"`
}

func (s *Server) handleReflection(w http.ResponseWriter, r *http.Request) {
	var req reflectionRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Figure) == "" || req.Total <= 0 {
		writeError(w, http.StatusBadRequest, "missing required parameters")
		return
	}
	res := quiz.Result{Score: req.Score, Total: req.Total, Wrong: req.Wrong, Badges: quiz.Badges(req.Score)}
	text, err := quiz.Reflect(r.Context(), s.cfg.Completion, req.Figure, res, req.Language)
	if err != nil {
		writeError(w, modelStatus(err), "failed to generate reflection")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: text})
}

type translateRequest struct {
	TargetLanguage string   `json:"targetLanguage"`
	Texts          []string `json:"texts"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TargetLanguage == "" || len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "missing targetLanguage or texts")
		return
	}
	if s.cfg.Translator == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "translation service not configured", FallbackToBrowser: true})
		return
	}
	out, err := s.cfg.Translator.Translate(r.Context(), req.TargetLanguage, req.Texts)
	switch {
	case errors.Is(err, translate.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "translation service not configured", FallbackToBrowser: true})
	case err != nil:
		observe.Logger(r.Context()).Warn("translation failed", "target", req.TargetLanguage, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "translation failed", FallbackToBrowser: true})
	default:
		writeJSON(w, http.StatusOK, map[string][]string{"translations": out})
	}
}

type toEnglishRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
}

func (s *Server) handleTranslateToEnglish(w http.ResponseWriter, r *http.Request) {
	var req toEnglishRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Text == "" || req.SourceLanguage == "" {
		writeError(w, http.StatusBadRequest, "missing required fields: text, sourceLanguage")
		return
	}
	out, err := s.cfg.Completion.ToEnglish(r.Context(), req.Text, req.SourceLanguage)
	if err != nil {
		writeError(w, modelStatus(err), "failed to translate text")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translation": out})
}

type ttsRequest struct {
	Text   string `json:"text"`
	Gender string `json:"gender"`
}

type ttsResponse struct {
	AudioData string `json:"audioData"`
	MIMEType  string `json:"mimeType"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "missing text")
		return
	}
	if s.cfg.TTS == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "TTS service not configured", FallbackToBrowser: true})
		return
	}
	voice := s.voices.Load().VoiceFor(types.ParseGender(req.Gender))
	audio, err := s.cfg.TTS.Synthesize(r.Context(), req.Text, voice)
	switch {
	case errors.Is(err, tts.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "TTS service not configured", FallbackToBrowser: true})
	case err != nil || audio == nil || len(audio.Data) == 0:
		observe.Logger(r.Context()).Warn("tts generation failed", "provider", s.cfg.TTSName, "voice", voice.ID, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "TTS generation failed", FallbackToBrowser: true})
	default:
		mime := audio.MIMEType
		if mime == "" {
			mime = "audio/mpeg"
		}
		writeJSON(w, http.StatusOK, ttsResponse{AudioData: base64.StdEncoding.EncodeToString(audio.Data), MIMEType: mime})
	}
}

func (s *Server) handlePortrait(w http.ResponseWriter, r *http.Request) {
	figure, ok := s.readFigure(w, r)
	if !ok {
		return
	}
	if s.cfg.Portraits == nil {
		writeJSON(w, http.StatusOK, map[string]any{"url": nil, "name": figure})
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Portraits.Lookup(r.Context(), figure))
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Progress == nil {
		writeError(w, http.StatusServiceUnavailable, "progress store not configured")
		return
	}
	p, err := s.cfg.Progress.Get(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("load progress", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Progress == nil {
		writeError(w, http.StatusServiceUnavailable, "progress store not configured")
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "reset requires confirm=true")
		return
	}
	if err := s.cfg.Progress.Reset(r.Context()); err != nil {
		observe.Logger(r.Context()).Error("reset progress", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to reset progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
