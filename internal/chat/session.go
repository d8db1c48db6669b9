// Package chat holds the state of one learner's conversation: the figures,
// the transcript, the chosen language, the running quiz and the speech
// channel. A [Session] wires the debate orchestrator, the speech controller,
// the quiz engine and the progress store together; a [Manager] keeps the
// live sessions of a server.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/internal/debate"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/internal/progress"
	"github.com/MrWong99/chronos/internal/quiz"
	"github.com/MrWong99/chronos/internal/speech"
	"github.com/MrWong99/chronos/pkg/provider/translate"
	"github.com/MrWong99/chronos/pkg/provider/tts"
	"github.com/MrWong99/chronos/pkg/types"
)

var (
	// ErrUnknownLanguage is returned for a language code outside the
	// supported table.
	ErrUnknownLanguage = errors.New("chat: unknown language")

	// ErrNoMessage is returned for a message index outside the transcript.
	ErrNoMessage = errors.New("chat: no such message")

	// ErrNoQuiz is returned when no quiz attempt is running.
	ErrNoQuiz = errors.New("chat: no quiz in progress")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("chat: session closed")
)

// Deps are the shared services a [Session] is built from.
type Deps struct {
	Completion *completion.Client
	Progress   *progress.Store

	TTS     tts.Provider
	TTSName string

	Translator     translate.Provider
	TranslatorName string

	Voices    speech.VoiceCatalog
	TurnDelay time.Duration
	Metrics   *observe.Metrics

	// DebateOptions and SpeechOptions are applied after the defaults.
	DebateOptions []debate.Option
	SpeechOptions []speech.Option

	// Now defaults to time.Now.
	Now func() time.Time
}

// figureProfile is what the model inferred about a figure.
type figureProfile struct {
	gender   types.Gender
	language completion.Language
}

// QuizOutcome is the result of finishing a quiz.
type QuizOutcome struct {
	Result     quiz.Result       `json:"result"`
	Reflection string            `json:"reflection"`
	Progress   progress.Progress `json:"progress"`
}

// Session is one conversation. All methods are safe for concurrent use;
// Say, ReadAloud and the quiz calls block for the duration of their model
// requests and playback.
type Session struct {
	id         string
	figures    *persona.FigureSet
	transcript *debate.Transcript
	orch       *debate.Orchestrator
	speech     *speech.Controller
	player     *playerSlot
	client     *completion.Client
	progress   *progress.Store
	metrics    *observe.Metrics
	now        func() time.Time

	mu       sync.RWMutex
	language string
	profiles map[string]figureProfile
	attempt  *quiz.Attempt
	sink     func(Event)
	closed   bool
}

// NewSession starts a conversation with figure in language. The figure's
// gender and primary language are inferred before it returns.
func NewSession(ctx context.Context, id, figure, language string, d Deps) (*Session, error) {
	if err := validLanguage(language); err != nil {
		return nil, err
	}
	figures, err := persona.NewFigureSet(figure)
	if err != nil {
		return nil, err
	}
	if d.Completion == nil {
		d.Completion = completion.New(nil)
	}
	if d.Progress == nil {
		d.Progress = progress.NewStore(progress.NewMemoryBackend(), config.DefaultProgressKey)
	}
	if d.Metrics == nil {
		d.Metrics = observe.DefaultMetrics()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	s := &Session{
		id:       id,
		figures:  figures,
		player:   &playerSlot{},
		client:   d.Completion,
		progress: d.Progress,
		metrics:  d.Metrics,
		now:      d.Now,
		language: language,
		profiles: make(map[string]figureProfile),
	}
	primary := figures.Primary()
	s.transcript = debate.NewTranscript(greeting(primary))
	s.transcript.OnAppend(func(i int, m debate.Message) {
		s.emit(Event{Type: EventMessage, Data: MessageEvent{Index: i, Message: m}})
	})

	sopts := []speech.Option{
		speech.WithTTS(d.TTS, d.TTSName),
		speech.WithTranslator(d.Translator, d.TranslatorName),
		speech.WithMetrics(d.Metrics),
	}
	s.speech = speech.NewController(s.player, d.Voices, append(sopts, d.SpeechOptions...)...)

	dopts := []debate.Option{
		debate.WithLanguage(s.Language),
		debate.WithMetrics(d.Metrics),
	}
	if d.TurnDelay > 0 {
		dopts = append(dopts, debate.WithTurnDelay(d.TurnDelay))
	}
	s.orch = debate.New(figures, s.transcript, s.client, s, append(dopts, d.DebateOptions...)...)

	s.profiles[primary] = s.inferProfile(ctx, primary)
	return s, nil
}

func greeting(figure string) debate.Message {
	return debate.Message{Role: types.RoleAssistant, Content: persona.Greeting(figure), Speaker: figure}
}

func validLanguage(code string) error {
	if code == "" || code == persona.LanguageAuto || slices.Contains(persona.Codes(), code) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
}

// inferProfile asks the model for figure's gender and primary language in
// parallel. Both lookups fall back to defaults on their own.
func (s *Session) inferProfile(ctx context.Context, figure string) figureProfile {
	var p figureProfile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.gender = s.client.DetectGender(gctx, figure)
		return nil
	})
	g.Go(func() error {
		p.language = s.client.DetectLanguage(gctx, figure)
		return nil
	})
	_ = g.Wait()
	return p
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Subscribe sets the function receiving change events, replacing any
// previous subscriber. fn must not block. Pass nil to unsubscribe.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.sink = fn
	s.mu.Unlock()
}

func (s *Session) emit(e Event) {
	s.mu.RLock()
	fn := s.sink
	s.mu.RUnlock()
	if fn != nil {
		fn(e)
	}
}

// Attach routes speech to p. The previously attached player is stopped.
func (s *Session) Attach(p speech.Player) {
	if prev := s.player.swap(p); prev != nil && prev != p {
		prev.Stop()
	}
}

// Detach disconnects p if it is still attached. Pending playback on p is
// stopped.
func (s *Session) Detach(p speech.Player) {
	if s.player.clear(p) {
		s.speech.Stop()
		p.Stop()
	}
}

// Language returns the conversation language code.
func (s *Session) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage changes the conversation language for later replies.
func (s *Session) SetLanguage(code string) error {
	if err := validLanguage(code); err != nil {
		return err
	}
	s.mu.Lock()
	s.language = code
	s.mu.Unlock()
	s.emit(Event{Type: EventLanguage, Data: code})
	return nil
}

// Figures returns the active figures in join order.
func (s *Session) Figures() []FigureInfo {
	names := s.figures.Names()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FigureInfo, len(names))
	for i, n := range names {
		p := s.profiles[n]
		out[i] = FigureInfo{
			Name:         n,
			Gender:       string(p.gender),
			LanguageCode: p.language.Code,
			LanguageName: p.language.Name,
		}
	}
	return out
}

func (s *Session) profile(figure string) figureProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[figure]; ok {
		return p
	}
	return s.profiles[s.figures.Primary()]
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Busy reports whether a turn is running.
func (s *Session) Busy() bool {
	st, _ := s.orch.State()
	return st != debate.Idle
}

// Snapshot returns the full session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	a := s.attempt
	lang := s.language
	s.mu.RUnlock()
	return Snapshot{
		ID:       s.id,
		Figures:  s.Figures(),
		Language: lang,
		Messages: s.transcript.Messages(),
		Busy:     s.Busy(),
		Speaking: s.speech.Speaking(),
		Quiz:     viewOf(a),
	}
}

// Say runs one user turn. It returns [debate.ErrBusy] while another turn
// runs and nil once the turn ended, even if it ended with an apology.
func (s *Session) Say(ctx context.Context, text string) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.orch.HandleUserMessage(ctx, text)
}

// Speak voices text as figure and returns once playback ended. It
// implements [debate.Speaker].
func (s *Session) Speak(ctx context.Context, figure, text string) error {
	p := s.profile(figure)
	return s.speech.Speak(ctx, speech.Utterance{
		Text:     text,
		Language: s.Language(),
		Locale:   p.language.Code,
		Gender:   p.gender,
	})
}

// AddFigure brings name into the conversation. The newcomer greets the
// primary figure and a system notice announces debate mode.
func (s *Session) AddFigure(ctx context.Context, name string) error {
	if s.isClosed() {
		return ErrClosed
	}
	name = strings.TrimSpace(name)
	like, resembles := s.figures.Resembles(name)
	if err := s.figures.Add(name); err != nil {
		return err
	}
	if resembles {
		observe.Logger(ctx).Info("new figure resembles one already present", "session", s.id, "figure", name, "existing", like)
	}
	p := s.inferProfile(ctx, name)
	s.mu.Lock()
	s.profiles[name] = p
	s.mu.Unlock()

	host := s.figures.Primary()
	s.transcript.Append(debate.Message{Role: types.RoleAssistant, Content: persona.JoinGreeting(name, host), Speaker: name})
	s.transcript.Append(debate.Message{Role: types.RoleAssistant, Content: persona.DebateAnnouncement(host, name), Speaker: persona.SystemSpeaker})
	s.emit(Event{Type: EventFigures, Data: s.Figures()})
	observe.Logger(ctx).Info("figure joined", "session", s.id, "figure", name, "gender", p.gender, "language", p.language.Code)
	return nil
}

// StopAudio silences any ongoing playback.
func (s *Session) StopAudio() {
	s.speech.Stop()
}

// ReadAloud speaks message i again with its speaker's voice. User and
// system messages use the primary figure's voice.
func (s *Session) ReadAloud(ctx context.Context, i int) error {
	m, ok := s.transcript.At(i)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoMessage, i)
	}
	figure := m.Speaker
	if !s.figures.Contains(figure) {
		figure = s.figures.Primary()
	}
	return s.Speak(ctx, figure, m.Content)
}

// TranslateMessage returns the English rendering of message i, translating
// and storing it on first use. English conversations need no request.
func (s *Session) TranslateMessage(ctx context.Context, i int) (string, error) {
	m, ok := s.transcript.At(i)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrNoMessage, i)
	}
	if m.EnglishTranslation != "" {
		return m.EnglishTranslation, nil
	}
	text, err := s.client.ToEnglish(ctx, m.Content, s.Language())
	if err != nil {
		return "", fmt.Errorf("chat: translate message %d: %w", i, err)
	}
	if err := s.transcript.SetTranslation(i, text); err != nil {
		return "", err
	}
	s.emit(Event{Type: EventTranslation, Data: TranslationEvent{Index: i, Text: text}})
	return text, nil
}

// Clear starts the transcript over with the primary figure's greeting. The
// figures and the language are kept. It fails with [debate.ErrBusy] while a
// turn runs.
func (s *Session) Clear() error {
	if s.Busy() {
		return debate.ErrBusy
	}
	s.speech.Stop()
	s.transcript.Reset(greeting(s.figures.Primary()))
	s.emit(Event{Type: EventCleared, Data: s.Snapshot()})
	return nil
}

// StartQuiz generates a quiz about the primary figure from the conversation
// so far. A running attempt is replaced.
func (s *Session) StartQuiz(ctx context.Context) (*QuizView, error) {
	figure := s.figures.Primary()
	qs, err := quiz.Generate(ctx, s.client, figure, s.transcript.History())
	if err != nil {
		return nil, fmt.Errorf("chat: start quiz: %w", err)
	}
	a := quiz.NewAttempt(figure, qs)
	s.mu.Lock()
	s.attempt = a
	s.mu.Unlock()
	v := viewOf(a)
	s.emit(Event{Type: EventQuiz, Data: v})
	return v, nil
}

func (s *Session) currentAttempt() (*quiz.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.attempt == nil {
		return nil, ErrNoQuiz
	}
	return s.attempt, nil
}

// AnswerQuiz selects option for question q of the running attempt.
func (s *Session) AnswerQuiz(q, option int) error {
	a, err := s.currentAttempt()
	if err != nil {
		return err
	}
	return a.Select(q, option)
}

// FinishQuiz scores the attempt, appends the figure's reflection on it to
// the transcript and merges the result into the learner's progress. When
// the reflection request fails a fixed text is used instead. The returned
// outcome is valid even when saving progress failed.
func (s *Session) FinishQuiz(ctx context.Context) (QuizOutcome, error) {
	a, err := s.currentAttempt()
	if err != nil {
		return QuizOutcome{}, err
	}
	r, err := a.Finish()
	if err != nil {
		return QuizOutcome{}, err
	}
	s.emit(Event{Type: EventQuiz, Data: viewOf(a)})
	figure := a.Figure()

	text, err := quiz.Reflect(ctx, s.client, figure, r, s.Language())
	if err != nil {
		observe.Logger(ctx).Warn("quiz reflection failed, using fallback text", "session", s.id, "err", err)
		text = quiz.FallbackReflection(figure, r)
	}
	s.transcript.Append(debate.Message{Role: types.RoleAssistant, Content: text, Speaker: figure})
	s.metrics.RecordQuizCompletion(ctx, r.Score)

	out := QuizOutcome{Result: r, Reflection: text}
	p, err := s.progress.RecordQuiz(ctx, figure, r)
	if err != nil {
		out.Progress, _ = s.progress.Get(ctx)
		return out, fmt.Errorf("chat: record progress: %w", err)
	}
	out.Progress = p
	return out, nil
}

// ResetQuiz discards the current attempt.
func (s *Session) ResetQuiz() {
	s.mu.Lock()
	a := s.attempt
	s.attempt = nil
	s.mu.Unlock()
	if a != nil {
		a.Reset()
	}
	s.emit(Event{Type: EventQuiz})
}

// Summary condenses the conversation into key points and a timeline,
// written in the conversation language.
func (s *Session) Summary(ctx context.Context) (completion.Summary, error) {
	return s.client.Summarise(ctx, s.figures.Primary(), s.transcript.History(), s.Language())
}

// SummaryHTML renders [Session.Summary] as a printable page.
func (s *Session) SummaryHTML(ctx context.Context) ([]byte, error) {
	sum, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return completion.RenderSummaryHTML(s.figures.Primary(), sum, s.now())
}

// Progress returns the learner's accumulated progress.
func (s *Session) Progress(ctx context.Context) (progress.Progress, error) {
	return s.progress.Get(ctx)
}

// Close stops playback and detaches the listener. Later calls to Say and
// AddFigure fail with [ErrClosed].
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.sink = nil
	s.mu.Unlock()
	s.speech.Stop()
	if p := s.player.swap(nil); p != nil {
		p.Stop()
	}
}
