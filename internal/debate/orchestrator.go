// Package debate runs the turns of a conversation with one or more
// historical figures.
//
// With a single figure a turn is one reply. With several, a randomly chosen
// figure answers first and every other figure follows in order, each seeing
// the original question and all replies given so far in the turn. Requests
// are strictly sequential and each reply is spoken to completion before the
// next request is made, so the transcript and the audio stay in lockstep.
package debate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/pkg/types"
)

// Apology is appended, tagged to the primary figure, when a turn cannot be
// completed.
const Apology = "I apologize, but I cannot continue this conversation at the moment."

// ErrBusy is returned when a turn is already in progress.
var ErrBusy = errors.New("debate: a turn is already in progress")

// ErrEmptyMessage is returned for a blank user message.
var ErrEmptyMessage = errors.New("debate: message is empty")

// Responder produces a figure's reply. [*completion.Client] satisfies it.
type Responder interface {
	Respond(ctx context.Context, req persona.Request, history []types.Message) (string, error)
}

// Speaker voices a figure's reply and blocks until playback completed.
type Speaker interface {
	Speak(ctx context.Context, figure, text string) error
}

// State is the orchestrator's position within a turn.
type State int

const (
	// Idle means no turn is running.
	Idle State = iota
	// AwaitingFirstSpeaker means the first reply of a turn is pending.
	AwaitingFirstSpeaker
	// AwaitingNextSpeaker means a follow-up reply is pending; see
	// [Orchestrator.State] for which one.
	AwaitingNextSpeaker
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFirstSpeaker:
		return "awaiting_first_speaker"
	case AwaitingNextSpeaker:
		return "awaiting_next_speaker"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Chooser returns an index in [0, n).
type Chooser func(n int) int

// WaitFunc pauses for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default [WaitFunc].
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithChooser replaces the uniform random choice of the first speaker.
func WithChooser(c Chooser) Option {
	return func(o *Orchestrator) { o.choose = c }
}

// WithWait replaces the pause between debate speakers.
func WithWait(w WaitFunc) Option {
	return func(o *Orchestrator) { o.wait = w }
}

// WithTurnDelay sets the pause between debate speakers. Default 800ms.
func WithTurnDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.delay = d }
}

// WithLanguage sets the function reporting the current conversation
// language code.
func WithLanguage(fn func() string) Option {
	return func(o *Orchestrator) { o.language = fn }
}

// WithMetrics records on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator runs user turns. At most one turn runs at a time.
type Orchestrator struct {
	figures    *persona.FigureSet
	transcript *Transcript
	responder  Responder
	speaker    Speaker

	choose   Chooser
	wait     WaitFunc
	delay    time.Duration
	language func() string
	metrics  *observe.Metrics

	mu    sync.Mutex
	state State
	next  int
}

// New returns an orchestrator over the given figures and transcript.
func New(figures *persona.FigureSet, t *Transcript, r Responder, s Speaker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		figures:    figures,
		transcript: t,
		responder:  r,
		speaker:    s,
		choose:     rand.IntN,
		wait:       Sleep,
		delay:      config.DefaultTurnDelay,
		language:   func() string { return "" },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// SetTurnDelay changes the pause between debate speakers for later turns.
func (o *Orchestrator) SetTurnDelay(d time.Duration) {
	o.mu.Lock()
	o.delay = d
	o.mu.Unlock()
}

// State returns the current state and, for [AwaitingNextSpeaker], the
// position of the pending speaker in the turn (1 for the second speaker).
func (o *Orchestrator) State() (State, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.next
}

func (o *Orchestrator) setState(s State, next int) {
	o.mu.Lock()
	o.state = s
	o.next = next
	o.mu.Unlock()
}

// turnAborted carries a failed request out of a turn.
type turnAborted struct {
	figure string
	err    error
}

func (e *turnAborted) Error() string { return fmt.Sprintf("debate: reply from %s: %v", e.figure, e.err) }
func (e *turnAborted) Unwrap() error { return e.err }

// HandleUserMessage appends text as the user's message and runs the turn.
// A failed request ends the turn with a single [Apology] from the primary
// figure; replies already appended stay. It returns [ErrBusy] if a turn is
// running and nil once the turn is over, apology or not.
func (o *Orchestrator) HandleUserMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.state != Idle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = AwaitingFirstSpeaker
	o.next = 0
	delay := o.delay
	o.mu.Unlock()
	defer o.setState(Idle, 0)

	before := o.transcript.History()
	o.transcript.Append(Message{Role: types.RoleUser, Content: text})

	figures := o.figures.Names()
	var err error
	if len(figures) == 1 {
		err = o.single(ctx, figures[0])
	} else {
		err = o.debate(ctx, text, figures, before, delay)
	}

	if err != nil {
		primary := o.figures.Primary()
		observe.Logger(ctx).Warn("turn aborted", "figure", primary, "err", err)
		o.transcript.Append(Message{Role: types.RoleAssistant, Content: Apology, Speaker: primary})
		o.metrics.RecordDebateTurn(ctx, "aborted")
		return nil
	}
	o.metrics.RecordDebateTurn(ctx, "ok")
	return nil
}

func (o *Orchestrator) single(ctx context.Context, figure string) error {
	req := persona.Request{Figure: figure, Language: o.language()}
	_, err := o.reply(ctx, req, o.transcript.History())
	return err
}

func (o *Orchestrator) debate(ctx context.Context, question string, figures []string, before []types.Message, delay time.Duration) error {
	lang := o.language()
	first := figures[o.choose(len(figures))]

	text, err := o.reply(ctx, persona.Request{
		Figure:   first,
		Language: lang,
		Debate:   &persona.DebateParams{AllFigures: figures},
	}, o.transcript.History())
	if err != nil {
		return err
	}

	var prior []statement
	var previous string
	if text != "" {
		prior = append(prior, statement{figure: first, text: text})
		previous = first
	}

	pos := 0
	for _, fig := range figures {
		if fig == first {
			continue
		}
		pos++
		o.setState(AwaitingNextSpeaker, pos)

		if err := o.wait(ctx, delay); err != nil {
			return &turnAborted{figure: fig, err: err}
		}

		history := append(append([]types.Message(nil), before...), types.Message{
			Role:    types.RoleUser,
			Content: compositePrompt(question, prior),
		})
		text, err := o.reply(ctx, persona.Request{
			Figure:   fig,
			Language: lang,
			Debate:   &persona.DebateParams{AllFigures: figures, RespondingTo: previous},
		}, history)
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		prior = append(prior, statement{figure: fig, text: text})
		previous = fig
	}
	return nil
}

// reply requests, appends and speaks one figure's reply. Empty replies are
// skipped and returned as "".
func (o *Orchestrator) reply(ctx context.Context, req persona.Request, history []types.Message) (string, error) {
	text, err := o.responder.Respond(ctx, req, history)
	if err != nil {
		return "", &turnAborted{figure: req.Figure, err: err}
	}
	if strings.TrimSpace(text) == "" {
		observe.Logger(ctx).Warn("empty reply skipped", "figure", req.Figure)
		return "", nil
	}

	o.transcript.Append(Message{Role: types.RoleAssistant, Content: text, Speaker: req.Figure})
	o.metrics.RecordFigureReply(ctx, req.Figure)

	if err := o.speaker.Speak(ctx, req.Figure, text); err != nil {
		observe.Logger(ctx).Info("speech ended early", "figure", req.Figure, "err", err)
	}
	return text, nil
}

type statement struct {
	figure string
	text   string
}

// compositePrompt quotes the question and every reply given so far in the
// turn.
func compositePrompt(question string, prior []statement) string {
	said := make([]string, len(prior))
	for i, s := range prior {
		said[i] = fmt.Sprintf("%s said: \"%s\"", s.figure, s.text)
	}
	return fmt.Sprintf("Original question: \"%s\"\n\nOther perspectives in this debate:\n%s\n\nNow respond to the question, and you may also address or reference what the others said.",
		question, strings.Join(said, "\n\n"))
}
