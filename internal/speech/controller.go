package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/pkg/provider/translate"
	"github.com/MrWong99/chronos/pkg/provider/tts"
	"github.com/MrWong99/chronos/pkg/types"
)

// Native synthesis settings.
const (
	nativeRate  = 0.9
	nativePitch = 1.0
)

// Utterance is one reply to speak.
type Utterance struct {
	Text string
	// Language is the conversation language code: "en", "fr", "auto" or "".
	Language string
	// Locale is the speaking figure's own locale, used for "auto".
	Locale string
	Gender types.Gender
}

// Option configures a [Controller].
type Option func(*Controller)

// WithTTS sets the hosted voice backend.
func WithTTS(p tts.Provider, name string) Option {
	return func(c *Controller) {
		c.tts = p
		c.ttsName = name
	}
}

// WithTranslator sets the backend used to localise non-English speech.
func WithTranslator(p translate.Provider, name string) Option {
	return func(c *Controller) {
		c.translator = p
		c.translatorName = name
	}
}

// WithDisfluency replaces the default interjection injector.
func WithDisfluency(d *Disfluency) Option {
	return func(c *Controller) { c.disfluency = d }
}

// WithMetrics records on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller speaks replies through a [Player]. A new Speak stops the
// previous one. Safe for concurrent use.
type Controller struct {
	player         Player
	tts            tts.Provider
	ttsName        string
	translator     translate.Provider
	translatorName string
	disfluency     *Disfluency
	metrics        *observe.Metrics

	voices atomic.Pointer[VoiceCatalog]

	mu       sync.Mutex
	cancel   context.CancelFunc
	gen      uint64
	speaking atomic.Bool
}

// NewController returns a controller playing through p with the given voice
// catalog. Without [WithTTS] every utterance is spoken natively.
func NewController(p Player, voices VoiceCatalog, opts ...Option) *Controller {
	c := &Controller{player: p}
	c.voices.Store(&voices)
	for _, o := range opts {
		o(c)
	}
	if c.disfluency == nil {
		c.disfluency = NewDisfluency(nil)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// SetVoices swaps the hosted voice catalog.
func (c *Controller) SetVoices(v VoiceCatalog) {
	c.voices.Store(&v)
}

// Voices returns the current catalog.
func (c *Controller) Voices() VoiceCatalog {
	return *c.voices.Load()
}

// Speaking reports whether an utterance is in progress.
func (c *Controller) Speaking() bool {
	return c.speaking.Load()
}

// Stop halts the current utterance on both channels. It is safe to call at
// any time.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.player.Stop()
	c.speaking.Store(false)
}

// Speak stops any current utterance and speaks u, returning once playback
// finished. It returns [ErrPlaybackStopped] when Stop interrupted it.
func (c *Controller) Speak(ctx context.Context, u Utterance) error {
	c.Stop()

	c.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.speaking.Store(true)
	defer func() {
		cancel()
		c.mu.Lock()
		if c.gen == gen {
			c.cancel = nil
			c.speaking.Store(false)
		}
		c.mu.Unlock()
	}()

	if !persona.IsEnglish(u.Language) {
		locale := u.Locale
		text := u.Text
		if u.Language != persona.LanguageAuto {
			locale = persona.Locale(u.Language)
			text = c.localise(ctx, text, locale)
		}
		if locale == "" {
			locale = persona.Locale("en")
		}
		return c.native(ctx, c.disfluency.Apply(text), locale)
	}

	text := c.disfluency.Apply(u.Text)
	err := c.hosted(ctx, text, u.Gender)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, ErrPlaybackStopped) {
		return ErrPlaybackStopped
	}
	reason := "error"
	if errors.Is(err, tts.ErrNotConfigured) {
		reason = "not_configured"
	}
	c.metrics.RecordSpeechFallback(ctx, reason)
	observe.Logger(ctx).Info("falling back to native speech", "reason", reason, "err", err)
	return c.native(ctx, text, persona.Locale("en"))
}

// localise translates text into locale, returning text unchanged on any
// failure.
func (c *Controller) localise(ctx context.Context, text, locale string) string {
	if c.translator == nil {
		return text
	}
	start := time.Now()
	out, err := c.translator.Translate(ctx, locale, []string{text})
	c.metrics.TranslateDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", c.translatorName)))
	if err != nil {
		if !errors.Is(err, translate.ErrNotConfigured) {
			c.metrics.RecordProviderError(ctx, c.translatorName, "translate")
		}
		observe.Logger(ctx).Warn("speech translation failed, speaking original text", "locale", locale, "err", err)
		return text
	}
	c.metrics.RecordProviderRequest(ctx, c.translatorName, "translate", "ok")
	if len(out) == 0 || strings.TrimSpace(out[0]) == "" {
		return text
	}
	return out[0]
}

func (c *Controller) hosted(ctx context.Context, text string, g types.Gender) error {
	if c.tts == nil {
		return tts.ErrNotConfigured
	}
	voice := c.Voices().VoiceFor(g)
	start := time.Now()
	audio, err := c.tts.Synthesize(ctx, text, voice)
	c.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", c.ttsName)))
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}
	if audio == nil || len(audio.Data) == 0 {
		return errors.New("speech: synthesize: empty audio")
	}
	if err := c.player.PlayAudio(ctx, audio); err != nil {
		return fmt.Errorf("speech: play audio: %w", err)
	}
	return nil
}

func (c *Controller) native(ctx context.Context, text, locale string) error {
	u := NativeUtterance{Text: text, Lang: locale, Rate: nativeRate, Pitch: nativePitch}
	if v, ok := SelectNativeVoice(c.player.NativeVoices(), locale); ok {
		u.Voice = v.Name
		if v.Lang != "" {
			u.Lang = v.Lang
		}
	}
	err := c.player.SpeakNative(ctx, u)
	if err != nil && (ctx.Err() != nil || errors.Is(err, ErrPlaybackStopped)) {
		return ErrPlaybackStopped
	}
	return err
}
