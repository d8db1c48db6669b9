package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/internal/observe"
	translatemock "github.com/MrWong99/chronos/pkg/provider/translate/mock"
	"github.com/MrWong99/chronos/pkg/provider/tts"
	ttsmock "github.com/MrWong99/chronos/pkg/provider/tts/mock"
	"github.com/MrWong99/chronos/pkg/types"
)

// fakePlayer records playback. When block is set, play calls wait until
// Stop or context cancellation.
type fakePlayer struct {
	mu       sync.Mutex
	voices   []NativeVoice
	audio    []*tts.Audio
	native   []NativeUtterance
	stops    int
	audioErr error
	block    bool
	started  chan struct{}
	playing  chan struct{}
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{started: make(chan struct{}, 8)}
}

func (p *fakePlayer) wait(ctx context.Context) error {
	if !p.block {
		p.started <- struct{}{}
		return nil
	}
	stopped := make(chan struct{})
	p.mu.Lock()
	p.playing = stopped
	p.mu.Unlock()
	p.started <- struct{}{}
	select {
	case <-stopped:
		return ErrPlaybackStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakePlayer) PlayAudio(ctx context.Context, a *tts.Audio) error {
	p.mu.Lock()
	p.audio = append(p.audio, a)
	err := p.audioErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return p.wait(ctx)
}

func (p *fakePlayer) SpeakNative(ctx context.Context, u NativeUtterance) error {
	p.mu.Lock()
	p.native = append(p.native, u)
	p.mu.Unlock()
	return p.wait(ctx)
}

func (p *fakePlayer) NativeVoices() []NativeVoice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voices
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if p.playing != nil {
		close(p.playing)
		p.playing = nil
	}
}

func (p *fakePlayer) counts() (audio, native int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.audio), len(p.native)
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// never returns a roll that never triggers an interjection.
func never() float64 { return 0.99 }

func testCatalog() VoiceCatalog {
	return CatalogFromConfig(config.VoicesConfig{
		Male:   []string{"en-US-ken", "en-US-marcus"},
		Female: []string{"en-US-natalie", "en-US-aria"},
	})
}

func TestVoiceFor(t *testing.T) {
	t.Parallel()
	c := testCatalog()
	if got := c.VoiceFor(types.GenderMale).ID; got != "en-US-ken" {
		t.Errorf("male voice = %q", got)
	}
	if got := c.VoiceFor(types.GenderFemale).ID; got != "en-US-natalie" {
		t.Errorf("female voice = %q", got)
	}
	if got := (VoiceCatalog{}).VoiceFor(types.GenderMale); got.ID != "" {
		t.Errorf("empty catalog voice = %+v", got)
	}
}

func TestDisfluency(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		text  string
		rolls []float64
		want  string
	}{
		{
			name:  "never",
			text:  "I came. I saw! I conquered?",
			rolls: []float64{0.5},
			want:  "I came. I saw! I conquered?",
		},
		{
			name: "cough before second part",
			text: "Hello. World",
			// part "." : gate 0.05 passes, cough roll 0.1 passes
			rolls: []float64{0.05, 0.1, 0.5, 0.5},
			want:  "Hello*cough* . World",
		},
		{
			name: "falls through to pause",
			text: "A. B",
			// "." gate fails; " B" gate passes, cough 0.9 fails, chuckle 0.9 fails, pause 0.1 passes
			rolls: []float64{0.5, 0.05, 0.9, 0.9, 0.1},
			want:  "A.*thoughtful pause*  B",
		},
		{
			name:  "all variation rolls fail",
			text:  "A. B",
			rolls: []float64{0.05, 0.9, 0.9, 0.9, 0.5},
			want:  "A. B",
		},
		{
			name:  "blank parts dropped",
			text:  "Wait...   ",
			rolls: []float64{0.5},
			want:  "Wait...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			i := 0
			d := NewDisfluency(func() float64 {
				v := tt.rolls[i%len(tt.rolls)]
				i++
				return v
			})
			if got := d.Apply(tt.text); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()
	got := splitSentences("Hi!! How are you? Fine")
	want := []string{"Hi", "!!", " How are you", "?", " Fine"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitSentences = %q, want %q", got, want)
	}
}

func TestSelectNativeVoice(t *testing.T) {
	t.Parallel()
	voices := []NativeVoice{
		{Name: "Alex", Lang: "en-US"},
		{Name: "Thomas", Lang: "fr-CA"},
		{Name: "Google français", Lang: "fr-FR"},
		{Name: "Google Deutsch", Lang: "de-DE"},
	}
	tests := []struct {
		locale string
		want   string
	}{
		{"fr-FR", "Google français"},
		{"FR-ca", "Thomas"},
		{"fr-BE", "Google français"},
		{"de-AT", "Google Deutsch"},
		{"ja-JP", "Alex"},
		{"en-GB", "Alex"},
	}
	for _, tt := range tests {
		got, ok := SelectNativeVoice(voices, tt.locale)
		if !ok || got.Name != tt.want {
			t.Errorf("SelectNativeVoice(%q) = %q, want %q", tt.locale, got.Name, tt.want)
		}
	}
	if got, _ := SelectNativeVoice([]NativeVoice{{Name: "Thomas", Lang: "fr-CA"}, {Name: "Amélie", Lang: "fr-CA"}}, "fr-FR"); got.Name != "Thomas" {
		t.Errorf("same-language fallback = %q, want the first fr voice", got.Name)
	}
	if got, _ := SelectNativeVoice([]NativeVoice{{Name: "Kyoko", Lang: "ja-JP"}}, "hi-IN"); got.Name != "Kyoko" {
		t.Errorf("first-voice fallback = %q", got.Name)
	}
	if _, ok := SelectNativeVoice(nil, "en-US"); ok {
		t.Error("empty voice list must report false")
	}
}

func TestSpeak_EnglishHosted(t *testing.T) {
	t.Parallel()
	p := newFakePlayer()
	hosted := &ttsmock.Provider{}
	c := NewController(p, testCatalog(),
		WithTTS(hosted, "murf"), WithDisfluency(NewDisfluency(never)), WithMetrics(testMetrics(t)))

	err := c.Speak(context.Background(), Utterance{Text: "I have a dream.", Language: "en", Gender: types.GenderMale})
	if err != nil {
		t.Fatal(err)
	}
	if hosted.CallCount() != 1 || hosted.Calls[0].Voice.ID != "en-US-ken" || hosted.Calls[0].Text != "I have a dream." {
		t.Errorf("hosted calls = %+v", hosted.Calls)
	}
	if a, n := p.counts(); a != 1 || n != 0 {
		t.Errorf("audio=%d native=%d", a, n)
	}
	if c.Speaking() {
		t.Error("Speaking() after completion")
	}
}

func TestSpeak_HostedFailureFallsBackToNative(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		ttsErr   error
		audioErr error
		noTTS    bool
	}{
		{name: "not configured", ttsErr: tts.ErrNotConfigured},
		{name: "upstream", ttsErr: errors.New("502")},
		{name: "playback error", audioErr: errors.New("decode failed")},
		{name: "no provider", noTTS: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newFakePlayer()
			p.audioErr = tt.audioErr
			p.voices = []NativeVoice{{Name: "Samantha", Lang: "en-US"}}
			opts := []Option{WithDisfluency(NewDisfluency(never)), WithMetrics(testMetrics(t))}
			if !tt.noTTS {
				opts = append(opts, WithTTS(&ttsmock.Provider{Err: tt.ttsErr}, "murf"))
			}
			c := NewController(p, testCatalog(), opts...)

			if err := c.Speak(context.Background(), Utterance{Text: "Hello.", Language: ""}); err != nil {
				t.Fatal(err)
			}
			if _, n := p.counts(); n != 1 {
				t.Fatalf("native calls = %d, want 1", n)
			}
			u := p.native[0]
			if u.Text != "Hello." || u.Lang != "en-US" || u.Voice != "Samantha" || u.Rate != 0.9 {
				t.Errorf("native utterance = %+v", u)
			}
		})
	}
}

func TestSpeak_NonEnglishTranslatesAndGoesNative(t *testing.T) {
	t.Parallel()
	p := newFakePlayer()
	hosted := &ttsmock.Provider{}
	tr := &translatemock.Provider{Result: []string{"Je pense, donc je suis."}}
	c := NewController(p, testCatalog(),
		WithTTS(hosted, "murf"), WithTranslator(tr, "murf"),
		WithDisfluency(NewDisfluency(never)), WithMetrics(testMetrics(t)))

	if err := c.Speak(context.Background(), Utterance{Text: "I think, therefore I am.", Language: "fr"}); err != nil {
		t.Fatal(err)
	}
	if hosted.CallCount() != 0 {
		t.Error("non-English speech must not use the hosted voice")
	}
	if tr.CallCount() != 1 || tr.Calls[0].TargetLanguage != "fr-FR" {
		t.Errorf("translate calls = %+v", tr.Calls)
	}
	if p.native[0].Text != "Je pense, donc je suis." || p.native[0].Lang != "fr-FR" {
		t.Errorf("native = %+v", p.native[0])
	}
}

func TestSpeak_TranslationFailureSpeaksOriginal(t *testing.T) {
	t.Parallel()
	for _, tr := range []*translatemock.Provider{
		{Err: errors.New("timeout")},
		{Result: []string{"  "}},
	} {
		p := newFakePlayer()
		c := NewController(p, testCatalog(), WithTranslator(tr, "murf"),
			WithDisfluency(NewDisfluency(never)), WithMetrics(testMetrics(t)))
		if err := c.Speak(context.Background(), Utterance{Text: "Veni.", Language: "it"}); err != nil {
			t.Fatal(err)
		}
		if p.native[0].Text != "Veni." || p.native[0].Lang != "it-IT" {
			t.Errorf("native = %+v", p.native[0])
		}
	}
}

func TestSpeak_AutoUsesFigureLocale(t *testing.T) {
	t.Parallel()
	p := newFakePlayer()
	tr := &translatemock.Provider{}
	c := NewController(p, testCatalog(), WithTranslator(tr, "murf"),
		WithDisfluency(NewDisfluency(never)), WithMetrics(testMetrics(t)))

	if err := c.Speak(context.Background(), Utterance{Text: "Namaste.", Language: "auto", Locale: "hi-IN"}); err != nil {
		t.Fatal(err)
	}
	if tr.CallCount() != 0 {
		t.Error("auto must not translate")
	}
	if p.native[0].Lang != "hi-IN" {
		t.Errorf("lang = %q", p.native[0].Lang)
	}
}

func TestStop_InterruptsPlayback(t *testing.T) {
	t.Parallel()
	p := newFakePlayer()
	p.block = true
	c := NewController(p, testCatalog(), WithTTS(&ttsmock.Provider{}, "murf"),
		WithDisfluency(NewDisfluency(never)), WithMetrics(testMetrics(t)))

	done := make(chan error, 1)
	go func() {
		done <- c.Speak(context.Background(), Utterance{Text: "A long speech.", Language: "en"})
	}()

	select {
	case <-p.started:
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
	}
	if !c.Speaking() {
		t.Error("Speaking() = false during playback")
	}
	c.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrPlaybackStopped) {
			t.Errorf("err = %v, want ErrPlaybackStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after Stop")
	}
	if _, n := p.counts(); n != 0 {
		t.Error("stopped hosted playback must not fall back to native")
	}
	if c.Speaking() {
		t.Error("Speaking() after Stop")
	}
}

func TestSetVoices(t *testing.T) {
	t.Parallel()
	p := newFakePlayer()
	hosted := &ttsmock.Provider{}
	c := NewController(p, testCatalog(), WithTTS(hosted, "murf"),
		WithDisfluency(NewDisfluency(never)), WithMetrics(testMetrics(t)))
	c.SetVoices(VoiceCatalog{Male: []string{"en-GB-clint"}})

	if err := c.Speak(context.Background(), Utterance{Text: "Cheerio.", Language: "en"}); err != nil {
		t.Fatal(err)
	}
	if hosted.Calls[0].Voice.ID != "en-GB-clint" {
		t.Errorf("voice = %q", hosted.Calls[0].Voice.ID)
	}
}
