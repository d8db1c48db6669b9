package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// voiceHost stands in for one hosted speech backend.
type voiceHost struct {
	name string
	err  error
}

func (h voiceHost) speak(text string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return h.name + ":" + text, nil
}

func voiceGroup(cfg FallbackConfig, hosts ...voiceHost) *FallbackGroup[voiceHost] {
	g := NewFallbackGroup(hosts[0], hosts[0].name, cfg)
	for _, h := range hosts[1:] {
		g.AddFallback(h.name, h)
	}
	return g
}

func TestExecuteWithResult_Order(t *testing.T) {
	t.Parallel()

	quota := errors.New("character quota exceeded")
	tests := []struct {
		name    string
		hosts   []voiceHost
		want    string
		wantErr error
	}{
		{
			name:  "primary speaks",
			hosts: []voiceHost{{name: "murf"}, {name: "elevenlabs"}},
			want:  "murf:Veni, vidi, vici.",
		},
		{
			name:  "primary over quota",
			hosts: []voiceHost{{name: "murf", err: quota}, {name: "elevenlabs"}},
			want:  "elevenlabs:Veni, vidi, vici.",
		},
		{
			name:  "third backend",
			hosts: []voiceHost{{name: "murf", err: quota}, {name: "elevenlabs", err: quota}, {name: "local"}},
			want:  "local:Veni, vidi, vici.",
		},
		{
			name:    "every backend down",
			hosts:   []voiceHost{{name: "murf", err: errTest}, {name: "elevenlabs", err: quota}},
			wantErr: quota,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := voiceGroup(FallbackConfig{}, tt.hosts...)
			got, err := ExecuteWithResult(g, func(h voiceHost) (string, error) {
				return h.speak("Veni, vidi, vici.")
			})
			if tt.wantErr != nil {
				if !errors.Is(err, ErrAllFailed) || !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want ErrAllFailed wrapping %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExecuteWithResult: %v", err)
			}
			if got != tt.want {
				t.Errorf("clip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackGroup_OpenBreakerSkipsBackend(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	murfDown := true
	var tried []string
	g := voiceGroup(FallbackConfig{CircuitBreaker: CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
		HalfOpenMax:  1,
		Now:          clock,
	}}, voiceHost{name: "murf"}, voiceHost{name: "elevenlabs"})

	speak := func() {
		t.Helper()
		tried = tried[:0]
		err := g.Execute(func(h voiceHost) error {
			tried = append(tried, h.name)
			if h.name == "murf" && murfDown {
				return errTest
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	speak()
	speak()
	speak()
	if got := strings.Join(tried, ","); got != "elevenlabs" {
		t.Errorf("after two failures tried %q, want murf skipped", got)
	}

	now = now.Add(time.Minute)
	murfDown = false
	speak()
	if got := strings.Join(tried, ","); got != "murf" {
		t.Errorf("after reset timeout tried %q, want murf tried again", got)
	}
	speak()
	if got := strings.Join(tried, ","); got != "murf" {
		t.Errorf("after recovery tried %q, want murf", got)
	}
}

func TestFallbackGroup_CancelledCallKeepsBreakerClosed(t *testing.T) {
	t.Parallel()

	g := voiceGroup(FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1}},
		voiceHost{name: "murf"}, voiceHost{name: "elevenlabs"})

	// The listener pressed stop: both backends see the cancelled context.
	err := g.Execute(func(voiceHost) error { return context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	var used string
	if err := g.Execute(func(h voiceHost) error { used = h.name; return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if used != "murf" {
		t.Errorf("used %q after a cancellation, want murf", used)
	}
}

func TestFallbackGroup_Names(t *testing.T) {
	t.Parallel()

	g := voiceGroup(FallbackConfig{}, voiceHost{name: "murf"}, voiceHost{name: "elevenlabs"}, voiceHost{name: "local"})
	if got := strings.Join(g.Names(), ","); got != "murf,elevenlabs,local" {
		t.Errorf("Names() = %q", got)
	}
}
