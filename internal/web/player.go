package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/MrWong99/chronos/internal/speech"
	"github.com/MrWong99/chronos/pkg/provider/tts"
)

// outboxSize bounds the messages queued for one websocket.
const outboxSize = 256

var errConnClosed = errors.New("web: connection closed")

// Server-to-browser message types besides the session events.
const (
	msgSnapshot    = "snapshot"
	msgSpeakAudio  = "speak_audio"
	msgSpeakNative = "speak_native"
	msgStop        = "stop"
	msgResult      = "result"
	msgError       = "error"
)

// outbound is one message to the browser.
type outbound struct {
	Type  string `json:"type"`
	ID    uint64 `json:"id,omitempty"`
	Ref   string `json:"ref,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsConn serialises writes to one websocket through a single writer.
type wsConn struct {
	c    *websocket.Conn
	out  chan outbound
	done chan struct{}
	once sync.Once
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{c: c, out: make(chan outbound, outboxSize), done: make(chan struct{})}
}

// send queues m, waiting for room.
func (w *wsConn) send(ctx context.Context, m outbound) error {
	select {
	case w.out <- m:
		return nil
	case <-w.done:
		return errConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trySend queues m unless the outbox is full or the connection is gone.
func (w *wsConn) trySend(m outbound) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.out <- m:
		return true
	default:
		return false
	}
}

func (w *wsConn) close() {
	w.once.Do(func() { close(w.done) })
}

func (w *wsConn) writeLoop(ctx context.Context) error {
	for {
		select {
		case m := <-w.out:
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("web: encode %s: %w", m.Type, err)
			}
			if err := w.c.Write(ctx, websocket.MessageText, data); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type audioPayload struct {
	AudioData string `json:"audioData"`
	MIMEType  string `json:"mimeType"`
}

// wsPlayer plays speech in the browser. Every play request carries an id
// the browser acknowledges with playback_done or playback_error.
type wsPlayer struct {
	conn   *wsConn
	voices atomic.Pointer[[]speech.NativeVoice]

	mu      sync.Mutex
	next    uint64
	pending map[uint64]chan error
	closed  bool
}

func newWSPlayer(conn *wsConn) *wsPlayer {
	return &wsPlayer{conn: conn, pending: make(map[uint64]chan error)}
}

func (p *wsPlayer) PlayAudio(ctx context.Context, a *tts.Audio) error {
	return p.play(ctx, msgSpeakAudio, audioPayload{
		AudioData: base64.StdEncoding.EncodeToString(a.Data),
		MIMEType:  a.MIMEType,
	})
}

func (p *wsPlayer) SpeakNative(ctx context.Context, u speech.NativeUtterance) error {
	return p.play(ctx, msgSpeakNative, u)
}

func (p *wsPlayer) NativeVoices() []speech.NativeVoice {
	if v := p.voices.Load(); v != nil {
		return *v
	}
	return nil
}

func (p *wsPlayer) setVoices(v []speech.NativeVoice) {
	p.voices.Store(&v)
}

// Stop tells the browser to stop and releases every waiting play call.
func (p *wsPlayer) Stop() {
	p.conn.trySend(outbound{Type: msgStop})
	p.resolveAll(speech.ErrPlaybackStopped)
}

func (p *wsPlayer) play(ctx context.Context, typ string, data any) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return speech.ErrPlaybackStopped
	}
	p.next++
	id := p.next
	ch := make(chan error, 1)
	p.pending[id] = ch
	p.mu.Unlock()
	defer p.forget(id)

	if err := p.conn.send(ctx, outbound{Type: typ, ID: id, Data: data}); err != nil {
		if ctx.Err() != nil || errors.Is(err, errConnClosed) {
			return speech.ErrPlaybackStopped
		}
		return fmt.Errorf("web: send %s: %w", typ, err)
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return speech.ErrPlaybackStopped
	}
}

// ack completes play request id with err.
func (p *wsPlayer) ack(id uint64, err error) {
	p.mu.Lock()
	ch, ok := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()
	if ok {
		ch <- err
	}
}

func (p *wsPlayer) forget(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *wsPlayer) resolveAll(err error) {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[uint64]chan error)
	p.mu.Unlock()
	for _, ch := range pending {
		ch <- err
	}
}

// close fails current and future play calls.
func (p *wsPlayer) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.resolveAll(speech.ErrPlaybackStopped)
}
