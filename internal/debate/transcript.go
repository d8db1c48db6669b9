package debate

import (
	"fmt"
	"sync"

	"github.com/MrWong99/chronos/pkg/types"
)

// Message is one transcript entry. Speaker names the figure (or the system)
// behind an assistant message.
type Message struct {
	Role               string `json:"role"`
	Content            string `json:"content"`
	EnglishTranslation string `json:"englishTranslation,omitempty"`
	Speaker            string `json:"speaker,omitempty"`
}

// Transcript is the ordered message log of one conversation. Entries are
// only appended; [Transcript.Reset] starts over. Safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	msgs     []Message
	onAppend func(index int, m Message)
}

// NewTranscript returns a transcript holding msgs.
func NewTranscript(msgs ...Message) *Transcript {
	return &Transcript{msgs: append([]Message(nil), msgs...)}
}

// OnAppend registers fn to be called after every append, outside the lock.
func (t *Transcript) OnAppend(fn func(index int, m Message)) {
	t.mu.Lock()
	t.onAppend = fn
	t.mu.Unlock()
}

// Append adds m and returns its index.
func (t *Transcript) Append(m Message) int {
	t.mu.Lock()
	t.msgs = append(t.msgs, m)
	i := len(t.msgs) - 1
	fn := t.onAppend
	t.mu.Unlock()
	if fn != nil {
		fn(i, m)
	}
	return i
}

// Reset replaces every message with msgs. The append hook is not called.
func (t *Transcript) Reset(msgs ...Message) {
	t.mu.Lock()
	t.msgs = append([]Message(nil), msgs...)
	t.mu.Unlock()
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

// At returns message i.
func (t *Transcript) At(i int) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.msgs) {
		return Message{}, false
	}
	return t.msgs[i], true
}

// Messages returns a copy of all messages.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.msgs...)
}

// SetTranslation fills the English translation of message i. No other field
// can change after append.
func (t *Transcript) SetTranslation(i int, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.msgs) {
		return fmt.Errorf("debate: message %d out of range", i)
	}
	t.msgs[i].EnglishTranslation = text
	return nil
}

// History returns the transcript as model conversation history.
func (t *Transcript) History() []types.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return toHistory(t.msgs)
}

func toHistory(msgs []Message) []types.Message {
	out := make([]types.Message, len(msgs))
	for i, m := range msgs {
		out[i] = types.Message{Role: m.Role, Content: m.Content, Name: m.Speaker}
	}
	return out
}
