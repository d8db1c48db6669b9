package chat

import (
	"github.com/MrWong99/chronos/internal/debate"
	"github.com/MrWong99/chronos/internal/quiz"
)

// Event types pushed to a session's subscriber.
const (
	// EventMessage carries a [MessageEvent] for every appended message.
	EventMessage = "message"
	// EventTranslation carries a [TranslationEvent].
	EventTranslation = "translation"
	// EventFigures carries the current []FigureInfo.
	EventFigures = "figures"
	// EventLanguage carries the new language code.
	EventLanguage = "language"
	// EventCleared carries the [Snapshot] after Clear.
	EventCleared = "cleared"
	// EventQuiz carries the current [QuizView], or nil after a reset.
	EventQuiz = "quiz"
)

// Event is one notification about a change in a session.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// MessageEvent reports a message appended at Index.
type MessageEvent struct {
	Index   int            `json:"index"`
	Message debate.Message `json:"message"`
}

// TranslationEvent reports the English translation of message Index.
type TranslationEvent struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// FigureInfo describes one figure of a session.
type FigureInfo struct {
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	LanguageCode string `json:"languageCode"`
	LanguageName string `json:"languageName"`
}

// QuizView is the client-visible state of the current quiz attempt.
type QuizView struct {
	Figure    string          `json:"figure"`
	Questions []quiz.Question `json:"questions"`
	Answered  int             `json:"answered"`
	Finished  bool            `json:"finished"`
	Result    *quiz.Result    `json:"result,omitempty"`
}

// Snapshot is the full state of a session.
type Snapshot struct {
	ID       string           `json:"id"`
	Figures  []FigureInfo     `json:"figures"`
	Language string           `json:"language"`
	Messages []debate.Message `json:"messages"`
	Busy     bool             `json:"busy"`
	Speaking bool             `json:"speaking"`
	Quiz     *QuizView        `json:"quiz,omitempty"`
}

func viewOf(a *quiz.Attempt) *QuizView {
	if a == nil {
		return nil
	}
	v := &QuizView{
		Figure:    a.Figure(),
		Questions: a.Questions(),
		Answered:  a.Answered(),
		Finished:  a.Finished(),
	}
	if r, ok := a.Result(); ok {
		v.Result = &r
	}
	return v
}
