// Package quiz generates multiple-choice quizzes from a conversation, scores
// answers, and awards badges.
//
// Generation is delegated to the language model. The returned shape is
// trusted once it parses; only the question count is enforced. Scoring and
// badge computation are pure functions of the questions and selections.
package quiz

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/pkg/types"
)

// Total is the number of questions in every quiz.
const Total = 5

var (
	// ErrMalformedQuiz is returned when the model output does not contain
	// enough questions.
	ErrMalformedQuiz = errors.New("quiz: malformed quiz")

	// ErrFinished is returned when an attempt is mutated after Finish.
	ErrFinished = errors.New("quiz: attempt already finished")

	// ErrOutOfRange is returned for a question or option index that does not
	// exist.
	ErrOutOfRange = errors.New("quiz: index out of range")
)

// Question is one multiple-choice question. CorrectAnswer indexes Options.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// option returns the text of option i, or "" when i is not a valid index.
func (q Question) option(i int) string {
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	return q.Options[i]
}

// Completer issues one language-model request. [*completion.Client]
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, system string, msgs []types.Message, p completion.Profile) (string, error)
}

const generatePrompt = `You are creating a quiz based on a conversation with %s.

Conversation:
%s

Create exactly 5 multiple-choice quiz questions based on the facts discussed in this conversation about %s.
Each question should have 4 options, with one correct answer.

Return ONLY valid JSON in this exact format, no markdown or extra text:
{
  "questions": [
    {
      "question": "What is...",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0,
      "explanation": "The correct answer is..."
    }
  ]
}`

// Generate asks c for a quiz about the conversation msgs with figure. More
// than [Total] questions are truncated; fewer yield [ErrMalformedQuiz].
func Generate(ctx context.Context, c Completer, figure string, msgs []types.Message) ([]Question, error) {
	if len(msgs) == 0 {
		return nil, completion.ErrEmptyConversation
	}
	prompt := fmt.Sprintf(generatePrompt, figure, completion.Transcript(msgs), figure)
	text, err := c.Complete(ctx, "", []types.Message{{Role: types.RoleUser, Content: prompt}}, completion.QuizGeneration)
	if err != nil {
		return nil, fmt.Errorf("quiz: generate: %w", err)
	}

	d := completion.DecodeJSON(text, struct {
		Questions []Question `json:"questions"`
	}{})
	if !d.OK {
		return nil, fmt.Errorf("%w: %w", ErrMalformedQuiz, d.Err)
	}
	qs := d.Value.Questions
	if len(qs) < Total {
		return nil, fmt.Errorf("%w: got %d questions, want %d", ErrMalformedQuiz, len(qs), Total)
	}
	return qs[:Total:Total], nil
}
