package quiz

import (
	"fmt"
	"sync"
)

// Attempt is one user's pass through a generated quiz. It is frozen once
// finished until [Attempt.Reset]. Safe for concurrent use.
type Attempt struct {
	mu         sync.Mutex
	figure     string
	questions  []Question
	selections []int
	result     *Result
}

// NewAttempt starts an attempt over questions, which are copied.
func NewAttempt(figure string, questions []Question) *Attempt {
	a := &Attempt{figure: figure}
	a.load(questions)
	return a
}

func (a *Attempt) load(questions []Question) {
	a.questions = append([]Question(nil), questions...)
	a.selections = make([]int, len(questions))
	for i := range a.selections {
		a.selections[i] = Unanswered
	}
	a.result = nil
}

// Figure returns the figure the quiz is about.
func (a *Attempt) Figure() string {
	return a.figure
}

// Questions returns a copy of the questions.
func (a *Attempt) Questions() []Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Question(nil), a.questions...)
}

// Select records option as the answer to question q, replacing any earlier
// choice.
func (a *Attempt) Select(q, option int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result != nil {
		return ErrFinished
	}
	if q < 0 || q >= len(a.questions) {
		return fmt.Errorf("%w: question %d", ErrOutOfRange, q)
	}
	if option < 0 || option >= len(a.questions[q].Options) {
		return fmt.Errorf("%w: option %d", ErrOutOfRange, option)
	}
	a.selections[q] = option
	return nil
}

// Answered returns how many questions have a selection.
func (a *Attempt) Answered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, s := range a.selections {
		if s != Unanswered {
			n++
		}
	}
	return n
}

// Finish scores the attempt and freezes it. A second call returns
// [ErrFinished].
func (a *Attempt) Finish() (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result != nil {
		return Result{}, ErrFinished
	}
	r := Score(a.questions, a.selections)
	a.result = &r
	return r, nil
}

// Finished reports whether Finish has been called since the last reset.
func (a *Attempt) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result != nil
}

// Result returns the result of a finished attempt.
func (a *Attempt) Result() (Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return Result{}, false
	}
	return *a.result, true
}

// Reset wipes questions, answers and result.
func (a *Attempt) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.load(nil)
}
