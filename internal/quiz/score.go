package quiz

// Unanswered marks a question with no selection.
const Unanswered = -1

// Badge ids.
const (
	BadgeLearner   = "learner"
	BadgeHistorian = "historian"
	BadgeMaster    = "master"
)

// Badge is an achievement earned by a quiz score.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Earned      bool   `json:"earned"`
}

// WrongAnswer is one missed question, with both answers resolved to option
// text.
type WrongAnswer struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

// Result is the outcome of a finished attempt. Score + len(Wrong) == Total.
type Result struct {
	Score  int           `json:"score"`
	Total  int           `json:"total"`
	Wrong  []WrongAnswer `json:"wrong"`
	Badges []Badge       `json:"badges"`
}

// Perfect reports whether every question was answered correctly.
func (r Result) Perfect() bool {
	return r.Total > 0 && r.Score == r.Total
}

// Score grades selections against questions. selections[i] is the chosen
// option of question i or [Unanswered]; missing entries count as unanswered.
// Unanswered questions are wrong with an empty UserAnswer.
func Score(questions []Question, selections []int) Result {
	r := Result{Total: len(questions), Wrong: []WrongAnswer{}}
	for i, q := range questions {
		sel := Unanswered
		if i < len(selections) {
			sel = selections[i]
		}
		if sel != Unanswered && sel == q.CorrectAnswer {
			r.Score++
			continue
		}
		r.Wrong = append(r.Wrong, WrongAnswer{
			Question:      q.Question,
			UserAnswer:    q.option(sel),
			CorrectAnswer: q.option(q.CorrectAnswer),
			Explanation:   q.Explanation,
		})
	}
	r.Badges = Badges(r.Score)
	return r
}

// Badges returns the badges earned by score: the learner badge always,
// historian from 3 correct answers and master for a perfect quiz.
func Badges(score int) []Badge {
	out := []Badge{{
		ID:          BadgeLearner,
		Name:        "Curious Learner",
		Description: "Completed your first quiz",
		Icon:        "📚",
		Earned:      true,
	}}
	if score >= 3 {
		out = append(out, Badge{
			ID:          BadgeHistorian,
			Name:        "Historian",
			Description: "Scored 3 or more correct answers",
			Icon:        "🏛️",
			Earned:      true,
		})
	}
	if score == Total {
		out = append(out, Badge{
			ID:          BadgeMaster,
			Name:        "Time Master",
			Description: "Perfect score on a quiz",
			Icon:        "⭐",
			Earned:      true,
		})
	}
	return out
}
