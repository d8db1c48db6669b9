package quiz

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/pkg/types"
)

const reflectionPrompt = `You are %s speaking in first person. Create a concise, friendly quiz reflection.
Tone: warm, natural, a bit playful; begin with a short acknowledgment like "Oh! It seems a few details about me got a bit tangled, let me clarify." Use first person throughout.
Content: Mention the score (%d/%d). If there are mistakes, explain each one briefly in your own words.
Format: plain text only, no markdown, no emojis unless they fit naturally. Keep it under 12 lines.
%s

WRONG ANSWERS:
%s
`

// Reflect asks c for an in-character reflection on r, written in language
// (a code, "auto" or empty).
func Reflect(ctx context.Context, c Completer, figure string, r Result, language string) (string, error) {
	blocks := make([]string, len(r.Wrong))
	for i, w := range r.Wrong {
		blocks[i] = fmt.Sprintf("%d) %s\n- User said: %s\n- Correct: %s\n- Context: %s",
			i+1, w.Question, w.UserAnswer, w.CorrectAnswer, w.Explanation)
	}
	wrong := strings.Join(blocks, "\n\n")
	if wrong == "" {
		wrong = "None"
	}

	prompt := fmt.Sprintf(reflectionPrompt, figure, r.Score, r.Total, completion.WriteDirective(figure, language), wrong)
	text, err := c.Complete(ctx, "", []types.Message{{Role: types.RoleUser, Content: prompt}}, completion.Reflection)
	if err != nil {
		return "", fmt.Errorf("quiz: reflect: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("quiz: reflect: empty reply")
	}
	return text, nil
}

// FallbackReflection is the static reflection used when the model cannot
// produce one.
func FallbackReflection(figure string, r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You scored %d/%d.", r.Score, r.Total)

	badges := make([]string, len(r.Badges))
	for i, bd := range r.Badges {
		badges[i] = bd.Icon + " " + bd.Name
	}
	if len(badges) > 0 {
		fmt.Fprintf(&b, "\nBadges earned: %s.", strings.Join(badges, ", "))
	}
	fmt.Fprintf(&b, "\nAs %s, here's how I'd put it:", figure)

	if len(r.Wrong) == 0 {
		b.WriteString("\nBrilliant! You understood me perfectly!")
		return b.String()
	}
	b.WriteString("\n\nOh! It seems a few details about me got a bit tangled. Let me clarify in my own words:\n")
	items := make([]string, len(r.Wrong))
	for i, w := range r.Wrong {
		items[i] = fmt.Sprintf("\n%d) %s\n• You said: %s\n• Actually: %s\n• My take: %s",
			i+1, w.Question, w.UserAnswer, w.CorrectAnswer, w.Explanation)
	}
	b.WriteString(strings.Join(items, "\n"))
	return b.String()
}
