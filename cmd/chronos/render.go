package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/internal/debate"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/internal/progress"
	"github.com/MrWong99/chronos/internal/quiz"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	figureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true)

	translationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Width(16).
			Align(lipgloss.Right).
			MarginRight(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// renderMessage formats transcript entry i for the terminal.
func renderMessage(i int, m debate.Message) string {
	switch {
	case m.Role == "user":
		return fmt.Sprintf("%s %s", userStyle.Render(fmt.Sprintf("[%d] You:", i)), m.Content)
	case m.Speaker == persona.SystemSpeaker:
		return systemStyle.Render(fmt.Sprintf("[%d] %s", i, m.Content))
	default:
		return fmt.Sprintf("%s %s", figureStyle.Render(fmt.Sprintf("[%d] %s:", i, m.Speaker)), m.Content)
	}
}

func renderTranslation(text string) string {
	return translationStyle.Render("English: " + text)
}

func renderError(err error) string {
	return errorStyle.Render("error: " + err.Error())
}

func renderField(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// renderProgress formats the progress overview.
func renderProgress(p progress.Progress) string {
	lines := []string{
		titleStyle.Render("Learning progress"),
		renderField("Points", fmt.Sprint(p.Points)),
	}

	badges := make([]string, 0, len(p.Badges))
	for _, b := range p.Badges {
		badges = append(badges, b.Icon+" "+b.Name)
	}
	if len(badges) == 0 {
		badges = append(badges, "none yet")
	}
	lines = append(lines, renderField("Badges", strings.Join(badges, ", ")))

	names := make([]string, 0, len(p.Figures))
	for name := range p.Figures {
		names = append(names, name)
	}
	slices.Sort(names)
	lines = append(lines, renderField("Figures learned", fmt.Sprint(len(names))))
	for _, name := range names {
		rec := p.Figures[name]
		detail := fmt.Sprintf("%d quiz", rec.Quizzes)
		if rec.Quizzes != 1 {
			detail += "zes"
		}
		if rec.Perfect {
			detail += ", perfect score"
		}
		lines = append(lines, renderField(name, detail))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// renderSummary formats a learning summary.
func renderSummary(figure string, s completion.Summary) string {
	lines := []string{titleStyle.Render("What you learned from " + figure)}
	for _, p := range s.Points {
		lines = append(lines, "  • "+p)
	}
	if len(s.Timeline) > 0 {
		lines = append(lines, "", titleStyle.Render("Timeline"))
		for _, e := range s.Timeline {
			lines = append(lines, renderField(e.Date, e.Event))
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// renderQuestion formats question n (zero based) with numbered options.
func renderQuestion(n int, q quiz.Question) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("Question %d/%d", n+1, quiz.Total)), q.Question}
	for i, opt := range q.Options {
		lines = append(lines, fmt.Sprintf("  %d) %s", i+1, opt))
	}
	return strings.Join(lines, "\n")
}

// renderResult formats a finished quiz.
func renderResult(r quiz.Result) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("You scored %d/%d", r.Score, r.Total))}
	for _, w := range r.Wrong {
		answer := w.UserAnswer
		if answer == "" {
			answer = "(no answer)"
		}
		lines = append(lines,
			"",
			w.Question,
			errorStyle.Render("  your answer: "+answer),
			valueStyle.Render("  correct:     "+w.CorrectAnswer),
		)
		if w.Explanation != "" {
			lines = append(lines, systemStyle.Render("  "+w.Explanation))
		}
	}
	var earned []string
	for _, b := range r.Badges {
		if b.Earned {
			earned = append(earned, b.Icon+" "+b.Name)
		}
	}
	if len(earned) > 0 {
		lines = append(lines, "", renderField("Badges earned", strings.Join(earned, ", ")))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
