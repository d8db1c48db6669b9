// Package persona builds the system instructions that make a completion
// model speak as a historical figure.
//
// Everything here is pure: no I/O, no shared mutable state except the
// append-only [FigureSet], which is safe for concurrent use.
package persona

import (
	"fmt"
	"slices"
	"strings"
)

// Request describes one persona prompt.
type Request struct {
	// Figure is the name of the persona that answers.
	Figure string

	// Language is a language code ("en", "hi", ...), [LanguageAuto], or ""
	// for English.
	Language string

	// Debate is set when several figures share the conversation.
	Debate *DebateParams
}

// DebateParams carries the multi-figure context of a [Request].
type DebateParams struct {
	// AllFigures lists every active figure, including Request.Figure.
	AllFigures []string

	// RespondingTo names the figure whose statement is being answered.
	// Empty means "the previous speaker".
	RespondingTo string

	// Context is free text appended to the debate directives.
	Context string
}

// active reports whether the debate directives apply.
func (d *DebateParams) active() bool {
	return d != nil && len(d.AllFigures) > 1
}

// BuildSystemPrompt renders the system instruction for req. It combines the
// persona fidelity rules, the debate directives (when more than one figure
// is active) and the language directive.
func BuildSystemPrompt(req Request) string {
	figure := req.Figure
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, a historical figure. You will answer questions about your life, era, and expertise.\n\n", figure)
	sb.WriteString("CRITICAL RULES:\n")
	fmt.Fprintf(&sb, "1. You are %s, and you ONLY answer about topics related to your era and your field of expertise.\n", figure)
	sb.WriteString("2. If asked about anything after your death or outside your lifetime, politely decline and redirect to your era.\n")
	fmt.Fprintf(&sb, "3. Speak in first person as %s.\n", figure)
	sb.WriteString("4. Keep responses conversational and educational, 2-3 sentences typically.\n")
	sb.WriteString("5. If you don't know something from your era, admit it honestly.\n")
	sb.WriteString("6. NEVER pretend to know about modern events, technology, or people unless they existed in your time.\n")
	sb.WriteString("7. NEVER break character under any circumstances.\n")
	sb.WriteString("8. Be authentic to your historical persona and knowledge.")

	if req.Debate.active() {
		sb.WriteString("\n\n")
		sb.WriteString(debateDirectives(figure, req.Debate))
	}

	sb.WriteString("\n\nLANGUAGE:\n")
	sb.WriteString(LanguageDirective(figure, req.Language))
	return sb.String()
}

func debateDirectives(figure string, d *DebateParams) string {
	others := slices.DeleteFunc(slices.Clone(d.AllFigures), func(f string) bool { return f == figure })
	target := d.RespondingTo
	if target == "" {
		target = "the previous speaker"
	}

	var sb strings.Builder
	sb.WriteString("CROSS-ERA DEBATE MODE:\n")
	fmt.Fprintf(&sb, "You are in a conversation with other historical figures: %s.\n", strings.Join(others, ", "))
	if d.RespondingTo != "" {
		fmt.Fprintf(&sb, "You are specifically responding to %s's last statement.\n", d.RespondingTo)
	}
	if c := strings.TrimSpace(d.Context); c != "" {
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	sb.WriteString("\nIMPORTANT:\n")
	fmt.Fprintf(&sb, "- Directly address what %s said\n", target)
	sb.WriteString("- Either agree, disagree, add nuance, or provide a contrasting perspective\n")
	sb.WriteString("- Make it conversational - speak TO the other figure(s), not just answer the question\n")
	sb.WriteString("- Reference specific points they made\n")
	sb.WriteString("- Keep your response 2-3 sentences\n")
	fmt.Fprintf(&sb, "- Stay in character as %s from your era", figure)
	return sb.String()
}
