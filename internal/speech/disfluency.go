package speech

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// interjectionChance is the probability of an interjection before a
// sentence part.
const interjectionChance = 0.1

var interjections = []struct {
	chance float64
	sound  string
}{
	{0.35, "*cough* "},
	{0.33, "*chuckles* "},
	{0.32, "*thoughtful pause* "},
}

// Disfluency sprinkles non-lexical interjections into text to make
// synthesised speech sound less mechanical.
type Disfluency struct {
	roll func() float64
}

// NewDisfluency returns an injector drawing from rnd. A nil rnd uses
// [rand.Float64].
func NewDisfluency(rnd func() float64) *Disfluency {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Disfluency{roll: rnd}
}

// Apply splits text into sentence parts (punctuation runs are parts of their
// own) and, before every part but the first, with probability 0.1 inserts
// the first interjection whose own roll passes. Blank parts are dropped.
func (d *Disfluency) Apply(text string) string {
	parts := splitSentences(text)
	var b strings.Builder
	for i, p := range parts {
		if i > 0 && d.roll() < interjectionChance {
			for _, v := range interjections {
				if d.roll() < v.chance {
					b.WriteString(v.sound)
					break
				}
			}
		}
		b.WriteString(p)
	}
	return b.String()
}

// splitSentences splits around punctuation runs, keeping them, and drops
// whitespace-only parts.
func splitSentences(text string) []string {
	var parts []string
	add := func(s string) {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	last := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		add(text[last:loc[0]])
		add(text[loc[0]:loc[1]])
		last = loc[1]
	}
	add(text[last:])
	return parts
}
