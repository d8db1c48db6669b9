// Package progress keeps the learner's cumulative quiz record: points,
// badges and per-figure completion.
//
// The record is a single JSON document read and written whole. [Apply] is the
// pure merge applied on every finished quiz; [Store] caches the document and
// persists it through a [Backend].
package progress

import (
	"encoding/json"

	"github.com/MrWong99/chronos/internal/quiz"
)

// Points awarded per correct answer and for a perfect quiz.
const (
	PointsPerCorrect = 10
	PerfectBonus     = 10
)

// StoredBadge is a badge as persisted in the progress document.
type StoredBadge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// FigureRecord tracks the quizzes taken about one figure.
type FigureRecord struct {
	Quizzes int  `json:"quizzes"`
	Perfect bool `json:"perfect"`
}

// Progress is the persisted progress document.
type Progress struct {
	Points  int                     `json:"points"`
	Badges  []StoredBadge           `json:"badges"`
	Figures map[string]FigureRecord `json:"figures"`
}

// Zero returns an empty document with non-nil collections.
func Zero() Progress {
	return Progress{Badges: []StoredBadge{}, Figures: map[string]FigureRecord{}}
}

// Clone returns a deep copy of p.
func (p Progress) Clone() Progress {
	out := Progress{
		Points:  p.Points,
		Badges:  append([]StoredBadge{}, p.Badges...),
		Figures: make(map[string]FigureRecord, len(p.Figures)),
	}
	for k, v := range p.Figures {
		out.Figures[k] = v
	}
	return out
}

// Parse decodes a stored document. Malformed input yields [Zero] and false.
func Parse(data []byte) (Progress, bool) {
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Zero(), false
	}
	if p.Badges == nil {
		p.Badges = []StoredBadge{}
	}
	if p.Figures == nil {
		p.Figures = map[string]FigureRecord{}
	}
	return p, true
}

// Apply merges a finished quiz about figure into p and returns the result.
// p is not modified.
func Apply(p Progress, figure string, r quiz.Result) Progress {
	out := p.Clone()

	out.Points += r.Score * PointsPerCorrect
	if r.Perfect() {
		out.Points += PerfectBonus
	}

	for _, b := range r.Badges {
		sb := StoredBadge{ID: b.ID, Name: b.Name, Description: b.Description, Icon: b.Icon}
		if i := badgeIndex(out.Badges, b.ID); i >= 0 {
			out.Badges[i] = sb
			continue
		}
		out.Badges = append(out.Badges, sb)
	}

	rec := out.Figures[figure]
	rec.Quizzes++
	if r.Perfect() {
		rec.Perfect = true
	}
	out.Figures[figure] = rec
	return out
}

func badgeIndex(badges []StoredBadge, id string) int {
	for i, b := range badges {
		if b.ID == id {
			return i
		}
	}
	return -1
}
