package persona

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

var (
	// ErrEmptyFigure is returned when a figure name is blank.
	ErrEmptyFigure = errors.New("persona: figure name is empty")

	// ErrDuplicateFigure is returned when a name refers to a figure that is
	// already part of the set.
	ErrDuplicateFigure = errors.New("persona: figure already present")
)

// sameFigureThreshold is the Jaro-Winkler score at or above which two names
// are treated as spellings of one name.
const sameFigureThreshold = 0.97

// FigureSet is the ordered set of figures active in a conversation. It
// starts with exactly one figure and only grows. Safe for concurrent use.
type FigureSet struct {
	mu    sync.RWMutex
	names []string
}

// NewFigureSet returns a set containing only first.
func NewFigureSet(first string) (*FigureSet, error) {
	first = strings.TrimSpace(first)
	if first == "" {
		return nil, ErrEmptyFigure
	}
	return &FigureSet{names: []string{first}}, nil
}

// Add appends name unless it is blank or names a figure already present.
func (s *FigureSet) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyFigure
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.names {
		if SameFigure(existing, name) {
			return fmt.Errorf("%w: %q matches %q", ErrDuplicateFigure, name, existing)
		}
	}
	s.names = append(s.names, name)
	return nil
}

// Names returns a copy of the figures in join order.
func (s *FigureSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of figures.
func (s *FigureSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Primary returns the figure the conversation was started with.
func (s *FigureSet) Primary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[0]
}

// Contains reports whether name refers to a figure in the set.
func (s *FigureSet) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.names {
		if SameFigure(existing, name) {
			return true
		}
	}
	return false
}

// Resembles returns the figure in the set whose name is close to name
// without being the same, such as a misspelling ("Isaak Newton"). The set
// still accepts name; callers use the match for hints only.
func (s *FigureSet) Resembles(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.names {
		if !SameFigure(existing, name) && SimilarNames(existing, name) {
			return existing, true
		}
	}
	return "", false
}

// SameFigure reports whether a and b name the same figure: equal after case
// folding and whitespace normalisation.
func SameFigure(a, b string) bool {
	af, bf := foldName(a), foldName(b)
	return len(af) > 0 && len(bf) > 0 && strings.Join(af, " ") == strings.Join(bf, " ")
}

// SimilarNames reports whether a and b look like spellings of one name: a
// Jaro-Winkler score of at least 0.97 on the full or space-stripped names,
// or word-by-word identical Double Metaphone codes. Names whose regnal
// numbers differ (Henry VII, Henry VIII) are never similar.
func SimilarNames(a, b string) bool {
	at, bt := foldName(a), foldName(b)
	if len(at) == 0 || len(bt) == 0 || regnalMismatch(at, bt) {
		return false
	}
	if matchr.JaroWinkler(strings.Join(at, " "), strings.Join(bt, " "), false) >= sameFigureThreshold {
		return true
	}
	if matchr.JaroWinkler(strings.Join(at, ""), strings.Join(bt, ""), false) >= sameFigureThreshold {
		return true
	}
	return phoneticallyEqual(at, bt)
}

func foldName(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// regnalMismatch reports whether the roman numerals in a and b differ.
func regnalMismatch(a, b []string) bool {
	return !slices.Equal(numerals(a), numerals(b))
}

func numerals(words []string) []string {
	var out []string
	for _, w := range words {
		if w = strings.TrimRight(w, ".,"); isRomanNumeral(w) {
			out = append(out, w)
		}
	}
	return out
}

var romanNumeral = regexp.MustCompile(`^m{0,3}(cm|cd|d?c{0,3})(xc|xl|l?x{0,3})(ix|iv|v?i{0,3})$`)

func isRomanNumeral(w string) bool {
	return w != "" && romanNumeral.MatchString(w)
}

// phoneticallyEqual requires the same number of words and, per position,
// equal primary Double Metaphone codes.
func phoneticallyEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		pa, _ := matchr.DoubleMetaphone(a[i])
		pb, _ := matchr.DoubleMetaphone(b[i])
		if pa == "" || pa != pb {
			return false
		}
	}
	return true
}
