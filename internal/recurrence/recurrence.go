// Package recurrence derives task due dates from iCalendar RRULE strings.
// The persisted due_date column is a cache over these computations and is
// recomputed whenever the rule or completion state changes.
package recurrence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var ErrInvalidRRule = errors.New("invalid rrule")

// Lookahead bounds the occurrence search. Occurrences further than a year out
// are invisible to the due-date cache; known behavior carried over from the
// original data model.
const Lookahead = 365 * 24 * time.Hour

var singleOccurrence = regexp.MustCompile(`COUNT=1\b`)

type Engine struct {
	lookahead time.Duration
}

func NewEngine() *Engine {
	return &Engine{lookahead: Lookahead}
}

// Parse accepts the stored wire format, either newline separated
// ("DTSTART:...\nRRULE:...") or the compact semicolon-joined form
// ("DTSTART:...;RRULE:..."), plus bare "FREQ=..." rules.
func (e *Engine) Parse(raw string) (*rrule.Set, error) {
	normalized := normalize(raw)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty rule", ErrInvalidRRule)
	}
	set, err := rrule.StrToRRuleSet(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRRule, err)
	}
	return set, nil
}

// Validate reports whether the rule is well formed. Write paths must reject
// malformed rules; read paths swallow the error instead (see NextOccurrence).
func (e *Engine) Validate(raw string) error {
	_, err := e.Parse(raw)
	return err
}

// NextOccurrence returns the earliest occurrence in [from, from+lookahead]
// evaluated against the given zone, or nil when the rule yields nothing in
// that window. Malformed rules yield (nil, ErrInvalidRRule); callers on the
// read path treat that as "no occurrence" and leave the cache untouched.
func (e *Engine) NextOccurrence(raw string, from time.Time, loc *time.Location) (*time.Time, error) {
	set, err := e.Parse(raw)
	if err != nil {
		return nil, err
	}
	localFrom := from.In(loc)
	occurrences := set.Between(localFrom, localFrom.Add(e.lookahead), true)
	if len(occurrences) == 0 {
		return nil, nil
	}
	next := occurrences[0]
	return &next, nil
}

// OccurrencesInRange enumerates occurrences between start and end inclusive.
func (e *Engine) OccurrencesInRange(raw string, start, end time.Time, loc *time.Location) ([]time.Time, error) {
	set, err := e.Parse(raw)
	if err != nil {
		return nil, err
	}
	return set.Between(start.In(loc), end.In(loc), true), nil
}

// IsRecurring reports whether the rule repeats. A rule reducing to a single
// occurrence (COUNT=1) is a plain due date, not a recurrence.
func (e *Engine) IsRecurring(raw string) bool {
	if raw == "" {
		return false
	}
	if e.Validate(raw) != nil {
		return false
	}
	return !singleOccurrence.MatchString(raw)
}

func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	// Compact form stores DTSTART and RRULE on one line joined by ";".
	s = strings.ReplaceAll(s, ";RRULE:", "\nRRULE:")
	s = strings.ReplaceAll(s, ";EXDATE:", "\nEXDATE:")
	if s != "" && !strings.Contains(s, ":") {
		// Bare rule body such as "FREQ=DAILY;COUNT=1".
		s = "RRULE:" + s
	}
	return s
}
