package model

import (
	"fmt"
	"time"
)

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeMultiple  QuestionType = "multiple"  // Pick one option label
	QuestionTypeRating    QuestionType = "rating"    // Score each item, averaged by consumers
	QuestionTypeWordcloud QuestionType = "wordcloud" // Free text split into words
)

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultiple, QuestionTypeRating, QuestionTypeWordcloud:
		return true
	}
	return false
}

// Question is one poll item within a session
type Question struct {
	ID          string       `json:"id" bson:"id"`
	Type        QuestionType `json:"type" bson:"type"`
	Title       string       `json:"title" bson:"title"`
	Active      bool         `json:"active" bson:"active"`
	Options     []string     `json:"options,omitempty" bson:"options,omitempty"` // multiple only
	Items       []string     `json:"items,omitempty" bson:"items,omitempty"`     // rating only
	Results     Results      `json:"results" bson:"results"`
	ActivatedAt *time.Time   `json:"activatedAt,omitempty" bson:"activatedAt,omitempty"`
	ClosedAt    *time.Time   `json:"closedAt,omitempty" bson:"closedAt,omitempty"`
}

// Validate checks the type-specific configuration of a question
func (q *Question) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	switch q.Type {
	case QuestionTypeMultiple:
		if len(q.Items) > 0 {
			return fmt.Errorf("question %s: items are only allowed on rating questions", q.ID)
		}
		return checkUniqueLabels(q.ID, "option", q.Options)
	case QuestionTypeRating:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %s: options are only allowed on multiple questions", q.ID)
		}
		return checkUniqueLabels(q.ID, "item", q.Items)
	default:
		if len(q.Options) > 0 || len(q.Items) > 0 {
			return fmt.Errorf("question %s: wordcloud questions take no options or items", q.ID)
		}
	}
	return nil
}

func checkUniqueLabels(id, kind string, labels []string) error {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == "" {
			return fmt.Errorf("question %s: empty %s label", id, kind)
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("question %s: duplicate %s %q", id, kind, l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// ResetResults replaces the results with the zeroed shape for the question type
func (q *Question) ResetResults() {
	q.Results = ZeroResults(q.Type, q.Options, q.Items)
}

// EnsureResults fills in any result maps missing after decoding, keeping
// existing tallies. Stored documents drop empty collections.
func (q *Question) EnsureResults() {
	zero := ZeroResults(q.Type, q.Options, q.Items)
	if zero.Counts != nil && q.Results.Counts == nil {
		q.Results.Counts = zero.Counts
	}
	if zero.Sums != nil && q.Results.Sums == nil {
		q.Results.Sums = zero.Sums
	}
	if zero.Words != nil && q.Results.Words == nil {
		q.Results.Words = zero.Words
	}
}

// Clone returns a deep copy of the question
func (q *Question) Clone() *Question {
	c := *q
	c.Options = cloneStrings(q.Options)
	c.Items = cloneStrings(q.Items)
	c.Results = q.Results.Clone()
	if q.ActivatedAt != nil {
		t := *q.ActivatedAt
		c.ActivatedAt = &t
	}
	if q.ClosedAt != nil {
		t := *q.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
