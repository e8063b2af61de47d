package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RatingBounds restricts accepted rating values to [Min, Max]
type RatingBounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v is within the bounds
func (b RatingBounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// RatingVote is the vote payload of a rating question
type RatingVote struct {
	Item  json.RawMessage `json:"item"`
	Value json.RawMessage `json:"value"`
}

// WordcloudVote is the vote payload of a word cloud question
type WordcloudVote struct {
	Text json.RawMessage `json:"text"`
}

// ApplyVote folds one raw vote into the question results. The vote is fully
// validated before anything is written, so a rejected vote leaves the results
// untouched. bounds is optional; nil accepts any finite rating value.
func ApplyVote(q *Question, raw json.RawMessage, bounds *RatingBounds) error {
	switch q.Type {
	case QuestionTypeMultiple:
		return applyMultiple(q, raw)
	case QuestionTypeRating:
		return applyRating(q, raw, bounds)
	case QuestionTypeWordcloud:
		return applyWordcloud(q, raw)
	}
	return fmt.Errorf("%w: unsupported question type %q", ErrInvalidVote, q.Type)
}

func applyMultiple(q *Question, raw json.RawMessage) error {
	var label string
	if len(raw) == 0 || json.Unmarshal(raw, &label) != nil || label == "" {
		return fmt.Errorf("%w: expected a non-empty option label", ErrInvalidVote)
	}
	if q.Results.Counts == nil {
		q.Results.Counts = make(map[string]int)
	}
	// unknown labels are inserted on first vote
	q.Results.Counts[label]++
	return nil
}

func applyRating(q *Question, raw json.RawMessage, bounds *RatingBounds) error {
	if !isObject(raw) {
		return fmt.Errorf("%w: expected {item, value}", ErrInvalidVote)
	}
	var v RatingVote
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVote, err)
	}
	var item string
	if len(v.Item) == 0 || json.Unmarshal(v.Item, &item) != nil || item == "" {
		return fmt.Errorf("%w: rating item must be a non-empty string", ErrInvalidVote)
	}
	value, ok := coerceNumber(v.Value)
	if !ok {
		return fmt.Errorf("%w: rating value is not a number", ErrInvalidVote)
	}
	if bounds != nil && !bounds.Contains(value) {
		return fmt.Errorf("%w: rating value %g outside [%g, %g]", ErrInvalidVote, value, bounds.Min, bounds.Max)
	}

	sum := q.Results.Sums[item] + value
	if math.IsInf(sum, 0) {
		return fmt.Errorf("%w: rating total for %q overflows", ErrInvalidVote, item)
	}

	if q.Results.Sums == nil {
		q.Results.Sums = make(map[string]float64)
	}
	if q.Results.Counts == nil {
		q.Results.Counts = make(map[string]int)
	}
	q.Results.Sums[item] = sum
	q.Results.Counts[item]++
	return nil
}

func applyWordcloud(q *Question, raw json.RawMessage) error {
	if !isObject(raw) {
		return fmt.Errorf("%w: expected {text}", ErrInvalidVote)
	}
	var v WordcloudVote
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVote, err)
	}
	if len(v.Text) == 0 || string(v.Text) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(v.Text, &text); err != nil {
		return fmt.Errorf("%w: text must be a string", ErrInvalidVote)
	}
	words := NormalizeWords(text)
	if len(words) == 0 {
		return nil
	}
	if q.Results.Words == nil {
		q.Results.Words = make([]string, 0, len(words))
	}
	q.Results.Words = append(q.Results.Words, words...)
	return nil
}

// coerceNumber converts a JSON value to a float the way a loosely typed
// client would: numbers as-is, numeric strings parsed, booleans as 1/0.
// Missing, null and non-finite values are rejected.
func coerceNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case bool:
		if x {
			f = 1
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
