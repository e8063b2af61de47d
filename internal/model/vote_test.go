package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func newQuestion(t QuestionType) *Question {
	q := &Question{ID: "q1", Type: t, Title: "test"}
	switch t {
	case QuestionTypeMultiple:
		q.Options = []string{"A", "B", "C", "D"}
	case QuestionTypeRating:
		q.Items = []string{"X", "Y"}
	}
	q.ResetResults()
	return q
}

func TestApplyVoteMultiple(t *testing.T) {
	q := newQuestion(QuestionTypeMultiple)
	for i := 0; i < 3; i++ {
		if err := ApplyVote(q, json.RawMessage(`"A"`), nil); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}
	want := map[string]int{"A": 3, "B": 0, "C": 0, "D": 0}
	if !reflect.DeepEqual(q.Results.Counts, want) {
		t.Errorf("counts = %v, want %v", q.Results.Counts, want)
	}
}

func TestApplyVoteMultipleUnknownLabelInserted(t *testing.T) {
	q := newQuestion(QuestionTypeMultiple)
	if err := ApplyVote(q, json.RawMessage(`"Z"`), nil); err != nil {
		t.Fatalf("ApplyVote: %v", err)
	}
	if q.Results.Counts["Z"] != 1 {
		t.Errorf("counts[Z] = %d, want 1", q.Results.Counts["Z"])
	}
	if len(q.Results.Counts) != 5 {
		t.Errorf("expected 5 labels, got %v", q.Results.Counts)
	}
}

func TestApplyVoteRating(t *testing.T) {
	q := newQuestion(QuestionTypeRating)
	for _, v := range []string{`{"item":"X","value":4}`, `{"item":"X","value":2}`} {
		if err := ApplyVote(q, json.RawMessage(v), nil); err != nil {
			t.Fatalf("ApplyVote(%s): %v", v, err)
		}
	}
	if q.Results.Sums["X"] != 6 || q.Results.Counts["X"] != 2 {
		t.Errorf("sums=%v counts=%v", q.Results.Sums, q.Results.Counts)
	}
	if avg := q.Results.Averages()["X"]; avg != 3.0 {
		t.Errorf("average = %v, want 3", avg)
	}
	if _, ok := q.Results.Averages()["Y"]; ok {
		t.Error("item without votes should have no average")
	}
}

func TestApplyVoteRatingCoercion(t *testing.T) {
	tests := []struct {
		vote string
		want float64
	}{
		{`{"item":"X","value":"3.5"}`, 3.5},
		{`{"item":"X","value":""}`, 0},
		{`{"item":"X","value":true}`, 1},
		{`{"item":"X","value":false}`, 0},
		{`{"item":"X","value":-2}`, -2},
	}
	for _, tt := range tests {
		t.Run(tt.vote, func(t *testing.T) {
			q := newQuestion(QuestionTypeRating)
			if err := ApplyVote(q, json.RawMessage(tt.vote), nil); err != nil {
				t.Fatalf("ApplyVote: %v", err)
			}
			if q.Results.Sums["X"] != tt.want || q.Results.Counts["X"] != 1 {
				t.Errorf("sums[X]=%v counts[X]=%d, want %v/1", q.Results.Sums["X"], q.Results.Counts["X"], tt.want)
			}
		})
	}
}

func TestApplyVoteRatingBounds(t *testing.T) {
	bounds := &RatingBounds{Min: 1, Max: 5}
	q := newQuestion(QuestionTypeRating)

	if err := ApplyVote(q, json.RawMessage(`{"item":"X","value":5}`), bounds); err != nil {
		t.Fatalf("in-range vote rejected: %v", err)
	}
	err := ApplyVote(q, json.RawMessage(`{"item":"X","value":9}`), bounds)
	if !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("err = %v, want ErrInvalidVote", err)
	}
	if q.Results.Sums["X"] != 5 || q.Results.Counts["X"] != 1 {
		t.Errorf("rejected vote changed results: %+v", q.Results)
	}
}

func TestApplyVoteRatingOverflowRejected(t *testing.T) {
	q := newQuestion(QuestionTypeRating)
	huge := json.RawMessage(`{"item":"X","value":1.7e308}`)
	if err := ApplyVote(q, huge, nil); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	err := ApplyVote(q, huge, nil)
	if !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("err = %v, want ErrInvalidVote", err)
	}
	if q.Results.Sums["X"] != 1.7e308 || q.Results.Counts["X"] != 1 {
		t.Errorf("overflowing vote changed results: %+v", q.Results)
	}
	if _, err := json.Marshal(q.Results); err != nil {
		t.Errorf("results no longer encode: %v", err)
	}

	if err := ApplyVote(q, json.RawMessage(`{"item":"X","value":-1.7e308}`), nil); err != nil {
		t.Fatalf("negative vote: %v", err)
	}
	if q.Results.Sums["X"] != 0 || q.Results.Counts["X"] != 2 {
		t.Errorf("sums=%v counts=%v", q.Results.Sums, q.Results.Counts)
	}
}

func TestApplyVoteWordcloud(t *testing.T) {
	q := newQuestion(QuestionTypeWordcloud)
	if err := ApplyVote(q, json.RawMessage(`{"text":"Café, CAFÉ!  Día-día"}`), nil); err != nil {
		t.Fatalf("ApplyVote: %v", err)
	}
	if err := ApplyVote(q, json.RawMessage(`{"text":"hola"}`), nil); err != nil {
		t.Fatalf("ApplyVote: %v", err)
	}
	want := []string{"café", "café", "día-día", "hola"}
	if !reflect.DeepEqual(q.Results.Words, want) {
		t.Errorf("words = %q, want %q", q.Results.Words, want)
	}
}

func TestApplyVoteWordcloudMissingText(t *testing.T) {
	for _, v := range []string{`{}`, `{"text":null}`, `{"text":"!!!"}`} {
		q := newQuestion(QuestionTypeWordcloud)
		if err := ApplyVote(q, json.RawMessage(v), nil); err != nil {
			t.Errorf("ApplyVote(%s) = %v, want nil", v, err)
		}
		if len(q.Results.Words) != 0 {
			t.Errorf("ApplyVote(%s) added words %q", v, q.Results.Words)
		}
	}
}

func TestApplyVoteInvalid(t *testing.T) {
	tests := []struct {
		name string
		typ  QuestionType
		vote string
	}{
		{"multiple missing", QuestionTypeMultiple, ``},
		{"multiple number", QuestionTypeMultiple, `3`},
		{"multiple empty label", QuestionTypeMultiple, `""`},
		{"multiple object", QuestionTypeMultiple, `{"option":"A"}`},
		{"rating not object", QuestionTypeRating, `4`},
		{"rating missing value", QuestionTypeRating, `{"item":"X"}`},
		{"rating null value", QuestionTypeRating, `{"item":"X","value":null}`},
		{"rating non-numeric string", QuestionTypeRating, `{"item":"X","value":"abc"}`},
		{"rating missing item", QuestionTypeRating, `{"value":3}`},
		{"rating numeric item", QuestionTypeRating, `{"item":7,"value":3}`},
		{"wordcloud string", QuestionTypeWordcloud, `"hello"`},
		{"wordcloud numeric text", QuestionTypeWordcloud, `{"text":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newQuestion(tt.typ)
			before := q.Results.Clone()

			err := ApplyVote(q, json.RawMessage(tt.vote), nil)
			if !errors.Is(err, ErrInvalidVote) {
				t.Fatalf("err = %v, want ErrInvalidVote", err)
			}
			if !reflect.DeepEqual(q.Results, before) {
				t.Errorf("results changed: %+v -> %+v", before, q.Results)
			}
		})
	}
}
