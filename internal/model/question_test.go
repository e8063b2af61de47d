package model

import (
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"multiple", Question{ID: "q", Type: QuestionTypeMultiple, Options: []string{"A", "B"}}, false},
		{"multiple without options", Question{ID: "q", Type: QuestionTypeMultiple}, false},
		{"rating", Question{ID: "q", Type: QuestionTypeRating, Items: []string{"X"}}, false},
		{"wordcloud", Question{ID: "q", Type: QuestionTypeWordcloud}, false},
		{"unknown type", Question{ID: "q", Type: "essay"}, true},
		{"duplicate option", Question{ID: "q", Type: QuestionTypeMultiple, Options: []string{"A", "A"}}, true},
		{"empty item", Question{ID: "q", Type: QuestionTypeRating, Items: []string{""}}, true},
		{"items on multiple", Question{ID: "q", Type: QuestionTypeMultiple, Items: []string{"X"}}, true},
		{"options on rating", Question{ID: "q", Type: QuestionTypeRating, Options: []string{"A"}}, true},
		{"options on wordcloud", Question{ID: "q", Type: QuestionTypeWordcloud, Options: []string{"A"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsureResultsKeepsTallies(t *testing.T) {
	q := &Question{ID: "q", Type: QuestionTypeRating, Items: []string{"X", "Y"}}
	q.Results = Results{Counts: map[string]int{"X": 2}}

	q.EnsureResults()
	if q.Results.Counts["X"] != 2 {
		t.Errorf("existing count lost: %v", q.Results.Counts)
	}
	if q.Results.Sums == nil {
		t.Error("missing sums not filled in")
	}

	w := &Question{ID: "w", Type: QuestionTypeWordcloud}
	w.EnsureResults()
	if w.Results.Words == nil {
		t.Error("wordcloud words should be non-nil")
	}
}
