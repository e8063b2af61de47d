package model

import (
	"encoding/json"
	"sort"
)

// Results is the vote accumulator of a question. Which collections are set
// depends on the question type:
//
//	multiple  -> Counts (option label -> votes)
//	rating    -> Sums and Counts (item label -> total / number of votes)
//	wordcloud -> Words (normalized tokens, duplicates kept)
type Results struct {
	Counts map[string]int     `json:"counts,omitempty" bson:"counts,omitempty"`
	Sums   map[string]float64 `json:"sums,omitempty" bson:"sums,omitempty"`
	Words  []string           `json:"words,omitempty" bson:"words,omitempty"`
}

// ZeroResults builds the empty accumulator for a question type
func ZeroResults(t QuestionType, options, items []string) Results {
	switch t {
	case QuestionTypeMultiple:
		counts := make(map[string]int, len(options))
		for _, opt := range options {
			counts[opt] = 0
		}
		return Results{Counts: counts}
	case QuestionTypeRating:
		sums := make(map[string]float64, len(items))
		counts := make(map[string]int, len(items))
		for _, it := range items {
			sums[it] = 0
			counts[it] = 0
		}
		return Results{Sums: sums, Counts: counts}
	case QuestionTypeWordcloud:
		return Results{Words: []string{}}
	}
	return Results{}
}

// MarshalJSON keeps empty-but-present collections in the output so clients
// always see the shape of the question type ("words": [] rather than nothing).
func (r Results) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 3)
	if r.Counts != nil {
		out["counts"] = r.Counts
	}
	if r.Sums != nil {
		out["sums"] = r.Sums
	}
	if r.Words != nil {
		out["words"] = r.Words
	}
	return json.Marshal(out)
}

// Clone returns a deep copy, preserving nil collections
func (r Results) Clone() Results {
	var c Results
	if r.Counts != nil {
		c.Counts = make(map[string]int, len(r.Counts))
		for k, v := range r.Counts {
			c.Counts[k] = v
		}
	}
	if r.Sums != nil {
		c.Sums = make(map[string]float64, len(r.Sums))
		for k, v := range r.Sums {
			c.Sums[k] = v
		}
	}
	if r.Words != nil {
		c.Words = make([]string, len(r.Words))
		copy(c.Words, r.Words)
	}
	return c
}

// Averages derives the mean score per rating item. Items without votes are omitted.
func (r Results) Averages() map[string]float64 {
	avg := make(map[string]float64, len(r.Sums))
	for item, sum := range r.Sums {
		if n := r.Counts[item]; n > 0 {
			avg[item] = sum / float64(n)
		}
	}
	return avg
}

// WordFrequency is one entry of a word cloud
type WordFrequency struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Frequencies derives word counts ordered by count desc, then word asc
func (r Results) Frequencies() []WordFrequency {
	counts := make(map[string]int)
	for _, w := range r.Words {
		counts[w]++
	}
	freq := make([]WordFrequency, 0, len(counts))
	for w, n := range counts {
		freq = append(freq, WordFrequency{Word: w, Count: n})
	}
	sort.Slice(freq, func(i, j int) bool {
		if freq[i].Count != freq[j].Count {
			return freq[i].Count > freq[j].Count
		}
		return freq[i].Word < freq[j].Word
	})
	return freq
}

// TotalVotes is the number of accepted votes reflected in the results.
// For word clouds this counts tokens, not submissions.
func (r Results) TotalVotes() int {
	if r.Words != nil {
		return len(r.Words)
	}
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}
