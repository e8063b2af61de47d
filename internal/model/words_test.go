package model

import (
	"reflect"
	"testing"
)

func TestNormalizeWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"accents and punctuation", "Café, CAFÉ!  Día-día", []string{"café", "café", "día-día"}},
		{"apostrophe kept", "l'esdeveniment Genial", []string{"l'esdeveniment", "genial"}},
		{"punctuation only tokens dropped", "hola ... !!! món", []string{"hola", "món"}},
		{"digits stripped", "go1 2024", []string{"go"}},
		{"tabs and newlines", "a\tb\nc", []string{"a", "b", "c"}},
		{"empty", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWords(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeWords(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
