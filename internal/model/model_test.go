package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVocabularyNormalize(t *testing.T) {
	v := NewVocabulary(DefaultCategories)

	tests := []struct {
		label string
		want  Category
	}{
		{"License", "License"},
		{" AML/CFT ", "AML/CFT"},
		{"Benchmark Exchange License Update", "Benchmark Exchange License Update"},
		{"None", CategoryNone},
		{"license", CategoryNone},
		{"Weather", CategoryNone},
		{"", CategoryNone},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, v.Normalize(tt.label)); diff != "" {
				t.Errorf("Normalize(%q) mismatch (-want +got):\n%s", tt.label, diff)
			}
		})
	}
}

func TestNewVocabularyDropsSentinelAndDuplicates(t *testing.T) {
	v := NewVocabulary([]string{"License", "None", "", "License", "Sanction"})
	if diff := cmp.Diff([]string{"License", "Sanction"}, v.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}
