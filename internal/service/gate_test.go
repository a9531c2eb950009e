package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetrieve(t *testing.T) {
	tests := []struct {
		utterance string
		want      bool
	}{
		{"thank you", false},
		{"Hello!", false},
		{"bye for now", false},
		{"GOODBYE Sheikh", false},
		{"thanks a lot, sheikh", false},
		{"What is a mursal hadith?", true},
		{"hello, can you explain the conditions of a sahih hadith", true},
		{"Explain tadlis", true},
		{"", true},
		{"   ", true},
		// substring match: "hi" inside "which" suppresses a short question
		{"which hadith?", false},
		{"which narrators are considered thiqah?", true},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetrieve(tt.utterance))
		})
	}
}

func TestShouldRetrieve_IsPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.False(t, ShouldRetrieve("thank you"))
		assert.True(t, ShouldRetrieve("What is a mursal hadith?"))
	}
}
