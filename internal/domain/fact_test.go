package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressedFact_Variants(t *testing.T) {
	tests := []struct {
		name     string
		fact     CompressedFact
		kind     FactKind
		text     string
		relevant bool
	}{
		{"relevant", Relevant("Mutawatir is mass-transmitted."), FactRelevant, "Mutawatir is mass-transmitted.", true},
		{"excerpt", Excerpt("[Source 1 - Page 4]:\nraw..."), FactExcerpt, "[Source 1 - Page 4]:\nraw...", true},
		{"not relevant", NotRelevant(), FactNotRelevant, "", false},
		{"zero value", CompressedFact{}, FactNotRelevant, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.fact.Kind())
			text, ok := tt.fact.Text()
			assert.Equal(t, tt.relevant, ok)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.relevant, tt.fact.IsRelevant())
		})
	}
}

func TestCompressedFact_NotRelevantNeverCarriesText(t *testing.T) {
	f := CompressedFact{kind: FactNotRelevant, text: "leftover"}
	text, ok := f.Text()
	assert.False(t, ok)
	assert.Empty(t, text)
}
