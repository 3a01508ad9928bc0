package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignature(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "lowercases and collapses whitespace",
			description: "  Starbucks   GANGNAM  ",
			want:        "starbucks gangnam",
		},
		{
			name:        "strips purely numeric tokens",
			description: "스타벅스 강남점 1234",
			want:        "스타벅스 강남점",
		},
		{
			name:        "keeps mixed alphanumeric tokens",
			description: "GS25 편의점 20250315",
			want:        "gs25 편의점",
		},
		{
			name:        "same merchant different branch numbers collapse to one key",
			description: "이마트 0042",
			want:        "이마트",
		},
		{
			name:        "tabs and newlines are whitespace",
			description: "카카오\t택시\n호출",
			want:        "카카오 택시 호출",
		},
		{
			name:        "empty description",
			description: "",
			want:        "",
		},
		{
			name:        "only numbers yields empty signature",
			description: "20250315 1234 5678",
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Signature(tt.description))
		})
	}
}

func TestSignature_StableAcrossVariants(t *testing.T) {
	variants := []string{
		"스타벅스 강남점",
		"스타벅스  강남점",
		"스타벅스 강남점 0017",
		"  스타벅스 강남점  ",
	}
	want := Signature(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, want, Signature(v), "variant %q", v)
	}
}
