package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejin-p/ledger-sense/internal/model"
)

func TestEvaluator_Matches(t *testing.T) {
	tests := []struct {
		name    string
		rule    model.ClassificationRule
		txn     model.Transaction
		want    bool
		wantErr bool
	}{
		{
			name: "contains matches substring",
			rule: model.ClassificationRule{ID: 1, ConditionType: model.ConditionContains, ConditionValue: "스타벅스"},
			txn:  model.Transaction{Description: "스타벅스 강남점"},
			want: true,
		},
		{
			name: "contains is case-insensitive",
			rule: model.ClassificationRule{ID: 1, ConditionType: model.ConditionContains, ConditionValue: "STARBUCKS"},
			txn:  model.Transaction{Description: "starbucks coffee seoul"},
			want: true,
		},
		{
			name: "contains miss",
			rule: model.ClassificationRule{ID: 1, ConditionType: model.ConditionContains, ConditionValue: "스타벅스"},
			txn:  model.Transaction{Description: "이디야커피"},
			want: false,
		},
		{
			name: "equals requires the full description",
			rule: model.ClassificationRule{ID: 2, ConditionType: model.ConditionEquals, ConditionValue: "스타벅스"},
			txn:  model.Transaction{Description: "스타벅스 강남점"},
			want: false,
		},
		{
			name: "equals exact match",
			rule: model.ClassificationRule{ID: 2, ConditionType: model.ConditionEquals, ConditionValue: "스타벅스 강남점"},
			txn:  model.Transaction{Description: "스타벅스 강남점"},
			want: true,
		},
		{
			name: "equals is case-sensitive unlike contains",
			rule: model.ClassificationRule{ID: 2, ConditionType: model.ConditionEquals, ConditionValue: "Starbucks"},
			txn:  model.Transaction{Description: "starbucks"},
			want: false,
		},
		{
			name: "regex search",
			rule: model.ClassificationRule{ID: 3, ConditionType: model.ConditionRegex, ConditionValue: "커피|카페"},
			txn:  model.Transaction{Description: "이디야커피 본점"},
			want: true,
		},
		{
			name: "regex is case-insensitive by default",
			rule: model.ClassificationRule{ID: 3, ConditionType: model.ConditionRegex, ConditionValue: "coffee"},
			txn:  model.Transaction{Description: "BLUE BOTTLE COFFEE"},
			want: true,
		},
		{
			name:    "malformed regex returns an error, never a match",
			rule:    model.ClassificationRule{ID: 4, ConditionType: model.ConditionRegex, ConditionValue: "[unclosed"},
			txn:     model.Transaction{Description: "anything"},
			wantErr: true,
		},
		{
			name: "amount range inclusive bounds",
			rule: model.ClassificationRule{ID: 5, ConditionType: model.ConditionAmountRange, ConditionValue: "1000-5000"},
			txn:  model.Transaction{Amount: 5000},
			want: true,
		},
		{
			name: "amount range open minimum",
			rule: model.ClassificationRule{ID: 5, ConditionType: model.ConditionAmountRange, ConditionValue: "-5000"},
			txn:  model.Transaction{Amount: 1},
			want: true,
		},
		{
			name: "amount range miss",
			rule: model.ClassificationRule{ID: 5, ConditionType: model.ConditionAmountRange, ConditionValue: "1000-5000"},
			txn:  model.Transaction{Amount: 5000.01},
			want: false,
		},
		{
			name:    "malformed amount range returns an error",
			rule:    model.ClassificationRule{ID: 6, ConditionType: model.ConditionAmountRange, ConditionValue: "cheap"},
			txn:     model.Transaction{Amount: 100},
			wantErr: true,
		},
		{
			name:    "unknown condition type returns an error",
			rule:    model.ClassificationRule{ID: 7, ConditionType: "glob", ConditionValue: "*"},
			txn:     model.Transaction{Description: "anything"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := NewEvaluator()
			got, err := eval.Matches(tt.rule, tt.txn)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Deterministic(t *testing.T) {
	eval := NewEvaluator()
	r := model.ClassificationRule{ID: 1, ConditionType: model.ConditionRegex, ConditionValue: "마트"}
	txn := model.Transaction{Description: "홈플러스 마트 123"}

	first, err := eval.Matches(r, txn)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		got, err := eval.Matches(r, txn)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestEvaluator_CachesFailedCompilation(t *testing.T) {
	eval := NewEvaluator()
	r := model.ClassificationRule{ID: 9, ConditionType: model.ConditionRegex, ConditionValue: "[unclosed"}

	_, err1 := eval.Matches(r, model.Transaction{Description: "a"})
	_, err2 := eval.Matches(r, model.Transaction{Description: "b"})

	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, err1, err2, "same cached error returned for every evaluation")
}
