package storage_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/testutil"
)

func TestAppendAndListCorrections(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record := &model.CorrectionRecord{
			Signature:     "스타벅스 강남점",
			Category:      "카페",
			TransactionID: fmt.Sprintf("t%d", i),
		}
		require.NoError(t, store.AppendCorrection(ctx, record))
		assert.Positive(t, record.ID)
		assert.False(t, record.CreatedAt.IsZero())
	}

	records, err := store.ListCorrections(ctx, "스타벅스 강남점")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, fmt.Sprintf("t%d", i), record.TransactionID, "insertion order preserved")
	}
}

func TestCountCorrections(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	appendCorrection := func(signature, category, txnID string) {
		require.NoError(t, store.AppendCorrection(ctx, &model.CorrectionRecord{
			Signature: signature, Category: category, TransactionID: txnID,
		}))
	}
	appendCorrection("올리브영 매장", "화장품", "t1")
	appendCorrection("올리브영 매장", "화장품", "t2")
	appendCorrection("올리브영 매장", "생활용품", "t3")
	appendCorrection("다른 가게", "기타", "t4")

	counts, err := store.CountCorrections(ctx, "올리브영 매장")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"화장품": 2, "생활용품": 1}, counts)

	counts, err = store.CountCorrections(ctx, "없는 서명")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestAppendCorrection_Validation(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		record *model.CorrectionRecord
	}{
		{"nil record", nil},
		{"missing signature", &model.CorrectionRecord{Category: "카페", TransactionID: "t1"}},
		{"missing category", &model.CorrectionRecord{Signature: "서명", TransactionID: "t1"}},
		{"missing transaction ID", &model.CorrectionRecord{Signature: "서명", Category: "카페"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, store.AppendCorrection(ctx, tt.record))
		})
	}
}
