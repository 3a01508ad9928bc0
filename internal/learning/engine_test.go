package learning

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/storage"
	"github.com/sejin-p/ledger-sense/internal/testutil"
)

func findLearnedRule(t *testing.T, store *storage.SQLiteStorage, signature string) *model.ClassificationRule {
	t.Helper()
	rules, err := store.ListActiveRules(context.Background(), model.RuleTypeCategory)
	require.NoError(t, err)
	for _, r := range rules {
		if r.Origin == model.OriginLearned && r.ConditionValue == signature {
			return &r
		}
	}
	return nil
}

func TestRecordCorrection_PromotesAtThreshold(t *testing.T) {
	store := testutil.SetupTestDB(t)
	engine := NewEngine(store, store)
	ctx := context.Background()

	txn := model.Transaction{Description: "배달의민족 주문"}
	for i := 0; i < 2; i++ {
		txn.ID = fmt.Sprintf("t%d", i)
		require.NoError(t, engine.RecordCorrection(ctx, txn, "배달음식"))
		assert.Nil(t, findLearnedRule(t, store, "배달의민족 주문"),
			"no promotion below the threshold")
	}

	txn.ID = "t2"
	require.NoError(t, engine.RecordCorrection(ctx, txn, "배달음식"))

	learned := findLearnedRule(t, store, "배달의민족 주문")
	require.NotNil(t, learned, "third agreeing correction promotes a learned rule")
	assert.Equal(t, "배달음식", learned.TargetValue)
	assert.Equal(t, model.ConditionContains, learned.ConditionType)
	assert.Equal(t, 3, learned.SupportCount)
	assert.True(t, learned.IsActive)

	stats := engine.GetStats()
	assert.Equal(t, 3, stats.CorrectionsRecorded)
	assert.Equal(t, 1, stats.RulesPromoted)
}

func TestRecordCorrection_NormalizesDescriptionVariants(t *testing.T) {
	store := testutil.SetupTestDB(t)
	engine := NewEngine(store, store)
	ctx := context.Background()

	// Branch numbers differ but the signature is shared.
	variants := []string{"스타벅스 강남점 0017", "스타벅스  강남점", "스타벅스 강남점 0042"}
	for i, desc := range variants {
		txn := model.Transaction{ID: fmt.Sprintf("t%d", i), Description: desc}
		require.NoError(t, engine.RecordCorrection(ctx, txn, "카페"))
	}

	learned := findLearnedRule(t, store, "스타벅스 강남점")
	require.NotNil(t, learned)
	assert.Equal(t, "카페", learned.TargetValue)
}

func TestPromoteIfEligible_AmbiguousSignalBlocksPromotion(t *testing.T) {
	store := testutil.SetupTestDB(t)
	engine := NewEngineWithConfig(store, store, Config{PromotionThreshold: 2})
	ctx := context.Background()

	// Build a tied count before any eligibility evaluation runs, as if
	// the corrections were recorded by a previous process.
	corrections := []string{"화장품", "화장품", "생활용품", "생활용품"}
	for i, category := range corrections {
		require.NoError(t, store.AppendCorrection(ctx, &model.CorrectionRecord{
			Signature:     "올리브영 매장",
			Category:      category,
			TransactionID: fmt.Sprintf("t%d", i),
		}))
	}

	promoted, err := engine.PromoteIfEligible(ctx, "올리브영 매장")
	require.NoError(t, err)
	assert.Nil(t, promoted, "tied categories at threshold must not promote")
	assert.Nil(t, findLearnedRule(t, store, "올리브영 매장"))
	assert.Positive(t, engine.GetStats().AmbiguousSignals)

	// A fifth correction breaks the tie.
	require.NoError(t, engine.RecordCorrection(ctx,
		model.Transaction{ID: "t4", Description: "올리브영 매장"}, "화장품"))
	learned := findLearnedRule(t, store, "올리브영 매장")
	require.NotNil(t, learned)
	assert.Equal(t, "화장품", learned.TargetValue)
}

func TestRecordCorrection_PromotionIsIdempotent(t *testing.T) {
	store := testutil.SetupTestDB(t)
	engine := NewEngine(store, store)
	ctx := context.Background()

	txn := model.Transaction{Description: "넷플릭스 월정액"}
	for i := 0; i < 5; i++ {
		txn.ID = fmt.Sprintf("t%d", i)
		require.NoError(t, engine.RecordCorrection(ctx, txn, "구독"))
	}

	rules, err := store.ListActiveRules(ctx, model.RuleTypeCategory)
	require.NoError(t, err)
	learned := 0
	for _, r := range rules {
		if r.Origin == model.OriginLearned {
			learned++
		}
	}
	assert.Equal(t, 1, learned, "extra corrections never create a second rule")
	assert.Equal(t, 1, engine.GetStats().RulesPromoted)
}

func TestRecordCorrection_RejectsEmptyInput(t *testing.T) {
	store := testutil.SetupTestDB(t)
	engine := NewEngine(store, store)
	ctx := context.Background()

	err := engine.RecordCorrection(ctx, model.Transaction{ID: "t1", Description: "카페"}, "")
	require.Error(t, err, "empty category")

	err = engine.RecordCorrection(ctx, model.Transaction{ID: "t2", Description: "1234 5678"}, "카페")
	require.Error(t, err, "description with no signature tokens")
}

func TestLearnedRuleRanksBelowUserRules(t *testing.T) {
	user := model.ClassificationRule{
		Name:           "low-priority-user",
		RuleType:       model.RuleTypeCategory,
		ConditionType:  model.ConditionContains,
		ConditionValue: "버스",
		TargetValue:    "교통비",
		Priority:       -10,
		Origin:         model.OriginUser,
		IsActive:       true,
	}
	store := testutil.SetupTestDBWithRules(t, []model.ClassificationRule{user})
	engine := NewEngine(store, store)
	ctx := context.Background()

	txn := model.Transaction{Description: "택시 호출"}
	for i := 0; i < 3; i++ {
		txn.ID = fmt.Sprintf("t%d", i)
		require.NoError(t, engine.RecordCorrection(ctx, txn, "교통비"))
	}

	learned := findLearnedRule(t, store, "택시 호출")
	require.NotNil(t, learned)
	assert.Less(t, learned.Priority, user.Priority,
		"learned priority sits below the lowest active user rule")
}

func TestPromoteIfEligible_NoopWithoutCorrections(t *testing.T) {
	store := testutil.SetupTestDB(t)
	engine := NewEngine(store, store)

	promoted, err := engine.PromoteIfEligible(context.Background(), "없는 서명")
	require.NoError(t, err)
	assert.Nil(t, promoted)
}

func TestRecordCorrection_ConcurrentSameSignature(t *testing.T) {
	store := testutil.SetupTestDB(t)
	engine := NewEngine(store, store)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txn := model.Transaction{ID: fmt.Sprintf("t%d", i), Description: "쿠팡 로켓배송"}
			errs[i] = engine.RecordCorrection(ctx, txn, "쇼핑")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	rules, err := store.ListActiveRules(ctx, model.RuleTypeCategory)
	require.NoError(t, err)
	learned := 0
	for _, r := range rules {
		if r.Origin == model.OriginLearned && r.ConditionValue == "쿠팡 로켓배송" {
			learned++
		}
	}
	assert.Equal(t, 1, learned, "concurrent corrections promote exactly one rule")

	records, err := store.ListCorrections(ctx, "쿠팡 로켓배송")
	require.NoError(t, err)
	assert.Len(t, records, workers, "every correction is durable")
}
