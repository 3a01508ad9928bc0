package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/sejin-p/ledger-sense/internal/classify"
	"github.com/sejin-p/ledger-sense/internal/config"
	"github.com/sejin-p/ledger-sense/internal/learning"
	"github.com/sejin-p/ledger-sense/internal/rule"
	"github.com/sejin-p/ledger-sense/internal/seed"
	"github.com/sejin-p/ledger-sense/internal/storage"
)

// openStore opens the rule database, applies migrations, and installs
// the default system rules when missing.
func openStore(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))
	if dbPath == "" {
		path, err := config.DefaultDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default database path: %w", err)
		}
		dbPath = path
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if _, err := seed.Install(ctx, store); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func buildClassifier(store *storage.SQLiteStorage) *classify.Classifier {
	engine := rule.NewEngine(store)
	return classify.NewWithConfig(engine, classify.Config{
		FallbackCategory: viper.GetString("classification.fallback_category"),
	})
}

func buildLearner(store *storage.SQLiteStorage) *learning.Engine {
	return learning.NewEngineWithConfig(store, store, learning.Config{
		PromotionThreshold: viper.GetInt("learning.threshold"),
	})
}
